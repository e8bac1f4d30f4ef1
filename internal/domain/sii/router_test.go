package sii_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/sii-gateway/internal/domain"
	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/sii"
)

func issuedWith(number string, rect *entity.RectificationDetail, intra bool) *entity.IssuedInvoice {
	inv := validIssuedInvoice()
	inv.Number = number
	inv.Rectification = rect
	inv.IsIntraCommunity = intra
	return inv
}

func receivedWith(number string, rect *entity.RectificationDetail, intra, imported bool) *entity.ReceivedInvoice {
	return &entity.ReceivedInvoice{
		InvoiceIdentity: entity.InvoiceIdentity{
			Number:    number,
			IssueDate: testNow.AddDate(0, 0, -1),
			TypeCode:  "F1",
		},
		Issuer:           entity.Party{TaxID: "A58818501", Name: "Proveedor SA"},
		Recipient:        entity.Party{TaxID: "B76365789", Name: "Ferretería Lorca SL"},
		TotalAmount:      decimal.NewFromFloat(121.00),
		VatLines:         validIssuedInvoice().VatLines,
		Rectification:    rect,
		IsIntraCommunity: intra,
		IsImport:         imported,
	}
}

var rectDetail = &entity.RectificationDetail{
	OriginalNumber:    "FA-2026-000",
	OriginalIssueDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	Kind:              "S",
}

// El enrutamiento es función pura de las banderas: mismas banderas, mismo libro.
func TestRouteBook_Emitidas(t *testing.T) {
	assert.Equal(t, "A1", sii.RouteBook(issuedWith("F-1", nil, false)))
	assert.Equal(t, "A2", sii.RouteBook(issuedWith("F-2", rectDetail, false)))
	// La rectificación manda aunque haya otras banderas activas.
	assert.Equal(t, "A2", sii.RouteBook(issuedWith("F-3", rectDetail, true)))
	// Intracomunitaria emitida sin rectificar sigue yendo por A1.
	assert.Equal(t, "A1", sii.RouteBook(issuedWith("F-4", nil, true)))
}

func TestRouteBook_Recibidas(t *testing.T) {
	assert.Equal(t, "B1", sii.RouteBook(receivedWith("R-1", nil, false, false)))
	assert.Equal(t, "B2", sii.RouteBook(receivedWith("R-2", rectDetail, false, false)))
	assert.Equal(t, "B3", sii.RouteBook(receivedWith("R-3", nil, true, false)))
	assert.Equal(t, "B4", sii.RouteBook(receivedWith("R-4", nil, false, true)))
	// Prioridades: rectificación > intracomunitaria > importación.
	assert.Equal(t, "B2", sii.RouteBook(receivedWith("R-5", rectDetail, true, true)))
	assert.Equal(t, "B3", sii.RouteBook(receivedWith("R-6", nil, true, true)))
}

func TestPartition_PreservaOrdenRelativo(t *testing.T) {
	batch := &entity.SubmissionBatch{
		Holder:    entity.Party{TaxID: "B76365789"},
		Period:    "08",
		Direction: entity.DirectionIssued,
		Invoices: []entity.Invoice{
			issuedWith("F-1", nil, false),
			issuedWith("F-2", rectDetail, false),
			issuedWith("F-3", nil, false),
			issuedWith("F-4", rectDetail, false),
		},
	}

	parts := sii.Partition(batch)
	require.Len(t, parts, 2)

	byBook := make(map[string][]string)
	for _, p := range parts {
		for _, inv := range p.Invoices {
			byBook[p.BookCode] = append(byBook[p.BookCode], inv.Identity().Number)
		}
	}
	assert.Equal(t, []string{"F-1", "F-3"}, byBook["A1"], "orden original dentro de A1")
	assert.Equal(t, []string{"F-2", "F-4"}, byBook["A2"], "orden original dentro de A2")
}

func TestPartitionForBook_VaciaEsError(t *testing.T) {
	batch := &entity.SubmissionBatch{
		Holder:    entity.Party{TaxID: "B76365789"},
		Period:    "08",
		Direction: entity.DirectionIssued,
		Invoices:  []entity.Invoice{issuedWith("F-1", nil, false)}, // solo A1
	}

	_, err := sii.PartitionForBook(batch, "A2")
	require.Error(t, err, "pedir rectificativas de un lote sin ellas no puede ser un no-op")
	assert.ErrorIs(t, err, domain.ErrEmptyPartition)

	p, err := sii.PartitionForBook(batch, "A1")
	require.NoError(t, err)
	assert.Len(t, p.Invoices, 1)
}

func TestPartitionForBook_LibroDesconocido(t *testing.T) {
	batch := &entity.SubmissionBatch{Invoices: []entity.Invoice{issuedWith("F-1", nil, false)}}
	_, err := sii.PartitionForBook(batch, "Z9")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
