package sii

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/sii-gateway/internal/domain/entity"
)

var builderHolder = entity.Party{TaxID: "B76365789", Name: "Facturia SL", CountryCode: "ES"}

func builderIssued(number string) *entity.IssuedInvoice {
	return &entity.IssuedInvoice{
		InvoiceIdentity: entity.InvoiceIdentity{
			Number:    number,
			IssueDate: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
			TypeCode:  "F1",
		},
		Issuer:        builderHolder,
		Recipient:     entity.Party{TaxID: "27738604F", Name: "Cliente & Asociados", CountryCode: "ES"},
		OperationType: "01",
		Description:   "Servicios <profesionales>",
		TotalAmount:   decimal.RequireFromString("121.00"),
		VatLines: []entity.VatLine{{
			VatKey:      "01",
			TaxableBase: decimal.RequireFromString("100"),
			VatRate:     decimal.RequireFromString("21"),
			VatAmount:   decimal.RequireFromString("21"),
		}},
	}
}

func TestBuild_IssuedEnvelope(t *testing.T) {
	b := NewXMLBuilder()
	part := entity.BookPartition{BookCode: "A1", Invoices: []entity.Invoice{builderIssued("FA-2026-001")}}

	out, err := b.Build(builderHolder, 2026, "08", part)
	require.NoError(t, err)

	// Sobre del libro y cabecera
	assert.Contains(t, out, "<siiLR:SuministroLRFacturasEmitidas>")
	assert.Contains(t, out, "<sii:IDVersionSii>1.1</sii:IDVersionSii>")
	assert.Contains(t, out, "<sii:NombreRazon>Facturia SL</sii:NombreRazon>")
	assert.Contains(t, out, "<sii:NIF>B76365789</sii:NIF>")
	assert.Contains(t, out, "<sii:TipoComunicacion>A0</sii:TipoComunicacion>")

	// Periodo e identidad de la factura
	assert.Contains(t, out, "<sii:Ejercicio>2026</sii:Ejercicio>")
	assert.Contains(t, out, "<sii:Periodo>08</sii:Periodo>")
	assert.Contains(t, out, "<sii:NumSerieFacturaEmisor>FA-2026-001</sii:NumSerieFacturaEmisor>")
	// Fecha en formato DD-MM-YYYY, nunca ISO.
	assert.Contains(t, out, "<sii:FechaExpedicionFacturaEmisor>25-08-2026</sii:FechaExpedicionFacturaEmisor>")
	assert.NotContains(t, out, "2026-08-25")

	// Importes con exactamente dos decimales
	assert.Contains(t, out, "<sii:ImporteTotal>121.00</sii:ImporteTotal>")
	assert.Contains(t, out, "<sii:TipoImpositivo>21.00</sii:TipoImpositivo>")
	assert.Contains(t, out, "<sii:BaseImponible>100.00</sii:BaseImponible>")
	assert.Contains(t, out, "<sii:CuotaRepercutida>21.00</sii:CuotaRepercutida>")

	// Texto libre escapado por el encoder
	assert.Contains(t, out, "Servicios &lt;profesionales&gt;")
	assert.Contains(t, out, "Cliente &amp; Asociados")
}

func TestBuild_PreservesInvoiceOrder(t *testing.T) {
	b := NewXMLBuilder()
	part := entity.BookPartition{BookCode: "A1", Invoices: []entity.Invoice{
		builderIssued("FA-001"), builderIssued("FA-002"), builderIssued("FA-003"),
	}}

	out, err := b.Build(builderHolder, 2026, "08", part)
	require.NoError(t, err)

	i1 := strings.Index(out, "FA-001")
	i2 := strings.Index(out, "FA-002")
	i3 := strings.Index(out, "FA-003")
	assert.True(t, i1 < i2 && i2 < i3, "las facturas deben serializarse en orden de entrada")
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewXMLBuilder()
	part := entity.BookPartition{BookCode: "A1", Invoices: []entity.Invoice{builderIssued("FA-001")}}

	first, err := b.Build(builderHolder, 2026, "08", part)
	require.NoError(t, err)
	second, err := b.Build(builderHolder, 2026, "08", part)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_RectifiedIssued(t *testing.T) {
	inv := builderIssued("FA-R-001")
	inv.TypeCode = "R1"
	inv.Rectification = &entity.RectificationDetail{
		OriginalNumber:    "FA-2026-000",
		OriginalIssueDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Kind:              "S",
	}
	part := entity.BookPartition{BookCode: "A2", Invoices: []entity.Invoice{inv}}

	out, err := NewXMLBuilder().Build(builderHolder, 2026, "08", part)
	require.NoError(t, err)

	assert.Contains(t, out, "<siiLR:SuministroLRFacturasEmitidasRectificativas>")
	assert.Contains(t, out, "<sii:TipoFactura>R1</sii:TipoFactura>")
	assert.Contains(t, out, "<sii:TipoRectificativa>S</sii:TipoRectificativa>")
	assert.Contains(t, out, "<sii:NumSerieFacturaEmisor>FA-2026-000</sii:NumSerieFacturaEmisor>")
	assert.Contains(t, out, "01-07-2026")
}

func TestBuild_ReceivedInvoice(t *testing.T) {
	inv := &entity.ReceivedInvoice{
		InvoiceIdentity: entity.InvoiceIdentity{
			Number:    "PR-2026-010",
			IssueDate: time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC),
			TypeCode:  "F1",
		},
		Issuer:      entity.Party{TaxID: "A58818501", Name: "Proveedor SA", CountryCode: "ES"},
		Recipient:   builderHolder,
		Description: "Material de oficina",
		TotalAmount: decimal.RequireFromString("60.50"),
		VatLines: []entity.VatLine{{
			VatKey:      "01",
			TaxableBase: decimal.RequireFromString("50"),
			VatRate:     decimal.RequireFromString("21"),
			VatAmount:   decimal.RequireFromString("10.5"),
		}},
		DeductionPct: decimal.RequireFromString("100"),
	}
	part := entity.BookPartition{BookCode: "B1", Invoices: []entity.Invoice{inv}}

	out, err := NewXMLBuilder().Build(builderHolder, 2026, "08", part)
	require.NoError(t, err)

	assert.Contains(t, out, "<siiLR:SuministroLRFacturasRecibidas>")
	assert.Contains(t, out, "<siiLR:RegistroLRFacturasRecibidas>")
	// El emisor del registro es el proveedor, no el titular.
	assert.Contains(t, out, "<sii:NIF>A58818501</sii:NIF>")
	assert.Contains(t, out, "<sii:CuotaSoportada>10.50</sii:CuotaSoportada>")
	assert.Contains(t, out, "<sii:PorcentDeduccion>100.00</sii:PorcentDeduccion>")
	assert.NotContains(t, out, "CuotaRepercutida")
}

func TestBuild_SurchargeLine(t *testing.T) {
	inv := builderIssued("FA-RE-001")
	inv.TotalAmount = decimal.RequireFromString("126.20")
	inv.VatLines = []entity.VatLine{{
		VatKey:          "01",
		TaxableBase:     decimal.RequireFromString("100"),
		VatRate:         decimal.RequireFromString("21"),
		VatAmount:       decimal.RequireFromString("21"),
		SurchargeRate:   decimal.RequireFromString("5.2"),
		SurchargeAmount: decimal.RequireFromString("5.2"),
		HasSurcharge:    true,
	}}
	part := entity.BookPartition{BookCode: "A1", Invoices: []entity.Invoice{inv}}

	out, err := NewXMLBuilder().Build(builderHolder, 2026, "08", part)
	require.NoError(t, err)

	assert.Contains(t, out, "<sii:TipoRecargoEquivalencia>5.20</sii:TipoRecargoEquivalencia>")
	assert.Contains(t, out, "<sii:CuotaRecargoEquivalencia>5.20</sii:CuotaRecargoEquivalencia>")
}

func TestBuild_UnknownBookAndEmptyPartition(t *testing.T) {
	b := NewXMLBuilder()

	_, err := b.Build(builderHolder, 2026, "08", entity.BookPartition{BookCode: "Z9"})
	assert.Error(t, err)

	_, err = b.Build(builderHolder, 2026, "08", entity.BookPartition{BookCode: "A1"})
	assert.Error(t, err)
}
