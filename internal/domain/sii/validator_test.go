package sii_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/sii"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures: factura emitida estándar, base 100.00 al 21% (cuota 21.00,
// total 121.00), expedida hace 2 días. Es el caso de referencia del gateway:
// debe pasar todas las validaciones sin tocar la red.
// ──────────────────────────────────────────────────────────────────────────────

var testNow = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func validIssuedInvoice() *entity.IssuedInvoice {
	return &entity.IssuedInvoice{
		InvoiceIdentity: entity.InvoiceIdentity{
			Number:    "FA-2026-001",
			IssueDate: testNow.AddDate(0, 0, -2),
			TypeCode:  "F1",
		},
		Issuer:      entity.Party{TaxID: "B76365789", Name: "Ferretería Lorca SL"},
		Recipient:   entity.Party{TaxID: "27738604F", Name: "Ana Gómez"},
		Description: "Venta de material",
		TotalAmount: decimal.NewFromFloat(121.00),
		VatLines: []entity.VatLine{
			{
				VatKey:      "01",
				TaxableBase: decimal.NewFromFloat(100.00),
				VatRate:     decimal.NewFromFloat(21.00),
				VatAmount:   decimal.NewFromFloat(21.00),
			},
		},
	}
}

func TestValidate_FacturaCorrecta(t *testing.T) {
	v := sii.NewValidator()
	errs := v.Validate(validIssuedInvoice(), testNow)
	assert.Nil(t, errs, "una factura correcta dentro de plazo no debe producir errores")
}

func TestValidate_DentroDelPlazo2Dias(t *testing.T) {
	v := sii.NewValidator()
	inv := validIssuedInvoice()
	inv.IssueDate = testNow.AddDate(0, 0, -2)
	assert.Nil(t, v.Validate(inv, testNow), "2 días está dentro del plazo estándar de 4")
}

func TestValidate_FueraDelPlazo5Dias(t *testing.T) {
	v := sii.NewValidator()
	inv := validIssuedInvoice()
	inv.IssueDate = testNow.AddDate(0, 0, -5)

	errs := v.Validate(inv, testNow)
	require.Len(t, errs, 1, "5 días supera el plazo estándar de 4")
	assert.Equal(t, "issueDate", errs[0].Field)
	assert.Contains(t, errs[0].Message, "plazo")
}

func TestValidate_GranEmpresaPlazo8Dias(t *testing.T) {
	v := sii.NewLargeFilerValidator()
	inv := validIssuedInvoice()
	inv.IssueDate = testNow.AddDate(0, 0, -5)
	assert.Nil(t, v.Validate(inv, testNow), "5 días cabe en el plazo ampliado de 8")

	inv.IssueDate = testNow.AddDate(0, 0, -9)
	assert.NotNil(t, v.Validate(inv, testNow), "9 días supera incluso el plazo ampliado")
}

func TestValidate_TotalNoCuadra(t *testing.T) {
	v := sii.NewValidator()
	inv := validIssuedInvoice()
	inv.TotalAmount = decimal.NewFromFloat(150.00) // líneas suman 121.00

	errs := v.Validate(inv, testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "totalAmount", errs[0].Field)
	// El mensaje debe nombrar ambos valores para que el operador pueda cuadrar.
	assert.Contains(t, errs[0].Message, "150.00")
	assert.Contains(t, errs[0].Message, "121.00")
}

func TestValidate_ToleranciaDeUnCentimo(t *testing.T) {
	v := sii.NewValidator()
	inv := validIssuedInvoice()

	inv.TotalAmount = decimal.NewFromFloat(121.01)
	assert.Nil(t, v.Validate(inv, testNow), "desviación de 0.01 está dentro de la tolerancia")

	inv.TotalAmount = decimal.NewFromFloat(121.02)
	assert.NotNil(t, v.Validate(inv, testNow), "desviación de 0.02 excede la tolerancia")
}

func TestValidate_AcumulaTodosLosErrores(t *testing.T) {
	v := sii.NewValidator()
	inv := validIssuedInvoice()
	inv.Number = strings.Repeat("X", 61)
	inv.Issuer.TaxID = "NO-ES-NIF"
	inv.IssueDate = time.Time{}
	inv.VatLines = nil
	inv.TotalAmount = decimal.NewFromFloat(-5)

	errs := v.Validate(inv, testNow)
	// Sin cortocircuito: cada incumplimiento aparece en el informe.
	require.GreaterOrEqual(t, len(errs), 5, "deben acumularse todas las violaciones")

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"holder.taxId", "number", "issueDate", "vatLines", "totalAmount"} {
		assert.True(t, fields[want], "falta error para el campo %s", want)
	}
}

func TestValidate_LineasInvalidas(t *testing.T) {
	v := sii.NewValidator()
	inv := validIssuedInvoice()
	inv.VatLines = []entity.VatLine{
		{TaxableBase: decimal.NewFromFloat(-1), VatRate: decimal.NewFromFloat(21), VatAmount: decimal.Zero},
		{TaxableBase: decimal.NewFromFloat(10), VatRate: decimal.NewFromFloat(101), VatAmount: decimal.NewFromFloat(2.1)},
	}
	inv.TotalAmount = decimal.NewFromFloat(11.1)

	errs := v.Validate(inv, testNow)
	require.NotEmpty(t, errs)

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["vatLines[0].taxableBase"], "base negativa debe señalarse por línea")
	assert.True(t, fields["vatLines[1].vatRate"], "tipo > 100 debe señalarse por línea")
}

func TestValidate_IdentificadoresAdmitidos(t *testing.T) {
	// NIF persona física, NIE y CIF de sociedad: los tres patrones admitidos.
	cases := []struct {
		name  string
		taxID string
		valid bool
	}{
		{"NIF", "27738604F", true},
		{"NIE", "X1234567L", true},
		{"CIF", "B76365789", true},
		{"vacío", "", false},
		{"arbitrario", "12345", false},
	}

	v := sii.NewValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := validIssuedInvoice()
			inv.Recipient.TaxID = tc.taxID
			errs := v.Validate(inv, testNow)
			if tc.valid {
				assert.Nil(t, errs, "identificador %q debe admitirse", tc.taxID)
			} else {
				assert.NotNil(t, errs, "identificador %q debe rechazarse", tc.taxID)
			}
		})
	}
}

func TestValidateBatch_PeriodoYTitular(t *testing.T) {
	v := sii.NewValidator()
	batch := &entity.SubmissionBatch{
		Holder:     entity.Party{TaxID: "B76365789", Name: "Ferretería Lorca SL"},
		FiscalYear: 2026,
		Period:     "13", // inválido
		Direction:  entity.DirectionIssued,
		Invoices:   []entity.Invoice{validIssuedInvoice()},
	}

	errs := v.ValidateBatch(batch, testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "period", errs[0].Field)
}

func TestValidateBatch_DosFacturasUnaMala(t *testing.T) {
	v := sii.NewValidator()
	good := validIssuedInvoice()
	bad := validIssuedInvoice()
	bad.Number = "FA-2026-002"
	bad.TotalAmount = decimal.NewFromFloat(999.99) // no cuadra con las líneas

	batch := &entity.SubmissionBatch{
		Holder:     entity.Party{TaxID: "B76365789", Name: "Ferretería Lorca SL"},
		FiscalYear: 2026,
		Period:     "08",
		Direction:  entity.DirectionIssued,
		Invoices:   []entity.Invoice{good, bad},
	}

	errs := v.ValidateBatch(batch, testNow)
	require.Len(t, errs, 1, "solo la segunda factura incumple")
	assert.Equal(t, "FA-2026-002", errs[0].InvoiceNumber, "el error debe señalar la factura por su número")
}
