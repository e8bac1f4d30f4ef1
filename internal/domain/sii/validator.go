// Package sii contiene la lógica de dominio del suministro de registros de
// facturación al SII: validación previa al envío, enrutamiento por libro y
// taxonomía de errores del servicio. Todo el paquete es puro y sin estado.
package sii

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturia/sii-gateway/internal/domain"
	"github.com/facturia/sii-gateway/internal/domain/entity"
	pkgsii "github.com/facturia/sii-gateway/pkg/sii"
)

// totalTolerance tolerancia absoluta al cuadrar total contra Σ(base + cuota).
// Plana en 0.01 unidades de moneda sea cual sea la divisa (comportamiento
// heredado; ver nota en DESIGN.md para despliegues no-EUR).
var totalTolerance = decimal.NewFromFloat(0.01)

const maxInvoiceNumberLen = 60

// Validator comprueba los invariantes estructurales y de negocio de una
// factura antes de cualquier llamada de red. Acumula todas las violaciones:
// el llamador recibe el informe completo en una sola pasada.
type Validator struct {
	windowDays int // plazo legal de remisión en días
}

// NewValidator construye el validador con el plazo estándar de 4 días.
func NewValidator() *Validator {
	return &Validator{windowDays: pkgsii.SubmissionWindowDays}
}

// NewLargeFilerValidator construye el validador con el plazo ampliado de
// grandes empresas (8 días).
func NewLargeFilerValidator() *Validator {
	return &Validator{windowDays: pkgsii.SubmissionWindowDaysLargeFiler}
}

// WindowDays plazo de remisión configurado.
func (v *Validator) WindowDays() int { return v.windowDays }

// Validate comprueba una factura (emitida o recibida) contra la hora actual.
// Devuelve nil si es válida o la lista completa de errores de campo.
func (v *Validator) Validate(inv entity.Invoice, now time.Time) domain.ValidationErrors {
	var errs domain.ValidationErrors

	id := inv.Identity()
	num := id.Number

	add := func(field, msg string) {
		errs = append(errs, domain.FieldError{InvoiceNumber: num, Field: field, Message: msg})
	}

	// Identificadores fiscales de las partes.
	if !pkgsii.IsValidTaxID(inv.Holder().TaxID) {
		add("holder.taxId", fmt.Sprintf("identificador fiscal %q no coincide con NIF, NIE ni CIF", inv.Holder().TaxID))
	}
	if !pkgsii.IsValidTaxID(inv.Counterparty().TaxID) {
		add("counterparty.taxId", fmt.Sprintf("identificador fiscal %q no coincide con NIF, NIE ni CIF", inv.Counterparty().TaxID))
	}

	// Identidad de la factura.
	if num == "" {
		add("number", "número de factura requerido")
	} else if len(num) > maxInvoiceNumberLen {
		add("number", fmt.Sprintf("número de factura supera %d caracteres (%d)", maxInvoiceNumberLen, len(num)))
	}

	if id.IssueDate.IsZero() {
		add("issueDate", "fecha de expedición requerida")
	} else if days := daysSince(id.IssueDate, now); days > v.windowDays {
		// Plazo legal de remisión: se rechaza aquí, antes de tocar la red.
		add("issueDate", fmt.Sprintf("fuera del plazo de remisión: expedida hace %d días, plazo de %d", days, v.windowDays))
	}

	// Importes.
	if inv.Total().IsNegative() {
		add("totalAmount", fmt.Sprintf("importe total negativo: %s", inv.Total().StringFixed(2)))
	}

	lines := inv.Lines()
	if len(lines) == 0 {
		add("vatLines", "la factura debe tener al menos una línea de IVA")
	}
	for i, l := range lines {
		field := fmt.Sprintf("vatLines[%d]", i)
		if l.TaxableBase.IsNegative() {
			add(field+".taxableBase", fmt.Sprintf("base imponible negativa: %s", l.TaxableBase.StringFixed(2)))
		}
		if l.VatRate.IsNegative() {
			add(field+".vatRate", fmt.Sprintf("tipo impositivo negativo: %s", l.VatRate.StringFixed(2)))
		} else if l.VatRate.GreaterThan(decimal.NewFromInt(100)) {
			add(field+".vatRate", fmt.Sprintf("tipo impositivo mayor que 100: %s", l.VatRate.StringFixed(2)))
		}
		if l.VatAmount.IsNegative() {
			add(field+".vatAmount", fmt.Sprintf("cuota negativa: %s", l.VatAmount.StringFixed(2)))
		}
	}

	// Invariante de consistencia: total ≈ Σ(base + cuota) con tolerancia 0.01.
	if len(lines) > 0 {
		var sum decimal.Decimal
		for _, l := range lines {
			sum = sum.Add(l.TaxableBase).Add(l.VatAmount)
		}
		if inv.Total().Sub(sum).Abs().GreaterThan(totalTolerance) {
			add("totalAmount", fmt.Sprintf("total %s no cuadra con la suma de líneas %s (tolerancia 0.01)",
				inv.Total().StringFixed(2), sum.StringFixed(2)))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateBatch valida todas las facturas del lote y los datos del sobre.
// Devuelve la lista concatenada de errores de todas las facturas.
func (v *Validator) ValidateBatch(batch *entity.SubmissionBatch, now time.Time) domain.ValidationErrors {
	var errs domain.ValidationErrors

	if !pkgsii.IsValidTaxID(batch.Holder.TaxID) {
		errs = append(errs, domain.FieldError{
			Field:   "holder.taxId",
			Message: fmt.Sprintf("identificador fiscal %q no coincide con NIF, NIE ni CIF", batch.Holder.TaxID),
		})
	}
	if !pkgsii.ValidPeriodCodes[batch.Period] {
		errs = append(errs, domain.FieldError{
			Field:   "period",
			Message: fmt.Sprintf("periodo de liquidación %q no admitido", batch.Period),
		})
	}
	if len(batch.Invoices) == 0 {
		errs = append(errs, domain.FieldError{Field: "invoices", Message: "el lote no contiene facturas"})
	}

	for _, inv := range batch.Invoices {
		errs = append(errs, v.Validate(inv, now)...)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// daysSince días completos transcurridos entre la expedición y now.
// Tolerancia de día entero, sin ajuste por zona horaria (comportamiento dado).
func daysSince(issued, now time.Time) int {
	return int(now.Sub(issued).Hours() / 24)
}
