package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceIdentity identifica una factura dentro del libro registro.
type InvoiceIdentity struct {
	Number    string    // Número y serie; máximo 60 caracteres
	IssueDate time.Time // Fecha de expedición
	TypeCode  string    // F1–F6 ordinarias, R1–R5 rectificativas
}

// VatLine una línea de desglose de IVA. Inmutable; pertenece a exactamente una factura.
type VatLine struct {
	VatKey          string          // Clave de régimen (L3)
	TaxableBase     decimal.Decimal // Base imponible, >= 0
	VatRate         decimal.Decimal // Tipo impositivo, 0–100
	VatAmount       decimal.Decimal // Cuota repercutida/soportada, >= 0
	SurchargeRate   decimal.Decimal // Recargo de equivalencia (opcional)
	SurchargeAmount decimal.Decimal // Cuota del recargo (opcional)
	HasSurcharge    bool
}

// RectificationDetail datos de la rectificativa: referencia al original y tipo.
type RectificationDetail struct {
	OriginalNumber    string    // Número de la factura rectificada
	OriginalIssueDate time.Time // Fecha de la factura rectificada
	Kind              string    // "S" sustitutiva, "I" por diferencias
}

// Invoice es el conjunto cerrado de variantes de factura que acepta el gateway.
// Solo IssuedInvoice y ReceivedInvoice lo implementan; el router de libros
// decide por identidad de variante, nunca por presencia de campos sueltos.
type Invoice interface {
	Identity() InvoiceIdentity
	Holder() Party
	Counterparty() Party
	Lines() []VatLine
	Total() decimal.Decimal
	sealed()
}

// IssuedInvoice factura emitida por el titular.
type IssuedInvoice struct {
	InvoiceIdentity
	Issuer        Party  // Titular que expide
	Recipient     Party  // Destinatario
	OperationType string // Clave de operación (L3.1)
	Description   string // Descripción de la operación (texto libre)
	TotalAmount   decimal.Decimal
	VatLines      []VatLine

	Rectification    *RectificationDetail // nil si no es rectificativa
	IsIntraCommunity bool
}

func (i *IssuedInvoice) Identity() InvoiceIdentity { return i.InvoiceIdentity }
func (i *IssuedInvoice) Holder() Party             { return i.Issuer }
func (i *IssuedInvoice) Counterparty() Party       { return i.Recipient }
func (i *IssuedInvoice) Lines() []VatLine          { return i.VatLines }
func (i *IssuedInvoice) Total() decimal.Decimal    { return i.TotalAmount }
func (i *IssuedInvoice) sealed()                   {}

// ReceivedInvoice factura recibida de un proveedor.
type ReceivedInvoice struct {
	InvoiceIdentity
	Issuer        Party  // Proveedor que expidió
	Recipient     Party  // Titular que recibe
	OperationType string // Clave de operación (L3.2)
	Description   string
	TotalAmount   decimal.Decimal
	VatLines      []VatLine

	Rectification    *RectificationDetail // nil si no lleva corrección
	IsIntraCommunity bool                 // adquisición intracomunitaria
	IsImport         bool                 // importación con DUA
	DeductionPct     decimal.Decimal      // porcentaje de cuota deducible (0–100)
}

func (r *ReceivedInvoice) Identity() InvoiceIdentity { return r.InvoiceIdentity }
func (r *ReceivedInvoice) Holder() Party             { return r.Recipient }
func (r *ReceivedInvoice) Counterparty() Party       { return r.Issuer }
func (r *ReceivedInvoice) Lines() []VatLine          { return r.VatLines }
func (r *ReceivedInvoice) Total() decimal.Decimal    { return r.TotalAmount }
func (r *ReceivedInvoice) sealed()                   {}
