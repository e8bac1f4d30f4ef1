// Package sii contiene catálogos y validaciones alineados al Suministro
// Inmediato de Información del IVA (SII) de la AEAT, versión 1.1.
package sii

// =============================================================================
// Libros registro del SII
// Cada libro determina el sobre XML y las reglas de enrutamiento del lote.
// =============================================================================

const (
	// Libros de facturas emitidas
	BookIssuedStandard  = "A1" // Facturas emitidas (régimen general)
	BookIssuedRectified = "A2" // Facturas emitidas rectificativas

	// Libro de determinadas operaciones intracomunitarias (emitidas).
	// El router no lo asigna hoy: las intracomunitarias emitidas van por A1.
	BookIssuedIntraCommunity = "A3"

	// Libros de facturas recibidas
	BookReceivedStandard       = "B1" // Facturas recibidas (régimen general)
	BookReceivedCorrected      = "B2" // Facturas recibidas con corrección
	BookReceivedIntraCommunity = "B3" // Adquisiciones intracomunitarias
	BookReceivedImport         = "B4" // Importaciones (DUA)
)

// ValidBookCodes códigos de libro aceptados por el gateway.
var ValidBookCodes = map[string]bool{
	BookIssuedStandard: true, BookIssuedRectified: true, BookIssuedIntraCommunity: true,
	BookReceivedStandard: true, BookReceivedCorrected: true,
	BookReceivedIntraCommunity: true, BookReceivedImport: true,
}

// IsIssuedBook indica si el código de libro pertenece a la familia de emitidas.
func IsIssuedBook(code string) bool {
	return code == BookIssuedStandard || code == BookIssuedRectified || code == BookIssuedIntraCommunity
}

// =============================================================================
// Tipos de factura (L2 del esquema SII)
// F1–F6 facturas ordinarias; R1–R5 rectificativas.
// =============================================================================

const (
	InvoiceTypeStandard       = "F1" // Factura completa
	InvoiceTypeSimplified     = "F2" // Factura simplificada (ticket)
	InvoiceTypeReplacement    = "F3" // Factura emitida en sustitución de simplificadas
	InvoiceTypeSummary        = "F4" // Asiento resumen de facturas
	InvoiceTypeImportDUA      = "F5" // Importaciones (DUA)
	InvoiceTypeAccountingNote = "F6" // Justificantes contables

	RectifiedTypeError      = "R1" // Rectificativa por error fundado en derecho (art. 80.1/80.2)
	RectifiedTypeBankruptcy = "R2" // Rectificativa por concurso (art. 80.3)
	RectifiedTypeBadDebt    = "R3" // Rectificativa por crédito incobrable (art. 80.4)
	RectifiedTypeOther      = "R4" // Rectificativa por el resto de causas
	RectifiedTypeSimplified = "R5" // Rectificativa de facturas simplificadas
)

// ValidInvoiceTypeCodes tipos de factura admitidos.
var ValidInvoiceTypeCodes = map[string]bool{
	InvoiceTypeStandard: true, InvoiceTypeSimplified: true, InvoiceTypeReplacement: true,
	InvoiceTypeSummary: true, InvoiceTypeImportDUA: true, InvoiceTypeAccountingNote: true,
	RectifiedTypeError: true, RectifiedTypeBankruptcy: true, RectifiedTypeBadDebt: true,
	RectifiedTypeOther: true, RectifiedTypeSimplified: true,
}

// IsRectificationType indica si el tipo de factura corresponde a una rectificativa (R1–R5).
func IsRectificationType(code string) bool {
	return len(code) == 2 && code[0] == 'R'
}

// =============================================================================
// Periodos de liquidación (L1)
// "01".."12" para mensual; "0A" para el registro anual.
// =============================================================================

// ValidPeriodCodes periodos de liquidación aceptados.
var ValidPeriodCodes = map[string]bool{
	"01": true, "02": true, "03": true, "04": true, "05": true, "06": true,
	"07": true, "08": true, "09": true, "10": true, "11": true, "12": true,
	"0A": true,
}

// =============================================================================
// Claves de régimen especial (L3.1 emitidas / L3.2 recibidas) - uso frecuente
// =============================================================================

const (
	RegimeKeyGeneral         = "01" // Régimen general
	RegimeKeyExport          = "02" // Exportación
	RegimeKeyTravelAgencies  = "05" // Régimen especial agencias de viajes
	RegimeKeySurchargeScheme = "51" // Recargo de equivalencia (recibidas)
	RegimeKeyImportDUA       = "13" // Importaciones (recibidas)
)

// =============================================================================
// Plazo legal de remisión
// =============================================================================

const (
	// SubmissionWindowDays plazo estándar de remisión desde la expedición.
	SubmissionWindowDays = 4
	// SubmissionWindowDaysLargeFiler plazo para grandes empresas (régimen ampliado).
	SubmissionWindowDaysLargeFiler = 8
)
