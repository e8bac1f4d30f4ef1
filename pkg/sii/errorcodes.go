package sii

// =============================================================================
// Catálogo de códigos de error devueltos por el servicio SII
// 1xxx certificado/autenticación · 2xxx validación · 3xxx regla de negocio ·
// 5xxx sistema/transitorio
// =============================================================================

const (
	// Certificado / autenticación
	CodeCertExpired      = "1001" // Certificado expirado
	CodeCertRevoked      = "1002" // Certificado revocado
	CodeCertUntrusted    = "1003" // Cadena de certificación no reconocida
	CodeHolderMismatch   = "1004" // El certificado no corresponde al titular
	CodeSignatureInvalid = "1005" // Firma de la petición inválida

	// Validación
	CodeSchemaInvalid    = "2001" // XML no conforme al esquema
	CodeNIFInvalid       = "2002" // NIF con formato inválido
	CodeNIFUnknown       = "2003" // NIF no identificado en el censo
	CodePeriodInvalid    = "2004" // Periodo de liquidación inválido
	CodeDuplicateInvoice = "2005" // Factura duplicada (mismo titular, número y fecha)
	CodeTypeInvalid      = "2006" // Tipo de factura no admitido
	CodeDateInvalid      = "2007" // Fecha de expedición inválida
	CodeAmountInvalid    = "2008" // Importe con formato o signo inválido
	CodeLineInvalid      = "2009" // Detalle de desglose de IVA inválido
	CodeBookMismatch     = "2010" // El registro no corresponde al libro indicado
	CodeHolderInvalid    = "2011" // Datos del titular inválidos
	CodeCountMismatch    = "2012" // Número de registros no coincide con el sobre

	// Regla de negocio
	CodeOutsideWindow      = "3001" // Fuera del plazo legal de remisión
	CodeRectifiedNotFound  = "3002" // Rectificativa sin factura original registrada
	CodeAlreadyCancelled   = "3003" // La factura referenciada está anulada
	CodePeriodClosed       = "3004" // Periodo de liquidación ya cerrado
	CodeDeductionExceeded  = "3005" // Porcentaje de deducción fuera de rango
	CodeInconsistentTotals = "3006" // Cuotas y bases no cuadran con el total

	// Sistema / transitorio
	CodeServiceUnavailable = "5001" // Servicio no disponible
	CodeServiceTimeout     = "5002" // Timeout interno del servicio
	CodeInternalError      = "5003" // Error interno no transitorio
	CodeRateLimited        = "5004" // Límite de peticiones superado
	CodeServerBusy         = "5005" // Servidor ocupado, reintentar
)

// ErrorDescriptions descripción humana de cada código del catálogo.
var ErrorDescriptions = map[string]string{
	CodeCertExpired:      "certificado expirado",
	CodeCertRevoked:      "certificado revocado",
	CodeCertUntrusted:    "cadena de certificación no reconocida",
	CodeHolderMismatch:   "el certificado no corresponde al titular",
	CodeSignatureInvalid: "firma de la petición inválida",

	CodeSchemaInvalid:    "XML no conforme al esquema",
	CodeNIFInvalid:       "NIF con formato inválido",
	CodeNIFUnknown:       "NIF no identificado en el censo",
	CodePeriodInvalid:    "periodo de liquidación inválido",
	CodeDuplicateInvoice: "factura duplicada",
	CodeTypeInvalid:      "tipo de factura no admitido",
	CodeDateInvalid:      "fecha de expedición inválida",
	CodeAmountInvalid:    "importe inválido",
	CodeLineInvalid:      "desglose de IVA inválido",
	CodeBookMismatch:     "registro no corresponde al libro",
	CodeHolderInvalid:    "datos del titular inválidos",
	CodeCountMismatch:    "número de registros inconsistente",

	CodeOutsideWindow:      "fuera del plazo legal de remisión",
	CodeRectifiedNotFound:  "rectificativa sin original",
	CodeAlreadyCancelled:   "factura referenciada anulada",
	CodePeriodClosed:       "periodo cerrado",
	CodeDeductionExceeded:  "porcentaje de deducción fuera de rango",
	CodeInconsistentTotals: "cuotas y bases no cuadran",

	CodeServiceUnavailable: "servicio no disponible",
	CodeServiceTimeout:     "timeout del servicio",
	CodeInternalError:      "error interno",
	CodeRateLimited:        "límite de peticiones superado",
	CodeServerBusy:         "servidor ocupado",
}

// retryableCodes códigos de sistema que representan indisponibilidad transitoria.
// 5003 (error interno) queda fuera a propósito: reintentar no lo arregla.
var retryableCodes = map[string]bool{
	CodeServiceUnavailable: true,
	CodeServiceTimeout:     true,
	CodeRateLimited:        true,
	CodeServerBusy:         true,
}

// IsRetryableCode indica si el código representa una condición transitoria
// que admite reintento con backoff.
func IsRetryableCode(code string) bool {
	return retryableCodes[code]
}
