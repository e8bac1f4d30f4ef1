package sii

import (
	"regexp"
	"strings"

	"github.com/facturia/sii-gateway/internal/domain"
	pkgsii "github.com/facturia/sii-gateway/pkg/sii"
)

// Fault bloque de error estructurado devuelto por el servicio en una
// respuesta fallida. Nunca lo construye el llamador: se deriva del cuerpo.
type Fault struct {
	FaultCode   string // faultcode SOAP (ej: "env:Client", "env:Server")
	FaultString string // faultstring legible
	AppCode     string // código de aplicación anidado (4 dígitos), si existe
	AppMessage  string // descripción del error de aplicación, si existe
}

// embeddedCodeRe código AEAT de 4 dígitos embebido en un faultstring.
var embeddedCodeRe = regexp.MustCompile(`\b([1235][0-9]{3})\b`)

// MapErrorCode convierte un código del catálogo AEAT en un error de dominio
// clasificado. La categoría se decide por el primer dígito:
//
//	1xxx → autenticación · 2xxx → validación (2005 duplicada → conflicto) ·
//	3xxx → regla de negocio · 5xxx → sistema/transitorio
//
// Dígito desconocido → servicio no disponible: ante la duda, clasificar hacia
// "reintentable" y no hacia un rechazo definitivo.
func MapErrorCode(code, message string) error {
	if message == "" {
		if desc, ok := pkgsii.ErrorDescriptions[code]; ok {
			message = desc
		} else {
			message = "error no catalogado"
		}
	}

	var category error
	switch {
	case code == pkgsii.CodeDuplicateInvoice:
		category = domain.ErrConflict
	case strings.HasPrefix(code, "1"):
		category = domain.ErrUnauthorized
	case strings.HasPrefix(code, "2"), strings.HasPrefix(code, "3"):
		category = domain.ErrBadRequest
	default:
		category = domain.ErrServiceUnavailable
	}
	return domain.NewSubmissionError(code, category, message)
}

// IsRetryable indica si el código representa indisponibilidad transitoria
// (solo los códigos de sistema 5001/5002/5004/5005).
func IsRetryable(code string) bool {
	return pkgsii.IsRetryableCode(code)
}

// MapFault convierte un Fault parseado en un error de dominio. Prioridad:
//  1. código de aplicación anidado;
//  2. código de 4 dígitos embebido en el faultstring;
//  3. prefijo del faultcode SOAP: Client → petición rechazada,
//     Server → servicio no disponible.
func MapFault(f Fault) error {
	if f.AppCode != "" {
		msg := f.AppMessage
		if msg == "" {
			msg = f.FaultString
		}
		return MapErrorCode(f.AppCode, msg)
	}
	if m := embeddedCodeRe.FindStringSubmatch(f.FaultString); m != nil {
		return MapErrorCode(m[1], f.FaultString)
	}

	msg := f.FaultString
	if msg == "" {
		msg = "fault sin descripción"
	}
	if strings.Contains(f.FaultCode, "Client") {
		return domain.NewSubmissionError("", domain.ErrBadRequest, msg)
	}
	if strings.Contains(f.FaultCode, "Server") {
		return domain.NewSubmissionError("", domain.ErrServiceUnavailable, msg)
	}
	return domain.NewSubmissionError("", domain.ErrServiceUnavailable, msg)
}

// IsRetryableFault indica si el fault completo admite reintento: solo cuando
// su código (anidado o embebido) es de sistema transitorio, o cuando el
// faultcode SOAP apunta a fallo de servidor sin más información.
func IsRetryableFault(f Fault) bool {
	if f.AppCode != "" {
		return IsRetryable(f.AppCode)
	}
	if m := embeddedCodeRe.FindStringSubmatch(f.FaultString); m != nil {
		return IsRetryable(m[1])
	}
	return strings.Contains(f.FaultCode, "Server")
}
