// Package sii implementa la infraestructura de envío al SII de la AEAT:
// construcción del XML de suministro, cliente SOAP con TLS mutuo y
// reintentos, y extracción de faults de las respuestas de error.
package sii

import (
	"fmt"

	pkgsii "github.com/facturia/sii-gateway/pkg/sii"
)

// ── Entornos ──────────────────────────────────────────────────────────────────

const (
	// EnvSandbox entorno de pruebas de la AEAT.
	EnvSandbox = "sandbox"
	// EnvProduction entorno de producción. Verificación de cadena obligatoria.
	EnvProduction = "production"

	baseURLSandbox    = "https://prewww1.aeat.es/wlpl/SSII-FACT/ws"
	baseURLProduction = "https://www1.agenciatributaria.gob.es/wlpl/SSII-FACT/ws"
)

// Rutas por familia de libro. Nunca se mezclan entornos en una misma llamada.
const (
	pathIssued   = "/fe/SiiFactFEV1SOAP"  // facturas emitidas
	pathReceived = "/fr/SiiFactFRV1SOAP"  // facturas recibidas
	pathPayments = "/pg/SiiFactPAGV1SOAP" // pagos y cobros
	pathQuery    = "/cm/SiiFactCONV1SOAP" // consultas de registros suministrados
)

// Endpoints resuelve la URL destino de cada libro para un entorno fijo.
type Endpoints struct {
	baseURL string
}

// NewEndpoints construye el resolutor para el entorno dado. baseURLOverride
// (si no está vacío) sustituye la URL base; se usa en tests y proxies.
func NewEndpoints(env, baseURLOverride string) (Endpoints, error) {
	if baseURLOverride != "" {
		return Endpoints{baseURL: baseURLOverride}, nil
	}
	switch env {
	case EnvSandbox:
		return Endpoints{baseURL: baseURLSandbox}, nil
	case EnvProduction:
		return Endpoints{baseURL: baseURLProduction}, nil
	default:
		return Endpoints{}, fmt.Errorf("sii: entorno desconocido %q (usar %q o %q)", env, EnvSandbox, EnvProduction)
	}
}

// ForBook devuelve la URL del servicio que corresponde al libro.
func (e Endpoints) ForBook(bookCode string) (string, error) {
	if !pkgsii.ValidBookCodes[bookCode] {
		return "", fmt.Errorf("sii: libro desconocido %q", bookCode)
	}
	if pkgsii.IsIssuedBook(bookCode) {
		return e.baseURL + pathIssued, nil
	}
	return e.baseURL + pathReceived, nil
}

// PaymentsURL y QueryURL exponen los otros servicios del SII.
func (e Endpoints) PaymentsURL() string { return e.baseURL + pathPayments }
func (e Endpoints) QueryURL() string    { return e.baseURL + pathQuery }
