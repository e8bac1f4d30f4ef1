package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrBadRequest         = errors.New("petición rechazada")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrServiceUnavailable = errors.New("servicio no disponible")
	ErrEmptyPartition     = errors.New("el libro solicitado no contiene facturas")
	ErrBatchConsumed      = errors.New("el lote ya fue consumido")
)

// FieldError un incumplimiento concreto a nivel de campo.
type FieldError struct {
	InvoiceNumber string // vacío si el error es del lote o del titular
	Field         string
	Message       string
}

func (e FieldError) Error() string {
	if e.InvoiceNumber != "" {
		return fmt.Sprintf("factura %s: %s: %s", e.InvoiceNumber, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors lista acumulada de errores de validación. El validador
// nunca corta en el primer fallo: el llamador recibe el informe completo.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validación fallida"
	}
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validación fallida (%d): %s", len(v), strings.Join(msgs, "; "))
}

// Is permite errors.Is(err, domain.ErrInvalidInput) sobre la lista.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// SubmissionError error clasificado construido a partir de una respuesta del
// SII (código del catálogo + categoría de dominio). Unwrap devuelve la
// categoría para que errors.Is funcione con los sentinelas de arriba.
type SubmissionError struct {
	Code     string // código AEAT de 4 dígitos; puede estar vacío
	Category error  // uno de los sentinelas de dominio
	Message  string
}

func (e *SubmissionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sii [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("sii: %s", e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Category }

// NewSubmissionError construye un error clasificado.
func NewSubmissionError(code string, category error, message string) *SubmissionError {
	return &SubmissionError{Code: code, Category: category, Message: message}
}
