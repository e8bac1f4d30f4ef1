package entity

import "time"

// Estados del registro de envío al SII.
const (
	SubmissionStatusPending            = "PENDING"
	SubmissionStatusProcessing         = "PROCESSING"
	SubmissionStatusAccepted           = "ACCEPTED"
	SubmissionStatusAcceptedWithErrors = "ACCEPTED_WITH_ERRORS"
	SubmissionStatusRejected           = "REJECTED"
)

// InvoiceOutcome resultado individual de una factura dentro de un envío.
type InvoiceOutcome struct {
	InvoiceNumber string
	BookCode      string
	Accepted      bool
	ErrorCode     string // código AEAT si fue rechazada
	ErrorMessage  string
}

// SubmissionResult resultado (posiblemente parcial) de un envío de lote.
// Un lote con libros aceptados y libros rechazados es un resultado de primera
// clase (ACCEPTED_WITH_ERRORS), no un error.
type SubmissionResult struct {
	Success         bool
	Timestamp       time.Time
	SubmissionID    string
	AcceptedCount   int
	RejectedCount   int
	Outcomes        []InvoiceOutcome
	VerificationRef string // CSV devuelto por la AEAT (opaco)
}

// Status estado agregado del resultado.
func (r SubmissionResult) Status() string {
	switch {
	case r.Success:
		return SubmissionStatusAccepted
	case r.AcceptedCount > 0:
		return SubmissionStatusAcceptedWithErrors
	default:
		return SubmissionStatusRejected
	}
}

// CachedSubmission registro idempotente del estado de un envío, con TTL.
// Se crea con la primera respuesta terminal; después es de solo lectura salvo
// la transición de estado en un reintento de envío.
type CachedSubmission struct {
	SubmissionID    string
	Status          string // PENDING, PROCESSING, ACCEPTED, ACCEPTED_WITH_ERRORS, REJECTED
	SubmittedAt     time.Time
	ProcessedAt     time.Time
	VerificationRef string
	InvoiceCount    int
	AcceptedCount   int
	RejectedCount   int
	ExpiresAt       time.Time
}

// AuditRecord entrada del registro de auditoría (append-only).
type AuditRecord struct {
	ID            string
	HolderTaxID   string
	SubmissionID  string
	Status        string
	InvoiceCount  int
	AcceptedCount int
	RejectedCount int
	CreatedAt     time.Time
}
