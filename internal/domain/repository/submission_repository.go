package repository

import (
	"context"

	"github.com/facturia/sii-gateway/internal/domain/entity"
)

// SubmissionStatusCache caché idempotente de estado de envíos, con TTL.
// Escritores concurrentes para ids distintos nunca entran en conflicto; un
// mismo id solo lo escribe el orquestador que lo creó.
type SubmissionStatusCache interface {
	// Put guarda (o sobreescribe) el registro con el TTL configurado.
	Put(sub entity.CachedSubmission)
	// Get devuelve el registro si existe y no ha expirado.
	Get(submissionID string) (entity.CachedSubmission, bool)
}

// AuditLogRepository registro de auditoría append-only. La escritura es
// best-effort para el orquestador: un fallo aquí se loguea y no escala.
type AuditLogRepository interface {
	Append(ctx context.Context, rec *entity.AuditRecord) error
	ListByHolder(ctx context.Context, holderTaxID string, limit int) ([]*entity.AuditRecord, error)
}

// SubmissionArchiveRepository archivo durable del estado de envíos, para
// consultas posteriores a la expiración de la caché. Opcional: puede no
// haber base de datos configurada.
type SubmissionArchiveRepository interface {
	Save(ctx context.Context, sub *entity.CachedSubmission) error
	GetByID(ctx context.Context, submissionID string) (*entity.CachedSubmission, error)
}
