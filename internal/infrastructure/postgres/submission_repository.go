package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/repository"
)

var _ repository.SubmissionArchiveRepository = (*SubmissionArchiveRepo)(nil)

// SubmissionArchiveRepo archivo durable del estado de envíos. A diferencia
// de la caché, sobrevive a la expiración del TTL y a reinicios del proceso.
type SubmissionArchiveRepo struct {
	pool *pgxpool.Pool
}

// NewSubmissionArchiveRepository construye el repositorio.
func NewSubmissionArchiveRepository(pool *pgxpool.Pool) *SubmissionArchiveRepo {
	return &SubmissionArchiveRepo{pool: pool}
}

// Save inserta o actualiza el registro (upsert por submission_id: la
// transición de estado en un reintento de envío sobreescribe la fila).
func (r *SubmissionArchiveRepo) Save(ctx context.Context, sub *entity.CachedSubmission) error {
	const q = `
		INSERT INTO submissions
			(submission_id, status, submitted_at, processed_at, verification_ref,
			 invoice_count, accepted_count, rejected_count, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (submission_id) DO UPDATE SET
			status = EXCLUDED.status,
			processed_at = EXCLUDED.processed_at,
			verification_ref = EXCLUDED.verification_ref,
			accepted_count = EXCLUDED.accepted_count,
			rejected_count = EXCLUDED.rejected_count`
	_, err := r.pool.Exec(ctx, q,
		sub.SubmissionID, sub.Status, sub.SubmittedAt, sub.ProcessedAt, sub.VerificationRef,
		sub.InvoiceCount, sub.AcceptedCount, sub.RejectedCount, sub.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert submissions: %w", err)
	}
	return nil
}

// GetByID devuelve nil, nil si el envío no existe.
func (r *SubmissionArchiveRepo) GetByID(ctx context.Context, submissionID string) (*entity.CachedSubmission, error) {
	const q = `
		SELECT submission_id, status, submitted_at, processed_at, verification_ref,
		       invoice_count, accepted_count, rejected_count, expires_at
		FROM submissions WHERE submission_id = $1`
	sub := &entity.CachedSubmission{}
	err := r.pool.QueryRow(ctx, q, submissionID).Scan(
		&sub.SubmissionID, &sub.Status, &sub.SubmittedAt, &sub.ProcessedAt, &sub.VerificationRef,
		&sub.InvoiceCount, &sub.AcceptedCount, &sub.RejectedCount, &sub.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission by id: %w", err)
	}
	return sub, nil
}
