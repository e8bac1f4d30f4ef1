package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturia/sii-gateway/internal/domain"
	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo registro de auditoría append-only sobre PostgreSQL.
// Sin UPDATE ni DELETE: cada envío deja exactamente una fila nueva.
type AuditLogRepo struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository construye el repositorio.
func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepo {
	return &AuditLogRepo{pool: pool}
}

func (r *AuditLogRepo) Append(ctx context.Context, rec *entity.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	const q = `
		INSERT INTO submission_audit
			(id, holder_tax_id, submission_id, status, invoice_count, accepted_count, rejected_count, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, q,
		rec.ID, rec.HolderTaxID, rec.SubmissionID, rec.Status,
		rec.InvoiceCount, rec.AcceptedCount, rec.RejectedCount, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: entrada de auditoría %s ya registrada", domain.ErrConflict, rec.ID)
		}
		return fmt.Errorf("insert submission_audit: %w", err)
	}
	return nil
}

func (r *AuditLogRepo) ListByHolder(ctx context.Context, holderTaxID string, limit int) ([]*entity.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, holder_tax_id, submission_id, status, invoice_count, accepted_count, rejected_count, created_at
		FROM submission_audit
		WHERE holder_tax_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, holderTaxID, limit)
	if err != nil {
		return nil, fmt.Errorf("list submission_audit: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditRecord
	for rows.Next() {
		rec := &entity.AuditRecord{}
		if err := rows.Scan(&rec.ID, &rec.HolderTaxID, &rec.SubmissionID, &rec.Status,
			&rec.InvoiceCount, &rec.AcceptedCount, &rec.RejectedCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission_audit: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
