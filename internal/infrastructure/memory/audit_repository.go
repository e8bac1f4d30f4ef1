// Package memory implementa repositorios en memoria, usados cuando no hay
// base de datos configurada y en tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLog)(nil)

// AuditLog registro de auditoría append-only en memoria.
type AuditLog struct {
	mu      sync.Mutex
	records []*entity.AuditRecord
}

// NewAuditLog construye el registro vacío.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Append(_ context.Context, rec *entity.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	a.records = append(a.records, &cp)
	return nil
}

func (a *AuditLog) ListByHolder(_ context.Context, holderTaxID string, limit int) ([]*entity.AuditRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []*entity.AuditRecord
	// Más recientes primero, como el repositorio de PostgreSQL.
	for i := len(a.records) - 1; i >= 0 && len(out) < limit; i-- {
		if a.records[i].HolderTaxID == holderTaxID {
			cp := *a.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len número total de entradas. Pensado para tests.
func (a *AuditLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}
