// Package cache implementa la caché de estado de envíos sobre go-cache.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/facturia/sii-gateway/internal/domain/entity"
	"github.com/facturia/sii-gateway/internal/domain/repository"
)

var _ repository.SubmissionStatusCache = (*SubmissionCache)(nil)

// SubmissionCache caché en memoria con TTL fijo por entrada. El TTL se mide
// en horas, no en minutos: tiene que sobrevivir al polling de estado
// posterior al envío.
type SubmissionCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New crea la caché. La limpieza de expirados corre cada ttl/4.
func New(ttl time.Duration) *SubmissionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SubmissionCache{
		store: gocache.New(ttl, ttl/4),
		ttl:   ttl,
	}
}

// Put guarda el registro bajo su id, fijando ExpiresAt según el TTL.
func (c *SubmissionCache) Put(sub entity.CachedSubmission) {
	if sub.ExpiresAt.IsZero() {
		sub.ExpiresAt = time.Now().Add(c.ttl)
	}
	c.store.Set(sub.SubmissionID, sub, c.ttl)
}

// Get devuelve el registro si existe y no expiró.
func (c *SubmissionCache) Get(submissionID string) (entity.CachedSubmission, bool) {
	v, ok := c.store.Get(submissionID)
	if !ok {
		return entity.CachedSubmission{}, false
	}
	return v.(entity.CachedSubmission), true
}

// Flush vacía la caché. Pensado para tests.
func (c *SubmissionCache) Flush() {
	c.store.Flush()
}
