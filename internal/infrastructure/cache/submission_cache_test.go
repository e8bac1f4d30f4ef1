package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/sii-gateway/internal/domain/entity"
)

func TestPutGet(t *testing.T) {
	c := New(time.Hour)

	c.Put(entity.CachedSubmission{
		SubmissionID:    "sub-1",
		Status:          entity.SubmissionStatusAccepted,
		VerificationRef: "CSV123",
		InvoiceCount:    3,
	})

	got, ok := c.Get("sub-1")
	require.True(t, ok)
	assert.Equal(t, entity.SubmissionStatusAccepted, got.Status)
	assert.Equal(t, "CSV123", got.VerificationRef)
	assert.False(t, got.ExpiresAt.IsZero(), "Put debe fijar ExpiresAt según el TTL")

	_, ok = c.Get("no-existe")
	assert.False(t, ok)
}

func TestPutOverwritesStatus(t *testing.T) {
	c := New(time.Hour)

	c.Put(entity.CachedSubmission{SubmissionID: "sub-1", Status: entity.SubmissionStatusProcessing})
	c.Put(entity.CachedSubmission{SubmissionID: "sub-1", Status: entity.SubmissionStatusAccepted})

	got, ok := c.Get("sub-1")
	require.True(t, ok)
	assert.Equal(t, entity.SubmissionStatusAccepted, got.Status)
}

func TestEntryExpires(t *testing.T) {
	c := New(20 * time.Millisecond)

	c.Put(entity.CachedSubmission{SubmissionID: "sub-ttl", Status: entity.SubmissionStatusAccepted})
	_, ok := c.Get("sub-ttl")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("sub-ttl")
	assert.False(t, ok, "la entrada debe expirar pasado el TTL")
}
