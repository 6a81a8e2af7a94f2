package cache

import (
	"time"

	"github.com/Sternrassler/vk-watch/pkg/profile"
)

// Entry is one cached record.
type Entry struct {
	// Record is the last record emitted for the entry.
	Record profile.EnrichedRecord `json:"record"`

	// CachedAt is when the record was written.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the record was captured.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
