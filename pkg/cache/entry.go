// Package cache provides a Redis-backed cache for fetched feature pages.
// Entries hold the raw response body so a cache hit replays exactly what the
// service returned; expiry is handled by a fixed TTL on the Redis key.
package cache

import (
	"time"
)

// Entry represents a cached feature page response.
type Entry struct {
	// Data is the raw response body as returned by the feature service.
	Data []byte `json:"data"`

	// CachedAt is when we cached this response.
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
