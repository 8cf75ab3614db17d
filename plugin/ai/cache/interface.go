// Package cache provides the exact-hash tiers of the knowledge cache:
// an in-process LRU (L1) and an optional shared Redis tier (L2).
package cache

import (
	"context"
	"time"
)

// CacheService defines the cache service interface.
// Values are opaque bytes; the knowledge service stores JSON-encoded records.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time, 0 uses the tier default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries.
	// pattern: an exact key or a prefix ending in * (knowledge:research:*)
	Invalidate(ctx context.Context, pattern string) error
}

// Stats is a point-in-time view of a tier.
type Stats struct {
	Size    int   `json:"size"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Evicted int64 `json:"evicted"`
}
