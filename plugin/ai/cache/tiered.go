package cache

import (
	"context"
	"log/slog"
	"time"
)

// TieredCache checks L1 first, then the optional L2, promoting L2 hits
// into L1. L2 errors degrade to L1-only behavior and are logged, never
// returned from Get.
type TieredCache struct {
	l1    *Service
	l2    CacheService // nil when Redis is not configured
	l2TTL time.Duration
}

// NewTieredCache combines l1 with an optional l2.
func NewTieredCache(l1 *Service, l2 CacheService, l2TTL time.Duration) *TieredCache {
	return &TieredCache{l1: l1, l2: l2, l2TTL: l2TTL}
}

// HasL2 reports whether a shared tier is configured.
func (t *TieredCache) HasL2() bool {
	return t.l2 != nil
}

func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := t.l1.Get(ctx, key); ok {
		return value, true
	}
	if t.l2 == nil {
		return nil, false
	}

	value, ok := t.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	// Promote to L1
	_ = t.l1.Set(ctx, key, value, 0)
	return value, true
}

// Set writes L1, then L2. The L1 write always happens; an L2 failure is returned.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = t.l1.Set(ctx, key, value, ttl)
	if t.l2 == nil {
		return nil
	}

	l2TTL := t.l2TTL
	if ttl > 0 {
		l2TTL = ttl
	}
	if err := t.l2.Set(ctx, key, value, l2TTL); err != nil {
		slog.Warn("l2 cache set failed", slog.String("key", key), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (t *TieredCache) Invalidate(ctx context.Context, pattern string) error {
	_ = t.l1.Invalidate(ctx, pattern)
	if t.l2 == nil {
		return nil
	}
	return t.l2.Invalidate(ctx, pattern)
}

// Stats returns the L1 counters.
func (t *TieredCache) Stats() Stats {
	return t.l1.Stats()
}

// Close stops the L1 sweep and closes L2 if it owns a connection.
func (t *TieredCache) Close() error {
	t.l1.Close()
	if closer, ok := t.l2.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

var _ CacheService = (*TieredCache)(nil)
