package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_BasicOperations(t *testing.T) {
	svc := NewService(ServiceConfig{
		Capacity:        100,
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Hour,
	})
	defer svc.Close()

	ctx := context.Background()
	key := Key("research", "abc")

	require.NoError(t, svc.Set(ctx, key, []byte("record"), 0))
	val, ok := svc.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, []byte("record"), val)

	require.NoError(t, svc.Invalidate(ctx, DomainPattern("research")))
	_, ok = svc.Get(ctx, key)
	assert.False(t, ok)

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestService_CloseIsIdempotent(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	svc.Close()
	svc.Close()
}

func TestService_CleanupLoop(t *testing.T) {
	svc := NewService(ServiceConfig{
		Capacity:        100,
		DefaultTTL:      20 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer svc.Close()

	require.NoError(t, svc.Set(context.Background(), "temp", []byte("data"), 0))
	assert.Equal(t, 1, svc.Stats().Size)

	assert.Eventually(t, func() bool {
		return svc.Stats().Size == 0
	}, time.Second, 10*time.Millisecond)
}
