package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/agentcache/store"
	storetest "github.com/hrygo/agentcache/store/test"
)

func TestService_MemoryOnly(t *testing.T) {
	svc := NewService(nil, nil, DefaultPersisterConfig())
	defer svc.Close()

	ctx := context.Background()
	svc.RecordLookup(ctx, "qa", TierExact, time.Millisecond)
	svc.RecordLookup(ctx, "qa", TierMiss, time.Millisecond)

	stats, err := svc.GetStats(ctx, TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.LookupCount)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-6)

	assert.False(t, svc.HasPersistence())
	assert.ErrorIs(t, svc.Flush(ctx), ErrMetricsNotConfigured)
}

func TestService_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors, err := NewCollectors(reg)
	require.NoError(t, err)

	svc := NewService(nil, collectors, DefaultPersisterConfig())
	defer svc.Close()

	ctx := context.Background()
	svc.RecordLookup(ctx, "research", TierSemantic, 3*time.Millisecond)
	svc.RecordLookup(ctx, "research", TierSemantic, 5*time.Millisecond)
	svc.RecordLookup(ctx, "research", TierMiss, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collectors.lookups.WithLabelValues("research", TierSemantic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.lookups.WithLabelValues("research", TierMiss)))
	assert.Equal(t, 2, testutil.CollectAndCount(collectors.duration))

	// Registering twice on the same registry fails.
	_, err = NewCollectors(reg)
	assert.Error(t, err)
}

func TestService_PersistAndMerge(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)

	svc := NewService(ts, nil, PersisterConfig{FlushInterval: time.Hour, CleanupInterval: time.Hour})
	defer svc.Close()

	current := time.Now().UTC()
	svc.aggregator.now = func() time.Time { return current.Add(-2 * time.Hour) }
	svc.RecordLookup(ctx, "research", TierExact, 2*time.Millisecond)
	svc.RecordLookup(ctx, "research", TierMiss, 4*time.Millisecond)

	svc.aggregator.now = func() time.Time { return current }
	require.NoError(t, svc.Flush(ctx))
	svc.RecordLookup(ctx, "research", TierVector, 6*time.Millisecond)

	persisted, err := ts.ListLookupMetrics(ctx, &store.FindLookupMetrics{})
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	stats, err := svc.GetStats(ctx, TimeRange{Start: current.Add(-24 * time.Hour), End: current.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.LookupCount)
	assert.Equal(t, int64(2), stats.HitCount)
	assert.Equal(t, map[string]int64{TierExact: 1, TierMiss: 1, TierVector: 1}, stats.Domains["research"].ByTier)
}

func TestPersister_Cleanup(t *testing.T) {
	ctx := context.Background()
	ts := storetest.NewTestingStore(ctx, t)

	old := time.Now().UTC().Add(-60 * 24 * time.Hour).Truncate(time.Hour)
	_, err := ts.UpsertLookupMetrics(ctx, &store.UpsertLookupMetrics{HourBucket: old, Domain: "qa", Tier: TierExact, LookupCount: 1})
	require.NoError(t, err)

	p := NewPersister(ts, NewAggregator(), PersisterConfig{RetentionPeriod: 30 * 24 * time.Hour})
	p.cleanup(ctx)

	list, err := ts.ListLookupMetrics(ctx, &store.FindLookupMetrics{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
