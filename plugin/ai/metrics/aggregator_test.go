package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(start time.Time) (*Aggregator, *time.Time) {
	now := start
	a := NewAggregator()
	a.now = func() time.Time { return now }
	return a, &now
}

func TestAggregator_RecordAndStats(t *testing.T) {
	a, _ := newTestAggregator(time.Date(2026, 2, 1, 10, 15, 0, 0, time.UTC))

	a.RecordLookup("research", TierExact, 2*time.Millisecond)
	a.RecordLookup("research", TierSemantic, 10*time.Millisecond)
	a.RecordLookup("research", TierMiss, 30*time.Millisecond)
	a.RecordLookup("qa", TierVector, 40*time.Millisecond)

	stats := a.GetCurrentStats()
	assert.Equal(t, int64(4), stats.LookupCount)
	assert.Equal(t, int64(3), stats.HitCount)
	assert.InDelta(t, 0.75, stats.HitRate, 1e-6)
	assert.Equal(t, 10*time.Millisecond, stats.LatencyP50)
	assert.Equal(t, 30*time.Millisecond, stats.LatencyP95)

	research := stats.Domains["research"]
	require.NotNil(t, research)
	assert.Equal(t, int64(3), research.LookupCount)
	assert.Equal(t, int64(2), research.HitCount)
	assert.Equal(t, map[string]int64{TierExact: 1, TierSemantic: 1, TierMiss: 1}, research.ByTier)
	assert.InDelta(t, 1.0, stats.Domains["qa"].HitRate, 1e-6)
}

func TestAggregator_Flush(t *testing.T) {
	a, now := newTestAggregator(time.Date(2026, 2, 1, 9, 59, 0, 0, time.UTC))

	a.RecordLookup("research", TierExact, 4*time.Millisecond)
	a.RecordLookup("research", TierExact, 6*time.Millisecond)
	*now = now.Add(2 * time.Minute)
	a.RecordLookup("research", TierExact, 8*time.Millisecond)

	snapshots := a.Flush(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	require.Len(t, snapshots, 1)
	s := snapshots[0]
	assert.Equal(t, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), s.HourBucket)
	assert.Equal(t, int64(2), s.LookupCount)
	assert.Equal(t, int64(2), s.HitCount)
	assert.Equal(t, int64(10), s.LatencySumMs)
	assert.Equal(t, int32(4), s.LatencyP50Ms)
	assert.Equal(t, int32(4), s.LatencyP95Ms)

	// Flushed buckets are gone; the current hour stays.
	assert.Empty(t, a.Flush(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(1), a.GetCurrentStats().LookupCount)
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name      string
		latencies []int64
		p         int
		expected  int64
	}{
		{"empty", nil, 50, 0},
		{"single", []int64{7}, 95, 7},
		{"p50 unsorted", []int64{5, 1, 3, 2, 4}, 50, 3},
		{"p95", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 95, 9},
		{"p100", []int64{1, 2, 3}, 100, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, percentile(tt.latencies, tt.p))
		})
	}
}
