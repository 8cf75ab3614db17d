package metrics

import (
	"sort"
	"sync"
	"time"
)

// Aggregator aggregates lookups in memory before persisting to database.
type Aggregator struct {
	mu  sync.RWMutex
	now func() time.Time

	// key = bucketKey{hour, domain, tier}
	buckets map[bucketKey]*lookupBucket
}

type bucketKey struct {
	hour   int64 // unix seconds of the hour start
	domain string
	tier   string
}

type lookupBucket struct {
	hourBucket  time.Time
	domain      string
	tier        string
	lookupCount int64
	hitCount    int64
	latencies   []int64 // in milliseconds
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		now:     time.Now,
		buckets: make(map[bucketKey]*lookupBucket),
	}
}

// RecordLookup records a single lookup.
func (a *Aggregator) RecordLookup(domain, tier string, latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	hourBucket := truncateToHour(a.now())
	key := bucketKey{hour: hourBucket.Unix(), domain: domain, tier: tier}

	bucket, exists := a.buckets[key]
	if !exists {
		bucket = &lookupBucket{
			hourBucket: hourBucket,
			domain:     domain,
			tier:       tier,
			latencies:  make([]int64, 0, 64),
		}
		a.buckets[key] = bucket
	}

	bucket.lookupCount++
	if tier != TierMiss {
		bucket.hitCount++
	}
	bucket.latencies = append(bucket.latencies, latency.Milliseconds())
}

// Snapshot represents a completed bucket ready for persistence.
type Snapshot struct {
	HourBucket   time.Time
	Domain       string
	Tier         string
	LookupCount  int64
	HitCount     int64
	LatencySumMs int64
	LatencyP50Ms int32
	LatencyP95Ms int32
}

// Flush returns and clears all buckets of hours before beforeHour.
func (a *Aggregator) Flush(beforeHour time.Time) []*Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	var snapshots []*Snapshot
	for key, bucket := range a.buckets {
		if !bucket.hourBucket.Before(beforeHour) {
			continue
		}
		snapshots = append(snapshots, &Snapshot{
			HourBucket:   bucket.hourBucket,
			Domain:       bucket.domain,
			Tier:         bucket.tier,
			LookupCount:  bucket.lookupCount,
			HitCount:     bucket.hitCount,
			LatencySumMs: sumLatencies(bucket.latencies),
			LatencyP50Ms: int32(percentile(bucket.latencies, 50)),
			LatencyP95Ms: int32(percentile(bucket.latencies, 95)),
		})
		delete(a.buckets, key)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].HourBucket.Before(snapshots[j].HourBucket)
	})
	return snapshots
}

// GetCurrentStats returns aggregated stats of the buckets still in memory.
func (a *Aggregator) GetCurrentStats() *LookupStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := newLookupStats()
	allLatencies := make([]int64, 0)
	for _, bucket := range a.buckets {
		stats.add(bucket.domain, bucket.tier, bucket.lookupCount, bucket.hitCount)
		allLatencies = append(allLatencies, bucket.latencies...)
	}

	stats.LatencyP50 = time.Duration(percentile(allLatencies, 50)) * time.Millisecond
	stats.LatencyP95 = time.Duration(percentile(allLatencies, 95)) * time.Millisecond
	stats.finalize()

	return stats
}

func truncateToHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

func sumLatencies(latencies []int64) int64 {
	var sum int64
	for _, l := range latencies {
		sum += l
	}
	return sum
}

// percentile uses the nearest-rank method on a sorted copy.
func percentile(latencies []int64, p int) int64 {
	if len(latencies) == 0 {
		return 0
	}

	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}
