// Package metrics records knowledge lookups per domain and tier, keeps
// hourly aggregates in memory, persists completed hours to the store and
// exports Prometheus collectors.
package metrics

import (
	"context"
	"time"
)

// Lookup tiers. A lookup is attributed to the tier that answered it, or
// to TierMiss when none did.
const (
	TierExact    = "exact"
	TierSemantic = "semantic"
	TierVector   = "vector"
	TierMiss     = "miss"
)

// MetricsService defines the lookup metrics service interface.
type MetricsService interface {
	// RecordLookup records one lookup answered by tier (TierMiss on a miss).
	RecordLookup(ctx context.Context, domain, tier string, latency time.Duration)

	// GetStats retrieves statistics data.
	GetStats(ctx context.Context, timeRange TimeRange) (*LookupStats, error)
}

// TimeRange represents a time range for querying metrics.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LookupStats represents aggregated lookup metrics.
type LookupStats struct {
	LookupCount int64                  `json:"lookup_count"`
	HitCount    int64                  `json:"hit_count"`
	HitRate     float32                `json:"hit_rate"`
	LatencyP50  time.Duration          `json:"latency_p50"`
	LatencyP95  time.Duration          `json:"latency_p95"`
	Domains     map[string]*DomainStat `json:"domains"`
}

// DomainStat represents statistics for a single domain.
type DomainStat struct {
	LookupCount int64            `json:"lookup_count"`
	HitCount    int64            `json:"hit_count"`
	HitRate     float32          `json:"hit_rate"`
	ByTier      map[string]int64 `json:"by_tier"`
}

func newLookupStats() *LookupStats {
	return &LookupStats{Domains: make(map[string]*DomainStat)}
}

func (s *LookupStats) add(domain, tier string, lookups, hits int64) {
	s.LookupCount += lookups
	s.HitCount += hits

	d, ok := s.Domains[domain]
	if !ok {
		d = &DomainStat{ByTier: make(map[string]int64)}
		s.Domains[domain] = d
	}
	d.LookupCount += lookups
	d.HitCount += hits
	d.ByTier[tier] += lookups
}

// finalize computes hit rates once all buckets have been added.
func (s *LookupStats) finalize() {
	if s.LookupCount > 0 {
		s.HitRate = float32(s.HitCount) / float32(s.LookupCount)
	}
	for _, d := range s.Domains {
		if d.LookupCount > 0 {
			d.HitRate = float32(d.HitCount) / float32(d.LookupCount)
		}
	}
}
