package metrics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hrygo/agentcache/store"
)

// ErrMetricsNotConfigured is returned when metrics persistence is not configured.
var ErrMetricsNotConfigured = errors.New("metrics persistence not configured")

// Service implements the MetricsService interface.
type Service struct {
	store      *store.Store
	aggregator *Aggregator
	persister  *Persister
	collectors *Collectors
}

// NewService creates a new metrics service.
// If store is nil, lookups are only aggregated in memory (no persistence).
// If collectors is nil, nothing is exported to Prometheus.
func NewService(s *store.Store, collectors *Collectors, cfg PersisterConfig) *Service {
	aggregator := NewAggregator()

	svc := &Service{
		store:      s,
		aggregator: aggregator,
		collectors: collectors,
	}

	if s != nil {
		svc.persister = NewPersister(s, aggregator, cfg)
		svc.persister.Start()
	} else {
		slog.Warn("metrics service initialized without store (persistence disabled)")
	}

	return svc
}

// Close stops the metrics service and flushes remaining data.
func (s *Service) Close() {
	if s.persister != nil {
		s.persister.Close()
	}
}

// RecordLookup records a lookup metric.
func (s *Service) RecordLookup(_ context.Context, domain, tier string, latency time.Duration) {
	s.aggregator.RecordLookup(domain, tier, latency)
	if s.collectors != nil {
		s.collectors.observe(domain, tier, latency)
	}
}

// GetStats merges persisted hours within timeRange with the buckets still
// held in memory. Percentiles cover in-memory buckets only.
func (s *Service) GetStats(ctx context.Context, timeRange TimeRange) (*LookupStats, error) {
	stats := s.aggregator.GetCurrentStats()
	if s.store == nil {
		return stats, nil
	}

	find := &store.FindLookupMetrics{Limit: store.MaxListLimit}
	if !timeRange.Start.IsZero() {
		find.StartTime = &timeRange.Start
	}
	if !timeRange.End.IsZero() {
		find.EndTime = &timeRange.End
	}

	persisted, err := s.store.ListLookupMetrics(ctx, find)
	if err != nil {
		// Log error but return in-memory stats
		slog.Warn("failed to query persisted lookup metrics", slog.String("error", err.Error()))
		return stats, nil
	}

	for _, m := range persisted {
		stats.add(m.Domain, m.Tier, m.LookupCount, m.HitCount)
	}
	stats.finalize()

	return stats, nil
}

// Flush forces an immediate flush of completed hours to the database.
func (s *Service) Flush(ctx context.Context) error {
	if s.persister == nil {
		return ErrMetricsNotConfigured
	}
	return s.persister.Flush(ctx)
}

// HasPersistence returns true if metrics persistence is enabled.
func (s *Service) HasPersistence() bool {
	return s.persister != nil
}

var _ MetricsService = (*Service)(nil)
