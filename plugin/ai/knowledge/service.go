package knowledge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/plugin/ai"
	"github.com/hrygo/agentcache/plugin/ai/cache"
	"github.com/hrygo/agentcache/plugin/ai/metrics"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
	"github.com/hrygo/agentcache/store"
)

// Service implements KnowledgeService.
type Service struct {
	store     *store.Store
	cache     cache.CacheService
	embedding ai.EmbeddingService // nil disables the vector tier
	metrics   metrics.MetricsService

	cfg            Config
	matcher        *similarity.Matcher
	domainMatchers map[string]*similarity.Matcher

	group singleflight.Group
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedding enables the vector tier and write-time embeddings.
func WithEmbedding(e ai.EmbeddingService) Option {
	return func(s *Service) { s.embedding = e }
}

// WithMetrics records every lookup on m.
func WithMetrics(m metrics.MetricsService) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a knowledge service over s, fronted by c.
func NewService(s *store.Store, c cache.CacheService, cfg Config, opts ...Option) (*Service, error) {
	if s == nil || c == nil {
		return nil, errors.InvalidArgument("store and cache are required")
	}

	matcher, domainMatchers, err := cfg.buildMatchers()
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		cache:          c,
		cfg:            cfg,
		matcher:        matcher,
		domainMatchers: domainMatchers,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.embedding != nil && !s.SupportsVectorSearch() {
		slog.Warn("embedding configured but store has no vector search; vector tier disabled")
		svc.embedding = nil
	}

	return svc, nil
}

// VectorEnabled reports whether the vector tier is active.
func (s *Service) VectorEnabled() bool {
	return s.embedding != nil
}

// matcherFor returns the matcher of domain, with threshold applied when set.
func (s *Service) matcherFor(domain string, threshold *float64) (*similarity.Matcher, error) {
	m, ok := s.domainMatchers[domain]
	if !ok {
		m = s.matcher
	}
	if threshold == nil {
		return m, nil
	}
	return m.WithThreshold(*threshold)
}

// Forget invalidates every tier of domain and deletes its records.
func (s *Service) Forget(ctx context.Context, domain string) (int64, error) {
	domain, err := checkDomain(domain)
	if err != nil {
		return 0, err
	}

	n, err := s.store.DeleteKnowledgeRecords(ctx, &store.DeleteKnowledgeRecord{Domain: &domain})
	if err != nil {
		return 0, errors.StorageFailed("failed to delete knowledge records", err).WithContext("domain", domain)
	}

	// Invalidate after the delete so a concurrent lookup cannot re-warm a deleted record.
	if err := s.cache.Invalidate(ctx, cache.DomainPattern(domain)); err != nil {
		slog.Warn("failed to invalidate knowledge cache", slog.String("domain", domain), slog.String("error", err.Error()))
	}

	slog.Info("knowledge domain forgotten", slog.String("domain", domain), slog.Int64("removed", n))
	return n, nil
}

// Stats returns lookup statistics for timeRange.
func (s *Service) Stats(ctx context.Context, timeRange metrics.TimeRange) (*metrics.LookupStats, error) {
	if s.metrics == nil {
		return nil, errors.ServiceUnavailable("lookup metrics are not enabled")
	}
	return s.metrics.GetStats(ctx, timeRange)
}

// cacheRecord writes r to the exact-hash tiers. Failures are logged.
func (s *Service) cacheRecord(ctx context.Context, r *store.KnowledgeRecord) {
	data, err := json.Marshal(r)
	if err != nil {
		slog.Warn("failed to encode knowledge record", slog.Int64("id", r.ID), slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(ctx, cache.Key(r.Domain, r.QueryHash), data, 0); err != nil {
		slog.Warn("failed to cache knowledge record", slog.Int64("id", r.ID), slog.String("error", err.Error()))
	}
}

// cachedRecord reads a record from the exact-hash tiers.
func (s *Service) cachedRecord(ctx context.Context, domain, hash string) (*store.KnowledgeRecord, bool) {
	data, ok := s.cache.Get(ctx, cache.Key(domain, hash))
	if !ok {
		return nil, false
	}
	var r store.KnowledgeRecord
	if err := json.Unmarshal(data, &r); err != nil {
		slog.Warn("dropping undecodable cache entry", slog.String("domain", domain), slog.String("error", err.Error()))
		_ = s.cache.Invalidate(ctx, cache.Key(domain, hash))
		return nil, false
	}
	return &r, true
}

func invalidInput(msg string) error {
	return errors.Wrap(similarity.ErrInvalidInput, errors.ErrCodeInvalidArgument, msg)
}

var _ KnowledgeService = (*Service)(nil)
