package knowledge

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/internal/observability"
	"github.com/hrygo/agentcache/plugin/ai/cache"
	"github.com/hrygo/agentcache/plugin/ai/metrics"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
	"github.com/hrygo/agentcache/plugin/ai/timeout"
	"github.com/hrygo/agentcache/store"
)

// Lookup answers req from the cheapest tier that has a match. Identical
// concurrent lookups share one execution, which keeps running when the
// caller that started it goes away. A miss is not an error.
func (s *Service) Lookup(ctx context.Context, req *LookupRequest) (*LookupResult, error) {
	start := time.Now()

	if req == nil {
		return nil, invalidInput("lookup request is required")
	}
	domain, err := checkDomain(req.Domain)
	if err != nil {
		return nil, err
	}
	if similarity.Normalize(req.Query) == "" {
		return nil, invalidInput("query is required")
	}

	matcher, err := s.matcherFor(domain, req.Threshold)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidArgument, "invalid threshold")
	}

	hash := cache.HashKey(domain, req.Query)
	flightKey := domain + "\x00" + hash + "\x00" + strconv.FormatFloat(matcher.Config().Threshold, 'g', -1, 64)

	flight := s.group.DoChan(flightKey, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout.LookupTimeout)
		defer cancel()
		return s.lookup(runCtx, domain, hash, req.Query, matcher)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeContextCanceled, "lookup canceled")
	case res = <-flight:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Shared

	// Each caller gets its own copy of the shared result.
	result := *res.Val.(*LookupResult)
	result.LatencyMs = time.Since(start).Milliseconds()

	if s.metrics != nil {
		s.metrics.RecordLookup(ctx, domain, result.Tier, time.Since(start))
	}

	rc := observability.FromContextOrNew(ctx)
	rc.Debug("knowledge lookup",
		slog.String(observability.LogFieldDomain, domain),
		slog.String(observability.LogFieldTier, result.Tier),
		slog.Float64(observability.LogFieldSimilarity, result.Similarity),
		slog.Bool("shared", shared),
		slog.Int64(observability.LogFieldDuration, result.LatencyMs),
	)
	return &result, nil
}

func (s *Service) lookup(ctx context.Context, domain, hash, query string, matcher *similarity.Matcher) (*LookupResult, error) {
	threshold := matcher.Config().Threshold

	// Tier 1: exact hash, L1 -> L2 -> store.
	if r, ok := s.cachedRecord(ctx, domain, hash); ok {
		s.touch(ctx, r)
		s.cacheRecord(ctx, r)
		return exactResult(r, threshold), nil
	}
	r, err := s.store.GetKnowledgeRecordByHash(ctx, domain, hash)
	if err != nil {
		return nil, errors.StorageFailed("failed to get knowledge record by hash", err).WithContext("domain", domain)
	}
	if r != nil {
		s.touch(ctx, r)
		s.cacheRecord(ctx, r)
		return exactResult(r, threshold), nil
	}

	// Tier 2: composite similarity over recent records of the domain.
	best, err := s.semantic(ctx, domain, query, matcher)
	if err != nil {
		return nil, err
	}
	if best.IsMatch {
		return s.hit(ctx, metrics.TierSemantic, *best.Record, query, matcher), nil
	}
	bestScore := best.Similarity

	// Tier 3: embedding neighbours, re-scored by the same matcher.
	if s.embedding != nil {
		vbest := s.vector(ctx, domain, query, matcher)
		if vbest != nil && vbest.IsMatch {
			return s.hit(ctx, metrics.TierVector, (*vbest.Record).Record, query, matcher), nil
		}
		if vbest != nil && vbest.Similarity > bestScore {
			bestScore = vbest.Similarity
		}
	}

	return &LookupResult{
		Tier:       metrics.TierMiss,
		Similarity: bestScore,
		Threshold:  threshold,
	}, nil
}

func (s *Service) semantic(ctx context.Context, domain, query string, matcher *similarity.Matcher) (*similarity.Match[*store.KnowledgeRecord], error) {
	find := &store.FindKnowledgeRecord{
		Domain: &domain,
		Limit:  s.cfg.CandidateLimit,
	}
	if s.cfg.CandidateWindow > 0 {
		after := s.now().Add(-s.cfg.CandidateWindow).Unix()
		find.CreatedAfter = &after
	}

	candidates, err := s.store.ListKnowledgeRecords(ctx, find)
	if err != nil {
		return nil, errors.StorageFailed("failed to list knowledge candidates", err).WithContext("domain", domain)
	}

	return similarity.FindBestMatch(matcher, query, candidates, func(r *store.KnowledgeRecord) string {
		return r.OriginalQuery
	})
}

// vector returns nil when the tier cannot answer; failures degrade to a miss.
func (s *Service) vector(ctx context.Context, domain, query string, matcher *similarity.Matcher) *similarity.Match[*store.KnowledgeWithScore] {
	ctx, cancel := context.WithTimeout(ctx, timeout.VectorTierTimeout)
	defer cancel()

	vec, err := s.embedding.Embed(ctx, similarity.Normalize(query))
	if err != nil {
		slog.Warn("failed to embed lookup query, skipping vector tier", slog.String("domain", domain), slog.String("error", err.Error()))
		return nil
	}

	neighbours, err := s.store.SearchKnowledgeByVector(ctx, &store.KnowledgeVectorSearch{
		Domain: domain,
		Vector: vec,
		Model:  s.embedding.Model(),
		Limit:  s.cfg.VectorLimit,
	})
	if err != nil {
		slog.Warn("vector search failed, skipping vector tier", slog.String("domain", domain), slog.String("error", err.Error()))
		return nil
	}

	best, err := similarity.FindBestMatch(matcher, query, neighbours, func(n *store.KnowledgeWithScore) string {
		return n.Record.OriginalQuery
	})
	if err != nil {
		return nil
	}
	return best
}

// hit bumps the hit counter of r, warms the exact tiers and builds the result.
func (s *Service) hit(ctx context.Context, tier string, r *store.KnowledgeRecord, query string, matcher *similarity.Matcher) *LookupResult {
	s.touch(ctx, r)
	s.cacheRecord(ctx, r)

	compared := matcher.Compare(query, r.OriginalQuery)
	return &LookupResult{
		Hit:        true,
		Tier:       tier,
		Record:     r,
		Similarity: compared.Similarity,
		Metrics:    compared.Metrics,
		Threshold:  matcher.Config().Threshold,
	}
}

// touch increments the stored hit counter. The returned record reflects the bump.
func (s *Service) touch(ctx context.Context, r *store.KnowledgeRecord) {
	if err := s.store.TouchKnowledgeRecord(ctx, r.ID); err != nil {
		slog.Warn("failed to bump knowledge hit count", slog.Int64("id", r.ID), slog.String("error", err.Error()))
		return
	}
	r.HitCount++
}

func exactResult(r *store.KnowledgeRecord, threshold float64) *LookupResult {
	return &LookupResult{
		Hit:        true,
		Tier:       metrics.TierExact,
		Record:     r,
		Similarity: 1,
		Metrics:    similarity.Metrics{Jaccard: 1, Cosine: 1, Levenshtein: 1},
		Threshold:  threshold,
	}
}
