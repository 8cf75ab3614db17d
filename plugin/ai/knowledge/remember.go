package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/plugin/ai/cache"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
	"github.com/hrygo/agentcache/plugin/ai/timeout"
	"github.com/hrygo/agentcache/store"
)

// Remember stores req as a knowledge record. A record already stored for
// the same domain and normalized query is refreshed in place. When the
// vector tier is enabled the query embedding is computed concurrently with
// the write; an embedding failure is logged and the record is kept.
func (s *Service) Remember(ctx context.Context, req *RememberRequest) (*store.KnowledgeRecord, error) {
	if err := validateRemember(req); err != nil {
		return nil, err
	}

	domain := normalizeDomain(req.Domain)
	now := s.now().Unix()
	record := &store.KnowledgeRecord{
		UID:           shortuuid.New(),
		Domain:        domain,
		QueryHash:     cache.HashKey(domain, req.Query),
		OriginalQuery: req.Query,
		Payload:       req.Payload,
		Source:        req.Source,
		Confidence:    req.Confidence,
		CreatedTs:     now,
		UpdatedTs:     now,
	}

	var (
		created *store.KnowledgeRecord
		vector  []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		created, err = s.store.CreateKnowledgeRecord(gctx, record)
		return err
	})
	if s.embedding != nil {
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(gctx, timeout.EmbeddingTimeout)
			defer cancel()

			var err error
			vector, err = s.embedding.Embed(ectx, similarity.Normalize(req.Query))
			if err != nil {
				slog.Warn("failed to embed knowledge query, record stored without embedding",
					slog.String("domain", domain), slog.String("error", err.Error()))
				vector = nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.StorageFailed("failed to store knowledge record", err).WithContext("domain", domain)
	}

	if vector != nil {
		if err := s.store.UpsertKnowledgeEmbedding(ctx, &store.KnowledgeEmbedding{
			RecordID:  created.ID,
			Embedding: vector,
			Model:     s.embedding.Model(),
			CreatedTs: now,
		}); err != nil {
			slog.Warn("failed to store knowledge embedding", slog.Int64("id", created.ID), slog.String("error", err.Error()))
		}
	}

	s.cacheRecord(ctx, created)

	slog.Debug("knowledge remembered",
		slog.String("domain", domain),
		slog.Int64("id", created.ID),
		slog.Bool("embedded", vector != nil),
	)
	return created, nil
}

func validateRemember(req *RememberRequest) error {
	if req == nil {
		return invalidInput("remember request is required")
	}
	if _, err := checkDomain(req.Domain); err != nil {
		return err
	}
	if similarity.Normalize(req.Query) == "" {
		return invalidInput("query is required")
	}
	payload := bytes.TrimSpace(req.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) || !json.Valid(payload) {
		return invalidInput("payload must be valid JSON")
	}
	c := float64(req.Confidence)
	if math.IsNaN(c) || c < 0 || c > 1 {
		return invalidInput("confidence must be within [0, 1]")
	}
	return nil
}
