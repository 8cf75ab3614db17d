package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hrygo/agentcache/internal/profile"
	"github.com/hrygo/agentcache/plugin/ai"
	"github.com/hrygo/agentcache/plugin/ai/cache"
	"github.com/hrygo/agentcache/plugin/ai/knowledge"
	"github.com/hrygo/agentcache/plugin/ai/metrics"
	"github.com/hrygo/agentcache/plugin/ai/timeout"
	apiv1 "github.com/hrygo/agentcache/server/router/api/v1"
	"github.com/hrygo/agentcache/store"
)

// rateLimiterIdle is how long a client may stay silent before its limiter is dropped.
const rateLimiterIdle = 10 * time.Minute

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	api        *apiv1.APIV1Service
	l1         *cache.Service
	cache      *cache.TieredCache
	metrics    *metrics.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer wires the cache tiers, the knowledge service and the HTTP API
// on top of an already migrated store.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	s.echoServer = echoServer

	// Exact-hash tiers: in-process L1, optionally backed by Redis.
	s.l1 = cache.NewService(cache.ServiceConfig{
		Capacity:        profile.Cache.L1Capacity,
		DefaultTTL:      profile.Cache.L1TTL,
		CleanupInterval: profile.Cache.CleanupInterval,
	})
	var l2 cache.CacheService
	if profile.RedisURL != "" {
		redisTier, err := cache.NewRedisTier(ctx, profile.RedisURL, profile.Cache.L2TTL)
		if err != nil {
			s.l1.Close()
			return nil, errors.Wrap(err, "failed to connect to redis")
		}
		l2 = redisTier
		slog.Info("redis L2 tier enabled")
	}
	s.cache = cache.NewTieredCache(s.l1, l2, profile.Cache.L2TTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricCollectors, err := metrics.NewCollectors(registry)
	if err != nil {
		_ = s.cache.Close()
		return nil, errors.Wrap(err, "failed to register metrics")
	}
	s.metrics = metrics.NewService(store, metricCollectors, metrics.DefaultPersisterConfig())

	opts := []knowledge.Option{knowledge.WithMetrics(s.metrics)}
	if embeddingConfig := ai.NewEmbeddingConfigFromProfile(profile); embeddingConfig != nil {
		embeddingService, err := ai.NewEmbeddingService(embeddingConfig)
		if err != nil {
			// The vector tier is optional; the other tiers still serve lookups.
			slog.Warn("failed to create embedding service, vector tier disabled", slog.String("error", err.Error()))
		} else {
			opts = append(opts, knowledge.WithEmbedding(embeddingService))
		}
	}
	knowledgeService, err := knowledge.NewService(store, s.cache, knowledge.ConfigFromProfile(profile), opts...)
	if err != nil {
		s.closeServices()
		return nil, errors.Wrap(err, "failed to create knowledge service")
	}

	s.api, err = apiv1.NewAPIV1Service(profile.JWTSecret, profile, store, knowledgeService, registry)
	if err != nil {
		s.closeServices()
		return nil, errors.Wrap(err, "failed to create api service")
	}
	s.api.Register(echoServer, logger)

	slog.Info("knowledge service ready",
		slog.String("driver", profile.Driver),
		slog.Bool("l2", s.cache.HasL2()),
		slog.Bool("vector", knowledgeService.VectorEnabled()),
		slog.Bool("auth", profile.JWTSecret != ""),
	)
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.rateLimiterCleanup(ctx)

	go func() {
		s.echoServer.Listener = listener
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ShutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")

	// Shutdown echo server.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	// Flushes buffered lookup metrics before the store closes.
	s.closeServices()

	// Close database connection.
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("agentcache stopped properly")
}

func (s *Server) closeServices() {
	if s.metrics != nil {
		s.metrics.Close()
	}
	if err := s.cache.Close(); err != nil {
		slog.Warn("failed to close cache", slog.String("error", err.Error()))
	}
}

func (s *Server) rateLimiterCleanup(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(rateLimiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.api.RateLimiter().Cleanup(rateLimiterIdle); n > 0 {
				slog.Debug("dropped idle rate limiters", slog.Int("count", n))
			}
		}
	}
}
