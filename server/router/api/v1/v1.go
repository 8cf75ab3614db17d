package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/agentcache/internal/profile"
	"github.com/hrygo/agentcache/plugin/ai/knowledge"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
	servermw "github.com/hrygo/agentcache/server/middleware"
	"github.com/hrygo/agentcache/store"
)

type APIV1Service struct {
	Secret    string
	Profile   *profile.Profile
	Store     *store.Store
	Knowledge knowledge.KnowledgeService
	// Matcher scores /similarity requests that do not override the configuration.
	Matcher  *similarity.Matcher
	Gatherer prometheus.Gatherer

	limiter *servermw.RateLimiter
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, knowledgeService knowledge.KnowledgeService, gatherer prometheus.Gatherer) (*APIV1Service, error) {
	matcher, err := similarity.NewMatcher(profile.MatcherConfig(""))
	if err != nil {
		return nil, err
	}
	return &APIV1Service{
		Secret:    secret,
		Profile:   profile,
		Store:     store,
		Knowledge: knowledgeService,
		Matcher:   matcher,
		Gatherer:  gatherer,
		limiter:   servermw.NewRateLimiter(profile.RateLimitRPS, profile.RateLimitBurst),
	}, nil
}

// RateLimiter returns the per-client limiter guarding /api/v1.
func (s *APIV1Service) RateLimiter() *servermw.RateLimiter {
	return s.limiter
}

// Register mounts the API on echoServer.
func (s *APIV1Service) Register(echoServer *echo.Echo, logger *slog.Logger) {
	echoServer.HTTPErrorHandler = HTTPErrorHandler
	echoServer.Use(middleware.Recover())
	echoServer.Use(servermw.RequestContext(logger))

	echoServer.GET("/healthz", s.Healthz)
	if s.Gatherer != nil {
		echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}

	api := echoServer.Group("/api/v1")
	api.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))
	api.Use(middleware.BodyLimit("1M"))
	if s.Secret != "" {
		api.Use(servermw.JWTAuth([]byte(s.Secret)))
	}
	api.Use(servermw.RateLimit(s.limiter))

	api.POST("/similarity", s.CompareQueries)
	api.POST("/similarity/best", s.FindBestMatch)
	api.POST("/knowledge/lookup", s.LookupKnowledge)
	api.POST("/knowledge", s.RememberKnowledge)
	api.DELETE("/knowledge/:domain", s.ForgetKnowledge)
	api.GET("/knowledge/stats", s.GetKnowledgeStats)
}

// Healthz reports whether the store is reachable.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	if s.Store != nil {
		if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
