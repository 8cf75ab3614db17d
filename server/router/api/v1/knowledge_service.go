package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/internal/observability"
	"github.com/hrygo/agentcache/plugin/ai/knowledge"
	"github.com/hrygo/agentcache/plugin/ai/metrics"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
)

// ForgetResponse is returned by DELETE /api/v1/knowledge/:domain.
type ForgetResponse struct {
	Domain  string `json:"domain"`
	Removed int64  `json:"removed"`
}

// LookupKnowledge looks up a cached result for a query.
// POST /api/v1/knowledge/lookup
func (s *APIV1Service) LookupKnowledge(c echo.Context) error {
	req := &knowledge.LookupRequest{}
	if err := c.Bind(req); err != nil {
		return invalidArgument(similarity.ErrInvalidInput, "malformed request body")
	}
	setDomain(c, req.Domain)

	result, err := s.Knowledge.Lookup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// RememberKnowledge stores the result an agent produced for a query.
// POST /api/v1/knowledge
func (s *APIV1Service) RememberKnowledge(c echo.Context) error {
	req := &knowledge.RememberRequest{}
	if err := c.Bind(req); err != nil {
		return invalidArgument(similarity.ErrInvalidInput, "malformed request body")
	}
	setDomain(c, req.Domain)

	record, err := s.Knowledge.Remember(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, record)
}

// ForgetKnowledge drops every record of a domain.
// DELETE /api/v1/knowledge/:domain
func (s *APIV1Service) ForgetKnowledge(c echo.Context) error {
	domain := c.Param("domain")
	setDomain(c, domain)

	removed, err := s.Knowledge.Forget(c.Request().Context(), domain)
	if err != nil {
		return err
	}

	rc := observability.FromContextOrNew(c.Request().Context())
	rc.Info("knowledge forgotten", slog.Int64("removed", removed))
	return c.JSON(http.StatusOK, ForgetResponse{Domain: domain, Removed: removed})
}

// GetKnowledgeStats returns lookup statistics for a time range.
// GET /api/v1/knowledge/stats?range=24h
func (s *APIV1Service) GetKnowledgeStats(c echo.Context) error {
	timeRange := c.QueryParam("range")
	if timeRange == "" {
		timeRange = "24h"
	}
	start, err := parseTimeRange(timeRange, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidArgument, "invalid time range")
	}

	stats, err := s.Knowledge.Stats(c.Request().Context(), metrics.TimeRange{Start: start, End: time.Now()})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func setDomain(c echo.Context, domain string) {
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		rc.Domain = domain
	}
}

// parseTimeRange parses time range string and returns the start time
func parseTimeRange(timeRange string, now time.Time) (time.Time, error) {
	switch timeRange {
	case "1h":
		return now.Add(-1 * time.Hour), nil
	case "24h":
		return now.Add(-24 * time.Hour), nil
	case "7d":
		return now.Add(-7 * 24 * time.Hour), nil
	case "30d":
		return now.Add(-30 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time range: %s (valid: 1h, 24h, 7d, 30d)", timeRange)
	}
}
