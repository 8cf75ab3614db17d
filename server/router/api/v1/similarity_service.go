package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/agentcache/plugin/ai/similarity"
)

// CompareRequest is the body of POST /api/v1/similarity. A and B are
// pointers so that a missing or null query is rejected, not scored as "".
type CompareRequest struct {
	A         *string             `json:"a"`
	B         *string             `json:"b"`
	Threshold *float64            `json:"threshold,omitempty"`
	Weights   *similarity.Weights `json:"weights,omitempty"`
}

// BestMatchRequest is the body of POST /api/v1/similarity/best. Candidates
// holds pointers so a null element is rejected like a null query.
type BestMatchRequest struct {
	Query      *string   `json:"query"`
	Candidates []*string `json:"candidates"`
	Threshold  *float64  `json:"threshold,omitempty"`
}

// BestMatchResponse reports the winning candidate, if any.
type BestMatchResponse struct {
	Index      int     `json:"index"`
	Candidate  *string `json:"candidate,omitempty"`
	Similarity float64 `json:"similarity"`
	IsMatch    bool    `json:"is_match"`
}

// CompareQueries returns the composite similarity of two queries.
// POST /api/v1/similarity
func (s *APIV1Service) CompareQueries(c echo.Context) error {
	req := &CompareRequest{}
	if err := c.Bind(req); err != nil {
		return invalidArgument(similarity.ErrInvalidInput, "malformed request body")
	}
	if req.A == nil || req.B == nil {
		return invalidArgument(similarity.ErrInvalidInput, "a and b are required")
	}

	matcher, err := s.matcherWith(req.Threshold, req.Weights)
	if err != nil {
		return invalidArgument(err, "invalid matcher configuration")
	}
	return c.JSON(http.StatusOK, matcher.Compare(*req.A, *req.B))
}

// FindBestMatch returns the candidate most similar to a query.
// POST /api/v1/similarity/best
func (s *APIV1Service) FindBestMatch(c echo.Context) error {
	req := &BestMatchRequest{}
	if err := c.Bind(req); err != nil {
		return invalidArgument(similarity.ErrInvalidInput, "malformed request body")
	}
	if req.Query == nil {
		return invalidArgument(similarity.ErrInvalidInput, "query is required")
	}
	for i, candidate := range req.Candidates {
		if candidate == nil {
			return invalidArgument(similarity.ErrInvalidInput, fmt.Sprintf("candidates[%d] is null", i))
		}
	}

	matcher, err := s.matcherWith(req.Threshold, nil)
	if err != nil {
		return invalidArgument(err, "invalid matcher configuration")
	}
	best, err := similarity.FindBestMatch(matcher, *req.Query, req.Candidates, func(candidate *string) string {
		return *candidate
	})
	if err != nil {
		return invalidArgument(err, "failed to match candidates")
	}

	resp := BestMatchResponse{
		Index:      best.Index,
		Similarity: best.Similarity,
		IsMatch:    best.IsMatch,
	}
	if best.Record != nil {
		resp.Candidate = *best.Record
	}
	return c.JSON(http.StatusOK, resp)
}

// matcherWith returns the configured matcher with optional overrides applied.
func (s *APIV1Service) matcherWith(threshold *float64, weights *similarity.Weights) (*similarity.Matcher, error) {
	if threshold == nil && weights == nil {
		return s.Matcher, nil
	}
	cfg := s.Matcher.Config()
	if threshold != nil {
		cfg.Threshold = *threshold
	}
	if weights != nil {
		cfg.Weights = *weights
	}
	return similarity.NewMatcher(cfg)
}
