package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/agentcache/internal/errors"
	"github.com/hrygo/agentcache/internal/profile"
	"github.com/hrygo/agentcache/plugin/ai/cache"
	"github.com/hrygo/agentcache/plugin/ai/knowledge"
	"github.com/hrygo/agentcache/plugin/ai/metrics"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
	storetest "github.com/hrygo/agentcache/store/test"
)

type testServer struct {
	echo    *echo.Echo
	service *APIV1Service
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	ctx := context.Background()

	p, err := profile.Load(viper.New(), "")
	require.NoError(t, err)
	p.RateLimitRPS = 0

	ts := storetest.NewTestingStore(ctx, t)

	reg := prometheus.NewRegistry()
	collectors, err := metrics.NewCollectors(reg)
	require.NoError(t, err)
	ms := metrics.NewService(nil, collectors, metrics.DefaultPersisterConfig())
	t.Cleanup(ms.Close)

	l1 := cache.NewService(cache.DefaultServiceConfig())
	t.Cleanup(l1.Close)

	ks, err := knowledge.NewService(ts, l1, knowledge.ConfigFromProfile(p), knowledge.WithMetrics(ms))
	require.NoError(t, err)

	svc, err := NewAPIV1Service(secret, p, ts, ks, reg)
	require.NoError(t, err)

	e := echo.New()
	svc.Register(e, nil)
	return &testServer{echo: e, service: svc}
}

func (s *testServer) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCompareQueries(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		name    string
		body    string
		status  int
		isMatch bool
	}{
		{"identical", `{"a":"What is Go?","b":"what is go"}`, http.StatusOK, true},
		{"unrelated", `{"a":"what is go","b":"chocolate cake recipe"}`, http.StatusOK, false},
		{"both empty", `{"a":"","b":""}`, http.StatusOK, true},
		{"threshold override", `{"a":"what is go","b":"what is rust","threshold":0.1}`, http.StatusOK, true},
		{"weights override", `{"a":"go","b":"go lang","weights":{"jaccard":0,"cosine":1,"levenshtein":0}}`, http.StatusOK, false},
		{"null a", `{"a":null,"b":"x"}`, http.StatusBadRequest, false},
		{"missing b", `{"a":"x"}`, http.StatusBadRequest, false},
		{"invalid threshold", `{"a":"x","b":"y","threshold":1.5}`, http.StatusBadRequest, false},
		{"invalid weights", `{"a":"x","b":"y","weights":{"jaccard":0,"cosine":0,"levenshtein":0}}`, http.StatusBadRequest, false},
		{"malformed", `{"a":`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/similarity", tt.body, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				resp := decode[ErrorResponse](t, rec)
				assert.Equal(t, errors.ErrCodeInvalidArgument, resp.Code)
				assert.NotEmpty(t, resp.RequestID)
				return
			}
			result := decode[similarity.Result](t, rec)
			assert.Equal(t, tt.isMatch, result.IsMatch)
			assert.GreaterOrEqual(t, result.Similarity, 0.0)
			assert.LessOrEqual(t, result.Similarity, 1.0)
		})
	}
}

func TestFindBestMatch(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/api/v1/similarity/best",
		`{"query":"how to deploy a kubernetes cluster","candidates":["chocolate cake","how to deploy kubernetes cluster","how to deploy kubernetes cluster"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[BestMatchResponse](t, rec)
	assert.Equal(t, 1, resp.Index, "earliest of tied candidates wins")
	assert.True(t, resp.IsMatch)
	require.NotNil(t, resp.Candidate)
	assert.Equal(t, "how to deploy kubernetes cluster", *resp.Candidate)

	rec = s.do(t, http.MethodPost, "/api/v1/similarity/best", `{"query":"anything","candidates":[]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[BestMatchResponse](t, rec)
	assert.Equal(t, -1, resp.Index)
	assert.Nil(t, resp.Candidate)
	assert.False(t, resp.IsMatch)

	rec = s.do(t, http.MethodPost, "/api/v1/similarity/best", `{"candidates":["x"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, body := range []string{
		`{"query":"","candidates":[null]}`,
		`{"query":"how to deploy","candidates":["how to deploy",null]}`,
	} {
		rec = s.do(t, http.MethodPost, "/api/v1/similarity/best", body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, errors.ErrCodeInvalidArgument, decode[ErrorResponse](t, rec).Code)
	}
}

func TestKnowledgeFlow(t *testing.T) {
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/api/v1/knowledge",
		`{"domain":"research","query":"How to deploy kubernetes cluster on AWS?","payload":{"answer":"use eks"},"source":"web_search","confidence":0.8}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "research", created["domain"])
	assert.NotEmpty(t, created["uid"])

	rec = s.do(t, http.MethodPost, "/api/v1/knowledge/lookup",
		`{"domain":"research","query":"how to deploy a kubernetes cluster on aws"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[knowledge.LookupResult](t, rec)
	assert.True(t, result.Hit)
	assert.Equal(t, metrics.TierSemantic, result.Tier)
	require.NotNil(t, result.Record)
	assert.JSONEq(t, `{"answer":"use eks"}`, string(result.Record.Payload))

	rec = s.do(t, http.MethodPost, "/api/v1/knowledge/lookup", `{"domain":"research","query":"chocolate cake"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[knowledge.LookupResult](t, rec).Hit)

	rec = s.do(t, http.MethodGet, "/api/v1/knowledge/stats?range=1h", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decode[metrics.LookupStats](t, rec)
	assert.Equal(t, int64(2), stats.LookupCount)
	assert.Equal(t, int64(1), stats.HitCount)

	rec = s.do(t, http.MethodDelete, "/api/v1/knowledge/research", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ForgetResponse{Domain: "research", Removed: 1}, decode[ForgetResponse](t, rec))

	rec = s.do(t, http.MethodPost, "/api/v1/knowledge/lookup",
		`{"domain":"research","query":"How to deploy kubernetes cluster on AWS?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[knowledge.LookupResult](t, rec).Hit)
}

func TestKnowledgeErrors(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   errors.ErrorCode
	}{
		{"lookup without domain", http.MethodPost, "/api/v1/knowledge/lookup", `{"query":"q"}`, http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"lookup without query", http.MethodPost, "/api/v1/knowledge/lookup", `{"domain":"qa"}`, http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"lookup invalid threshold", http.MethodPost, "/api/v1/knowledge/lookup", `{"domain":"qa","query":"q","threshold":-1}`, http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"remember without payload", http.MethodPost, "/api/v1/knowledge", `{"domain":"qa","query":"q"}`, http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"forget glob domain", http.MethodDelete, "/api/v1/knowledge/q*", "", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"stats invalid range", http.MethodGet, "/api/v1/knowledge/stats?range=2w", "", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"unknown route", http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestAuthentication(t *testing.T) {
	secret := "test-secret"
	s := newTestServer(t, secret)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "agent-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	body := `{"a":"x","b":"x"}`
	rec := s.do(t, http.MethodPost, "/api/v1/similarity", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errors.ErrCodeUnauthorized, decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/v1/similarity", body, http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health and metrics stay public.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestRateLimit(t *testing.T) {
	p, err := profile.Load(viper.New(), "")
	require.NoError(t, err)
	p.RateLimitRPS = 1
	p.RateLimitBurst = 1

	svc, err := NewAPIV1Service("", p, nil, nil, nil)
	require.NoError(t, err)
	e := echo.New()
	svc.Register(e, nil)
	s := &testServer{echo: e, service: svc}

	body := `{"a":"x","b":"x"}`
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/similarity", body, nil).Code)
	rec := s.do(t, http.MethodPost, "/api/v1/similarity", body, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.ErrCodeRateLimitExceeded, decode[ErrorResponse](t, rec).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	s.do(t, http.MethodPost, "/api/v1/knowledge/lookup", `{"domain":"qa","query":"what is go"}`, nil)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agentcache_lookups_total{domain="qa",tier="miss"} 1`)
}

func TestParseTimeRange(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"1h", now.Add(-time.Hour), false},
		{"24h", now.Add(-24 * time.Hour), false},
		{"7d", now.Add(-7 * 24 * time.Hour), false},
		{"30d", now.Add(-30 * 24 * time.Hour), false},
		{"1y", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeRange(tt.in, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
