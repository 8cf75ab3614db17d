package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/agentcache/internal/profile"
	storetest "github.com/hrygo/agentcache/store/test"
)

func newTestProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p, err := profile.Load(viper.New(), "")
	require.NoError(t, err)
	p.Port = 0
	return p
}

func TestNewServer(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name     string
		redisURL string
		wantErr  bool
	}{
		{"memory only", "", false},
		{"with redis", "redis://" + mr.Addr(), false},
		{"unreachable redis", "redis://127.0.0.1:1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProfile(t)
			p.RedisURL = tt.redisURL
			ts := storetest.NewTestingStore(ctx, t)

			s, err := NewServer(ctx, p, ts, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.redisURL != "", s.cache.HasL2())
			s.closeServices()
		})
	}
}

func TestServerRoutes(t *testing.T) {
	ctx := context.Background()
	s, err := NewServer(ctx, newTestProfile(t), storetest.NewTestingStore(ctx, t), nil)
	require.NoError(t, err)
	t.Cleanup(s.closeServices)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/knowledge", strings.NewReader(`{"domain":"qa","query":"what is go","payload":{"a":1}}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
