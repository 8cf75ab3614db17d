// Package knowledge is the agent-facing knowledge cache. Lookups are
// answered by the cheapest tier that can: an exact normalized-query hash,
// then composite similarity over recent records of the same domain, then
// embedding nearest neighbours re-scored by the same matcher.
package knowledge

import (
	"context"
	"encoding/json"

	"github.com/hrygo/agentcache/plugin/ai/metrics"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
	"github.com/hrygo/agentcache/store"
)

// KnowledgeService defines the knowledge cache interface used by agents.
type KnowledgeService interface {
	// Lookup returns a cached record for a semantically equivalent query.
	Lookup(ctx context.Context, req *LookupRequest) (*LookupResult, error)

	// Remember stores the result an agent produced for a query.
	Remember(ctx context.Context, req *RememberRequest) (*store.KnowledgeRecord, error)

	// Forget drops every record of a domain and returns how many were removed.
	Forget(ctx context.Context, domain string) (int64, error)

	// Stats returns lookup statistics.
	Stats(ctx context.Context, timeRange metrics.TimeRange) (*metrics.LookupStats, error)
}

// LookupRequest contains input for a lookup.
type LookupRequest struct {
	Domain string `json:"domain"`
	Query  string `json:"query"`
	// Threshold overrides the domain threshold for this lookup.
	Threshold *float64 `json:"threshold,omitempty"`
}

// LookupResult contains the outcome of a lookup.
type LookupResult struct {
	Hit bool `json:"hit"`
	// Tier is the tier that answered, or metrics.TierMiss.
	Tier   string                 `json:"tier"`
	Record *store.KnowledgeRecord `json:"record,omitempty"`
	// Similarity is the composite score of Record, or the best score seen on a miss.
	Similarity float64            `json:"similarity"`
	Metrics    similarity.Metrics `json:"metrics"`
	Threshold  float64            `json:"threshold"`
	LatencyMs  int64              `json:"latency_ms"`
}

// RememberRequest contains a result to store.
type RememberRequest struct {
	Domain     string          `json:"domain"`
	Query      string          `json:"query"`
	Payload    json.RawMessage `json:"payload"`
	Source     string          `json:"source,omitempty"`
	Confidence float32         `json:"confidence,omitempty"`
}
