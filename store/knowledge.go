package store

import (
	"context"
	"encoding/json"
)

// KnowledgeRecord is a cached query together with the result an agent
// produced for it (search results, an insight, a generated answer).
type KnowledgeRecord struct {
	ID            int64           `json:"id"`
	UID           string          `json:"uid"`
	Domain        string          `json:"domain"`     // research/analysis/creative/development/planning/execution/communication/qa/document
	QueryHash     string          `json:"query_hash"` // hex sha256 of domain + normalized query
	OriginalQuery string          `json:"original_query"`
	Payload       json.RawMessage `json:"payload"`
	Source        string          `json:"source"`     // provenance, e.g. "web_search" or "llm"
	Confidence    float32         `json:"confidence"` // 0-1
	HitCount      int64           `json:"hit_count"`
	CreatedTs     int64           `json:"created_ts"`
	UpdatedTs     int64           `json:"updated_ts"`
}

// FindKnowledgeRecord specifies the conditions for finding knowledge records.
// Results are ordered newest first.
type FindKnowledgeRecord struct {
	ID           *int64
	UID          *string
	Domain       *string
	QueryHash    *string
	CreatedAfter *int64 // unix seconds, exclusive
	Limit        int
	Offset       int
}

// DeleteKnowledgeRecord specifies the conditions for deleting knowledge records.
// At least one condition is required.
type DeleteKnowledgeRecord struct {
	ID            *int64
	Domain        *string
	CreatedBefore *int64 // unix seconds, exclusive
}

// KnowledgeEmbedding is the vector representation of a record's query.
type KnowledgeEmbedding struct {
	RecordID  int64
	Embedding []float32
	Model     string
	CreatedTs int64
}

// KnowledgeVectorSearch represents the options for vector search.
type KnowledgeVectorSearch struct {
	Domain string    // Required, only search records of this domain
	Vector []float32 // Query vector
	Model  string    // Embedding model the vector was produced with
	Limit  int       // Number of results to return, default 10
}

// KnowledgeWithScore represents a vector search result with similarity score.
type KnowledgeWithScore struct {
	Record *KnowledgeRecord
	Score  float32 // cosine similarity, higher is more similar
}

func (s *Store) CreateKnowledgeRecord(ctx context.Context, create *KnowledgeRecord) (*KnowledgeRecord, error) {
	return s.driver.CreateKnowledgeRecord(ctx, create)
}

func (s *Store) ListKnowledgeRecords(ctx context.Context, find *FindKnowledgeRecord) ([]*KnowledgeRecord, error) {
	return s.driver.ListKnowledgeRecords(ctx, find)
}

// GetKnowledgeRecordByHash returns the record stored under hash in domain,
// or nil if there is none.
func (s *Store) GetKnowledgeRecordByHash(ctx context.Context, domain, hash string) (*KnowledgeRecord, error) {
	list, err := s.driver.ListKnowledgeRecords(ctx, &FindKnowledgeRecord{
		Domain:    &domain,
		QueryHash: &hash,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// TouchKnowledgeRecord increments the hit counter of a record.
func (s *Store) TouchKnowledgeRecord(ctx context.Context, id int64) error {
	return s.driver.TouchKnowledgeRecord(ctx, id)
}

// DeleteKnowledgeRecords deletes matching records and returns how many were removed.
func (s *Store) DeleteKnowledgeRecords(ctx context.Context, delete *DeleteKnowledgeRecord) (int64, error) {
	return s.driver.DeleteKnowledgeRecords(ctx, delete)
}

func (s *Store) UpsertKnowledgeEmbedding(ctx context.Context, embedding *KnowledgeEmbedding) error {
	return s.driver.UpsertKnowledgeEmbedding(ctx, embedding)
}

// SearchKnowledgeByVector performs semantic search using vector similarity.
func (s *Store) SearchKnowledgeByVector(ctx context.Context, opts *KnowledgeVectorSearch) ([]*KnowledgeWithScore, error) {
	return s.driver.SearchKnowledgeByVector(ctx, opts)
}
