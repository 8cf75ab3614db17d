package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/agentcache/store"
)

// UpsertKnowledgeEmbedding inserts or updates the embedding of a record.
func (d *DB) UpsertKnowledgeEmbedding(ctx context.Context, embedding *store.KnowledgeEmbedding) error {
	if embedding == nil || len(embedding.Embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}

	stmt := `
		INSERT INTO knowledge_embedding (record_id, model, embedding, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (record_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			created_ts = EXCLUDED.created_ts
	`

	vector := pgvector.NewVector(embedding.Embedding)
	if _, err := d.db.ExecContext(ctx, stmt,
		embedding.RecordID,
		embedding.Model,
		vector,
		embedding.CreatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to upsert knowledge embedding")
	}
	return nil
}

// SearchKnowledgeByVector returns the records of a domain closest to the
// query vector. The <=> operator is cosine distance, so score = 1 - distance.
func (d *DB) SearchKnowledgeByVector(ctx context.Context, opts *store.KnowledgeVectorSearch) ([]*store.KnowledgeWithScore, error) {
	if opts == nil || len(opts.Vector) == 0 {
		return nil, errors.New("vector search requires a query vector")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			r.id, r.uid, r.domain, r.query_hash, r.original_query, r.payload,
			r.source, r.confidence, r.hit_count, r.created_ts, r.updated_ts,
			1 - (e.embedding <=> ` + placeholder(1) + `) AS score
		FROM knowledge_record r
		INNER JOIN knowledge_embedding e ON r.id = e.record_id
		WHERE r.domain = ` + placeholder(2) + `
			AND e.model = ` + placeholder(3) + `
		ORDER BY e.embedding <=> ` + placeholder(1) + `
		LIMIT ` + placeholder(4)

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query, vector, opts.Domain, opts.Model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.KnowledgeWithScore{}
	for rows.Next() {
		var score float64
		record, err := scanKnowledgeRecord(rows, &score)
		if err != nil {
			return nil, err
		}
		results = append(results, &store.KnowledgeWithScore{Record: record, Score: float32(score)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vector search results: %w", err)
	}

	return results, nil
}
