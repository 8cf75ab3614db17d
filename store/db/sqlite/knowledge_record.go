package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/agentcache/store"
)

const knowledgeRecordColumns = "id, uid, domain, query_hash, original_query, payload, source, confidence, hit_count, created_ts, updated_ts"

// CreateKnowledgeRecord inserts a record, refreshing the existing one on a
// (domain, query_hash) conflict.
func (d *DB) CreateKnowledgeRecord(ctx context.Context, create *store.KnowledgeRecord) (*store.KnowledgeRecord, error) {
	if create == nil {
		return nil, fmt.Errorf("create parameter cannot be nil")
	}

	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	payload := string(create.Payload)
	if payload == "" {
		payload = "{}"
	}

	fields := []string{"uid", "domain", "query_hash", "original_query", "payload", "source", "confidence", "created_ts", "updated_ts"}
	args := []any{
		create.UID,
		create.Domain,
		create.QueryHash,
		create.OriginalQuery,
		payload,
		create.Source,
		create.Confidence,
		create.CreatedTs,
		create.UpdatedTs,
	}

	stmt := `INSERT INTO knowledge_record (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (domain, query_hash) DO UPDATE SET
			original_query = excluded.original_query,
			payload = excluded.payload,
			source = excluded.source,
			confidence = excluded.confidence,
			updated_ts = excluded.updated_ts
		RETURNING id, uid, hit_count, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.UID,
		&create.HitCount,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create knowledge_record: %w", err)
	}

	create.Payload = []byte(payload)
	return create, nil
}

func (d *DB) ListKnowledgeRecords(ctx context.Context, find *store.FindKnowledgeRecord) ([]*store.KnowledgeRecord, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.Domain != nil {
		where, args = append(where, "domain = ?"), append(args, *find.Domain)
	}
	if find.QueryHash != nil {
		where, args = append(where, "query_hash = ?"), append(args, *find.QueryHash)
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts > ?"), append(args, *find.CreatedAfter)
	}

	query := `SELECT ` + knowledgeRecordColumns + `
		FROM knowledge_record WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`

	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", clampLimit(find.Limit, store.MaxListLimit))
		if find.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge_records: %w", err)
	}
	defer rows.Close()

	list := make([]*store.KnowledgeRecord, 0)
	for rows.Next() {
		r := &store.KnowledgeRecord{}
		var payload string
		if err := rows.Scan(
			&r.ID,
			&r.UID,
			&r.Domain,
			&r.QueryHash,
			&r.OriginalQuery,
			&payload,
			&r.Source,
			&r.Confidence,
			&r.HitCount,
			&r.CreatedTs,
			&r.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge_record: %w", err)
		}
		r.Payload = []byte(payload)
		list = append(list, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge_records: %w", err)
	}

	return list, nil
}

func (d *DB) TouchKnowledgeRecord(ctx context.Context, id int64) error {
	result, err := d.db.ExecContext(ctx, `UPDATE knowledge_record SET hit_count = hit_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to touch knowledge_record: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("knowledge_record %d not found: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (d *DB) DeleteKnowledgeRecords(ctx context.Context, delete *store.DeleteKnowledgeRecord) (int64, error) {
	if delete == nil {
		return 0, fmt.Errorf("delete parameter cannot be nil")
	}

	where, args := []string{}, []any{}
	if delete.ID != nil {
		where, args = append(where, "id = ?"), append(args, *delete.ID)
	}
	if delete.Domain != nil {
		where, args = append(where, "domain = ?"), append(args, *delete.Domain)
	}
	if delete.CreatedBefore != nil {
		where, args = append(where, "created_ts < ?"), append(args, *delete.CreatedBefore)
	}

	if len(where) == 0 {
		return 0, fmt.Errorf("no condition to delete knowledge_record")
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM knowledge_record WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge_record: %w", err)
	}
	return result.RowsAffected()
}
