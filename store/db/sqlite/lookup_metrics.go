package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/agentcache/store"
)

// Hour buckets are stored as RFC3339 UTC text so that they sort and compare
// lexically.
func formatBucket(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseBucket(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour bucket %q: %w", s, err)
	}
	return t, nil
}

func (d *DB) UpsertLookupMetrics(ctx context.Context, upsert *store.UpsertLookupMetrics) (*store.LookupMetrics, error) {
	if upsert == nil {
		return nil, fmt.Errorf("upsert parameter cannot be nil")
	}

	query := `
		INSERT INTO lookup_metrics (hour_bucket, domain, tier, lookup_count, hit_count, latency_sum_ms, latency_p50_ms, latency_p95_ms)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (hour_bucket, domain, tier) DO UPDATE SET
			lookup_count = lookup_count + excluded.lookup_count,
			hit_count = hit_count + excluded.hit_count,
			latency_sum_ms = latency_sum_ms + excluded.latency_sum_ms,
			latency_p50_ms = excluded.latency_p50_ms,
			latency_p95_ms = excluded.latency_p95_ms
		RETURNING id, hour_bucket, domain, tier, lookup_count, hit_count, latency_sum_ms, latency_p50_ms, latency_p95_ms
	`

	var m store.LookupMetrics
	var bucket string
	err := d.db.QueryRowContext(ctx, query,
		formatBucket(upsert.HourBucket), upsert.Domain, upsert.Tier, upsert.LookupCount, upsert.HitCount,
		upsert.LatencySumMs, upsert.LatencyP50Ms, upsert.LatencyP95Ms,
	).Scan(
		&m.ID, &bucket, &m.Domain, &m.Tier,
		&m.LookupCount, &m.HitCount, &m.LatencySumMs,
		&m.LatencyP50Ms, &m.LatencyP95Ms,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert lookup metrics: %w", err)
	}
	if m.HourBucket, err = parseBucket(bucket); err != nil {
		return nil, err
	}

	return &m, nil
}

func (d *DB) ListLookupMetrics(ctx context.Context, find *store.FindLookupMetrics) ([]*store.LookupMetrics, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}
	if find.Domain != nil {
		where, args = append(where, "domain = ?"), append(args, *find.Domain)
	}
	if find.StartTime != nil {
		where, args = append(where, "hour_bucket >= ?"), append(args, formatBucket(*find.StartTime))
	}
	if find.EndTime != nil {
		where, args = append(where, "hour_bucket < ?"), append(args, formatBucket(*find.EndTime))
	}

	query := `SELECT id, hour_bucket, domain, tier, lookup_count, hit_count, latency_sum_ms, latency_p50_ms, latency_p95_ms
		FROM lookup_metrics WHERE ` + strings.Join(where, " AND ") + ` ORDER BY hour_bucket DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", clampLimit(find.Limit, store.MaxListLimit))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lookup metrics: %w", err)
	}
	defer rows.Close()

	list := make([]*store.LookupMetrics, 0)
	for rows.Next() {
		var m store.LookupMetrics
		var bucket string
		if err := rows.Scan(
			&m.ID, &bucket, &m.Domain, &m.Tier,
			&m.LookupCount, &m.HitCount, &m.LatencySumMs,
			&m.LatencyP50Ms, &m.LatencyP95Ms,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lookup metrics: %w", err)
		}
		if m.HourBucket, err = parseBucket(bucket); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lookup metrics: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteLookupMetrics(ctx context.Context, delete *store.DeleteLookupMetrics) (int64, error) {
	if delete == nil || delete.BeforeTime == nil {
		return 0, fmt.Errorf("no condition to delete lookup_metrics")
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM lookup_metrics WHERE hour_bucket < ?`, formatBucket(*delete.BeforeTime))
	if err != nil {
		return 0, fmt.Errorf("failed to delete lookup metrics: %w", err)
	}
	return result.RowsAffected()
}
