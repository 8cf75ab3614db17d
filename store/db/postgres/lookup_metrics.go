package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/agentcache/store"
)

func (d *DB) UpsertLookupMetrics(ctx context.Context, upsert *store.UpsertLookupMetrics) (*store.LookupMetrics, error) {
	if upsert == nil {
		return nil, fmt.Errorf("upsert parameter cannot be nil")
	}

	query := `
		INSERT INTO lookup_metrics (hour_bucket, domain, tier, lookup_count, hit_count, latency_sum_ms, latency_p50_ms, latency_p95_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (hour_bucket, domain, tier) DO UPDATE SET
			lookup_count = lookup_metrics.lookup_count + EXCLUDED.lookup_count,
			hit_count = lookup_metrics.hit_count + EXCLUDED.hit_count,
			latency_sum_ms = lookup_metrics.latency_sum_ms + EXCLUDED.latency_sum_ms,
			latency_p50_ms = EXCLUDED.latency_p50_ms,
			latency_p95_ms = EXCLUDED.latency_p95_ms
		RETURNING id, hour_bucket, domain, tier, lookup_count, hit_count, latency_sum_ms, latency_p50_ms, latency_p95_ms
	`

	var m store.LookupMetrics
	err := d.db.QueryRowContext(ctx, query,
		upsert.HourBucket, upsert.Domain, upsert.Tier, upsert.LookupCount, upsert.HitCount,
		upsert.LatencySumMs, upsert.LatencyP50Ms, upsert.LatencyP95Ms,
	).Scan(
		&m.ID, &m.HourBucket, &m.Domain, &m.Tier,
		&m.LookupCount, &m.HitCount, &m.LatencySumMs,
		&m.LatencyP50Ms, &m.LatencyP95Ms,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert lookup metrics: %w", err)
	}

	return &m, nil
}

func (d *DB) ListLookupMetrics(ctx context.Context, find *store.FindLookupMetrics) ([]*store.LookupMetrics, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}
	if find.Domain != nil {
		where, args = append(where, "domain = "+placeholder(len(args)+1)), append(args, *find.Domain)
	}
	if find.StartTime != nil {
		where, args = append(where, "hour_bucket >= "+placeholder(len(args)+1)), append(args, *find.StartTime)
	}
	if find.EndTime != nil {
		where, args = append(where, "hour_bucket < "+placeholder(len(args)+1)), append(args, *find.EndTime)
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
		if err := rows.Scan(
			&m.ID, &m.HourBucket, &m.Domain, &m.Tier,
			&m.LookupCount, &m.HitCount, &m.LatencySumMs,
			&m.LatencyP50Ms, &m.LatencyP95Ms,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lookup metrics: %w", err)
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

	result, err := d.db.ExecContext(ctx, `DELETE FROM lookup_metrics WHERE hour_bucket < $1`, *delete.BeforeTime)
	if err != nil {
		return 0, fmt.Errorf("failed to delete lookup metrics: %w", err)
	}
	return result.RowsAffected()
}
