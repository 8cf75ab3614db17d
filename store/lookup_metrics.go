package store

import (
	"context"
	"time"
)

// LookupMetrics represents hourly aggregated knowledge lookups for a domain and tier.
type LookupMetrics struct {
	ID           int64
	HourBucket   time.Time
	Domain       string
	Tier         string // exact/semantic/vector/miss
	LookupCount  int64
	HitCount     int64
	LatencySumMs int64
	LatencyP50Ms int32
	LatencyP95Ms int32
}

// UpsertLookupMetrics specifies the data for upserting lookup metrics.
// Counts are added to an existing bucket.
type UpsertLookupMetrics struct {
	HourBucket   time.Time
	Domain       string
	Tier         string
	LookupCount  int64
	HitCount     int64
	LatencySumMs int64
	LatencyP50Ms int32
	LatencyP95Ms int32
}

// FindLookupMetrics specifies the conditions for finding lookup metrics.
type FindLookupMetrics struct {
	Domain    *string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
}

// DeleteLookupMetrics specifies the conditions for deleting lookup metrics.
type DeleteLookupMetrics struct {
	BeforeTime *time.Time // Delete records older than this time
}

func (s *Store) UpsertLookupMetrics(ctx context.Context, upsert *UpsertLookupMetrics) (*LookupMetrics, error) {
	return s.driver.UpsertLookupMetrics(ctx, upsert)
}

func (s *Store) ListLookupMetrics(ctx context.Context, find *FindLookupMetrics) ([]*LookupMetrics, error) {
	return s.driver.ListLookupMetrics(ctx, find)
}

func (s *Store) DeleteLookupMetrics(ctx context.Context, delete *DeleteLookupMetrics) (int64, error) {
	return s.driver.DeleteLookupMetrics(ctx, delete)
}
