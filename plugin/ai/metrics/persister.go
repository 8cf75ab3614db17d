package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/agentcache/store"
)

// Persister handles periodic persistence of aggregated metrics to the database.
type Persister struct {
	store      *store.Store
	aggregator *Aggregator

	cancel context.CancelFunc
	wg     sync.WaitGroup

	flushInterval   time.Duration
	retentionPeriod time.Duration
	cleanupInterval time.Duration
}

// PersisterConfig configures the metrics persister.
type PersisterConfig struct {
	FlushInterval   time.Duration // How often to flush metrics to DB (default: 5 minutes)
	RetentionPeriod time.Duration // How long to keep metrics (default: 30 days)
	CleanupInterval time.Duration // How often to run cleanup (default: 24 hours)
}

// DefaultPersisterConfig returns default persister configuration.
func DefaultPersisterConfig() PersisterConfig {
	return PersisterConfig{
		FlushInterval:   5 * time.Minute,
		RetentionPeriod: 30 * 24 * time.Hour,
		CleanupInterval: 24 * time.Hour,
	}
}

// NewPersister creates a new metrics persister.
func NewPersister(s *store.Store, agg *Aggregator, cfg PersisterConfig) *Persister {
	defaults := DefaultPersisterConfig()
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.RetentionPeriod <= 0 {
		cfg.RetentionPeriod = defaults.RetentionPeriod
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	return &Persister{
		store:           s,
		aggregator:      agg,
		flushInterval:   cfg.FlushInterval,
		retentionPeriod: cfg.RetentionPeriod,
		cleanupInterval: cfg.CleanupInterval,
	}
}

// Start begins the background persistence and cleanup tasks.
func (p *Persister) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(2)
	go p.flushLoop(ctx)
	go p.cleanupLoop(ctx)
}

// Close stops the persister and waits for goroutines to finish.
func (p *Persister) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Flush persists every completed hour bucket. Buckets that fail to persist
// are logged and dropped; the first error is returned.
func (p *Persister) Flush(ctx context.Context) error {
	return p.flushBefore(ctx, truncateToHour(p.aggregator.now()))
}

func (p *Persister) flushBefore(ctx context.Context, beforeHour time.Time) error {
	var firstErr error
	for _, snapshot := range p.aggregator.Flush(beforeHour) {
		_, err := p.store.UpsertLookupMetrics(ctx, &store.UpsertLookupMetrics{
			HourBucket:   snapshot.HourBucket,
			Domain:       snapshot.Domain,
			Tier:         snapshot.Tier,
			LookupCount:  snapshot.LookupCount,
			HitCount:     snapshot.HitCount,
			LatencySumMs: snapshot.LatencySumMs,
			LatencyP50Ms: snapshot.LatencyP50Ms,
			LatencyP95Ms: snapshot.LatencyP95Ms,
		})
		if err != nil {
			slog.Error("failed to persist lookup metrics",
				slog.String("domain", snapshot.Domain),
				slog.String("tier", snapshot.Tier),
				slog.Time("hour", snapshot.HourBucket),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (p *Persister) flushLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush before shutdown, including the current hour.
			_ = p.flushBefore(context.Background(), truncateToHour(p.aggregator.now()).Add(time.Hour))
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				slog.Error("periodic metrics flush failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (p *Persister) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *Persister) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.retentionPeriod)

	n, err := p.store.DeleteLookupMetrics(ctx, &store.DeleteLookupMetrics{BeforeTime: &cutoff})
	if err != nil {
		slog.Error("failed to cleanup old lookup metrics", slog.String("error", err.Error()))
		return
	}

	slog.Debug("metrics cleanup completed", slog.Time("cutoff", cutoff), slog.Int64("removed", n))
}
