package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/hrygo/agentcache/plugin/ai/timeout"
)

// scanBatch bounds both SCAN page size and DEL batch size.
const scanBatch = 100

// RedisTier is the shared L2 tier. It lets several cache nodes answer exact
// repeats for each other and survives process restarts.
type RedisTier struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisTier connects to the Redis server at url (redis://host:port/db).
func NewRedisTier(ctx context.Context, url string, defaultTTL time.Duration) (*RedisTier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	opts.DialTimeout = timeout.RedisDialTimeout
	opts.ReadTimeout = timeout.RedisIOTimeout
	opts.WriteTimeout = timeout.RedisIOTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout.RedisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}

	slog.Info("redis cache tier connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return NewRedisTierWithClient(client, defaultTTL), nil
}

// NewRedisTierWithClient wraps an existing client.
func NewRedisTierWithClient(client *redis.Client, defaultTTL time.Duration) *RedisTier {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &RedisTier{client: client, defaultTTL: defaultTTL}
}

// Get returns false on a miss and on any Redis failure; failures are logged.
func (r *RedisTier) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("redis get failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	return data, true
}

func (r *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to set redis key %s", key)
	}
	return nil
}

// Invalidate deletes key, or walks the keyspace with SCAN when pattern ends
// in * and deletes the matches in batches once the scan is complete.
func (r *RedisTier) Invalidate(ctx context.Context, pattern string) error {
	if pattern == "" {
		return nil
	}
	if pattern[len(pattern)-1] != '*' {
		if err := r.client.Del(ctx, pattern).Err(); err != nil {
			return errors.Wrapf(err, "failed to delete redis key %s", pattern)
		}
		return nil
	}

	// Deleting while SCAN is walking the keyspace can make the cursor skip
	// keys, so matches are collected before anything is removed.
	var keys []string
	var cursor uint64
	for {
		page, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return errors.Wrapf(err, "failed to scan redis keys %s", pattern)
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}

	removed := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := r.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return errors.Wrap(err, "failed to delete redis keys")
		}
		removed += int(n)
	}

	slog.Debug("redis cache invalidated", slog.String("pattern", pattern), slog.Int("removed", removed))
	return nil
}

func (r *RedisTier) Close() error {
	return r.client.Close()
}

var _ CacheService = (*RedisTier)(nil)
