package breaker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/burl/internal/config"
)

// RedisStore is a CounterStore backed by Redis, sharing breaker state across
// workers. Each time bucket is a hash with "success"/"failure" fields; bucket
// keys expire shortly after they leave the trailing window.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithStorePrefix sets the key namespace. Default: "burl:breaker".
func WithStorePrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore creates a Redis-backed outcome counter store.
func NewRedisStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "burl:breaker"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements CounterStore.
func (s *RedisStore) Record(ctx context.Context, key string, success bool, cfg config.Breaker) error {
	gran := granularity(cfg.Window)
	bucket := time.Now().UnixNano() / int64(gran)
	bucketKey := s.bucketKey(key, bucket)

	field := "failure"
	if success {
		field = "success"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	// Keep a bucket around a little past the window so a read racing the
	// expiry still sees it.
	pipe.Expire(ctx, bucketKey, cfg.Window+2*gran)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("breaker: redis record %s: %w", bucketKey, err)
	}
	return nil
}

// Counts implements CounterStore.
func (s *RedisStore) Counts(ctx context.Context, key string, cfg config.Breaker) (int64, int64, error) {
	gran := granularity(cfg.Window)
	newest := time.Now().UnixNano() / int64(gran)

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, bucketCount)
	for bucket := newest - bucketCount + 1; bucket <= newest; bucket++ {
		cmds = append(cmds, pipe.HGetAll(ctx, s.bucketKey(key, bucket)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("breaker: redis counts %s: %w", key, err)
	}

	var successes, failures int64
	for _, cmd := range cmds {
		fields := cmd.Val()
		if n, err := strconv.ParseInt(fields["success"], 10, 64); err == nil {
			successes += n
		}
		if n, err := strconv.ParseInt(fields["failure"], 10, 64); err == nil {
			failures += n
		}
	}
	return successes, failures, nil
}

func (s *RedisStore) bucketKey(key string, bucket int64) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, key, bucket)
}
