package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/burl/internal/config"
)

// Redis is a Limiter backed by shared fixed-window counters in Redis, so the
// budget is enforced across all workers. Each (key, window-start) pair maps to
// one counter incremented atomically and expired two windows later.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a Redis limiter.
type RedisOption func(*Redis)

// WithPrefix sets the key namespace. Default: "burl:ratelimit".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, prefix: "burl:ratelimit"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsLimited implements Limiter.
func (r *Redis) IsLimited(ctx context.Context, key string, spec config.RateLimit) (bool, error) {
	if spec.Limit <= 0 || spec.Window <= 0 {
		return false, nil
	}

	windowKey := r.windowKey(key, spec.Window, time.Now())

	pipe := r.rdb.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	// Two windows covers clock skew between workers near a boundary.
	pipe.Expire(ctx, windowKey, 2*spec.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("limiter: redis incr %s: %w", windowKey, err)
	}

	return incr.Val() > int64(spec.Limit), nil
}

// windowKey derives the counter key for the fixed window containing now.
func (r *Redis) windowKey(key string, window time.Duration, now time.Time) string {
	windowStart := now.UnixNano() / int64(window)
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, windowStart)
}
