package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/burl/internal/model"
)

// Redis is a Store keeping ledger entries as JSON values in Redis, one key
// per (project, hash). Suitable when the host's relational store is fronted
// by a cache or for multi-worker test rigs; entries never expire.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a Redis ledger.
type RedisOption func(*Redis)

// WithPrefix sets the key namespace. Default: "burl:grouphash".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis creates a Redis-backed ledger.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, prefix: "burl:grouphash"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(projectID int64, hash string) string {
	return fmt.Sprintf("%s:%d:%s", r.prefix, projectID, hash)
}

// FindByHashAndProject implements Store.
func (r *Redis) FindByHashAndProject(ctx context.Context, hash string, projectID int64) (*model.GroupHash, error) {
	raw, err := r.rdb.Get(ctx, r.key(projectID, hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: redis get: %w", err)
	}
	var entry model.GroupHash
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("ledger: decode entry %d:%s: %w", projectID, hash, err)
	}
	return &entry, nil
}

// UpdateMetadata implements Store.
func (r *Redis) UpdateMetadata(ctx context.Context, entry *model.GroupHash) error {
	return r.Put(ctx, entry)
}

// Put implements Store.
func (r *Redis) Put(ctx context.Context, entry *model.GroupHash) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("ledger: encode entry %d:%s: %w", entry.ProjectID, entry.Hash, err)
	}
	if err := r.rdb.Set(ctx, r.key(entry.ProjectID, entry.Hash), raw, 0).Err(); err != nil {
		return fmt.Errorf("ledger: redis set: %w", err)
	}
	return nil
}
