// Package breaker guards calls to the similarity service with a
// failure-ratio circuit breaker. Outcome counts live in an external shared
// counter store; the breaker itself is stateless beyond its key, so every
// worker sees the same verdict.
package breaker

import (
	"context"
	"log/slog"

	"github.com/crimson-sun/burl/internal/config"
)

// CounterStore accumulates call outcomes in a trailing window per breaker
// key. Implementations must support concurrent access from many workers; the
// window decay is the store's responsibility.
type CounterStore interface {
	// Record adds one outcome for key within the given trailing window.
	Record(ctx context.Context, key string, success bool, window config.Breaker) error

	// Counts returns the success and failure totals currently inside the
	// trailing window for key.
	Counts(ctx context.Context, key string, window config.Breaker) (successes, failures int64, err error)
}

// Breaker is the admission check for one named downstream.
type Breaker struct {
	key   string
	store CounterStore
}

// New creates a Breaker for the given downstream key.
func New(key string, store CounterStore) *Breaker {
	return &Breaker{key: key, store: store}
}

// Key returns the breaker's downstream name.
func (b *Breaker) Key() string { return b.key }

// ShouldAllowRequest reports whether the circuit is closed. The circuit opens
// once the failure ratio over at least MinimumHits outcomes reaches the
// configured threshold; window decay in the store closes it again. Store
// errors fail open with a warning, so a counter outage cannot take down
// ingest by itself.
func (b *Breaker) ShouldAllowRequest(ctx context.Context, cfg config.Breaker) bool {
	successes, failures, err := b.store.Counts(ctx, b.key, cfg)
	if err != nil {
		slog.Warn("breaker counter store unavailable, failing open",
			"key", b.key, "error", err)
		return true
	}

	total := successes + failures
	if total < int64(cfg.MinimumHits) {
		return true
	}
	ratio := float64(failures) / float64(total)
	return ratio < cfg.ErrorThreshold
}

// RecordSuccess feeds a successful call outcome into the rolling window.
func (b *Breaker) RecordSuccess(ctx context.Context, cfg config.Breaker) {
	if err := b.store.Record(ctx, b.key, true, cfg); err != nil {
		slog.Warn("breaker outcome not recorded", "key", b.key, "error", err)
	}
}

// RecordFailure feeds a failed call outcome into the rolling window.
func (b *Breaker) RecordFailure(ctx context.Context, cfg config.Breaker) {
	if err := b.store.Record(ctx, b.key, false, cfg); err != nil {
		slog.Warn("breaker outcome not recorded", "key", b.key, "error", err)
	}
}
