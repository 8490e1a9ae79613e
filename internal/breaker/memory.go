package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/crimson-sun/burl/internal/config"
)

// bucketCount splits the trailing window into fixed sub-buckets so decay is
// incremental rather than all-at-once.
const bucketCount = 10

// Memory is an in-process CounterStore. Outcomes land in time buckets of
// window/bucketCount; Counts sums the buckets still inside the window.
type Memory struct {
	mu      sync.Mutex
	keys    map[string]map[int64]*outcomes
	nowFunc func() time.Time
}

type outcomes struct {
	successes int64
	failures  int64
}

// NewMemory creates an in-process outcome counter store.
func NewMemory() *Memory {
	return NewMemoryAt(time.Now)
}

// NewMemoryAt creates a store with an injected clock, for tests exercising
// window decay.
func NewMemoryAt(now func() time.Time) *Memory {
	return &Memory{
		keys:    make(map[string]map[int64]*outcomes),
		nowFunc: now,
	}
}

// Record implements CounterStore. It never returns an error.
func (m *Memory) Record(_ context.Context, key string, success bool, cfg config.Breaker) error {
	gran := granularity(cfg.Window)
	bucket := m.nowFunc().UnixNano() / int64(gran)

	m.mu.Lock()
	defer m.mu.Unlock()

	buckets, ok := m.keys[key]
	if !ok {
		buckets = make(map[int64]*outcomes)
		m.keys[key] = buckets
	}
	o, ok := buckets[bucket]
	if !ok {
		o = &outcomes{}
		buckets[bucket] = o
		m.pruneLocked(buckets, bucket)
	}
	if success {
		o.successes++
	} else {
		o.failures++
	}
	return nil
}

// Counts implements CounterStore.
func (m *Memory) Counts(_ context.Context, key string, cfg config.Breaker) (int64, int64, error) {
	gran := granularity(cfg.Window)
	newest := m.nowFunc().UnixNano() / int64(gran)
	oldest := newest - bucketCount + 1

	m.mu.Lock()
	defer m.mu.Unlock()

	var successes, failures int64
	for bucket, o := range m.keys[key] {
		if bucket >= oldest && bucket <= newest {
			successes += o.successes
			failures += o.failures
		}
	}
	return successes, failures, nil
}

// pruneLocked drops buckets that can no longer fall inside any window ending
// at or after newest. Caller must hold m.mu.
func (m *Memory) pruneLocked(buckets map[int64]*outcomes, newest int64) {
	for bucket := range buckets {
		if bucket < newest-bucketCount {
			delete(buckets, bucket)
		}
	}
}

// granularity returns the sub-bucket width for a trailing window.
func granularity(window time.Duration) time.Duration {
	g := window / bucketCount
	if g < time.Second {
		g = time.Second
	}
	return g
}
