package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/crimson-sun/burl/internal/config"
)

// Memory is an in-process Limiter backed by per-key token buckets. Each key
// gets a bucket refilling at limit/window per second with a burst of limit,
// which approximates a fixed window without a timer per key. Idle buckets are
// dropped after idleTTL.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	idleTTL time.Duration
	lastGC  time.Time
}

type memoryEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// MemoryOption configures a Memory limiter.
type MemoryOption func(*Memory)

// WithIdleTTL sets how long an unused key's bucket is retained. Default: 15m.
func WithIdleTTL(d time.Duration) MemoryOption {
	return func(m *Memory) { m.idleTTL = d }
}

// NewMemory creates an in-process limiter.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*memoryEntry),
		idleTTL: 15 * time.Minute,
		lastGC:  time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsLimited implements Limiter. It never returns an error.
func (m *Memory) IsLimited(_ context.Context, key string, spec config.RateLimit) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastGC) > m.idleTTL {
		m.gcLocked(now)
	}

	ent, ok := m.entries[key]
	if !ok {
		rps := rate.Limit(spec.PerSecond())
		if rps <= 0 {
			rps = rate.Inf
		}
		ent = &memoryEntry{lim: rate.NewLimiter(rps, max(spec.Limit, 1))}
		m.entries[key] = ent
	}
	ent.lastSeen = now

	return !ent.lim.Allow(), nil
}

// gcLocked drops buckets not seen within idleTTL. Caller must hold m.mu.
func (m *Memory) gcLocked(now time.Time) {
	cutoff := now.Add(-m.idleTTL)
	for k, ent := range m.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(m.entries, k)
		}
	}
	m.lastGC = now
}
