package metrics

import (
	"log/slog"
	"sort"
	"sync"
)

// Log emits counters as debug-level slog records. Useful as a default sink
// when no statsd-style backend is wired.
type Log struct{}

func (Log) Incr(name string, sampleRate float64, tags Tags) {
	if !sampled(sampleRate) {
		return
	}
	attrs := make([]any, 0, 2+2*len(tags))
	attrs = append(attrs, "metric", name)
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, tags[k])
	}
	slog.Debug("incr", attrs...)
}

// Noop discards all counters.
type Noop struct{}

func (Noop) Incr(string, float64, Tags) {}

// Multi fans out every increment to multiple sinks sequentially.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a Multi fanning out to the given sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Incr(name string, sampleRate float64, tags Tags) {
	for _, s := range m.sinks {
		s.Incr(name, sampleRate, tags)
	}
}

// Recorder captures increments for inspection in tests. Safe for concurrent
// use.
type Recorder struct {
	mu     sync.Mutex
	counts []Count
}

// Count is one recorded increment.
type Count struct {
	Name string
	Tags Tags
}

func (r *Recorder) Incr(name string, sampleRate float64, tags Tags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(Tags, len(tags))
	for k, v := range tags {
		copied[k] = v
	}
	r.counts = append(r.counts, Count{Name: name, Tags: copied})
}

// Counts returns all recorded increments in order.
func (r *Recorder) Counts() []Count {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Count, len(r.counts))
	copy(out, r.counts)
	return out
}

// ByName returns recorded increments matching the given counter name.
func (r *Recorder) ByName(name string) []Count {
	var out []Count
	for _, c := range r.Counts() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
