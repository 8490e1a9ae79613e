package metrics

import "math/rand"

// Tags is a free-form label set attached to a counter increment.
type Tags map[string]string

// Sink receives observability counters from the decision path. Implementations
// must be fire-and-forget: never block, never fail the pipeline.
type Sink interface {
	// Incr records one occurrence of the named counter. sampleRate in (0, 1]
	// controls client-side sampling; values outside that range mean "always".
	Incr(name string, sampleRate float64, tags Tags)
}

// sampled reports whether an increment with the given rate should be emitted.
func sampled(rate float64) bool {
	if rate <= 0 || rate >= 1 {
		return true
	}
	return rand.Float64() < rate
}
