// Package limiter provides the fixed-window rate-limit check used to cap
// similarity-service traffic. A check is also an attempt: every call consumes
// one unit of the window's budget, so callers must only check once they are
// otherwise committed to proceeding.
package limiter

import (
	"context"

	"github.com/crimson-sun/burl/internal/config"
)

// Limiter answers whether an action under the given key is over budget.
// Implementations are shared counters and must be safe for concurrent use
// from many workers.
type Limiter interface {
	// IsLimited increments the window counter for key and reports whether the
	// spec's budget is now exceeded. A non-nil error means the backend could
	// not be consulted; callers decide whether to fail open.
	IsLimited(ctx context.Context, key string, spec config.RateLimit) (bool, error)
}
