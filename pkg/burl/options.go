package burl

import (
	"time"

	"github.com/crimson-sun/burl/internal/config"
)

// MetricsSink receives observability counters. Implementations must be
// fire-and-forget.
type MetricsSink interface {
	Incr(name string, sampleRate float64, tags map[string]string)
}

// ErrorSink receives absorbed remote-call failures.
type ErrorSink interface {
	CaptureException(err error, tags map[string]string)
}

type options struct {
	cfg     config.Config
	metrics MetricsSink
	errors  ErrorSink
}

// Option configures a Burl instance.
type Option func(*options)

// WithSimilarityService sets the remote service endpoint and auth token.
// Defaults come from BURL_SIMILARITY_URL / BURL_SIMILARITY_TOKEN.
func WithSimilarityService(endpoint, token string) Option {
	return func(o *options) {
		o.cfg.Similarity.Endpoint = endpoint
		o.cfg.Similarity.Token = token
	}
}

// WithRedisAddr points the rate limiter, circuit breaker, and ledger at a
// shared Redis instance instead of in-process state.
func WithRedisAddr(addr string) Option {
	return func(o *options) { o.cfg.Redis.Addr = addr }
}

// WithBackfilledProjects marks projects whose one-time similarity backfill
// has completed. Only backfilled projects are eligible for similarity calls.
func WithBackfilledProjects(projectIDs ...int64) Option {
	return func(o *options) { o.cfg.BackfilledProjects = projectIDs }
}

// WithKillswitchProjects turns the ingest killswitch on for the given
// projects.
func WithKillswitchProjects(projectIDs ...int64) Option {
	return func(o *options) { o.cfg.KillswitchProjects = projectIDs }
}

// WithGlobalRateLimit overrides the global-scope rate limit. Default: 20/s.
func WithGlobalRateLimit(limit int, window time.Duration) Option {
	return func(o *options) {
		o.cfg.Limits.Global = config.RateLimit{Limit: limit, Window: window}
	}
}

// WithProjectRateLimit overrides the per-project rate limit. Default: 5/s.
func WithProjectRateLimit(limit int, window time.Duration) Option {
	return func(o *options) {
		o.cfg.Limits.PerProject = config.RateLimit{Limit: limit, Window: window}
	}
}

// WithBreaker overrides the circuit-breaker tuning: the failure ratio at
// which the circuit opens, the minimum sample size, and the trailing window.
func WithBreaker(errorThreshold float64, minimumHits int, window time.Duration) Option {
	return func(o *options) {
		o.cfg.Limits.Breaker = config.Breaker{
			ErrorThreshold: errorThreshold,
			MinimumHits:    minimumHits,
			Window:         window,
		}
	}
}

// WithMetricsSink routes counters to a custom sink. Default: a debug-level
// slog sink.
func WithMetricsSink(s MetricsSink) Option {
	return func(o *options) { o.metrics = s }
}

// WithErrorSink routes absorbed remote-call failures to a custom sink, e.g.
// an error tracker. Default: slog.
func WithErrorSink(s ErrorSink) Option {
	return func(o *options) { o.errors = s }
}

func defaultOptions() options {
	return options{cfg: config.Load()}
}
