// Package gate decides whether an ingest event is worth a similarity-service
// call. The checks are layered cheapest-first and every rejection is tagged
// with a blocker reason, so the decision mix is observable per cause.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/crimson-sun/burl/internal/breaker"
	"github.com/crimson-sun/burl/internal/config"
	"github.com/crimson-sun/burl/internal/limiter"
	"github.com/crimson-sun/burl/internal/logging"
	"github.com/crimson-sun/burl/internal/metrics"
	"github.com/crimson-sun/burl/internal/model"
	"github.com/crimson-sun/burl/internal/stacktrace"
)

// Blocker reasons tagged on gate rejections. A fingerprint-variant rejection
// is tagged with the variant kind itself.
const (
	BlockerNone                = "none"
	BlockerNoStacktrace        = "no-stacktrace"
	BlockerUnsupportedPlatform = "unsupported-platform"
	BlockerExcessFrames        = "excess-frames"
	BlockerHybridFingerprint   = "hybrid-fingerprint"
	BlockerKillswitch          = "killswitch"
	BlockerCircuitBreaker      = "circuit-breaker"
	BlockerEmptyStacktrace     = "empty-stacktrace-string"
	BlockerGlobalRateLimit     = "global-rate-limit"
	BlockerProjectRateLimit    = "project-rate-limit"
)

// Counter names emitted by the gate and the engine.
const (
	MetricContentEligible = "grouping.similarity.event_content_eligible"
	MetricBackfillStatus  = "grouping.similarity.event_project_backfill_status"
	MetricDidCall         = "grouping.similarity.did_call"
)

// Rate-limit key for the global scope; the per-project scope derives its key
// from the project ID.
const globalRateLimitKey = "similarity:global-limit"

// ineligiblePlatforms lists platforms whose stack traces the similarity model
// cannot embed.
var ineligiblePlatforms = map[string]bool{
	"other":           true,
	"native":          true,
	"nintendo-switch": true,
	"playstation":     true,
	"xbox":            true,
}

// Killswitch evaluates the per-project emergency off switch.
type Killswitch interface {
	KillswitchActive(projectID int64, referrer string, eventID string) bool
}

// Gate runs the eligibility chain for one similarity downstream.
type Gate struct {
	cfg        config.Provider
	killswitch Killswitch
	limiter    limiter.Limiter
	breaker    *breaker.Breaker
	sink       metrics.Sink
}

// New creates a Gate.
func New(cfg config.Provider, ks Killswitch, lim limiter.Limiter, brk *breaker.Breaker, sink metrics.Sink) *Gate {
	return &Gate{cfg: cfg, killswitch: ks, limiter: lim, breaker: brk, sink: sink}
}

// IsEligible reports whether a similarity call should be made for the event.
// The rate-limit check is last on purpose: passing it consumes budget, and a
// rejection by any earlier check must not count as an attempt. On success the
// derived stacktrace string is cached on the event for the client to reuse.
func (g *Gate) IsEligible(ctx context.Context, event *model.Event, variants []model.GroupingVariant) bool {
	// Evaluate content and backfill status before returning on either, so
	// both counters are always recorded.
	contentEligible := g.contentEligible(event)
	backfilled := g.projectBackfilled(event.ProjectID)
	if !contentEligible || !backfilled {
		return false
	}

	switch {
	case g.tooManyFrames(variants):
		return false
	case g.customizedFingerprint(event, variants):
		return false
	case g.killswitchActive(event):
		return false
	case g.circuitBroken(ctx, event):
		return false
	case g.emptyStacktraceString(event, variants):
		return false
	case g.rateLimited(ctx, event):
		return false
	}
	return true
}

// RecordDidCall emits the call-made counter shared by the gate's rejections
// and the engine's positive decision.
func (g *Gate) RecordDidCall(callMade bool, blocker string) {
	g.sink.Incr(MetricDidCall, g.cfg.MetricsSampleRate(), metrics.Tags{
		"call_made": strconv.FormatBool(callMade),
		"blocker":   blocker,
	})
}

func (g *Gate) contentEligible(event *model.Event) bool {
	blocker := BlockerNone
	switch {
	case !event.HasStacktrace():
		blocker = BlockerNoStacktrace
	case ineligiblePlatforms[event.Platform]:
		blocker = BlockerUnsupportedPlatform
	}

	eligible := blocker == BlockerNone
	g.sink.Incr(MetricContentEligible, g.cfg.MetricsSampleRate(), metrics.Tags{
		"eligible": strconv.FormatBool(eligible),
		"blocker":  blocker,
	})
	if !eligible {
		g.RecordDidCall(false, blocker)
	}
	return eligible
}

func (g *Gate) projectBackfilled(projectID int64) bool {
	backfilled := g.cfg.ProjectBackfilled(projectID)
	g.sink.Incr(MetricBackfillStatus, g.cfg.MetricsSampleRate(), metrics.Tags{
		"backfilled": strconv.FormatBool(backfilled),
	})
	return backfilled
}

func (g *Gate) tooManyFrames(variants []model.GroupingVariant) bool {
	if stacktrace.TooManyContributingFrames(variants, g.cfg.MaxContributingFrames()) {
		g.RecordDidCall(false, BlockerExcessFrames)
		return true
	}
	return false
}

// customizedFingerprint rejects events whose grouping is driven by a custom
// or hybrid fingerprint: their grouping is already decided, so similarity
// input would be ignored anyway.
func (g *Gate) customizedFingerprint(event *model.Event, variants []model.GroupingVariant) bool {
	for _, token := range event.Fingerprint {
		if token != model.DefaultFingerprint {
			continue
		}
		if len(event.Fingerprint) == 1 {
			// Pure default: no customization.
			return false
		}
		// Default sentinel combined with other values.
		g.RecordDidCall(false, BlockerHybridFingerprint)
		return true
	}

	for _, v := range variants {
		if v.Kind == model.VariantCustomFingerprint || v.Kind == model.VariantBuiltInFingerprint {
			g.RecordDidCall(false, v.Kind)
			return true
		}
	}
	return false
}

func (g *Gate) killswitchActive(event *model.Event) bool {
	if g.killswitch != nil && g.killswitch.KillswitchActive(event.ProjectID, "ingest", event.ID) {
		g.RecordDidCall(false, BlockerKillswitch)
		return true
	}
	return false
}

func (g *Gate) circuitBroken(ctx context.Context, event *model.Event) bool {
	cfg := g.cfg.BreakerConfig()
	if g.breaker.ShouldAllowRequest(ctx, cfg) {
		return false
	}
	slog.Warn("similarity circuit breaker open",
		append(logging.EventAttrs(event.ID, event.ProjectID),
			"breaker_key", g.breaker.Key(),
			"error_threshold", cfg.ErrorThreshold,
			"minimum_hits", cfg.MinimumHits,
			"window", cfg.Window)...)
	g.RecordDidCall(false, BlockerCircuitBreaker)
	return true
}

// emptyStacktraceString derives the stacktrace text once, caching it on the
// event for the client. Left this late because the derivation is the most
// expensive of the local checks.
func (g *Gate) emptyStacktraceString(event *model.Event, variants []model.GroupingVariant) bool {
	s := stacktrace.FromEvent(event, variants)
	if s == "" {
		g.RecordDidCall(false, BlockerEmptyStacktrace)
		return true
	}
	event.CacheStacktraceString(s)
	return false
}

// rateLimited checks the global scope, then the per-project scope. The global
// check runs first; when it trips, the project budget is left untouched.
func (g *Gate) rateLimited(ctx context.Context, event *model.Event) bool {
	globalSpec := g.cfg.GlobalRateLimit()
	if g.isLimited(ctx, event, globalRateLimitKey, globalSpec, BlockerGlobalRateLimit) {
		return true
	}

	projectKey := fmt.Sprintf("similarity:project-%d-limit", event.ProjectID)
	return g.isLimited(ctx, event, projectKey, g.cfg.ProjectRateLimit(), BlockerProjectRateLimit)
}

func (g *Gate) isLimited(ctx context.Context, event *model.Event, key string, spec config.RateLimit, blocker string) bool {
	limited, err := g.limiter.IsLimited(ctx, key, spec)
	if err != nil {
		// Fail open: a limiter outage must not halt similarity grouping.
		slog.Warn("rate limiter unavailable, failing open",
			append(logging.EventAttrs(event.ID, event.ProjectID),
				"key", key, "error", err)...)
		return false
	}
	if !limited {
		return false
	}
	slog.Warn("similarity rate limit hit",
		append(logging.EventAttrs(event.ID, event.ProjectID),
			"scope", blocker,
			"limit_per_sec", spec.PerSecond())...)
	g.RecordDidCall(false, blocker)
	return true
}
