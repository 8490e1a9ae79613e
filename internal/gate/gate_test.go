package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crimson-sun/burl/internal/breaker"
	"github.com/crimson-sun/burl/internal/config"
	"github.com/crimson-sun/burl/internal/metrics"
	"github.com/crimson-sun/burl/internal/model"
)

var ctx = context.Background()

type fakeLimiter struct {
	limitedKeys map[string]bool
	err         error
	calls       []string
}

func (f *fakeLimiter) IsLimited(_ context.Context, key string, _ config.RateLimit) (bool, error) {
	f.calls = append(f.calls, key)
	if f.err != nil {
		return false, f.err
	}
	return f.limitedKeys[key], nil
}

type env struct {
	gate    *Gate
	limiter *fakeLimiter
	breaker *breaker.Breaker
	store   *breaker.Memory
	sink    *metrics.Recorder
	cfg     config.Config
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.Load()
	cfg.BackfilledProjects = []int64{7}
	provider := config.NewStatic(cfg)

	store := breaker.NewMemory()
	brk := breaker.New("similarity", store)
	lim := &fakeLimiter{limitedKeys: map[string]bool{}}
	sink := &metrics.Recorder{}

	return &env{
		gate:    New(provider, provider, lim, brk, sink),
		limiter: lim,
		breaker: brk,
		store:   store,
		sink:    sink,
		cfg:     cfg,
	}
}

func eligibleEvent() *model.Event {
	return &model.Event{
		ID:          "11112222333344445555666677778888",
		ProjectID:   7,
		Platform:    "python",
		Fingerprint: []string{model.DefaultFingerprint},
		PrimaryHash: "aaaa",
		Exceptions: []model.Exception{{
			Type:   "ValueError",
			Value:  "bad",
			Frames: []model.Frame{{Function: "f", Filename: "f.py"}},
		}},
	}
}

func eligibleVariants() []model.GroupingVariant {
	return []model.GroupingVariant{{
		Kind:        model.VariantApp,
		Contributes: true,
		Frames: []model.ContributingFrame{{
			Frame:       model.Frame{Function: "f", Filename: "f.py"},
			Contributes: true,
		}},
	}}
}

// lastBlocker returns the blocker tag on the most recent did-call counter.
func lastBlocker(t *testing.T, sink *metrics.Recorder) string {
	t.Helper()
	counts := sink.ByName(MetricDidCall)
	if len(counts) == 0 {
		t.Fatal("no did-call counter recorded")
	}
	return counts[len(counts)-1].Tags["blocker"]
}

func TestEligibleEventPasses(t *testing.T) {
	e := newEnv(t)
	event := eligibleEvent()

	if !e.gate.IsEligible(ctx, event, eligibleVariants()) {
		t.Fatal("event should be eligible")
	}
	if event.CachedStacktraceString() == "" {
		t.Error("stacktrace string should be cached on the event")
	}
	if len(e.limiter.calls) != 2 {
		t.Errorf("both rate-limit scopes should be checked, got %v", e.limiter.calls)
	}
}

func TestNoStacktrace(t *testing.T) {
	e := newEnv(t)
	event := eligibleEvent()
	event.Exceptions[0].Frames = nil

	if e.gate.IsEligible(ctx, event, eligibleVariants()) {
		t.Fatal("event without a stacktrace should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerNoStacktrace {
		t.Errorf("blocker = %q, want %q", got, BlockerNoStacktrace)
	}

	counts := e.sink.ByName(MetricContentEligible)
	if len(counts) != 1 || counts[0].Tags["eligible"] != "false" {
		t.Errorf("content-eligible counter missing or wrong: %v", counts)
	}
	if len(e.limiter.calls) != 0 {
		t.Error("a content rejection must not consume rate-limit budget")
	}
}

func TestUnsupportedPlatform(t *testing.T) {
	e := newEnv(t)
	event := eligibleEvent()
	event.Platform = "other"

	if e.gate.IsEligible(ctx, event, eligibleVariants()) {
		t.Fatal("unsupported platform should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerUnsupportedPlatform {
		t.Errorf("blocker = %q, want %q", got, BlockerUnsupportedPlatform)
	}
}

func TestProjectNotBackfilled(t *testing.T) {
	e := newEnv(t)
	event := eligibleEvent()
	event.ProjectID = 8 // not in the backfilled set

	if e.gate.IsEligible(ctx, event, eligibleVariants()) {
		t.Fatal("non-backfilled project should be ineligible")
	}
	// Both the content and the backfill counters are recorded even though
	// the backfill check is the one that fails.
	if len(e.sink.ByName(MetricContentEligible)) != 1 {
		t.Error("content counter should still be recorded")
	}
	backfill := e.sink.ByName(MetricBackfillStatus)
	if len(backfill) != 1 || backfill[0].Tags["backfilled"] != "false" {
		t.Errorf("backfill counter missing or wrong: %v", backfill)
	}
}

func TestPureDefaultFingerprintIsNotCustomized(t *testing.T) {
	e := newEnv(t)
	event := eligibleEvent()
	event.Fingerprint = []string{model.DefaultFingerprint}

	if !e.gate.IsEligible(ctx, event, eligibleVariants()) {
		t.Error("pure-default fingerprint should pass the customization check")
	}
}

func TestHybridFingerprint(t *testing.T) {
	e := newEnv(t)
	event := eligibleEvent()
	event.Fingerprint = []string{model.DefaultFingerprint, "extra"}

	if e.gate.IsEligible(ctx, event, eligibleVariants()) {
		t.Fatal("hybrid fingerprint should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerHybridFingerprint {
		t.Errorf("blocker = %q, want %q", got, BlockerHybridFingerprint)
	}
}

func TestCustomFingerprintVariant(t *testing.T) {
	e := newEnv(t)
	event := eligibleEvent()
	event.Fingerprint = []string{"my-own-grouping"}
	variants := append(eligibleVariants(), model.GroupingVariant{
		Kind:        model.VariantCustomFingerprint,
		Contributes: true,
	})

	if e.gate.IsEligible(ctx, event, variants) {
		t.Fatal("custom fingerprint variant should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != model.VariantCustomFingerprint {
		t.Errorf("blocker = %q, want the variant kind", got)
	}
}

func TestExcessFrames(t *testing.T) {
	e := newEnv(t)
	variants := eligibleVariants()
	for i := 0; i < e.cfg.Limits.MaxFrames+1; i++ {
		variants[0].Frames = append(variants[0].Frames, model.ContributingFrame{
			Frame:       model.Frame{Function: "f", Filename: "f.py"},
			Contributes: true,
		})
	}

	if e.gate.IsEligible(ctx, eligibleEvent(), variants) {
		t.Fatal("over-threshold frame count should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerExcessFrames {
		t.Errorf("blocker = %q, want %q", got, BlockerExcessFrames)
	}
}

func TestKillswitch(t *testing.T) {
	e := newEnv(t)
	cfg := e.cfg
	cfg.KillswitchProjects = []int64{7}
	provider := config.NewStatic(cfg)
	g := New(provider, provider, e.limiter, e.breaker, e.sink)

	if g.IsEligible(ctx, eligibleEvent(), eligibleVariants()) {
		t.Fatal("killswitched project should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerKillswitch {
		t.Errorf("blocker = %q, want %q", got, BlockerKillswitch)
	}
	if len(e.limiter.calls) != 0 {
		t.Error("killswitch rejection must not consume rate-limit budget")
	}
}

func TestCircuitBreakerOpen(t *testing.T) {
	e := newEnv(t)
	brkCfg := e.cfg.Limits.Breaker
	for i := 0; i < brkCfg.MinimumHits; i++ {
		e.breaker.RecordFailure(ctx, brkCfg)
	}

	if e.gate.IsEligible(ctx, eligibleEvent(), eligibleVariants()) {
		t.Fatal("open breaker should make the event ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerCircuitBreaker {
		t.Errorf("blocker = %q, want %q", got, BlockerCircuitBreaker)
	}
	if len(e.limiter.calls) != 0 {
		t.Error("breaker rejection must not consume rate-limit budget")
	}
}

func TestEmptyStacktraceString(t *testing.T) {
	e := newEnv(t)
	variants := []model.GroupingVariant{{
		Kind:        model.VariantApp,
		Contributes: true,
		// No contributing frames, so the derived string is empty.
		Frames: []model.ContributingFrame{{
			Frame:       model.Frame{Function: "f", Filename: "f.py"},
			Contributes: false,
		}},
	}}

	if e.gate.IsEligible(ctx, eligibleEvent(), variants) {
		t.Fatal("empty stacktrace string should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerEmptyStacktrace {
		t.Errorf("blocker = %q, want %q", got, BlockerEmptyStacktrace)
	}
	if len(e.limiter.calls) != 0 {
		t.Error("stacktrace rejection must not consume rate-limit budget")
	}
}

func TestGlobalRateLimitShortCircuitsProjectCheck(t *testing.T) {
	e := newEnv(t)
	e.limiter.limitedKeys[globalRateLimitKey] = true

	if e.gate.IsEligible(ctx, eligibleEvent(), eligibleVariants()) {
		t.Fatal("globally rate-limited event should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerGlobalRateLimit {
		t.Errorf("blocker = %q, want %q", got, BlockerGlobalRateLimit)
	}
	if len(e.limiter.calls) != 1 {
		t.Errorf("per-project check must not run after a global trip, calls: %v", e.limiter.calls)
	}
}

func TestProjectRateLimit(t *testing.T) {
	e := newEnv(t)
	e.limiter.limitedKeys["similarity:project-7-limit"] = true

	if e.gate.IsEligible(ctx, eligibleEvent(), eligibleVariants()) {
		t.Fatal("project rate-limited event should be ineligible")
	}
	if got := lastBlocker(t, e.sink); got != BlockerProjectRateLimit {
		t.Errorf("blocker = %q, want %q", got, BlockerProjectRateLimit)
	}
	if len(e.limiter.calls) != 2 {
		t.Errorf("expected global then project checks, got %v", e.limiter.calls)
	}
}

func TestLimiterOutageFailsOpen(t *testing.T) {
	e := newEnv(t)
	e.limiter.err = errors.New("redis down")

	if !e.gate.IsEligible(ctx, eligibleEvent(), eligibleVariants()) {
		t.Error("a limiter outage should fail open")
	}
}

func TestBreakerWindowReopensGate(t *testing.T) {
	e := newEnv(t)
	brkCfg := config.Breaker{ErrorThreshold: 0.5, MinimumHits: 5, Window: time.Minute}
	cfg := e.cfg
	cfg.Limits.Breaker = brkCfg
	provider := config.NewStatic(cfg)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := breaker.NewMemoryAt(func() time.Time { return now })
	brk := breaker.New("similarity", store)
	g := New(provider, provider, e.limiter, brk, e.sink)

	for i := 0; i < 5; i++ {
		brk.RecordFailure(ctx, brkCfg)
	}
	if g.IsEligible(ctx, eligibleEvent(), eligibleVariants()) {
		t.Fatal("gate should be closed while the breaker is open")
	}

	now = now.Add(2 * brkCfg.Window)
	if !g.IsEligible(ctx, eligibleEvent(), eligibleVariants()) {
		t.Error("gate should reopen once failures decay out of the window")
	}
}
