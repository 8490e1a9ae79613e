// Package engine orchestrates the ingest similarity decision: gate chain,
// remote call behind a failure boundary, and reconciliation of the answer
// against the grouping-hash ledger. Nothing in here may raise out to the
// ingest pipeline; every failure degrades to "no match".
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/burl/internal/breaker"
	"github.com/crimson-sun/burl/internal/config"
	"github.com/crimson-sun/burl/internal/gate"
	"github.com/crimson-sun/burl/internal/ledger"
	"github.com/crimson-sun/burl/internal/logging"
	"github.com/crimson-sun/burl/internal/model"
	"github.com/crimson-sun/burl/internal/similarity"
)

// ErrorSink receives remote-call failures for out-of-band reporting. It must
// never block or fail.
type ErrorSink interface {
	CaptureException(err error, tags map[string]string)
}

// LogErrorSink reports captured errors via slog. The default when no
// error-tracking backend is wired.
type LogErrorSink struct{}

func (LogErrorSink) CaptureException(err error, tags map[string]string) {
	attrs := make([]any, 0, 2+2*len(tags))
	attrs = append(attrs, "error", err)
	for k, v := range tags {
		attrs = append(attrs, k, v)
	}
	slog.Error("similarity call failed", attrs...)
}

// Engine is the ingest decision engine. One instance serves many workers;
// all mutable state lives in the injected shared stores.
type Engine struct {
	gate    *gate.Gate
	similar *similarity.Service
	store   ledger.Store
	breaker *breaker.Breaker
	cfg     config.Provider
	errors  ErrorSink
}

// New creates an Engine.
func New(g *gate.Gate, svc *similarity.Service, store ledger.Store, brk *breaker.Breaker, cfg config.Provider, errSink ErrorSink) *Engine {
	if errSink == nil {
		errSink = LogErrorSink{}
	}
	return &Engine{gate: g, similar: svc, store: store, breaker: brk, cfg: cfg, errors: errSink}
}

// MaybeMatch runs the full decision for one event: if every gate passes, it
// asks the similarity service for the nearest neighbor and, on a match,
// records provenance on the candidate ledger entry carrying the event's
// primary hash. Returns the matched entry, or nil for any form of "no".
func (e *Engine) MaybeMatch(ctx context.Context, event *model.Event, variants []model.GroupingVariant, candidates []*model.GroupHash) *model.GroupHash {
	if !e.gate.IsEligible(ctx, event, variants) {
		return nil
	}
	e.gate.RecordDidCall(true, gate.BlockerNone)

	brkCfg := e.cfg.BreakerConfig()
	metadata, matched, err := e.similar.GetSimilarIssues(ctx, event, variants, e.cfg.NeighborCount())
	if err != nil {
		e.breaker.RecordFailure(ctx, brkCfg)
		e.errors.CaptureException(err, map[string]string{
			"event":   event.ID,
			"project": fmt.Sprintf("%d", event.ProjectID),
		})
		return nil
	}
	e.breaker.RecordSuccess(ctx, brkCfg)

	entry := e.entrySent(event, candidates)
	if entry == nil {
		// Upstream invariant violation: the hash we just sent has no ledger
		// entry among the candidates. Not fatal, but worth a trace.
		slog.Warn("no candidate ledger entry for hash sent to similarity service",
			append(logging.EventAttrs(event.ID, event.ProjectID),
				"hash", event.PrimaryHash)...)
		return matched
	}

	e.reconcile(ctx, event, entry, metadata, matched)
	return matched
}

// entrySent locates the candidate entry whose hash was sent to the service.
// The upstream pipeline should supply exactly one; duplicated secondary
// hashes have been seen, so extras are logged rather than silently skipped.
func (e *Engine) entrySent(event *model.Event, candidates []*model.GroupHash) *model.GroupHash {
	var found []*model.GroupHash
	for _, c := range candidates {
		if c != nil && c.Hash == event.PrimaryHash {
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		return nil
	}
	if len(found) > 1 {
		slog.Warn("multiple candidate ledger entries share the primary hash",
			append(logging.EventAttrs(event.ID, event.ProjectID),
				"hash", event.PrimaryHash,
				"count", len(found))...)
	}
	return found[0]
}

// reconcile records call provenance on the sent entry's metadata. DateSent is
// deliberately set to the metadata's own DateAdded: their equality marks an
// ingest-time call, as opposed to a later backfill, without an extra field.
func (e *Engine) reconcile(ctx context.Context, event *model.Event, entry *model.GroupHash, metadata similarity.Metadata, matched *model.GroupHash) {
	md := entry.Metadata
	if md == nil {
		return
	}

	dateSent := md.DateAdded
	eventID := event.ID
	modelVersion := metadata.ModelVersion

	md.DateSent = &dateSent
	md.EventSent = &eventID
	md.Model = &modelVersion
	if matched != nil {
		hash := matched.Hash
		distance := metadata.Results[0].StacktraceDistance
		md.MatchedHash = &hash
		md.MatchDistance = &distance
	} else {
		md.MatchedHash = nil
		md.MatchDistance = nil
	}

	if err := e.store.UpdateMetadata(ctx, entry); err != nil {
		slog.Warn("ledger metadata update failed",
			append(logging.EventAttrs(event.ID, event.ProjectID),
				"hash", entry.Hash, "error", err)...)
	}
}
