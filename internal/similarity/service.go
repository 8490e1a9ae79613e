package similarity

import (
	"context"
	"log/slog"

	"github.com/crimson-sun/burl/internal/config"
	"github.com/crimson-sun/burl/internal/ledger"
	"github.com/crimson-sun/burl/internal/logging"
	"github.com/crimson-sun/burl/internal/model"
	"github.com/crimson-sun/burl/internal/stacktrace"
)

// Caller sends a similar-issues query. Satisfied by *Client; tests substitute
// fakes.
type Caller interface {
	SimilarIssues(ctx context.Context, request Request) ([]Result, error)
}

// Service turns an event into a similarity query and reconciles the answer
// against the grouping-hash ledger.
type Service struct {
	client Caller
	store  ledger.Store
	cfg    config.Provider
}

// NewService creates a Service.
func NewService(client Caller, store ledger.Store, cfg config.Provider) *Service {
	return &Service{client: client, store: store, cfg: cfg}
}

// GetSimilarIssues asks the service for the event's nearest neighbors and
// returns the call metadata plus the ledger entry for the best match's parent
// hash, or nil when no neighbor was near enough (or none has a local entry).
// The metadata always carries the full result list and the model version,
// match or not.
func (s *Service) GetSimilarIssues(ctx context.Context, event *model.Event, variants []model.GroupingVariant, k int) (Metadata, *model.GroupHash, error) {
	stacktraceString := event.CachedStacktraceString()
	if stacktraceString == "" {
		// The gate normally caches this; recompute for callers that skipped it.
		stacktraceString = stacktrace.FromEvent(event, variants)
	}
	// Consume the scratch value either way so it cannot outlive this pass.
	event.ClearStacktraceString()

	if stacktraceString == "" {
		// Should not happen: the gate already rejects empty stacktrace strings.
		slog.Info("similarity call skipped on empty stacktrace string",
			logging.EventAttrs(event.ID, event.ProjectID)...)
		return Metadata{Results: []Result{}, ModelVersion: ModelVersion}, nil, nil
	}

	request := Request{
		EventID:      event.ID,
		Hash:         event.PrimaryHash,
		ProjectID:    event.ProjectID,
		Stacktrace:   stacktraceString,
		K:            k,
		Referrer:     ReferrerIngest,
		UseReranking: s.cfg.UseReranking(),
	}
	if excType := event.ExceptionType(); excType != "" {
		sanitized := stacktrace.SanitizeType(excType)
		request.ExceptionType = &sanitized
	}

	results, err := s.client.SimilarIssues(ctx, request)
	if err != nil {
		return Metadata{}, nil, err
	}
	if results == nil {
		results = []Result{}
	}
	metadata := Metadata{Results: results, ModelVersion: ModelVersion}

	var matched *model.GroupHash
	if len(results) > 0 {
		// Results arrive closest-first; only the top candidate can become
		// the match.
		matched, err = s.store.FindByHashAndProject(ctx, results[0].ParentHash, event.ProjectID)
		if err != nil {
			return Metadata{}, nil, err
		}
	}

	slog.Info("similarity results",
		append(logging.EventAttrs(event.ID, event.ProjectID),
			"hash", event.PrimaryHash,
			"result_count", len(results),
			"match_found", matched != nil)...)

	return metadata, matched, nil
}
