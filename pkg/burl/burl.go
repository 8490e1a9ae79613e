package burl

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/burl/internal/breaker"
	"github.com/crimson-sun/burl/internal/config"
	"github.com/crimson-sun/burl/internal/engine"
	"github.com/crimson-sun/burl/internal/gate"
	"github.com/crimson-sun/burl/internal/ledger"
	"github.com/crimson-sun/burl/internal/limiter"
	"github.com/crimson-sun/burl/internal/metrics"
	"github.com/crimson-sun/burl/internal/model"
	"github.com/crimson-sun/burl/internal/similarity"
)

// breakerKey names the one downstream this module guards.
const breakerKey = "similarity"

// Burl is the ingest similarity decision engine. Safe for concurrent use.
type Burl struct {
	engine *engine.Engine
	store  ledger.Store
	rdb    *redis.Client
}

// New creates a Burl instance. Configuration defaults come from the BURL_*
// environment variables; options override them.
func New(opts ...Option) (*Burl, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	provider := config.NewStatic(o.cfg)

	var (
		rdb   *redis.Client
		lim   limiter.Limiter
		store ledger.Store
		cnt   breaker.CounterStore
	)
	if o.cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     o.cfg.Redis.Addr,
			Password: o.cfg.Redis.Password,
			DB:       o.cfg.Redis.DB,
		})
		lim = limiter.NewRedis(rdb)
		store = ledger.NewRedis(rdb)
		cnt = breaker.NewRedisStore(rdb)
	} else {
		lim = limiter.NewMemory()
		store = ledger.NewMemory()
		cnt = breaker.NewMemory()
	}

	var sink metrics.Sink = metrics.Log{}
	if o.metrics != nil {
		sink = sinkAdapter{o.metrics}
	} else if o.cfg.MetricsWebhookURL != "" {
		sink = metrics.NewMulti(metrics.Log{}, metrics.NewWebhook(o.cfg.MetricsWebhookURL))
	}
	var errSink engine.ErrorSink = engine.LogErrorSink{}
	if o.errors != nil {
		errSink = o.errors
	}

	brk := breaker.New(breakerKey, cnt)
	g := gate.New(provider, provider, lim, brk, sink)
	client := similarity.NewClient(
		o.cfg.Similarity.Endpoint,
		o.cfg.Similarity.Token,
		similarity.WithTimeout(o.cfg.Similarity.Timeout),
	)
	svc := similarity.NewService(client, store, provider)

	return &Burl{
		engine: engine.New(g, svc, store, brk, provider, errSink),
		store:  store,
		rdb:    rdb,
	}, nil
}

// MaybeMatch runs the full ingest decision for one event. It returns the
// match the event should be grouped under, or nil when any gate rejects, the
// remote call fails, or no neighbor is near enough. It never returns an
// error: every failure inside the decision degrades to "no match".
func (b *Burl) MaybeMatch(ctx context.Context, event Event, variants []Variant) (*Match, error) {
	me := toModelEvent(event)

	// The candidate set is the ledger entry for the event's own hash, the
	// one a match's provenance lands on.
	var candidates []*model.GroupHash
	own, err := b.store.FindByHashAndProject(ctx, me.PrimaryHash, me.ProjectID)
	if err != nil {
		return nil, err
	}
	if own != nil {
		candidates = append(candidates, own)
	}

	matched := b.engine.MaybeMatch(ctx, me, toModelVariants(variants), candidates)
	return matchFromGroupHash(matched), nil
}

// SeedGroupHash inserts a ledger entry, as the upstream grouping pipeline
// would. Mainly useful for tests and for the bundled CLI.
func (b *Burl) SeedGroupHash(ctx context.Context, hash string, projectID, groupID int64) error {
	return b.store.Put(ctx, model.NewGroupHash(hash, projectID, groupID))
}

// Close releases the Redis connection, if one was opened.
func (b *Burl) Close() error {
	if b.rdb != nil {
		return b.rdb.Close()
	}
	return nil
}

// sinkAdapter bridges the public MetricsSink to the internal one.
type sinkAdapter struct{ s MetricsSink }

func (a sinkAdapter) Incr(name string, sampleRate float64, tags metrics.Tags) {
	a.s.Incr(name, sampleRate, tags)
}
