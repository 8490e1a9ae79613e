// Package burl decides whether an ingested error event should be grouped by
// a remote similarity service, and reconciles the answer against a local
// grouping-hash ledger. It layers content eligibility, project enablement,
// rate limiting, and a circuit breaker in front of the network call, so the
// expensive path only runs for events that can actually benefit.
//
// Quick start:
//
//	b, err := burl.New(burl.WithBackfilledProjects(7))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	b.SeedGroupHash(ctx, "d41d8cd9...", 7, 42)
//	match, _ := b.MaybeMatch(ctx, event, variants)
//	if match != nil {
//	    fmt.Println("grouped under", match.GroupID)
//	}
//
// A Burl instance is safe for concurrent use from many ingest workers.
// Create once, reuse across events. By default all shared state (rate
// windows, breaker counters, the ledger) is in-process; point it at Redis
// with WithRedisAddr to share state across workers.
package burl
