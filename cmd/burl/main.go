// Command burl runs one ingest similarity decision. It reads a JSON document
// from stdin describing an event, its grouping variants, and the known
// grouping hashes, then prints the decision to stdout. Configuration comes
// from BURL_* environment variables; see internal/config.
//
// Input shape:
//
//	{
//	  "event": { ... },
//	  "variants": [ ... ],
//	  "group_hashes": [{"hash": "...", "project_id": 7, "group_id": 42}]
//	}
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/crimson-sun/burl/internal/config"
	"github.com/crimson-sun/burl/internal/logging"
	"github.com/crimson-sun/burl/pkg/burl"
)

type input struct {
	Event       burl.Event     `json:"event"`
	Variants    []burl.Variant `json:"variants"`
	GroupHashes []seedHash     `json:"group_hashes"`
}

type seedHash struct {
	Hash      string `json:"hash"`
	ProjectID int64  `json:"project_id"`
	GroupID   int64  `json:"group_id"`
}

type decision struct {
	EventID string      `json:"event_id"`
	Matched bool        `json:"matched"`
	Match   *burl.Match `json:"match,omitempty"`
}

func main() {
	cfg := config.Load()
	logging.Init(true, logging.ParseLevel(cfg.LogLevel))

	var in input
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		log.Fatalf("failed to decode input: %v", err)
	}
	if in.Event.ID == "" {
		in.Event.ID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	b, err := burl.New()
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	for _, gh := range in.GroupHashes {
		if err := b.SeedGroupHash(ctx, gh.Hash, gh.ProjectID, gh.GroupID); err != nil {
			log.Fatalf("failed to seed group hash %s: %v", gh.Hash, err)
		}
	}

	match, err := b.MaybeMatch(ctx, in.Event, in.Variants)
	if err != nil {
		log.Fatalf("decision failed: %v", err)
	}

	out := decision{EventID: in.Event.ID, Matched: match != nil, Match: match}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode decision: %v\n", err)
		os.Exit(1)
	}
}
