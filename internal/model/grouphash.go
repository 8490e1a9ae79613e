package model

import "time"

// GroupHash is a persisted ledger entry mapping a content hash to an issue
// group within a project. Entries are created by the upstream grouping
// pipeline before the ingest decision runs; this core only mutates their
// metadata, never creates or deletes them.
type GroupHash struct {
	Hash      string
	ProjectID int64
	GroupID   int64
	Metadata  *GroupHashMetadata
}

// NewGroupHash creates an entry with a fresh metadata block, the way the
// upstream grouping pipeline does before the ingest decision runs.
func NewGroupHash(hash string, projectID, groupID int64) *GroupHash {
	return &GroupHash{
		Hash:      hash,
		ProjectID: projectID,
		GroupID:   groupID,
		Metadata:  &GroupHashMetadata{DateAdded: time.Now()},
	}
}

// GroupHashMetadata records provenance for a ledger entry, including whether
// and how a remote similarity call contributed to its group assignment.
type GroupHashMetadata struct {
	DateAdded time.Time

	// Similarity-call provenance. DateSent equal to DateAdded marks a call
	// made during ingest rather than during a later backfill.
	DateSent      *time.Time
	EventSent     *string
	Model         *string
	MatchedHash   *string
	MatchDistance *float64
}
