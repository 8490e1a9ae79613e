// Package ledger persists grouping-hash entries: the mapping from a content
// hash to an issue group within a project. Entries are created upstream; the
// decision engine only reads them and updates their metadata.
package ledger

import (
	"context"

	"github.com/crimson-sun/burl/internal/model"
)

// Store is the grouping-hash ledger. At most one entry exists per
// (project, hash); implementations must be safe for concurrent use.
type Store interface {
	// FindByHashAndProject returns the entry for (hash, projectID), or
	// (nil, nil) when no such entry exists.
	FindByHashAndProject(ctx context.Context, hash string, projectID int64) (*model.GroupHash, error)

	// UpdateMetadata persists the entry's current metadata block. Last writer
	// wins.
	UpdateMetadata(ctx context.Context, entry *model.GroupHash) error

	// Put inserts or replaces an entry. Used by the upstream grouping
	// pipeline; the decision engine never calls it.
	Put(ctx context.Context, entry *model.GroupHash) error
}
