package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/crimson-sun/burl/internal/model"
)

// Memory is an in-process Store, primarily for tests and single-node runs.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*model.GroupHash
}

// NewMemory creates an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*model.GroupHash)}
}

func entryKey(projectID int64, hash string) string {
	return fmt.Sprintf("%d:%s", projectID, hash)
}

// FindByHashAndProject implements Store.
func (m *Memory) FindByHashAndProject(_ context.Context, hash string, projectID int64) (*model.GroupHash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[entryKey(projectID, hash)], nil
}

// UpdateMetadata implements Store. The entry is stored by reference, so the
// caller's in-place metadata mutation is already visible; this records the
// write for backends with real persistence.
func (m *Memory) UpdateMetadata(_ context.Context, entry *model.GroupHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey(entry.ProjectID, entry.Hash)] = entry
	return nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, entry *model.GroupHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey(entry.ProjectID, entry.Hash)] = entry
	return nil
}
