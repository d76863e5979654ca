package memory

import (
	"context"
	"sync"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/schema"
)

// SnapshotStore implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type SnapshotStore struct {
	snap *schema.Snapshot
	mu   sync.RWMutex
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save keeps a detached copy of the snapshot, replacing any previous one.
func (s *SnapshotStore) Save(ctx context.Context, snap *schema.Snapshot) error {
	copied := cloneSnapshot(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = copied
	return nil
}

// Load returns a copy of the last saved snapshot so callers can't
// mutate store state through the pointer.
func (s *SnapshotStore) Load(ctx context.Context) (*schema.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return cloneSnapshot(s.snap), nil
}

func cloneSnapshot(snap *schema.Snapshot) *schema.Snapshot {
	copied := *snap
	copied.Weights = make([]schema.WeightEntry, len(snap.Weights))
	copy(copied.Weights, snap.Weights)
	return &copied
}
