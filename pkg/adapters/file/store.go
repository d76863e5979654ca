// Package file persists snapshots and events as JSON files under a
// base directory. It is the zero-dependency persistence choice for CLI
// and single-node use; reach for the redis adapter when several
// processes share state.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/schema"
)

const snapshotFile = "weights.json"

// SnapshotStore implements ports.SnapshotStore on the local
// filesystem. The snapshot lives at <BasePath>/weights.json and is
// replaced atomically on every save.
type SnapshotStore struct {
	BasePath string
	mu       sync.Mutex
}

// NewSnapshotStore creates a store rooted at basePath. An empty path
// defaults to ".cairn".
func NewSnapshotStore(basePath string) *SnapshotStore {
	if basePath == "" {
		basePath = ".cairn"
	}
	return &SnapshotStore{BasePath: basePath}
}

// Save writes the snapshot atomically: to a temp file in the same
// directory first, fsynced, then renamed over the destination. A crash
// mid-save leaves the previous snapshot intact.
func (s *SnapshotStore) Save(ctx context.Context, snap *schema.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("file: save nil snapshot")
	}
	data, err := schema.Marshal(snap)
	if err != nil {
		return fmt.Errorf("file: marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("file: ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.BasePath, "tmp-weights-*.json")
	if err != nil {
		return fmt.Errorf("file: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("file: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("file: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: close temp file: %w", err)
	}

	dest := filepath.Join(s.BasePath, snapshotFile)
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("file: rename snapshot into place: %w", err)
	}
	return nil
}

// Load reads and validates the stored snapshot. A missing file maps to
// domain.ErrSnapshotNotFound.
func (s *SnapshotStore) Load(ctx context.Context) (*schema.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.BasePath, snapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("file: read snapshot: %w", err)
	}
	snap, err := schema.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("file: parse snapshot: %w", err)
	}
	return snap, nil
}
