package ports

import (
	"context"

	"github.com/aretw0/cairn/pkg/schema"
)

// SnapshotStore persists learned weight snapshots. The engine invokes
// it only on explicit SaveWeights/LoadWeights calls, never
// automatically.
type SnapshotStore interface {
	// Save persists the snapshot, replacing any previous one.
	Save(ctx context.Context, snap *schema.Snapshot) error

	// Load retrieves the last saved snapshot. Returns
	// domain.ErrSnapshotNotFound when nothing was ever saved.
	Load(ctx context.Context) (*schema.Snapshot, error)
}
