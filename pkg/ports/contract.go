package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a
// SnapshotStore implementation adheres to the defined interface
// contract. Pass a fresh, empty store.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()

	t.Run("Load Before Save", func(t *testing.T) {
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot("model-a", 2.5)

		err := store.Save(ctx, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, schema.Version, loaded.Version)
		assert.Equal(t, "model-a", loaded.ModelID)
		require.Len(t, loaded.Weights, 1)
		assert.Equal(t, "review", loaded.Weights[0].From)
		assert.Equal(t, "merge", loaded.Weights[0].To)
		assert.InDelta(t, 2.5, loaded.Weights[0].Weight, 1e-9)
		assert.Equal(t, uint64(3), loaded.Weights[0].UpdateCount)
		assert.True(t, snap.ExportedAt.Equal(loaded.ExportedAt),
			"timestamps should survive the round trip")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSnapshot("model-b", 7.0)))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "model-b", loaded.ModelID, "latest save should win")
		require.Len(t, loaded.Weights, 1)
		assert.InDelta(t, 7.0, loaded.Weights[0].Weight, 1e-9)
	})

	t.Run("Loaded Snapshot Is Detached", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSnapshot("model-c", 1.0)))

		first, err := store.Load(ctx)
		require.NoError(t, err)
		first.Weights[0].Weight = 99
		first.ModelID = "mutated"

		second, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "model-c", second.ModelID, "mutating a loaded snapshot must not leak into the store")
		assert.InDelta(t, 1.0, second.Weights[0].Weight, 1e-9)
	})
}

func contractSnapshot(modelID string, weight float64) *schema.Snapshot {
	return &schema.Snapshot{
		Version:    schema.Version,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		ModelID:    modelID,
		Decay: schema.DecayConfig{
			Algorithm:   "halflife",
			DecayFactor: 0.9,
			HalfLife:    schema.Duration(24 * time.Hour),
			MinWeight:   0.001,
		},
		Weights: []schema.WeightEntry{
			{
				From:        "review",
				To:          "merge",
				Actor:       domain.ActorUser,
				Weight:      weight,
				LastUpdated: time.Now().UTC().Truncate(time.Second),
				UpdateCount: 3,
			},
		},
	}
}

// RunEventStoreContract runs a suite of tests to verify that an
// EventStore implementation adheres to the defined interface contract.
// Pass a fresh, empty store.
func RunEventStoreContract(t *testing.T, store EventStore) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	events := []domain.ActionEvent{
		{ID: "ev-1", SessionID: "s1", Actor: domain.ActorUser, From: "edit", To: "build", Timestamp: base, Type: domain.EventTransition},
		{ID: "ev-2", SessionID: "s1", Actor: domain.ActorUser, From: "build", To: "test", Timestamp: base.Add(1 * time.Minute), Type: domain.EventTransition},
		{ID: "ev-3", SessionID: "s2", Actor: domain.ActorSystem, From: "test", To: "deploy", Timestamp: base.Add(2 * time.Minute), Type: domain.EventTransition},
		{ID: "ev-4", SessionID: "s2", Actor: domain.ActorSystem, Timestamp: base.Add(3 * time.Minute), Type: domain.EventSessionEnd},
	}

	t.Run("Append and Query All", func(t *testing.T) {
		for _, ev := range events {
			require.NoError(t, store.Append(ctx, ev), "Append should not return error")
		}

		got, err := store.Query(ctx, EventFilter{})
		require.NoError(t, err)
		require.Len(t, got, len(events))
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp),
				"Query must return events in chronological order")
		}
	})

	t.Run("Filter by Session", func(t *testing.T) {
		got, err := store.Query(ctx, EventFilter{SessionID: "s1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ev-1", got[0].ID)
		assert.Equal(t, "ev-2", got[1].ID)
	})

	t.Run("Filter by Actor and Type", func(t *testing.T) {
		got, err := store.Query(ctx, EventFilter{
			Actor: domain.ActorSystem,
			Types: []domain.EventType{domain.EventTransition},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ev-3", got[0].ID)
	})

	t.Run("Filter by Time Window", func(t *testing.T) {
		got, err := store.Query(ctx, EventFilter{
			Since: base.Add(30 * time.Second),
			Until: base.Add(150 * time.Second),
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ev-2", got[0].ID)
		assert.Equal(t, "ev-3", got[1].ID)
	})

	t.Run("Limit Keeps Most Recent", func(t *testing.T) {
		got, err := store.Query(ctx, EventFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ev-3", got[0].ID)
		assert.Equal(t, "ev-4", got[1].ID)
	})

	t.Run("Count Ignores Limit", func(t *testing.T) {
		n, err := store.Count(ctx, EventFilter{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, uint64(len(events)), n)

		n, err = store.Count(ctx, EventFilter{SessionID: "s2"})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), n)
	})
}
