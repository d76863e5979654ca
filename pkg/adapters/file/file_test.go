package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cairn/pkg/adapters/file"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/ports"
	"github.com/aretw0/cairn/pkg/schema"
)

var (
	_ ports.SnapshotStore = (*file.SnapshotStore)(nil)
	_ ports.EventStore    = (*file.EventStore)(nil)
	_ ports.Source        = (*file.Source)(nil)
	_ ports.Watchable     = (*file.Source)(nil)
)

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, file.NewSnapshotStore(t.TempDir()))
}

func TestEventStore_Contract(t *testing.T) {
	ports.RunEventStoreContract(t, file.NewEventStore(t.TempDir()))
}

func TestSnapshotStore_CreatesDirectory(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "nested", "state")
	store := file.NewSnapshotStore(base)

	snap := &schema.Snapshot{
		Version:    schema.Version,
		ExportedAt: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		ModelID:    "m1",
	}
	require.NoError(t, store.Save(ctx, snap))

	data, err := os.ReadFile(filepath.Join(base, "weights.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model_id": "m1"`, "indented JSON on disk")
}

func TestSnapshotStore_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := file.NewSnapshotStore(base)

	snap := &schema.Snapshot{
		Version:    schema.Version,
		ExportedAt: time.Now().UTC(),
		ModelID:    "m1",
	}
	require.NoError(t, store.Save(ctx, snap))
	require.NoError(t, store.Save(ctx, snap))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "weights.json", entries[0].Name())
}

func TestSnapshotStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "weights.json"), []byte("{not json"), 0644))

	_, err := file.NewSnapshotStore(base).Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSnapshotNotFound, "corruption is not absence")
}

func TestEventStore_MissingLogReadsEmpty(t *testing.T) {
	ctx := context.Background()
	store := file.NewEventStore(t.TempDir())

	events, err := store.Query(ctx, ports.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)

	n, err := store.Count(ctx, ports.EventFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEventStore_AppendsAsJSONLines(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := file.NewEventStore(base)

	base1 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, domain.ActionEvent{
			ID:        string(rune('a' + i)),
			Actor:     domain.ActorUser,
			From:      "triage",
			To:        "reply",
			Timestamp: base1.Add(time.Duration(i) * time.Second),
			Type:      domain.EventTransition,
		}))
	}

	data, err := os.ReadFile(filepath.Join(base, "events.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 3, countLines(data), "one line per event")

	events, err := store.Query(ctx, ports.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].ID)
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

func writeDefinition(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSource_LoadsYAML(t *testing.T) {
	path := writeDefinition(t, "workflow.yaml", `
transitions:
  - from: inbox
    to: triage
  - from: triage
    to: reply
    weight: 2.5
    actor: system
`)

	def, err := file.NewSource(path).LoadDefinition(context.Background())
	require.NoError(t, err)
	require.Len(t, def.Transitions, 2)
	assert.Equal(t, "inbox", def.Transitions[0].From)
	assert.Equal(t, 2.5, def.Transitions[1].BaseWeight)
	assert.Equal(t, domain.ActorSystem, def.Transitions[1].Actor)
}

func TestSource_LoadsJSON(t *testing.T) {
	path := writeDefinition(t, "workflow.json",
		`{"transitions":[{"from":"inbox","to":"triage"}]}`)

	def, err := file.NewSource(path).LoadDefinition(context.Background())
	require.NoError(t, err)
	require.Len(t, def.Transitions, 1)
	assert.Equal(t, "triage", def.Transitions[0].To)
}

func TestSource_LoadsFlow(t *testing.T) {
	path := writeDefinition(t, "workflow.flow", `
# review flow
inbox -> triage
triage -> reply [system] 2
`)

	def, err := file.NewSource(path).LoadDefinition(context.Background())
	require.NoError(t, err)
	require.Len(t, def.Transitions, 2)
	assert.Len(t, def.Nodes, 3, "every mentioned node is declared")
	assert.Equal(t, 2.0, def.Transitions[1].BaseWeight)
}

func TestSource_RejectsUnknownFormat(t *testing.T) {
	path := writeDefinition(t, "workflow.toml", `x = 1`)

	_, err := file.NewSource(path).LoadDefinition(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported definition format")
}

func TestSource_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := file.NewSource(path).LoadDefinition(context.Background())
	require.Error(t, err)
}

func TestSource_WatchDeliversChange(t *testing.T) {
	path := writeDefinition(t, "workflow.yaml", "transitions:\n  - {from: a, to: b}\n")
	src := file.NewSource(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := src.Watch(ctx)
	require.NoError(t, err)

	// Touching an unrelated file in the same directory must not notify.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("transitions:\n  - {from: a, to: c}\n"), 0644))

	select {
	case got := <-ch:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification within 2s")
	}

	cancel()
	select {
	case _, open := <-ch:
		assert.False(t, open, "channel closes on cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}
