package replay_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/replay"
)

func newReplayEngine(t *testing.T, opts ...cairn.Option) *cairn.Engine {
	t.Helper()
	opts = append([]cairn.Option{cairn.WithTransitions(
		domain.Transition{From: "inbox", To: "triage"},
		domain.Transition{From: "triage", To: "reply"},
		domain.Transition{From: "triage", To: "archive"},
		domain.Transition{From: "reply", To: "archive"},
	)}, opts...)
	eng, err := cairn.New(opts...)
	require.NoError(t, err)
	return eng
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Scores Hits Once Warm", func(t *testing.T) {
		eng := newReplayEngine(t, cairn.WithWarmupThreshold(1))
		for i := 0; i < 3; i++ {
			require.NoError(t, eng.RecordTransition(ctx, "triage", "reply", domain.RecordContext{}))
		}
		require.True(t, eng.WarmupComplete())

		report, err := replay.New(eng, replay.WithTopK(1)).Run(ctx, []domain.ActionEvent{
			{From: "triage", To: "reply"},
			{From: "triage", To: "archive"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, report.Events)
		assert.Equal(t, 2, report.Scored)
		assert.Equal(t, 1, report.Hits)
		assert.InDelta(t, 0.5, report.HitRate, 0.0001)
		assert.Equal(t, 1, report.TopK)

		require.Len(t, report.Nodes, 1)
		assert.Equal(t, "triage", report.Nodes[0].Node)
		assert.Equal(t, 2, report.Nodes[0].Scored)
		assert.Equal(t, 1, report.Nodes[0].Hits)
	})

	t.Run("Trains Through Warmup Without Scoring", func(t *testing.T) {
		eng := newReplayEngine(t, cairn.WithWarmupThreshold(2))

		report, err := replay.New(eng).Run(ctx, []domain.ActionEvent{
			{From: "inbox", To: "triage"},
			{From: "triage", To: "reply"},
			{From: "inbox", To: "triage"},
			{From: "triage", To: "reply"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, report.Warmup)
		assert.Equal(t, 2, report.Scored)
		assert.Equal(t, 2, report.Hits, "top-3 window covers every branch of the fixture")
		assert.Equal(t, uint64(4), eng.TransitionCount(), "warmup rows still train the engine")
	})

	t.Run("Skips And Rejects Without Stopping", func(t *testing.T) {
		eng := newReplayEngine(t, cairn.WithWarmupThreshold(1))
		require.NoError(t, eng.RecordTransition(ctx, "inbox", "triage", domain.RecordContext{}))

		report, err := replay.New(eng).Run(ctx, []domain.ActionEvent{
			{Type: domain.EventSessionStart, SessionID: "sess-1"},
			{To: "triage"},
			{From: "inbox", To: "triage", Actor: domain.Actor("robot")},
			{From: "inbox", To: "archive"},
			{From: "inbox", To: "triage"},
		})
		require.NoError(t, err)

		assert.Equal(t, 5, report.Events)
		assert.Equal(t, 3, report.Skipped)
		assert.Equal(t, 1, report.Rejected)
		assert.Equal(t, 1, report.Scored)
		assert.Equal(t, 1, report.Hits)
	})

	t.Run("Honors Actor Override", func(t *testing.T) {
		eng := newReplayEngine(t)

		_, err := replay.New(eng, replay.WithActor(domain.ActorSystem)).Run(ctx, []domain.ActionEvent{
			{From: "inbox", To: "triage", Actor: domain.ActorUser},
		})
		require.NoError(t, err)

		assert.Greater(t, eng.Weight("inbox", "triage", domain.ActorSystem), 0.0)
		assert.Zero(t, eng.Weight("inbox", "triage", domain.ActorUser))
	})

	t.Run("Stops On Cancelled Context", func(t *testing.T) {
		eng := newReplayEngine(t)
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := replay.New(eng).Run(cancelled, []domain.ActionEvent{
			{From: "inbox", To: "triage"},
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestReadLog(t *testing.T) {
	t.Run("Decodes JSONL", func(t *testing.T) {
		log := `{"from":"inbox","to":"triage","type":"transition"}
{"from":"triage","to":"reply"}

{"from":"reply","to":"archive","actor":"system"}
`
		events, err := replay.ReadLog(strings.NewReader(log))
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "triage", events[0].To)
		assert.Equal(t, domain.ActorSystem, events[2].Actor)
	})

	t.Run("Reports The Failing Row", func(t *testing.T) {
		log := `{"from":"inbox","to":"triage"}
{"from":`
		_, err := replay.ReadLog(strings.NewReader(log))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "event 2")
	})

	t.Run("Empty Input Yields No Events", func(t *testing.T) {
		events, err := replay.ReadLog(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestReportRendering(t *testing.T) {
	report := &replay.Report{
		Events:  4,
		Scored:  2,
		Hits:    1,
		HitRate: 0.5,
		Warmup:  2,
		TopK:    3,
		Nodes: []replay.NodeReport{
			{Node: "triage", Scored: 2, Hits: 1, HitRate: 0.5},
		},
	}

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Text(&buf))

		out := buf.String()
		assert.Contains(t, out, "Replayed 4 events: 2 scored, 1 hits (50.0% top-3)")
		assert.Contains(t, out, "Warmup consumed 2, skipped 0, rejected 0.")
		assert.Contains(t, out, "NODE")
		assert.Contains(t, out, "triage")
	})

	t.Run("Text Without Nodes Omits The Table", func(t *testing.T) {
		var buf bytes.Buffer
		bare := &replay.Report{Events: 1, Skipped: 1, TopK: 3}
		require.NoError(t, bare.Text(&buf))
		assert.NotContains(t, buf.String(), "NODE")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.JSON(&buf))

		out := buf.String()
		assert.Contains(t, out, `"hit_rate": 0.5`)
		assert.Contains(t, out, `"top_k": 3`)
		assert.Contains(t, out, `"node": "triage"`)
	})
}
