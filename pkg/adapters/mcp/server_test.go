package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/schema"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := cairn.New(cairn.WithTransitions(
		domain.Transition{From: "login", To: "inbox"},
		domain.Transition{From: "inbox", To: "triage"},
		domain.Transition{From: "triage", To: "reply"},
		domain.Transition{From: "reply", To: "inbox"},
	))
	require.NoError(t, err)
	return NewServer(engine)
}

func TestHandleRecordTransition(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	t.Run("Records And Counts", func(t *testing.T) {
		resp, err := s.handleRecordTransition(ctx, req, map[string]any{
			"from":     "login",
			"to":       "inbox",
			"metadata": `{"source":"mcp"}`,
		})
		require.NoError(t, err)
		assert.True(t, resp.Recorded)
		assert.Equal(t, uint64(1), resp.TransitionCount)
	})

	t.Run("Requires From And To", func(t *testing.T) {
		_, err := s.handleRecordTransition(ctx, req, map[string]any{"from": "login"})
		require.Error(t, err)
	})

	t.Run("Rejects Unknown Actor", func(t *testing.T) {
		_, err := s.handleRecordTransition(ctx, req, map[string]any{
			"from": "login", "to": "inbox", "actor": "robot",
		})
		require.Error(t, err)
	})

	t.Run("Rejects Undeclared Pair", func(t *testing.T) {
		_, err := s.handleRecordTransition(ctx, req, map[string]any{
			"from": "triage", "to": "login",
		})
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Rejects Malformed Metadata", func(t *testing.T) {
		_, err := s.handleRecordTransition(ctx, req, map[string]any{
			"from": "login", "to": "inbox", "metadata": "{broken",
		})
		require.Error(t, err)
	})
}

func TestHandlePredictNext(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	for i := 0; i < 3; i++ {
		_, err := s.handleRecordTransition(ctx, req, map[string]any{"from": "inbox", "to": "triage"})
		require.NoError(t, err)
	}

	t.Run("Predicts With Numeric Count", func(t *testing.T) {
		// JSON clients deliver numbers as float64.
		p, err := s.handlePredictNext(ctx, req, map[string]any{
			"node": "inbox", "count": float64(2),
		})
		require.NoError(t, err)
		assert.Equal(t, "inbox", p.Node)
		require.NotEmpty(t, p.Candidates)
		assert.Equal(t, "triage", p.Candidates[0].To)
		assert.Equal(t, uint64(3), p.TransitionCount)
	})

	t.Run("Requires Node", func(t *testing.T) {
		_, err := s.handlePredictNext(ctx, req, map[string]any{})
		require.Error(t, err)
	})

	t.Run("Rejects Unknown Node", func(t *testing.T) {
		_, err := s.handlePredictNext(ctx, req, map[string]any{"node": "nowhere"})
		require.Error(t, err)
	})
}

func TestHandleSessions(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	info, err := s.handleStartSession(ctx, req, map[string]any{"id": "sess-1", "actor": "user"})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", info.ID)
	assert.True(t, info.Active)

	_, err = s.handleStartSession(ctx, req, map[string]any{"id": "sess-1"})
	require.ErrorIs(t, err, domain.ErrDuplicateSession)

	info, err = s.handleEndSession(ctx, req, map[string]any{"id": "sess-1", "reason": "abandoned"})
	require.NoError(t, err)
	assert.False(t, info.Active)
	assert.Equal(t, domain.EndAbandoned, info.EndReason)

	_, err = s.handleEndSession(ctx, req, map[string]any{"id": "sess-1"})
	require.ErrorIs(t, err, domain.ErrSessionAlreadyEnded)

	_, err = s.handleEndSession(ctx, req, map[string]any{"id": "sess-1", "reason": "rage_quit"})
	require.Error(t, err)

	_, err = s.handleEndSession(ctx, req, map[string]any{})
	require.Error(t, err)
}

func TestHandleGetSummary(t *testing.T) {
	s := newTestServer(t)

	sum, err := s.handleGetSummary(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	// The inbox -> triage -> reply cycle plus the login singleton.
	assert.Equal(t, 2, sum.SCCs)
}

func TestHandleExportWeights(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	_, err := s.handleRecordTransition(ctx, req, map[string]any{"from": "login", "to": "inbox"})
	require.NoError(t, err)

	snap, err := s.handleExportWeights(ctx, req, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.Version, snap.Version)
	assert.Len(t, snap.Weights, 1)
}
