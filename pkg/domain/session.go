package domain

import "time"

// EndReason describes why a session stopped being active.
type EndReason string

const (
	// EndCompleted is the default reason for an explicit endSession call.
	EndCompleted EndReason = "completed"
	// EndAbandoned is set when a new session for the same actor displaces
	// a still-active one.
	EndAbandoned EndReason = "abandoned"
	// EndTimeout is set when the idle timeout expires. The check is lazy:
	// it runs when the session is next read, not on a background timer.
	EndTimeout EndReason = "timeout"
)

// SessionInfo is the caller-visible snapshot of a tracked session.
// NodeHistory lists the destination nodes of recorded transitions in
// order. EndReason is empty while the session is active.
type SessionInfo struct {
	ID           string    `json:"id"`
	Actor        Actor     `json:"actor"`
	StartTime    time.Time `json:"start_time"`
	LastActivity time.Time `json:"last_activity"`
	NodeHistory  []string  `json:"node_history"`
	Active       bool      `json:"active"`
	EndReason    EndReason `json:"end_reason,omitempty"`
}

// ChainOptions filters and bounds a cross-session event chain query.
// A zero Limit falls back to the engine's configured chain limit; the
// most recent events are kept when the limit truncates.
type ChainOptions struct {
	Since time.Time
	Until time.Time
	Limit int
}

// TruncateStrategy selects the eviction policy for TruncateChain.
type TruncateStrategy string

const (
	// TruncateRecency keeps the most recent events.
	TruncateRecency TruncateStrategy = "recency"
	// TruncateFrequency keeps events of the most repeated (from,to)
	// pairs, newest first within a pair.
	TruncateFrequency TruncateStrategy = "frequency"
	// TruncateHybrid splits the budget between recency and frequency.
	TruncateHybrid TruncateStrategy = "hybrid"
)
