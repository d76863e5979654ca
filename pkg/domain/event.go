package domain

import "time"

// EventType categorizes a recorded ActionEvent.
type EventType string

const (
	EventTransition   EventType = "transition"
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
)

// ActionEvent is one recorded occurrence in a session. Events are
// immutable once appended.
//
// Duration is the elapsed time since the previous event in the same
// session; SessionElapsed is the elapsed time since the session began.
// Both are zero for the first event of a session.
type ActionEvent struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id,omitempty"`
	Actor          Actor          `json:"actor"`
	From           string         `json:"from,omitempty"`
	To             string         `json:"to,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Duration       time.Duration  `json:"duration"`
	SessionElapsed time.Duration  `json:"session_elapsed"`
	Type           EventType      `json:"type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
