package domain

import "time"

// Notification payloads delivered to engine subscribers. Listeners run
// synchronously on the calling goroutine in subscription order; a
// panicking listener is recovered and must not stop the others.

// TransitionEvent is emitted after a transition is recorded.
type TransitionEvent struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	Context   RecordContext `json:"context"`
	Timestamp time.Time     `json:"timestamp"`
}

// PredictionEvent is emitted after a prediction is served. Elapsed is
// the wall-clock computation time, measured independently of the
// engine's injectable clock.
type PredictionEvent struct {
	Node       string        `json:"node"`
	Actor      Actor         `json:"actor"`
	Candidates []string      `json:"candidates"`
	Elapsed    time.Duration `json:"elapsed"`
	Timestamp  time.Time     `json:"timestamp"`
}

// WeightUpdateEvent is emitted when a weight entry changes through
// updateWeight or setWeight.
type WeightUpdateEvent struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Actor     Actor     `json:"actor"`
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"timestamp"`
}

// DecayEvent is emitted once per explicit decay pass.
type DecayEvent struct {
	Touched   int       `json:"touched"`
	Removed   int       `json:"removed"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionEvent is emitted when a session starts or ends.
type SessionEvent struct {
	Session   SessionInfo `json:"session"`
	Reason    EndReason   `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// PatternKind labels a detected behavioral pattern.
type PatternKind string

const (
	PatternScheduled PatternKind = "scheduled"
	PatternTriggered PatternKind = "triggered"
	PatternRobotic   PatternKind = "robotic"
)

// PatternEvent is emitted for each automation candidate the analyzer
// discovers.
type PatternEvent struct {
	Kind         PatternKind `json:"kind"`
	Nodes        []string    `json:"nodes"`
	AvgFrequency float64     `json:"avg_frequency"`
	Confidence   float64     `json:"confidence"`
	Timestamp    time.Time   `json:"timestamp"`
}
