package domain

// RecordContext carries the circumstances of a recorded transition.
// Actor defaults to ActorUser when empty. SessionID is optional; when it
// names an active session the event is appended to that session's log.
type RecordContext struct {
	Actor     Actor          `json:"actor,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Normalize fills defaults in place and returns the context.
func (rc RecordContext) Normalize() RecordContext {
	if rc.Actor == "" {
		rc.Actor = ActorUser
	}
	return rc
}

// PredictContext carries the parameters of a prediction request.
// Count bounds the number of candidates; zero means the engine default.
type PredictContext struct {
	Actor Actor `json:"actor,omitempty"`
	Count int   `json:"count,omitempty"`
}

// Normalize fills defaults in place and returns the context.
func (pc PredictContext) Normalize(defaultCount int) PredictContext {
	if pc.Actor == "" {
		pc.Actor = ActorUser
	}
	if pc.Count <= 0 {
		pc.Count = defaultCount
	}
	return pc
}
