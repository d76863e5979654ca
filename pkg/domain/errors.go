package domain

import "fmt"

// Code classifies an engine error.
type Code string

const (
	CodeInvalidTransition   Code = "invalid_transition"
	CodeNodeNotFound        Code = "node_not_found"
	CodeDuplicateNode       Code = "duplicate_node"
	CodeDuplicateTransition Code = "duplicate_transition"
	CodeSessionNotFound     Code = "session_not_found"
	CodeSessionExpired      Code = "session_expired"
	CodeSessionAlreadyEnded Code = "session_already_ended"
	CodeDuplicateSession    Code = "duplicate_session"
	CodeBuildFailed         Code = "build_failed"
	CodeImportFailed        Code = "import_failed"
	CodeExportFailed        Code = "export_failed"
	CodeModelMismatch       Code = "model_mismatch"
	CodeInsufficientData    Code = "insufficient_data"
	CodeSnapshotNotFound    Code = "snapshot_not_found"
)

// Error is the structured error every cairn operation returns. Code is
// always set; the locator fields are filled when they apply.
type Error struct {
	Code          Code   `json:"code"`
	Message       string `json:"message"`
	NodeID        string `json:"node_id,omitempty"`
	TransitionKey string `json:"transition_key,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	Cause         error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so callers can compare
// against the sentinel values below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel values for errors.Is matching. These carry only a code; real
// errors returned by the engine add messages and locator fields.
var (
	ErrInvalidTransition   = &Error{Code: CodeInvalidTransition}
	ErrNodeNotFound        = &Error{Code: CodeNodeNotFound}
	ErrDuplicateNode       = &Error{Code: CodeDuplicateNode}
	ErrDuplicateTransition = &Error{Code: CodeDuplicateTransition}
	ErrSessionNotFound     = &Error{Code: CodeSessionNotFound}
	ErrSessionExpired      = &Error{Code: CodeSessionExpired}
	ErrSessionAlreadyEnded = &Error{Code: CodeSessionAlreadyEnded}
	ErrDuplicateSession    = &Error{Code: CodeDuplicateSession}
	ErrBuildFailed         = &Error{Code: CodeBuildFailed}
	ErrImportFailed        = &Error{Code: CodeImportFailed}
	ErrExportFailed        = &Error{Code: CodeExportFailed}
	ErrModelMismatch       = &Error{Code: CodeModelMismatch}
	ErrInsufficientData    = &Error{Code: CodeInsufficientData}
	ErrSnapshotNotFound    = &Error{Code: CodeSnapshotNotFound}
)

// NewInvalidTransition reports a transition the graph does not permit.
func NewInvalidTransition(from, to string) *Error {
	return &Error{
		Code:          CodeInvalidTransition,
		Message:       fmt.Sprintf("transition %s -> %s is not defined", from, to),
		TransitionKey: TransitionKey(from, to),
	}
}

// NewNodeNotFound reports a reference to an unknown node.
func NewNodeNotFound(id string) *Error {
	return &Error{
		Code:    CodeNodeNotFound,
		Message: fmt.Sprintf("node %q does not exist", id),
		NodeID:  id,
	}
}

// NewDuplicateNode reports a node declared twice during construction.
func NewDuplicateNode(id string) *Error {
	return &Error{
		Code:    CodeDuplicateNode,
		Message: fmt.Sprintf("node %q declared more than once", id),
		NodeID:  id,
	}
}

// NewDuplicateTransition reports a (from,to) pair declared twice.
func NewDuplicateTransition(from, to string) *Error {
	return &Error{
		Code:          CodeDuplicateTransition,
		Message:       fmt.Sprintf("transition %s -> %s declared more than once", from, to),
		TransitionKey: TransitionKey(from, to),
	}
}

// NewSessionNotFound reports an operation on an unknown session ID.
func NewSessionNotFound(id string) *Error {
	return &Error{
		Code:      CodeSessionNotFound,
		Message:   fmt.Sprintf("session %q does not exist", id),
		SessionID: id,
	}
}

// NewSessionAlreadyEnded reports endSession on an ended session.
func NewSessionAlreadyEnded(id string) *Error {
	return &Error{
		Code:      CodeSessionAlreadyEnded,
		Message:   fmt.Sprintf("session %q has already ended", id),
		SessionID: id,
	}
}

// NewDuplicateSession reports an explicit session ID that is already
// taken. Ended sessions keep their IDs; use resume instead.
func NewDuplicateSession(id string) *Error {
	return &Error{
		Code:      CodeDuplicateSession,
		Message:   fmt.Sprintf("session %q already exists", id),
		SessionID: id,
	}
}

// NewBuildFailed wraps construction findings into a hard error.
func NewBuildFailed(msg string, cause error) *Error {
	return &Error{Code: CodeBuildFailed, Message: msg, Cause: cause}
}

// NewImportFailed reports an unreadable or invalid snapshot.
func NewImportFailed(msg string, cause error) *Error {
	return &Error{Code: CodeImportFailed, Message: msg, Cause: cause}
}

// NewExportFailed reports a failed snapshot serialization.
func NewExportFailed(msg string, cause error) *Error {
	return &Error{Code: CodeExportFailed, Message: msg, Cause: cause}
}

// NewModelMismatch reports a snapshot whose schema version does not
// match the one this build writes.
func NewModelMismatch(got, want int) *Error {
	return &Error{
		Code:    CodeModelMismatch,
		Message: fmt.Sprintf("snapshot schema version %d does not match expected %d", got, want),
	}
}
