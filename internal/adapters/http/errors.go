package http

import (
	"errors"
	"net/http"

	"github.com/aretw0/cairn/pkg/domain"
)

// statusFor maps an engine error code onto an HTTP status.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case domain.CodeNodeNotFound, domain.CodeSessionNotFound, domain.CodeSnapshotNotFound:
		return http.StatusNotFound
	case domain.CodeSessionExpired, domain.CodeSessionAlreadyEnded,
		domain.CodeDuplicateSession, domain.CodeModelMismatch:
		return http.StatusConflict
	case domain.CodeImportFailed, domain.CodeInsufficientData:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError serializes err in the contract's Error shape. Engine
// errors carry their own code and locator fields; anything else is
// reported as internal without leaking detail to the client.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		s.writeJSON(w, statusFor(derr.Code), derr)
		return
	}
	s.logger.Error("request failed", "error", err)
	s.writeJSON(w, http.StatusInternalServerError, &domain.Error{
		Code:    "internal",
		Message: "internal error",
	})
}

// badRequest reports a malformed request in the same error shape.
func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, &domain.Error{Code: "bad_request", Message: msg})
}
