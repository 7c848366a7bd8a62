package mentoring

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound means the referenced session does not exist.
	// Distinct from ErrForbidden so HTTP callers can answer 404 vs 403;
	// the WebSocket join path drops silently on either.
	ErrSessionNotFound = errors.New("session not found")

	// ErrProfileNotFound means the principal has no student or mentor profile.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrForbidden means the principal resolved but is neither the session's
	// student nor its mentor.
	ErrForbidden = errors.New("access to session denied")

	// ErrNoMentorAvailable means no verified, available mentor could be
	// matched for a new session.
	ErrNoMentorAvailable = errors.New("no mentor available")

	// ErrSessionClosed means the session is already in a terminal state.
	ErrSessionClosed = errors.New("session already closed")
)

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}
