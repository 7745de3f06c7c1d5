package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure; no infrastructure dependency.

var (
	// Submission / read errors, surfaced synchronously to the caller.
	ErrInvalidAgentKind = errors.New("unknown agent type")
	ErrInvalidInput     = errors.New("input data is missing a required field")
	ErrTaskNotFound     = errors.New("task not found")
	ErrForbidden        = errors.New("task belongs to a different owner")

	// Backend errors occur only inside the worker and are recorded on the task.
	ErrBackendUnavailable = errors.New("inference backend unreachable")
	ErrBackendTimeout     = errors.New("inference backend timed out")

	// User / auth errors
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
	ErrTokenInvalid   = errors.New("invalid or expired token")
)

// StepError reports a crew pipeline failure: which step failed (1-indexed,
// in pipeline order) and why. Steps persisted before the failure remain.
type StepError struct {
	Step  int
	Agent string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline step %d (%s) failed: %v", e.Step, e.Agent, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
