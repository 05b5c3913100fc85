package errors

import (
	"errors"
	"strings"
)

var (
	ErrInvalidElectionInput = errors.New("invalid election input")
	ErrElectionNotFound     = errors.New("election not found")
	ErrPositionNotFound     = errors.New("position not found in election")
	ErrCandidateNotFound    = errors.New("candidate not found in position")
	ErrElectionNotDraft     = errors.New("election is no longer editable")
	ErrElectionNotActive    = errors.New("election is not accepting votes")
	ErrElectionCompleted    = errors.New("election is already completed")
	ErrElectionActive       = errors.New("election is currently active")
	ErrNoActiveElection     = errors.New("no election is currently active")
	ErrVoterRequired        = errors.New("voter identity is required")
	ErrStorage              = errors.New("storage operation failed")
)

// ValidationError reports every constraint violation found in an admin
// submission, not just the first. It unwraps to ErrInvalidElectionInput so
// callers can classify it with errors.Is.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrInvalidElectionInput.Error()
	}
	return ErrInvalidElectionInput.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidElectionInput
}

func NewValidationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
