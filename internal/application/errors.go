package application

import (
	"errors"

	"github.com/example/interview-scheduler/internal/interview"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrProposalNotFound is returned when no proposal exists for the application.
	ErrProposalNotFound = errors.New("application: proposal not found")
	// ErrApplicationNotFound is returned when the application directory has no such application.
	ErrApplicationNotFound = errors.New("application: job application not found")
	// ErrConcurrentModification is returned when optimistic writes keep conflicting.
	ErrConcurrentModification = errors.New("application: concurrent modification")
	// ErrOracleUnavailable marks a failed or timed out suggestion request. It is
	// logged and never returned to callers.
	ErrOracleUnavailable = errors.New("application: availability oracle unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError = interview.ValidationError

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.Add(field, message)
	return vErr
}
