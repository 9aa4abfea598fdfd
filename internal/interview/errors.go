package interview

import "errors"

var (
	// ErrInvalidStateTransition is returned when an operation is not valid for the current status.
	ErrInvalidStateTransition = errors.New("interview: invalid state transition")
	// ErrSlotNotFound is returned when a slot index does not reference an existing slot.
	ErrSlotNotFound = errors.New("interview: slot not found")
	// ErrVotingClosed is returned for votes after the deadline or after confirmation.
	ErrVotingClosed = errors.New("interview: voting closed")
	// ErrAlreadyConfirmed is returned when a different slot was already confirmed.
	ErrAlreadyConfirmed = errors.New("interview: already confirmed")
	// ErrCancellationWindowClosed is returned when less than the minimum notice remains.
	ErrCancellationWindowClosed = errors.New("interview: cancellation window closed")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error. The first message for a field wins.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// Merge copies entries from another validation error into the receiver.
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.Add(field, msg)
	}
}
