package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when the broker cannot be reached or the
	// connection is lost.
	ErrConnection = errors.New("broker connection failed")

	// ErrValidation is returned when a request payload is malformed.
	ErrValidation = errors.New("invalid task payload")

	// ErrPublish is returned when a message could not be handed to the broker.
	ErrPublish = errors.New("publish failed")

	// ErrNotConnected is returned when an operation needs an open channel.
	ErrNotConnected = fmt.Errorf("%w: client is not connected", ErrConnection)
)

// ValidationError describes which field of a payload is malformed.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task payload: %s %s", e.Field, e.Reason)
}

// Is reports ErrValidation so callers can match with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
