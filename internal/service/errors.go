package service

import (
	"errors"
	"fmt"

	"github.com/fitcoach/coach/internal/store"
)

// Sentinel errors returned by WodService. The API layer maps them to HTTP
// status codes.
var (
	// ErrInvalidEmail indicates the request did not name a user.
	ErrInvalidEmail = errors.New("user email is required")

	// ErrWodNotFound indicates the user has no stored workout yet.
	ErrWodNotFound = errors.New("no workout found for user")

	// ErrRequestNotFound indicates no generation request has the given id.
	ErrRequestNotFound = errors.New("generation request not found")

	// ErrExerciseNotFound indicates the exercise is not in the catalog.
	ErrExerciseNotFound = errors.New("exercise not found")

	// ErrNoUsers indicates a fan-out found nobody to generate for.
	ErrNoUsers = errors.New("no users found")

	// ErrEnqueueFailed indicates the request was recorded but could not be
	// handed to the broker.
	ErrEnqueueFailed = errors.New("failed to enqueue generation request")
)

// WodServiceError wraps errors from the wod service with context.
type WodServiceError struct {
	// Operation is the operation that failed (e.g., "request_wod", "latest_wod")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for WodServiceError.
func (e *WodServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wod service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("wod service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *WodServiceError) Unwrap() error {
	return e.Err
}

// NewWodServiceError creates a new WodServiceError. Store not-found errors
// are translated to the matching service sentinel and returned unwrapped.
func NewWodServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrWodNotFound), errors.Is(err, store.ErrWodNotFound):
		return ErrWodNotFound
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, store.ErrRequestNotFound):
		return ErrRequestNotFound
	case errors.Is(err, ErrExerciseNotFound), errors.Is(err, store.ErrExerciseNotFound):
		return ErrExerciseNotFound
	}

	return &WodServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
