// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyEmail is returned when a required email address is missing.
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrUntrimmedEmail is returned when an email address carries surrounding
	// whitespace. Producers normalize with NormalizeEmail before publishing.
	ErrUntrimmedEmail = errors.New("email has surrounding whitespace")

	// ErrInvalidDifficulty is returned when an exercise difficulty is outside 1..5.
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 5")

	// ErrInvalidRequestStatus is returned when a request status is not valid.
	ErrInvalidRequestStatus = errors.New("invalid request status")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
