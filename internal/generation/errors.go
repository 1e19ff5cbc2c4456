package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation package
var (
	// ErrUpstreamUnavailable is returned when the workout history or the
	// exercise catalog cannot be read. It is transient.
	ErrUpstreamUnavailable = errors.New("upstream collaborator unavailable")

	// ErrPersistence is returned when the generated workout cannot be stored.
	// Nothing from the failed attempt is visible to readers.
	ErrPersistence = errors.New("failed to persist workout")

	// ErrSimulatedFailure is injected by ChaosGenerator.
	ErrSimulatedFailure = errors.New("simulated failure")

	// ErrEmptyCatalog is returned when the catalog has no exercises at all.
	ErrEmptyCatalog = fmt.Errorf("%w: exercise catalog is empty", ErrUpstreamUnavailable)

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrNilDependency is returned when a required collaborator is nil.
	ErrNilDependency = errors.New("generator dependency cannot be nil")
)
