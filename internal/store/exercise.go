package store

import (
	"context"

	"github.com/fitcoach/coach/internal/domain"
)

// ExerciseCatalog is read-only access to the exercise catalog.
type ExerciseCatalog interface {
	// ListExercises returns every exercise in the catalog ordered by id.
	ListExercises(ctx context.Context) ([]domain.Exercise, error)

	// GetExercise returns one exercise with its muscle groups, or ErrExerciseNotFound.
	GetExercise(ctx context.Context, id int64) (*domain.Exercise, error)

	// ListByMuscleGroup returns exercises that work the given muscle group.
	ListByMuscleGroup(ctx context.Context, muscleGroupID int64) ([]domain.Exercise, error)

	// MuscleGroupsFor returns the muscle groups of each requested exercise,
	// keyed by exercise id. Exercises without groups map to an empty slice.
	MuscleGroupsFor(ctx context.Context, exerciseIDs []int64) (map[int64][]domain.ExerciseMuscleGroup, error)
}
