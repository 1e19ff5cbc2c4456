package domain

import (
	"errors"
	"fmt"
	"time"
)

// Workout shape constants.
const (
	DefaultWorkoutSize = 6

	MinSuggestedWeight = 5.0
	MaxSuggestedWeight = 50.0

	MinSuggestedReps = 8
	MaxSuggestedReps = 15
)

// Common validation errors for Wod
var (
	ErrEmptyWod              = errors.New("wod must contain at least one exercise")
	ErrDuplicateWodExercise  = errors.New("wod contains the same exercise twice")
	ErrWeightOutOfRange      = errors.New("suggested weight out of range")
	ErrRepsOutOfRange        = errors.New("suggested reps out of range")
	ErrMissingWodCreatedTime = errors.New("wod created_at must be set")
)

// WodExercise is one exercise inside a generated workout, with its
// suggested load and computed muscle-group impacts.
type WodExercise struct {
	ExerciseID      int64               `json:"exercise_id"`
	Name            string              `json:"name"`
	Difficulty      int                 `json:"difficulty"`
	Position        int                 `json:"position"`
	SuggestedWeight float64             `json:"suggested_weight"`
	SuggestedReps   int                 `json:"suggested_reps"`
	MuscleGroups    []MuscleGroupImpact `json:"muscle_groups"`
}

// Wod is a generated workout of the day. It is never updated after creation;
// a newer Wod for the same user supersedes it.
type Wod struct {
	ID        int64         `json:"wod_id"`
	UserEmail string        `json:"user_email"`
	CreatedAt time.Time     `json:"created_at"`
	Exercises []WodExercise `json:"exercises"`
}

// Validate checks the structural invariants of a Wod before it is persisted.
func (w *Wod) Validate() error {
	if w.UserEmail == "" {
		return ErrEmptyEmail
	}
	if w.CreatedAt.IsZero() {
		return ErrMissingWodCreatedTime
	}
	if len(w.Exercises) == 0 {
		return ErrEmptyWod
	}

	seen := make(map[int64]struct{}, len(w.Exercises))
	for _, ex := range w.Exercises {
		if _, dup := seen[ex.ExerciseID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateWodExercise, ex.ExerciseID)
		}
		seen[ex.ExerciseID] = struct{}{}

		if ex.SuggestedWeight < MinSuggestedWeight || ex.SuggestedWeight > MaxSuggestedWeight {
			return fmt.Errorf("%w: %.2f", ErrWeightOutOfRange, ex.SuggestedWeight)
		}
		if ex.SuggestedReps < MinSuggestedReps || ex.SuggestedReps > MaxSuggestedReps {
			return fmt.Errorf("%w: %d", ErrRepsOutOfRange, ex.SuggestedReps)
		}
	}

	return nil
}

// ExerciseIDs returns the catalog ids of the workout's exercises in order.
func (w *Wod) ExerciseIDs() []int64 {
	ids := make([]int64, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		ids = append(ids, ex.ExerciseID)
	}
	return ids
}
