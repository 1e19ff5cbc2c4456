package store

import (
	"context"
	"time"

	"github.com/fitcoach/coach/internal/domain"
)

// ExclusionPolicy selects which past exercises are excluded from the next workout.
type ExclusionPolicy string

// Supported exclusion policies.
const (
	// ExcludeLastWorkout excludes every exercise performed at the user's most
	// recent performed_at instant.
	ExcludeLastWorkout ExclusionPolicy = "last_workout"

	// ExcludeYesterday excludes every exercise performed on the calendar day
	// (UTC) before now.
	ExcludeYesterday ExclusionPolicy = "yesterday"
)

// WorkoutHistory records which exercises a user performed and when.
type WorkoutHistory interface {
	// ExcludedExerciseIDs returns the exercise ids the configured policy
	// excludes for email as of now.
	ExcludedExerciseIDs(ctx context.Context, email string, now time.Time) ([]int64, error)

	// Record appends one history row per exercise id, all stamped with at.
	Record(ctx context.Context, email string, exerciseIDs []int64, at time.Time) error

	// PerformedBetween lists what email performed in [from, to), newest
	// first. A zero from or to leaves that bound open and limit <= 0 means
	// no limit.
	PerformedBetween(ctx context.Context, email string, from, to time.Time, limit int) ([]domain.PerformedExercise, error)
}

// PreviousDay returns the UTC calendar day before now as a half-open range.
func PreviousDay(now time.Time) (time.Time, time.Time) {
	u := now.UTC()
	today := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -1), today
}
