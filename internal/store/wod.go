package store

import (
	"context"
	"database/sql"

	"github.com/fitcoach/coach/internal/domain"
)

// TopExercisesLimit caps WorkoutStats.TopExercises.
const TopExercisesLimit = 5

// WodStore persists generated workouts and serves the latest one per user.
type WodStore interface {
	// Save persists the workout header, its exercises and their muscle-group
	// impacts atomically, and returns the new workout id. On failure nothing
	// is visible to readers.
	Save(ctx context.Context, wod *domain.Wod) (int64, error)

	// LatestForUser returns the most recent workout for email ordered by
	// created_at then id, both descending. Returns ErrWodNotFound when the
	// user has none.
	LatestForUser(ctx context.Context, email string) (*domain.Wod, error)

	// StatsForUser summarises every stored workout of email. It never
	// returns ErrWodNotFound; a user without workouts gets zero counts.
	StatsForUser(ctx context.Context, email string) (*domain.WorkoutStats, error)

	// WithTx returns a new WodStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) WodStore
}
