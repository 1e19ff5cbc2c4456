package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/store"
)

const (
	lastWorkoutExclusionQuery = `
		SELECT DISTINCT exercise_id
		FROM workout_history
		WHERE user_email = $1
		  AND performed_at = (
		      SELECT MAX(performed_at) FROM workout_history WHERE user_email = $1
		  )
		ORDER BY exercise_id
	`

	windowExclusionQuery = `
		SELECT DISTINCT exercise_id
		FROM workout_history
		WHERE user_email = $1 AND performed_at >= $2 AND performed_at < $3
		ORDER BY exercise_id
	`

	performedQuery = `
		SELECT h.exercise_id, e.name, h.performed_at
		FROM workout_history h
		JOIN exercises e ON e.id = h.exercise_id
		WHERE h.user_email = $1
		  AND ($2::timestamptz IS NULL OR h.performed_at >= $2)
		  AND ($3::timestamptz IS NULL OR h.performed_at < $3)
		ORDER BY h.performed_at DESC, h.id DESC
		LIMIT $4
	`

	recordHistoryQuery = `
		INSERT INTO workout_history (user_email, exercise_id, performed_at)
		SELECT $1, unnest($2::bigint[]), $3
	`
)

// PostgresHistoryStore implements store.WorkoutHistory.
type PostgresHistoryStore struct {
	db     store.DBTX
	policy store.ExclusionPolicy
	logger *slog.Logger
}

// NewPostgresHistoryStore creates a history store applying policy.
func NewPostgresHistoryStore(db store.DBTX, policy store.ExclusionPolicy, logger *slog.Logger) (*PostgresHistoryStore, error) {
	if db == nil {
		panic("db cannot be nil")
	}
	switch policy {
	case store.ExcludeLastWorkout, store.ExcludeYesterday:
	default:
		return nil, fmt.Errorf("unknown exclusion policy %q", policy)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresHistoryStore{
		db:     db,
		policy: policy,
		logger: logger.With(slog.String("component", "history_store")),
	}, nil
}

var _ store.WorkoutHistory = (*PostgresHistoryStore)(nil)

// WithTx returns a history store that uses tx.
func (s *PostgresHistoryStore) WithTx(tx *sql.Tx) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: tx, policy: s.policy, logger: s.logger}
}

// ExcludedExerciseIDs implements store.WorkoutHistory.
func (s *PostgresHistoryStore) ExcludedExerciseIDs(ctx context.Context, email string, now time.Time) ([]int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var rows *sql.Rows
	var err error
	switch s.policy {
	case store.ExcludeYesterday:
		from, to := store.PreviousDay(now)
		rows, err = s.db.QueryContext(ctx, windowExclusionQuery, email, from, to)
	default:
		rows, err = s.db.QueryContext(ctx, lastWorkoutExclusionQuery, email)
	}
	if err != nil {
		log.Error("failed to query workout history",
			slog.String("error", err.Error()),
			slog.String("user_email", email),
			slog.String("policy", string(s.policy)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exercise id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workout history: %w", err)
	}
	return ids, nil
}

// Record implements store.WorkoutHistory.
func (s *PostgresHistoryStore) Record(ctx context.Context, email string, exerciseIDs []int64, at time.Time) error {
	if len(exerciseIDs) == 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, recordHistoryQuery, email, exerciseIDs, at); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record workout history",
			slog.String("error", err.Error()),
			slog.String("user_email", email))
		return MapError(err)
	}
	return nil
}

// PerformedBetween implements store.WorkoutHistory.
func (s *PostgresHistoryStore) PerformedBetween(ctx context.Context, email string, from, to time.Time, limit int) ([]domain.PerformedExercise, error) {
	// NULL bounds and a NULL limit leave the query open on that side.
	var lower, upper sql.NullTime
	if !from.IsZero() {
		lower = sql.NullTime{Time: from.UTC(), Valid: true}
	}
	if !to.IsZero() {
		upper = sql.NullTime{Time: to.UTC(), Valid: true}
	}
	var rowLimit sql.NullInt64
	if limit > 0 {
		rowLimit = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, performedQuery, email, lower, upper, rowLimit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query performed exercises",
			slog.String("error", err.Error()),
			slog.String("user_email", email))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.PerformedExercise{}
	for rows.Next() {
		var p domain.PerformedExercise
		if err := rows.Scan(&p.ExerciseID, &p.Name, &p.PerformedAt); err != nil {
			return nil, fmt.Errorf("scan performed exercise: %w", err)
		}
		p.PerformedAt = p.PerformedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performed exercises: %w", err)
	}
	return out, nil
}
