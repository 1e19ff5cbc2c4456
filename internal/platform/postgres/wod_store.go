package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/store"
)

const (
	insertWodQuery = `
		INSERT INTO wods (user_email, created_at)
		VALUES ($1, $2)
		RETURNING id
	`

	insertWodExerciseQuery = `
		INSERT INTO wod_exercises (wod_id, exercise_id, position, suggested_weight, suggested_reps)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	insertWodImpactQuery = `
		INSERT INTO wod_exercise_muscle_groups (wod_exercise_id, muscle_group_id, is_primary, intensity)
		VALUES ($1, $2, $3, $4)
	`

	latestWodQuery = `
		SELECT id, user_email, created_at
		FROM wods
		WHERE user_email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	wodExercisesQuery = `
		SELECT we.id, we.exercise_id, e.name, e.difficulty, we.position,
		       we.suggested_weight, we.suggested_reps
		FROM wod_exercises we
		JOIN exercises e ON e.id = we.exercise_id
		WHERE we.wod_id = $1
		ORDER BY we.position
	`

	wodImpactsQuery = `
		SELECT i.wod_exercise_id, i.muscle_group_id, mg.name, mg.body_part,
		       i.is_primary, i.intensity
		FROM wod_exercise_muscle_groups i
		JOIN wod_exercises we ON we.id = i.wod_exercise_id
		JOIN muscle_groups mg ON mg.id = i.muscle_group_id
		WHERE we.wod_id = $1
		ORDER BY i.wod_exercise_id, i.is_primary DESC, i.muscle_group_id
	`
)

// PostgresWodStore implements store.WodStore.
type PostgresWodStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWodStore creates a WodStore over db. If logger is nil, the
// default logger is used.
func NewPostgresWodStore(db store.DBTX, logger *slog.Logger) *PostgresWodStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWodStore{
		db:     db,
		logger: logger.With(slog.String("component", "wod_store")),
	}
}

// Ensure PostgresWodStore implements store.WodStore interface
var _ store.WodStore = (*PostgresWodStore)(nil)

// WithTx implements store.WodStore.
func (s *PostgresWodStore) WithTx(tx *sql.Tx) store.WodStore {
	return &PostgresWodStore{db: tx, logger: s.logger}
}

// Save implements store.WodStore. The header row, the exercise rows and
// their impact rows are written in one transaction.
func (s *PostgresWodStore) Save(ctx context.Context, wod *domain.Wod) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := wod.Validate(); err != nil {
		log.Warn("wod validation failed during save",
			slog.String("error", err.Error()),
			slog.String("user_email", wod.UserEmail))
		return 0, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var wodID int64
	err := store.WithinTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, insertWodQuery, wod.UserEmail, wod.CreatedAt).Scan(&wodID); err != nil {
			return fmt.Errorf("insert wod: %w", MapError(err))
		}

		for _, ex := range wod.Exercises {
			var wodExerciseID int64
			err := tx.QueryRowContext(ctx, insertWodExerciseQuery,
				wodID, ex.ExerciseID, ex.Position, ex.SuggestedWeight, ex.SuggestedReps,
			).Scan(&wodExerciseID)
			if err != nil {
				return fmt.Errorf("insert wod exercise %d: %w", ex.ExerciseID, MapError(err))
			}

			for _, impact := range ex.MuscleGroups {
				if _, err := tx.ExecContext(ctx, insertWodImpactQuery,
					wodExerciseID, impact.MuscleGroupID, impact.IsPrimary, impact.Intensity,
				); err != nil {
					return fmt.Errorf("insert muscle group impact %d: %w", impact.MuscleGroupID, MapError(err))
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save wod",
			slog.String("error", err.Error()),
			slog.String("user_email", wod.UserEmail))
		return 0, store.NewStoreError("wod", "save", "failed to persist wod", err)
	}

	log.Debug("wod saved",
		slog.Int64("wod_id", wodID),
		slog.String("user_email", wod.UserEmail),
		slog.Int("exercises", len(wod.Exercises)))
	return wodID, nil
}

// LatestForUser implements store.WodStore.
func (s *PostgresWodStore) LatestForUser(ctx context.Context, email string) (*domain.Wod, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var wod domain.Wod
	err := s.db.QueryRowContext(ctx, latestWodQuery, email).Scan(&wod.ID, &wod.UserEmail, &wod.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no wod for user", slog.String("user_email", email))
			return nil, store.ErrWodNotFound
		}
		log.Error("failed to query latest wod",
			slog.String("error", err.Error()),
			slog.String("user_email", email))
		return nil, MapError(err)
	}
	wod.CreatedAt = wod.CreatedAt.UTC()

	exercises, index, err := s.loadExercises(ctx, wod.ID)
	if err != nil {
		log.Error("failed to load wod exercises",
			slog.String("error", err.Error()),
			slog.Int64("wod_id", wod.ID))
		return nil, err
	}

	if err := s.loadImpacts(ctx, wod.ID, exercises, index); err != nil {
		log.Error("failed to load wod muscle groups",
			slog.String("error", err.Error()),
			slog.Int64("wod_id", wod.ID))
		return nil, err
	}

	wod.Exercises = exercises
	return &wod, nil
}

// loadExercises returns the workout's exercises in position order and an
// index from wod_exercises.id to slice position.
func (s *PostgresWodStore) loadExercises(ctx context.Context, wodID int64) ([]domain.WodExercise, map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, wodExercisesQuery, wodID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var exercises []domain.WodExercise
	index := make(map[int64]int)
	for rows.Next() {
		var rowID int64
		var ex domain.WodExercise
		if err := rows.Scan(&rowID, &ex.ExerciseID, &ex.Name, &ex.Difficulty, &ex.Position,
			&ex.SuggestedWeight, &ex.SuggestedReps); err != nil {
			return nil, nil, fmt.Errorf("scan wod exercise: %w", err)
		}
		ex.MuscleGroups = []domain.MuscleGroupImpact{}
		index[rowID] = len(exercises)
		exercises = append(exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate wod exercises: %w", err)
	}
	return exercises, index, nil
}

func (s *PostgresWodStore) loadImpacts(ctx context.Context, wodID int64, exercises []domain.WodExercise, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, wodImpactsQuery, wodID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rowID int64
		var impact domain.MuscleGroupImpact
		if err := rows.Scan(&rowID, &impact.MuscleGroupID, &impact.Name, &impact.BodyPart,
			&impact.IsPrimary, &impact.Intensity); err != nil {
			return fmt.Errorf("scan muscle group impact: %w", err)
		}
		i, ok := index[rowID]
		if !ok {
			continue
		}
		exercises[i].MuscleGroups = append(exercises[i].MuscleGroups, impact)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate muscle group impacts: %w", err)
	}
	return nil
}
