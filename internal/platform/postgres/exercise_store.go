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

const exerciseColumns = `e.id, e.name, COALESCE(e.description, ''), e.difficulty,
		       COALESCE(e.equipment, ''), COALESCE(e.instructions, '')`

// PostgresExerciseStore implements store.ExerciseCatalog. It never writes;
// the catalog is seeded by migrations.
type PostgresExerciseStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresExerciseStore creates a catalog reader over db.
func NewPostgresExerciseStore(db store.DBTX, logger *slog.Logger) *PostgresExerciseStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresExerciseStore{
		db:     db,
		logger: logger.With(slog.String("component", "exercise_store")),
	}
}

var _ store.ExerciseCatalog = (*PostgresExerciseStore)(nil)

// ListExercises implements store.ExerciseCatalog.
func (s *PostgresExerciseStore) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM exercises e ORDER BY e.id`
	exercises, err := s.queryExercises(ctx, query)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list exercises",
			slog.String("error", err.Error()))
		return nil, err
	}
	return exercises, nil
}

// GetExercise implements store.ExerciseCatalog.
func (s *PostgresExerciseStore) GetExercise(ctx context.Context, id int64) (*domain.Exercise, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + exerciseColumns + ` FROM exercises e WHERE e.id = $1`

	var ex domain.Exercise
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ex.ID, &ex.Name, &ex.Description, &ex.Difficulty, &ex.Equipment, &ex.Instructions,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("exercise not found", slog.Int64("exercise_id", id))
			return nil, store.ErrExerciseNotFound
		}
		log.Error("failed to get exercise",
			slog.String("error", err.Error()),
			slog.Int64("exercise_id", id))
		return nil, MapError(err)
	}

	groups, err := s.MuscleGroupsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	ex.MuscleGroups = groups[id]
	return &ex, nil
}

// ListByMuscleGroup implements store.ExerciseCatalog.
func (s *PostgresExerciseStore) ListByMuscleGroup(ctx context.Context, muscleGroupID int64) ([]domain.Exercise, error) {
	query := `SELECT ` + exerciseColumns + `
		FROM exercises e
		JOIN exercise_muscle_groups emg ON emg.exercise_id = e.id
		WHERE emg.muscle_group_id = $1
		ORDER BY e.id`

	exercises, err := s.queryExercises(ctx, query, muscleGroupID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list exercises by muscle group",
			slog.String("error", err.Error()),
			slog.Int64("muscle_group_id", muscleGroupID))
		return nil, err
	}
	return exercises, nil
}

// MuscleGroupsFor implements store.ExerciseCatalog.
func (s *PostgresExerciseStore) MuscleGroupsFor(ctx context.Context, exerciseIDs []int64) (map[int64][]domain.ExerciseMuscleGroup, error) {
	out := make(map[int64][]domain.ExerciseMuscleGroup, len(exerciseIDs))
	if len(exerciseIDs) == 0 {
		return out, nil
	}
	for _, id := range exerciseIDs {
		out[id] = []domain.ExerciseMuscleGroup{}
	}

	query := `
		SELECT emg.exercise_id, mg.id, mg.name, mg.body_part, COALESCE(mg.description, ''), emg.is_primary
		FROM exercise_muscle_groups emg
		JOIN muscle_groups mg ON mg.id = emg.muscle_group_id
		WHERE emg.exercise_id = ANY($1)
		ORDER BY emg.exercise_id, emg.is_primary DESC, mg.id
	`

	rows, err := s.db.QueryContext(ctx, query, exerciseIDs)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query muscle groups",
			slog.String("error", err.Error()),
			slog.Int("exercises", len(exerciseIDs)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var exerciseID int64
		var mg domain.ExerciseMuscleGroup
		if err := rows.Scan(&exerciseID, &mg.ID, &mg.Name, &mg.BodyPart, &mg.Description, &mg.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan muscle group: %w", err)
		}
		out[exerciseID] = append(out[exerciseID], mg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate muscle groups: %w", err)
	}
	return out, nil
}

func (s *PostgresExerciseStore) queryExercises(ctx context.Context, query string, args ...any) ([]domain.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	exercises := []domain.Exercise{}
	for rows.Next() {
		var ex domain.Exercise
		if err := rows.Scan(&ex.ID, &ex.Name, &ex.Description, &ex.Difficulty, &ex.Equipment, &ex.Instructions); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exercises: %w", err)
	}
	return exercises, nil
}
