package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/store"
)

const (
	wodSummaryQuery = `
		SELECT COUNT(DISTINCT w.id),
		       COUNT(we.id),
		       COALESCE(SUM(we.suggested_weight * we.suggested_reps), 0)::double precision,
		       MIN(w.created_at),
		       MAX(w.created_at)
		FROM wods w
		LEFT JOIN wod_exercises we ON we.wod_id = w.id
		WHERE w.user_email = $1
	`

	topExercisesQuery = `
		SELECT we.exercise_id, e.name, COUNT(*) AS times
		FROM wod_exercises we
		JOIN wods w ON w.id = we.wod_id
		JOIN exercises e ON e.id = we.exercise_id
		WHERE w.user_email = $1
		GROUP BY we.exercise_id, e.name
		ORDER BY times DESC, we.exercise_id
		LIMIT $2
	`

	muscleGroupLoadQuery = `
		SELECT mg.id, mg.name, mg.body_part, SUM(i.intensity) AS total
		FROM wod_exercise_muscle_groups i
		JOIN wod_exercises we ON we.id = i.wod_exercise_id
		JOIN wods w ON w.id = we.wod_id
		JOIN muscle_groups mg ON mg.id = i.muscle_group_id
		WHERE w.user_email = $1
		GROUP BY mg.id, mg.name, mg.body_part
		ORDER BY total DESC, mg.id
	`
)

// StatsForUser implements store.WodStore.
func (s *PostgresWodStore) StatsForUser(ctx context.Context, email string) (*domain.WorkoutStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_email", email))

	stats := &domain.WorkoutStats{
		UserEmail:       email,
		TopExercises:    []domain.ExerciseFrequency{},
		MuscleGroupLoad: []domain.MuscleGroupLoad{},
	}

	var first, last sql.NullTime
	err := s.db.QueryRowContext(ctx, wodSummaryQuery, email).Scan(
		&stats.TotalWods, &stats.TotalExercises, &stats.TotalVolume, &first, &last)
	if err != nil {
		log.Error("failed to summarise wods", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if stats.TotalWods == 0 {
		return stats, nil
	}
	if first.Valid {
		t := first.Time.UTC()
		stats.FirstWodAt = &t
	}
	if last.Valid {
		t := last.Time.UTC()
		stats.LastWodAt = &t
	}

	if stats.TopExercises, err = s.topExercises(ctx, email); err != nil {
		log.Error("failed to count exercises", slog.String("error", err.Error()))
		return nil, err
	}
	if stats.MuscleGroupLoad, err = s.muscleGroupLoad(ctx, email); err != nil {
		log.Error("failed to sum muscle group load", slog.String("error", err.Error()))
		return nil, err
	}
	return stats, nil
}

func (s *PostgresWodStore) topExercises(ctx context.Context, email string) ([]domain.ExerciseFrequency, error) {
	rows, err := s.db.QueryContext(ctx, topExercisesQuery, email, store.TopExercisesLimit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.ExerciseFrequency{}
	for rows.Next() {
		var f domain.ExerciseFrequency
		if err := rows.Scan(&f.ExerciseID, &f.Name, &f.Times); err != nil {
			return nil, fmt.Errorf("scan exercise frequency: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exercise frequencies: %w", err)
	}
	return out, nil
}

func (s *PostgresWodStore) muscleGroupLoad(ctx context.Context, email string) ([]domain.MuscleGroupLoad, error) {
	rows, err := s.db.QueryContext(ctx, muscleGroupLoadQuery, email)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.MuscleGroupLoad{}
	for rows.Next() {
		var l domain.MuscleGroupLoad
		if err := rows.Scan(&l.MuscleGroupID, &l.Name, &l.BodyPart, &l.TotalIntensity); err != nil {
			return nil, fmt.Errorf("scan muscle group load: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate muscle group load: %w", err)
	}
	return out, nil
}
