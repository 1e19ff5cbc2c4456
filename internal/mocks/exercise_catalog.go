package mocks

import (
	"context"
	"strconv"
	"sync"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/store"
)

// MockExerciseCatalog implements store.ExerciseCatalog over a fixed slice.
type MockExerciseCatalog struct {
	ListExercisesFn     func(ctx context.Context) ([]domain.Exercise, error)
	GetExerciseFn       func(ctx context.Context, id int64) (*domain.Exercise, error)
	ListByMuscleGroupFn func(ctx context.Context, muscleGroupID int64) ([]domain.Exercise, error)
	MuscleGroupsForFn   func(ctx context.Context, ids []int64) (map[int64][]domain.ExerciseMuscleGroup, error)

	Exercises []domain.Exercise
	Groups    map[int64][]domain.ExerciseMuscleGroup

	mu        sync.Mutex
	ListCalls int
}

var _ store.ExerciseCatalog = (*MockExerciseCatalog)(nil)

// ListExercises implements store.ExerciseCatalog.
func (m *MockExerciseCatalog) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()

	if m.ListExercisesFn != nil {
		return m.ListExercisesFn(ctx)
	}
	return append([]domain.Exercise(nil), m.Exercises...), nil
}

// GetExercise implements store.ExerciseCatalog.
func (m *MockExerciseCatalog) GetExercise(ctx context.Context, id int64) (*domain.Exercise, error) {
	if m.GetExerciseFn != nil {
		return m.GetExerciseFn(ctx, id)
	}
	for _, ex := range m.Exercises {
		if ex.ID == id {
			found := ex
			found.MuscleGroups = m.Groups[id]
			return &found, nil
		}
	}
	return nil, store.ErrExerciseNotFound
}

// ListByMuscleGroup implements store.ExerciseCatalog.
func (m *MockExerciseCatalog) ListByMuscleGroup(ctx context.Context, muscleGroupID int64) ([]domain.Exercise, error) {
	if m.ListByMuscleGroupFn != nil {
		return m.ListByMuscleGroupFn(ctx, muscleGroupID)
	}
	var out []domain.Exercise
	for _, ex := range m.Exercises {
		for _, g := range m.Groups[ex.ID] {
			if g.ID == muscleGroupID {
				out = append(out, ex)
				break
			}
		}
	}
	return out, nil
}

// MuscleGroupsFor implements store.ExerciseCatalog.
func (m *MockExerciseCatalog) MuscleGroupsFor(ctx context.Context, ids []int64) (map[int64][]domain.ExerciseMuscleGroup, error) {
	if m.MuscleGroupsForFn != nil {
		return m.MuscleGroupsForFn(ctx, ids)
	}
	out := make(map[int64][]domain.ExerciseMuscleGroup, len(ids))
	for _, id := range ids {
		out[id] = m.Groups[id]
	}
	return out, nil
}

// Catalog builds n exercises with ids 1..n, difficulty cycling through 1..5,
// each with one primary and one secondary muscle group.
func Catalog(n int) *MockExerciseCatalog {
	c := &MockExerciseCatalog{Groups: make(map[int64][]domain.ExerciseMuscleGroup, n)}
	for i := 1; i <= n; i++ {
		id := int64(i)
		c.Exercises = append(c.Exercises, domain.Exercise{
			ID:         id,
			Name:       "exercise-" + strconv.Itoa(i),
			Difficulty: (i-1)%domain.MaxDifficulty + 1,
		})
		c.Groups[id] = []domain.ExerciseMuscleGroup{
			{MuscleGroup: domain.MuscleGroup{ID: 100 + id, Name: "primary-" + strconv.Itoa(i), BodyPart: "Legs"}, IsPrimary: true},
			{MuscleGroup: domain.MuscleGroup{ID: 200 + id, Name: "secondary-" + strconv.Itoa(i), BodyPart: "Core"}, IsPrimary: false},
		}
	}
	return c
}
