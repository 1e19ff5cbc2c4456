package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/store"
)

// HistoryRecord is one Record call captured by MockWorkoutHistory.
type HistoryRecord struct {
	Email       string
	ExerciseIDs []int64
	At          time.Time
}

// MockWorkoutHistory implements store.WorkoutHistory.
type MockWorkoutHistory struct {
	ExcludedExerciseIDsFn func(ctx context.Context, email string, now time.Time) ([]int64, error)
	RecordFn              func(ctx context.Context, email string, ids []int64, at time.Time) error
	PerformedBetweenFn    func(ctx context.Context, email string, from, to time.Time, limit int) ([]domain.PerformedExercise, error)

	// Excluded is returned by ExcludedExerciseIDs when no function is set.
	Excluded []int64

	// Performed backs PerformedBetween when no function is set. Entries are
	// filtered by bounds but not by email.
	Performed []domain.PerformedExercise

	mu       sync.Mutex
	Recorded []HistoryRecord
}

var _ store.WorkoutHistory = (*MockWorkoutHistory)(nil)

// ExcludedExerciseIDs implements store.WorkoutHistory.
func (m *MockWorkoutHistory) ExcludedExerciseIDs(ctx context.Context, email string, now time.Time) ([]int64, error) {
	if m.ExcludedExerciseIDsFn != nil {
		return m.ExcludedExerciseIDsFn(ctx, email, now)
	}
	return append([]int64(nil), m.Excluded...), nil
}

// Record implements store.WorkoutHistory.
func (m *MockWorkoutHistory) Record(ctx context.Context, email string, ids []int64, at time.Time) error {
	m.mu.Lock()
	m.Recorded = append(m.Recorded, HistoryRecord{Email: email, ExerciseIDs: append([]int64(nil), ids...), At: at})
	m.mu.Unlock()

	if m.RecordFn != nil {
		return m.RecordFn(ctx, email, ids, at)
	}
	return nil
}

// Records returns a copy of the captured Record calls.
func (m *MockWorkoutHistory) Records() []HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryRecord(nil), m.Recorded...)
}

// PerformedBetween implements store.WorkoutHistory.
func (m *MockWorkoutHistory) PerformedBetween(ctx context.Context, email string, from, to time.Time, limit int) ([]domain.PerformedExercise, error) {
	if m.PerformedBetweenFn != nil {
		return m.PerformedBetweenFn(ctx, email, from, to, limit)
	}

	out := []domain.PerformedExercise{}
	for _, p := range m.Performed {
		if !from.IsZero() && p.PerformedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !p.PerformedAt.Before(to) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PerformedAt.After(out[j].PerformedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
