package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/store"
)

// MockWodStore implements store.WodStore, keeping saved workouts in memory.
type MockWodStore struct {
	SaveFn          func(ctx context.Context, wod *domain.Wod) (int64, error)
	LatestForUserFn func(ctx context.Context, email string) (*domain.Wod, error)
	StatsForUserFn  func(ctx context.Context, email string) (*domain.WorkoutStats, error)

	mu     sync.Mutex
	nextID int64
	Saved  []domain.Wod
}

var _ store.WodStore = (*MockWodStore)(nil)

// NewMockWodStore returns an empty in-memory store.
func NewMockWodStore() *MockWodStore {
	return &MockWodStore{}
}

// Save implements store.WodStore.
func (m *MockWodStore) Save(ctx context.Context, wod *domain.Wod) (int64, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, wod)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	saved := *wod
	saved.ID = m.nextID
	saved.Exercises = append([]domain.WodExercise(nil), wod.Exercises...)
	m.Saved = append(m.Saved, saved)
	return saved.ID, nil
}

// LatestForUser implements store.WodStore.
func (m *MockWodStore) LatestForUser(ctx context.Context, email string) (*domain.Wod, error) {
	if m.LatestForUserFn != nil {
		return m.LatestForUserFn(ctx, email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []domain.Wod
	for _, w := range m.Saved {
		if w.UserEmail == email {
			matches = append(matches, w)
		}
	}
	if len(matches) == 0 {
		return nil, store.ErrWodNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})
	latest := matches[0]
	return &latest, nil
}

// StatsForUser implements store.WodStore. Without StatsForUserFn it counts
// the saved workouts of email; frequency and load lists are left empty.
func (m *MockWodStore) StatsForUser(ctx context.Context, email string) (*domain.WorkoutStats, error) {
	if m.StatsForUserFn != nil {
		return m.StatsForUserFn(ctx, email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.WorkoutStats{
		UserEmail:       email,
		TopExercises:    []domain.ExerciseFrequency{},
		MuscleGroupLoad: []domain.MuscleGroupLoad{},
	}
	for _, w := range m.Saved {
		if w.UserEmail != email {
			continue
		}
		stats.TotalWods++
		stats.TotalExercises += len(w.Exercises)
		for _, ex := range w.Exercises {
			stats.TotalVolume += ex.SuggestedWeight * float64(ex.SuggestedReps)
		}
		created := w.CreatedAt
		if stats.FirstWodAt == nil || created.Before(*stats.FirstWodAt) {
			stats.FirstWodAt = &created
		}
		if stats.LastWodAt == nil || created.After(*stats.LastWodAt) {
			stats.LastWodAt = &created
		}
	}
	return stats, nil
}

// WithTx implements store.WodStore.
func (m *MockWodStore) WithTx(*sql.Tx) store.WodStore {
	return m
}

// SaveCount returns the number of stored workouts.
func (m *MockWodStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saved)
}
