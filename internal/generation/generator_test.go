package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/mocks"
	"github.com/fitcoach/coach/internal/store"
)

var fixedNow = time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestGenerator(t *testing.T, history *mocks.MockWorkoutHistory, catalog *mocks.MockExerciseCatalog, wods *mocks.MockWodStore, seed uint64) *WodGenerator {
	t.Helper()

	g, err := NewWodGenerator(history, catalog, wods, testLogger(),
		WithRand(rand.New(rand.NewPCG(seed, seed+1))),
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return g
}

func idSet(w *domain.Wod) map[int64]struct{} {
	set := make(map[int64]struct{}, len(w.Exercises))
	for _, ex := range w.Exercises {
		set[ex.ExerciseID] = struct{}{}
	}
	return set
}

func TestNewWodGenerator_Validation(t *testing.T) {
	t.Parallel()

	history := &mocks.MockWorkoutHistory{}
	catalog := mocks.Catalog(1)
	wods := mocks.NewMockWodStore()

	_, err := NewWodGenerator(nil, catalog, wods, testLogger())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewWodGenerator(history, nil, wods, testLogger())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewWodGenerator(history, catalog, nil, testLogger())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewWodGenerator(history, catalog, wods, testLogger(), WithWorkoutSize(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewWodGenerator(history, catalog, wods, nil)
	assert.NoError(t, err)
}

func TestGenerate_SelectsSixExcludingHistory(t *testing.T) {
	t.Parallel()

	excluded := []int64{3, 7, 11}
	for seed := uint64(0); seed < 50; seed++ {
		history := &mocks.MockWorkoutHistory{Excluded: excluded}
		wods := mocks.NewMockWodStore()
		g := newTestGenerator(t, history, mocks.Catalog(20), wods, seed)

		wod, err := g.Generate(context.Background(), "athlete@example.com")
		require.NoError(t, err)

		require.Len(t, wod.Exercises, 6)
		ids := idSet(wod)
		assert.Len(t, ids, 6, "exercises must be distinct")
		for _, id := range excluded {
			assert.NotContains(t, ids, id)
		}
		for id := range ids {
			assert.True(t, id >= 1 && id <= 20)
		}
	}
}

func TestGenerate_FallsBackToWholeSmallCatalog(t *testing.T) {
	t.Parallel()

	history := &mocks.MockWorkoutHistory{Excluded: []int64{1, 2, 3, 4}}
	g := newTestGenerator(t, history, mocks.Catalog(4), mocks.NewMockWodStore(), 1)

	wod, err := g.Generate(context.Background(), "athlete@example.com")
	require.NoError(t, err)

	assert.Len(t, wod.Exercises, 4)
	assert.Equal(t, map[int64]struct{}{1: {}, 2: {}, 3: {}, 4: {}}, idSet(wod))
}

func TestGenerate_FallsBackWhenTooFewFreshExercises(t *testing.T) {
	t.Parallel()

	history := &mocks.MockWorkoutHistory{Excluded: []int64{1, 2, 3, 4, 5}}
	g := newTestGenerator(t, history, mocks.Catalog(10), mocks.NewMockWodStore(), 7)

	wod, err := g.Generate(context.Background(), "athlete@example.com")
	require.NoError(t, err)

	assert.Len(t, wod.Exercises, 6)
	assert.Len(t, idSet(wod), 6)
}

func TestGenerate_ComputesImpactsAndLoad(t *testing.T) {
	t.Parallel()

	catalog := mocks.Catalog(12)
	wods := mocks.NewMockWodStore()
	g := newTestGenerator(t, &mocks.MockWorkoutHistory{}, catalog, wods, 42)

	wod, err := g.Generate(context.Background(), "athlete@example.com")
	require.NoError(t, err)

	for i, ex := range wod.Exercises {
		assert.Equal(t, i+1, ex.Position)
		assert.GreaterOrEqual(t, ex.SuggestedWeight, domain.MinSuggestedWeight)
		assert.LessOrEqual(t, ex.SuggestedWeight, domain.MaxSuggestedWeight)
		assert.GreaterOrEqual(t, ex.SuggestedReps, domain.MinSuggestedReps)
		assert.LessOrEqual(t, ex.SuggestedReps, domain.MaxSuggestedReps)

		require.Len(t, ex.MuscleGroups, 2)
		base := float64(ex.Difficulty-1) / 4.0
		for _, impact := range ex.MuscleGroups {
			if impact.IsPrimary {
				assert.InDelta(t, base*1.2, impact.Intensity, 1e-9)
			} else {
				assert.InDelta(t, base*0.8, impact.Intensity, 1e-9)
			}
		}
	}

	require.Equal(t, 1, wods.SaveCount())
	assert.Equal(t, int64(1), wod.ID)
	assert.Equal(t, fixedNow, wod.CreatedAt)
	assert.NoError(t, wod.Validate())
}

func TestGenerate_RecordsHistory(t *testing.T) {
	t.Parallel()

	history := &mocks.MockWorkoutHistory{}
	g := newTestGenerator(t, history, mocks.Catalog(8), mocks.NewMockWodStore(), 3)

	wod, err := g.Generate(context.Background(), "athlete@example.com")
	require.NoError(t, err)

	records := history.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "athlete@example.com", records[0].Email)
	assert.Equal(t, wod.ExerciseIDs(), records[0].ExerciseIDs)
	assert.Equal(t, fixedNow, records[0].At)
}

func TestGenerate_HistoryWriteFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	history := &mocks.MockWorkoutHistory{
		RecordFn: func(context.Context, string, []int64, time.Time) error {
			return errors.New("history store read-only")
		},
	}
	wods := mocks.NewMockWodStore()
	g := newTestGenerator(t, history, mocks.Catalog(8), wods, 3)

	_, err := g.Generate(context.Background(), "athlete@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, wods.SaveCount())
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	upstreamDown := errors.New("connection refused")

	tests := []struct {
		name    string
		setup   func(h *mocks.MockWorkoutHistory, c *mocks.MockExerciseCatalog, w *mocks.MockWodStore)
		wantErr error
	}{
		{
			name: "history unavailable",
			setup: func(h *mocks.MockWorkoutHistory, _ *mocks.MockExerciseCatalog, _ *mocks.MockWodStore) {
				h.ExcludedExerciseIDsFn = func(context.Context, string, time.Time) ([]int64, error) {
					return nil, upstreamDown
				}
			},
			wantErr: ErrUpstreamUnavailable,
		},
		{
			name: "catalog unavailable",
			setup: func(_ *mocks.MockWorkoutHistory, c *mocks.MockExerciseCatalog, _ *mocks.MockWodStore) {
				c.ListExercisesFn = func(context.Context) ([]domain.Exercise, error) {
					return nil, upstreamDown
				}
			},
			wantErr: ErrUpstreamUnavailable,
		},
		{
			name: "empty catalog",
			setup: func(_ *mocks.MockWorkoutHistory, c *mocks.MockExerciseCatalog, _ *mocks.MockWodStore) {
				c.Exercises = nil
			},
			wantErr: ErrEmptyCatalog,
		},
		{
			name: "muscle groups unavailable",
			setup: func(_ *mocks.MockWorkoutHistory, c *mocks.MockExerciseCatalog, _ *mocks.MockWodStore) {
				c.MuscleGroupsForFn = func(context.Context, []int64) (map[int64][]domain.ExerciseMuscleGroup, error) {
					return nil, upstreamDown
				}
			},
			wantErr: ErrUpstreamUnavailable,
		},
		{
			name: "save fails",
			setup: func(_ *mocks.MockWorkoutHistory, _ *mocks.MockExerciseCatalog, w *mocks.MockWodStore) {
				w.SaveFn = func(context.Context, *domain.Wod) (int64, error) {
					return 0, errors.New("serialization failure")
				}
			},
			wantErr: ErrPersistence,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			history := &mocks.MockWorkoutHistory{}
			catalog := mocks.Catalog(10)
			wods := mocks.NewMockWodStore()
			tc.setup(history, catalog, wods)
			g := newTestGenerator(t, history, catalog, wods, 5)

			wod, err := g.Generate(context.Background(), "athlete@example.com")
			assert.Nil(t, wod)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, wods.SaveCount())
		})
	}
}

func TestGenerate_PersistenceErrorKeepsCause(t *testing.T) {
	t.Parallel()

	wods := mocks.NewMockWodStore()
	wods.SaveFn = func(context.Context, *domain.Wod) (int64, error) {
		return 0, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrDuplicateWodExercise)
	}
	g := newTestGenerator(t, &mocks.MockWorkoutHistory{}, mocks.Catalog(10), wods, 5)

	_, err := g.Generate(context.Background(), "athlete@example.com")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrDuplicateWodExercise)
}

func TestGenerate_DelayIsApplied(t *testing.T) {
	t.Parallel()

	var delayed bool
	catalog := mocks.Catalog(6)
	g, err := NewWodGenerator(&mocks.MockWorkoutHistory{}, catalog, mocks.NewMockWodStore(), testLogger(),
		WithDelay(func(ctx context.Context) error {
			delayed = true
			return nil
		}))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "athlete@example.com")
	require.NoError(t, err)
	assert.True(t, delayed)
}

func TestGenerate_CancelledDuringDelay(t *testing.T) {
	t.Parallel()

	catalog := mocks.Catalog(6)
	g, err := NewWodGenerator(&mocks.MockWorkoutHistory{}, catalog, mocks.NewMockWodStore(), testLogger(),
		WithDelay(RandomDelay(time.Hour, time.Hour)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Generate(ctx, "athlete@example.com")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, catalog.ListCalls)
}

func TestRandomDelay(t *testing.T) {
	t.Parallel()

	start := time.Now()
	require.NoError(t, RandomDelay(0, 0)(context.Background()))
	require.NoError(t, RandomDelay(time.Millisecond, 3*time.Millisecond)(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}

func TestWorkoutSizeOption(t *testing.T) {
	t.Parallel()

	g, err := NewWodGenerator(&mocks.MockWorkoutHistory{}, mocks.Catalog(10), mocks.NewMockWodStore(), testLogger(),
		WithWorkoutSize(3))
	require.NoError(t, err)

	wod, err := g.Generate(context.Background(), "athlete@example.com")
	require.NoError(t, err)
	assert.Len(t, wod.Exercises, 3)
}
