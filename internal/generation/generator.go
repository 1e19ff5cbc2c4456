package generation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/store"
)

// Generator produces and persists a workout of the day for a user.
type Generator interface {
	Generate(ctx context.Context, email string) (*domain.Wod, error)
}

// DelayFunc simulates variable processing latency. It must return early with
// ctx.Err() when ctx is cancelled.
type DelayFunc func(ctx context.Context) error

// NoDelay is a DelayFunc that only honours cancellation.
func NoDelay(ctx context.Context) error {
	return ctx.Err()
}

// RandomDelay returns a DelayFunc sleeping a uniformly random duration in [lo, hi].
func RandomDelay(lo, hi time.Duration) DelayFunc {
	return func(ctx context.Context) error {
		d := lo
		if hi > lo {
			d += time.Duration(rand.Int64N(int64(hi-lo) + 1))
		}
		if d <= 0 {
			return ctx.Err()
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}

// Option configures a WodGenerator.
type Option func(*WodGenerator)

// WithDelay sets the latency hook. The default is NoDelay.
func WithDelay(d DelayFunc) Option {
	return func(g *WodGenerator) { g.delay = d }
}

// WithRand sets the random source used for selection and load suggestions.
func WithRand(r *rand.Rand) Option {
	return func(g *WodGenerator) { g.rng = r }
}

// WithClock sets the time source used for created_at and history stamps.
func WithClock(now func() time.Time) Option {
	return func(g *WodGenerator) { g.now = now }
}

// WithWorkoutSize sets the number of exercises per workout.
func WithWorkoutSize(n int) Option {
	return func(g *WodGenerator) { g.size = n }
}

// WodGenerator implements Generator on top of the history, catalog and
// result stores.
type WodGenerator struct {
	history store.WorkoutHistory
	catalog store.ExerciseCatalog
	wods    store.WodStore
	delay   DelayFunc
	now     func() time.Time
	size    int
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Generator = (*WodGenerator)(nil)

// NewWodGenerator validates its collaborators and returns a generator.
func NewWodGenerator(
	history store.WorkoutHistory,
	catalog store.ExerciseCatalog,
	wods store.WodStore,
	logger *slog.Logger,
	opts ...Option,
) (*WodGenerator, error) {
	if history == nil {
		return nil, fmt.Errorf("%w: history", ErrNilDependency)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog", ErrNilDependency)
	}
	if wods == nil {
		return nil, fmt.Errorf("%w: wod store", ErrNilDependency)
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &WodGenerator{
		history: history,
		catalog: catalog,
		wods:    wods,
		delay:   NoDelay,
		now:     func() time.Time { return time.Now().UTC() },
		size:    domain.DefaultWorkoutSize,
		logger:  logger.With(slog.String("component", "wod_generator")),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.size < 1 {
		return nil, fmt.Errorf("%w: workout size must be positive, got %d", ErrInvalidConfig, g.size)
	}
	if g.delay == nil || g.now == nil || g.rng == nil {
		return nil, fmt.Errorf("%w: nil option", ErrInvalidConfig)
	}
	return g, nil
}

// Generate builds and persists a workout for email.
func (g *WodGenerator) Generate(ctx context.Context, email string) (*domain.Wod, error) {
	log := logger.FromContextOrDefault(ctx, g.logger).With(slog.String("user_email", email))

	if err := g.delay(ctx); err != nil {
		return nil, err
	}

	now := g.now()

	excluded, err := g.history.ExcludedExerciseIDs(ctx, email, now)
	if err != nil {
		return nil, fmt.Errorf("%w: workout history: %w", ErrUpstreamUnavailable, err)
	}

	catalog, err := g.catalog.ListExercises(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: exercise catalog: %w", ErrUpstreamUnavailable, err)
	}
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	selected, fallback := g.selectExercises(catalog, excluded)
	ids := make([]int64, len(selected))
	for i, ex := range selected {
		ids[i] = ex.ID
	}
	if fallback {
		log.Debug("too few fresh exercises, selecting from full catalog",
			slog.Int("catalog_size", len(catalog)),
			slog.Int("excluded", len(excluded)))
	}

	if err := g.history.Record(ctx, email, ids, now); err != nil {
		log.Warn("failed to record workout history", slog.String("error", err.Error()))
	}

	groups, err := g.catalog.MuscleGroupsFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: muscle groups: %w", ErrUpstreamUnavailable, err)
	}

	wod := &domain.Wod{
		UserEmail: email,
		CreatedAt: now,
		Exercises: make([]domain.WodExercise, 0, len(selected)),
	}
	for i, ex := range selected {
		weight, reps := g.suggestLoad()
		impacts := make([]domain.MuscleGroupImpact, 0, len(groups[ex.ID]))
		for _, mg := range groups[ex.ID] {
			impacts = append(impacts, domain.NewMuscleGroupImpact(mg, ex.Difficulty))
		}
		wod.Exercises = append(wod.Exercises, domain.WodExercise{
			ExerciseID:      ex.ID,
			Name:            ex.Name,
			Difficulty:      ex.Difficulty,
			Position:        i + 1,
			SuggestedWeight: weight,
			SuggestedReps:   reps,
			MuscleGroups:    impacts,
		})
	}

	id, err := g.wods.Save(ctx, wod)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	wod.ID = id

	log.Info("wod generated",
		slog.Int64("wod_id", id),
		slog.Int("exercises", len(wod.Exercises)))
	return wod, nil
}

// selectExercises draws min(size, |available|) distinct exercises uniformly
// from the catalog minus excluded, falling back to the full catalog when
// fewer than size fresh exercises remain.
func (g *WodGenerator) selectExercises(catalog []domain.Exercise, excluded []int64) ([]domain.Exercise, bool) {
	skip := make(map[int64]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	available := make([]domain.Exercise, 0, len(catalog))
	for _, ex := range catalog {
		if _, ok := skip[ex.ID]; !ok {
			available = append(available, ex)
		}
	}

	fallback := false
	if len(available) < g.size {
		available = catalog
		fallback = true
	}

	k := min(g.size, len(available))

	g.mu.Lock()
	perm := g.rng.Perm(len(available))
	g.mu.Unlock()

	picks := make([]domain.Exercise, 0, k)
	for _, i := range perm[:k] {
		picks = append(picks, available[i])
	}
	return picks, fallback
}

// suggestLoad returns a weight uniform in [5, 50] rounded to two decimals and
// a rep count uniform in [8, 15].
func (g *WodGenerator) suggestLoad() (float64, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := domain.MinSuggestedWeight + g.rng.Float64()*(domain.MaxSuggestedWeight-domain.MinSuggestedWeight)
	w = math.Round(w*100) / 100
	reps := domain.MinSuggestedReps + g.rng.IntN(domain.MaxSuggestedReps-domain.MinSuggestedReps+1)
	return w, reps
}
