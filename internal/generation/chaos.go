package generation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/fitcoach/coach/internal/domain"
)

// ChaosGenerator fails a fraction of calls with ErrSimulatedFailure before
// delegating to the wrapped Generator. A failed call has no side effects.
type ChaosGenerator struct {
	next   Generator
	rate   float64
	roll   func() float64
	logger *slog.Logger
}

var _ Generator = (*ChaosGenerator)(nil)

// NewChaosGenerator wraps next. rate must be within [0, 1]; 0 disables
// injection. roll may be nil, in which case math/rand/v2 is used.
func NewChaosGenerator(next Generator, rate float64, roll func() float64, logger *slog.Logger) (*ChaosGenerator, error) {
	if next == nil {
		return nil, fmt.Errorf("%w: wrapped generator", ErrNilDependency)
	}
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("%w: failure rate %v outside [0, 1]", ErrInvalidConfig, rate)
	}
	if roll == nil {
		roll = rand.Float64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChaosGenerator{
		next:   next,
		rate:   rate,
		roll:   roll,
		logger: logger.With(slog.String("component", "chaos_generator")),
	}, nil
}

// Generate implements Generator.
func (c *ChaosGenerator) Generate(ctx context.Context, email string) (*domain.Wod, error) {
	if c.rate > 0 && c.roll() < c.rate {
		c.logger.WarnContext(ctx, "injecting simulated failure",
			slog.String("user_email", email),
			slog.Float64("failure_rate", c.rate))
		return nil, ErrSimulatedFailure
	}
	return c.next.Generate(ctx, email)
}
