package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/generation"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/queue"
	"github.com/fitcoach/coach/internal/redact"
	"github.com/fitcoach/coach/internal/store"
)

// statusWriteTimeout bounds best-effort status updates, which may run after
// the consume context has been cancelled.
const statusWriteTimeout = 5 * time.Second

// Generation outcomes reported to a Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeMalformed = "malformed"
)

// Common errors
var (
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilSource    = errors.New("message source cannot be nil")
)

// Recorder observes generation attempts, typically to export metrics.
type Recorder interface {
	GenerationStarted()
	GenerationFinished(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) GenerationStarted()                      {}
func (nopRecorder) GenerationFinished(string, time.Duration) {}

// ConsumerConfig holds the queue settings the consumer needs to describe
// outcomes.
type ConsumerConfig struct {
	Queue string
	// MaxAttempts mirrors the queue client's redelivery ceiling so that the
	// last failed attempt is recorded as dead-lettered.
	MaxAttempts int
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithRecorder registers a Recorder.
func WithRecorder(r Recorder) ConsumerOption {
	return func(c *Consumer) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithRequestStore enables status tracking.
func WithRequestStore(s store.RequestStore) ConsumerOption {
	return func(c *Consumer) { c.requests = s }
}

// WithConsumerClock sets the clock used to time generation.
func WithConsumerClock(now func() time.Time) ConsumerOption {
	return func(c *Consumer) { c.now = now }
}

// Consumer maps queue messages onto the WOD generator.
type Consumer struct {
	generator generation.Generator
	requests  store.RequestStore
	recorder  Recorder
	cfg       ConsumerConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewConsumer creates a Consumer around gen.
func NewConsumer(gen generation.Generator, cfg ConsumerConfig, logger *slog.Logger, opts ...ConsumerOption) (*Consumer, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = queue.DefaultMaxAttempts
	}

	c := &Consumer{
		generator: gen,
		recorder:  nopRecorder{},
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "wod_consumer")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Handle implements queue.Handler. A malformed payload is rejected, a
// successful generation is acked, and any generation error asks for a retry.
// It never panics and never returns an error to the queue client.
func (c *Consumer) Handle(ctx context.Context, msg queue.Message) queue.Decision {
	attempt := msg.Attempt + 1
	log := c.logger.With(
		slog.String("message_id", msg.MessageID),
		slog.Int("attempt", attempt))

	req, err := queue.Decode(msg.Body)
	if err != nil {
		log.Warn("rejecting malformed message",
			slog.String("error", err.Error()),
			slog.Int("body_bytes", len(msg.Body)))
		c.recorder.GenerationFinished(OutcomeMalformed, 0)
		c.updateStatus(ctx, log, msg.MessageID, domain.RequestStatusDeadLettered, attempt, err.Error())
		return queue.Reject
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = msg.MessageID
	}
	log = log.With(
		slog.String("request_id", requestID),
		slog.String("user_email", req.UserEmail))
	ctx = logger.WithLogger(ctx, log)

	c.updateStatus(ctx, log, requestID, domain.RequestStatusProcessing, attempt, "")

	c.recorder.GenerationStarted()
	start := c.now()
	wod, err := c.generator.Generate(ctx, req.UserEmail)
	elapsed := c.now().Sub(start)

	if err != nil {
		c.recorder.GenerationFinished(OutcomeFailure, elapsed)

		if ctx.Err() != nil {
			log.Info("generation interrupted by shutdown", slog.String("error", err.Error()))
			return queue.Retry
		}

		status := domain.RequestStatusRetrying
		if attempt >= c.cfg.MaxAttempts {
			status = domain.RequestStatusDeadLettered
		}
		log.Warn("wod generation failed",
			slog.String("error", redact.Error(err)),
			slog.Bool("simulated", errors.Is(err, generation.ErrSimulatedFailure)),
			slog.String("next_status", string(status)),
			slog.Duration("elapsed", elapsed))
		c.updateStatus(ctx, log, requestID, status, attempt, redact.Error(err))
		return queue.Retry
	}

	c.recorder.GenerationFinished(OutcomeSuccess, elapsed)
	log.Info("wod request completed",
		slog.Int64("wod_id", wod.ID),
		slog.Duration("elapsed", elapsed))
	c.markCompleted(ctx, log, requestID, wod.ID, attempt)
	return queue.Ack
}

// Source delivers messages from a named queue to a handler.
type Source interface {
	Consume(ctx context.Context, queue string, handler queue.Handler) error
}

// Run consumes from src until ctx is cancelled or src fails.
func (c *Consumer) Run(ctx context.Context, src Source) error {
	if src == nil {
		return ErrNilSource
	}
	if err := src.Consume(ctx, c.cfg.Queue, c.Handle); err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	return nil
}

func (c *Consumer) updateStatus(ctx context.Context, log *slog.Logger, id string, status domain.RequestStatus, attempts int, errMsg string) {
	if c.requests == nil || id == "" {
		return
	}
	ctx, cancel := statusContext(ctx)
	defer cancel()

	if err := c.requests.UpdateStatus(ctx, id, status, attempts, errMsg); err != nil {
		logStatusFailure(log, id, status, err)
	}
}

func (c *Consumer) markCompleted(ctx context.Context, log *slog.Logger, id string, wodID int64, attempts int) {
	if c.requests == nil || id == "" {
		return
	}
	ctx, cancel := statusContext(ctx)
	defer cancel()

	if err := c.requests.MarkCompleted(ctx, id, wodID, attempts); err != nil {
		logStatusFailure(log, id, domain.RequestStatusCompleted, err)
	}
}

func statusContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

func logStatusFailure(log *slog.Logger, id string, status domain.RequestStatus, err error) {
	if store.IsNotFoundError(err) {
		log.Debug("no request record to update",
			slog.String("request_id", id),
			slog.String("status", string(status)))
		return
	}
	log.Warn("failed to update request status",
		slog.String("request_id", id),
		slog.String("status", string(status)),
		slog.String("error", err.Error()))
}
