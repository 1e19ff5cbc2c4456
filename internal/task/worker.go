package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitcoach/coach/internal/queue"
)

// Broker is the part of queue.Client a Worker drives.
type Broker interface {
	Source
	ConnectWithRetry(ctx context.Context, attempts int, delay time.Duration) error
	DeclareQueue(name string, opts queue.QueueOptions) error
}

// WorkerConfig controls connection handling.
type WorkerConfig struct {
	QueueOptions    queue.QueueOptions
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// Worker keeps a Consumer attached to the broker.
type Worker struct {
	consumer *Consumer
	broker   Broker
	cfg      WorkerConfig
	logger   *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(consumer *Consumer, broker Broker, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		consumer: consumer,
		broker:   broker,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "worker")),
	}
}

// Run connects, declares the queue topology and consumes. When the broker
// drops the connection it reconnects and resumes. It returns nil once ctx is
// cancelled, and the connection error once ConnectWithRetry gives up.
func (w *Worker) Run(ctx context.Context) error {
	name := w.consumer.cfg.Queue

	for {
		if err := w.broker.ConnectWithRetry(ctx, w.cfg.ConnectAttempts, w.cfg.ConnectDelay); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := w.broker.DeclareQueue(name, w.cfg.QueueOptions); err != nil {
			if !errors.Is(err, queue.ErrConnection) {
				return fmt.Errorf("declare queue %s: %w", name, err)
			}
			w.logger.Warn("broker unavailable while declaring queue, reconnecting",
				slog.String("error", err.Error()))
			continue
		}

		err := w.consumer.Run(ctx, w.broker)
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, queue.ErrConnection) {
			return err
		}

		w.logger.Warn("lost broker connection, reconnecting",
			slog.String("queue", name),
			slog.String("error", err.Error()))
	}
}
