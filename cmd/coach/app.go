package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitcoach/coach/internal/api/middleware"
	"github.com/fitcoach/coach/internal/config"
	"github.com/fitcoach/coach/internal/generation"
	"github.com/fitcoach/coach/internal/metrics"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/platform/postgres"
	"github.com/fitcoach/coach/internal/queue"
	"github.com/fitcoach/coach/internal/service"
	"github.com/fitcoach/coach/internal/service/auth"
	"github.com/fitcoach/coach/internal/store"
	"github.com/fitcoach/coach/internal/task"
)

// application holds the shared dependencies of every command and releases
// them in cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	wodStore      *postgres.PostgresWodStore
	exerciseStore *postgres.PostgresExerciseStore
	historyStore  *postgres.PostgresHistoryStore
	userStore     *postgres.PostgresUserStore
	requestStore  *postgres.PostgresRequestStore

	metrics *metrics.Collector

	// publisher is the broker connection used by the HTTP facade and the
	// scheduler. Consumers dial their own.
	publisher  *queue.Client
	wodService service.WodService
}

// loadConfig loads configuration and sets up the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Debug("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue", cfg.Queue.Name,
		"exclusion_policy", cfg.Generator.ExclusionPolicy,
		"auth_enabled", cfg.Auth.JWTSecret != "",
		"embed_consumer", cfg.Server.EmbedConsumer)
	return cfg, log, nil
}

// newApplication opens the database and builds the stores, the metrics
// collector and the publishing broker client. The broker is not dialled yet.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:        cfg,
		logger:        log,
		db:            db,
		wodStore:      postgres.NewPostgresWodStore(db, log),
		exerciseStore: postgres.NewPostgresExerciseStore(db, log),
		userStore:     postgres.NewPostgresUserStore(db, log),
		requestStore:  postgres.NewPostgresRequestStore(db, log),
		metrics:       metrics.NewCollector(),
	}

	app.historyStore, err = postgres.NewPostgresHistoryStore(db, store.ExclusionPolicy(cfg.Generator.ExclusionPolicy), log)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	app.publisher, err = app.newBrokerClient("coach-publisher")
	if err != nil {
		app.cleanup()
		return nil, err
	}

	app.wodService, err = service.NewWodService(service.Deps{
		Publisher: app.publisher,
		Requests:  app.requestStore,
		Wods:      app.wodStore,
		Catalog:   app.exerciseStore,
		History:   app.historyStore,
		Users:     app.userStore,
	}, cfg.Queue.Name, log)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create wod service: %w", err)
	}

	return app, nil
}

func (app *application) newBrokerClient(tag string) (*queue.Client, error) {
	client, err := queue.NewClient(queue.Config{
		URL:            app.config.Broker.URL,
		Heartbeat:      app.config.Broker.Heartbeat,
		BlockedTimeout: app.config.Broker.BlockedTimeout,
		MaxAttempts:    app.config.Queue.MaxAttempts,
		ConsumerTag:    tag,
	}, app.logger, queue.WithObserver(app.metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create broker client: %w", err)
	}
	return client, nil
}

// queueOptions is the work queue topology from configuration.
func (app *application) queueOptions() queue.QueueOptions {
	opts := queue.DefaultQueueOptions(app.config.Queue.Name)
	opts.MessageTTL = app.config.Queue.MessageTTL()
	opts.MaxLength = app.config.Queue.MaxLength
	opts.DeadLetterExchange = app.config.Queue.DeadLetterExchange
	return opts
}

// connectPublisher dials the broker and declares the work queue. Running out
// of attempts is returned to the caller, which exits.
func (app *application) connectPublisher(ctx context.Context) error {
	if err := app.publisher.ConnectWithRetry(ctx, app.config.Broker.ConnectAttempts, app.config.Broker.ConnectDelay); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	if err := app.publisher.DeclareQueue(app.config.Queue.Name, app.queueOptions()); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}

// newWorker builds a consumer loop with its own broker connection. The
// returned client is closed by the caller.
func (app *application) newWorker() (*task.Worker, *queue.Client, error) {
	gen, err := generation.NewWodGenerator(app.historyStore, app.exerciseStore, app.wodStore, app.logger,
		generation.WithDelay(generation.RandomDelay(app.config.Generator.MinDelay, app.config.Generator.MaxDelay)),
		generation.WithWorkoutSize(app.config.Generator.WorkoutSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generator: %w", err)
	}

	var g generation.Generator = gen
	if rate := app.config.Chaos.FailureRate; rate > 0 {
		g, err = generation.NewChaosGenerator(gen, rate, nil, app.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create chaos generator: %w", err)
		}
		app.logger.Warn("failure injection enabled", "failure_rate", rate)
	}

	consumer, err := task.NewConsumer(g, task.ConsumerConfig{
		Queue:       app.config.Queue.Name,
		MaxAttempts: app.config.Queue.MaxAttempts,
	}, app.logger,
		task.WithRecorder(app.metrics),
		task.WithRequestStore(app.requestStore))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	client, err := app.newBrokerClient(queue.DefaultConsumerTag)
	if err != nil {
		return nil, nil, err
	}

	worker := task.NewWorker(consumer, client, task.WorkerConfig{
		QueueOptions:    app.queueOptions(),
		ConnectAttempts: app.config.Broker.ConnectAttempts,
		ConnectDelay:    app.config.Broker.ConnectDelay,
	}, app.logger)
	return worker, client, nil
}

// newAuthMiddleware returns token validation when a secret is configured and
// a pass-through otherwise.
func (app *application) newAuthMiddleware() (*middleware.AuthMiddleware, error) {
	if app.config.Auth.JWTSecret == "" {
		app.logger.Warn("authentication disabled: no JWT secret configured")
		return middleware.NewAuthMiddleware(nil), nil
	}
	jwtService, err := auth.NewJWTService(app.config.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	return middleware.NewAuthMiddleware(jwtService), nil
}

// cleanup releases the broker connection and the database pool.
func (app *application) cleanup() {
	var errs []error
	if app.publisher != nil {
		errs = append(errs, app.publisher.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("cleanup failed", "error", err)
	}
}
