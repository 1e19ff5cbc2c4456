package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fitcoach/coach/internal/platform/archive"
	"github.com/fitcoach/coach/internal/platform/postgres"
	"github.com/fitcoach/coach/internal/queue"
	"github.com/fitcoach/coach/internal/scheduler"
	"github.com/fitcoach/coach/internal/service/auth"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coach",
		Short:         "Workout-of-the-day generation pipeline",
		Long:          "coach accepts WOD requests over HTTP, queues them on RabbitMQ and generates workouts in a consumer loop.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newEnqueueCmd(),
		newScheduleCmd(),
		newDLQCmd(),
		newTokenCmd(),
	)
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// withApplication loads configuration, builds the application and runs fn
// with a signal-aware context.
func withApplication(cmd *cobra.Command, fn func(ctx context.Context, app *application) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		return err
	}
	defer app.cleanup()

	return fn(ctx, app)
}

func newServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				if autoMigrate {
					if err := postgres.Migrate(ctx, app.db, "up", app.logger); err != nil {
						return err
					}
				}
				if err := app.connectPublisher(ctx); err != nil {
					app.logger.Error("broker unavailable", "error", err)
					return err
				}

				authMiddleware, err := app.newAuthMiddleware()
				if err != nil {
					return err
				}
				deps := routerDeps{Service: app.wodService, Auth: authMiddleware, Logger: app.logger}
				if app.config.Metrics.Enabled {
					deps.Metrics = app.metrics.Handler()
				}

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return startHTTPServer(gctx, app.config.Server.Port, newRouter(deps), app.config.Server.ShutdownTimeout, app.logger)
				})
				if app.config.Server.EmbedConsumer {
					worker, client, err := app.newWorker()
					if err != nil {
						return err
					}
					defer func() { _ = client.Close() }()
					g.Go(func() error { return worker.Run(gctx) })
				}
				return g.Wait()
			})
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume generation requests from the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				worker, client, err := app.newWorker()
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()

				g, gctx := errgroup.WithContext(ctx)
				if app.config.Metrics.Enabled && metricsAddr != "" {
					g.Go(func() error {
						return serveMetrics(gctx, metricsAddr, app)
					})
				}
				g.Go(func() error {
					if err := worker.Run(gctx); err != nil {
						app.logger.Error("consumer stopped", "error", err)
						return err
					}
					return nil
				})
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address of the /metrics listener; empty disables it")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|redo|reset]",
		Short:     "Manage the database schema",
		Args:      cobra.RangeArgs(0, 2),
		ValidArgs: []string{"up", "down", "status", "version", "redo", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) > 0 {
				command = args[0]
			}
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				return postgres.Migrate(ctx, app.db, command, app.logger, args[min(1, len(args)):]...)
			})
		},
	}
}

func newEnqueueCmd() *cobra.Command {
	var email string
	var all bool

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Request a workout for one user or for every user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" && !all {
				return errors.New("either --email or --all is required")
			}
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				if err := app.connectPublisher(ctx); err != nil {
					return err
				}
				if all {
					recs, err := app.wodService.RequestWodsForAllUsers(ctx)
					if err != nil {
						return err
					}
					for _, rec := range recs {
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.ID, rec.UserEmail)
					}
					return nil
				}
				rec, err := app.wodService.RequestWod(ctx, email)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user to generate a workout for")
	cmd.Flags().BoolVar(&all, "all", false, "generate for every known user")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Fan out a generation request per user on the configured cron spec",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				if err := app.connectPublisher(ctx); err != nil {
					return err
				}
				sched, err := scheduler.New(app.config.Scheduler.Spec, app.wodService, app.logger)
				if err != nil {
					return err
				}
				if once {
					return sched.RunOnce(ctx)
				}
				return sched.Run(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single fan-out and exit")
	return cmd
}

func newDLQCmd() *cobra.Command {
	dlq := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and archive dead-lettered requests",
	}

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Print the number of dead-lettered messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				if err := app.connectPublisher(ctx); err != nil {
					return err
				}
				name := queue.DeadLetterQueueName(app.config.Queue.Name)
				depth, err := app.publisher.QueueDepth(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, depth)
				return nil
			})
		},
	}

	var limit int
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Move dead-lettered messages to object storage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, func(ctx context.Context, app *application) error {
				archiver, err := archive.NewS3Archiver(ctx, app.config.Archive, app.logger)
				if err != nil {
					return err
				}
				if err := app.connectPublisher(ctx); err != nil {
					return err
				}
				name := queue.DeadLetterQueueName(app.config.Queue.Name)
				n, err := app.publisher.Drain(ctx, name, limit, archiver.DrainFunc(name))
				app.logger.Info("dead letters archived",
					"queue", name,
					"archived", n,
					"bucket", app.config.Archive.Bucket)
				if err != nil {
					return fmt.Errorf("archive stopped after %d messages: %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived %d messages\n", n)
				return nil
			})
		},
	}
	archiveCmd.Flags().IntVar(&limit, "limit", 0, "maximum messages to archive; 0 drains the queue")

	dlq.AddCommand(inspect, archiveCmd)
	return dlq
}

func newTokenCmd() *cobra.Command {
	var subject, role string
	var lifetime time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			svc, err := auth.NewJWTService(cfg.Auth.JWTSecret)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(cmd.Context(), subject, role, lifetime)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user email the token is issued for")
	cmd.Flags().StringVar(&role, "role", "", "optional role, e.g. admin")
	cmd.Flags().DurationVar(&lifetime, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
