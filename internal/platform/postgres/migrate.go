package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/fitcoach/coach/internal/platform/postgres/migrations"
)

// MigrationsTable is the goose version table.
const MigrationsTable = "schema_migrations"

// slogGooseLogger routes goose output through slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrate runs a goose command (up, down, status, version, redo, reset)
// against the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger, args ...string) error {
	if logger == nil {
		logger = slog.Default()
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(MigrationsTable)
	goose.SetLogger(&slogGooseLogger{logger: logger.With(slog.String("component", "migrations"))})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("migration command %q failed: %w", command, err)
	}
	return nil
}
