//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coach/internal/config"
	"github.com/fitcoach/coach/internal/platform/postgres"
	"github.com/fitcoach/coach/internal/redact"
)

// TestTimeout bounds connection and migration steps.
const TestTimeout = 30 * time.Second

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDBWithT opens a connection to the test database, migrates the
// schema on first use and registers cleanup. It skips the test when no
// database is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, config.DatabaseConfig{
		URL:          GetTestDatabaseURL(),
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	})
	require.NoError(t, err, "failed to connect to test database")

	migrateOnce.Do(func() {
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		migrateErr = postgres.Migrate(ctx, db, "up", quiet)
	})
	if migrateErr != nil {
		_ = db.Close()
		t.Fatalf("failed to migrate test database: %s", redact.Error(migrateErr))
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})
	return db
}
