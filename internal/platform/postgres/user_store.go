package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/store"
)

const userColumns = `email, name, role, weight, height, COALESCE(fitness_goal, ''), onboarded, created_at`

// PostgresUserStore implements store.UserStore as a read-only view of the
// users table.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a user directory reader over db.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// GetByEmail implements store.UserStore.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", slog.String("user_email", email))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user",
			slog.String("error", err.Error()),
			slog.String("user_email", email))
		return nil, MapError(err)
	}
	return user, nil
}

// List implements store.UserStore.
func (s *PostgresUserStore) List(ctx context.Context) ([]domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		log.Error("failed to list users", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var weight, height sql.NullFloat64
	if err := row.Scan(&u.Email, &u.Name, &u.Role, &weight, &height, &u.FitnessGoal, &u.Onboarded, &u.CreatedAt); err != nil {
		return nil, err
	}
	if weight.Valid {
		u.Weight = &weight.Float64
	}
	if height.Valid {
		u.Height = &height.Float64
	}
	return &u, nil
}
