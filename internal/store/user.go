package store

import (
	"context"

	"github.com/fitcoach/coach/internal/domain"
)

// UserStore is read-only access to the user directory.
type UserStore interface {
	// GetByEmail returns the user or ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns every user ordered by email.
	List(ctx context.Context) ([]domain.User, error)
}
