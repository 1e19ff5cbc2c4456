package mocks

import (
	"context"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/store"
)

// MockUserStore implements store.UserStore over a fixed slice.
type MockUserStore struct {
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	ListFn       func(ctx context.Context) ([]domain.User, error)

	Users []domain.User
}

var _ store.UserStore = (*MockUserStore)(nil)

// GetByEmail implements store.UserStore.
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	for _, u := range m.Users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// List implements store.UserStore.
func (m *MockUserStore) List(ctx context.Context) ([]domain.User, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return append([]domain.User(nil), m.Users...), nil
}
