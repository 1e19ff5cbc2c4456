package mocks

import (
	"context"
	"sync"

	"github.com/fitcoach/coach/internal/domain"
)

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, email string) (*domain.Wod, error)

	// Default response values
	Wod *domain.Wod
	Err error

	mu     sync.Mutex
	Emails []string
}

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(ctx context.Context, email string) (*domain.Wod, error) {
	m.mu.Lock()
	m.Emails = append(m.Emails, email)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, email)
	}
	return m.Wod, m.Err
}

// CallCount returns how many times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Emails)
}
