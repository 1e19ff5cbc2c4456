package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/store"
)

// MockRequestStore implements store.RequestStore with an in-memory map.
type MockRequestStore struct {
	CreateFn        func(ctx context.Context, rec *domain.RequestRecord) error
	GetFn           func(ctx context.Context, id string) (*domain.RequestRecord, error)
	UpdateStatusFn  func(ctx context.Context, id string, status domain.RequestStatus, attempts int, errMsg string) error
	MarkCompletedFn func(ctx context.Context, id string, wodID int64, attempts int) error

	mu      sync.Mutex
	Records map[string]domain.RequestRecord
}

var _ store.RequestStore = (*MockRequestStore)(nil)

// NewMockRequestStore returns an empty store.
func NewMockRequestStore() *MockRequestStore {
	return &MockRequestStore{Records: map[string]domain.RequestRecord{}}
}

// Create implements store.RequestStore.
func (m *MockRequestStore) Create(ctx context.Context, rec *domain.RequestRecord) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Records == nil {
		m.Records = map[string]domain.RequestRecord{}
	}
	if _, exists := m.Records[rec.ID]; exists {
		return store.ErrRequestExists
	}
	m.Records[rec.ID] = *rec
	return nil
}

// Get implements store.RequestStore.
func (m *MockRequestStore) Get(ctx context.Context, id string) (*domain.RequestRecord, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[id]
	if !ok {
		return nil, store.ErrRequestNotFound
	}
	return &rec, nil
}

// UpdateStatus implements store.RequestStore.
func (m *MockRequestStore) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, attempts int, errMsg string) error {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status, attempts, errMsg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[id]
	if !ok {
		return store.ErrRequestNotFound
	}
	rec.Status = status
	rec.Attempts = attempts
	rec.ErrorMessage = errMsg
	rec.UpdatedAt = time.Now().UTC()
	m.Records[id] = rec
	return nil
}

// MarkCompleted implements store.RequestStore.
func (m *MockRequestStore) MarkCompleted(ctx context.Context, id string, wodID int64, attempts int) error {
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(ctx, id, wodID, attempts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[id]
	if !ok {
		return store.ErrRequestNotFound
	}
	rec.Status = domain.RequestStatusCompleted
	rec.Attempts = attempts
	rec.ErrorMessage = ""
	rec.WodID = &wodID
	rec.UpdatedAt = time.Now().UTC()
	m.Records[id] = rec
	return nil
}

// WithTx implements store.RequestStore.
func (m *MockRequestStore) WithTx(*sql.Tx) store.RequestStore {
	return m
}

// Status returns the stored status for id, or "" when absent.
func (m *MockRequestStore) Status(id string) domain.RequestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Records[id].Status
}
