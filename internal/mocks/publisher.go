package mocks

import (
	"context"
	"sync"

	"github.com/fitcoach/coach/internal/domain"
)

// PublishedRequest is one Publish call captured by MockPublisher.
type PublishedRequest struct {
	Queue   string
	Request domain.WodRequest
}

// MockPublisher implements service.Publisher.
type MockPublisher struct {
	PublishFn func(ctx context.Context, queue string, req domain.WodRequest) error

	mu        sync.Mutex
	Published []PublishedRequest
}

// Publish implements service.Publisher.
func (m *MockPublisher) Publish(ctx context.Context, queue string, req domain.WodRequest) error {
	if m.PublishFn != nil {
		if err := m.PublishFn(ctx, queue, req); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedRequest{Queue: queue, Request: req})
	return nil
}

// Requests returns a copy of the captured Publish calls.
func (m *MockPublisher) Requests() []PublishedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedRequest(nil), m.Published...)
}
