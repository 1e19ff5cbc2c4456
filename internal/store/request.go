package store

import (
	"context"
	"database/sql"

	"github.com/fitcoach/coach/internal/domain"
)

// RequestStore tracks generation requests so clients can poll their status.
type RequestStore interface {
	// Create records a new request. Returns ErrRequestExists when the id is taken.
	Create(ctx context.Context, rec *domain.RequestRecord) error

	// Get returns the request or ErrRequestNotFound.
	Get(ctx context.Context, id string) (*domain.RequestRecord, error)

	// UpdateStatus sets status, attempts and error message. Returns
	// ErrRequestNotFound when no row matches.
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, attempts int, errMsg string) error

	// MarkCompleted sets the completed status and links the resulting workout.
	MarkCompleted(ctx context.Context, id string, wodID int64, attempts int) error

	// WithTx returns a new RequestStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) RequestStore
}
