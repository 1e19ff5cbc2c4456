package domain

import (
	"strings"
	"time"
)

// RequestStatus represents the processing state of a WOD generation request.
type RequestStatus string

// Possible request status values
const (
	RequestStatusPending      RequestStatus = "pending"
	RequestStatusProcessing   RequestStatus = "processing"
	RequestStatusRetrying     RequestStatus = "retrying"
	RequestStatusCompleted    RequestStatus = "completed"
	RequestStatusDeadLettered RequestStatus = "dead_lettered"
	RequestStatusFailed       RequestStatus = "failed"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusProcessing, RequestStatusRetrying,
		RequestStatusCompleted, RequestStatusDeadLettered, RequestStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further processing will happen for s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusDeadLettered || s == RequestStatusFailed
}

// WodRequest is the unit of work carried on the queue. It is immutable once
// published.
type WodRequest struct {
	RequestID  string    `json:"request_id" validate:"required"`
	UserEmail  string    `json:"user_email" validate:"required"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RequestRecord tracks the lifecycle of a WodRequest for status polling.
type RequestRecord struct {
	ID           string        `json:"request_id"`
	UserEmail    string        `json:"user_email"`
	Status       RequestStatus `json:"status"`
	Attempts     int           `json:"attempts"`
	ErrorMessage string        `json:"error_message,omitempty"`
	WodID        *int64        `json:"wod_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewRequestRecord returns a pending record for req.
func NewRequestRecord(req WodRequest) (*RequestRecord, error) {
	if err := CheckEmail(req.UserEmail); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &RequestRecord{
		ID:        req.RequestID,
		UserEmail: req.UserEmail,
		Status:    RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeEmail returns email in the form stored on request records and
// carried on the queue.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// CheckEmail reports whether email is present and already normalized.
func CheckEmail(email string) error {
	normalized := NormalizeEmail(email)
	switch {
	case normalized == "":
		return ErrEmptyEmail
	case normalized != email:
		return ErrUntrimmedEmail
	}
	return nil
}
