package api

import (
	"fmt"

	"github.com/fitcoach/coach/internal/domain"
)

// CreateWodRequest is the body of POST /createWod.
type CreateWodRequest struct {
	UserEmail string `json:"user_email" validate:"required"`
}

// StatusProcessing is reported for accepted requests; generation happens
// asynchronously.
const StatusProcessing = "processing"

// CreateWodResponse acknowledges an accepted generation request.
type CreateWodResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// EnqueuedRequest is one entry of a fan-out response.
type EnqueuedRequest struct {
	RequestID string `json:"request_id"`
	UserEmail string `json:"user_email"`
}

// CreateWodForAllResponse acknowledges a fan-out.
type CreateWodForAllResponse struct {
	Message  string            `json:"message"`
	Requests []EnqueuedRequest `json:"requests"`
}

func newCreateWodForAllResponse(recs []domain.RequestRecord) CreateWodForAllResponse {
	out := CreateWodForAllResponse{
		Message:  fmt.Sprintf("WOD generation requested for %d users", len(recs)),
		Requests: make([]EnqueuedRequest, 0, len(recs)),
	}
	for _, rec := range recs {
		out.Requests = append(out.Requests, EnqueuedRequest{RequestID: rec.ID, UserEmail: rec.UserEmail})
	}
	return out
}

// ExcludedExercisesResponse lists the exercise ids the next workout will skip.
type ExcludedExercisesResponse struct {
	UserEmail   string  `json:"user_email"`
	ExerciseIDs []int64 `json:"excluded_exercise_ids"`
}

// PerformedExercisesResponse lists exercises from a user's workout history.
type PerformedExercisesResponse struct {
	UserEmail string                     `json:"user_email"`
	Exercises []domain.PerformedExercise `json:"exercises"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
