package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fitcoach/coach/internal/api/shared"
	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/service"
)

// ExerciseHandler serves read-only catalog endpoints.
type ExerciseHandler struct {
	svc    service.WodService
	logger *slog.Logger
}

// NewExerciseHandler creates an ExerciseHandler.
func NewExerciseHandler(svc service.WodService, logger *slog.Logger) *ExerciseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExerciseHandler{svc: svc, logger: logger.With("component", "exercise_handler")}
}

// ListExercises handles GET /exercises with an optional muscle_group_id query.
func (h *ExerciseHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	var groupID *int64
	if raw := r.URL.Query().Get("muscle_group_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid muscle_group_id", err)
			return
		}
		groupID = &id
	}

	exercises, err := h.svc.ListExercises(r.Context(), groupID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, exercises)
}

// GetExercise handles GET /exercises/{id}.
func (h *ExerciseHandler) GetExercise(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid exercise id", err)
		return
	}

	ex, err := h.svc.GetExercise(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ex)
}
