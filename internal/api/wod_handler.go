package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fitcoach/coach/internal/api/middleware"
	"github.com/fitcoach/coach/internal/api/shared"
	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/service"
)

// WodHandler serves workout generation and retrieval endpoints.
type WodHandler struct {
	svc    service.WodService
	logger *slog.Logger
}

// NewWodHandler creates a WodHandler.
func NewWodHandler(svc service.WodService, logger *slog.Logger) *WodHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WodHandler{svc: svc, logger: logger.With("component", "wod_handler")}
}

// CreateWod handles POST /createWod.
func (h *WodHandler) CreateWod(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateWodRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		if errors.Is(err, shared.ErrEmptyBody) {
			HandleAPIError(w, r, service.ErrInvalidEmail, "")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	req.UserEmail = domain.NormalizeEmail(req.UserEmail)
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}
	if !middleware.CanAccessEmail(r, req.UserEmail) {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	rec, err := h.svc.RequestWod(r.Context(), req.UserEmail)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("wod generation requested",
		"request_id", rec.ID,
		"user_email", rec.UserEmail)
	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateWodResponse{
		RequestID: rec.ID,
		Status:    StatusProcessing,
	})
}

// CreateWodForAll handles POST /createWod/all.
func (h *WodHandler) CreateWodForAll(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.RequestWodsForAllUsers(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, newCreateWodForAllResponse(recs))
}

// GetLatestWod handles GET /wod/{user_email}.
func (h *WodHandler) GetLatestWod(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "user_email")

	wod, err := h.svc.LatestWod(r.Context(), email)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, wod)
}

// GetRequestStatus handles GET /requests/{request_id}. A request owned by
// someone else is reported as missing.
func (h *WodHandler) GetRequestStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.RequestStatus(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if !middleware.CanAccessEmail(r, rec.UserEmail) {
		HandleAPIError(w, r, service.ErrRequestNotFound, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// GetExcludedExercises handles GET /history/{user_email}/excluded.
func (h *WodHandler) GetExcludedExercises(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "user_email")

	ids, err := h.svc.ExcludedExercises(r.Context(), email)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ExcludedExercisesResponse{UserEmail: email, ExerciseIDs: ids})
}

// GetExerciseHistory handles GET /history/{user_email} with an optional
// limit query.
func (h *WodHandler) GetExerciseHistory(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "user_email")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	performed, err := h.svc.ExerciseHistory(r.Context(), email, limit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PerformedExercisesResponse{UserEmail: email, Exercises: performed})
}

// GetYesterdayExercises handles GET /history/{user_email}/yesterday.
func (h *WodHandler) GetYesterdayExercises(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "user_email")

	performed, err := h.svc.ExercisesPerformedYesterday(r.Context(), email)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PerformedExercisesResponse{UserEmail: email, Exercises: performed})
}

// GetWorkoutStats handles GET /stats/{user_email}.
func (h *WodHandler) GetWorkoutStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.WorkoutStats(r.Context(), chi.URLParam(r, "user_email"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
