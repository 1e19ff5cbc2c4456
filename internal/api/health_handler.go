package api

import (
	"net/http"

	"github.com/fitcoach/coach/internal/api/shared"
)

// Health handles GET /health. It reports process liveness only.
func Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "UP"})
}
