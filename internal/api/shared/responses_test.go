package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coach/internal/platform/logger"
)

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	RespondWithJSON(w, r, http.StatusAccepted, map[string]string{"status": "UP"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
}

func TestRespondWithError_IncludesTraceID(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/wod/ada@example.com", nil)
	r = r.WithContext(SetTraceID(r.Context(), "trace-12345678"))
	w := httptest.NewRecorder()
	RespondWithError(w, r, http.StatusNotFound, "Workout not found")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Workout not found", resp.Error)
	assert.Equal(t, "trace-12345678", resp.TraceID)
}

func TestRespondWithErrorAndLog_NeverLeaksError(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)
	r := httptest.NewRequest(http.MethodPost, "/createWod", nil)
	ctx := logger.WithLogger(SetTraceID(r.Context(), ""), log)
	r = r.WithContext(ctx)
	w := httptest.NewRecorder()

	cause := errors.New("dial postgres://coach:hunter2@db:5432/coach failed")
	RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "An unexpected error occurred", cause)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "postgres")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.Equal(t, GetTraceID(ctx), entries[0]["trace_id"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestRespondWithErrorAndLog_ClientErrorsLogAtDebug(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)
	r := httptest.NewRequest(http.MethodPost, "/createWod", nil)
	r = r.WithContext(logger.WithLogger(r.Context(), log))
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, r, http.StatusBadRequest, "user_email is required", nil)

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.NotContains(t, entries[0], "error")
}
