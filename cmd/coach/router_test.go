package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coach/internal/api"
	"github.com/fitcoach/coach/internal/api/middleware"
	"github.com/fitcoach/coach/internal/api/shared"
	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/metrics"
	"github.com/fitcoach/coach/internal/mocks"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/service"
	"github.com/fitcoach/coach/internal/service/auth"
)

const testSecret = "router-test-secret-with-at-least-32-chars"

type routerFixture struct {
	handler   http.Handler
	publisher *mocks.MockPublisher
	requests  *mocks.MockRequestStore
	jwt       auth.JWTService
}

func newRouterFixture(t *testing.T, withAuth bool) *routerFixture {
	t.Helper()

	log, _ := logger.NewTestLogger(t)
	f := &routerFixture{
		publisher: &mocks.MockPublisher{},
		requests:  mocks.NewMockRequestStore(),
	}

	svc, err := service.NewWodService(service.Deps{
		Publisher: f.publisher,
		Requests:  f.requests,
		Wods:      mocks.NewMockWodStore(),
		Catalog:   mocks.Catalog(8),
		History:   &mocks.MockWorkoutHistory{},
		Users: &mocks.MockUserStore{Users: []domain.User{
			{Email: "ada@example.com", Name: "Ada"},
			{Email: "bob@example.com", Name: "Bob"},
		}},
	}, "createWodQueue", log)
	require.NoError(t, err)

	authMiddleware := middleware.NewAuthMiddleware(nil)
	if withAuth {
		f.jwt, err = auth.NewJWTService(testSecret)
		require.NoError(t, err)
		authMiddleware = middleware.NewAuthMiddleware(f.jwt)
	}

	f.handler = newRouter(routerDeps{
		Service: svc,
		Auth:    authMiddleware,
		Metrics: metrics.NewCollector().Handler(),
		Logger:  log,
	})
	return f
}

func (f *routerFixture) token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := f.jwt.GenerateToken(context.Background(), subject, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *routerFixture) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, true)

	w := f.do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(shared.TraceIDHeader))
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, true)

	w := f.do(http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "coach_generations_in_flight")
}

func TestRouter_CreateWodWithoutAuth(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, false)

	w := f.do(http.MethodPost, "/createWod", `{"user_email":"ada@example.com"}`, "")
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp api.CreateWodResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.StatusProcessing, resp.Status)
	require.NotEmpty(t, resp.RequestID)

	published := f.publisher.Requests()
	require.Len(t, published, 1)
	assert.Equal(t, "createWodQueue", published[0].Queue)
	assert.Equal(t, resp.RequestID, published[0].Request.RequestID)
	assert.Equal(t, "ada@example.com", published[0].Request.UserEmail)

	w = f.do(http.MethodGet, "/requests/"+resp.RequestID, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec domain.RequestRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.RequestStatusPending, rec.Status)
}

func TestRouter_RequiresToken(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, true)

	w := f.do(http.MethodPost, "/createWod", `{"user_email":"ada@example.com"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/createWod", `{"user_email":"ada@example.com"}`, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.publisher.Requests())
}

func TestRouter_OwnershipChecks(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, true)
	ada := f.token(t, "ada@example.com", "")

	w := f.do(http.MethodPost, "/createWod", `{"user_email":"ada@example.com"}`, ada)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(http.MethodPost, "/createWod", `{"user_email":"bob@example.com"}`, ada)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/wod/bob@example.com", "", ada)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/wod/ada@example.com", "", ada)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/history/ada@example.com/excluded", "", ada)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{
		"/history/bob@example.com",
		"/history/bob@example.com/yesterday",
		"/stats/bob@example.com",
	} {
		w = f.do(http.MethodGet, path, "", ada)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
}

func TestRouter_HistoryAndStats(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, true)
	ada := f.token(t, "ada@example.com", "")

	w := f.do(http.MethodGet, "/history/ada@example.com?limit=5", "", ada)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_email":"ada@example.com","exercises":[]}`, w.Body.String())

	w = f.do(http.MethodGet, "/history/ada@example.com/yesterday", "", ada)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/stats/ada@example.com", "", ada)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.WorkoutStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "ada@example.com", stats.UserEmail)
	assert.Zero(t, stats.TotalWods)

	w = f.do(http.MethodGet, "/stats/bob@example.com", "", f.token(t, "ops@example.com", auth.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_FanOutRequiresAdmin(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, true)

	w := f.do(http.MethodPost, "/createWod/all", "", f.token(t, "ada@example.com", ""))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.publisher.Requests())

	w = f.do(http.MethodPost, "/createWod/all", "", f.token(t, "ops@example.com", auth.RoleAdmin))
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp api.CreateWodForAllResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Requests, 2)
	assert.Len(t, f.publisher.Requests(), 2)
}

func TestRouter_Exercises(t *testing.T) {
	t.Parallel()
	f := newRouterFixture(t, false)

	w := f.do(http.MethodGet, "/exercises", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var exercises []domain.Exercise
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exercises))
	assert.Len(t, exercises, 8)

	w = f.do(http.MethodGet, "/exercises/3", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/exercises/300", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
