package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fitcoach/coach/internal/api"
	"github.com/fitcoach/coach/internal/api/middleware"
	"github.com/fitcoach/coach/internal/service"
)

// routerDeps are the collaborators of the HTTP facade.
type routerDeps struct {
	Service service.WodService
	Auth    *middleware.AuthMiddleware
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	Logger  *slog.Logger
}

// newRouter creates the chi router with all routes and middleware.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware(deps.Logger))

	wodHandler := api.NewWodHandler(deps.Service, deps.Logger)
	exerciseHandler := api.NewExerciseHandler(deps.Service, deps.Logger)

	// Public endpoints
	r.Get("/health", api.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)

		r.Post("/createWod", wodHandler.CreateWod)
		r.With(deps.Auth.RequireAdmin).Post("/createWod/all", wodHandler.CreateWodForAll)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireEmailParam("user_email"))

			r.Get("/wod/{user_email}", wodHandler.GetLatestWod)
			r.Get("/stats/{user_email}", wodHandler.GetWorkoutStats)
			r.Get("/history/{user_email}", wodHandler.GetExerciseHistory)
			r.Get("/history/{user_email}/yesterday", wodHandler.GetYesterdayExercises)
			r.Get("/history/{user_email}/excluded", wodHandler.GetExcludedExercises)
		})
		r.Get("/requests/{request_id}", wodHandler.GetRequestStatus)

		r.Get("/exercises", exerciseHandler.ListExercises)
		r.Get("/exercises/{id}", exerciseHandler.GetExercise)
	})

	return r
}
