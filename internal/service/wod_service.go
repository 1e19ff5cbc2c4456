package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/redact"
	"github.com/fitcoach/coach/internal/store"
)

// statusWriteTimeout bounds the request-status update made after a failed
// publish, which must outlive a cancelled caller.
const statusWriteTimeout = 5 * time.Second

// Publisher hands a WodRequest to the broker.
type Publisher interface {
	Publish(ctx context.Context, queue string, req domain.WodRequest) error
}

// WodService is the application facade over the generation pipeline.
type WodService interface {
	// RequestWod records a pending request for email and publishes it.
	RequestWod(ctx context.Context, email string) (*domain.RequestRecord, error)

	// RequestWodsForAllUsers publishes one request per known user and returns
	// the requests that were accepted. Returns ErrNoUsers when the directory
	// is empty.
	RequestWodsForAllUsers(ctx context.Context) ([]domain.RequestRecord, error)

	// LatestWod returns the user's most recent workout.
	LatestWod(ctx context.Context, email string) (*domain.Wod, error)

	// RequestStatus returns the lifecycle record of a generation request.
	RequestStatus(ctx context.Context, requestID string) (*domain.RequestRecord, error)

	// ExcludedExercises returns the exercise ids the next workout would skip.
	ExcludedExercises(ctx context.Context, email string) ([]int64, error)

	// ExerciseHistory returns what the user performed, newest first. limit
	// <= 0 returns the full history.
	ExerciseHistory(ctx context.Context, email string, limit int) ([]domain.PerformedExercise, error)

	// ExercisesPerformedYesterday returns what the user performed on the
	// previous UTC calendar day.
	ExercisesPerformedYesterday(ctx context.Context, email string) ([]domain.PerformedExercise, error)

	// WorkoutStats summarises every workout generated for the user.
	WorkoutStats(ctx context.Context, email string) (*domain.WorkoutStats, error)

	// ListExercises returns the catalog, optionally filtered by muscle group.
	ListExercises(ctx context.Context, muscleGroupID *int64) ([]domain.Exercise, error)

	// GetExercise returns one catalog exercise with its muscle groups.
	GetExercise(ctx context.Context, id int64) (*domain.Exercise, error)
}

// Deps are the collaborators of a WodService.
type Deps struct {
	Publisher Publisher
	Requests  store.RequestStore
	Wods      store.WodStore
	Catalog   store.ExerciseCatalog
	History   store.WorkoutHistory
	Users     store.UserStore
}

// Option configures a WodService.
type Option func(*wodServiceImpl)

// WithClock overrides the clock used for history exclusion queries.
func WithClock(now func() time.Time) Option {
	return func(s *wodServiceImpl) { s.now = now }
}

// WithIDGenerator overrides how request ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *wodServiceImpl) { s.newID = newID }
}

type wodServiceImpl struct {
	deps   Deps
	queue  string
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewWodService creates a WodService publishing to queueName.
// It returns an error if any dependency is nil.
func NewWodService(deps Deps, queueName string, logger *slog.Logger, opts ...Option) (WodService, error) {
	switch {
	case deps.Publisher == nil:
		return nil, &WodServiceError{Operation: "create_service", Message: "publisher cannot be nil"}
	case deps.Requests == nil:
		return nil, &WodServiceError{Operation: "create_service", Message: "request store cannot be nil"}
	case deps.Wods == nil:
		return nil, &WodServiceError{Operation: "create_service", Message: "wod store cannot be nil"}
	case deps.Catalog == nil:
		return nil, &WodServiceError{Operation: "create_service", Message: "exercise catalog cannot be nil"}
	case deps.History == nil:
		return nil, &WodServiceError{Operation: "create_service", Message: "workout history cannot be nil"}
	case deps.Users == nil:
		return nil, &WodServiceError{Operation: "create_service", Message: "user store cannot be nil"}
	case queueName == "":
		return nil, &WodServiceError{Operation: "create_service", Message: "queue name cannot be empty"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &wodServiceImpl{
		deps:   deps,
		queue:  queueName,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: logger.With("component", "wod_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestWod implements WodService.
func (s *wodServiceImpl) RequestWod(ctx context.Context, email string) (*domain.RequestRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	email = domain.NormalizeEmail(email)

	req := domain.WodRequest{
		RequestID:  s.newID(),
		UserEmail:  email,
		EnqueuedAt: s.now(),
	}
	rec, err := domain.NewRequestRecord(req)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyEmail) {
			return nil, ErrInvalidEmail
		}
		return nil, NewWodServiceError("request_wod", "failed to build request record", err)
	}

	if err := s.deps.Requests.Create(ctx, rec); err != nil {
		log.Error("failed to record generation request",
			"error", err,
			"request_id", rec.ID,
			"user_email", email)
		return nil, NewWodServiceError("request_wod", "failed to record request", err)
	}

	if err := s.deps.Publisher.Publish(ctx, s.queue, req); err != nil {
		msg := redact.Error(err)
		log.Error("failed to publish generation request",
			"error", msg,
			"request_id", rec.ID,
			"user_email", email)
		s.markFailed(ctx, log, rec.ID, msg)
		return nil, &WodServiceError{
			Operation: "request_wod",
			Message:   "failed to publish request",
			Err:       errors.Join(ErrEnqueueFailed, err),
		}
	}

	log.Info("generation request enqueued",
		"request_id", rec.ID,
		"user_email", email,
		"queue", s.queue)
	return rec, nil
}

// RequestWodsForAllUsers implements WodService. A failure for one user is
// logged and does not stop the fan-out; the call fails only when no request
// could be enqueued.
func (s *wodServiceImpl) RequestWodsForAllUsers(ctx context.Context) ([]domain.RequestRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	users, err := s.deps.Users.List(ctx)
	if err != nil {
		log.Error("failed to list users", "error", err)
		return nil, NewWodServiceError("request_all", "failed to list users", err)
	}
	if len(users) == 0 {
		return nil, ErrNoUsers
	}

	accepted := make([]domain.RequestRecord, 0, len(users))
	var firstErr error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return accepted, NewWodServiceError("request_all", "fan-out interrupted", err)
		}
		rec, err := s.RequestWod(ctx, u.Email)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Warn("skipping user in fan-out",
				"error", redact.Error(err),
				"user_email", u.Email)
			continue
		}
		accepted = append(accepted, *rec)
	}

	if len(accepted) == 0 {
		return nil, firstErr
	}
	log.Info("fan-out enqueued",
		"requested", len(accepted),
		"users", len(users))
	return accepted, nil
}

// LatestWod implements WodService.
func (s *wodServiceImpl) LatestWod(ctx context.Context, email string) (*domain.Wod, error) {
	if email == "" {
		return nil, ErrInvalidEmail
	}
	wod, err := s.deps.Wods.LatestForUser(ctx, email)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to load latest wod",
				"error", err,
				"user_email", email)
		}
		return nil, NewWodServiceError("latest_wod", "failed to load latest wod", err)
	}
	return wod, nil
}

// RequestStatus implements WodService.
func (s *wodServiceImpl) RequestStatus(ctx context.Context, requestID string) (*domain.RequestRecord, error) {
	if requestID == "" {
		return nil, ErrRequestNotFound
	}
	rec, err := s.deps.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, NewWodServiceError("request_status", "failed to load request", err)
	}
	return rec, nil
}

// ExcludedExercises implements WodService.
func (s *wodServiceImpl) ExcludedExercises(ctx context.Context, email string) ([]int64, error) {
	if email == "" {
		return nil, ErrInvalidEmail
	}
	ids, err := s.deps.History.ExcludedExerciseIDs(ctx, email, s.now())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load excluded exercises",
			"error", err,
			"user_email", email)
		return nil, NewWodServiceError("excluded_exercises", "failed to load workout history", err)
	}
	return ids, nil
}

// ListExercises implements WodService.
func (s *wodServiceImpl) ListExercises(ctx context.Context, muscleGroupID *int64) ([]domain.Exercise, error) {
	var (
		exercises []domain.Exercise
		err       error
	)
	if muscleGroupID != nil {
		exercises, err = s.deps.Catalog.ListByMuscleGroup(ctx, *muscleGroupID)
	} else {
		exercises, err = s.deps.Catalog.ListExercises(ctx)
	}
	if err != nil {
		return nil, NewWodServiceError("list_exercises", "failed to list exercises", err)
	}
	return exercises, nil
}

// GetExercise implements WodService.
func (s *wodServiceImpl) GetExercise(ctx context.Context, id int64) (*domain.Exercise, error) {
	ex, err := s.deps.Catalog.GetExercise(ctx, id)
	if err != nil {
		return nil, NewWodServiceError("get_exercise", "failed to load exercise", err)
	}
	return ex, nil
}

func (s *wodServiceImpl) markFailed(ctx context.Context, log *slog.Logger, id, msg string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	if err := s.deps.Requests.UpdateStatus(ctx, id, domain.RequestStatusFailed, 0, msg); err != nil {
		log.Warn("failed to mark request as failed",
			"error", err,
			"request_id", id)
	}
}

// ExerciseHistory implements WodService.
func (s *wodServiceImpl) ExerciseHistory(ctx context.Context, email string, limit int) ([]domain.PerformedExercise, error) {
	return s.performed(ctx, "exercise_history", email, time.Time{}, time.Time{}, limit)
}

// ExercisesPerformedYesterday implements WodService.
func (s *wodServiceImpl) ExercisesPerformedYesterday(ctx context.Context, email string) ([]domain.PerformedExercise, error) {
	from, to := store.PreviousDay(s.now())
	return s.performed(ctx, "exercises_yesterday", email, from, to, 0)
}

func (s *wodServiceImpl) performed(ctx context.Context, op, email string, from, to time.Time, limit int) ([]domain.PerformedExercise, error) {
	if email == "" {
		return nil, ErrInvalidEmail
	}
	out, err := s.deps.History.PerformedBetween(ctx, email, from, to, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load performed exercises",
			"error", err,
			"user_email", email)
		return nil, NewWodServiceError(op, "failed to load workout history", err)
	}
	if out == nil {
		out = []domain.PerformedExercise{}
	}
	return out, nil
}

// WorkoutStats implements WodService.
func (s *wodServiceImpl) WorkoutStats(ctx context.Context, email string) (*domain.WorkoutStats, error) {
	if email == "" {
		return nil, ErrInvalidEmail
	}
	stats, err := s.deps.Wods.StatsForUser(ctx, email)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load workout stats",
			"error", err,
			"user_email", email)
		return nil, NewWodServiceError("workout_stats", "failed to load workout stats", err)
	}
	return stats, nil
}
