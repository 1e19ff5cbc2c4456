package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitcoach/coach/internal/domain"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/store"
)

// PostgresRequestStore implements store.RequestStore over the wod_requests table.
type PostgresRequestStore struct {
	db     store.DBTX
	now    func() time.Time
	logger *slog.Logger
}

// NewPostgresRequestStore creates a request status store over db.
func NewPostgresRequestStore(db store.DBTX, logger *slog.Logger) *PostgresRequestStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRequestStore{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "request_store")),
	}
}

var _ store.RequestStore = (*PostgresRequestStore)(nil)

// WithTx implements store.RequestStore.
func (s *PostgresRequestStore) WithTx(tx *sql.Tx) store.RequestStore {
	return &PostgresRequestStore{db: tx, now: s.now, logger: s.logger}
}

// Create implements store.RequestStore.
func (s *PostgresRequestStore) Create(ctx context.Context, rec *domain.RequestRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO wod_requests (id, user_email, status, attempts, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserEmail,
		string(rec.Status),
		rec.Attempts,
		nullString(rec.ErrorMessage),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("request already recorded", slog.String("request_id", rec.ID))
			return fmt.Errorf("%w: %s", store.ErrRequestExists, rec.ID)
		}
		log.Error("failed to save request",
			slog.String("error", err.Error()),
			slog.String("request_id", rec.ID))
		return MapError(err)
	}
	return nil
}

// Get implements store.RequestStore.
func (s *PostgresRequestStore) Get(ctx context.Context, id string) (*domain.RequestRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_email, status, attempts, error_message, wod_id, created_at, updated_at
		FROM wod_requests
		WHERE id = $1
	`

	var rec domain.RequestRecord
	var status string
	var errMsg sql.NullString
	var wodID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.UserEmail, &status, &rec.Attempts, &errMsg, &wodID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("request not found", slog.String("request_id", id))
			return nil, store.ErrRequestNotFound
		}
		log.Error("failed to get request",
			slog.String("error", err.Error()),
			slog.String("request_id", id))
		return nil, MapError(err)
	}

	rec.Status = domain.RequestStatus(status)
	rec.ErrorMessage = errMsg.String
	if wodID.Valid {
		rec.WodID = &wodID.Int64
	}
	return &rec, nil
}

// UpdateStatus implements store.RequestStore.
func (s *PostgresRequestStore) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.RequestStatus,
	attempts int,
	errMsg string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.Valid() {
		return fmt.Errorf("%w: unknown request status %q", store.ErrInvalidEntity, status)
	}

	query := `
		UPDATE wod_requests
		SET status = $1, attempts = $2, error_message = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query, string(status), attempts, nullString(errMsg), s.now(), id)
	if err != nil {
		log.Error("failed to update request status",
			slog.String("error", err.Error()),
			slog.String("request_id", id),
			slog.String("status", string(status)))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrRequestNotFound)
}

// MarkCompleted implements store.RequestStore.
func (s *PostgresRequestStore) MarkCompleted(ctx context.Context, id string, wodID int64, attempts int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE wod_requests
		SET status = $1, attempts = $2, wod_id = $3, error_message = NULL, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		string(domain.RequestStatusCompleted), attempts, wodID, s.now(), id)
	if err != nil {
		log.Error("failed to mark request completed",
			slog.String("error", err.Error()),
			slog.String("request_id", id),
			slog.Int64("wod_id", wodID))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrRequestNotFound)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
