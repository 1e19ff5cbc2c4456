package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitcoach/coach/internal/platform/logger"
)

// ErrNoTransactionSupport is returned by WithinTransaction when the handle can
// neither begin a transaction nor is one.
var ErrNoTransactionSupport = errors.New("database handle cannot start a transaction")

// TxFn is a function that executes within a database transaction.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// TxBeginner is implemented by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// RunInTransaction runs fn in a new transaction on db. The transaction
// commits when fn returns nil and rolls back when fn fails or panics; a panic
// is re-raised after the rollback. When the rollback itself fails, the
// returned error matches both fn's error and the rollback error.
func RunInTransaction(ctx context.Context, db TxBeginner, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if txErr := tx.Rollback(); txErr != nil {
			log.Error("failed to roll back transaction after panic",
				slog.String("error", txErr.Error()),
				slog.Any("panic", p))
		} else {
			log.Error("rolled back transaction after panic",
				slog.Any("panic", p))
		}
		panic(p)
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rollbackErr.Error()),
				slog.String("error", err.Error()))
			return errors.Join(err, fmt.Errorf("roll back transaction: %w", rollbackErr))
		}
		log.Debug("rolled back transaction",
			slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// WithinTransaction runs fn inside db when db is already a transaction, and
// otherwise opens a new one with RunInTransaction. It lets stores that hold a
// DBTX make multi-statement writes atomic in both cases.
func WithinTransaction(ctx context.Context, db DBTX, fn TxFn) error {
	switch h := db.(type) {
	case *sql.Tx:
		return fn(ctx, h)
	case TxBeginner:
		return RunInTransaction(ctx, h, fn)
	default:
		return ErrNoTransactionSupport
	}
}
