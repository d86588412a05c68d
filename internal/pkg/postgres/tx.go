package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

type TxManager struct {
	db     *sqlx.DB
	opts   *sql.TxOptions
	logger logger.ZapLogger
}

func NewTxManager(db *sqlx.DB, log logger.ZapLogger) *TxManager {
	return &TxManager{db: db, logger: log}
}

// WithinTx joins the transaction already carried by ctx, or opens a new one.
// A transaction aborted by the store because of a competing writer is retried
// once; if the retry loses too the caller gets apperror.ErrConcurrentUpdate.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := transaction.FromContext(ctx); ok {
		return fn(ctx)
	}

	err := m.run(ctx, fn)
	if !IsRetryable(err) {
		return err
	}

	m.logger.Warn("transaction aborted by concurrent writer, retrying", zap.Error(err))
	err = m.run(ctx, fn)
	if IsRetryable(err) {
		return apperror.ErrConcurrentUpdate.Wrap(err)
	}
	return err
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTxx(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	state := &transaction.State{Handle: tx}
	if err := fn(transaction.WithState(ctx, state)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			m.logger.Error("failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	state.Committed()
	return nil
}

// IsRetryable reports whether err is a serialization failure or deadlock.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
