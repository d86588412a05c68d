package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockTx(t *testing.T) (*TxManager, *sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return NewTxManager(db, logger.NewNop()), db, mock
}

func touchVial(ctx context.Context, db *sqlx.DB) error {
	_, err := Conn(ctx, db).ExecContext(ctx, "UPDATE vials SET updated_at = now() WHERE id = $1", "v-1")
	return err
}

func TestWithinTx_CommitRunsHooks(t *testing.T) {
	m, db, mock := setupMockTx(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vials").WithArgs("v-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	hookRan := false
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		transaction.AfterCommit(ctx, func() { hookRan = true })
		return touchVial(ctx, db)
	})

	require.NoError(t, err)
	assert.True(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_ErrorRollsBack(t *testing.T) {
	m, db, mock := setupMockTx(t)
	boom := errors.New("audit insert failed")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	hookRan := false
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		transaction.AfterCommit(ctx, func() { hookRan = true })
		if err := touchVial(ctx, db); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RetriesSerializationFailureOnce(t *testing.T) {
	m, db, mock := setupMockTx(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vials").WillReturnError(&pq.Error{Code: codeSerializationFailure})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		calls++
		return touchVial(ctx, db)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_SecondConflictIsReported(t *testing.T) {
	m, db, mock := setupMockTx(t)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE vials").WillReturnError(&pq.Error{Code: codeDeadlockDetected})
		mock.ExpectRollback()
	}

	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		return touchVial(ctx, db)
	})

	assert.ErrorIs(t, err, apperror.ErrConcurrentUpdate)
	assert.Equal(t, apperror.KindConcurrency, apperror.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_NestedCallJoinsOuterTransaction(t *testing.T) {
	m, db, mock := setupMockTx(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE vials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := touchVial(ctx, db); err != nil {
			return err
		}
		return m.WithinTx(ctx, func(ctx context.Context) error {
			return touchVial(ctx, db)
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnFallsBackToPool(t *testing.T) {
	_, db, _ := setupMockTx(t)
	assert.Same(t, db, Conn(context.Background(), db))
}
