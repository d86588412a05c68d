package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/vialtrack-service/internal/discrepancy/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accountID = "6f1c4d3e-8a55-4f3c-9a3e-1b2c3d4e5f60"

func setupRepo(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPGRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestOpenVialIDs(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT vial_id FROM discrepancies")).
		WithArgs(accountID, model.DiscrepancyExpiredActive, model.DiscrepancyOpen, model.DiscrepancyInvestigating).
		WillReturnRows(sqlmock.NewRows([]string{"vial_id"}).AddRow("v-1").AddRow("v-2"))

	ids, err := repo.OpenVialIDs(context.Background(), accountID, model.DiscrepancyExpiredActive)

	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"v-1": true, "v-2": true}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountOpen(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM discrepancies")).
		WithArgs(accountID, model.DiscrepancyOpen, model.DiscrepancyInvestigating).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountOpen(context.Background(), accountID)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAccount_TakesAdvisoryLock(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("discrepancy-detect:" + accountID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.LockAccount(context.Background(), accountID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock := setupRepo(t)
	id := "2d1c0b9a-8f7e-4d6c-9b5a-4f3e2d1c0b9a"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM discrepancies WHERE id = $1 AND account_id = $2 FOR UPDATE")).
		WithArgs(id, accountID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "type", "description", "status"}).
			AddRow(id, accountID, "OTHER", "label smudged", "OPEN"))

	d, err := repo.FindByIDForUpdate(context.Background(), accountID, id)

	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, model.DiscrepancyOpen, d.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll_BuildsFilters(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE account_id = $1 AND status = $2 AND type = $3 ORDER BY created_at DESC, id DESC")).
		WithArgs(accountID, "OPEN", "OTHER").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "type", "description", "status"}))

	list, err := repo.FindAll(context.Background(), &dto.DiscrepancyFilters{
		AccountID: accountID,
		Status:    "OPEN",
		Type:      "OTHER",
	})

	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll_MalformedVialMatchesNothing(t *testing.T) {
	repo, mock := setupRepo(t)

	list, err := repo.FindAll(context.Background(), &dto.DiscrepancyFilters{AccountID: accountID, VialID: "v-1"})

	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
