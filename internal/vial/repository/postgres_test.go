package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accountID = "6f1c4d3e-8a55-4f3c-9a3e-1b2c3d4e5f60"
	productID = "0b8e7d6c-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
	vialID    = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

var vialColumns = []string{
	"id", "account_id", "product_id", "location_id", "lot_number", "expiration_date",
	"initial_quantity", "remaining_quantity", "status", "status_reason",
	"opened_at", "depleted_at", "created_at", "updated_at",
	"product_name", "product_brand", "product_category", "product_unit_type",
	"product_units_per_vial", "product_reorder_threshold", "product_beyond_use_hours",
	"product_is_active", "location_name", "location_type",
}

func setupRepo(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPGRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

func vialRows(ids ...string) *sqlmock.Rows {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(vialColumns)
	for _, id := range ids {
		rows.AddRow(
			id, accountID, productID, nil, "C123", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			"100", "62.5", "ACTIVE", nil,
			nil, nil, created, created,
			"Botox", "Allergan", "NEUROTOXIN", "UNITS",
			"100", 2, nil,
			true, nil, nil,
		)
	}
	return rows
}

func TestFindByIDForUpdate_LocksVialRow(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE v.id = $1 AND v.account_id = $2 FOR UPDATE OF v")).
		WithArgs(vialID, accountID).
		WillReturnRows(vialRows(vialID))

	v, err := repo.FindByIDForUpdate(context.Background(), accountID, vialID)

	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.RemainingQuantity.Equal(decimal.RequireFromString("62.5")))
	assert.Equal(t, model.VialActive, v.Status)
	require.NotNil(t, v.Product)
	assert.Equal(t, "Botox", v.Product.Name)
	assert.Nil(t, v.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_MissingRow(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("FROM vials v").
		WithArgs(vialID, accountID).
		WillReturnRows(sqlmock.NewRows(vialColumns))

	v, err := repo.FindByID(context.Background(), accountID, vialID)

	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_MalformedIDSkipsQuery(t *testing.T) {
	repo, mock := setupRepo(t)

	v, err := repo.FindByID(context.Background(), accountID, "not-a-uuid")

	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RequiresExactlyOneRow(t *testing.T) {
	repo, mock := setupRepo(t)
	v := &model.Vial{
		BaseModel:         model.BaseModel{ID: vialID},
		AccountID:         accountID,
		RemainingQuantity: decimal.NewFromInt(40),
		Status:            model.VialActive,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vials")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), v))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vials")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 rows affected")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll_FiltersAndPages(t *testing.T) {
	repo, mock := setupRepo(t)
	filters := &dto.VialFilters{
		AccountID: accountID,
		Status:    string(model.VialActive),
		LotNumber: "c_1",
		Page:      2,
		PageSize:  10,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM vials v WHERE v.account_id = $1 AND v.status = $2 AND v.lot_number ILIKE $3")).
		WithArgs(accountID, string(model.VialActive), `%c\_1%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY v.expiration_date ASC, v.created_at DESC, v.id ASC LIMIT 10 OFFSET 10")).
		WithArgs(accountID, string(model.VialActive), `%c\_1%`).
		WillReturnRows(vialRows(vialID, productID))

	vials, total, err := repo.FindAll(context.Background(), filters)

	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, vials, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll_ExpiringWindowOverridesStatus(t *testing.T) {
	repo, mock := setupRepo(t)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	days := 30
	filters := &dto.VialFilters{
		AccountID:          accountID,
		Status:             string(model.VialDisposed),
		ExpiringWithinDays: &days,
		Now:                now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("v.status = $2 AND v.expiration_date > $3 AND v.expiration_date <= $4")).
		WithArgs(accountID, model.VialActive, now, now.AddDate(0, 0, 30)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM vials v").
		WillReturnRows(sqlmock.NewRows(vialColumns))

	vials, total, err := repo.FindAll(context.Background(), filters)

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, vials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll_MalformedProductMatchesNothing(t *testing.T) {
	repo, mock := setupRepo(t)

	vials, total, err := repo.FindAll(context.Background(), &dto.VialFilters{AccountID: accountID, ProductID: "bogus"})

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, vials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
