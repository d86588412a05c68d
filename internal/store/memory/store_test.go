package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/vialtrack-service/internal/account"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedVial(t *testing.T, s *Store) model.Vial {
	t.Helper()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Products().Create(context.Background(), &model.Product{
		BaseModel:    model.BaseModel{ID: "p-1"},
		AccountID:    "acc-1",
		Name:         "Juvederm",
		UnitsPerVial: decimal.NewFromInt(1),
		IsActive:     true,
	}))
	v := model.Vial{
		BaseModel:         model.BaseModel{ID: "v-1", CreatedAt: now},
		AccountID:         "acc-1",
		ProductID:         "p-1",
		LotNumber:         "L1",
		ExpirationDate:    now.AddDate(1, 0, 0),
		InitialQuantity:   decimal.NewFromInt(1),
		RemainingQuantity: decimal.NewFromInt(1),
		Status:            model.VialActive,
	}
	require.NoError(t, s.Vials().CreateBatch(context.Background(), []model.Vial{v}))
	return v
}

func TestTxManager_RollbackRestoresSnapshot(t *testing.T) {
	s := NewStore()
	v := seedVial(t, s)
	tx := NewTxManager(s)
	boom := errors.New("boom")

	hookRan := false
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		loaded, err := s.Vials().FindByIDForUpdate(ctx, "acc-1", v.ID)
		require.NoError(t, err)
		loaded.ApplyUsage(decimal.NewFromInt(1), time.Now())
		require.NoError(t, s.Vials().Update(ctx, loaded))
		transaction.AfterCommit(ctx, func() { hookRan = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	stored, err := s.Vials().FindByID(context.Background(), "acc-1", v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VialActive, stored.Status)
	assert.True(t, stored.RemainingQuantity.Equal(decimal.NewFromInt(1)))
}

func TestTxManager_PanicRollsBackAndPropagates(t *testing.T) {
	s := NewStore()
	v := seedVial(t, s)
	tx := NewTxManager(s)

	assert.Panics(t, func() {
		_ = tx.WithinTx(context.Background(), func(ctx context.Context) error {
			loaded, _ := s.Vials().FindByID(ctx, "acc-1", v.ID)
			loaded.Status = model.VialDisposed
			_ = s.Vials().Update(ctx, loaded)
			panic("handler bug")
		})
	})

	stored, err := s.Vials().FindByID(context.Background(), "acc-1", v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VialActive, stored.Status)

	// The store stays usable after the panic.
	require.NoError(t, tx.WithinTx(context.Background(), func(context.Context) error { return nil }))
}

func TestTxManager_NestedCallJoinsOuter(t *testing.T) {
	s := NewStore()
	v := seedVial(t, s)
	tx := NewTxManager(s)
	boom := errors.New("boom")

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, tx.WithinTx(ctx, func(ctx context.Context) error {
			loaded, _ := s.Vials().FindByID(ctx, "acc-1", v.ID)
			loaded.Status = model.VialQuarantined
			return s.Vials().Update(ctx, loaded)
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, _ := s.Vials().FindByID(context.Background(), "acc-1", v.ID)
	assert.Equal(t, model.VialActive, stored.Status)
}

func TestVialRepository_EnforcesInvariants(t *testing.T) {
	s := NewStore()
	v := seedVial(t, s)

	loaded, err := s.Vials().FindByID(context.Background(), "acc-1", v.ID)
	require.NoError(t, err)
	loaded.RemainingQuantity = decimal.NewFromInt(-1)
	assert.Error(t, s.Vials().Update(context.Background(), loaded))

	loaded.RemainingQuantity = decimal.Zero
	assert.Error(t, s.Vials().Update(context.Background(), loaded), "empty ACTIVE vial")

	other := *loaded
	other.AccountID = "acc-2"
	other.RemainingQuantity = decimal.NewFromInt(1)
	assert.Error(t, s.Vials().Update(context.Background(), &other), "vial of another account")
}

func TestVialRepository_ReadsAreCopies(t *testing.T) {
	s := NewStore()
	v := seedVial(t, s)

	loaded, err := s.Vials().FindByID(context.Background(), "acc-1", v.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Product)
	assert.Equal(t, "Juvederm", loaded.Product.Name)
	loaded.Status = model.VialDisposed

	again, _ := s.Vials().FindByID(context.Background(), "acc-1", v.ID)
	assert.Equal(t, model.VialActive, again.Status)

	missing, err := s.Vials().FindByID(context.Background(), "acc-2", v.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountRepository_EmailIsUnique(t *testing.T) {
	s := NewStore()
	repo := s.Accounts()
	require.NoError(t, repo.CreateUser(context.Background(), &model.User{BaseModel: model.BaseModel{ID: "u-1"}, AccountID: "a-1", Email: "x@y.test"}))
	err := repo.CreateUser(context.Background(), &model.User{BaseModel: model.BaseModel{ID: "u-2"}, AccountID: "a-2", Email: "X@y.test"})
	assert.ErrorIs(t, err, account.ErrEmailTaken)
}
