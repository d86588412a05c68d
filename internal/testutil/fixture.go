// Package testutil seeds an in-memory ledger for use-case tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/vialtrack-service/internal/audit"
	auditdto "github.com/fekuna/vialtrack-service/internal/audit/dto"
	auditUCPkg "github.com/fekuna/vialtrack-service/internal/audit/usecase"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/store/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Env is one seeded clinic: an account with an owner, one product, one
// location and one provider.
type Env struct {
	Store     *memory.Store
	Tx        *memory.TxManager
	Audit     audit.UseCase
	Alerts    *Invalidations
	Logger    logger.ZapLogger
	Now       time.Time
	AccountID string
	UserID    string
	Product   model.Product
	Location  model.Location
	Provider  model.Provider
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	s := memory.NewStore()
	log := logger.NewNop()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	e := &Env{
		Store:  s,
		Tx:     memory.NewTxManager(s),
		Audit:  auditUCPkg.NewAuditUseCase(s.Audit(), nil, log),
		Alerts: &Invalidations{},
		Logger: log,
		Now:    now,
	}
	e.AccountID, e.UserID = e.SeedAccount(t, "Glow Aesthetics", "owner@glow.test")

	beyondUse := 24
	e.Product = model.Product{
		BaseModel:        model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		AccountID:        e.AccountID,
		Name:             "Botox",
		Brand:            "Allergan",
		Category:         model.CategoryNeurotoxin,
		UnitType:         model.UnitUnits,
		UnitsPerVial:     decimal.NewFromInt(100),
		ReorderThreshold: 2,
		BeyondUseHours:   &beyondUse,
		IsActive:         true,
	}
	require.NoError(t, s.Products().Create(context.Background(), &e.Product))

	e.Location = model.Location{
		ID:        uuid.New().String(),
		AccountID: e.AccountID,
		Name:      "Fridge A",
		Type:      model.LocationFridge,
		CreatedAt: now,
	}
	require.NoError(t, s.Locations().Create(context.Background(), &e.Location))

	e.Provider = model.Provider{
		ID:        uuid.New().String(),
		AccountID: e.AccountID,
		Name:      "Dana Reyes",
		Initials:  "DR",
		IsActive:  true,
		CreatedAt: now,
	}
	require.NoError(t, s.Providers().Create(context.Background(), &e.Provider))
	return e
}

// SeedAccount creates an account with an active owner and returns both ids.
func (e *Env) SeedAccount(t *testing.T, clinic, email string) (accountID, userID string) {
	t.Helper()
	ctx := context.Background()
	acc := &model.Account{
		BaseModel:          model.BaseModel{ID: uuid.New().String(), CreatedAt: e.Now, UpdatedAt: e.Now},
		ClinicName:         clinic,
		Plan:               model.PlanTrial,
		SubscriptionStatus: model.SubscriptionTrial,
	}
	require.NoError(t, e.Store.Accounts().CreateAccount(ctx, acc))
	user := &model.User{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: e.Now, UpdatedAt: e.Now},
		AccountID: acc.ID,
		Email:     email,
		Name:      "Test Owner",
		Role:      model.RoleOwner,
		IsActive:  true,
	}
	require.NoError(t, e.Store.Accounts().CreateUser(ctx, user))
	return acc.ID, user.ID
}

// SeedVial stores an ACTIVE vial of the env product, adjusted by mutate.
func (e *Env) SeedVial(t *testing.T, mutate func(v *model.Vial)) model.Vial {
	t.Helper()
	locationID := e.Location.ID
	v := model.Vial{
		BaseModel:         model.BaseModel{ID: uuid.New().String(), CreatedAt: e.Now, UpdatedAt: e.Now},
		AccountID:         e.AccountID,
		ProductID:         e.Product.ID,
		LocationID:        &locationID,
		LotNumber:         "LOT-A1",
		ExpirationDate:    e.Now.AddDate(0, 6, 0),
		InitialQuantity:   e.Product.UnitsPerVial,
		RemainingQuantity: e.Product.UnitsPerVial,
		Status:            model.VialActive,
	}
	if mutate != nil {
		mutate(&v)
	}
	require.NoError(t, e.Store.Vials().CreateBatch(context.Background(), []model.Vial{v}))
	return v
}

// Vial reloads a vial from the store.
func (e *Env) Vial(t *testing.T, id string) *model.Vial {
	t.Helper()
	v, err := e.Store.Vials().FindByID(context.Background(), e.AccountID, id)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}

// AuditLogs returns the account's audit rows, newest first.
func (e *Env) AuditLogs(t *testing.T) []model.AuditLog {
	t.Helper()
	logs, _, err := e.Store.Audit().FindAll(context.Background(), &auditdto.AuditFilters{AccountID: e.AccountID})
	require.NoError(t, err)
	return logs
}

// Clock returns a time source fixed at Now.
func (e *Env) Clock() func() time.Time {
	return func() time.Time { return e.Now }
}

// Invalidations records dashboard invalidation requests per account.
type Invalidations struct {
	mu     sync.Mutex
	counts map[string]int
}

func (i *Invalidations) Invalidate(_ context.Context, accountID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.counts == nil {
		i.counts = map[string]int{}
	}
	i.counts[accountID]++
}

func (i *Invalidations) Count(accountID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.counts[accountID]
}
