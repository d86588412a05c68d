package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/testutil"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestUseCase(env *testutil.Env) *vialUseCase {
	uc := NewVialUseCase(
		env.Store.Vials(),
		env.Store.Products(),
		env.Store.Locations(),
		env.Tx,
		env.Audit,
		env.Alerts,
		env.Logger,
	).(*vialUseCase)
	uc.now = env.Clock()
	return uc
}

func TestIntake_CreatesOneRowPerVial(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	locationID := env.Location.ID

	vials, err := uc.Intake(context.Background(), env.AccountID, env.UserID, []dto.IntakeEntry{{
		ProductID:      env.Product.ID,
		LotNumber:      " C123 ",
		ExpirationDate: env.Now.AddDate(1, 0, 0),
		Quantity:       3,
		LocationID:     &locationID,
	}})
	require.NoError(t, err)
	require.Len(t, vials, 3)

	for _, v := range vials {
		assert.Equal(t, "C123", v.LotNumber)
		assert.Equal(t, model.VialActive, v.Status)
		assert.True(t, v.InitialQuantity.Equal(env.Product.UnitsPerVial))
		assert.True(t, v.RemainingQuantity.Equal(env.Product.UnitsPerVial))
		assert.Nil(t, v.OpenedAt)
		require.NotNil(t, v.Location)
		assert.Equal(t, "Fridge A", v.Location.Name)
		env.Vial(t, v.ID)
	}

	audits := env.AuditLogs(t)
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditVialReceived, audits[0].Action)
	assert.Equal(t, 3, audits[0].Metadata["vialsCreated"])
	assert.Equal(t, vials[0].ID, *audits[0].EntityID)
	assert.Equal(t, 1, env.Alerts.Count(env.AccountID))
}

func TestIntake_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	future := env.Now.AddDate(0, 3, 0)
	otherLocation := "3b1f9a0e-5a6b-4c4d-9e2f-0a1b2c3d4e5f"

	inactive := env.Product
	inactive.ID = "7d0c5b7e-0000-4000-8000-000000000001"
	inactive.Name = "Retired Filler"
	inactive.IsActive = false
	require.NoError(t, env.Store.Products().Create(context.Background(), &inactive))

	entry := func(mutate func(e *dto.IntakeEntry)) []dto.IntakeEntry {
		e := dto.IntakeEntry{ProductID: env.Product.ID, LotNumber: "L1", ExpirationDate: future, Quantity: 1}
		mutate(&e)
		return []dto.IntakeEntry{e}
	}

	tests := []struct {
		name     string
		entries  []dto.IntakeEntry
		wantKind apperror.Kind
		wantMsg  string
	}{
		{"empty batch", nil, apperror.KindValidation, "at least one vial is required"},
		{"missing lot", entry(func(e *dto.IntakeEntry) { e.LotNumber = "  " }), apperror.KindValidation, "vials[0]: lot number is required"},
		{"zero quantity", entry(func(e *dto.IntakeEntry) { e.Quantity = 0 }), apperror.KindValidation, "vials[0]: quantity must be between 1 and 100"},
		{"too many", entry(func(e *dto.IntakeEntry) { e.Quantity = 101 }), apperror.KindValidation, "vials[0]: quantity must be between 1 and 100"},
		{"no expiration", entry(func(e *dto.IntakeEntry) { e.ExpirationDate = time.Time{} }), apperror.KindValidation, "vials[0]: expiration date is required"},
		{"unknown product", entry(func(e *dto.IntakeEntry) { e.ProductID = otherLocation }), apperror.KindNotFound, "product not found"},
		{"unknown location", entry(func(e *dto.IntakeEntry) { e.LocationID = &otherLocation }), apperror.KindNotFound, "location not found"},
		{"inactive product", entry(func(e *dto.IntakeEntry) { e.ProductID = inactive.ID }), apperror.KindValidation, "product Retired Filler is inactive and cannot receive stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Intake(context.Background(), env.AccountID, env.UserID, tt.entries)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))
			assert.Equal(t, tt.wantMsg, apperror.MessageOf(err))
		})
	}

	all, count, err := env.Store.Vials().FindAll(context.Background(), &dto.VialFilters{AccountID: env.AccountID})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, all)
	assert.Empty(t, env.AuditLogs(t))
}

func TestIntake_OtherAccountProductIsNotFound(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	otherAccount, otherUser := env.SeedAccount(t, "Other Clinic", "other@clinic.test")

	_, err := uc.Intake(context.Background(), otherAccount, otherUser, []dto.IntakeEntry{{
		ProductID:      env.Product.ID,
		LotNumber:      "X",
		ExpirationDate: env.Now.AddDate(0, 1, 0),
		Quantity:       1,
	}})
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestChangeStatus_DisposeKeepsRemaining(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	v := env.SeedVial(t, func(v *model.Vial) { v.RemainingQuantity = decimal.NewFromInt(7) })

	updated, err := uc.ChangeStatus(context.Background(), &dto.ChangeStatusInput{
		AccountID: env.AccountID,
		UserID:    env.UserID,
		VialID:    v.ID,
		Status:    "DISPOSED",
		Reason:    "dropped on floor",
	})
	require.NoError(t, err)
	assert.Equal(t, model.VialDisposed, updated.Status)

	stored := env.Vial(t, v.ID)
	assert.Equal(t, model.VialDisposed, stored.Status)
	assert.True(t, stored.RemainingQuantity.Equal(decimal.NewFromInt(7)))
	require.NotNil(t, stored.StatusReason)
	assert.Equal(t, "dropped on floor", *stored.StatusReason)

	audits := env.AuditLogs(t)
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditVialDisposed, audits[0].Action)
	assert.Equal(t, "dropped on floor", audits[0].Metadata["reason"])
}

func TestChangeStatus_Transitions(t *testing.T) {
	tests := []struct {
		from       model.VialStatus
		to         string
		wantAction model.AuditAction
		wantKind   apperror.Kind
	}{
		{model.VialActive, "QUARANTINED", model.AuditVialQuarantined, 0},
		{model.VialActive, "EXPIRED", model.AuditVialExpired, 0},
		{model.VialQuarantined, "ACTIVE", model.AuditVialReleased, 0},
		{model.VialQuarantined, "DISPOSED", model.AuditVialDisposed, 0},
		{model.VialActive, "ACTIVE", "", apperror.KindConflict},
		{model.VialExpired, "ACTIVE", "", apperror.KindConflict},
		{model.VialDisposed, "QUARANTINED", "", apperror.KindConflict},
		{model.VialActive, "DEPLETED", "", apperror.KindValidation},
		{model.VialActive, "LOST", "", apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			env := testutil.NewEnv(t)
			uc := newTestUseCase(env)
			v := env.SeedVial(t, func(v *model.Vial) { v.Status = tt.from })

			_, err := uc.ChangeStatus(context.Background(), &dto.ChangeStatusInput{
				AccountID: env.AccountID,
				UserID:    env.UserID,
				VialID:    v.ID,
				Status:    tt.to,
				Reason:    "cycle count",
			})

			if tt.wantAction == "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperror.KindOf(err))
				assert.Equal(t, tt.from, env.Vial(t, v.ID).Status)
				assert.Empty(t, env.AuditLogs(t))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.VialStatus(tt.to), env.Vial(t, v.ID).Status)
			audits := env.AuditLogs(t)
			require.Len(t, audits, 1)
			assert.Equal(t, tt.wantAction, audits[0].Action)
		})
	}
}

func TestChangeStatus_RequiresReason(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	v := env.SeedVial(t, nil)

	_, err := uc.ChangeStatus(context.Background(), &dto.ChangeStatusInput{
		AccountID: env.AccountID, UserID: env.UserID, VialID: v.ID, Status: "DISPOSED", Reason: "   ",
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestChangeStatus_ReasonLimitCountsCharacters(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	v := env.SeedVial(t, nil)

	reason := strings.Repeat("温", dto.MaxReasonLength)
	updated, err := uc.ChangeStatus(context.Background(), &dto.ChangeStatusInput{
		AccountID: env.AccountID, UserID: env.UserID, VialID: v.ID, Status: "QUARANTINED", Reason: reason,
	})
	require.NoError(t, err)
	assert.Equal(t, model.VialQuarantined, updated.Status)

	_, err = uc.ChangeStatus(context.Background(), &dto.ChangeStatusInput{
		AccountID: env.AccountID, UserID: env.UserID, VialID: v.ID, Status: "DISPOSED", Reason: reason + "温",
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestOpenVial(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	v := env.SeedVial(t, nil)

	opened, err := uc.OpenVial(context.Background(), env.AccountID, env.UserID, v.ID)
	require.NoError(t, err)
	require.NotNil(t, opened.OpenedAt)
	assert.True(t, opened.OpenedAt.Equal(env.Now))
	require.NotNil(t, opened.BeyondUseExpiry())
	assert.True(t, opened.BeyondUseExpiry().Equal(env.Now.Add(24*time.Hour)))

	audits := env.AuditLogs(t)
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditVialOpened, audits[0].Action)
	assert.Equal(t, env.Now.Add(24*time.Hour).Format(time.RFC3339), audits[0].Metadata["beyondUseExpiry"])

	_, err = uc.OpenVial(context.Background(), env.AccountID, env.UserID, v.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	quarantined := env.SeedVial(t, func(v *model.Vial) { v.Status = model.VialQuarantined })
	_, err = uc.OpenVial(context.Background(), env.AccountID, env.UserID, quarantined.ID)
	assert.True(t, errors.Is(err, ErrVialNotActive))
}

func TestMoveVial(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	v := env.SeedVial(t, nil)

	cabinet := model.Location{ID: "5f0e4b8a-1111-4222-8333-444455556666", AccountID: env.AccountID, Name: "Cabinet 2", Type: model.LocationCabinet}
	require.NoError(t, env.Store.Locations().Create(context.Background(), &cabinet))

	moved, err := uc.MoveVial(context.Background(), &dto.MoveVialInput{
		AccountID: env.AccountID, UserID: env.UserID, VialID: v.ID, LocationID: &cabinet.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cabinet 2", moved.Location.Name)
	assert.Equal(t, cabinet.ID, *env.Vial(t, v.ID).LocationID)

	audits := env.AuditLogs(t)
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditAdjustmentMade, audits[0].Action)

	_, err = uc.MoveVial(context.Background(), &dto.MoveVialInput{
		AccountID: env.AccountID, UserID: env.UserID, VialID: v.ID, LocationID: &cabinet.ID,
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	unplaced, err := uc.MoveVial(context.Background(), &dto.MoveVialInput{
		AccountID: env.AccountID, UserID: env.UserID, VialID: v.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, unplaced.LocationID)

	disposed := env.SeedVial(t, func(v *model.Vial) { v.Status = model.VialDisposed })
	_, err = uc.MoveVial(context.Background(), &dto.MoveVialInput{
		AccountID: env.AccountID, UserID: env.UserID, VialID: disposed.ID, LocationID: &cabinet.ID,
	})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestListVials_Filters(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	soon := env.SeedVial(t, func(v *model.Vial) {
		v.LotNumber = "SOON-1"
		v.ExpirationDate = env.Now.AddDate(0, 0, 5)
	})
	env.SeedVial(t, func(v *model.Vial) {
		v.LotNumber = "LATER-1"
		v.ExpirationDate = env.Now.AddDate(0, 2, 0)
	})
	env.SeedVial(t, func(v *model.Vial) {
		v.LotNumber = "SOON-2"
		v.ExpirationDate = env.Now.AddDate(0, 0, 3)
		v.Status = model.VialQuarantined
	})
	env.SeedVial(t, func(v *model.Vial) {
		v.LotNumber = "PAST-1"
		v.ExpirationDate = env.Now.AddDate(0, 0, -1)
	})

	days := 30
	vials, total, err := uc.ListVials(context.Background(), &dto.VialFilters{AccountID: env.AccountID, ExpiringWithinDays: &days})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, vials, 1)
	assert.Equal(t, soon.ID, vials[0].ID)

	vials, total, err = uc.ListVials(context.Background(), &dto.VialFilters{AccountID: env.AccountID, LotNumber: "soon"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "SOON-2", vials[0].LotNumber)

	_, total, err = uc.ListVials(context.Background(), &dto.VialFilters{AccountID: env.AccountID, Status: "QUARANTINED"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	vials, total, err = uc.ListVials(context.Background(), &dto.VialFilters{AccountID: env.AccountID, PageSize: 3, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, vials, 1)

	bad := 0
	_, _, err = uc.ListVials(context.Background(), &dto.VialFilters{AccountID: env.AccountID, ExpiringWithinDays: &bad})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	_, _, err = uc.ListVials(context.Background(), &dto.VialFilters{AccountID: env.AccountID, Status: "LOST"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestSummary_UsesPerProductThreshold(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	env.SeedVial(t, func(v *model.Vial) { v.RemainingQuantity = decimal.NewFromInt(40) })
	env.SeedVial(t, func(v *model.Vial) { v.Status = model.VialQuarantined })

	summary, err := uc.Summary(context.Background(), env.AccountID)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 1, summary[0].ActiveVials)
	assert.True(t, summary[0].TotalRemaining.Equal(decimal.NewFromInt(40)))
	assert.True(t, summary[0].LowStock)

	env.SeedVial(t, nil)
	summary, err = uc.Summary(context.Background(), env.AccountID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary[0].ActiveVials)
	assert.False(t, summary[0].LowStock)
}

func TestLabel(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	opened := env.Now.Add(-2 * time.Hour)
	v := env.SeedVial(t, func(v *model.Vial) { v.OpenedAt = &opened })

	label, err := uc.Label(context.Background(), env.AccountID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Botox", label.ProductName)
	assert.Equal(t, "Allergan", label.Brand)
	assert.Equal(t, "units", label.UnitLabel)
	require.NotNil(t, label.LocationName)
	assert.Equal(t, "Fridge A", *label.LocationName)
	require.NotNil(t, label.BeyondUseExpiry)
	assert.True(t, label.BeyondUseExpiry.Equal(opened.Add(24*time.Hour)))

	_, err = uc.Label(context.Background(), env.AccountID, "not-a-vial")
	assert.True(t, errors.Is(err, ErrVialNotFound))
}

func TestExport_WritesWorkbook(t *testing.T) {
	env := testutil.NewEnv(t)
	uc := newTestUseCase(env)
	v := env.SeedVial(t, func(v *model.Vial) { v.LotNumber = "EXP-9" })
	env.SeedVial(t, func(v *model.Vial) { v.Status = model.VialDisposed })

	var buf bytes.Buffer
	require.NoError(t, uc.Export(context.Background(), &dto.VialFilters{AccountID: env.AccountID, Status: "ACTIVE"}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, v.ID, rows[1][0])
	assert.Equal(t, "Botox", rows[1][1])
	assert.Equal(t, "EXP-9", rows[1][3])
	assert.Equal(t, "ACTIVE", rows[1][5])
	assert.Equal(t, "100", rows[1][6])
	assert.Equal(t, "Fridge A", rows[1][9])
}
