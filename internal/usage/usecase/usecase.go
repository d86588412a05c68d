package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/vialtrack-service/internal/alert"
	"github.com/fekuna/vialtrack-service/internal/audit"
	auditdto "github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/fekuna/vialtrack-service/internal/provider"
	"github.com/fekuna/vialtrack-service/internal/usage"
	"github.com/fekuna/vialtrack-service/internal/usage/dto"
	"github.com/fekuna/vialtrack-service/internal/vial"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// quantityScale matches the NUMERIC(12,3) columns.
const quantityScale = 3

var (
	ErrVialNotFound          = apperror.NotFound("vial not found")
	ErrVialNotActive         = apperror.Conflict("vial is not active")
	ErrInvalidQuantity       = apperror.Validation("invalid quantity")
	ErrInsufficientRemaining = apperror.New(apperror.KindConflict, "insufficient_quantity", "insufficient remaining quantity")
	ErrProviderNotFound      = apperror.NotFound("provider not found")
)

type usageUseCase struct {
	repo      usage.Repository
	vials     vial.Repository
	providers provider.Repository
	tx        transaction.Manager
	audit     audit.Recorder
	alerts    alert.Invalidator
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewUsageUseCase(
	repo usage.Repository,
	vials vial.Repository,
	providers provider.Repository,
	tx transaction.Manager,
	rec audit.Recorder,
	alerts alert.Invalidator,
	log logger.ZapLogger,
) usage.UseCase {
	return &usageUseCase{
		repo:      repo,
		vials:     vials,
		providers: providers,
		tx:        tx,
		audit:     rec,
		alerts:    alerts,
		logger:    log,
		now:       time.Now,
	}
}

// RecordUsage depletes a vial. The vial row is locked for the whole
// read-check-write so concurrent usage against one vial is linearized.
func (uc *usageUseCase) RecordUsage(ctx context.Context, input *dto.RecordUsageInput) (*model.UsageLog, error) {
	patientRef, treatmentArea, notes, err := normalizeText(input)
	if err != nil {
		return nil, err
	}
	qty := input.QuantityUsed

	var result *model.UsageLog
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// 1. Vial exists in account
		v, err := uc.vials.FindByIDForUpdate(ctx, input.AccountID, input.VialID)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrVialNotFound
		}

		// 2. Status is the authoritative gate
		if v.Status != model.VialActive {
			return ErrVialNotActive
		}

		// 3. Positive quantity
		if qty.Sign() <= 0 || !qty.Equal(qty.Round(quantityScale)) {
			return ErrInvalidQuantity
		}

		// 4. Enough left, against the locked row
		if qty.GreaterThan(v.RemainingQuantity) {
			return ErrInsufficientRemaining.WithMessage("only %s %s remaining", v.RemainingQuantity.String(), unitLabel(v))
		}

		// 5. Provider in account
		var p *model.Provider
		if input.ProviderID != nil {
			p, err = uc.providers.FindByID(ctx, input.AccountID, *input.ProviderID)
			if err != nil {
				return err
			}
			if p == nil {
				return ErrProviderNotFound
			}
		}

		// 6. Write usage, vial and audit
		now := uc.now()
		log := &model.UsageLog{
			ID:               uuid.New().String(),
			AccountID:        input.AccountID,
			VialID:           v.ID,
			ProviderID:       input.ProviderID,
			LoggedByID:       input.UserID,
			QuantityUsed:     qty,
			PatientReference: patientRef,
			TreatmentArea:    treatmentArea,
			Notes:            notes,
			UsedAt:           now,
		}
		if err := uc.repo.Create(ctx, log); err != nil {
			return err
		}

		depleted := v.ApplyUsage(qty, now)
		if err := uc.vials.Update(ctx, v); err != nil {
			return err
		}

		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:  input.AccountID,
			Action:     model.AuditUsageLogged,
			EntityType: model.EntityVial,
			EntityID:   v.ID,
			ActorType:  model.ActorUser,
			UserID:     &input.UserID,
			Description: fmt.Sprintf("Logged %s %s usage from %s (Lot: %s)",
				qty.String(), unitLabel(v), productName(v), v.LotNumber),
			Metadata: model.Metadata{
				"usageId":           log.ID,
				"productName":       productName(v),
				"lotNumber":         v.LotNumber,
				"quantityUsed":      qty.String(),
				"remainingQuantity": v.RemainingQuantity.String(),
				"providerId":        input.ProviderID,
				"patientRef":        patientRef,
				"depleted":          depleted,
			},
		}); err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, input.AccountID)

		log.Vial = v
		log.Provider = p
		result = log
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) != apperror.KindInternal {
			return nil, err
		}
		uc.logger.Error("failed to record usage",
			zap.String("account_id", input.AccountID),
			zap.String("vial_id", input.VialID),
			zap.Error(err),
		)
		return nil, apperror.Internal(err)
	}
	return result, nil
}

func (uc *usageUseCase) ListUsage(ctx context.Context, filters *dto.UsageFilters) ([]model.UsageLog, error) {
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, apperror.Validation("from must not be after to")
	}
	filters.Normalize()

	logs, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		uc.logger.Error("failed to list usage", zap.String("account_id", filters.AccountID), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return logs, nil
}

// normalizeText trims the optional free-text fields, dropping empty ones.
func normalizeText(input *dto.RecordUsageInput) (patientRef, treatmentArea, notes *string, err error) {
	if patientRef, err = optional(input.PatientRef, "patient reference", dto.MaxPatientRef); err != nil {
		return nil, nil, nil, err
	}
	if treatmentArea, err = optional(input.TreatmentArea, "treatment area", dto.MaxTreatmentArea); err != nil {
		return nil, nil, nil, err
	}
	if notes, err = optional(input.Notes, "notes", dto.MaxNotes); err != nil {
		return nil, nil, nil, err
	}
	return patientRef, treatmentArea, notes, nil
}

func optional(s *string, field string, max int) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > max {
		return nil, apperror.Validation(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return &v, nil
}

func unitLabel(v *model.Vial) string {
	if v.Product == nil {
		return "units"
	}
	return v.Product.UnitType.Label()
}

func productName(v *model.Vial) string {
	if v.Product == nil {
		return ""
	}
	return v.Product.Name
}
