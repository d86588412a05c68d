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
	"github.com/fekuna/vialtrack-service/internal/discrepancy"
	"github.com/fekuna/vialtrack-service/internal/discrepancy/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/fekuna/vialtrack-service/internal/vial"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDiscrepancyNotFound = apperror.NotFound("discrepancy not found")
	ErrVialNotFound        = apperror.NotFound("vial not found")
	ErrInvalidTransition   = apperror.New(apperror.KindConflict, "invalid_status_transition", "invalid status transition")
)

type discrepancyUseCase struct {
	repo   discrepancy.Repository
	vials  vial.Repository
	tx     transaction.Manager
	audit  audit.Recorder
	alerts alert.Invalidator
	logger logger.ZapLogger
	now    func() time.Time
}

func NewDiscrepancyUseCase(
	repo discrepancy.Repository,
	vials vial.Repository,
	tx transaction.Manager,
	rec audit.Recorder,
	alerts alert.Invalidator,
	log logger.ZapLogger,
) discrepancy.UseCase {
	return &discrepancyUseCase{
		repo:   repo,
		vials:  vials,
		tx:     tx,
		audit:  rec,
		alerts: alerts,
		logger: log,
		now:    time.Now,
	}
}

func (uc *discrepancyUseCase) CreateDiscrepancy(ctx context.Context, input *dto.CreateDiscrepancyInput) (*model.Discrepancy, error) {
	// 1. Validate
	dType := model.DiscrepancyType(input.Type)
	if !dType.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown discrepancy type %q", input.Type))
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperror.Validation("description is required")
	}
	if utf8.RuneCountInString(description) > dto.MaxDescription {
		return nil, apperror.Validation(fmt.Sprintf("description must be at most %d characters", dto.MaxDescription))
	}

	var created *model.Discrepancy
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// 2. Vial, when given, belongs to the account
		var v *model.Vial
		if input.VialID != nil {
			var err error
			v, err = uc.vials.FindByID(ctx, input.AccountID, *input.VialID)
			if err != nil {
				return err
			}
			if v == nil {
				return ErrVialNotFound
			}
		}

		// 3. Persist with audit
		d := &model.Discrepancy{
			ID:          uuid.New().String(),
			AccountID:   input.AccountID,
			VialID:      input.VialID,
			Type:        dType,
			Description: description,
			Status:      model.DiscrepancyOpen,
			CreatedByID: &input.UserID,
			CreatedAt:   uc.now(),
		}
		if err := uc.repo.Create(ctx, d); err != nil {
			return err
		}

		metadata := model.Metadata{"type": d.Type, "vialId": d.VialID}
		if v != nil {
			metadata["lotNumber"] = v.LotNumber
		}
		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditDiscrepancyCreated,
			EntityType:  model.EntityDiscrepancy,
			EntityID:    d.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Reported %s discrepancy: %s", d.Type, d.Description),
			Metadata:    metadata,
		}); err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, input.AccountID)
		created = d
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to create discrepancy", input.AccountID, err)
	}
	return created, nil
}

func (uc *discrepancyUseCase) UpdateStatus(ctx context.Context, input *dto.UpdateStatusInput) (*model.Discrepancy, error) {
	target := model.DiscrepancyStatus(input.Status)
	if !target.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown discrepancy status %q", input.Status))
	}
	var notes *string
	if input.Notes != nil {
		n := strings.TrimSpace(*input.Notes)
		if utf8.RuneCountInString(n) > dto.MaxNotes {
			return nil, apperror.Validation(fmt.Sprintf("notes must be at most %d characters", dto.MaxNotes))
		}
		if n != "" {
			notes = &n
		}
	}

	var updated *model.Discrepancy
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := uc.repo.FindByIDForUpdate(ctx, input.AccountID, input.ID)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrDiscrepancyNotFound
		}
		from := d.Status
		if !from.CanTransitionTo(target) {
			return ErrInvalidTransition.WithMessage("cannot change discrepancy status from %s to %s", from, target)
		}

		d.Status = target
		if notes != nil {
			d.ResolutionNotes = notes
		}
		if !target.IsOpen() {
			now := uc.now()
			d.ResolvedAt = &now
			d.ResolvedByID = &input.UserID
		}
		if err := uc.repo.Update(ctx, d); err != nil {
			return err
		}

		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      target.TransitionAction(),
			EntityType:  model.EntityDiscrepancy,
			EntityID:    d.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Discrepancy moved from %s to %s", from, target),
			Metadata: model.Metadata{
				"type":       d.Type,
				"fromStatus": from,
				"toStatus":   target,
				"notes":      notes,
			},
		}); err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, input.AccountID)
		updated = d
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to update discrepancy", input.AccountID, err)
	}
	return updated, nil
}

// Detect flags ACTIVE vials that are past their expiration date or, once
// opened, past their beyond-use window. Vials that already carry an open
// discrepancy of the same type are skipped, so repeated passes are idempotent.
func (uc *discrepancyUseCase) Detect(ctx context.Context, accountID, userID string) (*dto.DetectResult, error) {
	var result *dto.DetectResult
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		res := &dto.DetectResult{Created: []model.Discrepancy{}}

		if err := uc.repo.LockAccount(ctx, accountID); err != nil {
			return err
		}
		active, err := uc.vials.FindActive(ctx, accountID)
		if err != nil {
			return err
		}
		openExpired, err := uc.repo.OpenVialIDs(ctx, accountID, model.DiscrepancyExpiredActive)
		if err != nil {
			return err
		}
		openBUD, err := uc.repo.OpenVialIDs(ctx, accountID, model.DiscrepancyBeyondUseExceeded)
		if err != nil {
			return err
		}

		now := uc.now()
		for i := range active {
			v := &active[i]
			if v.ExpirationDate.Before(now) {
				if openExpired[v.ID] {
					res.Skipped++
				} else {
					desc := fmt.Sprintf("Vial %s (lot %s) expired on %s but is still active",
						productName(v), v.LotNumber, v.ExpirationDate.Format("2006-01-02"))
					d, err := uc.flag(ctx, accountID, userID, v, model.DiscrepancyExpiredActive, desc, now)
					if err != nil {
						return err
					}
					res.Created = append(res.Created, *d)
					res.ExpiredActive++
				}
			}
			if bud := v.BeyondUseExpiry(); bud != nil && bud.Before(now) {
				if openBUD[v.ID] {
					res.Skipped++
				} else {
					desc := fmt.Sprintf("Vial %s (lot %s) passed its beyond-use time at %s",
						productName(v), v.LotNumber, bud.Format(time.RFC3339))
					d, err := uc.flag(ctx, accountID, userID, v, model.DiscrepancyBeyondUseExceeded, desc, now)
					if err != nil {
						return err
					}
					res.Created = append(res.Created, *d)
					res.BeyondUseExceeded++
				}
			}
		}

		if len(res.Created) > 0 {
			alert.InvalidateAfterCommit(ctx, uc.alerts, accountID)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to detect discrepancies", accountID, err)
	}

	uc.logger.Info("discrepancy detection finished",
		zap.String("account_id", accountID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// flag records a system-detected discrepancy against v.
func (uc *discrepancyUseCase) flag(ctx context.Context, accountID, userID string, v *model.Vial, t model.DiscrepancyType, desc string, now time.Time) (*model.Discrepancy, error) {
	vialID := v.ID
	d := &model.Discrepancy{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		VialID:      &vialID,
		Type:        t,
		Description: desc,
		Status:      model.DiscrepancyOpen,
		CreatedAt:   now,
	}
	if err := uc.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	if _, err := uc.audit.Record(ctx, &auditdto.Entry{
		AccountID:   accountID,
		Action:      model.AuditDiscrepancyCreated,
		EntityType:  model.EntityDiscrepancy,
		EntityID:    d.ID,
		ActorType:   model.ActorSystem,
		Description: desc,
		Metadata: model.Metadata{
			"type":        t,
			"vialId":      v.ID,
			"lotNumber":   v.LotNumber,
			"triggeredBy": userID,
		},
	}); err != nil {
		return nil, err
	}
	return d, nil
}

func (uc *discrepancyUseCase) ListDiscrepancies(ctx context.Context, filters *dto.DiscrepancyFilters) ([]model.Discrepancy, error) {
	if filters.Status != "" && !model.DiscrepancyStatus(filters.Status).Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown discrepancy status %q", filters.Status))
	}
	if filters.Type != "" && !model.DiscrepancyType(filters.Type).Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown discrepancy type %q", filters.Type))
	}
	discrepancies, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, uc.fail("failed to list discrepancies", filters.AccountID, err)
	}
	return discrepancies, nil
}

func (uc *discrepancyUseCase) fail(msg, accountID string, err error) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	uc.logger.Error(msg, zap.String("account_id", accountID), zap.Error(err))
	return apperror.Internal(err)
}

func productName(v *model.Vial) string {
	if v.Product == nil {
		return ""
	}
	return v.Product.Name
}
