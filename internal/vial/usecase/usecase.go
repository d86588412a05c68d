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
	"github.com/fekuna/vialtrack-service/internal/location"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/fekuna/vialtrack-service/internal/product"
	"github.com/fekuna/vialtrack-service/internal/vial"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrVialNotFound     = apperror.NotFound("vial not found")
	ErrProductNotFound  = apperror.NotFound("product not found")
	ErrLocationNotFound = apperror.NotFound("location not found")
	ErrVialNotActive    = apperror.Conflict("vial is not active")
	ErrInvalidStatus    = apperror.New(apperror.KindConflict, "invalid_status_transition", "invalid status transition")
)

type vialUseCase struct {
	repo      vial.Repository
	products  product.Repository
	locations location.Repository
	tx        transaction.Manager
	audit     audit.Recorder
	alerts    alert.Invalidator
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewVialUseCase(
	repo vial.Repository,
	products product.Repository,
	locations location.Repository,
	tx transaction.Manager,
	rec audit.Recorder,
	alerts alert.Invalidator,
	log logger.ZapLogger,
) vial.UseCase {
	return &vialUseCase{
		repo:      repo,
		products:  products,
		locations: locations,
		tx:        tx,
		audit:     rec,
		alerts:    alerts,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *vialUseCase) Intake(ctx context.Context, accountID, userID string, entries []dto.IntakeEntry) ([]model.Vial, error) {
	// 1. Validate payload before touching the store
	entries, err := normalizeEntries(entries)
	if err != nil {
		return nil, err
	}
	productIDs, locationIDs := distinctIDs(entries)

	var created []model.Vial
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// 2. Resolve products and locations within the account
		products, err := uc.products.FindByIDs(ctx, accountID, productIDs)
		if err != nil {
			return err
		}
		if len(products) != len(productIDs) {
			return ErrProductNotFound
		}
		productMap := make(map[string]*model.Product, len(products))
		for i := range products {
			p := &products[i]
			if !p.IsActive {
				return apperror.Validation(fmt.Sprintf("product %s is inactive and cannot receive stock", p.Name))
			}
			productMap[p.ID] = p
		}

		locationMap := map[string]*model.Location{}
		if len(locationIDs) > 0 {
			locations, err := uc.locations.FindByIDs(ctx, accountID, locationIDs)
			if err != nil {
				return err
			}
			if len(locations) != len(locationIDs) {
				return ErrLocationNotFound
			}
			for i := range locations {
				locationMap[locations[i].ID] = &locations[i]
			}
		}

		// 3. One row per physical vial
		now := uc.now()
		vials := make([]model.Vial, 0, totalQuantity(entries))
		for _, e := range entries {
			p := productMap[e.ProductID]
			for i := 0; i < e.Quantity; i++ {
				vials = append(vials, model.Vial{
					BaseModel:         model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
					AccountID:         accountID,
					ProductID:         p.ID,
					LocationID:        e.LocationID,
					LotNumber:         e.LotNumber,
					ExpirationDate:    e.ExpirationDate,
					InitialQuantity:   p.UnitsPerVial,
					RemainingQuantity: p.UnitsPerVial,
					Status:            model.VialActive,
				})
			}
		}
		if err := uc.repo.CreateBatch(ctx, vials); err != nil {
			return err
		}

		// 4. One summary audit row for the batch
		summary := make([]interface{}, 0, len(entries))
		for _, e := range entries {
			summary = append(summary, map[string]interface{}{
				"productId": e.ProductID,
				"lotNumber": e.LotNumber,
				"quantity":  e.Quantity,
			})
		}
		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   accountID,
			Action:      model.AuditVialReceived,
			EntityType:  model.EntityVial,
			EntityID:    vials[0].ID,
			ActorType:   model.ActorUser,
			UserID:      &userID,
			Description: fmt.Sprintf("Received %d vial(s)", len(vials)),
			Metadata: model.Metadata{
				"vialsCreated": len(vials),
				"entries":      summary,
			},
		}); err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, accountID)

		for i := range vials {
			vials[i].Product = productMap[vials[i].ProductID]
			if vials[i].LocationID != nil {
				vials[i].Location = locationMap[*vials[i].LocationID]
			}
		}
		created = vials
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to receive vials", accountID, "", err)
	}

	uc.logger.Info("vials received", zap.String("account_id", accountID), zap.Int("count", len(created)))
	return created, nil
}

func (uc *vialUseCase) ChangeStatus(ctx context.Context, input *dto.ChangeStatusInput) (*model.Vial, error) {
	// 1. Validate
	target := model.VialStatus(input.Status)
	if !target.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown status %q", input.Status))
	}
	if target == model.VialDepleted {
		return nil, apperror.Validation("DEPLETED is reached through usage only")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperror.Validation("reason is required")
	}
	if utf8.RuneCountInString(reason) > dto.MaxReasonLength {
		return nil, apperror.Validation(fmt.Sprintf("reason must be at most %d characters", dto.MaxReasonLength))
	}

	var result *model.Vial
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// 2. Lock and check the transition
		v, err := uc.repo.FindByIDForUpdate(ctx, input.AccountID, input.VialID)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrVialNotFound
		}
		from := v.Status
		if !from.CanTransitionTo(target) {
			return ErrInvalidStatus.WithMessage("cannot change vial status from %s to %s", from, target)
		}

		// 3. Persist; remaining quantity is untouched
		v.Status = target
		v.StatusReason = &reason
		v.UpdatedAt = uc.now()
		if err := uc.repo.Update(ctx, v); err != nil {
			return err
		}

		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      target.TransitionAction(),
			EntityType:  model.EntityVial,
			EntityID:    v.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Vial %s (lot %s) changed from %s to %s: %s", productName(v), v.LotNumber, from, target, reason),
			Metadata: model.Metadata{
				"productName":       productName(v),
				"lotNumber":         v.LotNumber,
				"fromStatus":        from,
				"toStatus":          target,
				"reason":            reason,
				"remainingQuantity": v.RemainingQuantity.String(),
			},
		}); err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, input.AccountID)
		result = v
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to change vial status", input.AccountID, input.VialID, err)
	}
	return result, nil
}

func (uc *vialUseCase) OpenVial(ctx context.Context, accountID, userID, vialID string) (*model.Vial, error) {
	var result *model.Vial
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := uc.repo.FindByIDForUpdate(ctx, accountID, vialID)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrVialNotFound
		}
		if v.Status != model.VialActive {
			return ErrVialNotActive
		}
		if v.OpenedAt != nil {
			return apperror.Conflict("vial is already opened")
		}

		now := uc.now()
		v.OpenedAt = &now
		v.UpdatedAt = now
		if err := uc.repo.Update(ctx, v); err != nil {
			return err
		}

		metadata := model.Metadata{
			"productName": productName(v),
			"lotNumber":   v.LotNumber,
		}
		if bud := v.BeyondUseExpiry(); bud != nil {
			metadata["beyondUseExpiry"] = bud.Format(time.RFC3339)
		}
		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   accountID,
			Action:      model.AuditVialOpened,
			EntityType:  model.EntityVial,
			EntityID:    v.ID,
			ActorType:   model.ActorUser,
			UserID:      &userID,
			Description: fmt.Sprintf("Opened vial %s (lot %s)", productName(v), v.LotNumber),
			Metadata:    metadata,
		}); err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, accountID)
		result = v
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to open vial", accountID, vialID, err)
	}
	return result, nil
}

func (uc *vialUseCase) MoveVial(ctx context.Context, input *dto.MoveVialInput) (*model.Vial, error) {
	var result *model.Vial
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		v, err := uc.repo.FindByIDForUpdate(ctx, input.AccountID, input.VialID)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrVialNotFound
		}
		if v.Status.IsTerminal() {
			return apperror.Conflict(fmt.Sprintf("vial is %s and cannot be moved", v.Status))
		}
		if sameLocation(v.LocationID, input.LocationID) {
			return apperror.Validation("vial is already at that location")
		}

		var to *model.Location
		if input.LocationID != nil {
			to, err = uc.locations.FindByID(ctx, input.AccountID, *input.LocationID)
			if err != nil {
				return err
			}
			if to == nil {
				return ErrLocationNotFound
			}
		}

		from := v.LocationID
		v.LocationID = input.LocationID
		v.Location = to
		v.UpdatedAt = uc.now()
		if err := uc.repo.Update(ctx, v); err != nil {
			return err
		}

		toName := "no location"
		if to != nil {
			toName = to.Name
		}
		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditAdjustmentMade,
			EntityType:  model.EntityVial,
			EntityID:    v.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Moved vial %s (lot %s) to %s", productName(v), v.LotNumber, toName),
			Metadata: model.Metadata{
				"lotNumber":      v.LotNumber,
				"fromLocationId": from,
				"toLocationId":   input.LocationID,
			},
		}); err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to move vial", input.AccountID, input.VialID, err)
	}
	return result, nil
}

// fail logs unexpected errors and classifies them as internal. Application
// errors pass through untouched.
func (uc *vialUseCase) fail(msg, accountID, vialID string, err error) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	uc.logger.Error(msg,
		zap.String("account_id", accountID),
		zap.String("vial_id", vialID),
		zap.Error(err),
	)
	return apperror.Internal(err)
}

func productName(v *model.Vial) string {
	if v.Product == nil {
		return ""
	}
	return v.Product.Name
}

func sameLocation(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
