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
	"github.com/fekuna/vialtrack-service/internal/product"
	"github.com/fekuna/vialtrack-service/internal/product/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNameLength = 120

var ErrProductNotFound = apperror.NotFound("product not found")

type productUseCase struct {
	repo   product.Repository
	tx     transaction.Manager
	audit  audit.Recorder
	alerts alert.Invalidator
	logger logger.ZapLogger
	now    func() time.Time
}

func NewProductUseCase(repo product.Repository, tx transaction.Manager, rec audit.Recorder, alerts alert.Invalidator, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		tx:     tx,
		audit:  rec,
		alerts: alerts,
		logger: log,
		now:    time.Now,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	// 1. Validate
	name := strings.TrimSpace(input.Name)
	brand := strings.TrimSpace(input.Brand)
	if err := validateName("name", name); err != nil {
		return nil, err
	}
	if err := validateName("brand", brand); err != nil {
		return nil, err
	}
	category := model.ProductCategory(input.Category)
	if !category.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown category %q", input.Category))
	}
	unitType := model.UnitType(input.UnitType)
	if !unitType.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown unit type %q", input.UnitType))
	}
	if err := validateFill(input.UnitsPerVial); err != nil {
		return nil, err
	}
	threshold := model.DefaultReorderThreshold
	if input.ReorderThreshold != nil {
		threshold = *input.ReorderThreshold
	}
	if err := validateSettings(threshold, input.BeyondUseHours, input.CostPerVial); err != nil {
		return nil, err
	}

	now := uc.now()
	p := &model.Product{
		BaseModel:        model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		AccountID:        input.AccountID,
		Name:             name,
		Brand:            brand,
		Category:         category,
		UnitType:         unitType,
		UnitsPerVial:     input.UnitsPerVial,
		ReorderThreshold: threshold,
		BeyondUseHours:   input.BeyondUseHours,
		CostPerVial:      input.CostPerVial,
		IsActive:         true,
	}

	// 2. Persist with audit
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, p); err != nil {
			return err
		}
		_, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditSettingsChanged,
			EntityType:  model.EntityProduct,
			EntityID:    p.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Created product: %s (%s)", p.Name, p.Brand),
			Metadata:    model.Metadata{"productName": p.Name, "brand": p.Brand},
		})
		if err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, input.AccountID)
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to create product", input.AccountID, err)
	}
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, accountID, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, uc.fail("failed to get product", accountID, err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, error) {
	if filters.Category != "" && !model.ProductCategory(filters.Category).Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown category %q", filters.Category))
	}
	products, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, uc.fail("failed to list products", filters.AccountID, err)
	}
	return products, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	var updated *model.Product
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// 1. Load
		p, err := uc.repo.FindByID(ctx, input.AccountID, input.ID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}

		// 2. Apply changes
		changes := model.Metadata{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if err := validateName("name", name); err != nil {
				return err
			}
			p.Name = name
			changes["name"] = name
		}
		if input.Brand != nil {
			brand := strings.TrimSpace(*input.Brand)
			if err := validateName("brand", brand); err != nil {
				return err
			}
			p.Brand = brand
			changes["brand"] = brand
		}
		if input.Category != nil {
			category := model.ProductCategory(*input.Category)
			if !category.Valid() {
				return apperror.Validation(fmt.Sprintf("unknown category %q", *input.Category))
			}
			p.Category = category
			changes["category"] = category
		}
		if input.ReorderThreshold != nil {
			p.ReorderThreshold = *input.ReorderThreshold
			changes["reorderThreshold"] = p.ReorderThreshold
		}
		if input.ClearBeyondUse {
			p.BeyondUseHours = nil
			changes["beyondUseHours"] = nil
		} else if input.BeyondUseHours != nil {
			p.BeyondUseHours = input.BeyondUseHours
			changes["beyondUseHours"] = *input.BeyondUseHours
		}
		if input.CostPerVial != nil {
			p.CostPerVial = input.CostPerVial
			changes["costPerVial"] = input.CostPerVial.String()
		}
		if input.IsActive != nil {
			p.IsActive = *input.IsActive
			changes["isActive"] = p.IsActive
		}
		if len(changes) == 0 {
			return apperror.Validation("no changes supplied")
		}
		if err := validateSettings(p.ReorderThreshold, p.BeyondUseHours, p.CostPerVial); err != nil {
			return err
		}
		p.UpdatedAt = uc.now()

		// 3. Persist with audit
		if err := uc.repo.Update(ctx, p); err != nil {
			return err
		}
		changes["productName"] = p.Name
		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditSettingsChanged,
			EntityType:  model.EntityProduct,
			EntityID:    p.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Updated product: %s (%s)", p.Name, p.Brand),
			Metadata:    changes,
		}); err != nil {
			return err
		}
		alert.InvalidateAfterCommit(ctx, uc.alerts, input.AccountID)
		updated = p
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to update product", input.AccountID, err)
	}
	return updated, nil
}

// fail logs unexpected errors and classifies them as internal. Application
// errors pass through untouched.
func (uc *productUseCase) fail(msg, accountID string, err error) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	uc.logger.Error(msg, zap.String("account_id", accountID), zap.Error(err))
	return apperror.Internal(err)
}

func validateName(field, value string) error {
	if value == "" {
		return apperror.Validation(field + " is required")
	}
	if utf8.RuneCountInString(value) > maxNameLength {
		return apperror.Validation(fmt.Sprintf("%s must be at most %d characters", field, maxNameLength))
	}
	return nil
}
