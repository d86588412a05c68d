package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	productdto "github.com/fekuna/vialtrack-service/internal/product/dto"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/shopspring/decimal"
)

func (uc *vialUseCase) GetVial(ctx context.Context, accountID, id string) (*model.Vial, error) {
	v, err := uc.repo.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, uc.fail("failed to get vial", accountID, id, err)
	}
	if v == nil {
		return nil, ErrVialNotFound
	}
	return v, nil
}

func (uc *vialUseCase) ListVials(ctx context.Context, filters *dto.VialFilters) ([]model.Vial, int, error) {
	if err := uc.prepareFilters(filters); err != nil {
		return nil, 0, err
	}
	filters.Normalize()

	vials, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, uc.fail("failed to list vials", filters.AccountID, "", err)
	}
	return vials, count, nil
}

func (uc *vialUseCase) prepareFilters(filters *dto.VialFilters) error {
	if filters.Status != "" && !model.VialStatus(filters.Status).Valid() {
		return apperror.Validation(fmt.Sprintf("unknown status %q", filters.Status))
	}
	if d := filters.ExpiringWithinDays; d != nil && (*d < 1 || *d > dto.MaxExpiringWithinDays) {
		return apperror.Validation(fmt.Sprintf("expiring must be between 1 and %d days", dto.MaxExpiringWithinDays))
	}
	filters.Now = uc.now()
	return nil
}

// Summary reports active stock for every active product, including products
// with no stock at all.
func (uc *vialUseCase) Summary(ctx context.Context, accountID string) ([]dto.ProductSummary, error) {
	active := true
	products, err := uc.products.FindAll(ctx, &productdto.ProductFilters{AccountID: accountID, IsActive: &active})
	if err != nil {
		return nil, uc.fail("failed to load products", accountID, "", err)
	}
	stock, err := uc.repo.SummarizeActive(ctx, accountID)
	if err != nil {
		return nil, uc.fail("failed to summarize stock", accountID, "", err)
	}

	byProduct := make(map[string]dto.ActiveStock, len(stock))
	for _, s := range stock {
		byProduct[s.ProductID] = s
	}

	summary := make([]dto.ProductSummary, 0, len(products))
	for _, p := range products {
		s, ok := byProduct[p.ID]
		if !ok {
			s.TotalRemaining = decimal.Zero
		}
		summary = append(summary, dto.ProductSummary{
			Product:        p,
			ActiveVials:    s.ActiveVials,
			TotalRemaining: s.TotalRemaining,
			LowStock:       s.ActiveVials < p.ReorderThreshold,
		})
	}
	return summary, nil
}

func (uc *vialUseCase) Label(ctx context.Context, accountID, id string) (*dto.Label, error) {
	v, err := uc.GetVial(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	label := &dto.Label{
		VialID:            v.ID,
		LotNumber:         v.LotNumber,
		ExpirationDate:    v.ExpirationDate,
		RemainingQuantity: v.RemainingQuantity,
		InitialQuantity:   v.InitialQuantity,
		Status:            v.Status,
		ReceivedAt:        v.CreatedAt,
		OpenedAt:          v.OpenedAt,
		BeyondUseExpiry:   v.BeyondUseExpiry(),
	}
	if v.Product != nil {
		label.ProductName = v.Product.Name
		label.Brand = v.Product.Brand
		label.UnitLabel = v.Product.UnitType.Label()
	}
	if v.Location != nil {
		name := v.Location.Name
		label.LocationName = &name
	}
	return label, nil
}
