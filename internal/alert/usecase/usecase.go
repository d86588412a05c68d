package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/vialtrack-service/internal/alert"
	"github.com/fekuna/vialtrack-service/internal/alert/dto"
	"github.com/fekuna/vialtrack-service/internal/discrepancy"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/product"
	productdto "github.com/fekuna/vialtrack-service/internal/product/dto"
	"github.com/fekuna/vialtrack-service/internal/usage"
	usagedto "github.com/fekuna/vialtrack-service/internal/usage/dto"
	"github.com/fekuna/vialtrack-service/internal/vial"
	"go.uber.org/zap"
)

const (
	expiringHorizonDays = 30
	recentUsageWindow   = 7 * 24 * time.Hour
	recentUsageLimit    = 5
	day                 = 24 * time.Hour
)

type alertUseCase struct {
	vials         vial.Repository
	products      product.Repository
	usage         usage.Repository
	discrepancies discrepancy.Repository
	cache         alert.Cache
	ttl           time.Duration
	logger        logger.ZapLogger
	now           func() time.Time
}

// NewAlertUseCase builds the dashboard. cache may be nil, in which case every
// call recomputes.
func NewAlertUseCase(
	vials vial.Repository,
	products product.Repository,
	usageRepo usage.Repository,
	discrepancies discrepancy.Repository,
	cache alert.Cache,
	ttl time.Duration,
	log logger.ZapLogger,
) alert.UseCase {
	return &alertUseCase{
		vials:         vials,
		products:      products,
		usage:         usageRepo,
		discrepancies: discrepancies,
		cache:         cache,
		ttl:           ttl,
		logger:        log,
		now:           time.Now,
	}
}

func cacheKey(accountID string) string {
	return fmt.Sprintf("vialtrack:dashboard:%s", accountID)
}

func (uc *alertUseCase) Dashboard(ctx context.Context, accountID string) (*dto.Dashboard, error) {
	// 1. Try cache
	if uc.cache != nil {
		var cached dto.Dashboard
		hit, err := uc.cache.GetJSON(ctx, cacheKey(accountID), &cached)
		if err != nil {
			uc.logger.Warn("dashboard cache read failed", zap.String("account_id", accountID), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	// 2. Compute
	d, err := uc.compute(ctx, accountID)
	if err != nil {
		uc.logger.Error("failed to build dashboard", zap.String("account_id", accountID), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	// 3. Store
	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, cacheKey(accountID), d, uc.ttl); err != nil {
			uc.logger.Warn("dashboard cache write failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}
	return d, nil
}

func (uc *alertUseCase) Invalidate(ctx context.Context, accountID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, cacheKey(accountID)); err != nil {
		uc.logger.Warn("dashboard cache invalidation failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (uc *alertUseCase) compute(ctx context.Context, accountID string) (*dto.Dashboard, error) {
	now := uc.now()
	d := &dto.Dashboard{
		ExpiringVials:     []dto.ExpiringVial{},
		ExpiredActive:     []dto.ExpiringVial{},
		BeyondUseExceeded: []dto.BeyondUseVial{},
		LowStock:          []dto.LowStockProduct{},
		GeneratedAt:       now,
	}

	active, err := uc.vials.FindActive(ctx, accountID)
	if err != nil {
		return nil, err
	}
	d.ActiveVials = len(active)

	horizon := now.Add(expiringHorizonDays * day)
	for i := range active {
		v := &active[i]
		name := ""
		if v.Product != nil {
			name = v.Product.Name
		}

		if !v.ExpirationDate.After(now) {
			d.ExpiredActive = append(d.ExpiredActive, expiringVial(v, name, now))
		} else if !v.ExpirationDate.After(horizon) {
			ev := expiringVial(v, name, now)
			d.ExpiringVials = append(d.ExpiringVials, ev)
			switch until := v.ExpirationDate.Sub(now); {
			case until <= 7*day:
				d.Expiring.Within7Days++
			case until <= 14*day:
				d.Expiring.Within14Days++
			default:
				d.Expiring.Within30Days++
			}
		}

		if bud := v.BeyondUseExpiry(); bud != nil && bud.Before(now) {
			d.BeyondUseExceeded = append(d.BeyondUseExceeded, dto.BeyondUseVial{
				VialID:          v.ID,
				ProductName:     name,
				LotNumber:       v.LotNumber,
				OpenedAt:        *v.OpenedAt,
				BeyondUseExpiry: *bud,
			})
		}
	}
	sort.SliceStable(d.ExpiringVials, func(i, j int) bool {
		return d.ExpiringVials[i].ExpirationDate.Before(d.ExpiringVials[j].ExpirationDate)
	})

	d.OpenDiscrepancies, err = uc.discrepancies.CountOpen(ctx, accountID)
	if err != nil {
		return nil, err
	}

	from := now.Add(-recentUsageWindow)
	d.RecentUsage, err = uc.usage.FindAll(ctx, &usagedto.UsageFilters{
		AccountID: accountID,
		From:      &from,
		Limit:     recentUsageLimit,
	})
	if err != nil {
		return nil, err
	}
	if d.RecentUsage == nil {
		d.RecentUsage = []model.UsageLog{}
	}

	d.LowStock, err = uc.lowStock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// lowStock lists active products whose active vial count is below their
// reorder threshold.
func (uc *alertUseCase) lowStock(ctx context.Context, accountID string) ([]dto.LowStockProduct, error) {
	isActive := true
	products, err := uc.products.FindAll(ctx, &productdto.ProductFilters{AccountID: accountID, IsActive: &isActive})
	if err != nil {
		return nil, err
	}
	stock, err := uc.vials.SummarizeActive(ctx, accountID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(stock))
	for _, s := range stock {
		counts[s.ProductID] = s.ActiveVials
	}

	low := []dto.LowStockProduct{}
	for _, p := range products {
		if n := counts[p.ID]; n < p.ReorderThreshold {
			low = append(low, dto.LowStockProduct{
				ProductID:        p.ID,
				Name:             p.Name,
				Brand:            p.Brand,
				ActiveVials:      n,
				ReorderThreshold: p.ReorderThreshold,
			})
		}
	}
	return low, nil
}

func expiringVial(v *model.Vial, name string, now time.Time) dto.ExpiringVial {
	return dto.ExpiringVial{
		VialID:            v.ID,
		ProductName:       name,
		LotNumber:         v.LotNumber,
		ExpirationDate:    v.ExpirationDate,
		DaysUntilExpiry:   int(v.ExpirationDate.Sub(now).Hours() / 24),
		RemainingQuantity: v.RemainingQuantity,
	}
}
