package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/shopspring/decimal"
)

type VialRepository struct {
	s *Store
}

func (r *VialRepository) CreateBatch(_ context.Context, vials []model.Vial) error {
	return r.s.write(func(t *tables) error {
		for i := range vials {
			if err := vials[i].CheckInvariants(); err != nil {
				return fmt.Errorf("insert vial %s: %w", vials[i].ID, err)
			}
		}
		for _, v := range vials {
			t.vials[v.ID] = stripVial(v)
		}
		return nil
	})
}

func (r *VialRepository) FindByID(_ context.Context, accountID, id string) (*model.Vial, error) {
	var out *model.Vial
	r.s.read(func(t *tables) {
		if v, ok := t.vials[id]; ok && v.AccountID == accountID {
			joined := t.joinVial(v)
			out = &joined
		}
	})
	return out, nil
}

// FindByIDForUpdate needs no row lock: transactions are already serialized.
func (r *VialRepository) FindByIDForUpdate(ctx context.Context, accountID, id string) (*model.Vial, error) {
	return r.FindByID(ctx, accountID, id)
}

func (r *VialRepository) Update(_ context.Context, v *model.Vial) error {
	return r.s.write(func(t *tables) error {
		existing, ok := t.vials[v.ID]
		if !ok || existing.AccountID != v.AccountID {
			return fmt.Errorf("update vial %s: %w", v.ID, errNotFound)
		}
		if err := v.CheckInvariants(); err != nil {
			return fmt.Errorf("update vial %s: %w", v.ID, err)
		}
		updated := stripVial(*v)
		updated.ProductID = existing.ProductID
		updated.LotNumber = existing.LotNumber
		updated.ExpirationDate = existing.ExpirationDate
		updated.InitialQuantity = existing.InitialQuantity
		updated.CreatedAt = existing.CreatedAt
		t.vials[v.ID] = updated
		return nil
	})
}

func (r *VialRepository) FindAll(_ context.Context, f *dto.VialFilters) ([]model.Vial, int, error) {
	matched := []model.Vial{}
	lot := strings.ToLower(f.LotNumber)
	r.s.read(func(t *tables) {
		for _, v := range t.vials {
			if v.AccountID != f.AccountID {
				continue
			}
			if f.ExpiringWithinDays != nil {
				until := f.Now.AddDate(0, 0, *f.ExpiringWithinDays)
				if v.Status != model.VialActive || !v.ExpirationDate.After(f.Now) || v.ExpirationDate.After(until) {
					continue
				}
			} else if f.Status != "" && string(v.Status) != f.Status {
				continue
			}
			if f.ProductID != "" && v.ProductID != f.ProductID {
				continue
			}
			if f.LocationID != "" && (v.LocationID == nil || *v.LocationID != f.LocationID) {
				continue
			}
			if lot != "" && !strings.Contains(strings.ToLower(v.LotNumber), lot) {
				continue
			}
			matched = append(matched, t.joinVial(v))
		}
	})
	sortVials(matched)

	count := len(matched)
	if f.PageSize > 0 {
		start := (f.Page - 1) * f.PageSize
		if start > count {
			start = count
		}
		end := start + f.PageSize
		if end > count {
			end = count
		}
		matched = matched[start:end]
	}
	return matched, count, nil
}

func (r *VialRepository) FindActive(_ context.Context, accountID string) ([]model.Vial, error) {
	vials := []model.Vial{}
	r.s.read(func(t *tables) {
		for _, v := range t.vials {
			if v.AccountID == accountID && v.Status == model.VialActive {
				vials = append(vials, t.joinVial(v))
			}
		}
	})
	sortVials(vials)
	return vials, nil
}

func (r *VialRepository) SummarizeActive(_ context.Context, accountID string) ([]dto.ActiveStock, error) {
	byProduct := map[string]*dto.ActiveStock{}
	r.s.read(func(t *tables) {
		for _, v := range t.vials {
			if v.AccountID != accountID || v.Status != model.VialActive {
				continue
			}
			s, ok := byProduct[v.ProductID]
			if !ok {
				s = &dto.ActiveStock{ProductID: v.ProductID, TotalRemaining: decimal.Zero}
				byProduct[v.ProductID] = s
			}
			s.ActiveVials++
			s.TotalRemaining = s.TotalRemaining.Add(v.RemainingQuantity)
		}
	})

	stock := make([]dto.ActiveStock, 0, len(byProduct))
	for _, s := range byProduct {
		stock = append(stock, *s)
	}
	sort.Slice(stock, func(i, j int) bool { return stock[i].ProductID < stock[j].ProductID })
	return stock, nil
}

func (t *tables) joinVial(v model.Vial) model.Vial {
	if p, ok := t.products[v.ProductID]; ok {
		v.Product = &p
	}
	if v.LocationID != nil {
		if l, ok := t.locations[*v.LocationID]; ok {
			v.Location = &l
		}
	}
	return v
}

func stripVial(v model.Vial) model.Vial {
	v.Product = nil
	v.Location = nil
	v.LocationID = copyString(v.LocationID)
	v.StatusReason = copyString(v.StatusReason)
	return v
}

func sortVials(vials []model.Vial) {
	sort.Slice(vials, func(i, j int) bool {
		a, b := vials[i], vials[j]
		if !a.ExpirationDate.Equal(b.ExpirationDate) {
			return a.ExpirationDate.Before(b.ExpirationDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
