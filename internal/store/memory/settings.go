package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/product/dto"
)

var errNotFound = errors.New("memory: row not found")

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Create(_ context.Context, p *model.Product) error {
	return r.s.write(func(t *tables) error {
		t.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepository) Update(_ context.Context, p *model.Product) error {
	return r.s.write(func(t *tables) error {
		existing, ok := t.products[p.ID]
		if !ok || existing.AccountID != p.AccountID {
			return errNotFound
		}
		updated := *p
		updated.UnitType = existing.UnitType
		updated.UnitsPerVial = existing.UnitsPerVial
		updated.CreatedAt = existing.CreatedAt
		t.products[p.ID] = updated
		return nil
	})
}

func (r *ProductRepository) FindByID(_ context.Context, accountID, id string) (*model.Product, error) {
	var out *model.Product
	r.s.read(func(t *tables) {
		if p, ok := t.products[id]; ok && p.AccountID == accountID {
			out = &p
		}
	})
	return out, nil
}

func (r *ProductRepository) FindByIDs(_ context.Context, accountID string, ids []string) ([]model.Product, error) {
	products := []model.Product{}
	r.s.read(func(t *tables) {
		for _, id := range ids {
			if p, ok := t.products[id]; ok && p.AccountID == accountID {
				products = append(products, p)
			}
		}
	})
	return products, nil
}

func (r *ProductRepository) FindAll(_ context.Context, f *dto.ProductFilters) ([]model.Product, error) {
	products := []model.Product{}
	r.s.read(func(t *tables) {
		for _, p := range t.products {
			if p.AccountID != f.AccountID {
				continue
			}
			if f.Category != "" && string(p.Category) != f.Category {
				continue
			}
			if f.IsActive != nil && p.IsActive != *f.IsActive {
				continue
			}
			products = append(products, p)
		}
	})
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

type LocationRepository struct {
	s *Store
}

func (r *LocationRepository) Create(_ context.Context, l *model.Location) error {
	return r.s.write(func(t *tables) error {
		t.locations[l.ID] = *l
		return nil
	})
}

func (r *LocationRepository) FindByID(_ context.Context, accountID, id string) (*model.Location, error) {
	var out *model.Location
	r.s.read(func(t *tables) {
		if l, ok := t.locations[id]; ok && l.AccountID == accountID {
			out = &l
		}
	})
	return out, nil
}

func (r *LocationRepository) FindByIDs(_ context.Context, accountID string, ids []string) ([]model.Location, error) {
	locations := []model.Location{}
	r.s.read(func(t *tables) {
		for _, id := range ids {
			if l, ok := t.locations[id]; ok && l.AccountID == accountID {
				locations = append(locations, l)
			}
		}
	})
	return locations, nil
}

func (r *LocationRepository) FindAll(_ context.Context, accountID string) ([]model.Location, error) {
	locations := []model.Location{}
	r.s.read(func(t *tables) {
		for _, l := range t.locations {
			if l.AccountID == accountID {
				locations = append(locations, l)
			}
		}
	})
	sort.Slice(locations, func(i, j int) bool { return locations[i].Name < locations[j].Name })
	return locations, nil
}

type ProviderRepository struct {
	s *Store
}

func (r *ProviderRepository) Create(_ context.Context, p *model.Provider) error {
	return r.s.write(func(t *tables) error {
		t.providers[p.ID] = *p
		return nil
	})
}

func (r *ProviderRepository) Update(_ context.Context, p *model.Provider) error {
	return r.s.write(func(t *tables) error {
		existing, ok := t.providers[p.ID]
		if !ok || existing.AccountID != p.AccountID {
			return errNotFound
		}
		t.providers[p.ID] = *p
		return nil
	})
}

func (r *ProviderRepository) FindByID(_ context.Context, accountID, id string) (*model.Provider, error) {
	var out *model.Provider
	r.s.read(func(t *tables) {
		if p, ok := t.providers[id]; ok && p.AccountID == accountID {
			out = &p
		}
	})
	return out, nil
}

func (r *ProviderRepository) FindAll(_ context.Context, accountID string, activeOnly bool) ([]model.Provider, error) {
	providers := []model.Provider{}
	r.s.read(func(t *tables) {
		for _, p := range t.providers {
			if p.AccountID == accountID && (!activeOnly || p.IsActive) {
				providers = append(providers, p)
			}
		}
	})
	sort.Slice(providers, func(i, j int) bool { return providers[i].Name < providers[j].Name })
	return providers, nil
}
