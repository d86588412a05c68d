package memory

import (
	"context"
	"sort"

	"github.com/fekuna/vialtrack-service/internal/discrepancy/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

type DiscrepancyRepository struct {
	s *Store
}

func (r *DiscrepancyRepository) Create(_ context.Context, d *model.Discrepancy) error {
	return r.s.write(func(t *tables) error {
		t.discrepancies[d.ID] = *d
		return nil
	})
}

func (r *DiscrepancyRepository) Update(_ context.Context, d *model.Discrepancy) error {
	return r.s.write(func(t *tables) error {
		existing, ok := t.discrepancies[d.ID]
		if !ok || existing.AccountID != d.AccountID {
			return errNotFound
		}
		t.discrepancies[d.ID] = *d
		return nil
	})
}

func (r *DiscrepancyRepository) FindByID(_ context.Context, accountID, id string) (*model.Discrepancy, error) {
	var out *model.Discrepancy
	r.s.read(func(t *tables) {
		if d, ok := t.discrepancies[id]; ok && d.AccountID == accountID {
			out = &d
		}
	})
	return out, nil
}

// FindByIDForUpdate needs no row lock: transactions are already serialized.
func (r *DiscrepancyRepository) FindByIDForUpdate(ctx context.Context, accountID, id string) (*model.Discrepancy, error) {
	return r.FindByID(ctx, accountID, id)
}

func (r *DiscrepancyRepository) FindAll(_ context.Context, f *dto.DiscrepancyFilters) ([]model.Discrepancy, error) {
	out := []model.Discrepancy{}
	r.s.read(func(t *tables) {
		for _, d := range t.discrepancies {
			if d.AccountID != f.AccountID {
				continue
			}
			if f.Status != "" && string(d.Status) != f.Status {
				continue
			}
			if f.Type != "" && string(d.Type) != f.Type {
				continue
			}
			if f.VialID != "" && (d.VialID == nil || *d.VialID != f.VialID) {
				continue
			}
			out = append(out, d)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *DiscrepancyRepository) OpenVialIDs(_ context.Context, accountID string, dt model.DiscrepancyType) (map[string]bool, error) {
	ids := map[string]bool{}
	r.s.read(func(t *tables) {
		for _, d := range t.discrepancies {
			if d.AccountID == accountID && d.Type == dt && d.VialID != nil && d.Status.IsOpen() {
				ids[*d.VialID] = true
			}
		}
	})
	return ids, nil
}

func (r *DiscrepancyRepository) CountOpen(_ context.Context, accountID string) (int, error) {
	n := 0
	r.s.read(func(t *tables) {
		for _, d := range t.discrepancies {
			if d.AccountID == accountID && d.Status.IsOpen() {
				n++
			}
		}
	})
	return n, nil
}

// LockAccount is a no-op: detection already runs inside a serialized
// transaction.
func (r *DiscrepancyRepository) LockAccount(context.Context, string) error {
	return nil
}
