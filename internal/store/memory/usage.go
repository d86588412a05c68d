package memory

import (
	"context"
	"sort"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/usage/dto"
)

type UsageRepository struct {
	s *Store
}

func (r *UsageRepository) Create(_ context.Context, l *model.UsageLog) error {
	return r.s.write(func(t *tables) error {
		row := *l
		row.Vial = nil
		row.Provider = nil
		row.LoggedByName = ""
		t.usage = append(t.usage, row)
		return nil
	})
}

func (r *UsageRepository) FindAll(_ context.Context, f *dto.UsageFilters) ([]model.UsageLog, error) {
	logs := []model.UsageLog{}
	r.s.read(func(t *tables) {
		for _, l := range t.usage {
			if l.AccountID != f.AccountID {
				continue
			}
			if f.VialID != "" && l.VialID != f.VialID {
				continue
			}
			if f.ProviderID != "" && (l.ProviderID == nil || *l.ProviderID != f.ProviderID) {
				continue
			}
			if f.From != nil && l.UsedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && l.UsedAt.After(*f.To) {
				continue
			}
			if v, ok := t.vials[l.VialID]; ok {
				joined := t.joinVial(v)
				l.Vial = &joined
			}
			if l.ProviderID != nil {
				if p, ok := t.providers[*l.ProviderID]; ok {
					l.Provider = &p
				}
			}
			if u, ok := t.users[l.LoggedByID]; ok {
				l.LoggedByName = u.Name
			}
			logs = append(logs, l)
		}
	})

	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].UsedAt.Equal(logs[j].UsedAt) {
			return logs[i].UsedAt.After(logs[j].UsedAt)
		}
		return logs[i].ID > logs[j].ID
	})
	if f.Limit > 0 && len(logs) > f.Limit {
		logs = logs[:f.Limit]
	}
	return logs, nil
}
