package memory

import (
	"context"
	"sort"

	"github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

// AuditRepository is append-only like the table it stands in for.
type AuditRepository struct {
	s *Store
}

func (r *AuditRepository) Insert(_ context.Context, l *model.AuditLog) error {
	return r.s.write(func(t *tables) error {
		row := *l
		row.Metadata = cloneMap(l.Metadata)
		t.audit = append(t.audit, row)
		return nil
	})
}

func (r *AuditRepository) FindAll(_ context.Context, f *dto.AuditFilters) ([]model.AuditLog, int, error) {
	logs := []model.AuditLog{}
	r.s.read(func(t *tables) {
		for i := len(t.audit) - 1; i >= 0; i-- {
			l := t.audit[i]
			if l.AccountID != f.AccountID {
				continue
			}
			if f.Action != "" && l.Action != f.Action {
				continue
			}
			if f.EntityType != "" && l.EntityType != f.EntityType {
				continue
			}
			if f.EntityID != "" && (l.EntityID == nil || *l.EntityID != f.EntityID) {
				continue
			}
			if f.ActorType != "" && l.ActorType != f.ActorType {
				continue
			}
			if f.UserID != "" && (l.UserID == nil || *l.UserID != f.UserID) {
				continue
			}
			if f.From != nil && l.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && l.CreatedAt.After(*f.To) {
				continue
			}
			logs = append(logs, l)
		}
	})

	// Newest first; among equal timestamps the later insert wins.
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })

	count := len(logs)
	if f.PageSize > 0 {
		start := (f.Page - 1) * f.PageSize
		if start > count {
			start = count
		}
		end := start + f.PageSize
		if end > count {
			end = count
		}
		logs = logs[start:end]
	}
	return logs, count, nil
}
