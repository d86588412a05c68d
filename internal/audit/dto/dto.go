package dto

import (
	"time"

	"github.com/fekuna/vialtrack-service/internal/model"
)

// Entry is one audit row to record. UserID is nil for SYSTEM actions.
type Entry struct {
	AccountID   string
	Action      model.AuditAction
	EntityType  model.EntityType
	EntityID    string
	ActorType   model.ActorType
	UserID      *string
	Description string
	Metadata    model.Metadata
}

type AuditFilters struct {
	AccountID  string
	Action     model.AuditAction
	EntityType model.EntityType
	EntityID   string
	ActorType  model.ActorType
	UserID     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Normalize clamps paging to sane bounds.
func (f *AuditFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}
