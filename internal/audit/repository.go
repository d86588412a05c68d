package audit

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

// Repository is append-only: there is no update or delete.
type Repository interface {
	Insert(ctx context.Context, log *model.AuditLog) error
	FindAll(ctx context.Context, filters *dto.AuditFilters) ([]model.AuditLog, int, error)
}
