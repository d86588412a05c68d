package discrepancy

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/discrepancy/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, d *model.Discrepancy) error
	Update(ctx context.Context, d *model.Discrepancy) error
	FindByID(ctx context.Context, accountID, id string) (*model.Discrepancy, error)
	// FindByIDForUpdate locks the row until the transaction in ctx ends.
	FindByIDForUpdate(ctx context.Context, accountID, id string) (*model.Discrepancy, error)
	FindAll(ctx context.Context, filters *dto.DiscrepancyFilters) ([]model.Discrepancy, error)
	// OpenVialIDs returns the vials with an OPEN or INVESTIGATING discrepancy
	// of type t.
	OpenVialIDs(ctx context.Context, accountID string, t model.DiscrepancyType) (map[string]bool, error)
	CountOpen(ctx context.Context, accountID string) (int, error)
	// LockAccount serializes detection passes for one account until the
	// transaction in ctx ends.
	LockAccount(ctx context.Context, accountID string) error
}
