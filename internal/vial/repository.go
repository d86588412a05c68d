package vial

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
)

// Repository reads return vials with Product (and Location, when set)
// populated.
type Repository interface {
	CreateBatch(ctx context.Context, vials []model.Vial) error
	FindByID(ctx context.Context, accountID, id string) (*model.Vial, error)
	// FindByIDForUpdate locks the vial row until the transaction in ctx ends.
	FindByIDForUpdate(ctx context.Context, accountID, id string) (*model.Vial, error)
	Update(ctx context.Context, vial *model.Vial) error
	FindAll(ctx context.Context, filters *dto.VialFilters) ([]model.Vial, int, error)
	FindActive(ctx context.Context, accountID string) ([]model.Vial, error)
	SummarizeActive(ctx context.Context, accountID string) ([]dto.ActiveStock, error)
}
