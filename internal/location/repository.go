package location

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, location *model.Location) error
	FindByID(ctx context.Context, accountID, id string) (*model.Location, error)
	FindByIDs(ctx context.Context, accountID string, ids []string) ([]model.Location, error)
	FindAll(ctx context.Context, accountID string) ([]model.Location, error)
}
