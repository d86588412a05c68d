package provider

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, provider *model.Provider) error
	Update(ctx context.Context, provider *model.Provider) error
	FindByID(ctx context.Context, accountID, id string) (*model.Provider, error)
	FindAll(ctx context.Context, accountID string, activeOnly bool) ([]model.Provider, error)
}
