package provider

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/provider/dto"
)

type UseCase interface {
	CreateProvider(ctx context.Context, input *dto.CreateProviderInput) (*model.Provider, error)
	ListProviders(ctx context.Context, accountID string, activeOnly bool) ([]model.Provider, error)
	DeactivateProvider(ctx context.Context, input *dto.DeactivateProviderInput) (*model.Provider, error)
}
