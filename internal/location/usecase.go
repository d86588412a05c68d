package location

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/location/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

type UseCase interface {
	CreateLocation(ctx context.Context, input *dto.CreateLocationInput) (*model.Location, error)
	ListLocations(ctx context.Context, accountID string) ([]model.Location, error)
}
