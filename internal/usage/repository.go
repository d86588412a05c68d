package usage

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/usage/dto"
)

// Repository stores immutable usage rows. FindAll returns rows joined with
// their vial, product, provider and logging user's name.
type Repository interface {
	Create(ctx context.Context, log *model.UsageLog) error
	FindAll(ctx context.Context, filters *dto.UsageFilters) ([]model.UsageLog, error)
}
