package usage

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/usage/dto"
)

type UseCase interface {
	RecordUsage(ctx context.Context, input *dto.RecordUsageInput) (*model.UsageLog, error)
	ListUsage(ctx context.Context, filters *dto.UsageFilters) ([]model.UsageLog, error)
}
