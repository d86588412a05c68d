package discrepancy

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/discrepancy/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

type UseCase interface {
	CreateDiscrepancy(ctx context.Context, input *dto.CreateDiscrepancyInput) (*model.Discrepancy, error)
	UpdateStatus(ctx context.Context, input *dto.UpdateStatusInput) (*model.Discrepancy, error)
	Detect(ctx context.Context, accountID, userID string) (*dto.DetectResult, error)
	ListDiscrepancies(ctx context.Context, filters *dto.DiscrepancyFilters) ([]model.Discrepancy, error)
}
