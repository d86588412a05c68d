package vial

import (
	"context"
	"io"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
)

type UseCase interface {
	Intake(ctx context.Context, accountID, userID string, entries []dto.IntakeEntry) ([]model.Vial, error)
	ChangeStatus(ctx context.Context, input *dto.ChangeStatusInput) (*model.Vial, error)
	OpenVial(ctx context.Context, accountID, userID, vialID string) (*model.Vial, error)
	MoveVial(ctx context.Context, input *dto.MoveVialInput) (*model.Vial, error)

	GetVial(ctx context.Context, accountID, id string) (*model.Vial, error)
	ListVials(ctx context.Context, filters *dto.VialFilters) ([]model.Vial, int, error)
	Summary(ctx context.Context, accountID string) ([]dto.ProductSummary, error)
	Label(ctx context.Context, accountID, id string) (*dto.Label, error)
	Export(ctx context.Context, filters *dto.VialFilters, w io.Writer) error
}
