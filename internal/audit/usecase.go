package audit

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

// Recorder is the single write path for audit rows. Record joins the
// transaction carried by ctx, so a failed audit insert rolls back the
// mutation it describes.
type Recorder interface {
	Record(ctx context.Context, entry *dto.Entry) (*model.AuditLog, error)
}

type UseCase interface {
	Recorder
	List(ctx context.Context, filters *dto.AuditFilters) ([]model.AuditLog, int, error)
}

// Publisher ships committed audit rows to an external sink.
type Publisher interface {
	Publish(ctx context.Context, log *model.AuditLog) error
}
