package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/vialtrack-service/internal/audit"
	"github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type auditUseCase struct {
	repo      audit.Repository
	publisher audit.Publisher
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewAuditUseCase builds the audit trail. publisher may be nil.
func NewAuditUseCase(repo audit.Repository, publisher audit.Publisher, log logger.ZapLogger) audit.UseCase {
	return &auditUseCase{
		repo:      repo,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *auditUseCase) Record(ctx context.Context, entry *dto.Entry) (*model.AuditLog, error) {
	if !entry.Action.Valid() || !entry.EntityType.Valid() || !entry.ActorType.Valid() {
		return nil, apperror.Internal(errInvalidEntry(entry))
	}
	if entry.ActorType == model.ActorUser && (entry.UserID == nil || *entry.UserID == "") {
		return nil, apperror.Internal(errInvalidEntry(entry))
	}

	var entityID *string
	if entry.EntityID != "" {
		id := entry.EntityID
		entityID = &id
	}
	metadata := entry.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	l := &model.AuditLog{
		ID:          uuid.New().String(),
		AccountID:   entry.AccountID,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entityID,
		ActorType:   entry.ActorType,
		UserID:      entry.UserID,
		Description: entry.Description,
		Metadata:    metadata,
		CreatedAt:   uc.now(),
	}

	if err := uc.repo.Insert(ctx, l); err != nil {
		uc.logger.Error("failed to record audit log",
			zap.String("account_id", entry.AccountID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
		return nil, apperror.Internal(err)
	}

	if uc.publisher != nil {
		transaction.AfterCommit(ctx, func() {
			go uc.publish(l)
		})
	}
	return l, nil
}

func (uc *auditUseCase) publish(l *model.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(ctx, l); err != nil {
		uc.logger.Warn("failed to publish audit log",
			zap.String("audit_id", l.ID),
			zap.String("account_id", l.AccountID),
			zap.Error(err),
		)
	}
}

func (uc *auditUseCase) List(ctx context.Context, filters *dto.AuditFilters) ([]model.AuditLog, int, error) {
	if filters.Action != "" && !filters.Action.Valid() {
		return nil, 0, apperror.Validation("unknown audit action " + string(filters.Action))
	}
	if filters.EntityType != "" && !filters.EntityType.Valid() {
		return nil, 0, apperror.Validation("unknown entity type " + string(filters.EntityType))
	}
	if filters.ActorType != "" && !filters.ActorType.Valid() {
		return nil, 0, apperror.Validation("unknown actor type " + string(filters.ActorType))
	}
	filters.Normalize()

	logs, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		uc.logger.Error("failed to list audit logs", zap.String("account_id", filters.AccountID), zap.Error(err))
		return nil, 0, apperror.Internal(err)
	}
	return logs, count, nil
}

func errInvalidEntry(entry *dto.Entry) error {
	return fmt.Errorf("invalid audit entry %s/%s/%s", entry.Action, entry.EntityType, entry.ActorType)
}
