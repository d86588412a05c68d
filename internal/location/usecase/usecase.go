package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/vialtrack-service/internal/audit"
	auditdto "github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/location"
	"github.com/fekuna/vialtrack-service/internal/location/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type locationUseCase struct {
	repo   location.Repository
	tx     transaction.Manager
	audit  audit.Recorder
	logger logger.ZapLogger
	now    func() time.Time
}

func NewLocationUseCase(repo location.Repository, tx transaction.Manager, rec audit.Recorder, log logger.ZapLogger) location.UseCase {
	return &locationUseCase{
		repo:   repo,
		tx:     tx,
		audit:  rec,
		logger: log,
		now:    time.Now,
	}
}

func (uc *locationUseCase) CreateLocation(ctx context.Context, input *dto.CreateLocationInput) (*model.Location, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > 120 {
		return nil, apperror.Validation("name must be at most 120 characters")
	}
	locType := model.LocationType(input.Type)
	if !locType.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown location type %q", input.Type))
	}

	l := &model.Location{
		ID:        uuid.New().String(),
		AccountID: input.AccountID,
		Name:      name,
		Type:      locType,
		CreatedAt: uc.now(),
	}

	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, l); err != nil {
			return err
		}
		_, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditSettingsChanged,
			EntityType:  model.EntityLocation,
			EntityID:    l.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Created location: %s (%s)", l.Name, l.Type),
			Metadata:    model.Metadata{"locationName": l.Name, "type": l.Type},
		})
		return err
	})
	if err != nil {
		if apperror.KindOf(err) != apperror.KindInternal {
			return nil, err
		}
		uc.logger.Error("failed to create location", zap.String("account_id", input.AccountID), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return l, nil
}

func (uc *locationUseCase) ListLocations(ctx context.Context, accountID string) ([]model.Location, error) {
	locations, err := uc.repo.FindAll(ctx, accountID)
	if err != nil {
		uc.logger.Error("failed to list locations", zap.String("account_id", accountID), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return locations, nil
}
