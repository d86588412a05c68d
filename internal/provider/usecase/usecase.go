package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/vialtrack-service/internal/audit"
	auditdto "github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/fekuna/vialtrack-service/internal/provider"
	"github.com/fekuna/vialtrack-service/internal/provider/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrProviderNotFound = apperror.NotFound("provider not found")

type providerUseCase struct {
	repo   provider.Repository
	tx     transaction.Manager
	audit  audit.Recorder
	logger logger.ZapLogger
	now    func() time.Time
}

func NewProviderUseCase(repo provider.Repository, tx transaction.Manager, rec audit.Recorder, log logger.ZapLogger) provider.UseCase {
	return &providerUseCase{
		repo:   repo,
		tx:     tx,
		audit:  rec,
		logger: log,
		now:    time.Now,
	}
}

func (uc *providerUseCase) CreateProvider(ctx context.Context, input *dto.CreateProviderInput) (*model.Provider, error) {
	// 1. Validate
	name := strings.TrimSpace(input.Name)
	initials := strings.ToUpper(strings.TrimSpace(input.Initials))
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if initials == "" {
		return nil, apperror.Validation("initials are required")
	}
	if utf8.RuneCountInString(initials) > 5 {
		return nil, apperror.Validation("initials must be at most 5 characters")
	}
	var email *string
	if e := strings.TrimSpace(input.Email); e != "" {
		if _, err := mail.ParseAddress(e); err != nil {
			return nil, apperror.Validation("invalid email address")
		}
		email = &e
	}

	p := &model.Provider{
		ID:        uuid.New().String(),
		AccountID: input.AccountID,
		Name:      name,
		Initials:  initials,
		Email:     email,
		IsActive:  true,
		CreatedAt: uc.now(),
	}

	// 2. Persist with audit
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, p); err != nil {
			return err
		}
		_, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditSettingsChanged,
			EntityType:  model.EntityProvider,
			EntityID:    p.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Created provider: %s (%s)", p.Name, p.Initials),
			Metadata:    model.Metadata{"providerName": p.Name, "initials": p.Initials},
		})
		return err
	})
	if err != nil {
		return nil, uc.fail("failed to create provider", input.AccountID, err)
	}
	return p, nil
}

func (uc *providerUseCase) ListProviders(ctx context.Context, accountID string, activeOnly bool) ([]model.Provider, error) {
	providers, err := uc.repo.FindAll(ctx, accountID, activeOnly)
	if err != nil {
		return nil, uc.fail("failed to list providers", accountID, err)
	}
	return providers, nil
}

func (uc *providerUseCase) DeactivateProvider(ctx context.Context, input *dto.DeactivateProviderInput) (*model.Provider, error) {
	var result *model.Provider
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := uc.repo.FindByID(ctx, input.AccountID, input.ID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProviderNotFound
		}
		if !p.IsActive {
			return apperror.Conflict("provider is already inactive")
		}

		p.IsActive = false
		if err := uc.repo.Update(ctx, p); err != nil {
			return err
		}
		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditSettingsChanged,
			EntityType:  model.EntityProvider,
			EntityID:    p.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.UserID,
			Description: fmt.Sprintf("Deactivated provider: %s (%s)", p.Name, p.Initials),
			Metadata:    model.Metadata{"providerName": p.Name, "isActive": false},
		}); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to deactivate provider", input.AccountID, err)
	}
	return result, nil
}

func (uc *providerUseCase) fail(msg, accountID string, err error) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	uc.logger.Error(msg, zap.String("account_id", accountID), zap.Error(err))
	return apperror.Internal(err)
}
