package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/vialtrack-service/internal/account"
	"github.com/fekuna/vialtrack-service/internal/account/dto"
	"github.com/fekuna/vialtrack-service/internal/audit"
	auditdto "github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/location"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = apperror.Unauthorized("invalid email or password")
	ErrAccountNotFound    = apperror.NotFound("account not found")
	ErrUserNotFound       = apperror.NotFound("user not found")
)

// Tokens issues session tokens for authenticated users.
type Tokens interface {
	Issue(user *model.User) (string, time.Time, error)
}

type accountUseCase struct {
	repo      account.Repository
	locations location.Repository
	tokens    Tokens
	tx        transaction.Manager
	audit     audit.Recorder
	logger    logger.ZapLogger
	cost      int
	now       func() time.Time

	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash []byte
}

func NewAccountUseCase(
	repo account.Repository,
	locations location.Repository,
	tokens Tokens,
	tx transaction.Manager,
	rec audit.Recorder,
	log logger.ZapLogger,
) account.UseCase {
	return newAccountUseCase(repo, locations, tokens, tx, rec, log, bcrypt.DefaultCost)
}

func newAccountUseCase(
	repo account.Repository,
	locations location.Repository,
	tokens Tokens,
	tx transaction.Manager,
	rec audit.Recorder,
	log logger.ZapLogger,
	cost int,
) *accountUseCase {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("vialtrack-placeholder"), cost)
	return &accountUseCase{
		repo:      repo,
		locations: locations,
		tokens:    tokens,
		tx:        tx,
		audit:     rec,
		logger:    log,
		cost:      cost,
		now:       time.Now,
		dummyHash: dummy,
	}
}

func (uc *accountUseCase) Signup(ctx context.Context, input *dto.SignupInput) (*dto.Session, error) {
	// 1. Validate
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	name, err := validateName("name", input.Name)
	if err != nil {
		return nil, err
	}
	clinic, err := validateName("clinic_name", input.ClinicName)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), uc.cost)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("hash password: %w", err))
	}

	// 2. Account, owner, default location and audit row commit together
	var acc *model.Account
	var user *model.User
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := uc.repo.FindUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return account.ErrEmailTaken
		}

		now := uc.now()
		trialEnds := now.Add(model.TrialPeriod)
		a := &model.Account{
			BaseModel:          model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			ClinicName:         clinic,
			Plan:               model.PlanTrial,
			SubscriptionStatus: model.SubscriptionTrial,
			TrialEndsAt:        &trialEnds,
		}
		if err := uc.repo.CreateAccount(ctx, a); err != nil {
			return err
		}

		u := &model.User{
			BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			AccountID:    a.ID,
			Email:        email,
			PasswordHash: string(hash),
			Name:         name,
			Role:         model.RoleOwner,
			IsActive:     true,
		}
		if err := uc.repo.CreateUser(ctx, u); err != nil {
			return err
		}

		if err := uc.locations.Create(ctx, &model.Location{
			ID:        uuid.New().String(),
			AccountID: a.ID,
			Name:      model.DefaultLocationName,
			Type:      model.LocationStorage,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   a.ID,
			Action:      model.AuditUserCreated,
			EntityType:  model.EntityUser,
			EntityID:    u.ID,
			ActorType:   model.ActorUser,
			UserID:      &u.ID,
			Description: fmt.Sprintf("Account created for %s", clinic),
			Metadata:    model.Metadata{"email": email, "role": u.Role, "clinicName": clinic},
		}); err != nil {
			return err
		}
		acc, user = a, u
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to sign up", "", err)
	}

	return uc.session(acc, user)
}

func (uc *accountUseCase) Login(ctx context.Context, input *dto.LoginInput) (*dto.Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := uc.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, uc.fail("failed to find user", "", err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(uc.dummyHash, []byte(input.Password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	acc, err := uc.repo.FindAccountByID(ctx, user.AccountID)
	if err != nil {
		return nil, uc.fail("failed to find account", user.AccountID, err)
	}
	if acc == nil {
		return nil, ErrInvalidCredentials
	}

	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   acc.ID,
			Action:      model.AuditLogin,
			EntityType:  model.EntityUser,
			EntityID:    user.ID,
			ActorType:   model.ActorUser,
			UserID:      &user.ID,
			Description: fmt.Sprintf("%s logged in", user.Name),
			Metadata:    model.Metadata{"email": user.Email},
		})
		return err
	})
	if err != nil {
		return nil, uc.fail("failed to record login", acc.ID, err)
	}

	return uc.session(acc, user)
}

func (uc *accountUseCase) Logout(ctx context.Context, accountID, userID string) error {
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := uc.repo.FindUserByID(ctx, accountID, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		_, err = uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   accountID,
			Action:      model.AuditLogout,
			EntityType:  model.EntityUser,
			EntityID:    user.ID,
			ActorType:   model.ActorUser,
			UserID:      &user.ID,
			Description: fmt.Sprintf("%s logged out", user.Name),
		})
		return err
	})
	if err != nil {
		return uc.fail("failed to record logout", accountID, err)
	}
	return nil
}

func (uc *accountUseCase) CreateUser(ctx context.Context, input *dto.CreateUserInput) (*model.User, error) {
	// 1. Authorize
	if !input.ActorRole.CanManageUsers() {
		return nil, apperror.Forbidden("only owners and admins can add users")
	}
	role := model.UserRole(input.Role)
	if role != model.RoleAdmin && role != model.RoleStaff {
		return nil, apperror.Validation("role must be ADMIN or STAFF")
	}
	if role == model.RoleAdmin && input.ActorRole != model.RoleOwner {
		return nil, apperror.Forbidden("only owners can add admins")
	}

	// 2. Validate
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	name, err := validateName("name", input.Name)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), uc.cost)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("hash password: %w", err))
	}

	// 3. Persist
	var created *model.User
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := uc.repo.FindUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return account.ErrEmailTaken
		}

		now := uc.now()
		u := &model.User{
			BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			AccountID:    input.AccountID,
			Email:        email,
			PasswordHash: string(hash),
			Name:         name,
			Role:         role,
			IsActive:     true,
		}
		if err := uc.repo.CreateUser(ctx, u); err != nil {
			return err
		}
		if _, err := uc.audit.Record(ctx, &auditdto.Entry{
			AccountID:   input.AccountID,
			Action:      model.AuditUserCreated,
			EntityType:  model.EntityUser,
			EntityID:    u.ID,
			ActorType:   model.ActorUser,
			UserID:      &input.ActorID,
			Description: fmt.Sprintf("Added %s as %s", u.Name, u.Role),
			Metadata:    model.Metadata{"email": u.Email, "role": u.Role},
		}); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, uc.fail("failed to create user", input.AccountID, err)
	}
	return created, nil
}

func (uc *accountUseCase) ListUsers(ctx context.Context, accountID string) ([]model.User, error) {
	users, err := uc.repo.FindUsers(ctx, accountID)
	if err != nil {
		return nil, uc.fail("failed to list users", accountID, err)
	}
	return users, nil
}

func (uc *accountUseCase) GetAccount(ctx context.Context, accountID, userID string) (*dto.AccountInfo, error) {
	acc, err := uc.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, uc.fail("failed to get account", accountID, err)
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	user, err := uc.repo.FindUserByID(ctx, accountID, userID)
	if err != nil {
		return nil, uc.fail("failed to get user", accountID, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return &dto.AccountInfo{Account: acc, User: user}, nil
}

func (uc *accountUseCase) session(acc *model.Account, user *model.User) (*dto.Session, error) {
	token, expiresAt, err := uc.tokens.Issue(user)
	if err != nil {
		return nil, uc.fail("failed to issue token", acc.ID, err)
	}
	return &dto.Session{Token: token, ExpiresAt: expiresAt, User: user, Account: acc}, nil
}

func (uc *accountUseCase) fail(msg, accountID string, err error) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	uc.logger.Error(msg, zap.String("account_id", accountID), zap.Error(err))
	return apperror.Internal(err)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.Validation("email is invalid")
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < dto.MinPasswordLength {
		return apperror.Validation(fmt.Sprintf("password must be at least %d characters", dto.MinPasswordLength))
	}
	// bcrypt reads at most 72 bytes.
	if len(password) > dto.MaxPasswordLength {
		return apperror.Validation(fmt.Sprintf("password must be at most %d bytes", dto.MaxPasswordLength))
	}
	return nil
}

func validateName(field, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < dto.MinNameLength || n > dto.MaxNameLength {
		return "", apperror.Validation(fmt.Sprintf("%s must be between %d and %d characters", field, dto.MinNameLength, dto.MaxNameLength))
	}
	return name, nil
}
