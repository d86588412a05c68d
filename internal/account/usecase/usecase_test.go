package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/vialtrack-service/internal/account"
	"github.com/fekuna/vialtrack-service/internal/account/dto"
	auditdto "github.com/fekuna/vialtrack-service/internal/audit/dto"
	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUseCase(t *testing.T, env *testutil.Env) (*accountUseCase, *auth.TokenManager) {
	tokens, err := auth.NewTokenManager("test-secret-0123456789", "vialtrack-test", time.Hour)
	require.NoError(t, err)
	uc := newAccountUseCase(
		env.Store.Accounts(),
		env.Store.Locations(),
		tokens,
		env.Tx,
		env.Audit,
		env.Logger,
		bcrypt.MinCost,
	)
	uc.now = env.Clock()
	return uc, tokens
}

func signup(t *testing.T, uc *accountUseCase, email string) *dto.Session {
	t.Helper()
	session, err := uc.Signup(context.Background(), &dto.SignupInput{
		Email:      email,
		Password:   "correct-horse",
		Name:       "Ana Lima",
		ClinicName: "Lima Skin Studio",
	})
	require.NoError(t, err)
	return session
}

func TestSignup_CreatesAccountOwnerAndDefaultLocation(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, tokens := newTestUseCase(t, env)

	session := signup(t, uc, "  Ana@Lima.Test ")
	assert.Equal(t, "ana@lima.test", session.User.Email)
	assert.Equal(t, model.RoleOwner, session.User.Role)
	assert.Equal(t, model.PlanTrial, session.Account.Plan)
	require.NotNil(t, session.Account.TrialEndsAt)
	assert.True(t, session.Account.TrialEndsAt.Equal(env.Now.Add(14*24*time.Hour)))

	claims, err := tokens.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)
	assert.Equal(t, session.Account.ID, claims.AccountID)

	locations, err := env.Store.Locations().FindAll(context.Background(), session.Account.ID)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, model.DefaultLocationName, locations[0].Name)
	assert.Equal(t, model.LocationStorage, locations[0].Type)

	logs, _, err := env.Store.Audit().FindAll(context.Background(), auditFilters(session.Account.ID))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditUserCreated, logs[0].Action)
}

func TestSignup_DuplicateEmailIsConflict(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, _ := newTestUseCase(t, env)
	signup(t, uc, "dup@clinic.test")

	_, err := uc.Signup(context.Background(), &dto.SignupInput{
		Email: "DUP@clinic.test", Password: "another-pass", Name: "Someone", ClinicName: "Second Clinic",
	})
	assert.True(t, errors.Is(err, account.ErrEmailTaken))
}

func TestSignup_Validation(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, _ := newTestUseCase(t, env)

	tests := []struct {
		name  string
		input dto.SignupInput
	}{
		{"bad email", dto.SignupInput{Email: "not-an-email", Password: "password1", Name: "Ana", ClinicName: "Clinic"}},
		{"short password", dto.SignupInput{Email: "a@b.test", Password: "short", Name: "Ana", ClinicName: "Clinic"}},
		{"short name", dto.SignupInput{Email: "a@b.test", Password: "password1", Name: "A", ClinicName: "Clinic"}},
		{"short clinic", dto.SignupInput{Email: "a@b.test", Password: "password1", Name: "Ana", ClinicName: " C "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Signup(context.Background(), &tt.input)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestLogin(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, _ := newTestUseCase(t, env)
	created := signup(t, uc, "login@clinic.test")

	session, err := uc.Login(context.Background(), &dto.LoginInput{Email: "LOGIN@clinic.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, session.User.ID)
	assert.NotEmpty(t, session.Token)

	logs, _, err := env.Store.Audit().FindAll(context.Background(), auditFilters(created.Account.ID))
	require.NoError(t, err)
	assert.Equal(t, model.AuditLogin, logs[0].Action)

	_, err = uc.Login(context.Background(), &dto.LoginInput{Email: "login@clinic.test", Password: "wrong-horse"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = uc.Login(context.Background(), &dto.LoginInput{Email: "nobody@clinic.test", Password: "correct-horse"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestLogin_InactiveUserIsRejected(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, _ := newTestUseCase(t, env)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, env.Store.Accounts().CreateUser(context.Background(), &model.User{
		BaseModel:    model.BaseModel{ID: "c0ffee00-0000-4000-8000-000000000001"},
		AccountID:    env.AccountID,
		Email:        "gone@clinic.test",
		PasswordHash: string(hash),
		Name:         "Former Staff",
		Role:         model.RoleStaff,
		IsActive:     false,
	}))

	_, err = uc.Login(context.Background(), &dto.LoginInput{Email: "gone@clinic.test", Password: "correct-horse"})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
}

func TestLogout(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, _ := newTestUseCase(t, env)

	require.NoError(t, uc.Logout(context.Background(), env.AccountID, env.UserID))
	logs := env.AuditLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditLogout, logs[0].Action)
}

func TestCreateUser_RoleRules(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, _ := newTestUseCase(t, env)

	input := func(actor model.UserRole, role, email string) *dto.CreateUserInput {
		return &dto.CreateUserInput{
			AccountID: env.AccountID,
			ActorID:   env.UserID,
			ActorRole: actor,
			Email:     email,
			Password:  "password123",
			Name:      "New Person",
			Role:      role,
		}
	}

	admin, err := uc.CreateUser(context.Background(), input(model.RoleOwner, "ADMIN", "admin@glow.test"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	_, err = uc.CreateUser(context.Background(), input(model.RoleAdmin, "STAFF", "staff@glow.test"))
	require.NoError(t, err)

	_, err = uc.CreateUser(context.Background(), input(model.RoleAdmin, "ADMIN", "admin2@glow.test"))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = uc.CreateUser(context.Background(), input(model.RoleStaff, "STAFF", "staff2@glow.test"))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = uc.CreateUser(context.Background(), input(model.RoleOwner, "OWNER", "owner2@glow.test"))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = uc.CreateUser(context.Background(), input(model.RoleOwner, "STAFF", "staff@glow.test"))
	assert.True(t, errors.Is(err, account.ErrEmailTaken))

	users, err := uc.ListUsers(context.Background(), env.AccountID)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestGetAccount(t *testing.T) {
	env := testutil.NewEnv(t)
	uc, _ := newTestUseCase(t, env)

	info, err := uc.GetAccount(context.Background(), env.AccountID, env.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Glow Aesthetics", info.Account.ClinicName)
	assert.Equal(t, env.UserID, info.User.ID)

	otherAccount, _ := env.SeedAccount(t, "Other", "x@other.test")
	_, err = uc.GetAccount(context.Background(), otherAccount, env.UserID)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func auditFilters(accountID string) *auditdto.AuditFilters {
	return &auditdto.AuditFilters{AccountID: accountID}
}
