package account

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
)

// ErrEmailTaken is returned by CreateUser when the email is already
// registered to any account.
var ErrEmailTaken = apperror.New(apperror.KindConflict, "email_taken", "email is already registered")

type Repository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	FindAccountByID(ctx context.Context, id string) (*model.Account, error)
	CreateUser(ctx context.Context, user *model.User) error
	FindUserByID(ctx context.Context, accountID, id string) (*model.User, error)
	// FindUserByEmail looks across all accounts; emails are globally unique.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUsers(ctx context.Context, accountID string) ([]model.User, error)
}
