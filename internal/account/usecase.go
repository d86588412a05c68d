package account

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/account/dto"
	"github.com/fekuna/vialtrack-service/internal/model"
)

type UseCase interface {
	Signup(ctx context.Context, input *dto.SignupInput) (*dto.Session, error)
	Login(ctx context.Context, input *dto.LoginInput) (*dto.Session, error)
	Logout(ctx context.Context, accountID, userID string) error
	CreateUser(ctx context.Context, input *dto.CreateUserInput) (*model.User, error)
	ListUsers(ctx context.Context, accountID string) ([]model.User, error)
	GetAccount(ctx context.Context, accountID, userID string) (*dto.AccountInfo, error)
}
