package dto

import (
	"time"

	"github.com/fekuna/vialtrack-service/internal/model"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72
	MinNameLength     = 2
	MaxNameLength     = 120
)

type SignupInput struct {
	Email      string
	Password   string
	Name       string
	ClinicName string
}

type LoginInput struct {
	Email    string
	Password string
}

type CreateUserInput struct {
	AccountID string
	ActorID   string
	ActorRole model.UserRole
	Email     string
	Password  string
	Name      string
	Role      string
}

type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *model.User    `json:"user"`
	Account   *model.Account `json:"account"`
}

type AccountInfo struct {
	Account *model.Account `json:"account"`
	User    *model.User    `json:"user"`
}
