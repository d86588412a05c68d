package auth

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/model"
)

// UserContext is the authenticated caller, populated by the middleware.
type UserContext struct {
	AccountID string
	UserID    string
	Role      model.UserRole
}

type userContextKey struct{}

func WithUser(ctx context.Context, u UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

func FromContext(ctx context.Context) (UserContext, bool) {
	u, ok := ctx.Value(userContextKey{}).(UserContext)
	return u, ok && u.AccountID != "" && u.UserID != ""
}

// GetAccountID returns the caller's account, or "" when unauthenticated.
func GetAccountID(ctx context.Context) string {
	u, _ := FromContext(ctx)
	return u.AccountID
}
