package alert

import (
	"context"
	"time"

	"github.com/fekuna/vialtrack-service/internal/alert/dto"
)

type UseCase interface {
	Invalidator
	Dashboard(ctx context.Context, accountID string) (*dto.Dashboard, error)
}

// Cache is the subset of the redis client the dashboard needs.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
