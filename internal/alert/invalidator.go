package alert

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
)

// Invalidator drops cached dashboard aggregates for an account.
type Invalidator interface {
	Invalidate(ctx context.Context, accountID string)
}

// InvalidateAfterCommit schedules an invalidation for when the transaction in
// ctx commits. A nil inv is a no-op.
func InvalidateAfterCommit(ctx context.Context, inv Invalidator, accountID string) {
	if inv == nil {
		return
	}
	transaction.AfterCommit(ctx, func() {
		inv.Invalidate(context.Background(), accountID)
	})
}
