// Package transaction carries an open unit of work through context.Context so
// that repositories from different domains can join the same transaction.
package transaction

import (
	"context"
	"sync"
)

// Manager runs fn inside a single atomic unit of work. If fn returns an error
// every write performed through ctx is rolled back.
type Manager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// State is the per-transaction bookkeeping stored in the context.
type State struct {
	Handle any

	mu    sync.Mutex
	hooks []func()
}

type stateKey struct{}

func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

func FromContext(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok && s != nil
}

// AfterCommit registers fn to run once the enclosing transaction commits. It is
// dropped on rollback. Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	s, ok := FromContext(ctx)
	if !ok {
		fn()
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Committed runs the registered hooks in registration order.
func (s *State) Committed() {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}
