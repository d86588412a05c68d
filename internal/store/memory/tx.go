package memory

import (
	"context"

	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
)

// TxManager serializes transactions over a Store and restores a snapshot
// when fn fails or panics.
type TxManager struct {
	s *Store
}

func NewTxManager(s *Store) *TxManager {
	return &TxManager{s: s}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := transaction.FromContext(ctx); ok {
		return fn(ctx)
	}

	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.RLock()
	snapshot := m.s.data.clone()
	m.s.mu.RUnlock()

	rollback := func() {
		m.s.mu.Lock()
		m.s.data = snapshot
		m.s.mu.Unlock()
	}

	state := &transaction.State{Handle: m.s}
	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err := fn(transaction.WithState(ctx, state)); err != nil {
		rollback()
		return err
	}
	state.Committed()
	return nil
}
