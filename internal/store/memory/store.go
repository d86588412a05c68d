// Package memory is a process-local backend implementing every repository.
// It is used when postgres is disabled and by use-case tests.
package memory

import (
	"sync"

	"github.com/fekuna/vialtrack-service/internal/account"
	"github.com/fekuna/vialtrack-service/internal/audit"
	"github.com/fekuna/vialtrack-service/internal/discrepancy"
	"github.com/fekuna/vialtrack-service/internal/location"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/fekuna/vialtrack-service/internal/product"
	"github.com/fekuna/vialtrack-service/internal/provider"
	"github.com/fekuna/vialtrack-service/internal/usage"
	"github.com/fekuna/vialtrack-service/internal/vial"
)

type tables struct {
	accounts      map[string]model.Account
	users         map[string]model.User
	products      map[string]model.Product
	locations     map[string]model.Location
	providers     map[string]model.Provider
	vials         map[string]model.Vial
	discrepancies map[string]model.Discrepancy
	usage         []model.UsageLog
	audit         []model.AuditLog
}

func newTables() *tables {
	return &tables{
		accounts:      map[string]model.Account{},
		users:         map[string]model.User{},
		products:      map[string]model.Product{},
		locations:     map[string]model.Location{},
		providers:     map[string]model.Provider{},
		vials:         map[string]model.Vial{},
		discrepancies: map[string]model.Discrepancy{},
	}
}

// clone copies every table. Stored rows never share mutable state with
// callers, so copying the maps is enough.
func (t *tables) clone() *tables {
	c := &tables{
		accounts:      cloneMap(t.accounts),
		users:         cloneMap(t.users),
		products:      cloneMap(t.products),
		locations:     cloneMap(t.locations),
		providers:     cloneMap(t.providers),
		vials:         cloneMap(t.vials),
		discrepancies: cloneMap(t.discrepancies),
		usage:         append([]model.UsageLog(nil), t.usage...),
		audit:         append([]model.AuditLog(nil), t.audit...),
	}
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store holds all tables behind one lock. Transactions are serialized by
// txMu; mu guards individual reads and writes.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *tables
}

func NewStore() *Store {
	return &Store{data: newTables()}
}

func (s *Store) read(fn func(t *tables)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(t *tables) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

func (s *Store) Locations() *LocationRepository { return &LocationRepository{s: s} }

func (s *Store) Providers() *ProviderRepository { return &ProviderRepository{s: s} }

func (s *Store) Vials() *VialRepository { return &VialRepository{s: s} }

func (s *Store) Usage() *UsageRepository { return &UsageRepository{s: s} }

func (s *Store) Audit() *AuditRepository { return &AuditRepository{s: s} }

func (s *Store) Discrepancies() *DiscrepancyRepository { return &DiscrepancyRepository{s: s} }

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var (
	_ account.Repository     = (*AccountRepository)(nil)
	_ product.Repository     = (*ProductRepository)(nil)
	_ location.Repository    = (*LocationRepository)(nil)
	_ provider.Repository    = (*ProviderRepository)(nil)
	_ vial.Repository        = (*VialRepository)(nil)
	_ usage.Repository       = (*UsageRepository)(nil)
	_ audit.Repository       = (*AuditRepository)(nil)
	_ discrepancy.Repository = (*DiscrepancyRepository)(nil)
	_ transaction.Manager    = (*TxManager)(nil)
)
