package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

// BalanceStore is an in-memory implementation of storage.BalanceStore.
type BalanceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AccountBalance // keyed by tenant|symbol|owner
}

// NewBalanceStore creates a new in-memory balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{
		data: make(map[string]*domain.AccountBalance),
	}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// balanceKey generates the composite key for a balance row.
func balanceKey(tenant, symbolCode, owner string) string {
	return fmt.Sprintf("%s|%s|%s", tenant, symbolCode, owner)
}

// Get retrieves the balance row for (tenant, symbolCode, owner).
func (s *BalanceStore) Get(_ context.Context, tenant, symbolCode, owner string) (*domain.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.data[balanceKey(tenant, symbolCode, owner)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *b
	return &copy, nil
}

// Upsert inserts or replaces the balance row.
func (s *BalanceStore) Upsert(_ context.Context, b *domain.AccountBalance) error {
	if b == nil || b.Tenant == "" || b.Owner == "" || !b.Balance.Symbol.IsValid() {
		return storage.ErrInvalidInput
	}

	key := balanceKey(b.Tenant, b.Balance.Symbol.Code, b.Owner)

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *b
	s.data[key] = &copy
	return nil
}

// Delete removes the balance row.
func (s *BalanceStore) Delete(_ context.Context, tenant, symbolCode, owner string) error {
	key := balanceKey(tenant, symbolCode, owner)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// ListByToken retrieves every balance row for (tenant, symbolCode),
// ordered by owner ASC.
func (s *BalanceStore) ListByToken(_ context.Context, tenant, symbolCode string) ([]*domain.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AccountBalance
	for _, b := range s.data {
		if b.Tenant == tenant && b.Balance.Symbol.Code == symbolCode {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Owner < result[j].Owner
	})

	return result, nil
}
