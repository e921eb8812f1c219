package memory

import (
	"context"
	"fmt"
	"sync"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

// SupplyStore is an in-memory implementation of storage.SupplyStore.
type SupplyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenConfig // keyed by tenant|symbol
}

// NewSupplyStore creates a new in-memory supply store.
func NewSupplyStore() *SupplyStore {
	return &SupplyStore{
		data: make(map[string]*domain.TokenConfig),
	}
}

// Compile-time interface check.
var _ storage.SupplyStore = (*SupplyStore)(nil)

// tokenKey generates the composite key for a token config.
func tokenKey(tenant, symbolCode string) string {
	return fmt.Sprintf("%s|%s", tenant, symbolCode)
}

// Get retrieves the config for (tenant, symbolCode).
func (s *SupplyStore) Get(_ context.Context, tenant, symbolCode string) (*domain.TokenConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[tokenKey(tenant, symbolCode)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *c
	return &copy, nil
}

// Create inserts a new config. Returns ErrDuplicateKey if it exists.
func (s *SupplyStore) Create(_ context.Context, c *domain.TokenConfig) error {
	if c == nil || c.Tenant == "" || !c.Supply.Symbol.IsValid() {
		return storage.ErrInvalidInput
	}

	key := tokenKey(c.Tenant, c.Supply.Symbol.Code)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *c
	s.data[key] = &copy
	return nil
}

// AdjustSupply adds delta to the stored supply, enforcing range.
func (s *SupplyStore) AdjustSupply(_ context.Context, tenant, symbolCode string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[tokenKey(tenant, symbolCode)]
	if !ok {
		return storage.ErrNotFound
	}

	next := c.Supply.Amount + delta
	if next < 0 {
		return storage.ErrSupplyOutOfRange
	}
	if c.MaxSupply.Amount >= 0 && next > c.MaxSupply.Amount {
		return storage.ErrSupplyOutOfRange
	}

	c.Supply.Amount = next
	return nil
}

// SetDecayParameters replaces the decay period and rate.
func (s *SupplyStore) SetDecayParameters(_ context.Context, tenant, symbolCode string, period int64, ratePPTM uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[tokenKey(tenant, symbolCode)]
	if !ok {
		return storage.ErrNotFound
	}

	c.DecayPeriod = period
	c.DecayRatePPTM = ratePPTM
	return nil
}

// Delete removes the config.
func (s *SupplyStore) Delete(_ context.Context, tenant, symbolCode string) error {
	key := tokenKey(tenant, symbolCode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}
