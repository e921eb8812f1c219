package memory

import (
	"context"
	"sort"
	"sync"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	byID   map[string]struct{}
	events []*domain.LedgerEvent // append order
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		byID: make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append adds one event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Append(_ context.Context, e *domain.LedgerEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.byID[e.EventID] = struct{}{}
	s.events = append(s.events, &copy)
	return nil
}

// GetByToken retrieves up to limit events for (tenant, symbolCode),
// ordered by occurred_at ASC. limit <= 0 means no limit.
func (s *EventStore) GetByToken(_ context.Context, tenant, symbolCode string, limit int) ([]*domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEvent
	for _, e := range s.events {
		if e.Tenant == tenant && e.SymbolCode == symbolCode {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt < result[j].OccurredAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
