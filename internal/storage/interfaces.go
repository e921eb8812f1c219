package storage

import (
	"context"

	"decay-ledger/internal/domain"
)

// SupplyStore provides access to token_configs storage.
//
// Keys are explicit (tenant, symbolCode) tuples. Backends enforce
// uniqueness through a secondary unique index, never through packed keys.
type SupplyStore interface {
	// Get retrieves the config for (tenant, symbolCode). Returns ErrNotFound if not exists.
	Get(ctx context.Context, tenant, symbolCode string) (*domain.TokenConfig, error)

	// Create inserts a new config. Returns ErrDuplicateKey if (tenant, symbolCode) exists.
	Create(ctx context.Context, c *domain.TokenConfig) error

	// AdjustSupply adds delta (may be negative) to the stored supply.
	// Returns ErrSupplyOutOfRange if the result would be negative or
	// exceed a non-negative max supply, ErrNotFound if no config exists.
	AdjustSupply(ctx context.Context, tenant, symbolCode string, delta int64) error

	// SetDecayParameters replaces the decay period and rate. The change
	// takes effect on the next decay evaluation only; no balances are
	// recomputed retroactively. Returns ErrNotFound if no config exists.
	SetDecayParameters(ctx context.Context, tenant, symbolCode string, period int64, ratePPTM uint64) error

	// Delete removes the config. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, tenant, symbolCode string) error
}

// BalanceStore provides access to account_balances storage.
type BalanceStore interface {
	// Get retrieves the balance row for (tenant, symbolCode, owner).
	// Returns ErrNotFound if not exists.
	Get(ctx context.Context, tenant, symbolCode, owner string) (*domain.AccountBalance, error)

	// Upsert inserts or replaces the balance row keyed by
	// (tenant, symbol, owner) carried on b.
	Upsert(ctx context.Context, b *domain.AccountBalance) error

	// Delete removes the balance row. Returns ErrNotFound if not exists.
	// Zero-balance preconditions are enforced by the ledger, not here.
	Delete(ctx context.Context, tenant, symbolCode, owner string) error

	// ListByToken retrieves every balance row for (tenant, symbolCode),
	// ordered by owner ASC.
	ListByToken(ctx context.Context, tenant, symbolCode string) ([]*domain.AccountBalance, error)
}

// TxRunner scopes a multi-row mutation to one atomic unit. The stores
// handed to fn write into the same transaction: either every write
// commits or none does.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(balances BalanceStore, supplies SupplyStore) error) error
}

// EventStore provides access to the append-only ledger event journal.
type EventStore interface {
	// Append adds one event. Returns ErrDuplicateKey if event_id exists.
	Append(ctx context.Context, e *domain.LedgerEvent) error

	// GetByToken retrieves up to limit events for (tenant, symbolCode),
	// ordered by occurred_at ASC. limit <= 0 means no limit.
	GetByToken(ctx context.Context, tenant, symbolCode string, limit int) ([]*domain.LedgerEvent, error)
}
