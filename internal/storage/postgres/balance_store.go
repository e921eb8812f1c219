package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

// BalanceStore implements storage.BalanceStore using PostgreSQL.
//
// The table is keyed by a surrogate bigserial id; the logical key is the
// unique (owner, tenant, symbol_code) index, owner first to mirror the
// owner-scoped layout of the account table.
type BalanceStore struct {
	db querier
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(pool *Pool) *BalanceStore {
	return &BalanceStore{db: pool}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// Get retrieves the balance row for (tenant, symbolCode, owner).
func (s *BalanceStore) Get(ctx context.Context, tenant, symbolCode, owner string) (*domain.AccountBalance, error) {
	query := `
		SELECT tenant, owner, symbol_code, precision, balance, last_decay_at
		FROM account_balances
		WHERE tenant = $1 AND symbol_code = $2 AND owner = $3
	`

	row, err := scanBalance(s.db.QueryRow(ctx, query, tenant, symbolCode, owner))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return row, nil
}

// Upsert inserts or replaces the balance row.
func (s *BalanceStore) Upsert(ctx context.Context, b *domain.AccountBalance) error {
	if b == nil || b.Tenant == "" || b.Owner == "" || !b.Balance.Symbol.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO account_balances (
			owner, tenant, symbol_code, precision, balance, last_decay_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner, tenant, symbol_code)
		DO UPDATE SET balance = EXCLUDED.balance, last_decay_at = EXCLUDED.last_decay_at
	`

	_, err := s.db.Exec(ctx, query,
		b.Owner,
		b.Tenant,
		b.Balance.Symbol.Code,
		b.Balance.Symbol.Precision,
		b.Balance.Amount,
		b.LastDecayCheckpoint,
	)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// Delete removes the balance row. Returns ErrNotFound if not exists.
func (s *BalanceStore) Delete(ctx context.Context, tenant, symbolCode, owner string) error {
	query := `
		DELETE FROM account_balances
		WHERE tenant = $1 AND symbol_code = $2 AND owner = $3
	`

	tag, err := s.db.Exec(ctx, query, tenant, symbolCode, owner)
	if err != nil {
		return fmt.Errorf("delete balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByToken retrieves every balance row for (tenant, symbolCode),
// ordered by owner ASC.
func (s *BalanceStore) ListByToken(ctx context.Context, tenant, symbolCode string) ([]*domain.AccountBalance, error) {
	query := `
		SELECT tenant, owner, symbol_code, precision, balance, last_decay_at
		FROM account_balances
		WHERE tenant = $1 AND symbol_code = $2
		ORDER BY owner ASC
	`

	rows, err := s.db.Query(ctx, query, tenant, symbolCode)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var result []*domain.AccountBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return result, nil
}

// scanBalance reads one account_balances row.
func scanBalance(row pgx.Row) (*domain.AccountBalance, error) {
	var (
		b         domain.AccountBalance
		code      string
		precision uint8
	)
	err := row.Scan(
		&b.Tenant,
		&b.Owner,
		&code,
		&precision,
		&b.Balance.Amount,
		&b.LastDecayCheckpoint,
	)
	if err != nil {
		return nil, err
	}
	b.Balance.Symbol = domain.Symbol{Code: code, Precision: precision}
	return &b, nil
}
