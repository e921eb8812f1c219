package postgres

import (
	"context"
	"fmt"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

// SupplyStore implements storage.SupplyStore using PostgreSQL.
//
// Rows carry a surrogate bigserial id as primary key; the logical key is
// the unique (tenant, symbol_code) index.
type SupplyStore struct {
	db querier
}

// NewSupplyStore creates a new SupplyStore.
func NewSupplyStore(pool *Pool) *SupplyStore {
	return &SupplyStore{db: pool}
}

// Compile-time interface check.
var _ storage.SupplyStore = (*SupplyStore)(nil)

// Get retrieves the config for (tenant, symbolCode). Returns ErrNotFound if not exists.
func (s *SupplyStore) Get(ctx context.Context, tenant, symbolCode string) (*domain.TokenConfig, error) {
	query := `
		SELECT tenant, symbol_code, precision, issuer, supply, max_supply, decay_period, decay_rate_pptm
		FROM token_configs
		WHERE tenant = $1 AND symbol_code = $2
	`

	var (
		c         domain.TokenConfig
		code      string
		precision uint8
	)
	err := s.db.QueryRow(ctx, query, tenant, symbolCode).Scan(
		&c.Tenant,
		&code,
		&precision,
		&c.Issuer,
		&c.Supply.Amount,
		&c.MaxSupply.Amount,
		&c.DecayPeriod,
		&c.DecayRatePPTM,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token config: %w", err)
	}

	sym := domain.Symbol{Code: code, Precision: precision}
	c.Supply.Symbol = sym
	c.MaxSupply.Symbol = sym
	return &c, nil
}

// Create inserts a new config. Returns ErrDuplicateKey if (tenant, symbolCode) exists.
func (s *SupplyStore) Create(ctx context.Context, c *domain.TokenConfig) error {
	if c == nil || c.Tenant == "" || !c.Supply.Symbol.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_configs (
			tenant, symbol_code, precision, issuer, supply, max_supply, decay_period, decay_rate_pptm
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		c.Tenant,
		c.Supply.Symbol.Code,
		c.Supply.Symbol.Precision,
		c.Issuer,
		c.Supply.Amount,
		c.MaxSupply.Amount,
		c.DecayPeriod,
		c.DecayRatePPTM,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token config: %w", err)
	}
	return nil
}

// AdjustSupply adds delta to the stored supply. Range checks ride the
// UPDATE itself so the read and the write are one statement.
func (s *SupplyStore) AdjustSupply(ctx context.Context, tenant, symbolCode string, delta int64) error {
	query := `
		UPDATE token_configs
		SET supply = supply + $3
		WHERE tenant = $1 AND symbol_code = $2
		  AND supply + $3 >= 0
		  AND (max_supply < 0 OR supply + $3 <= max_supply)
	`

	tag, err := s.db.Exec(ctx, query, tenant, symbolCode, delta)
	if err != nil {
		return fmt.Errorf("adjust supply: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// No row updated: distinguish a missing config from a range failure.
	if _, err := s.Get(ctx, tenant, symbolCode); err != nil {
		return err
	}
	return storage.ErrSupplyOutOfRange
}

// SetDecayParameters replaces the decay period and rate.
func (s *SupplyStore) SetDecayParameters(ctx context.Context, tenant, symbolCode string, period int64, ratePPTM uint64) error {
	query := `
		UPDATE token_configs
		SET decay_period = $3, decay_rate_pptm = $4
		WHERE tenant = $1 AND symbol_code = $2
	`

	tag, err := s.db.Exec(ctx, query, tenant, symbolCode, period, ratePPTM)
	if err != nil {
		return fmt.Errorf("set decay parameters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes the config. Returns ErrNotFound if not exists.
func (s *SupplyStore) Delete(ctx context.Context, tenant, symbolCode string) error {
	query := `DELETE FROM token_configs WHERE tenant = $1 AND symbol_code = $2`

	tag, err := s.db.Exec(ctx, query, tenant, symbolCode)
	if err != nil {
		return fmt.Errorf("delete token config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
