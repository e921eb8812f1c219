package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

func newConfig(tenant, code string, maxSupply int64) *domain.TokenConfig {
	sym := domain.Symbol{Code: code, Precision: 2}
	return &domain.TokenConfig{
		Tenant:        tenant,
		Issuer:        "issuer",
		Supply:        domain.Asset{Amount: 0, Symbol: sym},
		MaxSupply:     domain.Asset{Amount: maxSupply, Symbol: sym},
		DecayPeriod:   86400,
		DecayRatePPTM: 200_000,
	}
}

func TestSupplyStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSupplyStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConfig("dao", "VOICE", -1)))

	got, err := store.Get(ctx, "dao", "VOICE")
	require.NoError(t, err)

	assert.Equal(t, "dao", got.Tenant)
	assert.Equal(t, "issuer", got.Issuer)
	assert.Equal(t, int64(0), got.Supply.Amount)
	assert.Equal(t, int64(-1), got.MaxSupply.Amount)
	assert.Equal(t, domain.Symbol{Code: "VOICE", Precision: 2}, got.Supply.Symbol)
	assert.Equal(t, int64(86400), got.DecayPeriod)
	assert.Equal(t, uint64(200_000), got.DecayRatePPTM)
}

func TestSupplyStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSupplyStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConfig("dao", "VOICE", -1)))

	err := store.Create(ctx, newConfig("dao", "VOICE", -1))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same code under another tenant is a distinct row.
	assert.NoError(t, store.Create(ctx, newConfig("otherdao", "VOICE", -1)))
}

func TestSupplyStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSupplyStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, "dao", "NONE")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "dao", "NONE"), storage.ErrNotFound)
	assert.ErrorIs(t, store.AdjustSupply(ctx, "dao", "NONE", 1), storage.ErrNotFound)
	assert.ErrorIs(t, store.SetDecayParameters(ctx, "dao", "NONE", 10, 1), storage.ErrNotFound)
}

func TestSupplyStore_AdjustSupply(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSupplyStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConfig("dao", "VOICE", 100)))

	require.NoError(t, store.AdjustSupply(ctx, "dao", "VOICE", 60))
	require.NoError(t, store.AdjustSupply(ctx, "dao", "VOICE", -10))

	got, err := store.Get(ctx, "dao", "VOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Supply.Amount)

	// Over the cap and below zero both leave the row untouched.
	assert.ErrorIs(t, store.AdjustSupply(ctx, "dao", "VOICE", 51), storage.ErrSupplyOutOfRange)
	assert.ErrorIs(t, store.AdjustSupply(ctx, "dao", "VOICE", -51), storage.ErrSupplyOutOfRange)

	got, err = store.Get(ctx, "dao", "VOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Supply.Amount)
}

func TestSupplyStore_AdjustSupplyUncapped(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSupplyStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConfig("dao", "VOICE", -1)))
	assert.NoError(t, store.AdjustSupply(ctx, "dao", "VOICE", 1_000_000_000))
}

func TestSupplyStore_SetDecayParameters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSupplyStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConfig("dao", "VOICE", -1)))
	require.NoError(t, store.SetDecayParameters(ctx, "dao", "VOICE", 3600, 500_000))

	got, err := store.Get(ctx, "dao", "VOICE")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), got.DecayPeriod)
	assert.Equal(t, uint64(500_000), got.DecayRatePPTM)
}

func TestSupplyStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSupplyStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConfig("dao", "VOICE", -1)))
	require.NoError(t, store.Delete(ctx, "dao", "VOICE"))

	_, err := store.Get(ctx, "dao", "VOICE")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
