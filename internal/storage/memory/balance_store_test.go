package memory

import (
	"context"
	"errors"
	"testing"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

func testBalance(tenant, owner string, amount int64) *domain.AccountBalance {
	return &domain.AccountBalance{
		Tenant:              tenant,
		Owner:               owner,
		Balance:             domain.Asset{Amount: amount, Symbol: domain.Symbol{Code: "VOICE", Precision: 2}},
		LastDecayCheckpoint: 1_700_000_000,
	}
}

func TestBalanceStore_UpsertAndGet(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testBalance("dao", "alice", 100)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "dao", "VOICE", "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Balance.Amount != 100 {
		t.Errorf("expected balance 100, got %d", got.Balance.Amount)
	}
	if got.LastDecayCheckpoint != 1_700_000_000 {
		t.Errorf("checkpoint mismatch: %d", got.LastDecayCheckpoint)
	}
}

func TestBalanceStore_UpsertReplaces(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testBalance("dao", "alice", 100)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	updated := testBalance("dao", "alice", 90)
	updated.LastDecayCheckpoint = 1_700_000_010
	if err := store.Upsert(ctx, updated); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, _ := store.Get(ctx, "dao", "VOICE", "alice")
	if got.Balance.Amount != 90 || got.LastDecayCheckpoint != 1_700_000_010 {
		t.Errorf("row not replaced: %+v", got)
	}
}

func TestBalanceStore_NotFound(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "dao", "VOICE", "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "dao", "VOICE", "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestBalanceStore_Delete(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testBalance("dao", "alice", 0)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, "dao", "VOICE", "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "dao", "VOICE", "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected row gone, got %v", err)
	}
}

func TestBalanceStore_KeysDoNotCollide(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	// Same owner under two tenants, two owners under one tenant.
	if err := store.Upsert(ctx, testBalance("dao", "alice", 1)); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, testBalance("otherdao", "alice", 2)); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, testBalance("dao", "bob", 3)); err != nil {
		t.Fatal(err)
	}

	a, _ := store.Get(ctx, "dao", "VOICE", "alice")
	b, _ := store.Get(ctx, "otherdao", "VOICE", "alice")
	c, _ := store.Get(ctx, "dao", "VOICE", "bob")
	if a.Balance.Amount != 1 || b.Balance.Amount != 2 || c.Balance.Amount != 3 {
		t.Errorf("composite keys collided: %d %d %d", a.Balance.Amount, b.Balance.Amount, c.Balance.Amount)
	}
}

func TestBalanceStore_ListByToken(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	for _, b := range []*domain.AccountBalance{
		testBalance("dao", "carol", 3),
		testBalance("dao", "alice", 1),
		testBalance("otherdao", "bob", 9),
		testBalance("dao", "bob", 2),
	} {
		if err := store.Upsert(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := store.ListByToken(ctx, "dao", "VOICE")
	if err != nil {
		t.Fatalf("ListByToken failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// Ordered by owner ASC.
	if rows[0].Owner != "alice" || rows[1].Owner != "bob" || rows[2].Owner != "carol" {
		t.Errorf("unexpected order: %s %s %s", rows[0].Owner, rows[1].Owner, rows[2].Owner)
	}
}

func TestBalanceStore_GetReturnsCopy(t *testing.T) {
	store := NewBalanceStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testBalance("dao", "alice", 100)); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(ctx, "dao", "VOICE", "alice")
	got.Balance.Amount = 0

	again, _ := store.Get(ctx, "dao", "VOICE", "alice")
	if again.Balance.Amount != 100 {
		t.Error("mutating a returned row must not affect the store")
	}
}
