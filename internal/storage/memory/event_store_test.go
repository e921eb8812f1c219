package memory

import (
	"context"
	"errors"
	"testing"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

func testEvent(id string, occurredAt int64) *domain.LedgerEvent {
	return &domain.LedgerEvent{
		EventID:    id,
		Tenant:     "dao",
		SymbolCode: "VOICE",
		Type:       domain.EventIssue,
		To:         "issuer",
		Amount:     100,
		Precision:  2,
		OccurredAt: occurredAt,
	}
}

func TestEventStore_AppendAndGet(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	if err := store.Append(ctx, testEvent("e1", 10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, testEvent("e2", 20)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := store.GetByToken(ctx, "dao", "VOICE", 0)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventID != "e1" || events[1].EventID != "e2" {
		t.Errorf("unexpected order: %s %s", events[0].EventID, events[1].EventID)
	}
}

func TestEventStore_DuplicateID(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	if err := store.Append(ctx, testEvent("e1", 10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, testEvent("e1", 20)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestEventStore_Limit(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, testEvent(id, int64(i))); err != nil {
			t.Fatal(err)
		}
	}

	events, err := store.GetByToken(ctx, "dao", "VOICE", 2)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events with limit, got %d", len(events))
	}
}

func TestEventStore_FiltersByToken(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	other := testEvent("x", 5)
	other.Tenant = "otherdao"
	if err := store.Append(ctx, other); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, testEvent("e1", 10)); err != nil {
		t.Fatal(err)
	}

	events, _ := store.GetByToken(ctx, "dao", "VOICE", 0)
	if len(events) != 1 || events[0].EventID != "e1" {
		t.Errorf("expected only dao events, got %+v", events)
	}
}
