package clickhouse

import (
	"context"
	"fmt"

	"decay-ledger/internal/domain"
	"decay-ledger/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
//
// MergeTree does not enforce uniqueness at insert time, so event_id
// duplicates are detected with an explicit lookup before the insert.
// The journal is single-writer (the ledger serializes operations), which
// keeps the check-then-insert window safe.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append adds one event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Append(ctx context.Context, e *domain.LedgerEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, e.EventID)
	if err != nil {
		return fmt.Errorf("check event exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO ledger_events (
			event_id, tenant, symbol_code, event_type, from_account, to_account, amount, precision, memo, occurred_at, decay_period, decay_rate_pptm
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	err = s.conn.Exec(ctx, query,
		e.EventID,
		e.Tenant,
		e.SymbolCode,
		string(e.Type),
		e.From,
		e.To,
		e.Amount,
		e.Precision,
		e.Memo,
		e.OccurredAt,
		e.DecayPeriod,
		e.DecayRatePPTM,
	)
	if err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// GetByToken retrieves up to limit events for (tenant, symbolCode),
// ordered by occurred_at ASC. limit <= 0 means no limit.
func (s *EventStore) GetByToken(ctx context.Context, tenant, symbolCode string, limit int) ([]*domain.LedgerEvent, error) {
	query := `
		SELECT event_id, tenant, symbol_code, event_type, from_account, to_account, amount, precision, memo, occurred_at, decay_period, decay_rate_pptm
		FROM ledger_events
		WHERE tenant = $1 AND symbol_code = $2
		ORDER BY occurred_at ASC, event_id ASC
	`
	args := []any{tenant, symbolCode}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events by token: %w", err)
	}
	defer rows.Close()

	var result []*domain.LedgerEvent
	for rows.Next() {
		var (
			e         domain.LedgerEvent
			eventType string
		)
		err := rows.Scan(
			&e.EventID,
			&e.Tenant,
			&e.SymbolCode,
			&eventType,
			&e.From,
			&e.To,
			&e.Amount,
			&e.Precision,
			&e.Memo,
			&e.OccurredAt,
			&e.DecayPeriod,
			&e.DecayRatePPTM,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		e.Type = domain.EventType(eventType)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger events: %w", err)
	}
	return result, nil
}

// exists checks whether an event_id is already journaled.
func (s *EventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM ledger_events WHERE event_id = $1`, eventID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
