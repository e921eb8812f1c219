package domain

// EventType classifies a committed ledger operation.
type EventType string

// Ledger event types, one per mutating operation.
const (
	EventCreate        EventType = "create"
	EventIssue         EventType = "issue"
	EventTransfer      EventType = "transfer"
	EventBurn          EventType = "burn"
	EventOpen          EventType = "open"
	EventClose         EventType = "close"
	EventDecay         EventType = "decay"
	EventSetDecay      EventType = "set_decay"
	EventDeleteToken   EventType = "delete_token"
	EventDeleteBalance EventType = "delete_balance"
)

// LedgerEvent is an immutable record of one committed operation,
// appended to the event journal and broadcast to feed subscribers.
// Corresponds to the ledger_events table in ClickHouse.
type LedgerEvent struct {
	EventID    string    `json:"event_id"` // deterministic hash, base58
	Tenant     string    `json:"tenant"`
	SymbolCode string    `json:"symbol_code"`
	Type       EventType `json:"type"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Amount     int64     `json:"amount"`
	Precision  uint8     `json:"precision"`
	Memo       string    `json:"memo,omitempty"`
	OccurredAt int64     `json:"occurred_at"` // Unix timestamp in seconds

	// Decay parameters carried by create and set_decay events.
	DecayPeriod   int64  `json:"decay_period,omitempty"`
	DecayRatePPTM uint64 `json:"decay_rate_pptm,omitempty"`
}
