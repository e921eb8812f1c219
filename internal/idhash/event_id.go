// Package idhash computes deterministic identifiers for ledger records.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(tenant|symbol_code|type|from|to|amount|occurred_at|nonce|seq)
// where seq is the ledger's per-process event sequence number, included so
// identical operations committed within the same second stay distinct, and
// nonce is drawn once per process so a restart (which resets seq) cannot
// reproduce an ID already minted for an identical operation.
// Returns the base58-encoded hash.
func ComputeEventID(
	tenant string,
	symbolCode string,
	eventType string,
	from string,
	to string,
	amount int64,
	occurredAt int64,
	nonce uint64,
	seq uint64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%d|%d",
		tenant,
		symbolCode,
		eventType,
		from,
		to,
		amount,
		occurredAt,
		nonce,
		seq,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
