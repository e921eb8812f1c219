package domain

// AccountBalance is one owner's balance of one token within one tenant.
// Corresponds to the account_balances table.
//
// LastDecayCheckpoint records the last moment decay was computed and
// committed for this row. It only ever moves forward, and always by whole
// decay periods, so partial elapsed time carries into the next evaluation.
type AccountBalance struct {
	Tenant              string
	Owner               string
	Balance             Asset
	LastDecayCheckpoint int64 // Unix timestamp in seconds
}
