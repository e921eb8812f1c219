package ledger

import "errors"

// Operation errors. Every precondition violation aborts the whole operation
// with no partial writes; callers match the category with errors.Is and the
// wrapped message carries the human-readable reason.
var (
	// ErrValidation covers malformed symbols, oversized memos and
	// out-of-range decay rates.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when the acting party is not the
	// issuer/owner the operation requires.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotFound is returned when no token config or balance row exists
	// for the requested key.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate token creation and closing an account
	// whose balance is not zero.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSupplyCapExceeded is returned when an issue would push supply
	// past a non-negative max supply.
	ErrSupplyCapExceeded = errors.New("supply cap exceeded")

	// ErrPrecondition covers the remaining rejected states, such as
	// transferring to self.
	ErrPrecondition = errors.New("precondition failed")
)
