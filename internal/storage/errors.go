package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a row whose unique key
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSupplyOutOfRange is returned by AdjustSupply when the adjusted
	// supply would be negative or exceed a non-negative max supply.
	ErrSupplyOutOfRange = errors.New("supply adjustment out of range")
)
