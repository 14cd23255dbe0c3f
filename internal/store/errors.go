package store

import "errors"

var (
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrPersist marks a mutation that was applied in memory but could not be
	// written to storage. The next successful mutation overwrites the snapshot.
	ErrPersist = errors.New("persist cart")
)
