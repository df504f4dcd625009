package domain

import "errors"

// Ledger and request error taxonomy. Adapters translate store-specific
// failures into these; callers branch with errors.Is.
var (
	// ErrNotFound: the referenced item does not exist. Never retried.
	ErrNotFound = errors.New("item not found")

	// ErrInsufficientStock: available quantity is below the requested amount.
	// Terminal for the current attempt; a caller must re-validate before
	// trying again.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrVersionConflict: a concurrent mutation happened between read and
	// write. The caller should re-read and retry, not treat it as a stock
	// shortage.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidRequest: the order request is malformed (empty lines,
	// non-positive quantity, negative price).
	ErrInvalidRequest = errors.New("invalid order request")
)
