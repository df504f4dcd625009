package port

import (
	"context"

	"github.com/hqv2016/invorder/internal/core/domain"
)

// StockLedger is the authoritative per-item quantity store with
// conditional-write semantics. Implementations must make both mutations
// atomic with respect to all other callers: no interleaved read-modify-write
// may observe or produce a torn state.
type StockLedger interface {
	// ReadSnapshot returns the current quantity and version for an item,
	// or domain.ErrNotFound.
	ReadSnapshot(ctx context.Context, itemID string) (domain.StockSnapshot, error)

	// ConditionalDecrement subtracts amount iff the stored version equals
	// expectedVersion and the stored quantity covers amount. On success the
	// version increments by exactly 1 and the new version is returned.
	// Errors: domain.ErrVersionConflict, domain.ErrInsufficientStock,
	// domain.ErrNotFound.
	ConditionalDecrement(ctx context.Context, itemID string, amount int, expectedVersion int64) (int64, error)

	// ConditionalIncrement adds amount back regardless of the current
	// version, still bumping it by 1. Used for compensation; adding back the
	// same amount restores the invariant under any interleaving.
	ConditionalIncrement(ctx context.Context, itemID string, amount int) (int64, error)
}
