package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/metrics"
	"github.com/hqv2016/invorder/internal/port"
)

var (
	// ErrPlanStale signals the plan was built against versions that have
	// since moved on. The request is still viable; the coordinator re-plans.
	ErrPlanStale = errors.New("plan stale")

	// ErrPartiallyCompensated signals a mid-plan failure whose compensation
	// did not fully succeed. The ledger may need operator reconciliation.
	ErrPartiallyCompensated = errors.New("partially compensated")
)

// Committer applies a plan's decrements and persists the order record only
// if every decrement succeeded. Any failure after the first applied
// decrement triggers compensation of the applied prefix.
type Committer struct {
	ledger port.StockLedger
	orders port.OrderRepository
}

func NewCommitter(ledger port.StockLedger, orders port.OrderRepository) *Committer {
	return &Committer{ledger: ledger, orders: orders}
}

// Apply runs the plan's decrements one at a time, in plan order, then
// persists the order. Outcomes:
//   - nil: every decrement applied and the order record persisted.
//   - ErrPlanStale: a version conflict aborted the plan; the applied prefix
//     was reversed and the caller may re-plan.
//   - ErrPartiallyCompensated: a mid-plan failure occurred and at least one
//     applied decrement could not be reversed.
//   - anything else: the plan aborted and the applied prefix was reversed;
//     the cause is wrapped.
func (c *Committer) Apply(ctx context.Context, plan Plan, order domain.Order) error {
	applied := make([]PlanStep, 0, len(plan.Steps))

	for _, step := range plan.Steps {
		_, err := c.ledger.ConditionalDecrement(ctx, step.ItemID, step.Amount, step.ExpectedVersion)
		switch {
		case err == nil:
			applied = append(applied, step)
		case errors.Is(err, domain.ErrVersionConflict):
			metrics.VersionConflicts.Inc()
			return c.compensate(ctx, order.ID, applied, fmt.Errorf("%w: item %s", ErrPlanStale, step.ItemID))
		case errors.Is(err, domain.ErrInsufficientStock):
			// Cannot happen when the version check passed against a
			// validated snapshot, but the ledger contract allows it.
			return c.compensate(ctx, order.ID, applied, fmt.Errorf("item %s: %w", step.ItemID, domain.ErrInsufficientStock))
		default:
			return c.compensate(ctx, order.ID, applied, fmt.Errorf("decrement item %s: %w", step.ItemID, err))
		}
	}

	if err := c.orders.CreateOrder(ctx, order); err != nil {
		return c.compensate(ctx, order.ID, applied, fmt.Errorf("persist order: %w", err))
	}

	return nil
}

// compensate reverses the applied decrements in reverse order and returns
// cause, or ErrPartiallyCompensated wrapping cause when any reversal failed.
// Compensation ignores versions: adding back the same amount restores the
// invariant under any interleaving.
func (c *Committer) compensate(ctx context.Context, orderID string, applied []PlanStep, cause error) error {
	if len(applied) == 0 {
		return cause
	}

	failed := 0
	for i := len(applied) - 1; i >= 0; i-- {
		step := applied[i]
		if _, err := c.ledger.ConditionalIncrement(ctx, step.ItemID, step.Amount); err != nil {
			failed++
			metrics.CompensationFailures.Inc()
			log.Error().Err(err).
				Str("order_id", orderID).
				Str("item_id", step.ItemID).
				Int("amount", step.Amount).
				Msg("compensation failed, ledger needs reconciliation")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w (%d of %d reversals failed): %v", ErrPartiallyCompensated, failed, len(applied), cause)
	}

	log.Debug().
		Str("order_id", orderID).
		Int("steps", len(applied)).
		Msg("compensated applied decrements")
	return cause
}
