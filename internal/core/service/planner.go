package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/port"
)

// PlanStep is one pre-validated decrement, conditioned on the version
// observed at planning time.
type PlanStep struct {
	ItemID          string
	Amount          int
	ExpectedVersion int64
}

// Plan is an ordered set of decrements for one order request. Steps are
// sorted ascending by item ID so concurrent multi-item orders that share
// items always contend in the same order.
type Plan struct {
	Steps []PlanStep
}

// Planner validates an order request against ledger snapshots and produces
// a Plan. Planning is read-only and side-effect-free, so it is cheap to
// retry after a conflict.
type Planner struct {
	ledger port.StockLedger
}

func NewPlanner(ledger port.StockLedger) *Planner {
	return &Planner{ledger: ledger}
}

// BuildPlan reads one snapshot per distinct item, summing quantities when an
// item appears in multiple lines, and fails fast on the first item that is
// missing or short. Errors wrap domain.ErrNotFound or
// domain.ErrInsufficientStock with the offending item ID.
func (p *Planner) BuildPlan(ctx context.Context, req domain.OrderRequest) (Plan, error) {
	if len(req.Lines) == 0 {
		return Plan{}, fmt.Errorf("%w: no lines", domain.ErrInvalidRequest)
	}

	amounts := make(map[string]int, len(req.Lines))
	seen := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return Plan{}, fmt.Errorf("%w: non-positive quantity for item %s", domain.ErrInvalidRequest, line.ItemID)
		}
		if line.Price < 0 {
			return Plan{}, fmt.Errorf("%w: negative price for item %s", domain.ErrInvalidRequest, line.ItemID)
		}
		if _, ok := amounts[line.ItemID]; !ok {
			seen = append(seen, line.ItemID)
		}
		amounts[line.ItemID] += line.Quantity
	}

	steps := make([]PlanStep, 0, len(seen))
	for _, itemID := range seen {
		snap, err := p.ledger.ReadSnapshot(ctx, itemID)
		if err != nil {
			return Plan{}, fmt.Errorf("item %s: %w", itemID, err)
		}
		if snap.Quantity < amounts[itemID] {
			return Plan{}, fmt.Errorf("item %s: %w: requested %d, available %d",
				itemID, domain.ErrInsufficientStock, amounts[itemID], snap.Quantity)
		}
		steps = append(steps, PlanStep{
			ItemID:          itemID,
			Amount:          amounts[itemID],
			ExpectedVersion: snap.Version,
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].ItemID < steps[j].ItemID })

	return Plan{Steps: steps}, nil
}
