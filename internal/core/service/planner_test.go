package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hqv2016/invorder/internal/adapter/storage"
	"github.com/hqv2016/invorder/internal/core/domain"
)

func TestBuildPlan_Success(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ledger.SeedStock("item-a", 5)

	planner := NewPlanner(ledger)
	plan, err := planner.BuildPlan(context.Background(), domain.OrderRequest{
		UserID: "user-1",
		Lines:  []domain.OrderLine{{ItemID: "item-a", Quantity: 3, Price: 10}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan.Steps))
	}
	step := plan.Steps[0]
	if step.ItemID != "item-a" || step.Amount != 3 || step.ExpectedVersion != 0 {
		t.Errorf("unexpected step: %+v", step)
	}
}

func TestBuildPlan_SumsDuplicateLines(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ledger.SeedStock("item-a", 5)

	planner := NewPlanner(ledger)
	plan, err := planner.BuildPlan(context.Background(), domain.OrderRequest{
		UserID: "user-1",
		Lines: []domain.OrderLine{
			{ItemID: "item-a", Quantity: 2, Price: 10},
			{ItemID: "item-a", Quantity: 3, Price: 10},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Amount != 5 {
		t.Fatalf("expected single summed step of 5, got %+v", plan.Steps)
	}

	// 2+4 exceeds 5 even though each line alone fits
	_, err = planner.BuildPlan(context.Background(), domain.OrderRequest{
		UserID: "user-1",
		Lines: []domain.OrderLine{
			{ItemID: "item-a", Quantity: 2, Price: 10},
			{ItemID: "item-a", Quantity: 4, Price: 10},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}
}

func TestBuildPlan_FailsFastOnShortItem(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ledger.SeedStock("item-a", 5)
	ledger.SeedStock("item-b", 4)

	planner := NewPlanner(ledger)
	_, err := planner.BuildPlan(context.Background(), domain.OrderRequest{
		UserID: "user-1",
		Lines: []domain.OrderLine{
			{ItemID: "item-a", Quantity: 3, Price: 10},
			{ItemID: "item-b", Quantity: 10, Price: 5},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}
	if !strings.Contains(err.Error(), "item-b") {
		t.Errorf("error should name the offending item: %v", err)
	}

	// planning is read-only: nothing was deducted
	snap, _ := ledger.ReadSnapshot(context.Background(), "item-a")
	if snap.Quantity != 5 || snap.Version != 0 {
		t.Errorf("planning mutated item-a: %+v", snap)
	}
}

func TestBuildPlan_ItemNotFound(t *testing.T) {
	ledger := storage.NewMemoryLedger()

	planner := NewPlanner(ledger)
	_, err := planner.BuildPlan(context.Background(), domain.OrderRequest{
		UserID: "user-1",
		Lines:  []domain.OrderLine{{ItemID: "ghost", Quantity: 1, Price: 1}},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestBuildPlan_InvalidRequest(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ledger.SeedStock("item-a", 5)
	planner := NewPlanner(ledger)

	_, err := planner.BuildPlan(context.Background(), domain.OrderRequest{UserID: "user-1"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for empty lines, got: %v", err)
	}

	_, err = planner.BuildPlan(context.Background(), domain.OrderRequest{
		UserID: "user-1",
		Lines:  []domain.OrderLine{{ItemID: "item-a", Quantity: 0, Price: 1}},
	})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for zero quantity, got: %v", err)
	}
}

func TestBuildPlan_StepsSortedAscending(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ledger.SeedStock("item-c", 5)
	ledger.SeedStock("item-a", 5)
	ledger.SeedStock("item-b", 5)

	planner := NewPlanner(ledger)
	plan, err := planner.BuildPlan(context.Background(), domain.OrderRequest{
		UserID: "user-1",
		Lines: []domain.OrderLine{
			{ItemID: "item-c", Quantity: 1, Price: 1},
			{ItemID: "item-a", Quantity: 1, Price: 1},
			{ItemID: "item-b", Quantity: 1, Price: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(plan.Steps); i++ {
		if plan.Steps[i-1].ItemID >= plan.Steps[i].ItemID {
			t.Fatalf("steps not sorted ascending: %+v", plan.Steps)
		}
	}
}
