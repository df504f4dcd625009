package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/hqv2016/invorder/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/invorder?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func seedInventory(t *testing.T, db *sql.DB, itemID string, stock int) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO inventory (item_id, stock, version) VALUES (?, ?, 0)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), version = 0`, itemID, stock)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
}

func TestMySQLLedger_ConditionalDecrement(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)

	seedInventory(t, db, "test-item", 10)

	version, err := ledger.ConditionalDecrement(ctx, "test-item", 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	snap, err := ledger.ReadSnapshot(ctx, "test-item")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Quantity != 7 || snap.Version != 1 {
		t.Errorf("expected 7@1, got %d@%d", snap.Quantity, snap.Version)
	}

	// replay with the stale token must lose
	if _, err := ledger.ConditionalDecrement(ctx, "test-item", 1, 0); !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got: %v", err)
	}

	// oversized request against current version
	if _, err := ledger.ConditionalDecrement(ctx, "test-item", 8, 1); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}

	if _, err := ledger.ConditionalDecrement(ctx, "no-such-item", 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestMySQLLedger_ConditionalIncrement(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)

	seedInventory(t, db, "test-item", 5)

	if _, err := ledger.ConditionalIncrement(ctx, "test-item", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, _ := ledger.ReadSnapshot(ctx, "test-item")
	if snap.Quantity != 9 {
		t.Errorf("expected quantity 9, got %d", snap.Quantity)
	}
	if snap.Version != 1 {
		t.Errorf("increment must advance the version, got %d", snap.Version)
	}
}

func TestMySQLStore_CreateAndGetOrder(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	db.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id LIKE 'test-order-%'`)
	db.ExecContext(ctx, `DELETE FROM orders WHERE id LIKE 'test-order-%'`)

	order := domain.Order{
		ID:     "test-order-1",
		UserID: "user-1",
		Lines: []domain.OrderLine{
			{ItemID: "test-item", Quantity: 2, Price: 9.5},
		},
		TotalAmount: 19,
		Status:      domain.OrderStatusCommitted,
		CreatedAt:   time.Now(),
	}
	if err := store.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetOrder(ctx, "test-order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "user-1" || got.Status != domain.OrderStatusCommitted {
		t.Errorf("unexpected order: %+v", got)
	}
	if len(got.Lines) != 1 || got.Lines[0].Quantity != 2 {
		t.Errorf("unexpected lines: %+v", got.Lines)
	}

	if _, err := store.GetOrder(ctx, "test-order-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}
