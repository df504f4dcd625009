package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hqv2016/invorder/internal/core/domain"
)

// MySQLLedger implements the stock ledger on the inventory table. The
// conditional decrement is a single UPDATE guarded by both the version and
// the remaining stock, so the database enforces atomicity; no in-process
// state is trusted.
type MySQLLedger struct {
	db *sql.DB
}

func NewMySQLLedger(db *sql.DB) *MySQLLedger {
	return &MySQLLedger{db: db}
}

func (m *MySQLLedger) ReadSnapshot(ctx context.Context, itemID string) (domain.StockSnapshot, error) {
	var snap domain.StockSnapshot
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, stock, version
		FROM inventory WHERE item_id = ?`, itemID,
	).Scan(&snap.ItemID, &snap.Quantity, &snap.Version)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.StockSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StockSnapshot{}, fmt.Errorf("query inventory: %w", err)
	}
	return snap, nil
}

func (m *MySQLLedger) ConditionalDecrement(ctx context.Context, itemID string, amount int, expectedVersion int64) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET stock = stock - ?, version = version + 1, updated_at = NOW()
		WHERE item_id = ? AND version = ? AND stock >= ?`,
		amount, itemID, expectedVersion, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("decrement inventory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decrement inventory: %w", err)
	}
	if rows == 1 {
		return expectedVersion + 1, nil
	}

	// The guarded UPDATE matched nothing; re-read to tell the caller why.
	var version int64
	err = m.db.QueryRowContext(ctx, `
		SELECT version FROM inventory WHERE item_id = ?`, itemID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("classify decrement failure: %w", err)
	}
	if version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	return 0, domain.ErrInsufficientStock
}

func (m *MySQLLedger) ConditionalIncrement(ctx context.Context, itemID string, amount int) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET stock = stock + ?, version = version + 1, updated_at = NOW()
		WHERE item_id = ?`,
		amount, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("increment inventory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment inventory: %w", err)
	}
	if rows == 0 {
		return 0, domain.ErrNotFound
	}

	var version int64
	if err := m.db.QueryRowContext(ctx, `
		SELECT version FROM inventory WHERE item_id = ?`, itemID,
	).Scan(&version); err != nil {
		return 0, fmt.Errorf("read version after increment: %w", err)
	}
	return version, nil
}
