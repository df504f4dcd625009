package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/port"
)

// MySQLStore persists orders and catalog items. Order creation writes the
// order row and its lines in one transaction; inventory rows are owned by
// MySQLLedger and are never mutated here except when an item is created or
// deleted together with its stock record.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

var (
	_ port.OrderRepository   = (*MySQLStore)(nil)
	_ port.CatalogRepository = (*MySQLStore)(nil)
)

func (m *MySQLStore) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.TotalAmount, order.Status, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, item_id, quantity, price)
			VALUES (?, ?, ?, ?)`,
			order.ID, line.ItemID, line.Quantity, line.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var order domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_amount, status, created_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.Status, &order.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, quantity, price
		FROM order_lines WHERE order_id = ?`, orderID,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ItemID, &line.Quantity, &line.Price); err != nil {
			return domain.Order{}, fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("iterate order lines: %w", err)
	}
	return order, nil
}

func (m *MySQLStore) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (m *MySQLStore) SalesTotals(ctx context.Context) (float64, int, error) {
	var sales float64
	err := m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM orders WHERE status = ?`, domain.OrderStatusCommitted,
	).Scan(&sales)
	if err != nil {
		return 0, 0, fmt.Errorf("sum sales: %w", err)
	}

	var units int
	err = m.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(l.quantity), 0)
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE o.status = ?`, domain.OrderStatusCommitted,
	).Scan(&units)
	if err != nil {
		return 0, 0, fmt.Errorf("sum sold units: %w", err)
	}
	return sales, units, nil
}

func (m *MySQLStore) CreateItem(ctx context.Context, item domain.Item, initialQuantity int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (item_id, sku, name, category, unit, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.SKU, item.Name, item.Category, item.Unit, item.Price,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory (item_id, stock, version, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)`,
		item.ItemID, initialQuantity, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLStore) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	var item domain.Item
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, sku, name, category, unit, price, created_at, updated_at
		FROM items WHERE item_id = ?`, itemID,
	).Scan(&item.ItemID, &item.SKU, &item.Name, &item.Category, &item.Unit,
		&item.Price, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (m *MySQLStore) ListItems(ctx context.Context, f port.ItemFilter) ([]domain.Item, error) {
	query := `
		SELECT item_id, sku, name, category, unit, price, created_at, updated_at
		FROM items WHERE 1=1`
	args := make([]any, 0, 2)
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.NameSubstring != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+f.NameSubstring+"%")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ItemID, &item.SKU, &item.Name, &item.Category,
			&item.Unit, &item.Price, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLStore) DeleteItem(ctx context.Context, itemID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLStore) CategoryReport(ctx context.Context) ([]domain.CategoryReport, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT i.category, MAX(v.stock), MIN(v.stock)
		FROM items i
		JOIN inventory v ON v.item_id = i.item_id
		GROUP BY i.category
		ORDER BY i.category`,
	)
	if err != nil {
		return nil, fmt.Errorf("category report: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CategoryReport, 0)
	for rows.Next() {
		var rep domain.CategoryReport
		if err := rows.Scan(&rep.Category, &rep.MaxQuantity, &rep.MinQuantity); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (m *MySQLStore) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func (m *MySQLStore) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT category) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}
