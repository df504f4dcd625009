package port

import (
	"context"

	"github.com/hqv2016/invorder/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a committed order record. It must not touch the
	// stock ledger; decrements have already been applied by the committer.
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an order by ID, or domain.ErrNotFound.
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)

	// CountOrders returns the number of persisted orders.
	CountOrders(ctx context.Context) (int, error)

	// SalesTotals returns the summed order amount and total units sold.
	SalesTotals(ctx context.Context) (float64, int, error)
}
