package domain

import "time"

type OrderStatus string

const (
	OrderStatusCommitted            OrderStatus = "committed"
	OrderStatusFailed               OrderStatus = "failed"
	OrderStatusPartiallyCompensated OrderStatus = "partially_compensated"
)

// OrderLine is one requested item within an order. Price is captured at
// request time and immutable afterwards.
type OrderLine struct {
	ItemID   string  `json:"item_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderRequest is what a caller submits. TotalAmount is client-declared and
// used only for audit comparison; the committed order carries the computed
// total. RequestID is the caller's idempotency token.
type OrderRequest struct {
	RequestID   string
	UserID      string
	Lines       []OrderLine
	TotalAmount float64
}

// Order is immutable once created. Lines hold the quantities actually
// deducted from the ledger.
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Lines       []OrderLine `json:"lines"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}
