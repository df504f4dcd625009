package port

import (
	"context"

	"github.com/hqv2016/invorder/internal/core/domain"
)

const (
	EventOrderCommitted            = "order_committed"
	EventOrderPartiallyCompensated = "order_partially_compensated"
)

// OrderEvent is emitted when an order reaches a terminal state that other
// systems care about.
type OrderEvent struct {
	Type        string             `json:"type"`
	OrderID     string             `json:"order_id"`
	UserID      string             `json:"user_id"`
	Lines       []domain.OrderLine `json:"lines"`
	TotalAmount float64            `json:"total_amount"`
	OccurredAt  int64              `json:"occurred_at"`
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}
