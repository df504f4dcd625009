package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/metrics"
	"github.com/hqv2016/invorder/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrContention: the retry budget was exhausted under repeated version
	// conflicts. Transient; the caller may resubmit.
	ErrContention = errors.New("order contention")
)

// RetryPolicy bounds the plan/apply loop.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  5,
		BackoffBase: 10 * time.Millisecond,
		BackoffMax:  500 * time.Millisecond,
	}
}

// Coordinator orchestrates planner and committer for one order request:
// Planning -> Applying -> {Committed | Retrying -> Planning | Failed |
// PartiallyCompensated}.
type Coordinator struct {
	planner   *Planner
	committer *Committer
	cache     port.CacheRepository
	publisher port.EventPublisher
	policy    RetryPolicy
}

func NewCoordinator(ledger port.StockLedger, orders port.OrderRepository, policy RetryPolicy) *Coordinator {
	return &Coordinator{
		planner:   NewPlanner(ledger),
		committer: NewCommitter(ledger, orders),
		policy:    policy,
	}
}

// WithIdempotency enables the duplicate-request guard keyed on RequestID.
func (c *Coordinator) WithIdempotency(cache port.CacheRepository) *Coordinator {
	c.cache = cache
	return c
}

// WithPublisher enables terminal-state order events.
func (c *Coordinator) WithPublisher(publisher port.EventPublisher) *Coordinator {
	c.publisher = publisher
	return c
}

// SubmitOrder converts an order request into a committed order, retrying
// stale plans up to the policy bound. Planning failures (missing item,
// insufficient stock, invalid request) are terminal: they will not resolve
// by waiting. The returned error wraps exactly one taxonomy sentinel.
func (c *Coordinator) SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing caller identity", domain.ErrInvalidRequest)
	}

	if c.cache != nil && req.RequestID != "" {
		ok, err := c.cache.SetIdempotency(ctx, "order:"+req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	attempts := 0
	defer func() { metrics.CommitAttempts.Observe(float64(attempts)) }()

	for try := 0; try <= c.policy.MaxRetries; try++ {
		attempts = try + 1
		if try > 0 {
			if err := c.backoff(ctx, try); err != nil {
				return nil, err
			}
		}

		plan, err := c.planner.BuildPlan(ctx, req)
		if err != nil {
			metrics.OrdersTotal.WithLabelValues(outcomeLabel(err)).Inc()
			return nil, err
		}

		// Nothing has been mutated yet; this is the last point the caller
		// can abandon the request without side effects.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order := c.buildOrder(req)

		// Once applying begins the attempt must run to a terminal state,
		// so the apply phase is detached from caller cancellation.
		err = c.committer.Apply(context.WithoutCancel(ctx), plan, order)
		switch {
		case err == nil:
			metrics.OrdersTotal.WithLabelValues("committed").Inc()
			c.publish(ctx, port.EventOrderCommitted, order)
			log.Info().
				Str("order_id", order.ID).
				Str("user_id", order.UserID).
				Int("attempts", attempts).
				Msg("order committed")
			return &order, nil
		case errors.Is(err, ErrPlanStale):
			log.Debug().Str("order_id", order.ID).Int("attempt", attempts).Msg("plan stale, re-planning")
			continue
		case errors.Is(err, ErrPartiallyCompensated):
			metrics.OrdersTotal.WithLabelValues("partially_compensated").Inc()
			order.Status = domain.OrderStatusPartiallyCompensated
			c.publish(ctx, port.EventOrderPartiallyCompensated, order)
			log.Error().Err(err).Str("order_id", order.ID).Msg("order failed with incomplete compensation")
			return nil, err
		default:
			metrics.OrdersTotal.WithLabelValues(outcomeLabel(err)).Inc()
			return nil, err
		}
	}

	metrics.OrdersTotal.WithLabelValues("contention").Inc()
	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrContention, c.policy.MaxRetries+1)
}

// buildOrder captures the lines as requested; the committer only persists it
// after every decrement was applied, so these are the quantities actually
// deducted. The total is recomputed from the lines; the client-declared
// total is audit input only.
func (c *Coordinator) buildOrder(req domain.OrderRequest) domain.Order {
	var total float64
	for _, line := range req.Lines {
		total += line.Price * float64(line.Quantity)
	}
	if math.Abs(total-req.TotalAmount) > 0.005 {
		log.Warn().
			Str("user_id", req.UserID).
			Float64("declared", req.TotalAmount).
			Float64("computed", total).
			Msg("declared order total does not match line totals")
	}

	return domain.Order{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Lines:       append([]domain.OrderLine(nil), req.Lines...),
		TotalAmount: total,
		Status:      domain.OrderStatusCommitted,
		CreatedAt:   time.Now().UTC(),
	}
}

func (c *Coordinator) backoff(ctx context.Context, retry int) error {
	d := c.policy.BackoffBase << (retry - 1)
	if d > c.policy.BackoffMax || d <= 0 {
		d = c.policy.BackoffMax
	}
	// full jitter
	d = time.Duration(rand.Int63n(int64(d) + 1))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Coordinator) publish(ctx context.Context, eventType string, order domain.Order) {
	if c.publisher == nil {
		return
	}
	event := port.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Lines:       order.Lines,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now().Unix(),
	}
	if err := c.publisher.PublishOrderEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order event")
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
