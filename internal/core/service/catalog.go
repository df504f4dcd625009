package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/port"
)

// Catalog manages item records and the reporting queries over items and
// orders. It never mutates stock outside item creation and deletion; order
// flow decrements go through the ledger's conditional writes only.
type Catalog struct {
	repo   port.CatalogRepository
	orders port.OrderRepository
}

func NewCatalog(repo port.CatalogRepository, orders port.OrderRepository) *Catalog {
	return &Catalog{repo: repo, orders: orders}
}

func (c *Catalog) CreateItem(ctx context.Context, item domain.Item, initialQuantity int) (domain.Item, error) {
	if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Category) == "" {
		return domain.Item{}, fmt.Errorf("%w: name and category are required", domain.ErrInvalidRequest)
	}
	if item.Price < 0 || initialQuantity < 0 {
		return domain.Item{}, fmt.Errorf("%w: price and quantity must be non-negative", domain.ErrInvalidRequest)
	}

	if item.ItemID == "" {
		item.ItemID = uuid.New().String()
	}
	if item.Unit == "" {
		item.Unit = "pieces"
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := c.repo.CreateItem(ctx, item, initialQuantity); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (c *Catalog) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	return c.repo.GetItem(ctx, itemID)
}

func (c *Catalog) ListItems(ctx context.Context, f port.ItemFilter) ([]domain.Item, error) {
	return c.repo.ListItems(ctx, f)
}

func (c *Catalog) DeleteItem(ctx context.Context, itemID string) error {
	return c.repo.DeleteItem(ctx, itemID)
}

func (c *Catalog) CategoryReport(ctx context.Context) ([]domain.CategoryReport, error) {
	return c.repo.CategoryReport(ctx)
}

// Stats fans the aggregate queries out concurrently; they are independent
// reads against the store.
func (c *Catalog) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.repo.CountItems(ctx)
		stats.TotalItems = n
		return err
	})
	g.Go(func() error {
		n, err := c.repo.CountCategories(ctx)
		stats.TotalCategories = n
		return err
	})
	g.Go(func() error {
		n, err := c.orders.CountOrders(ctx)
		stats.TotalOrders = n
		return err
	})
	g.Go(func() error {
		sales, units, err := c.orders.SalesTotals(ctx)
		stats.TotalSales = sales
		stats.SoldUnits = units
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return stats, nil
}
