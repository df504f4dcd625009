package port

import (
	"context"

	"github.com/hqv2016/invorder/internal/core/domain"
)

// ItemFilter narrows catalog listings.
type ItemFilter struct {
	Category      string
	NameSubstring string
}

type CatalogRepository interface {
	// CreateItem stores a catalog record and seeds its stock record with
	// initialQuantity at version 0.
	CreateItem(ctx context.Context, item domain.Item, initialQuantity int) error

	// GetItem retrieves a catalog record, or domain.ErrNotFound.
	GetItem(ctx context.Context, itemID string) (domain.Item, error)

	// ListItems returns matching items, newest first.
	ListItems(ctx context.Context, f ItemFilter) ([]domain.Item, error)

	// DeleteItem removes the catalog record and its stock record, or
	// domain.ErrNotFound.
	DeleteItem(ctx context.Context, itemID string) error

	// CategoryReport returns per-category stock extremes, sorted by category.
	CategoryReport(ctx context.Context) ([]domain.CategoryReport, error)

	// CountItems returns the number of catalog records.
	CountItems(ctx context.Context) (int, error)

	// CountCategories returns the number of distinct categories.
	CountCategories(ctx context.Context) (int, error)
}
