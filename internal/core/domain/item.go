package domain

import "time"

// Item is a catalog record. Its available quantity lives in the stock
// ledger, not here; creating an item seeds the corresponding stock record.
type Item struct {
	ItemID    string    `json:"item_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryReport aggregates stock extremes per category.
type CategoryReport struct {
	Category    string `json:"category"`
	MaxQuantity int    `json:"max_quantity"`
	MinQuantity int    `json:"min_quantity"`
}

// Stats is the dashboard aggregate over catalog and orders.
type Stats struct {
	TotalItems      int     `json:"total_items"`
	TotalCategories int     `json:"total_categories"`
	TotalOrders     int     `json:"total_orders"`
	TotalSales      float64 `json:"total_sales"`
	SoldUnits       int     `json:"sold_units"`
}
