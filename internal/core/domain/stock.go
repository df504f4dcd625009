package domain

import "time"

// StockRecord is the authoritative available count for one catalog item.
// Quantity never goes below zero in any committed state; Version increases
// by exactly 1 on every successful mutation and is the optimistic-concurrency
// token checked by conditional writes.
type StockRecord struct {
	ItemID    string
	Quantity  int
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockSnapshot is a point-in-time read of a stock record, used to build
// a reservation plan. It carries the version the plan will be conditioned on.
type StockSnapshot struct {
	ItemID   string
	Quantity int
	Version  int64
}
