package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/port"
)

// MemoryLedger is an in-process StockLedger used by tests and the loadtest
// driver. The single mutex makes each conditional write atomic, matching
// the contract the SQL and Redis ledgers provide.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]*domain.StockRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]*domain.StockRecord)}
}

// SeedStock creates or resets a stock record at version 0.
func (m *MemoryLedger) SeedStock(itemID string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	m.records[itemID] = &domain.StockRecord{
		ItemID:    itemID,
		Quantity:  quantity,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (m *MemoryLedger) RemoveStock(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, itemID)
}

func (m *MemoryLedger) ReadSnapshot(ctx context.Context, itemID string) (domain.StockSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[itemID]
	if !ok {
		return domain.StockSnapshot{}, domain.ErrNotFound
	}
	return domain.StockSnapshot{ItemID: itemID, Quantity: rec.Quantity, Version: rec.Version}, nil
}

func (m *MemoryLedger) ConditionalDecrement(ctx context.Context, itemID string, amount int, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[itemID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if rec.Version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	if rec.Quantity < amount {
		return 0, domain.ErrInsufficientStock
	}
	rec.Quantity -= amount
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	return rec.Version, nil
}

func (m *MemoryLedger) ConditionalIncrement(ctx context.Context, itemID string, amount int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[itemID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	rec.Quantity += amount
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	return rec.Version, nil
}

// MemoryStore keeps orders, catalog items, and idempotency keys in process.
// Item creation and deletion also seed and remove the paired stock record.
type MemoryStore struct {
	mu          sync.RWMutex
	ledger      *MemoryLedger
	orders      map[string]domain.Order
	items       map[string]domain.Item
	idempotency map[string]bool
}

func NewMemoryStore(ledger *MemoryLedger) *MemoryStore {
	return &MemoryStore{
		ledger:      ledger,
		orders:      make(map[string]domain.Order),
		items:       make(map[string]domain.Item),
		idempotency: make(map[string]bool),
	}
}

var (
	_ port.OrderRepository   = (*MemoryStore)(nil)
	_ port.CatalogRepository = (*MemoryStore)(nil)
	_ port.CacheRepository   = (*MemoryStore)(nil)
)

func (m *MemoryStore) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (m *MemoryStore) CountOrders(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders), nil
}

func (m *MemoryStore) SalesTotals(ctx context.Context) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sales float64
	var units int
	for _, order := range m.orders {
		if order.Status != domain.OrderStatusCommitted {
			continue
		}
		sales += order.TotalAmount
		for _, line := range order.Lines {
			units += line.Quantity
		}
	}
	return sales, units, nil
}

func (m *MemoryStore) CreateItem(ctx context.Context, item domain.Item, initialQuantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ItemID] = item
	m.ledger.SeedStock(item.ItemID, initialQuantity)
	return nil
}

func (m *MemoryStore) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[itemID]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func (m *MemoryStore) ListItems(ctx context.Context, f port.ItemFilter) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if f.NameSubstring != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(f.NameSubstring)) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[itemID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, itemID)
	m.ledger.RemoveStock(itemID)
	return nil
}

func (m *MemoryStore) CategoryReport(ctx context.Context) ([]domain.CategoryReport, error) {
	m.mu.RLock()
	items := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	m.mu.RUnlock()

	byCategory := make(map[string]*domain.CategoryReport)
	for _, item := range items {
		snap, err := m.ledger.ReadSnapshot(ctx, item.ItemID)
		if err != nil {
			continue
		}
		rep, ok := byCategory[item.Category]
		if !ok {
			byCategory[item.Category] = &domain.CategoryReport{
				Category:    item.Category,
				MaxQuantity: snap.Quantity,
				MinQuantity: snap.Quantity,
			}
			continue
		}
		if snap.Quantity > rep.MaxQuantity {
			rep.MaxQuantity = snap.Quantity
		}
		if snap.Quantity < rep.MinQuantity {
			rep.MinQuantity = snap.Quantity
		}
	}

	out := make([]domain.CategoryReport, 0, len(byCategory))
	for _, rep := range byCategory {
		out = append(out, *rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *MemoryStore) CountItems(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *MemoryStore) CountCategories(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	categories := make(map[string]struct{})
	for _, item := range m.items {
		categories[item.Category] = struct{}{}
	}
	return len(categories), nil
}

func (m *MemoryStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idempotency[key] {
		return false, nil
	}
	m.idempotency[key] = true
	return true, nil
}
