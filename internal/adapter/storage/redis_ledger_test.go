package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/hqv2016/invorder/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisLedger_ConditionalDecrement(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	ledger := NewRedisLedger(client)

	if err := ledger.SeedStock(ctx, "test-item", 10); err != nil {
		t.Fatalf("seed: %v", err)
	}
	defer ledger.RemoveStock(ctx, "test-item")

	version, err := ledger.ConditionalDecrement(ctx, "test-item", 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	snap, err := ledger.ReadSnapshot(ctx, "test-item")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Quantity != 7 || snap.Version != 1 {
		t.Errorf("expected 7@1, got %d@%d", snap.Quantity, snap.Version)
	}
}

func TestRedisLedger_VersionConflict(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	ledger := NewRedisLedger(client)

	ledger.SeedStock(ctx, "test-item", 10)
	defer ledger.RemoveStock(ctx, "test-item")

	if _, err := ledger.ConditionalDecrement(ctx, "test-item", 1, 0); err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	// version is now 1, a replay with the old token must lose
	if _, err := ledger.ConditionalDecrement(ctx, "test-item", 1, 0); !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got: %v", err)
	}
}

func TestRedisLedger_InsufficientStock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	ledger := NewRedisLedger(client)

	ledger.SeedStock(ctx, "test-item", 2)
	defer ledger.RemoveStock(ctx, "test-item")

	if _, err := ledger.ConditionalDecrement(ctx, "test-item", 5, 0); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}

	snap, _ := ledger.ReadSnapshot(ctx, "test-item")
	if snap.Quantity != 2 || snap.Version != 0 {
		t.Errorf("failed decrement must not mutate, got %d@%d", snap.Quantity, snap.Version)
	}
}

func TestRedisLedger_NotFound(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	ledger := NewRedisLedger(client)

	if _, err := ledger.ReadSnapshot(ctx, "no-such-item"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if _, err := ledger.ConditionalDecrement(ctx, "no-such-item", 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestRedisLedger_ConcurrentDecrement(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	ledger := NewRedisLedger(client)

	initialStock := 20
	totalRequests := 50
	ledger.SeedStock(ctx, "test-item", initialStock)
	defer ledger.RemoveStock(ctx, "test-item")

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				snap, err := ledger.ReadSnapshot(ctx, "test-item")
				if err != nil {
					t.Errorf("read: %v", err)
					return
				}
				if snap.Quantity < 1 {
					return
				}
				_, err = ledger.ConditionalDecrement(ctx, "test-item", 1, snap.Version)
				if err == nil {
					successCount.Add(1)
					return
				}
				if !errors.Is(err, domain.ErrVersionConflict) && !errors.Is(err, domain.ErrInsufficientStock) {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected exactly %d successes, got %d", initialStock, successCount.Load())
	}
	snap, _ := ledger.ReadSnapshot(ctx, "test-item")
	if snap.Quantity != 0 {
		t.Errorf("expected final stock 0, got %d", snap.Quantity)
	}
}

func TestRedisLedger_SetIdempotency(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	ledger := NewRedisLedger(client)

	client.Del(ctx, "idempotency:test-req")
	defer client.Del(ctx, "idempotency:test-req")

	ok, err := ledger.SetIdempotency(ctx, "test-req")
	if err != nil || !ok {
		t.Fatalf("first set should succeed: ok=%v err=%v", ok, err)
	}
	ok, err = ledger.SetIdempotency(ctx, "test-req")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("second set should report duplicate")
	}
}
