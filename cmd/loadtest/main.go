package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hqv2016/invorder/internal/adapter/storage"
	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/core/service"
)

const (
	itemID        = "hot-item"
	initialStock  = 20
	totalRequests = 50
)

// Hammers the coordinator with concurrent single-line orders against one
// item and checks the no-oversell property end to end.
func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx := context.Background()

	ledger := storage.NewMemoryLedger()
	store := storage.NewMemoryStore(ledger)
	ledger.SeedStock(itemID, initialStock)

	coordinator := service.NewCoordinator(ledger, store, service.DefaultRetryPolicy()).
		WithIdempotency(store)

	var committed atomic.Int32
	var soldOut atomic.Int32
	var contended atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			_, err := coordinator.SubmitOrder(ctx, domain.OrderRequest{
				RequestID:   fmt.Sprintf("load-%d", userID),
				UserID:      fmt.Sprintf("user-%d", userID),
				Lines:       []domain.OrderLine{{ItemID: itemID, Quantity: 1, Price: 9.99}},
				TotalAmount: 9.99,
			})
			switch {
			case err == nil:
				committed.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOut.Add(1)
			case errors.Is(err, service.ErrContention):
				contended.Add(1)
			default:
				log.Error().Err(err).Msg("unexpected submit failure")
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	snap, _ := ledger.ReadSnapshot(ctx, itemID)

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Committed:        %d\n", committed.Load())
	fmt.Printf("Sold Out:         %d\n", soldOut.Load())
	fmt.Printf("Contention:       %d\n", contended.Load())
	fmt.Printf("Remaining Stock:  %d\n", snap.Quantity)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if int(committed.Load())+snap.Quantity == initialStock {
		fmt.Println("PASS: committed orders account for all deducted stock")
	} else {
		fmt.Printf("FAIL: %d committed but %d stock remaining of %d\n",
			committed.Load(), snap.Quantity, initialStock)
	}
}
