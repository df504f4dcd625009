package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hqv2016/invorder/internal/core/domain"
)

const (
	stockKeyPrefix    = "stock:"
	idempotencyKeyTTL = 24 * time.Hour

	resultNotFound        = -1
	resultVersionConflict = -2
	resultInsufficient    = -3
)

// Each item is a hash {qty, ver}. The scripts return the new version on
// success and a negative sentinel otherwise, so one round trip decides the
// outcome atomically.
var decrementScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])
local expected = tonumber(ARGV[2])

if redis.call('EXISTS', key) == 0 then
	return -1
end

local qty = tonumber(redis.call('HGET', key, 'qty'))
local ver = tonumber(redis.call('HGET', key, 'ver'))

if ver ~= expected then
	return -2
end
if qty < amount then
	return -3
end

redis.call('HSET', key, 'qty', qty - amount, 'ver', ver + 1)
return ver + 1
`)

var incrementScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])

if redis.call('EXISTS', key) == 0 then
	return -1
end

local qty = tonumber(redis.call('HGET', key, 'qty'))
local ver = tonumber(redis.call('HGET', key, 'ver'))

redis.call('HSET', key, 'qty', qty + amount, 'ver', ver + 1)
return ver + 1
`)

// RedisLedger implements the stock ledger on a Redis hash per item. Suited
// for deployments where the hot stock path should not hit the relational
// store; the conditional-write contract is identical to MySQLLedger.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (r *RedisLedger) SeedStock(ctx context.Context, itemID string, quantity int) error {
	key := stockKeyPrefix + itemID
	return r.client.HSet(ctx, key, "qty", quantity, "ver", 0).Err()
}

func (r *RedisLedger) RemoveStock(ctx context.Context, itemID string) error {
	return r.client.Del(ctx, stockKeyPrefix+itemID).Err()
}

func (r *RedisLedger) ReadSnapshot(ctx context.Context, itemID string) (domain.StockSnapshot, error) {
	key := stockKeyPrefix + itemID

	vals, err := r.client.HMGet(ctx, key, "qty", "ver").Result()
	if err != nil {
		return domain.StockSnapshot{}, fmt.Errorf("read stock hash: %w", err)
	}
	if vals[0] == nil || vals[1] == nil {
		return domain.StockSnapshot{}, domain.ErrNotFound
	}

	var snap domain.StockSnapshot
	snap.ItemID = itemID
	if _, err := fmt.Sscan(vals[0].(string), &snap.Quantity); err != nil {
		return domain.StockSnapshot{}, fmt.Errorf("parse qty: %w", err)
	}
	if _, err := fmt.Sscan(vals[1].(string), &snap.Version); err != nil {
		return domain.StockSnapshot{}, fmt.Errorf("parse ver: %w", err)
	}
	return snap, nil
}

func (r *RedisLedger) ConditionalDecrement(ctx context.Context, itemID string, amount int, expectedVersion int64) (int64, error) {
	key := stockKeyPrefix + itemID

	result, err := decrementScript.Run(ctx, r.client, []string{key}, amount, expectedVersion).Int64()
	if err != nil {
		return 0, fmt.Errorf("run decrement script: %w", err)
	}

	switch result {
	case resultNotFound:
		return 0, domain.ErrNotFound
	case resultVersionConflict:
		return 0, domain.ErrVersionConflict
	case resultInsufficient:
		return 0, domain.ErrInsufficientStock
	default:
		return result, nil
	}
}

func (r *RedisLedger) ConditionalIncrement(ctx context.Context, itemID string, amount int) (int64, error) {
	key := stockKeyPrefix + itemID

	result, err := incrementScript.Run(ctx, r.client, []string{key}, amount).Int64()
	if err != nil {
		return 0, fmt.Errorf("run increment script: %w", err)
	}
	if result == resultNotFound {
		return 0, domain.ErrNotFound
	}
	return result, nil
}

// SetIdempotency sets the request key if absent; false means a duplicate.
func (r *RedisLedger) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, "idempotency:"+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
