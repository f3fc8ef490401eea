package ledger

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/wavetours/booking-engine/internal/domain"
	pkgredis "github.com/wavetours/booking-engine/internal/redis"
)

//go:embed scripts/reserve_capacity.lua
var reserveCapacityScript string

//go:embed scripts/release_capacity.lua
var releaseCapacityScript string

const (
	scriptReserveCapacity = "reserve_capacity"
	scriptReleaseCapacity = "release_capacity"
)

// RedisLedger implements Ledger on Redis counters mutated by Lua scripts.
type RedisLedger struct {
	client *pkgredis.Client
}

// NewRedisLedger creates a Redis-backed availability ledger.
func NewRedisLedger(client *pkgredis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

// LoadScripts preloads the capacity scripts into Redis.
func (l *RedisLedger) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptReserveCapacity: reserveCapacityScript,
		scriptReleaseCapacity: releaseCapacityScript,
	}
	for name, script := range scripts {
		if _, err := l.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}
	return nil
}

func capacityKey(slotID string) string {
	return fmt.Sprintf("slot:capacity:%s", slotID)
}

// Remaining returns the current remaining-seats counter.
func (l *RedisLedger) Remaining(ctx context.Context, slotID string) (int, error) {
	n, err := l.client.Get(ctx, capacityKey(slotID)).Int()
	if err != nil {
		if pkgredis.IsNil(err) {
			return 0, domain.ErrSlotNotFound
		}
		return 0, fmt.Errorf("failed to get slot capacity: %w", err)
	}
	return n, nil
}

// Initialize seeds the counter for a slot.
func (l *RedisLedger) Initialize(ctx context.Context, slotID string, remaining int) error {
	if err := l.client.Set(ctx, capacityKey(slotID), remaining, 0).Err(); err != nil {
		return fmt.Errorf("failed to initialize slot capacity: %w", err)
	}
	return nil
}

// Reserve runs the conditional decrement script.
func (l *RedisLedger) Reserve(ctx context.Context, slotID string, passengers int) error {
	result := l.client.EvalWithFallback(ctx, scriptReserveCapacity, reserveCapacityScript,
		[]string{capacityKey(slotID)}, passengers)
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to execute reserve_capacity script: %w", err)
	}

	values, err := result.Slice()
	if err != nil {
		return fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 2 {
		return fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := values[0].(int64)
	if success == 1 {
		return nil
	}

	code, _ := values[1].(string)
	switch code {
	case "CAPACITY_EXCEEDED":
		return domain.ErrCapacityExceeded
	case "SLOT_UNKNOWN":
		return domain.ErrSlotNotFound
	default:
		return fmt.Errorf("reserve_capacity failed: %s", code)
	}
}

// Release runs the capped increment script.
func (l *RedisLedger) Release(ctx context.Context, slotID string, passengers, maxCapacity int) error {
	result := l.client.EvalWithFallback(ctx, scriptReleaseCapacity, releaseCapacityScript,
		[]string{capacityKey(slotID)}, passengers, maxCapacity)
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to execute release_capacity script: %w", err)
	}
	return nil
}

var _ Ledger = (*RedisLedger)(nil)
