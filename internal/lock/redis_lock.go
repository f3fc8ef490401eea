package lock

import (
	"context"
	"fmt"
	"time"

	pkgredis "github.com/wavetours/booking-engine/internal/redis"
)

// Owner-checked release and renew run as Lua so the compare and the mutation
// are a single atomic step.
const (
	releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`
	renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
)

const (
	scriptReleaseLease = "release_lease"
	scriptRenewLease   = "renew_lease"
)

// RedisCoordinator implements Coordinator on a TTL-capable key-value store.
// SET NX PX gives set-if-absent acquisition with native expiry, so abandoned
// checkouts free their slot without any cleanup process.
type RedisCoordinator struct {
	client    *pkgredis.Client
	keyPrefix string
}

// NewRedisCoordinator creates a Redis-backed lock coordinator.
func NewRedisCoordinator(client *pkgredis.Client) *RedisCoordinator {
	return &RedisCoordinator{client: client, keyPrefix: "slot:lease:"}
}

// LoadScripts preloads the Lua scripts into Redis.
func (c *RedisCoordinator) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptReleaseLease: releaseScript,
		scriptRenewLease:   renewScript,
	}
	for name, script := range scripts {
		if _, err := c.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}
	return nil
}

// Acquire grants the lease when no live lease exists for the key.
func (c *RedisCoordinator) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.keyPrefix+key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease for %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the lease only if owner still holds it.
func (c *RedisCoordinator) Release(ctx context.Context, key, owner string) error {
	result := c.client.EvalWithFallback(ctx, scriptReleaseLease, releaseScript,
		[]string{c.keyPrefix + key}, owner)
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to release lease for %s: %w", key, err)
	}
	return nil
}

// Renew extends the lease only if owner still holds it.
func (c *RedisCoordinator) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	result := c.client.EvalWithFallback(ctx, scriptRenewLease, renewScript,
		[]string{c.keyPrefix + key}, owner, ttl.Milliseconds())
	if err := result.Err(); err != nil {
		return false, fmt.Errorf("failed to renew lease for %s: %w", key, err)
	}
	n, err := result.Int64()
	if err != nil {
		return false, fmt.Errorf("failed to parse renew result for %s: %w", key, err)
	}
	return n == 1, nil
}

var _ Coordinator = (*RedisCoordinator)(nil)
