package lock

import (
	"context"
	"sync"
	"time"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

// MemoryCoordinator implements Coordinator in process memory. Used by tests
// and single-node deployments.
type MemoryCoordinator struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewMemoryCoordinator creates an in-memory lock coordinator.
func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (c *MemoryCoordinator) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Acquire grants the lease when none is live for the key. An expired lease
// counts as absent.
func (c *MemoryCoordinator) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if l, ok := c.leases[key]; ok && now.Before(l.expiresAt) && l.owner != owner {
		return false, nil
	}
	c.leases[key] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the lease if owner still holds it; otherwise a no-op.
func (c *MemoryCoordinator) Release(ctx context.Context, key, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.leases[key]; ok && l.owner == owner {
		delete(c.leases, key)
	}
	return nil
}

// Renew extends the lease if owner still holds it and it has not expired.
func (c *MemoryCoordinator) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	l, ok := c.leases[key]
	if !ok || l.owner != owner || !now.Before(l.expiresAt) {
		return false, nil
	}
	c.leases[key] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Holder returns the live owner of a key, if any. Test helper.
func (c *MemoryCoordinator) Holder(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.leases[key]
	if !ok || !c.now().Before(l.expiresAt) {
		return "", false
	}
	return l.owner, true
}

var _ Coordinator = (*MemoryCoordinator)(nil)
