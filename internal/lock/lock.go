// Package lock provides TTL-bound distributed mutual exclusion keyed by slot
// identity. A lease is held for the duration of a single checkout attempt;
// at most one live, unexpired lease exists per key.
package lock

import (
	"context"
	"time"
)

// Coordinator is the external lock service abstraction. Acquisition is
// conditional (set if absent), never blocking: a denied acquisition is
// reported immediately as slot contention, not queued. Release is idempotent
// and owner-checked; an orphaned lease self-expires.
type Coordinator interface {
	// Acquire grants a lease on key to owner for ttl. Returns false when the
	// key is already leased to a different owner.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release drops the lease if owner still holds it. Releasing an expired
	// or already-released lease is a no-op.
	Release(ctx context.Context, key, owner string) error

	// Renew extends the lease ttl if owner still holds it. Returns false when
	// the lease is gone or held by someone else.
	Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
}
