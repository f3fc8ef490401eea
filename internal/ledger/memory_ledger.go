package ledger

import (
	"context"
	"sync"

	"github.com/wavetours/booking-engine/internal/domain"
)

// MemoryLedger implements Ledger in process memory with the same conditional
// check-and-decrement semantics as the Redis scripts.
type MemoryLedger struct {
	mu        sync.Mutex
	remaining map[string]int
}

// NewMemoryLedger creates an in-memory availability ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{remaining: make(map[string]int)}
}

// Remaining returns the seats still reservable.
func (l *MemoryLedger) Remaining(ctx context.Context, slotID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.remaining[slotID]
	if !ok {
		return 0, domain.ErrSlotNotFound
	}
	return n, nil
}

// Initialize seeds the counter for a slot.
func (l *MemoryLedger) Initialize(ctx context.Context, slotID string, remaining int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining[slotID] = remaining
	return nil
}

// Reserve decrements remaining capacity, failing atomically when passengers
// exceed what is left.
func (l *MemoryLedger) Reserve(ctx context.Context, slotID string, passengers int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.remaining[slotID]
	if !ok {
		return domain.ErrSlotNotFound
	}
	if n < passengers {
		return domain.ErrCapacityExceeded
	}
	l.remaining[slotID] = n - passengers
	return nil
}

// Release returns seats to the slot, capped at maxCapacity.
func (l *MemoryLedger) Release(ctx context.Context, slotID string, passengers, maxCapacity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	after := l.remaining[slotID] + passengers
	if after > maxCapacity {
		after = maxCapacity
	}
	l.remaining[slotID] = after
	return nil
}

var _ Ledger = (*MemoryLedger)(nil)
