// Package ledger is the authoritative record of remaining capacity per slot.
// Reservation and release are atomic conditional counter mutations: even
// though callers hold a checkout lease before reserving, the ledger performs
// its own check-and-decrement in one step as defense in depth.
package ledger

import "context"

// Ledger exposes capacity check/reserve/release for slots. A reservation
// that would push booked past max fails with domain.ErrCapacityExceeded and
// never partially reserves.
type Ledger interface {
	// Remaining returns the seats still reservable for the slot.
	Remaining(ctx context.Context, slotID string) (int, error)

	// Initialize seeds the remaining-capacity counter for a slot.
	Initialize(ctx context.Context, slotID string, remaining int) error

	// Reserve atomically decrements remaining capacity by passengers.
	Reserve(ctx context.Context, slotID string, passengers int) error

	// Release returns passengers seats to the slot, capped at maxCapacity.
	Release(ctx context.Context, slotID string, passengers, maxCapacity int) error
}
