// Package repository holds the persistence interfaces and their PostgreSQL
// and in-memory implementations. Postgres is the system of record for slots,
// bookings, payment transactions, discount codes and cancellation records;
// the memory implementations back tests.
package repository

import (
	"context"
	"time"

	"github.com/wavetours/booking-engine/internal/domain"
)

// SlotRepository stores tour slots.
type SlotRepository interface {
	Create(ctx context.Context, slot *domain.Slot) error
	GetByID(ctx context.Context, id string) (*domain.Slot, error)
	GetByKey(ctx context.Context, tourID, date, tm string) (*domain.Slot, error)

	// ListByTour lists a tour's slots, optionally filtered to one date.
	ListByTour(ctx context.Context, tourID, date string) ([]*domain.Slot, error)

	// AdjustBooked moves the persisted booked counter by delta, guarded so
	// 0 <= booked <= max always holds. Returns domain.ErrCapacityExceeded
	// when the guard rejects the move.
	AdjustBooked(ctx context.Context, id string, delta int) error
}

// BookingRepository stores bookings. Bookings are never deleted.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error

	// UpdateIfStatus persists b only while the stored row still carries the
	// expected status, so concurrent lifecycle transitions cannot both win.
	// Returns domain.ErrInvalidBookingStatus when the row moved on.
	UpdateIfStatus(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error

	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error)

	// GetExpiredPending returns pending bookings whose hold lapsed before now.
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error)

	// GetConfirmedDeparted returns confirmed bookings whose tour date passed.
	GetConfirmedDeparted(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error)
}

// PaymentRepository stores the append-only payment transaction audit trail.
type PaymentRepository interface {
	Create(ctx context.Context, t *domain.PaymentTransaction) error
	Update(ctx context.Context, t *domain.PaymentTransaction) error
	GetByID(ctx context.Context, id string) (*domain.PaymentTransaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentTransaction, error)

	// GetByGatewayTxnID resolves a transaction by the provider-side reference,
	// used by challenge completion and webhooks.
	GetByGatewayTxnID(ctx context.Context, gatewayTxnID string) (*domain.PaymentTransaction, error)

	// GetSucceededCharge returns the successful charge row for a booking.
	GetSucceededCharge(ctx context.Context, bookingID string) (*domain.PaymentTransaction, error)

	// CountAttempts counts prior attempts of a kind for a booking, used to
	// derive idempotency keys.
	CountAttempts(ctx context.Context, bookingID string, kind domain.TransactionKind) (int, error)
}

// CancellationRepository stores cancellation records.
type CancellationRepository interface {
	Create(ctx context.Context, r *domain.CancellationRecord) error
	Update(ctx context.Context, r *domain.CancellationRecord) error
	GetByBookingID(ctx context.Context, bookingID string) (*domain.CancellationRecord, error)
}
