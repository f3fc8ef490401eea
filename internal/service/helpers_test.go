package service

import (
	"context"
	"testing"
	"time"

	"github.com/wavetours/booking-engine/internal/discount"
	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/events"
	"github.com/wavetours/booking-engine/internal/gateway"
	"github.com/wavetours/booking-engine/internal/ledger"
	"github.com/wavetours/booking-engine/internal/lock"
	"github.com/wavetours/booking-engine/internal/pricing"
	"github.com/wavetours/booking-engine/internal/repository"
)

// fixture wires the full orchestration stack on the in-memory backends. The
// clock is frozen at 2026-06-01 12:00 UTC and advanced explicitly.
type fixture struct {
	slots         *repository.MemorySlotRepository
	bookings      *repository.MemoryBookingRepository
	payments      *repository.MemoryPaymentRepository
	cancellations *repository.MemoryCancellationRepository
	discounts     *repository.MemoryDiscountRepository
	locks         *lock.MemoryCoordinator
	capacity      *ledger.MemoryLedger
	publisher     *events.RecordingPublisher
	wallet        *gateway.WalletGateway

	booking      *BookingService
	payment      *PaymentService
	cancellation *CancellationService

	now time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		slots:         repository.NewMemorySlotRepository(),
		bookings:      repository.NewMemoryBookingRepository(),
		payments:      repository.NewMemoryPaymentRepository(),
		cancellations: repository.NewMemoryCancellationRepository(),
		discounts:     repository.NewMemoryDiscountRepository(),
		locks:         lock.NewMemoryCoordinator(),
		capacity:      ledger.NewMemoryLedger(),
		publisher:     events.NewRecordingPublisher(),
		now:           time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.locks.SetClock(f.clock)

	registry := gateway.NewRegistry(&gateway.Config{})
	gw, err := registry.Resolve("wallet")
	if err != nil {
		t.Fatalf("resolve wallet gateway: %v", err)
	}
	f.wallet = gw.(*gateway.WalletGateway)

	validator := discount.NewValidator(f.discounts)
	validator.SetClock(f.clock)

	f.booking = NewBookingService(
		f.slots, f.bookings, f.locks, f.capacity,
		pricing.NewEngine(nil), pricing.DefaultRateTable(),
		validator, f.publisher, nil,
	)
	f.booking.SetClock(f.clock)

	f.payment = NewPaymentService(f.booking, f.bookings, f.payments, registry, nil)
	f.payment.SetClock(f.clock)

	f.cancellation = NewCancellationService(
		f.bookings, f.slots, f.cancellations, f.payment, f.booking, FullRefundPolicy{},
	)
	f.cancellation.SetClock(f.clock)

	return f
}

// seedSlot creates the canonical high-season Saturday slot: 2026-07-18 09:00,
// base price 75.00 per passenger.
func (f *fixture) seedSlot(t *testing.T, capacity int) *domain.Slot {
	t.Helper()
	slot := &domain.Slot{
		ID:          "slot-1",
		TourID:      "bali-sunrise-trek",
		Date:        "2026-07-18",
		Time:        "09:00",
		MaxCapacity: capacity,
		BasePrice:   7500,
		CreatedAt:   f.now,
		UpdatedAt:   f.now,
	}
	ctx := context.Background()
	if err := f.slots.Create(ctx, slot); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	if err := f.capacity.Initialize(ctx, slot.ID, capacity); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	return slot
}

// checkout runs a four-passenger checkout for u-1 and fails the test on error.
func (f *fixture) checkout(t *testing.T) *CheckoutResult {
	t.Helper()
	result, err := f.booking.Checkout(context.Background(), &CheckoutInput{
		UserID:     "u-1",
		TourID:     "bali-sunrise-trek",
		Date:       "2026-07-18",
		Time:       "09:00",
		Passengers: 4,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return result
}

// charge runs a wallet charge for a booking and fails the test on error.
func (f *fixture) charge(t *testing.T, bookingID string) *ChargeOutcome {
	t.Helper()
	outcome, err := f.payment.CreateCharge(context.Background(), &ChargeInput{
		BookingID: bookingID,
		UserID:    "u-1",
		MethodRef: "wallet:ok",
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	return outcome
}

func (f *fixture) remaining(t *testing.T, slotID string) int {
	t.Helper()
	n, err := f.capacity.Remaining(context.Background(), slotID)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	return n
}
