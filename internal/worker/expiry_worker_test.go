package worker

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
	"github.com/wavetours/booking-engine/internal/service"
)

type sweepFixture struct {
	slots    *repository.MemorySlotRepository
	bookings *repository.MemoryBookingRepository
	capacity *ledger.MemoryLedger
	booking  *service.BookingService
	payment  *service.PaymentService
	worker   *ExpiryWorker

	now time.Time
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	f := &sweepFixture{
		slots:    repository.NewMemorySlotRepository(),
		bookings: repository.NewMemoryBookingRepository(),
		capacity: ledger.NewMemoryLedger(),
		now:      time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	locks := lock.NewMemoryCoordinator()
	locks.SetClock(clock)

	validator := discount.NewValidator(repository.NewMemoryDiscountRepository())
	validator.SetClock(clock)

	f.booking = service.NewBookingService(
		f.slots, f.bookings, locks, f.capacity,
		pricing.NewEngine(nil), pricing.DefaultRateTable(),
		validator, events.NewRecordingPublisher(), nil,
	)
	f.booking.SetClock(clock)

	registry := gateway.NewRegistry(&gateway.Config{})
	f.payment = service.NewPaymentService(f.booking, f.bookings, repository.NewMemoryPaymentRepository(), registry, nil)
	f.payment.SetClock(clock)

	f.worker = NewExpiryWorker(f.booking, &ExpiryWorkerConfig{
		Interval:  time.Minute,
		BatchSize: 100,
	})
	return f
}

func (f *sweepFixture) seedSlot(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	slot := &domain.Slot{
		ID:          "slot-1",
		TourID:      "bali-sunrise-trek",
		Date:        "2026-07-18",
		Time:        "09:00",
		MaxCapacity: 10,
		BasePrice:   7500,
		CreatedAt:   f.now,
		UpdatedAt:   f.now,
	}
	if err := f.slots.Create(ctx, slot); err != nil {
		t.Fatal(err)
	}
	if err := f.capacity.Initialize(ctx, slot.ID, slot.MaxCapacity); err != nil {
		t.Fatal(err)
	}
}

func (f *sweepFixture) checkout(t *testing.T) *domain.Booking {
	t.Helper()
	result, err := f.booking.Checkout(context.Background(), &service.CheckoutInput{
		UserID:     "u-1",
		TourID:     "bali-sunrise-trek",
		Date:       "2026-07-18",
		Time:       "09:00",
		Passengers: 4,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return result.Booking
}

func TestSweep_ExpiresLapsedHolds(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	f.seedSlot(t)
	booking := f.checkout(t)

	// Inside the hold window nothing happens.
	f.worker.Sweep(ctx)
	got, _ := f.bookings.GetByID(ctx, booking.ID)
	if got.Status != domain.BookingStatusPending {
		t.Fatalf("status = %s before hold lapse", got.Status)
	}

	f.now = f.now.Add(16 * time.Minute)
	f.worker.Sweep(ctx)

	got, _ = f.bookings.GetByID(ctx, booking.ID)
	if got.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if n, _ := f.capacity.Remaining(ctx, "slot-1"); n != 10 {
		t.Errorf("ledger remaining = %d, want 10 after sweep", n)
	}
}

func TestSweep_CompletesDepartedTours(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(t)
	f.seedSlot(t)
	booking := f.checkout(t)

	if _, err := f.payment.CreateCharge(ctx, &service.ChargeInput{
		BookingID: booking.ID,
		UserID:    "u-1",
		MethodRef: "wallet:ok",
	}); err != nil {
		t.Fatalf("charge: %v", err)
	}

	// Confirmed bookings survive the sweep until departure.
	f.now = f.now.Add(16 * time.Minute)
	f.worker.Sweep(ctx)
	got, _ := f.bookings.GetByID(ctx, booking.ID)
	if got.Status != domain.BookingStatusConfirmed {
		t.Fatalf("status = %s, confirmed booking must survive the sweep", got.Status)
	}

	f.now = time.Date(2026, 7, 18, 10, 0, 0, 0, time.UTC)
	f.worker.Sweep(ctx)

	got, _ = f.bookings.GetByID(ctx, booking.ID)
	if got.Status != domain.BookingStatusCompleted {
		t.Errorf("status = %s, want completed after departure", got.Status)
	}
}

func TestWorker_StartStop(t *testing.T) {
	f := newSweepFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.worker.Start(ctx)
	f.worker.Stop()
	// Stop is idempotent.
	f.worker.Stop()
}
