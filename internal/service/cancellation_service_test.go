package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wavetours/booking-engine/internal/domain"
)

func TestCancel_PendingReleasesWithoutRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	slot := f.seedSlot(t, 10)
	result := f.checkout(t)

	out, err := f.cancellation.Cancel(ctx, &CancelInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		Reason:    "change of plans",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if out.Booking.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", out.Booking.Status)
	}
	if out.Cancellation.RefundStatus != domain.RefundStatusNone {
		t.Errorf("refund status = %s, want none", out.Cancellation.RefundStatus)
	}
	if out.Cancellation.RefundAmount != 0 {
		t.Errorf("refund amount = %d, want 0", out.Cancellation.RefundAmount)
	}

	if n := f.remaining(t, slot.ID); n != 10 {
		t.Errorf("ledger remaining = %d, want 10", n)
	}
	if _, held := f.locks.Holder(slot.Key()); held {
		t.Error("slot lease still held after cancellation")
	}
	if events := f.publisher.EventsOfType(domain.BookingEventCancelled); len(events) != 1 {
		t.Errorf("cancelled events = %d, want 1", len(events))
	}
}

func TestCancel_ConfirmedGetsFullRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	slot := f.seedSlot(t, 10)
	result := f.checkout(t)
	f.charge(t, result.Booking.ID)

	out, err := f.cancellation.Cancel(ctx, &CancelInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		Reason:    "illness",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if out.Booking.Status != domain.BookingStatusRefunded {
		t.Errorf("status = %s, want refunded", out.Booking.Status)
	}
	if out.Cancellation.RefundStatus != domain.RefundStatusCompleted {
		t.Errorf("refund status = %s, want completed", out.Cancellation.RefundStatus)
	}
	if out.Cancellation.RefundAmount != result.Booking.FinalPrice {
		t.Errorf("refund amount = %d, want %d", out.Cancellation.RefundAmount, result.Booking.FinalPrice)
	}
	if out.Cancellation.RefundTxnID == "" {
		t.Error("missing refund transaction id")
	}

	// Both seat counters return: the ledger and the persisted booked count
	// that moved at confirmation.
	if n := f.remaining(t, slot.ID); n != 10 {
		t.Errorf("ledger remaining = %d, want 10", n)
	}
	got, _ := f.slots.GetByID(ctx, slot.ID)
	if got.Booked != 0 {
		t.Errorf("persisted booked = %d, want 0", got.Booked)
	}

	if events := f.publisher.EventsOfType(domain.BookingEventRefunded); len(events) != 1 {
		t.Errorf("refunded events = %d, want 1", len(events))
	}
}

// The critical partial-failure path: the refund fails, the booking STAYS
// confirmed and the seats stay taken, while the record carries the failed
// refund for operator retry.
func TestCancel_RefundFailureLeavesBookingConfirmed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	slot := f.seedSlot(t, 10)
	result := f.checkout(t)
	f.charge(t, result.Booking.ID)

	f.wallet.FailRefunds(true)

	out, err := f.cancellation.Cancel(ctx, &CancelInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
	})
	if !errors.Is(err, domain.ErrRefundFailed) {
		t.Fatalf("Cancel = %v, want ErrRefundFailed", err)
	}
	if out == nil || out.Cancellation == nil {
		t.Fatal("refund failure must still return the cancellation record")
	}
	if out.Cancellation.RefundStatus != domain.RefundStatusFailed {
		t.Errorf("refund status = %s, want failed", out.Cancellation.RefundStatus)
	}

	booking, _ := f.bookings.GetByID(ctx, result.Booking.ID)
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s, booking must stay confirmed", booking.Status)
	}
	got, _ := f.slots.GetByID(ctx, slot.ID)
	if got.Booked != 4 {
		t.Errorf("persisted booked = %d, seats must stay taken", got.Booked)
	}
	if n := f.remaining(t, slot.ID); n != 6 {
		t.Errorf("ledger remaining = %d, want 6", n)
	}

	// The failed record is retrievable for reconciliation.
	record, err := f.cancellation.GetCancellation(ctx, result.Booking.ID)
	if err != nil {
		t.Fatalf("GetCancellation: %v", err)
	}
	if record.RefundStatus != domain.RefundStatusFailed {
		t.Errorf("stored refund status = %s", record.RefundStatus)
	}
}

func TestCancel_TieredPolicyZeroRefundStillCancels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cancellation = NewCancellationService(
		f.bookings, f.slots, f.cancellations, f.payment, f.booking, TieredRefundPolicy{},
	)
	f.cancellation.SetClock(f.clock)

	f.seedSlot(t, 10)
	result := f.checkout(t)
	f.charge(t, result.Booking.ID)

	// Day of departure: the tiered policy refunds nothing.
	f.now = time.Date(2026, 7, 18, 6, 0, 0, 0, time.UTC)

	out, err := f.cancellation.Cancel(ctx, &CancelInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if out.Booking.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled (no refund issued)", out.Booking.Status)
	}
	if out.Cancellation.RefundStatus != domain.RefundStatusNone {
		t.Errorf("refund status = %s, want none", out.Cancellation.RefundStatus)
	}
	// No refund transaction was created.
	if n, _ := f.payments.CountAttempts(ctx, result.Booking.ID, domain.TransactionKindRefund); n != 0 {
		t.Errorf("refund rows = %d, want 0", n)
	}
}

func TestCancel_DepartedTourRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)
	f.charge(t, result.Booking.ID)

	// Two days after departure, before the completion sweep has run.
	f.now = time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC)

	_, err := f.cancellation.Cancel(ctx, &CancelInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
	})
	if !errors.Is(err, domain.ErrTourAlreadyDeparted) {
		t.Fatalf("Cancel = %v, want ErrTourAlreadyDeparted", err)
	}

	booking, _ := f.bookings.GetByID(ctx, result.Booking.ID)
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s, departed cancel must not transition", booking.Status)
	}
	// No cancellation record was written.
	if _, err := f.cancellations.GetByBookingID(ctx, result.Booking.ID); err == nil {
		t.Error("departed cancel left a cancellation record")
	}
	// No refund was attempted.
	if n, _ := f.payments.CountAttempts(ctx, result.Booking.ID, domain.TransactionKindRefund); n != 0 {
		t.Errorf("refund rows = %d, want 0", n)
	}
}

func TestCancel_RepeatRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	if _, err := f.cancellation.Cancel(ctx, &CancelInput{BookingID: result.Booking.ID, UserID: "u-1"}); err != nil {
		t.Fatal(err)
	}
	_, err := f.cancellation.Cancel(ctx, &CancelInput{BookingID: result.Booking.ID, UserID: "u-1"})
	if !errors.Is(err, domain.ErrAlreadyCancelled) {
		t.Fatalf("repeat Cancel = %v, want ErrAlreadyCancelled", err)
	}
}

func TestCancel_ForeignBookingHidden(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	_, err := f.cancellation.Cancel(context.Background(), &CancelInput{
		BookingID: result.Booking.ID,
		UserID:    "u-2",
	})
	if !errors.Is(err, domain.ErrBookingNotFound) {
		t.Fatalf("Cancel = %v, want ErrBookingNotFound", err)
	}
}

func TestTieredRefundPolicy(t *testing.T) {
	policy := TieredRefundPolicy{}

	tests := []struct {
		days int
		want int64
	}{
		{14, 37908},
		{7, 37908},
		{6, 28431}, // 75 percent
		{3, 28431},
		{2, 18954}, // 50 percent
		{1, 18954},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := policy.RefundAmount(37908, tt.days); int64(got) != tt.want {
			t.Errorf("RefundAmount(37908, %d) = %d, want %d", tt.days, got, tt.want)
		}
	}
}
