package domain

import (
	"errors"
	"testing"
	"time"
)

func pendingBooking(holdExpiry time.Time) *Booking {
	return &Booking{
		ID:            "b-1",
		UserID:        "u-1",
		SlotID:        "s-1",
		SlotKey:       "tour:2026-07-18:09:00",
		TourDate:      time.Date(2026, 7, 18, 9, 0, 0, 0, time.UTC),
		Passengers:    2,
		FinalPrice:    37908,
		Currency:      "USD",
		Status:        BookingStatusPending,
		PaymentState:  PaymentStatePending,
		HoldExpiresAt: holdExpiry,
	}
}

func TestBooking_Confirm(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending confirms once", func(t *testing.T) {
		b := pendingBooking(now.Add(10 * time.Minute))
		if err := b.Confirm("wtx_1", now); err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if b.Status != BookingStatusConfirmed || b.PaymentState != PaymentStateCompleted {
			t.Errorf("status=%s payment=%s", b.Status, b.PaymentState)
		}
		if b.GatewayTxnID != "wtx_1" || b.ConfirmedAt == nil {
			t.Errorf("gateway txn / confirmed at not recorded")
		}

		if err := b.Confirm("wtx_2", now); !errors.Is(err, ErrAlreadyConfirmed) {
			t.Errorf("second Confirm = %v, want ErrAlreadyConfirmed", err)
		}
		if b.GatewayTxnID != "wtx_1" {
			t.Errorf("gateway txn overwritten on repeat confirm")
		}
	})

	t.Run("expired hold rejects", func(t *testing.T) {
		b := pendingBooking(now.Add(-time.Minute))
		if err := b.Confirm("wtx_1", now); !errors.Is(err, ErrBookingExpired) {
			t.Errorf("Confirm = %v, want ErrBookingExpired", err)
		}
	})

	t.Run("terminal states reject", func(t *testing.T) {
		for _, status := range []BookingStatus{BookingStatusCancelled, BookingStatusCompleted, BookingStatusRefunded, BookingStatusNoShow} {
			b := pendingBooking(now.Add(10 * time.Minute))
			b.Status = status
			if err := b.Confirm("wtx_1", now); !errors.Is(err, ErrInvalidBookingStatus) {
				t.Errorf("Confirm from %s = %v, want ErrInvalidBookingStatus", status, err)
			}
		}
	})
}

func TestBooking_Cancel(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     BookingStatus
		refunded   bool
		wantErr    error
		wantStatus BookingStatus
	}{
		{"pending without refund", BookingStatusPending, false, nil, BookingStatusCancelled},
		{"confirmed with refund", BookingStatusConfirmed, true, nil, BookingStatusRefunded},
		{"confirmed without refund", BookingStatusConfirmed, false, nil, BookingStatusCancelled},
		{"already cancelled", BookingStatusCancelled, false, ErrAlreadyCancelled, BookingStatusCancelled},
		{"already refunded", BookingStatusRefunded, true, ErrAlreadyCancelled, BookingStatusRefunded},
		{"completed is terminal", BookingStatusCompleted, false, ErrInvalidBookingStatus, BookingStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pendingBooking(now.Add(10 * time.Minute))
			b.Status = tt.status

			err := b.Cancel(tt.refunded, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Cancel = %v, want %v", err, tt.wantErr)
			}
			if b.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", b.Status, tt.wantStatus)
			}
			if tt.wantErr == nil && tt.refunded && b.PaymentState != PaymentStateRefunded {
				t.Errorf("payment state = %s, want refunded", b.PaymentState)
			}
		})
	}
}

func TestBooking_Expire(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	b := pendingBooking(now.Add(-time.Minute))
	if !b.HoldExpired(now) {
		t.Fatal("hold should be expired")
	}
	if err := b.Expire(now); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if b.Status != BookingStatusCancelled || b.CancelledAt == nil {
		t.Errorf("status=%s cancelledAt=%v", b.Status, b.CancelledAt)
	}

	confirmed := pendingBooking(now.Add(10 * time.Minute))
	confirmed.Status = BookingStatusConfirmed
	if err := confirmed.Expire(now); !errors.Is(err, ErrInvalidBookingStatus) {
		t.Errorf("Expire confirmed = %v, want ErrInvalidBookingStatus", err)
	}
}

func TestBooking_Complete(t *testing.T) {
	departure := time.Date(2026, 7, 18, 9, 0, 0, 0, time.UTC)

	b := pendingBooking(departure)
	b.Status = BookingStatusConfirmed
	b.TourDate = departure

	if err := b.Complete(departure.Add(-time.Hour)); !errors.Is(err, ErrInvalidBookingStatus) {
		t.Errorf("Complete before departure = %v, want ErrInvalidBookingStatus", err)
	}
	if err := b.Complete(departure.Add(time.Hour)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if b.Status != BookingStatusCompleted {
		t.Errorf("status = %s", b.Status)
	}
}

func TestBooking_Validate(t *testing.T) {
	now := time.Now()

	valid := pendingBooking(now.Add(time.Minute))
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	noUser := pendingBooking(now.Add(time.Minute))
	noUser.UserID = " "
	if err := noUser.Validate(); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("Validate = %v, want ErrInvalidUserID", err)
	}

	badPax := pendingBooking(now.Add(time.Minute))
	badPax.Passengers = 0
	if err := badPax.Validate(); !errors.Is(err, ErrInvalidPassengers) {
		t.Errorf("Validate = %v, want ErrInvalidPassengers", err)
	}
}

func TestSlotStatus(t *testing.T) {
	tests := []struct {
		name   string
		slot   Slot
		want   SlotStatus
	}{
		{"available", Slot{MaxCapacity: 20, Booked: 5}, SlotStatusAvailable},
		{"limited below 25 pct", Slot{MaxCapacity: 20, Booked: 16}, SlotStatusLimited},
		{"full", Slot{MaxCapacity: 20, Booked: 20}, SlotStatusFull},
		{"cancelled wins", Slot{MaxCapacity: 20, Booked: 0, Cancelled: true}, SlotStatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slot.Status(); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}
