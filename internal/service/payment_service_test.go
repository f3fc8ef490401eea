package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wavetours/booking-engine/internal/domain"
)

func TestCreateCharge_Succeeds(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	outcome := f.charge(t, result.Booking.ID)

	if outcome.Booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s, want confirmed", outcome.Booking.Status)
	}
	if outcome.Transaction.Status != domain.TransactionStatusSucceeded {
		t.Errorf("txn status = %s", outcome.Transaction.Status)
	}
	if outcome.Transaction.Amount != result.Booking.FinalPrice {
		t.Errorf("txn amount = %d, want %d", outcome.Transaction.Amount, result.Booking.FinalPrice)
	}
	if want := fmt.Sprintf("charge:%s:0", result.Booking.ID); outcome.Transaction.IdempotencyKey != want {
		t.Errorf("idempotency key = %q, want %q", outcome.Transaction.IdempotencyKey, want)
	}
	if f.wallet.ChargeCount() != 1 {
		t.Errorf("provider transactions = %d, want 1", f.wallet.ChargeCount())
	}
}

// A repeat call after success replays the recorded outcome instead of charging
// again.
func TestCreateCharge_ReplayAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	first := f.charge(t, result.Booking.ID)
	second := f.charge(t, result.Booking.ID)

	if second.Transaction.ID != first.Transaction.ID {
		t.Errorf("replay returned a different transaction: %s vs %s",
			second.Transaction.ID, first.Transaction.ID)
	}
	if f.wallet.ChargeCount() != 1 {
		t.Errorf("provider transactions = %d, want 1 after replay", f.wallet.ChargeCount())
	}
}

// A transient gateway failure is retried under the same idempotency key, so
// the provider-side dedupe guarantees at most one real charge.
func TestCreateCharge_TransientRetryReusesKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	outcome, err := f.payment.CreateCharge(ctx, &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		MethodRef: "wallet:timeout-once",
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}

	if outcome.Booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s, want confirmed after retry", outcome.Booking.Status)
	}
	if f.wallet.ChargeCount() != 1 {
		t.Errorf("provider transactions = %d, want 1", f.wallet.ChargeCount())
	}
	// One logical attempt, one transaction row.
	if n, _ := f.payments.CountAttempts(ctx, result.Booking.ID, domain.TransactionKindCharge); n != 1 {
		t.Errorf("charge rows = %d, want 1", n)
	}
}

func TestCreateCharge_Declined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	outcome, err := f.payment.CreateCharge(ctx, &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		MethodRef: "wallet:declined",
	})
	if !errors.Is(err, domain.ErrPaymentDeclined) {
		t.Fatalf("CreateCharge = %v, want ErrPaymentDeclined", err)
	}
	if outcome.Transaction.Status != domain.TransactionStatusDeclined {
		t.Errorf("txn status = %s", outcome.Transaction.Status)
	}
	if outcome.Transaction.FailureCode != "insufficient_funds" {
		t.Errorf("failure code = %q", outcome.Transaction.FailureCode)
	}

	booking, _ := f.bookings.GetByID(ctx, result.Booking.ID)
	if booking.Status != domain.BookingStatusPending {
		t.Errorf("status = %s, decline must not cancel the booking", booking.Status)
	}
	if booking.PaymentState != domain.PaymentStateFailed {
		t.Errorf("payment state = %s, want failed", booking.PaymentState)
	}

	// A fresh attempt with a working method gets the next idempotency key
	// and succeeds.
	retry := f.charge(t, result.Booking.ID)
	if want := fmt.Sprintf("charge:%s:1", result.Booking.ID); retry.Transaction.IdempotencyKey != want {
		t.Errorf("retry idempotency key = %q, want %q", retry.Transaction.IdempotencyKey, want)
	}
	if retry.Booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("retry status = %s, want confirmed", retry.Booking.Status)
	}
}

func TestCreateCharge_ChallengeRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	outcome, err := f.payment.CreateCharge(ctx, &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		MethodRef: "wallet:challenge",
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}
	if outcome.ChallengeRef == "" {
		t.Fatal("missing challenge ref")
	}
	if outcome.Transaction.Status != domain.TransactionStatusRequiresChallenge {
		t.Errorf("txn status = %s", outcome.Transaction.Status)
	}
	// The booking is not confirmed until the challenge resolves.
	booking, _ := f.bookings.GetByID(ctx, result.Booking.ID)
	if booking.Status != domain.BookingStatusPending {
		t.Errorf("status = %s before challenge completion", booking.Status)
	}

	completed, err := f.payment.CompleteChallenge(ctx, outcome.ChallengeRef)
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if completed.Booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s after challenge, want confirmed", completed.Booking.Status)
	}

	if _, err := f.payment.CompleteChallenge(ctx, outcome.ChallengeRef); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Errorf("repeat CompleteChallenge = %v, want ErrChallengeNotFound", err)
	}
}

// A second charge while a step-up challenge is pending is rejected instead
// of opening a second provider attempt.
func TestCreateCharge_DuplicateWhileChallengePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	outcome, err := f.payment.CreateCharge(ctx, &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		MethodRef: "wallet:challenge",
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}

	_, err = f.payment.CreateCharge(ctx, &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		MethodRef: "wallet:ok",
	})
	if !errors.Is(err, domain.ErrDuplicateCharge) {
		t.Fatalf("second CreateCharge = %v, want ErrDuplicateCharge", err)
	}
	if f.wallet.ChargeCount() != 0 {
		t.Errorf("provider transactions = %d, want 0 while challenge pending", f.wallet.ChargeCount())
	}

	// Resolving the challenge still completes the original attempt.
	completed, err := f.payment.CompleteChallenge(ctx, outcome.ChallengeRef)
	if err != nil {
		t.Fatalf("CompleteChallenge: %v", err)
	}
	if completed.Booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s, want confirmed", completed.Booking.Status)
	}
}

func TestCreateCharge_ExpiredHold(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	f.now = f.now.Add(16 * time.Minute)

	_, err := f.payment.CreateCharge(context.Background(), &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		MethodRef: "wallet:ok",
	})
	if !errors.Is(err, domain.ErrBookingExpired) {
		t.Fatalf("CreateCharge = %v, want ErrBookingExpired", err)
	}
}

func TestCreateCharge_UnknownProvider(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	_, err := f.payment.CreateCharge(context.Background(), &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-1",
		Provider:  "carrier-pigeon",
	})
	if !errors.Is(err, domain.ErrUnknownGateway) {
		t.Fatalf("CreateCharge = %v, want ErrUnknownGateway", err)
	}
}

func TestCreateCharge_ForeignBooking(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)

	_, err := f.payment.CreateCharge(context.Background(), &ChargeInput{
		BookingID: result.Booking.ID,
		UserID:    "u-2",
		MethodRef: "wallet:ok",
	})
	if !errors.Is(err, domain.ErrBookingNotFound) {
		t.Fatalf("CreateCharge = %v, want ErrBookingNotFound", err)
	}
}

func TestConfirmFromGateway_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSlot(t, 10)
	result := f.checkout(t)
	outcome := f.charge(t, result.Booking.ID)

	// The webhook arriving after the synchronous confirmation is a no-op.
	if err := f.payment.ConfirmFromGateway(ctx, outcome.Transaction.GatewayTxnID); err != nil {
		t.Fatalf("ConfirmFromGateway: %v", err)
	}

	booking, _ := f.bookings.GetByID(ctx, result.Booking.ID)
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("status = %s", booking.Status)
	}
	if events := f.publisher.EventsOfType(domain.BookingEventConfirmed); len(events) != 1 {
		t.Errorf("confirmed events = %d, want 1", len(events))
	}

	if err := f.payment.ConfirmFromGateway(ctx, "wtx_unknown"); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Errorf("unknown txn = %v, want ErrPaymentNotFound", err)
	}
}
