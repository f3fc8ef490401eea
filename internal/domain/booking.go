package domain

import (
	"strings"
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

// BookingStatus represents the lifecycle status of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// IsValid checks if the status is a valid BookingStatus.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted,
		BookingStatusNoShow, BookingStatusCancelled, BookingStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of BookingStatus.
func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is permitted.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusNoShow, BookingStatusCancelled, BookingStatusRefunded:
		return true
	}
	return false
}

// PaymentState tracks the payment side of a booking independently of its
// lifecycle status.
type PaymentState string

const (
	PaymentStatePending    PaymentState = "pending"
	PaymentStateProcessing PaymentState = "processing"
	PaymentStateCompleted  PaymentState = "completed"
	PaymentStateFailed     PaymentState = "failed"
	PaymentStateRefunded   PaymentState = "refunded"
)

// Passenger holds per-passenger details captured at checkout.
type Passenger struct {
	FullName string `json:"full_name"`
	Document string `json:"document,omitempty"`
	Age      int    `json:"age,omitempty"`
}

// Booking represents one checkout attempt against a slot. Bookings are never
// deleted, only terminally transitioned.
type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	SlotID        string        `json:"slot_id"`
	SlotKey       string        `json:"slot_key"`
	TourDate      time.Time     `json:"tour_date"`
	Passengers    int           `json:"passengers"`
	PassengerList []Passenger   `json:"passenger_list,omitempty"`
	ContactEmail  string        `json:"contact_email,omitempty"`
	BasePrice     money.Amount  `json:"base_price"`
	FinalPrice    money.Amount  `json:"final_price"`
	Currency      string        `json:"currency"`
	DiscountCode  string        `json:"discount_code,omitempty"`
	Status        BookingStatus `json:"status"`
	PaymentState  PaymentState  `json:"payment_state"`
	GatewayTxnID  string        `json:"gateway_txn_id,omitempty"`
	HoldExpiresAt time.Time     `json:"hold_expires_at"`
	CreatedAt     time.Time     `json:"created_at"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Validate validates booking fields on creation.
func (b *Booking) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrBookingNotFound
	}
	if strings.TrimSpace(b.UserID) == "" {
		return ErrInvalidUserID
	}
	if b.Passengers <= 0 {
		return ErrInvalidPassengers
	}
	if b.FinalPrice < 0 {
		return ErrInvalidBookingStatus
	}
	if !b.Status.IsValid() {
		return ErrInvalidBookingStatus
	}
	return nil
}

// HoldExpired reports whether the checkout hold has lapsed at time t.
func (b *Booking) HoldExpired(t time.Time) bool {
	return t.After(b.HoldExpiresAt)
}

// CanConfirm reports whether the booking may transition to confirmed.
func (b *Booking) CanConfirm(now time.Time) bool {
	return b.Status == BookingStatusPending && !b.HoldExpired(now)
}

// Confirm transitions pending -> confirmed. Exactly one successful Confirm
// may occur per booking; a second attempt fails with ErrAlreadyConfirmed.
func (b *Booking) Confirm(gatewayTxnID string, now time.Time) error {
	if b.Status == BookingStatusConfirmed {
		return ErrAlreadyConfirmed
	}
	if b.Status != BookingStatusPending {
		return ErrInvalidBookingStatus
	}
	if b.HoldExpired(now) {
		return ErrBookingExpired
	}
	b.Status = BookingStatusConfirmed
	b.PaymentState = PaymentStateCompleted
	b.GatewayTxnID = gatewayTxnID
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return nil
}

// Expire transitions a pending booking whose hold lapsed to cancelled.
// Nothing was charged, so no refund is owed.
func (b *Booking) Expire(now time.Time) error {
	if b.Status != BookingStatusPending {
		return ErrInvalidBookingStatus
	}
	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// Cancel transitions pending/confirmed -> cancelled (refunded when a refund
// was issued). Terminal states reject the transition.
func (b *Booking) Cancel(refunded bool, now time.Time) error {
	switch b.Status {
	case BookingStatusCancelled, BookingStatusRefunded:
		return ErrAlreadyCancelled
	case BookingStatusPending, BookingStatusConfirmed:
	default:
		return ErrInvalidBookingStatus
	}
	if refunded {
		b.Status = BookingStatusRefunded
		b.PaymentState = PaymentStateRefunded
	} else {
		b.Status = BookingStatusCancelled
	}
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// Complete transitions confirmed -> completed after the tour date has passed.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != BookingStatusConfirmed {
		return ErrInvalidBookingStatus
	}
	if now.Before(b.TourDate) {
		return ErrInvalidBookingStatus
	}
	b.Status = BookingStatusCompleted
	b.UpdatedAt = now
	return nil
}

// MarkNoShow records the terminal no-show variant of completion.
func (b *Booking) MarkNoShow(now time.Time) error {
	if b.Status != BookingStatusConfirmed {
		return ErrInvalidBookingStatus
	}
	b.Status = BookingStatusNoShow
	b.UpdatedAt = now
	return nil
}

// BelongsToUser checks booking ownership.
func (b *Booking) BelongsToUser(userID string) bool {
	return b.UserID == userID
}
