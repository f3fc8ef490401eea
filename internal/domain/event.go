package domain

import (
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

// BookingEventType identifies a lifecycle event emitted by the engine.
type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
	BookingEventExpired   BookingEventType = "booking.expired"
	BookingEventCompleted BookingEventType = "booking.completed"
	BookingEventRefunded  BookingEventType = "booking.refunded"
)

// BookingEvent is the payload published to external subscribers (messaging,
// analytics). The engine emits events; it does not own subscribers.
type BookingEvent struct {
	EventID    string           `json:"event_id"`
	Type       BookingEventType `json:"type"`
	BookingID  string           `json:"booking_id"`
	UserID     string           `json:"user_id"`
	SlotKey    string           `json:"slot_key"`
	Passengers int              `json:"passengers"`
	FinalPrice money.Amount     `json:"final_price"`
	Currency   string           `json:"currency"`
	Status     BookingStatus    `json:"status"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewBookingEvent builds an event from a booking snapshot.
func NewBookingEvent(eventType BookingEventType, b *Booking, eventID string) *BookingEvent {
	return &BookingEvent{
		EventID:    eventID,
		Type:       eventType,
		BookingID:  b.ID,
		UserID:     b.UserID,
		SlotKey:    b.SlotKey,
		Passengers: b.Passengers,
		FinalPrice: b.FinalPrice,
		Currency:   b.Currency,
		Status:     b.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// Key returns the partition key for the event (bookings keep ordering).
func (e *BookingEvent) Key() string {
	return e.BookingID
}
