// Package service holds the orchestration layer: checkout, payment,
// cancellation and the quote/availability reads. Services coordinate the
// lock, ledger, repositories and gateways; domain rules live on the entities.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavetours/booking-engine/internal/discount"
	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/events"
	"github.com/wavetours/booking-engine/internal/ledger"
	"github.com/wavetours/booking-engine/internal/lock"
	"github.com/wavetours/booking-engine/internal/logger"
	"github.com/wavetours/booking-engine/internal/money"
	"github.com/wavetours/booking-engine/internal/pricing"
	"github.com/wavetours/booking-engine/internal/repository"
	"github.com/wavetours/booking-engine/internal/telemetry"
)

// BookingServiceConfig contains tunables for the checkout flow.
type BookingServiceConfig struct {
	// HoldTTL is how long a pending booking holds its seats.
	HoldTTL time.Duration
	// MaxPassengers caps one booking's party size.
	MaxPassengers int
}

// DefaultBookingServiceConfig returns the standard checkout settings.
func DefaultBookingServiceConfig() *BookingServiceConfig {
	return &BookingServiceConfig{
		HoldTTL:       15 * time.Minute,
		MaxPassengers: 50,
	}
}

// BookingService orchestrates the checkout lifecycle.
type BookingService struct {
	slots     repository.SlotRepository
	bookings  repository.BookingRepository
	locks     lock.Coordinator
	capacity  ledger.Ledger
	pricer    *pricing.Engine
	rates     *pricing.RateTable
	discounts *discount.Validator
	publisher events.Publisher
	cfg       *BookingServiceConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewBookingService wires the checkout orchestrator.
func NewBookingService(
	slots repository.SlotRepository,
	bookings repository.BookingRepository,
	locks lock.Coordinator,
	capacity ledger.Ledger,
	pricer *pricing.Engine,
	rates *pricing.RateTable,
	discounts *discount.Validator,
	publisher events.Publisher,
	cfg *BookingServiceConfig,
) *BookingService {
	if cfg == nil {
		cfg = DefaultBookingServiceConfig()
	}
	if publisher == nil {
		publisher = events.NewNoOpPublisher()
	}
	return &BookingService{
		slots:     slots,
		bookings:  bookings,
		locks:     locks,
		capacity:  capacity,
		pricer:    pricer,
		rates:     rates,
		discounts: discounts,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.Get(),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// SlotAvailability is one slot's availability view.
type SlotAvailability struct {
	Slot      *domain.Slot      `json:"slot"`
	Remaining int               `json:"remaining"`
	Status    domain.SlotStatus `json:"status"`
}

// Availability lists a tour's slots with live remaining capacity. The ledger
// counter is authoritative; the persisted booked count is the fallback when a
// slot has no counter yet.
func (s *BookingService) Availability(ctx context.Context, tourID, date string) ([]*SlotAvailability, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.availability")
	defer span.End()

	slots, err := s.slots.ListByTour(ctx, tourID, date)
	if err != nil {
		return nil, err
	}

	out := make([]*SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		remaining, err := s.capacity.Remaining(ctx, slot.ID)
		if err != nil {
			remaining = slot.Remaining()
		}
		view := *slot
		view.Booked = view.MaxCapacity - remaining
		out = append(out, &SlotAvailability{
			Slot:      &view,
			Remaining: remaining,
			Status:    view.Status(),
		})
	}
	return out, nil
}

// AvailabilityCheck answers whether one slot can seat a prospective party.
type AvailabilityCheck struct {
	Available bool              `json:"available"`
	Remaining int               `json:"remaining"`
	BasePrice money.Amount      `json:"base_price"`
	Status    domain.SlotStatus `json:"status"`
}

// CheckAvailability reports whether a specific slot can seat the party.
// Like Availability it reads the ledger, never reserving anything.
func (s *BookingService) CheckAvailability(ctx context.Context, tourID, date, tm string, passengers int) (*AvailabilityCheck, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.check_availability")
	defer span.End()

	if passengers < 1 {
		return nil, domain.ErrInvalidPassengers
	}

	slot, err := s.slots.GetByKey(ctx, tourID, date, tm)
	if err != nil {
		return nil, err
	}

	remaining, err := s.capacity.Remaining(ctx, slot.ID)
	if err != nil {
		remaining = slot.Remaining()
	}

	view := *slot
	view.Booked = view.MaxCapacity - remaining
	return &AvailabilityCheck{
		Available: !slot.Cancelled && remaining >= passengers,
		Remaining: remaining,
		BasePrice: slot.BasePrice,
		Status:    view.Status(),
	}, nil
}

// QuoteInput describes a price inquiry. Quotes have no side effects.
type QuoteInput struct {
	TourID       string
	Date         string
	Time         string
	Passengers   int
	Currency     string
	DiscountCode string
	UserID       string
}

// QuoteResult carries the breakdown plus the discount verdict.
type QuoteResult struct {
	Breakdown      *pricing.Breakdown `json:"breakdown"`
	DiscountValid  bool               `json:"discount_valid"`
	DiscountReason string             `json:"discount_reason,omitempty"`
}

// Quote prices a prospective booking without reserving anything.
func (s *BookingService) Quote(ctx context.Context, in *QuoteInput) (*QuoteResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.quote")
	defer span.End()

	if in.Passengers <= 0 || in.Passengers > s.cfg.MaxPassengers {
		return nil, domain.ErrInvalidPassengers
	}

	slot, err := s.slots.GetByKey(ctx, in.TourID, in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	departure, err := slot.DepartureTime(time.UTC)
	if err != nil {
		return nil, domain.ErrSlotNotBookable
	}

	breakdown := s.pricer.Price(pricing.Input{
		BasePrice:   slot.BasePrice,
		Passengers:  in.Passengers,
		BookingDate: s.now(),
		TourDate:    departure,
	})

	result := &QuoteResult{Breakdown: breakdown}

	if in.DiscountCode != "" {
		verdict, err := s.discounts.Validate(ctx, in.DiscountCode, breakdown.PreDiscount, in.UserID)
		if err != nil {
			return nil, err
		}
		result.DiscountValid = verdict.Valid
		result.DiscountReason = verdict.Reason
		if verdict.Valid {
			breakdown.ApplyDiscount(in.DiscountCode, verdict.Amount)
		}
	}

	if err := breakdown.ConvertTo(in.Currency, s.rates); err != nil {
		return nil, err
	}
	return result, nil
}

// CheckoutInput describes a checkout attempt.
type CheckoutInput struct {
	UserID        string
	TourID        string
	Date          string
	Time          string
	Passengers    int
	PassengerList []domain.Passenger
	ContactEmail  string
	Currency      string
	DiscountCode  string
}

// CheckoutResult is a created pending booking plus its price breakdown.
type CheckoutResult struct {
	Booking        *domain.Booking    `json:"booking"`
	Breakdown      *pricing.Breakdown `json:"breakdown"`
	DiscountValid  bool               `json:"discount_valid"`
	DiscountReason string             `json:"discount_reason,omitempty"`
}

// Checkout creates a pending booking: lease the slot, price the trip, reserve
// capacity, persist. The seats are held until the hold expires or payment
// confirms. An invalid discount code does not fail the checkout; the booking
// proceeds at full price and the reason is reported back.
func (s *BookingService) Checkout(ctx context.Context, in *CheckoutInput) (*CheckoutResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.checkout")
	defer span.End()

	if in.UserID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if in.Passengers <= 0 || in.Passengers > s.cfg.MaxPassengers {
		return nil, domain.ErrInvalidPassengers
	}

	slot, err := s.slots.GetByKey(ctx, in.TourID, in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	if slot.Cancelled {
		return nil, domain.ErrSlotNotBookable
	}

	now := s.now()
	departure, err := slot.DepartureTime(time.UTC)
	if err != nil {
		return nil, domain.ErrSlotNotBookable
	}
	if !departure.After(now) {
		return nil, domain.ErrTourAlreadyDeparted
	}

	bookingID := uuid.New().String()
	slotKey := slot.Key()

	// The checkout lease serializes attempts on the same slot. The ledger
	// re-checks capacity atomically, so the lease is about keeping the
	// pricing-reserve-persist sequence coherent, not about correctness of
	// the counter itself.
	acquired, err := s.locks.Acquire(ctx, slotKey, bookingID, s.cfg.HoldTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire slot lease: %w", err)
	}
	if !acquired {
		return nil, domain.ErrSlotContention
	}

	result, err := s.checkoutLocked(ctx, in, slot, bookingID, now, departure)
	if err != nil {
		if relErr := s.locks.Release(ctx, slotKey, bookingID); relErr != nil {
			s.log.Warn("Failed to release slot lease after checkout failure",
				zap.String("slot_key", slotKey), zap.Error(relErr))
		}
		return nil, err
	}
	return result, nil
}

func (s *BookingService) checkoutLocked(ctx context.Context, in *CheckoutInput, slot *domain.Slot, bookingID string, now, departure time.Time) (*CheckoutResult, error) {
	breakdown := s.pricer.Price(pricing.Input{
		BasePrice:   slot.BasePrice,
		Passengers:  in.Passengers,
		BookingDate: now,
		TourDate:    departure,
	})

	result := &CheckoutResult{Breakdown: breakdown}
	discountCode := ""

	if in.DiscountCode != "" {
		verdict, err := s.discounts.Validate(ctx, in.DiscountCode, breakdown.PreDiscount, in.UserID)
		if err != nil {
			return nil, err
		}
		result.DiscountValid = verdict.Valid
		result.DiscountReason = verdict.Reason
		if verdict.Valid {
			breakdown.ApplyDiscount(in.DiscountCode, verdict.Amount)
			discountCode = in.DiscountCode
		}
	}

	if err := breakdown.ConvertTo(in.Currency, s.rates); err != nil {
		return nil, err
	}

	if err := s.capacity.Reserve(ctx, slot.ID, in.Passengers); err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:            bookingID,
		UserID:        in.UserID,
		SlotID:        slot.ID,
		SlotKey:       slot.Key(),
		TourDate:      departure,
		Passengers:    in.Passengers,
		PassengerList: in.PassengerList,
		ContactEmail:  in.ContactEmail,
		BasePrice:     slot.BasePrice,
		FinalPrice:    breakdown.FinalPrice,
		Currency:      breakdown.Currency,
		DiscountCode:  discountCode,
		Status:        domain.BookingStatusPending,
		PaymentState:  domain.PaymentStatePending,
		HoldExpiresAt: now.Add(s.cfg.HoldTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := booking.Validate(); err != nil {
		s.releaseCapacity(ctx, slot, in.Passengers)
		return nil, err
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		s.releaseCapacity(ctx, slot, in.Passengers)
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	s.publish(ctx, domain.BookingEventCreated, booking)
	result.Booking = booking
	return result, nil
}

// Confirm transitions a pending booking to confirmed after a successful
// charge. The persisted booked counter moves here, the lease is released and
// the confirmed event published. A second call returns ErrAlreadyConfirmed.
func (s *BookingService) Confirm(ctx context.Context, bookingID, gatewayTxnID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.confirm")
	defer span.End()

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := booking.Confirm(gatewayTxnID, now); err != nil {
		return nil, err
	}

	// The conditional write is what decides the winner: when two confirms
	// race, only one flips pending -> confirmed, and only that one moves the
	// counters below.
	if err := s.bookings.UpdateIfStatus(ctx, booking, domain.BookingStatusPending); err != nil {
		if errors.Is(err, domain.ErrInvalidBookingStatus) {
			if cur, getErr := s.bookings.GetByID(ctx, bookingID); getErr == nil && cur.Status == domain.BookingStatusConfirmed {
				return nil, domain.ErrAlreadyConfirmed
			}
		}
		return nil, err
	}

	if err := s.slots.AdjustBooked(ctx, booking.SlotID, booking.Passengers); err != nil {
		// The ledger already holds the reservation; a guard rejection here
		// means the persisted counter drifted from it.
		s.log.Error("Booked counter adjustment rejected on confirm",
			zap.String("booking_id", bookingID), zap.Error(err))
		if !errors.Is(err, domain.ErrCapacityExceeded) {
			return nil, err
		}
	}

	if err := s.locks.Release(ctx, booking.SlotKey, booking.ID); err != nil {
		s.log.Warn("Failed to release slot lease on confirm",
			zap.String("booking_id", bookingID), zap.Error(err))
	}

	if booking.DiscountCode != "" {
		if err := s.discounts.Consume(ctx, booking.DiscountCode, booking.UserID, booking.ID); err != nil {
			// The cap guard can reject when concurrent confirmations raced
			// for the last use; the charge already happened, so log for
			// reconciliation rather than unwind the confirmation.
			s.log.Warn("Discount usage consumption failed on confirm",
				zap.String("booking_id", bookingID),
				zap.String("code", booking.DiscountCode),
				zap.Error(err))
		}
	}

	s.publish(ctx, domain.BookingEventConfirmed, booking)
	return booking, nil
}

// Expire cancels one pending booking whose hold lapsed, returning its seats.
func (s *BookingService) Expire(ctx context.Context, bookingID string) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	now := s.now()
	if !booking.HoldExpired(now) {
		return domain.ErrInvalidBookingStatus
	}
	if err := booking.Expire(now); err != nil {
		return err
	}
	// Conditional on pending so a charge racing the sweep cannot have its
	// seats handed back underneath a confirmed booking.
	if err := s.bookings.UpdateIfStatus(ctx, booking, domain.BookingStatusPending); err != nil {
		return err
	}

	s.returnSeats(ctx, booking)

	if err := s.locks.Release(ctx, booking.SlotKey, booking.ID); err != nil {
		s.log.Warn("Failed to release slot lease on expiry",
			zap.String("booking_id", bookingID), zap.Error(err))
	}

	s.publish(ctx, domain.BookingEventExpired, booking)
	return nil
}

// ExpireDue sweeps pending bookings whose hold lapsed. Returns how many were
// expired.
func (s *BookingService) ExpireDue(ctx context.Context, limit int) (int, error) {
	due, err := s.bookings.GetExpiredPending(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, b := range due {
		if err := s.Expire(ctx, b.ID); err != nil {
			s.log.Warn("Failed to expire booking",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// CompleteDeparted transitions confirmed bookings whose tour date passed to
// completed. Returns how many were completed.
func (s *BookingService) CompleteDeparted(ctx context.Context, limit int) (int, error) {
	departed, err := s.bookings.GetConfirmedDeparted(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range departed {
		if err := b.Complete(s.now()); err != nil {
			continue
		}
		if err := s.bookings.UpdateIfStatus(ctx, b, domain.BookingStatusConfirmed); err != nil {
			s.log.Warn("Failed to complete booking",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		s.publish(ctx, domain.BookingEventCompleted, b)
		completed++
	}
	return completed, nil
}

// GetBooking fetches a booking, enforcing ownership unless userID is empty
// (operator access).
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if userID != "" && !booking.BelongsToUser(userID) {
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}

// ListUserBookings lists a user's bookings newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bookings.GetByUserID(ctx, userID, limit, offset)
}

// returnSeats gives a booking's seats back to the ledger and the persisted
// counter (the latter only when it was moved at confirmation).
func (s *BookingService) returnSeats(ctx context.Context, booking *domain.Booking) {
	slot, err := s.slots.GetByID(ctx, booking.SlotID)
	if err != nil {
		s.log.Warn("Failed to load slot for seat return",
			zap.String("booking_id", booking.ID), zap.Error(err))
		return
	}
	s.releaseCapacity(ctx, slot, booking.Passengers)
}

func (s *BookingService) releaseCapacity(ctx context.Context, slot *domain.Slot, passengers int) {
	if err := s.capacity.Release(ctx, slot.ID, passengers, slot.MaxCapacity); err != nil {
		s.log.Warn("Failed to release ledger capacity",
			zap.String("slot_id", slot.ID), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking) {
	if err := s.publisher.Publish(ctx, eventType, booking); err != nil {
		s.log.Warn("Failed to publish booking event",
			zap.String("event_type", string(eventType)),
			zap.String("booking_id", booking.ID),
			zap.Error(err))
	}
}
