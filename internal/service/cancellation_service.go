package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/logger"
	"github.com/wavetours/booking-engine/internal/money"
	"github.com/wavetours/booking-engine/internal/repository"
	"github.com/wavetours/booking-engine/internal/telemetry"
)

// CancellationService orchestrates cancellations and their refund leg. The
// cancellation record is written before the refund call is issued, so a
// refund failure still leaves an auditable trail and the booking untouched.
type CancellationService struct {
	bookings      repository.BookingRepository
	slots         repository.SlotRepository
	cancellations repository.CancellationRepository
	payments      *PaymentService
	bookingSvc    *BookingService
	policy        RefundPolicy
	log           *logger.Logger
	now           func() time.Time
}

// NewCancellationService wires the cancellation orchestrator.
func NewCancellationService(
	bookings repository.BookingRepository,
	slots repository.SlotRepository,
	cancellations repository.CancellationRepository,
	payments *PaymentService,
	bookingSvc *BookingService,
	policy RefundPolicy,
) *CancellationService {
	if policy == nil {
		policy = FullRefundPolicy{}
	}
	return &CancellationService{
		bookings:      bookings,
		slots:         slots,
		cancellations: cancellations,
		payments:      payments,
		bookingSvc:    bookingSvc,
		policy:        policy,
		log:           logger.Get(),
		now:           time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *CancellationService) SetClock(now func() time.Time) {
	s.now = now
}

// CancelInput describes a cancellation request.
type CancelInput struct {
	BookingID string
	UserID    string // empty for operator-initiated cancellations
	Reason    string
	Actor     string // "customer" or "operator"
}

// CancelResult reports the cancellation and its refund leg.
type CancelResult struct {
	Booking      *domain.Booking            `json:"booking"`
	Cancellation *domain.CancellationRecord `json:"cancellation"`
}

// Cancel cancels a booking. Pending bookings are released without a refund;
// confirmed bookings get the policy-computed refund through the provider that
// took the charge. When the refund fails the booking STAYS confirmed and the
// record carries the failed refund for operator retry.
func (s *CancellationService) Cancel(ctx context.Context, in *CancelInput) (*CancelResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "cancellation.cancel")
	defer span.End()

	booking, err := s.bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if in.UserID != "" && !booking.BelongsToUser(in.UserID) {
		return nil, domain.ErrBookingNotFound
	}

	switch booking.Status {
	case domain.BookingStatusCancelled, domain.BookingStatusRefunded:
		return nil, domain.ErrAlreadyCancelled
	case domain.BookingStatusPending:
		return s.cancelPending(ctx, booking, in)
	case domain.BookingStatusConfirmed:
		return s.cancelConfirmed(ctx, booking, in)
	default:
		return nil, domain.ErrInvalidBookingStatus
	}
}

// cancelPending releases a pending booking. Nothing was charged, so the
// record carries no refund.
func (s *CancellationService) cancelPending(ctx context.Context, booking *domain.Booking, in *CancelInput) (*CancelResult, error) {
	now := s.now()

	record := s.newRecord(booking, in, 0, domain.RefundStatusNone, now)
	if err := s.cancellations.Create(ctx, record); err != nil {
		return nil, err
	}

	if err := booking.Cancel(false, now); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateIfStatus(ctx, booking, domain.BookingStatusPending); err != nil {
		return nil, err
	}

	s.returnSeats(ctx, booking, false)
	s.bookingSvc.publish(ctx, domain.BookingEventCancelled, booking)

	return &CancelResult{Booking: booking, Cancellation: record}, nil
}

// cancelConfirmed runs the refund leg, then transitions the booking.
func (s *CancellationService) cancelConfirmed(ctx context.Context, booking *domain.Booking, in *CancelInput) (*CancelResult, error) {
	now := s.now()
	if !now.Before(booking.TourDate) {
		return nil, domain.ErrTourAlreadyDeparted
	}
	daysUntil := int(booking.TourDate.Sub(now).Hours() / 24)
	refund := s.policy.RefundAmount(booking.FinalPrice, daysUntil)

	// Zero refund: the booking still cancels, nothing moves money.
	if refund == 0 {
		record := s.newRecord(booking, in, 0, domain.RefundStatusNone, now)
		if err := s.cancellations.Create(ctx, record); err != nil {
			return nil, err
		}
		if err := booking.Cancel(false, now); err != nil {
			return nil, err
		}
		if err := s.bookings.UpdateIfStatus(ctx, booking, domain.BookingStatusConfirmed); err != nil {
			return nil, err
		}
		s.returnSeats(ctx, booking, true)
		s.bookingSvc.publish(ctx, domain.BookingEventCancelled, booking)
		return &CancelResult{Booking: booking, Cancellation: record}, nil
	}

	record := s.newRecord(booking, in, refund, domain.RefundStatusPending, now)
	if err := s.cancellations.Create(ctx, record); err != nil {
		return nil, err
	}

	txn, err := s.payments.CreateRefund(ctx, booking, refund)
	if err != nil {
		record.RefundStatus = domain.RefundStatusFailed
		record.UpdatedAt = s.now()
		if txn != nil {
			record.RefundTxnID = txn.ID
		}
		if updErr := s.cancellations.Update(ctx, record); updErr != nil {
			s.log.Error("Failed to record refund failure",
				zap.String("booking_id", booking.ID), zap.Error(updErr))
		}
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return nil, err
		}
		// Booking stays confirmed, seats stay taken.
		return &CancelResult{Booking: booking, Cancellation: record}, domain.ErrRefundFailed
	}

	record.RefundStatus = domain.RefundStatusCompleted
	record.RefundTxnID = txn.ID
	record.UpdatedAt = s.now()
	if err := s.cancellations.Update(ctx, record); err != nil {
		return nil, err
	}

	if err := booking.Cancel(true, s.now()); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateIfStatus(ctx, booking, domain.BookingStatusConfirmed); err != nil {
		return nil, err
	}

	s.returnSeats(ctx, booking, true)
	s.bookingSvc.publish(ctx, domain.BookingEventRefunded, booking)

	return &CancelResult{Booking: booking, Cancellation: record}, nil
}

// GetCancellation fetches the cancellation record for a booking.
func (s *CancellationService) GetCancellation(ctx context.Context, bookingID string) (*domain.CancellationRecord, error) {
	return s.cancellations.GetByBookingID(ctx, bookingID)
}

func (s *CancellationService) newRecord(booking *domain.Booking, in *CancelInput, refund money.Amount, status domain.RefundStatus, now time.Time) *domain.CancellationRecord {
	actor := in.Actor
	if actor == "" {
		actor = "customer"
	}
	return &domain.CancellationRecord{
		ID:           uuid.New().String(),
		BookingID:    booking.ID,
		Reason:       in.Reason,
		Actor:        actor,
		RefundAmount: refund,
		RefundStatus: status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// returnSeats gives the seats back. For confirmed bookings the persisted
// booked counter moved at confirmation, so it moves back too.
func (s *CancellationService) returnSeats(ctx context.Context, booking *domain.Booking, wasConfirmed bool) {
	if wasConfirmed {
		if err := s.slots.AdjustBooked(ctx, booking.SlotID, -booking.Passengers); err != nil {
			s.log.Warn("Failed to return persisted seats on cancellation",
				zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
	s.bookingSvc.returnSeats(ctx, booking)

	if !wasConfirmed {
		if err := s.bookingSvc.locks.Release(ctx, booking.SlotKey, booking.ID); err != nil {
			s.log.Warn("Failed to release slot lease on cancellation",
				zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
}
