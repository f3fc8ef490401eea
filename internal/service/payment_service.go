package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/gateway"
	"github.com/wavetours/booking-engine/internal/logger"
	"github.com/wavetours/booking-engine/internal/money"
	"github.com/wavetours/booking-engine/internal/repository"
	"github.com/wavetours/booking-engine/internal/retry"
	"github.com/wavetours/booking-engine/internal/telemetry"
)

// PaymentServiceConfig contains payment orchestration tunables.
type PaymentServiceConfig struct {
	// DefaultProvider is used when the charge request names none.
	DefaultProvider string
	// TransientRetries is how many extra attempts a transient gateway
	// failure gets, always under the same idempotency key.
	TransientRetries int
	// RetryInterval is the backoff base between transient retries.
	RetryInterval time.Duration
}

// DefaultPaymentServiceConfig returns the standard payment settings.
func DefaultPaymentServiceConfig() *PaymentServiceConfig {
	return &PaymentServiceConfig{
		DefaultProvider:  "wallet",
		TransientRetries: 1,
		RetryInterval:    500 * time.Millisecond,
	}
}

// PaymentService orchestrates charges, challenges and refunds against the
// gateway registry, keeping the append-only transaction trail.
type PaymentService struct {
	bookings *BookingService
	repo     repository.BookingRepository
	payments repository.PaymentRepository
	registry *gateway.Registry
	cfg      *PaymentServiceConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewPaymentService wires the payment orchestrator.
func NewPaymentService(
	bookings *BookingService,
	repo repository.BookingRepository,
	payments repository.PaymentRepository,
	registry *gateway.Registry,
	cfg *PaymentServiceConfig,
) *PaymentService {
	if cfg == nil {
		cfg = DefaultPaymentServiceConfig()
	}
	return &PaymentService{
		bookings: bookings,
		repo:     repo,
		payments: payments,
		registry: registry,
		cfg:      cfg,
		log:      logger.Get(),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *PaymentService) SetClock(now func() time.Time) {
	s.now = now
}

// ChargeInput describes a charge attempt against a pending booking.
type ChargeInput struct {
	BookingID string
	UserID    string
	Provider  string // empty selects the default provider
	MethodRef string // provider-specific payment method reference
}

// ChargeOutcome reports the result of a charge attempt.
type ChargeOutcome struct {
	Booking      *domain.Booking            `json:"booking"`
	Transaction  *domain.PaymentTransaction `json:"transaction"`
	ChallengeRef string                     `json:"challenge_ref,omitempty"`
}

// CreateCharge charges a pending booking. Exactly one charge can succeed per
// booking: a repeat call after success returns the recorded outcome, and the
// idempotency key forwarded to the provider dedupes retried network calls on
// the provider side. Transient failures are retried under the same key; a
// decline ends the attempt with ErrPaymentDeclined.
func (s *PaymentService) CreateCharge(ctx context.Context, in *ChargeInput) (*ChargeOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.create_charge")
	defer span.End()

	booking, err := s.repo.GetByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if in.UserID != "" && !booking.BelongsToUser(in.UserID) {
		return nil, domain.ErrBookingNotFound
	}

	// Replay: a booking that already confirmed returns its succeeded charge.
	if booking.Status == domain.BookingStatusConfirmed {
		txn, err := s.payments.GetSucceededCharge(ctx, booking.ID)
		if err != nil {
			return nil, domain.ErrAlreadyConfirmed
		}
		return &ChargeOutcome{Booking: booking, Transaction: txn}, nil
	}

	now := s.now()
	if !booking.CanConfirm(now) {
		if booking.Status == domain.BookingStatusPending && booking.HoldExpired(now) {
			return nil, domain.ErrBookingExpired
		}
		return nil, domain.ErrInvalidBookingStatus
	}

	// An attempt already in flight (including a pending step-up challenge)
	// must resolve before another may start.
	if booking.PaymentState == domain.PaymentStateProcessing {
		return nil, domain.ErrDuplicateCharge
	}

	provider := in.Provider
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	gw, err := s.registry.Resolve(provider)
	if err != nil {
		return nil, domain.ErrUnknownGateway
	}

	// One idempotency key per logical attempt: retries of the same attempt
	// reuse it, a fresh attempt after a decline gets the next one.
	attempts, err := s.payments.CountAttempts(ctx, booking.ID, domain.TransactionKindCharge)
	if err != nil {
		return nil, err
	}
	idemKey := fmt.Sprintf("charge:%s:%d", booking.ID, attempts)

	txn := &domain.PaymentTransaction{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		Kind:           domain.TransactionKindCharge,
		Provider:       gw.Name(),
		Amount:         booking.FinalPrice,
		Currency:       booking.Currency,
		Status:         domain.TransactionStatusPending,
		IdempotencyKey: idemKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Create(ctx, txn); err != nil {
		return nil, err
	}

	booking.PaymentState = domain.PaymentStateProcessing
	booking.UpdatedAt = now
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	result, err := s.chargeWithRetry(ctx, gw, &gateway.ChargeRequest{
		BookingID:      booking.ID,
		Amount:         booking.FinalPrice,
		Currency:       booking.Currency,
		MethodRef:      in.MethodRef,
		IdempotencyKey: idemKey,
		Description:    fmt.Sprintf("Tour booking %s", booking.ID),
		Metadata: map[string]string{
			"booking_id": booking.ID,
			"slot_key":   booking.SlotKey,
		},
	})
	if err != nil {
		s.recordFailure(ctx, txn, booking, "gateway_unreachable")
		return nil, domain.ErrGatewayTimeout
	}

	return s.settleChargeResult(ctx, booking, txn, result)
}

// chargeWithRetry calls the provider, retrying transient failures with the
// same idempotency key so a retried call can never double-charge.
func (s *PaymentService) chargeWithRetry(ctx context.Context, gw gateway.Gateway, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	var result *gateway.ChargeResult

	res := retry.Do(ctx, &retry.Config{
		MaxRetries:      s.cfg.TransientRetries,
		InitialInterval: s.cfg.RetryInterval,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}, func(ctx context.Context) error {
		r, err := gw.CreateCharge(ctx, req)
		if err != nil {
			if gateway.IsTransient(err) {
				return err
			}
			return retry.Permanent(err)
		}
		result = r
		return nil
	})
	if res.Err != nil {
		if res.LastError != nil {
			return nil, res.LastError
		}
		return nil, res.Err
	}
	return result, nil
}

// settleChargeResult records the provider's answer and drives the booking
// transition it implies.
func (s *PaymentService) settleChargeResult(ctx context.Context, booking *domain.Booking, txn *domain.PaymentTransaction, result *gateway.ChargeResult) (*ChargeOutcome, error) {
	now := s.now()
	txn.UpdatedAt = now

	switch result.Status {
	case gateway.ChargeStatusSucceeded:
		txn.Status = domain.TransactionStatusSucceeded
		txn.GatewayTxnID = result.GatewayTxnID
		if err := s.payments.Update(ctx, txn); err != nil {
			return nil, err
		}
		confirmed, err := s.bookings.Confirm(ctx, booking.ID, result.GatewayTxnID)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyConfirmed) {
				confirmed, _ = s.repo.GetByID(ctx, booking.ID)
				return &ChargeOutcome{Booking: confirmed, Transaction: txn}, nil
			}
			return nil, err
		}
		return &ChargeOutcome{Booking: confirmed, Transaction: txn}, nil

	case gateway.ChargeStatusRequiresChallenge:
		txn.Status = domain.TransactionStatusRequiresChallenge
		txn.GatewayTxnID = result.ChallengeRef
		if err := s.payments.Update(ctx, txn); err != nil {
			return nil, err
		}
		return &ChargeOutcome{
			Booking:      booking,
			Transaction:  txn,
			ChallengeRef: result.ChallengeRef,
		}, nil

	case gateway.ChargeStatusDeclined:
		txn.Status = domain.TransactionStatusDeclined
		txn.FailureCode = result.DeclineCode
		if err := s.payments.Update(ctx, txn); err != nil {
			return nil, err
		}
		booking.PaymentState = domain.PaymentStateFailed
		booking.UpdatedAt = now
		if err := s.repo.Update(ctx, booking); err != nil {
			return nil, err
		}
		return &ChargeOutcome{Booking: booking, Transaction: txn}, domain.ErrPaymentDeclined

	default:
		return nil, fmt.Errorf("unknown charge status: %s", result.Status)
	}
}

// CompleteChallenge resolves a pending step-up authentication round-trip and
// drives the booking to confirmed or declined.
func (s *PaymentService) CompleteChallenge(ctx context.Context, challengeRef string) (*ChargeOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.complete_challenge")
	defer span.End()

	txn, err := s.payments.GetByGatewayTxnID(ctx, challengeRef)
	if err != nil {
		return nil, domain.ErrChallengeNotFound
	}
	if txn.Status != domain.TransactionStatusRequiresChallenge {
		return nil, domain.ErrChallengeNotFound
	}

	booking, err := s.repo.GetByID(ctx, txn.BookingID)
	if err != nil {
		return nil, err
	}

	gw, err := s.registry.Resolve(txn.Provider)
	if err != nil {
		return nil, domain.ErrUnknownGateway
	}

	result, err := gw.CompleteChallenge(ctx, challengeRef)
	if err != nil {
		return nil, domain.ErrGatewayTimeout
	}

	return s.settleChargeResult(ctx, booking, txn, result)
}

// ConfirmFromGateway is the webhook path: the provider reports an
// asynchronous success for a charge we recorded. Idempotent.
func (s *PaymentService) ConfirmFromGateway(ctx context.Context, gatewayTxnID string) error {
	txn, err := s.payments.GetByGatewayTxnID(ctx, gatewayTxnID)
	if err != nil {
		return domain.ErrPaymentNotFound
	}

	switch txn.Status {
	case domain.TransactionStatusSucceeded:
		return nil
	case domain.TransactionStatusPending, domain.TransactionStatusRequiresChallenge:
	default:
		return domain.ErrInvalidBookingStatus
	}

	txn.Status = domain.TransactionStatusSucceeded
	txn.UpdatedAt = s.now()
	if err := s.payments.Update(ctx, txn); err != nil {
		return err
	}

	if _, err := s.bookings.Confirm(ctx, txn.BookingID, gatewayTxnID); err != nil {
		if errors.Is(err, domain.ErrAlreadyConfirmed) {
			return nil
		}
		return err
	}
	return nil
}

// CreateRefund refunds a booking's succeeded charge through the provider that
// took it. Used by the cancellation orchestrator.
func (s *PaymentService) CreateRefund(ctx context.Context, booking *domain.Booking, amount money.Amount) (*domain.PaymentTransaction, error) {
	ctx, span := telemetry.StartSpan(ctx, "payment.create_refund")
	defer span.End()

	charge, err := s.payments.GetSucceededCharge(ctx, booking.ID)
	if err != nil {
		return nil, domain.ErrPaymentNotFound
	}

	gw, err := s.registry.Resolve(charge.Provider)
	if err != nil {
		return nil, domain.ErrUnknownGateway
	}

	attempts, err := s.payments.CountAttempts(ctx, booking.ID, domain.TransactionKindRefund)
	if err != nil {
		return nil, err
	}
	idemKey := fmt.Sprintf("refund:%s:%d", booking.ID, attempts)

	now := s.now()
	txn := &domain.PaymentTransaction{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		Kind:           domain.TransactionKindRefund,
		Provider:       charge.Provider,
		Amount:         amount,
		Currency:       booking.Currency,
		Status:         domain.TransactionStatusPending,
		IdempotencyKey: idemKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Create(ctx, txn); err != nil {
		return nil, err
	}

	result, err := gw.CreateRefund(ctx, &gateway.RefundRequest{
		GatewayTxnID:   charge.GatewayTxnID,
		Amount:         amount,
		IdempotencyKey: idemKey,
	})

	txn.UpdatedAt = s.now()
	if err != nil {
		txn.Status = domain.TransactionStatusFailed
		txn.FailureCode = "gateway_unreachable"
		if updErr := s.payments.Update(ctx, txn); updErr != nil {
			s.log.Error("Failed to record refund failure", zap.Error(updErr))
		}
		return txn, domain.ErrRefundFailed
	}

	if result.Status != gateway.RefundStatusSucceeded {
		txn.Status = domain.TransactionStatusFailed
		txn.FailureCode = result.FailureCode
		if updErr := s.payments.Update(ctx, txn); updErr != nil {
			s.log.Error("Failed to record refund failure", zap.Error(updErr))
		}
		return txn, domain.ErrRefundFailed
	}

	txn.Status = domain.TransactionStatusSucceeded
	txn.GatewayTxnID = result.RefundTxnID
	if err := s.payments.Update(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransaction fetches one transaction row.
func (s *PaymentService) GetTransaction(ctx context.Context, id string) (*domain.PaymentTransaction, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *PaymentService) recordFailure(ctx context.Context, txn *domain.PaymentTransaction, booking *domain.Booking, code string) {
	txn.Status = domain.TransactionStatusFailed
	txn.FailureCode = code
	txn.UpdatedAt = s.now()
	if err := s.payments.Update(ctx, txn); err != nil {
		s.log.Error("Failed to record charge failure",
			zap.String("booking_id", booking.ID), zap.Error(err))
	}
	booking.PaymentState = domain.PaymentStateFailed
	booking.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, booking); err != nil {
		s.log.Error("Failed to record payment state",
			zap.String("booking_id", booking.ID), zap.Error(err))
	}
}
