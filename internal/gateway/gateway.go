// Package gateway abstracts external payment providers behind one interface.
// Every charge and refund call carries a caller-derived idempotency key; the
// gateway-side deduplication is the authoritative guard against double
// charges on retried network calls.
package gateway

import (
	"context"
	"errors"

	"github.com/wavetours/booking-engine/internal/money"
)

// ChargeStatus is the outcome of a charge attempt.
type ChargeStatus string

const (
	ChargeStatusSucceeded         ChargeStatus = "succeeded"
	ChargeStatusRequiresChallenge ChargeStatus = "requires_challenge"
	ChargeStatusDeclined          ChargeStatus = "declined"
)

// RefundStatus is the outcome of a refund attempt.
type RefundStatus string

const (
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

// ChargeRequest asks a provider to charge a booking.
type ChargeRequest struct {
	BookingID      string
	Amount         money.Amount
	Currency       string
	MethodRef      string // provider-specific payment method reference
	IdempotencyKey string
	Description    string
	Metadata       map[string]string
}

// ChargeResult is the provider's answer. A requires_challenge status is an
// intermediate state, not an error: the booking stays pending until the
// challenge resolves.
type ChargeResult struct {
	Status       ChargeStatus
	GatewayTxnID string
	ChallengeRef string // set when Status == requires_challenge
	DeclineCode  string // set when Status == declined
}

// RefundRequest asks a provider to refund a prior charge.
type RefundRequest struct {
	GatewayTxnID   string
	Amount         money.Amount
	IdempotencyKey string
}

// RefundResult is the provider's answer to a refund.
type RefundResult struct {
	Status      RefundStatus
	RefundTxnID string
	FailureCode string
}

// Gateway is the uniform payment provider interface.
type Gateway interface {
	// Name returns the provider identifier ("stripe", "wallet", ...).
	Name() string

	// CreateCharge creates an idempotent charge. Declines come back as a
	// ChargeResult, not an error; errors mean the attempt's outcome is
	// unknown or the provider was unreachable.
	CreateCharge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)

	// CompleteChallenge resolves a step-up authentication round-trip.
	CompleteChallenge(ctx context.Context, challengeRef string) (*ChargeResult, error)

	// CreateRefund issues an idempotent refund against a prior charge.
	CreateRefund(ctx context.Context, req *RefundRequest) (*RefundResult, error)
}

// Error classifies provider failures. Transient errors (network, timeout)
// are safe to retry with the same idempotency key; terminal ones are not.
type Error struct {
	Code      string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable gateway error.
func Transient(code string, err error) error {
	return &Error{Code: code, Transient: true, Err: err}
}

// Terminal wraps err as a non-retryable gateway error.
func Terminal(code string, err error) error {
	return &Error{Code: code, Transient: false, Err: err}
}

// IsTransient reports whether err may be retried with the same key.
func IsTransient(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Transient
	}
	// Context deadline on the call path counts as a timeout.
	return errors.Is(err, context.DeadlineExceeded)
}
