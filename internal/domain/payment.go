package domain

import (
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

// TransactionKind distinguishes charge rows from refund rows.
type TransactionKind string

const (
	TransactionKindCharge TransactionKind = "charge"
	TransactionKindRefund TransactionKind = "refund"
)

// TransactionStatus is the gateway-reported status of one attempt.
type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "pending"
	TransactionStatusSucceeded         TransactionStatus = "succeeded"
	TransactionStatusRequiresChallenge TransactionStatus = "requires_challenge"
	TransactionStatusDeclined          TransactionStatus = "declined"
	TransactionStatusFailed            TransactionStatus = "failed"
)

// PaymentTransaction is an append-only audit record: one row per charge
// attempt and one per refund attempt.
type PaymentTransaction struct {
	ID             string            `json:"id"`
	BookingID      string            `json:"booking_id"`
	Kind           TransactionKind   `json:"kind"`
	Provider       string            `json:"provider"`
	GatewayTxnID   string            `json:"gateway_txn_id,omitempty"`
	Amount         money.Amount      `json:"amount"`
	Currency       string            `json:"currency"`
	Status         TransactionStatus `json:"status"`
	IdempotencyKey string            `json:"idempotency_key"`
	FailureCode    string            `json:"failure_code,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
