package domain

import (
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

// RefundStatus tracks the refund leg of a cancellation independently of the
// booking transition: the booking can be cancelled while the refund is still
// pending or has failed and awaits operator reconciliation.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "none" // nothing was charged
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

// CancellationRecord is created once per cancellation, before the refund call
// is issued, so a refund failure still leaves an auditable trail.
type CancellationRecord struct {
	ID           string       `json:"id"`
	BookingID    string       `json:"booking_id"`
	Reason       string       `json:"reason"`
	Actor        string       `json:"actor"`
	RefundAmount money.Amount `json:"refund_amount"`
	RefundStatus RefundStatus `json:"refund_status"`
	RefundTxnID  string       `json:"refund_txn_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
