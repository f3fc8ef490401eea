// Package discount validates promotional codes and computes their amounts.
// Validation never consumes a use: the usage counter moves only when a
// booking that carried the code is confirmed, so abandoned checkouts do not
// burn codes.
package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/money"
)

// Repository is the persistence surface the validator needs.
type Repository interface {
	// GetByCode fetches a code record, domain.ErrInvalidDiscountCode when absent.
	GetByCode(ctx context.Context, code string) (*domain.DiscountCode, error)

	// CountUserUsage returns how many confirmed bookings of this user used the code.
	CountUserUsage(ctx context.Context, code, userID string) (int, error)

	// ConsumeUsage atomically increments the global counter and records the
	// per-user usage, failing with domain.ErrInvalidDiscountCode when the
	// global cap is already reached. Called on booking confirmation only.
	ConsumeUsage(ctx context.Context, code, userID, bookingID string) error
}

// Result is the outcome of a validation.
type Result struct {
	Valid    bool
	Amount   money.Amount
	Reason   string // human-readable failure reason when !Valid
	Code     *domain.DiscountCode
}

// Validator checks codes against their temporal window, caps and thresholds.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a validator. The clock is injectable for tests.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// Validate runs the checks in order, short-circuiting on the first failure:
// existence/active, validity window, global cap, per-user cap, minimum
// purchase. The discount amount is computed against the post-multiplier
// subtotal the caller passes in.
func (v *Validator) Validate(ctx context.Context, code string, subtotal money.Amount, userID string) (*Result, error) {
	record, err := v.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDiscountCode) {
			return invalid("code does not exist"), nil
		}
		return nil, fmt.Errorf("failed to look up discount code: %w", err)
	}

	if !record.Active {
		return invalid("code is not active"), nil
	}
	if !record.WithinWindow(v.now()) {
		return invalid("code is outside its validity window"), nil
	}
	if record.Exhausted() {
		return invalid("code has reached its usage limit"), nil
	}

	if record.MaxUsesPerUser > 0 {
		used, err := v.repo.CountUserUsage(ctx, code, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count user usage: %w", err)
		}
		if used >= record.MaxUsesPerUser {
			return invalid("code usage limit reached for this user"), nil
		}
	}

	if record.MinPurchase > 0 && subtotal < record.MinPurchase {
		return invalid(fmt.Sprintf("minimum purchase of %s not met", record.MinPurchase)), nil
	}

	return &Result{
		Valid:  true,
		Amount: record.AmountFor(subtotal),
		Code:   record,
	}, nil
}

// Consume increments the usage counters after a successful confirmation.
func (v *Validator) Consume(ctx context.Context, code, userID, bookingID string) error {
	return v.repo.ConsumeUsage(ctx, code, userID, bookingID)
}

func invalid(reason string) *Result {
	return &Result{Valid: false, Reason: reason}
}
