package domain

import (
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

// DiscountType distinguishes percentage from fixed-amount codes.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// IsValid checks if the discount type is known.
func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

// DiscountCode is a promotional code with temporal validity and usage caps.
// CurrentUses is incremented only when a booking that used the code is
// confirmed, never on validation alone.
type DiscountCode struct {
	Code           string       `json:"code"`
	Type           DiscountType `json:"type"`
	Value          int64        `json:"value"` // percent for percentage, minor units for fixed
	MaxDiscount    money.Amount `json:"max_discount"`      // 0 = uncapped
	MinPurchase    money.Amount `json:"min_purchase"`      // 0 = no minimum
	MaxUses        int          `json:"max_uses"`          // 0 = unlimited
	MaxUsesPerUser int          `json:"max_uses_per_user"` // 0 = unlimited
	CurrentUses    int          `json:"current_uses"`
	ValidFrom      time.Time    `json:"valid_from"`
	ValidUntil     time.Time    `json:"valid_until"`
	Active         bool         `json:"active"`
}

// WithinWindow reports whether t falls inside the validity window.
func (d *DiscountCode) WithinWindow(t time.Time) bool {
	if !d.ValidFrom.IsZero() && t.Before(d.ValidFrom) {
		return false
	}
	if !d.ValidUntil.IsZero() && t.After(d.ValidUntil) {
		return false
	}
	return true
}

// Exhausted reports whether the global usage cap has been reached.
func (d *DiscountCode) Exhausted() bool {
	return d.MaxUses > 0 && d.CurrentUses >= d.MaxUses
}

// AmountFor computes the discount against a subtotal. Percentage codes cap at
// MaxDiscount when set; fixed codes never exceed the subtotal itself.
func (d *DiscountCode) AmountFor(subtotal money.Amount) money.Amount {
	switch d.Type {
	case DiscountTypePercentage:
		amount := subtotal.Percent(d.Value)
		if d.MaxDiscount > 0 && amount > d.MaxDiscount {
			amount = d.MaxDiscount
		}
		return amount
	case DiscountTypeFixed:
		amount := money.Amount(d.Value)
		if amount > subtotal {
			amount = subtotal
		}
		return amount
	default:
		return 0
	}
}
