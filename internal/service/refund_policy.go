package service

import (
	"github.com/wavetours/booking-engine/internal/money"
)

// RefundPolicy maps (paid amount, days until departure) to a refund amount.
type RefundPolicy interface {
	Name() string
	RefundAmount(paid money.Amount, daysUntilTour int) money.Amount
}

// FullRefundPolicy refunds the full paid amount regardless of notice.
type FullRefundPolicy struct{}

func (FullRefundPolicy) Name() string { return "full" }

func (FullRefundPolicy) RefundAmount(paid money.Amount, daysUntilTour int) money.Amount {
	return paid
}

// TieredRefundPolicy scales the refund by cancellation notice: 100% at seven
// or more days out, 75% at three to six, 50% at one or two, nothing on the
// day of departure or later.
type TieredRefundPolicy struct{}

func (TieredRefundPolicy) Name() string { return "tiered" }

func (TieredRefundPolicy) RefundAmount(paid money.Amount, daysUntilTour int) money.Amount {
	switch {
	case daysUntilTour >= 7:
		return paid
	case daysUntilTour >= 3:
		return paid.Percent(75)
	case daysUntilTour >= 1:
		return paid.Percent(50)
	default:
		return 0
	}
}

// RefundPolicyByName resolves a configured policy name, defaulting to full.
func RefundPolicyByName(name string) RefundPolicy {
	if name == "tiered" {
		return TieredRefundPolicy{}
	}
	return FullRefundPolicy{}
}
