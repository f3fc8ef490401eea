// Package pricing implements the dynamic price computation for tour slots.
// The engine is pure: given identical inputs it always returns the identical
// breakdown. All arithmetic runs in fixed-point minor units of the base
// currency; conversion to the target currency happens last.
package pricing

import (
	"fmt"
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

// GroupTier is a group-size discount tier. Tiers are selected by the highest
// MinPassengers threshold met.
type GroupTier struct {
	MinPassengers int
	BasisPoints   int64
}

// Config holds the tunable pricing factors. All multipliers are basis points
// (10000 = x1.0).
type Config struct {
	HighSeasonMonths   []time.Month
	LowSeasonMonths    []time.Month
	HighSeasonBP       int64
	MediumSeasonBP     int64
	LowSeasonBP        int64
	WeekendBP          int64
	WeekdayBP          int64
	GroupTiers         []GroupTier
	EarlyBirdMinDays   int
	EarlyBirdBP        int64
	LastMinuteMaxDays  int
	LastMinuteBP       int64
}

// DefaultConfig returns the operator's standard pricing factors.
func DefaultConfig() *Config {
	return &Config{
		HighSeasonMonths: []time.Month{time.June, time.July, time.August, time.December},
		LowSeasonMonths:  []time.Month{time.January, time.February, time.November},
		HighSeasonBP:     13000,
		MediumSeasonBP:   10000,
		LowSeasonBP:      8000,
		WeekendBP:        12000,
		WeekdayBP:        9000,
		GroupTiers: []GroupTier{
			{MinPassengers: 15, BasisPoints: 8000},
			{MinPassengers: 8, BasisPoints: 8500},
			{MinPassengers: 4, BasisPoints: 9000},
			{MinPassengers: 2, BasisPoints: 9500},
		},
		EarlyBirdMinDays:  14,
		EarlyBirdBP:       9000,
		LastMinuteMaxDays: 2,
		LastMinuteBP:      8500,
	}
}

// Engine computes price breakdowns. Safe for concurrent use; it holds only
// immutable configuration.
type Engine struct {
	cfg *Config
}

// NewEngine creates a pricing engine. A nil config selects the defaults.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Input contains everything the engine needs. BookingDate and TourDate drive
// the day-count factors; there is no hidden clock dependency.
type Input struct {
	BasePrice   money.Amount // per passenger, base currency minor units
	Passengers  int
	BookingDate time.Time
	TourDate    time.Time
}

// Adjustment records one applied factor for receipt/audit display.
type Adjustment struct {
	Label       string       `json:"label"`
	BasisPoints int64        `json:"basis_points"`
	Subtotal    money.Amount `json:"subtotal"` // running subtotal after this factor
}

// Breakdown is the full result of a price computation.
type Breakdown struct {
	BasePrice      money.Amount `json:"base_price"`
	Passengers     int          `json:"passengers"`
	Subtotal       money.Amount `json:"subtotal"` // base x passengers
	Adjustments    []Adjustment `json:"adjustments"`
	PreDiscount    money.Amount `json:"pre_discount_total"` // after all multipliers
	DiscountCode   string       `json:"discount_code,omitempty"`
	DiscountAmount money.Amount `json:"discount_amount"`
	Total          money.Amount `json:"total"` // base currency
	FinalPrice     money.Amount `json:"final_price"`
	Currency       string       `json:"currency"`
	Applied        []string     `json:"applied"` // human-readable list
}

// Price runs the multiplier chain in fixed order: seasonal, day-of-week,
// group size, early-bird, last-minute. Discount subtraction and currency
// conversion are separate steps (ApplyDiscount, ConvertTo) so the caller can
// validate the code against the post-multiplier subtotal first.
func (e *Engine) Price(in Input) *Breakdown {
	subtotal := money.Amount(int64(in.BasePrice) * int64(in.Passengers))
	b := &Breakdown{
		BasePrice:  in.BasePrice,
		Passengers: in.Passengers,
		Subtotal:   subtotal,
	}

	subtotal = b.apply(subtotal, e.seasonLabel(in.TourDate.Month()), e.seasonBP(in.TourDate.Month()))
	subtotal = b.apply(subtotal, e.dayLabel(in.TourDate.Weekday()), e.dayBP(in.TourDate.Weekday()))

	if label, bp, ok := e.groupTier(in.Passengers); ok {
		subtotal = b.apply(subtotal, label, bp)
	}

	days := daysBetween(in.BookingDate, in.TourDate)
	// Early-bird takes precedence over last-minute should the configured
	// thresholds ever overlap.
	switch {
	case days >= e.cfg.EarlyBirdMinDays:
		subtotal = b.apply(subtotal, "early bird", e.cfg.EarlyBirdBP)
	case days <= e.cfg.LastMinuteMaxDays:
		subtotal = b.apply(subtotal, "last minute", e.cfg.LastMinuteBP)
	}

	b.PreDiscount = subtotal
	b.Total = subtotal
	b.FinalPrice = subtotal
	b.Currency = BaseCurrency
	return b
}

// ApplyDiscount subtracts a validated discount amount from the running total.
func (b *Breakdown) ApplyDiscount(code string, amount money.Amount) {
	if amount <= 0 {
		return
	}
	b.DiscountCode = code
	b.DiscountAmount = amount
	b.Total = b.PreDiscount.Sub(amount)
	b.FinalPrice = b.Total
	b.Applied = append(b.Applied, fmt.Sprintf("discount %s: -%s", code, amount))
}

// ConvertTo converts the total to the target currency. Rounding to two
// decimal places happens here, last, so intermediate arithmetic stays in the
// base currency.
func (b *Breakdown) ConvertTo(currency string, rates *RateTable) error {
	final, err := rates.Convert(b.Total, currency)
	if err != nil {
		return err
	}
	b.FinalPrice = final
	b.Currency = currency
	return nil
}

func (b *Breakdown) apply(subtotal money.Amount, label string, bp int64) money.Amount {
	next := subtotal.ApplyBasisPoints(bp)
	b.Adjustments = append(b.Adjustments, Adjustment{Label: label, BasisPoints: bp, Subtotal: next})
	b.Applied = append(b.Applied, fmt.Sprintf("%s: x%d.%02d", label, bp/10000, (bp%10000)/100))
	return next
}

func (e *Engine) seasonBP(m time.Month) int64 {
	for _, hm := range e.cfg.HighSeasonMonths {
		if m == hm {
			return e.cfg.HighSeasonBP
		}
	}
	for _, lm := range e.cfg.LowSeasonMonths {
		if m == lm {
			return e.cfg.LowSeasonBP
		}
	}
	return e.cfg.MediumSeasonBP
}

func (e *Engine) seasonLabel(m time.Month) string {
	switch e.seasonBP(m) {
	case e.cfg.HighSeasonBP:
		return "high season"
	case e.cfg.LowSeasonBP:
		return "low season"
	default:
		return "medium season"
	}
}

func (e *Engine) dayBP(d time.Weekday) int64 {
	if isWeekend(d) {
		return e.cfg.WeekendBP
	}
	return e.cfg.WeekdayBP
}

func (e *Engine) dayLabel(d time.Weekday) string {
	if isWeekend(d) {
		return "weekend"
	}
	return "weekday"
}

// groupTier picks the tier with the highest threshold met.
func (e *Engine) groupTier(passengers int) (string, int64, bool) {
	best := -1
	var bp int64
	for _, tier := range e.cfg.GroupTiers {
		if passengers >= tier.MinPassengers && tier.MinPassengers > best {
			best = tier.MinPassengers
			bp = tier.BasisPoints
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return fmt.Sprintf("group %d+", best), bp, true
}

// isWeekend treats Fri-Sun as weekend days for pricing purposes.
func isWeekend(d time.Weekday) bool {
	return d == time.Friday || d == time.Saturday || d == time.Sunday
}

// daysBetween returns whole calendar days from booking to tour date.
func daysBetween(booking, tour time.Time) int {
	b := booking.UTC().Truncate(24 * time.Hour)
	t := tour.UTC().Truncate(24 * time.Hour)
	return int(t.Sub(b).Hours() / 24)
}
