// Package money provides fixed-point monetary arithmetic in integer minor
// units (cents). Binary floating point is never used on a money path:
// repeated multiplication across chained pricing factors compounds
// representation error, so multipliers are expressed in basis points and
// exchange rates in micro-units, both applied with half-up rounding.
package money

import "fmt"

// BasisPointScale is the denominator for basis-point multipliers.
// 10000 bp == x1.0.
const BasisPointScale = 10000

// RateScale is the denominator for exchange rates. A rate of 920000
// micro-units means 0.92 target units per one base unit.
const RateScale = 1_000_000

// Amount is a monetary value in minor units (cents, satang, ...).
type Amount int64

// FromMajor converts whole currency units to an Amount.
func FromMajor(units int64) Amount {
	return Amount(units * 100)
}

// ApplyBasisPoints multiplies the amount by bp/10000 with half-up rounding.
func (a Amount) ApplyBasisPoints(bp int64) Amount {
	return Amount(divRoundHalfUp(int64(a)*bp, BasisPointScale))
}

// Convert applies an exchange rate expressed in micro-units per base unit,
// rounding half-up. Conversion is the last step of any price computation so
// intermediate arithmetic stays in the base currency.
func (a Amount) Convert(rateMicros int64) Amount {
	return Amount(divRoundHalfUp(int64(a)*rateMicros, RateScale))
}

// Sub subtracts b, flooring at zero. Prices never go negative.
func (a Amount) Sub(b Amount) Amount {
	if b >= a {
		return 0
	}
	return a - b
}

// Percent returns pct percent of the amount, half-up rounded.
func (a Amount) Percent(pct int64) Amount {
	return Amount(divRoundHalfUp(int64(a)*pct, 100))
}

// String formats the amount as a decimal with two fraction digits.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// divRoundHalfUp divides n by d (d > 0) rounding half away from zero.
func divRoundHalfUp(n, d int64) int64 {
	if n >= 0 {
		return (n + d/2) / d
	}
	return -((-n + d/2) / d)
}
