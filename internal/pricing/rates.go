package pricing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wavetours/booking-engine/internal/money"
)

// BaseCurrency is the pivot currency. Slot base prices are stored in it and
// every conversion goes through it.
const BaseCurrency = "USD"

// RateTable maps currency codes to exchange rates in micro-units per one base
// unit. Safe for concurrent read with occasional rate refreshes.
type RateTable struct {
	mu    sync.RWMutex
	rates map[string]int64
}

// NewRateTable builds a table from a currency -> rate-micros map. The base
// currency is always present at parity.
func NewRateTable(rates map[string]int64) *RateTable {
	t := &RateTable{rates: make(map[string]int64, len(rates)+1)}
	t.rates[BaseCurrency] = money.RateScale
	for code, micros := range rates {
		t.rates[strings.ToUpper(code)] = micros
	}
	return t
}

// DefaultRateTable returns the operator's static rate snapshot, used when no
// live rate source is configured.
func DefaultRateTable() *RateTable {
	return NewRateTable(map[string]int64{
		"EUR": 920_000,
		"GBP": 790_000,
		"THB": 35_500_000,
		"JPY": 149_000_000,
		"AUD": 1_520_000,
	})
}

// Update replaces the rate for one currency.
func (t *RateTable) Update(currency string, rateMicros int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rates[strings.ToUpper(currency)] = rateMicros
}

// Convert converts a base-currency amount into the target currency with
// half-up rounding to two decimal places.
func (t *RateTable) Convert(amount money.Amount, currency string) (money.Amount, error) {
	code := strings.ToUpper(currency)
	if code == "" || code == BaseCurrency {
		return amount, nil
	}
	t.mu.RLock()
	rate, ok := t.rates[code]
	t.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", currency)
	}
	return amount.Convert(rate), nil
}

// Supported reports whether the currency can be converted to.
func (t *RateTable) Supported(currency string) bool {
	code := strings.ToUpper(currency)
	if code == BaseCurrency {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rates[code]
	return ok
}
