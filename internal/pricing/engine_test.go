package pricing

import (
	"reflect"
	"testing"
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return d
}

// High season (July), weekend (Saturday), group of 4, booked 47 days out:
// 300.00 x 1.3 x 1.2 x 0.9 x 0.9 = 379.08.
func TestPrice_FactorChain(t *testing.T) {
	engine := NewEngine(nil)

	b := engine.Price(Input{
		BasePrice:   7500,
		Passengers:  4,
		BookingDate: mustDate(t, "2026-06-01"),
		TourDate:    mustDate(t, "2026-07-18"), // Saturday
	})

	if b.Subtotal != 30000 {
		t.Fatalf("subtotal = %d, want 30000", b.Subtotal)
	}

	wantSteps := []struct {
		label    string
		bp       int64
		subtotal money.Amount
	}{
		{"high season", 13000, 39000},
		{"weekend", 12000, 46800},
		{"group 4+", 9000, 42120},
		{"early bird", 9000, 37908},
	}
	if len(b.Adjustments) != len(wantSteps) {
		t.Fatalf("adjustments = %d, want %d: %+v", len(b.Adjustments), len(wantSteps), b.Adjustments)
	}
	for i, want := range wantSteps {
		got := b.Adjustments[i]
		if got.Label != want.label || got.BasisPoints != want.bp || got.Subtotal != want.subtotal {
			t.Errorf("step %d = {%s %d %d}, want {%s %d %d}",
				i, got.Label, got.BasisPoints, got.Subtotal, want.label, want.bp, want.subtotal)
		}
	}

	if b.FinalPrice != 37908 {
		t.Errorf("final price = %d, want 37908", b.FinalPrice)
	}
	if b.FinalPrice.String() != "379.08" {
		t.Errorf("final price string = %q, want \"379.08\"", b.FinalPrice.String())
	}
	if b.Currency != BaseCurrency {
		t.Errorf("currency = %q, want %q", b.Currency, BaseCurrency)
	}
}

func TestPrice_Deterministic(t *testing.T) {
	engine := NewEngine(nil)
	in := Input{
		BasePrice:   12345,
		Passengers:  7,
		BookingDate: mustDate(t, "2026-02-10"),
		TourDate:    mustDate(t, "2026-03-06"),
	}

	first := engine.Price(in)
	for i := 0; i < 10; i++ {
		again := engine.Price(in)
		if again.FinalPrice != first.FinalPrice || !reflect.DeepEqual(again.Adjustments, first.Adjustments) {
			t.Fatalf("run %d differed: %+v vs %+v", i, again, first)
		}
	}
}

func TestPrice_SeasonAndDayFactors(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name     string
		tourDate string
		want     []string
	}{
		{"low season weekday", "2026-02-04", []string{"low season", "weekday"}}, // Wednesday
		{"medium season weekend", "2026-04-05", []string{"medium season", "weekend"}}, // Sunday
		{"friday counts as weekend", "2026-03-06", []string{"medium season", "weekend"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := engine.Price(Input{
				BasePrice:   10000,
				Passengers:  1,
				BookingDate: mustDate(t, "2026-01-02"),
				TourDate:    mustDate(t, tt.tourDate),
			})
			for i, label := range tt.want {
				if b.Adjustments[i].Label != label {
					t.Errorf("adjustment %d = %q, want %q", i, b.Adjustments[i].Label, label)
				}
			}
		})
	}
}

func TestPrice_GroupTiers(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		passengers int
		wantLabel  string
		wantBP     int64
	}{
		{1, "", 0},
		{2, "group 2+", 9500},
		{3, "group 2+", 9500},
		{4, "group 4+", 9000},
		{8, "group 8+", 8500},
		{15, "group 15+", 8000},
		{30, "group 15+", 8000},
	}

	for _, tt := range tests {
		b := engine.Price(Input{
			BasePrice:   10000,
			Passengers:  tt.passengers,
			BookingDate: mustDate(t, "2026-03-01"),
			TourDate:    mustDate(t, "2026-03-11"), // medium season Wednesday
		})
		var got *Adjustment
		for i := range b.Adjustments {
			if b.Adjustments[i].BasisPoints == tt.wantBP && b.Adjustments[i].Label == tt.wantLabel {
				got = &b.Adjustments[i]
			}
		}
		if tt.wantLabel == "" {
			if len(b.Adjustments) != 2 { // season + day only
				t.Errorf("passengers=%d: expected no group tier, got %+v", tt.passengers, b.Adjustments)
			}
			continue
		}
		if got == nil {
			t.Errorf("passengers=%d: missing adjustment %q, got %+v", tt.passengers, tt.wantLabel, b.Adjustments)
		}
	}
}

func TestPrice_EarlyBirdBeatsLastMinute(t *testing.T) {
	// Overlapping thresholds: one day out qualifies for both windows.
	cfg := DefaultConfig()
	cfg.EarlyBirdMinDays = 1
	cfg.LastMinuteMaxDays = 2
	engine := NewEngine(cfg)

	b := engine.Price(Input{
		BasePrice:   10000,
		Passengers:  1,
		BookingDate: mustDate(t, "2026-03-10"),
		TourDate:    mustDate(t, "2026-03-11"),
	})

	for _, adj := range b.Adjustments {
		if adj.Label == "last minute" {
			t.Fatalf("last minute applied alongside early bird: %+v", b.Adjustments)
		}
	}
	found := false
	for _, adj := range b.Adjustments {
		if adj.Label == "early bird" {
			found = true
		}
	}
	if !found {
		t.Fatalf("early bird not applied: %+v", b.Adjustments)
	}
}

func TestPrice_LastMinute(t *testing.T) {
	engine := NewEngine(nil)

	b := engine.Price(Input{
		BasePrice:   10000,
		Passengers:  1,
		BookingDate: mustDate(t, "2026-03-10"),
		TourDate:    mustDate(t, "2026-03-11"), // one day out
	})

	last := b.Adjustments[len(b.Adjustments)-1]
	if last.Label != "last minute" || last.BasisPoints != 8500 {
		t.Errorf("final adjustment = %+v, want last minute x0.85", last)
	}
}

func TestApplyDiscount(t *testing.T) {
	engine := NewEngine(nil)
	b := engine.Price(Input{
		BasePrice:   10000,
		Passengers:  1,
		BookingDate: mustDate(t, "2026-03-01"),
		TourDate:    mustDate(t, "2026-03-11"),
	})

	pre := b.PreDiscount
	b.ApplyDiscount("SPRING10", pre.Percent(10))

	if b.DiscountCode != "SPRING10" {
		t.Errorf("discount code = %q", b.DiscountCode)
	}
	if b.Total != pre.Sub(pre.Percent(10)) {
		t.Errorf("total = %d, want %d", b.Total, pre.Sub(pre.Percent(10)))
	}

	// A discount larger than the subtotal floors the total at zero.
	b2 := engine.Price(Input{
		BasePrice:   100,
		Passengers:  1,
		BookingDate: mustDate(t, "2026-03-01"),
		TourDate:    mustDate(t, "2026-03-11"),
	})
	b2.ApplyDiscount("HUGE", b2.PreDiscount+5000)
	if b2.Total != 0 {
		t.Errorf("total = %d, want 0", b2.Total)
	}
}

func TestConvertTo(t *testing.T) {
	rates := NewRateTable(map[string]int64{"EUR": 920_000})
	engine := NewEngine(nil)

	b := engine.Price(Input{
		BasePrice:   10000,
		Passengers:  1,
		BookingDate: mustDate(t, "2026-03-01"),
		TourDate:    mustDate(t, "2026-03-11"),
	})
	base := b.Total

	if err := b.ConvertTo("eur", rates); err != nil {
		t.Fatalf("ConvertTo: %v", err)
	}
	if b.Currency != "eur" && b.Currency != "EUR" {
		t.Errorf("currency = %q", b.Currency)
	}
	if b.FinalPrice != base.Convert(920_000) {
		t.Errorf("final = %d, want %d", b.FinalPrice, base.Convert(920_000))
	}
	// The base-currency total is untouched by conversion.
	if b.Total != base {
		t.Errorf("total mutated by conversion: %d", b.Total)
	}

	if err := b.ConvertTo("XXX", rates); err == nil {
		t.Error("expected error for unsupported currency")
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		booking string
		tour    string
		want    int
	}{
		{"2026-06-01", "2026-07-18", 47},
		{"2026-03-10", "2026-03-11", 1},
		{"2026-03-10", "2026-03-10", 0},
	}
	for _, tt := range tests {
		got := daysBetween(mustDate(t, tt.booking), mustDate(t, tt.tour))
		if got != tt.want {
			t.Errorf("daysBetween(%s, %s) = %d, want %d", tt.booking, tt.tour, got, tt.want)
		}
	}
}
