package money

import "testing"

func TestApplyBasisPoints(t *testing.T) {
	tests := []struct {
		name string
		in   Amount
		bp   int64
		want Amount
	}{
		{"identity", 30000, 10000, 30000},
		{"x1.3", 30000, 13000, 39000},
		{"x0.9", 46800, 9000, 42120},
		{"rounds half up", 1001, 5000, 501},   // 500.5 -> 501
		{"rounds down below half", 1003, 3333, 334}, // 334.2999 -> 334
		{"zero amount", 0, 13000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.ApplyBasisPoints(tt.bp); got != tt.want {
				t.Errorf("ApplyBasisPoints(%d, %d) = %d, want %d", tt.in, tt.bp, got, tt.want)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		in    Amount
		rate  int64
		want  Amount
	}{
		{"identity rate", 37908, 1_000_000, 37908},
		{"usd to eur 0.92", 10000, 920_000, 9200},
		{"rounds half up", 10001, 920_000, 9201}, // 9200.92 -> 9201
		{"thb 36.5", 100, 36_500_000, 3650},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Convert(tt.rate); got != tt.want {
				t.Errorf("Convert(%d, %d) = %d, want %d", tt.in, tt.rate, got, tt.want)
			}
		})
	}
}

func TestSubFloorsAtZero(t *testing.T) {
	if got := Amount(100).Sub(250); got != 0 {
		t.Errorf("Sub should floor at zero, got %d", got)
	}
	if got := Amount(250).Sub(100); got != 150 {
		t.Errorf("Sub(250, 100) = %d, want 150", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Amount(37908).Percent(75); got != 28431 {
		t.Errorf("Percent(37908, 75) = %d, want 28431", got)
	}
	if got := Amount(101).Percent(50); got != 51 { // 50.5 rounds up
		t.Errorf("Percent(101, 50) = %d, want 51", got)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Amount
		want string
	}{
		{37908, "379.08"},
		{100, "1.00"},
		{5, "0.05"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int64(tt.in), got, tt.want)
		}
	}
}
