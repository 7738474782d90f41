package money

import (
	"testing"
)

func TestDelta(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int64
		expected int64
	}{
		{"equal amounts", 10000, 10000, 0},
		{"bank lower", 10000, 9700, 300},
		{"bank higher", 9700, 10000, 300},
		{"zero amounts", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delta(tt.a, tt.b); got != tt.expected {
				t.Errorf("Delta(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestTolerance(t *testing.T) {
	tests := []struct {
		name     string
		pgAmount int64
		flat     int64
		percent  float64
		expected int64
	}{
		{"flat dominates small amounts", 10000, 100, 0.001, 100},
		{"percent dominates large amounts", 1000000, 100, 0.001, 1000},
		{"crossover point", 100000, 100, 0.001, 100},
		{"negative amount uses absolute value", -1000000, 100, 0.001, 1000},
		{"zero percent", 50000, 100, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tolerance(tt.pgAmount, tt.flat, tt.percent); got != tt.expected {
				t.Errorf("Tolerance(%d, %d, %v) = %d, want %d",
					tt.pgAmount, tt.flat, tt.percent, got, tt.expected)
			}
		})
	}
}

func TestWithinTolerance_Boundaries(t *testing.T) {
	// Flat tolerance path: delta exactly at the threshold matches, one paisa
	// above does not.
	if !WithinTolerance(10000, 10000-100, 100, 0.001) {
		t.Error("delta exactly at flat tolerance should be within tolerance")
	}
	if WithinTolerance(10000, 10000-101, 100, 0.001) {
		t.Error("delta one paisa above flat tolerance should not be within tolerance")
	}

	// Percentage tolerance path: 0.1% of 10,00,000 paise is 1000 paise.
	if !WithinTolerance(1000000, 1000000-1000, 100, 0.001) {
		t.Error("delta exactly at percentage tolerance should be within tolerance")
	}
	if WithinTolerance(1000000, 1000000-1001, 100, 0.001) {
		t.Error("delta one paisa above percentage tolerance should not be within tolerance")
	}
}

func TestClassifyDelta(t *testing.T) {
	cfg := BandConfig{
		RoundingBandPaise:  1,
		FeeBandMinPaise:    200,
		FeeBandMaxPaise:    500,
		FlatTolerancePaise: 100,
		TolerancePercent:   0.001,
	}

	tests := []struct {
		name     string
		pg, bank int64
		expected Band
	}{
		{"exact", 10000, 10000, BandExact},
		{"rounding band", 10000, 10001, BandRounding},
		{"rounding band other direction", 10000, 9999, BandRounding},
		{"fee band lower edge", 10000, 9800, BandFee},
		{"fee band upper edge", 10000, 9500, BandFee},
		{"fee band middle", 10000, 9700, BandFee},
		{"within flat tolerance", 10000, 9950, BandWithinTolerance},
		{"beyond everything", 10000, 9000, BandMismatch},
		// The fee band is checked before the generic tolerance, so a delta of
		// 300 on a large amount classifies as a fee artifact even though the
		// percentage tolerance (1000 paise) would have absorbed it.
		{"fee band wins over percentage tolerance", 1000000, 999700, BandFee},
		{"large amount within percentage tolerance", 1000000, 999200, BandWithinTolerance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDelta(tt.pg, tt.bank, cfg); got != tt.expected {
				t.Errorf("ClassifyDelta(%d, %d) = %s, want %s",
					tt.pg, tt.bank, got, tt.expected)
			}
		})
	}
}

func TestFormatPaise(t *testing.T) {
	tests := []struct {
		paise    int64
		expected string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{10050, "100.50"},
		{-250, "-2.50"},
	}

	for _, tt := range tests {
		if got := FormatPaise(tt.paise); got != tt.expected {
			t.Errorf("FormatPaise(%d) = %s, want %s", tt.paise, got, tt.expected)
		}
	}
}
