// Package money provides amount arithmetic for reconciliation in integer
// minor currency units (paise). Keeping every comparison in int64 paise avoids
// floating-point drift in monetary deltas; decimal is used only when a value
// has to be rendered in major units for humans.
package money

import (
	"github.com/shopspring/decimal"
)

// Delta returns the absolute difference between two amounts in paise.
func Delta(a, b int64) int64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d
}

// Tolerance computes the effective amount tolerance for a given gateway
// amount: the larger of the flat paise tolerance and the percentage tolerance
// applied to the amount. Percent is a fraction (0.001 == 0.1%).
func Tolerance(pgAmount, flatPaise int64, percent float64) int64 {
	if pgAmount < 0 {
		pgAmount = -pgAmount
	}
	pctTol := decimal.NewFromInt(pgAmount).
		Mul(decimal.NewFromFloat(percent)).
		Round(0).
		IntPart()
	if pctTol > flatPaise {
		return pctTol
	}
	return flatPaise
}

// WithinTolerance reports whether the difference between a gateway amount and
// a bank amount is within the effective tolerance.
func WithinTolerance(pgAmount, bankAmount, flatPaise int64, percent float64) bool {
	return Delta(pgAmount, bankAmount) <= Tolerance(pgAmount, flatPaise, percent)
}

// Band identifies which fixed amount-difference band a delta falls into.
type Band int

const (
	// BandExact means the two amounts are identical.
	BandExact Band = iota

	// BandRounding means the delta equals the rounding band (typically one
	// paisa), a known artifact of per-leg rounding at the gateway.
	BandRounding

	// BandFee means the delta sits in the typical processor-fee range
	// (₹2–₹5 by default) with no explicit fee reported.
	BandFee

	// BandWithinTolerance means the delta is inside the generic tolerance.
	BandWithinTolerance

	// BandMismatch means the delta exceeds every band and the tolerance.
	BandMismatch
)

// String returns the string representation of Band
func (b Band) String() string {
	switch b {
	case BandExact:
		return "Exact"
	case BandRounding:
		return "Rounding"
	case BandFee:
		return "Fee"
	case BandWithinTolerance:
		return "WithinTolerance"
	case BandMismatch:
		return "Mismatch"
	default:
		return "Unknown"
	}
}

// BandConfig holds the thresholds for fixed-band delta classification.
type BandConfig struct {
	RoundingBandPaise  int64
	FeeBandMinPaise    int64
	FeeBandMaxPaise    int64
	FlatTolerancePaise int64
	TolerancePercent   float64
}

// ClassifyDelta assigns the amount difference between a gateway amount and a
// bank amount to a band. Bands are evaluated in a fixed order so that deltas
// that look like known artifacts (rounding, undisclosed processor fees) are
// explained before falling through to the generic tolerance path.
func ClassifyDelta(pgAmount, bankAmount int64, cfg BandConfig) Band {
	delta := Delta(pgAmount, bankAmount)

	switch {
	case delta == 0:
		return BandExact
	case delta == cfg.RoundingBandPaise:
		return BandRounding
	case delta >= cfg.FeeBandMinPaise && delta <= cfg.FeeBandMaxPaise:
		return BandFee
	case delta <= Tolerance(pgAmount, cfg.FlatTolerancePaise, cfg.TolerancePercent):
		return BandWithinTolerance
	default:
		return BandMismatch
	}
}

// FormatPaise renders a paise amount in major units with two decimal places,
// e.g. 1050 -> "10.50".
func FormatPaise(paise int64) string {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).StringFixed(2)
}
