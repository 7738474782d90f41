// Package recon implements the reconciliation matching engine: it takes the
// gateway transactions and bank statement records for one settlement cycle
// and partitions them into matched pairs, classified exceptions, and
// unmatched singletons.
//
// The engine is a pure batch computation. One Reconcile call owns all of its
// working state, so a single Reconciler is safe to share across goroutines
// running different cycles concurrently.
//
// Example usage:
//
//	engine := recon.NewReconciler(recon.DefaultConfig(), log)
//	result, err := engine.Reconcile(pgRecords, bankRecords, "2024-03-15")
package recon

import (
	"fmt"

	"payment-recon-service/internal/money"
)

// Config holds the tunable thresholds of the matching engine. All values
// have working defaults; construct with DefaultConfig and override fields as
// needed, then Validate.
type Config struct {
	// AmountTolerancePaise is the flat amount tolerance in paise.
	AmountTolerancePaise int64 `json:"amount_tolerance_paise"`

	// AmountTolerancePercent is the relative amount tolerance as a fraction
	// of the gateway amount (0.001 == 0.1%). The effective tolerance is the
	// larger of the flat and relative values.
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`

	// DateWindowDays is the allowed distance between capture and settlement
	// dates. The default of 2 models a T+2 settlement window.
	DateWindowDays int `json:"date_window_days"`

	// FeeVarianceTolerancePaise bounds the fee internal-consistency checks.
	FeeVarianceTolerancePaise int64 `json:"fee_variance_tolerance_paise"`

	// RoundingBandPaise is the exact delta reported as a rounding artifact.
	RoundingBandPaise int64 `json:"rounding_band_paise"`

	// FeeBandMinPaise and FeeBandMaxPaise bound the delta range reported as
	// an undisclosed processor fee (₹2–₹5 by default).
	FeeBandMinPaise int64 `json:"fee_band_min_paise"`
	FeeBandMaxPaise int64 `json:"fee_band_max_paise"`

	// TopReasonsLimit caps how many reason codes the result summarizes.
	TopReasonsLimit int `json:"top_reasons_limit"`

	// AllowAlternateReferenceMatch lets a clean RRN-only hit become a
	// HEURISTIC-tier match instead of a UTR_MISMATCH exception.
	AllowAlternateReferenceMatch bool `json:"allow_alternate_reference_match"`
}

// DefaultConfig returns the production thresholds: ₹1.00 or 0.1% amount
// tolerance, T+2 date window, ₹1.00 fee variance tolerance.
func DefaultConfig() *Config {
	return &Config{
		AmountTolerancePaise:         100,
		AmountTolerancePercent:       0.001,
		DateWindowDays:               2,
		FeeVarianceTolerancePaise:    100,
		RoundingBandPaise:            1,
		FeeBandMinPaise:              200,
		FeeBandMaxPaise:              500,
		TopReasonsLimit:              5,
		AllowAlternateReferenceMatch: false,
	}
}

// StrictConfig returns thresholds for audit-grade reconciliation: no amount
// slack beyond the rounding band and a same-or-next-day window.
func StrictConfig() *Config {
	return &Config{
		AmountTolerancePaise:         0,
		AmountTolerancePercent:       0,
		DateWindowDays:               1,
		FeeVarianceTolerancePaise:    0,
		RoundingBandPaise:            1,
		FeeBandMinPaise:              200,
		FeeBandMaxPaise:              500,
		TopReasonsLimit:              5,
		AllowAlternateReferenceMatch: false,
	}
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.AmountTolerancePaise < 0 {
		return fmt.Errorf("amount tolerance cannot be negative: %d", c.AmountTolerancePaise)
	}
	if c.AmountTolerancePercent < 0 || c.AmountTolerancePercent > 1 {
		return fmt.Errorf("amount tolerance percent must be between 0 and 1: %f", c.AmountTolerancePercent)
	}
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window days cannot be negative: %d", c.DateWindowDays)
	}
	if c.FeeVarianceTolerancePaise < 0 {
		return fmt.Errorf("fee variance tolerance cannot be negative: %d", c.FeeVarianceTolerancePaise)
	}
	if c.RoundingBandPaise < 0 {
		return fmt.Errorf("rounding band cannot be negative: %d", c.RoundingBandPaise)
	}
	if c.FeeBandMinPaise > c.FeeBandMaxPaise {
		return fmt.Errorf("fee band min %d exceeds max %d", c.FeeBandMinPaise, c.FeeBandMaxPaise)
	}
	if c.TopReasonsLimit <= 0 {
		return fmt.Errorf("top reasons limit must be positive: %d", c.TopReasonsLimit)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// bands maps the config onto the money package's band thresholds.
func (c *Config) bands() money.BandConfig {
	return money.BandConfig{
		RoundingBandPaise:  c.RoundingBandPaise,
		FeeBandMinPaise:    c.FeeBandMinPaise,
		FeeBandMaxPaise:    c.FeeBandMaxPaise,
		FlatTolerancePaise: c.AmountTolerancePaise,
		TolerancePercent:   c.AmountTolerancePercent,
	}
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{AmountTolerance: %dp or %.2f%%, DateWindow: %dd, FeeVariance: %dp}",
		c.AmountTolerancePaise, c.AmountTolerancePercent*100, c.DateWindowDays, c.FeeVarianceTolerancePaise)
}
