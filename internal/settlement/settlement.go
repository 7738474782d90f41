// Package settlement computes merchant payout figures from reconciled
// matches. Only matched transactions settle; exceptions and unmatched
// records are held back until the next cycle.
package settlement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"payment-recon-service/internal/recon"
	"payment-recon-service/pkg/errors"
	"payment-recon-service/pkg/logger"
)

// Config holds the commercial terms applied to a settlement cycle.
type Config struct {
	// CommissionBps is the processing commission in basis points of the
	// gross amount.
	CommissionBps int64

	// GSTPercent is the tax rate applied on top of the commission.
	GSTPercent float64

	// RollingReservePercent is withheld from the net payout and released in
	// later cycles.
	RollingReservePercent float64
}

// DefaultConfig carries typical aggregator terms: 2% commission, 18% GST on
// the commission, 5% rolling reserve.
func DefaultConfig() *Config {
	return &Config{
		CommissionBps:         200,
		GSTPercent:            18,
		RollingReservePercent: 5,
	}
}

func (c *Config) Validate() error {
	if c.CommissionBps < 0 || c.CommissionBps > 10000 {
		return fmt.Errorf("commission must be between 0 and 10000 bps, got %d", c.CommissionBps)
	}
	if c.GSTPercent < 0 || c.GSTPercent > 100 {
		return fmt.Errorf("gst percent must be between 0 and 100, got %v", c.GSTPercent)
	}
	if c.RollingReservePercent < 0 || c.RollingReservePercent > 100 {
		return fmt.Errorf("rolling reserve percent must be between 0 and 100, got %v", c.RollingReservePercent)
	}
	return nil
}

// MerchantPayout is the per-merchant settlement summary for one cycle. All
// amounts are in paise.
type MerchantPayout struct {
	MerchantID       string `json:"merchant_id"`
	TransactionCount int    `json:"transaction_count"`
	GrossPaise       int64  `json:"gross_paise"`
	CommissionPaise  int64  `json:"commission_paise"`
	GSTPaise         int64  `json:"gst_paise"`
	ReservePaise     int64  `json:"reserve_paise"`
	NetPaise         int64  `json:"net_paise"`
}

// CycleSettlement aggregates the payouts of one reconciliation cycle.
type CycleSettlement struct {
	CycleDate    string           `json:"cycle_date"`
	Payouts      []MerchantPayout `json:"payouts"`
	TotalGross   int64            `json:"total_gross_paise"`
	TotalNet     int64            `json:"total_net_paise"`
	TotalReserve int64            `json:"total_reserve_paise"`
}

// Calculator derives merchant payouts from reconciliation results.
type Calculator struct {
	cfg *Config
	log logger.Logger
}

// NewCalculator creates a calculator. A nil config falls back to
// DefaultConfig.
func NewCalculator(cfg *Config, log logger.Logger) (*Calculator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			"invalid settlement configuration", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Calculator{cfg: cfg, log: log.WithComponent("settlement")}, nil
}

// Settle computes per-merchant payouts from a reconciliation result.
// Transactions without a merchant identifier aggregate under "UNKNOWN".
// Payouts are ordered by merchant ID.
func (c *Calculator) Settle(result *recon.Result) (*CycleSettlement, error) {
	if result == nil {
		return nil, errors.InputError(errors.CodeInvalidInput,
			"reconciliation result must not be nil", nil)
	}

	grouped := make(map[string]*MerchantPayout)
	for _, m := range result.Matched {
		id := m.PG.MerchantID
		if id == "" {
			id = "UNKNOWN"
		}
		p, ok := grouped[id]
		if !ok {
			p = &MerchantPayout{MerchantID: id}
			grouped[id] = p
		}
		p.TransactionCount++
		p.GrossPaise += m.PG.AmountPaise
	}

	cycle := &CycleSettlement{CycleDate: result.CycleDate}
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := grouped[id]
		c.applyDeductions(p)
		cycle.Payouts = append(cycle.Payouts, *p)
		cycle.TotalGross += p.GrossPaise
		cycle.TotalNet += p.NetPaise
		cycle.TotalReserve += p.ReservePaise
	}

	c.log.WithFields(logger.Fields{
		"cycle_date":  cycle.CycleDate,
		"merchants":   len(cycle.Payouts),
		"total_gross": cycle.TotalGross,
		"total_net":   cycle.TotalNet,
	}).Info("Settlement cycle computed")

	return cycle, nil
}

// applyDeductions fills in the deduction and net figures for one payout.
// Each deduction rounds half away from zero at the paise before the next
// one applies, matching how statements present the figures.
func (c *Calculator) applyDeductions(p *MerchantPayout) {
	gross := decimal.NewFromInt(p.GrossPaise)

	commission := gross.
		Mul(decimal.NewFromInt(c.cfg.CommissionBps)).
		Div(decimal.NewFromInt(10000)).
		Round(0)
	gst := commission.
		Mul(decimal.NewFromFloat(c.cfg.GSTPercent)).
		Div(decimal.NewFromInt(100)).
		Round(0)

	afterCharges := gross.Sub(commission).Sub(gst)
	reserve := afterCharges.
		Mul(decimal.NewFromFloat(c.cfg.RollingReservePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0)

	p.CommissionPaise = commission.IntPart()
	p.GSTPaise = gst.IntPart()
	p.ReservePaise = reserve.IntPart()
	p.NetPaise = afterCharges.Sub(reserve).IntPart()
}
