package recon

import (
	"fmt"
	"time"

	"payment-recon-service/internal/models"
	"payment-recon-service/internal/money"
)

// verdictKind tags the outcome of classifying one gateway record.
type verdictKind int

const (
	verdictMatched verdictKind = iota
	verdictException
	verdictUnmatched
)

// verdict is the tagged outcome a rule produces. bankIdx is the arena
// position of the bank record the verdict consumes, or -1 when the verdict
// is one-sided.
type verdict struct {
	kind    verdictKind
	bankIdx int

	// matched fields
	tier   MatchTier
	fields []string

	// exception / unmatched fields
	reason ReasonCode
	detail string
}

func matchedVerdict(bankIdx int, tier MatchTier, fields []string) *verdict {
	return &verdict{kind: verdictMatched, bankIdx: bankIdx, tier: tier, fields: fields}
}

func exceptionVerdict(bankIdx int, reason ReasonCode, detail string) *verdict {
	return &verdict{kind: verdictException, bankIdx: bankIdx, reason: reason, detail: detail}
}

func unmatchedVerdict(reason ReasonCode, detail string) *verdict {
	return &verdict{kind: verdictUnmatched, bankIdx: -1, reason: reason, detail: detail}
}

// evalContext carries per-record state through the rule chain. Rules that
// resolve a candidate record store its arena position here for the rules
// behind them.
type evalContext struct {
	tx        *models.PGTransaction
	cycleDate time.Time

	candidate int
	viaRRN    bool
}

// rule is one priority-ordered classification step. Returning nil passes the
// record to the next rule; the first non-nil verdict wins.
type rule struct {
	name  string
	apply func(*evalContext) *verdict
}

// classifier applies the priority-ordered rule chain to gateway records that
// survived duplicate detection. The ordering is part of the contract:
// missing identity is reported before candidate lookup, the date window
// before any amount comparison, explicit fee arithmetic before the fixed
// amount bands.
type classifier struct {
	cfg   *Config
	index *bankIndex
	rules []rule
}

func newClassifier(cfg *Config, index *bankIndex) *classifier {
	c := &classifier{cfg: cfg, index: index}
	c.rules = []rule{
		{name: "missing_reference", apply: c.missingReference},
		{name: "resolve_candidate", apply: c.resolveCandidate},
		{name: "date_window", apply: c.dateWindow},
		{name: "explicit_fee", apply: c.explicitFee},
		{name: "amount_bands", apply: c.amountBands},
	}
	return c
}

// classify runs the chain for one gateway record. The chain always ends in a
// verdict: amountBands is total over its inputs.
func (c *classifier) classify(tx *models.PGTransaction, cycleDate time.Time) *verdict {
	ctx := &evalContext{tx: tx, cycleDate: cycleDate, candidate: -1}
	for _, r := range c.rules {
		if v := r.apply(ctx); v != nil {
			return v
		}
	}
	// Unreachable while amountBands stays total; classify defensively anyway.
	return unmatchedVerdict(ReasonPGMissingInBank, "")
}

// missingReference reports gateway records that carry no usable UTR. These
// can never be reference-matched, so nothing later in the chain applies.
func (c *classifier) missingReference(ctx *evalContext) *verdict {
	if !models.IsMissingUTR(ctx.tx.ReferenceID) {
		return nil
	}
	return exceptionVerdict(-1, ReasonUTRMissing,
		fmt.Sprintf("gateway record of %s has no usable UTR (got %q)",
			money.FormatPaise(ctx.tx.AmountPaise), ctx.tx.ReferenceID))
}

// resolveCandidate looks up the bank counterpart by UTR, falling back to the
// RRN. An RRN hit is a format disagreement: by default it classifies as a
// UTR_MISMATCH exception consuming the bank record; when alternate-reference
// matching is enabled it resolves the candidate and lets the rest of the
// chain validate it as a HEURISTIC match. No hit on either key is the normal
// no-show case, reported as unmatched rather than an exception.
func (c *classifier) resolveCandidate(ctx *evalContext) *verdict {
	utr := ctx.tx.NormalizedUTR()
	if idx := c.index.firstAvailableByUTR(utr); idx >= 0 {
		ctx.candidate = idx
		return nil
	}

	rrn := ctx.tx.NormalizedRRN()
	if !models.IsMissingUTR(rrn) {
		if idx := c.index.firstAvailableByUTR(rrn); idx >= 0 {
			if c.cfg.AllowAlternateReferenceMatch {
				ctx.candidate = idx
				ctx.viaRRN = true
				return nil
			}
			return exceptionVerdict(idx, ReasonUTRMismatch,
				fmt.Sprintf("bank statement carries RRN %s where the gateway reports UTR %s", rrn, utr))
		}
	}

	return unmatchedVerdict(ReasonPGMissingInBank, c.noShowDetail(ctx))
}

// noShowDetail enriches the unmatched reason with amount- and date-index
// hints so ops can spot probable UTR transcription errors.
func (c *classifier) noShowDetail(ctx *evalContext) string {
	detail := fmt.Sprintf("no bank record found for UTR %s", ctx.tx.NormalizedUTR())

	sameAmount := c.index.availableByAmount(ctx.tx.AmountPaise)
	if len(sameAmount) == 0 {
		return detail
	}
	detail += fmt.Sprintf("; %d unconsumed bank record(s) share amount %s",
		len(sameAmount), money.FormatPaise(ctx.tx.AmountPaise))

	sameDay := make(map[int]bool)
	for _, i := range c.index.availableOnDate(ctx.cycleDate) {
		sameDay[i] = true
	}
	for _, i := range sameAmount {
		if sameDay[i] {
			detail += fmt.Sprintf("; bank UTR %s matches on amount and cycle date, possible transcription error",
				c.index.record(i).NormalizedUTR())
			break
		}
	}
	return detail
}

// dateWindow validates the settlement window between the capture timestamp
// and the bank date. Absent or unparseable dates fail open: a malformed
// timestamp must not block an otherwise clean match. When the gateway did
// not report a capture time the cycle date stands in for the PG side.
func (c *classifier) dateWindow(ctx *evalContext) *verdict {
	bank := c.index.record(ctx.candidate)
	if bank.TransactionDate == nil {
		return nil
	}

	pgDate := ctx.cycleDate
	if ctx.tx.CapturedAt != nil {
		pgDate = *ctx.tx.CapturedAt
	}

	days := models.DayDelta(pgDate, *bank.TransactionDate)
	if days <= c.cfg.DateWindowDays {
		return nil
	}

	return exceptionVerdict(ctx.candidate, ReasonDateOutOfWindow,
		fmt.Sprintf("captured %s but bank dated %s: %d day(s) apart, window is %d",
			pgDate.Format("2006-01-02"), bank.TransactionDate.Format("2006-01-02"),
			days, c.cfg.DateWindowDays))
}

// explicitFee runs the three internal-consistency checks when the gateway
// reported fee or settlement figures. A missing half of the pair is derived
// from the other before checking. If all three hold, the fee explains the
// raw delta and the pair matches regardless of it.
func (c *classifier) explicitFee(ctx *evalContext) *verdict {
	tx := ctx.tx
	if !tx.HasFeeData() {
		return nil
	}

	bank := c.index.record(ctx.candidate)
	tol := c.cfg.FeeVarianceTolerancePaise

	var fee, settle int64
	switch {
	case tx.BankFeePaise != nil && tx.SettlementAmountPaise != nil:
		fee, settle = *tx.BankFeePaise, *tx.SettlementAmountPaise
	case tx.BankFeePaise != nil:
		fee = *tx.BankFeePaise
		settle = tx.AmountPaise - fee
	default:
		settle = *tx.SettlementAmountPaise
		fee = tx.AmountPaise - settle
	}

	if d := money.Delta(tx.AmountPaise-fee, settle); d > tol {
		return exceptionVerdict(ctx.candidate, ReasonFeesVariance,
			fmt.Sprintf("gateway amount %s minus fee %s disagrees with settlement amount %s by %s",
				money.FormatPaise(tx.AmountPaise), money.FormatPaise(fee),
				money.FormatPaise(settle), money.FormatPaise(d)))
	}
	if d := money.Delta(settle, bank.AmountPaise); d > tol {
		return exceptionVerdict(ctx.candidate, ReasonFeesVariance,
			fmt.Sprintf("settlement amount %s disagrees with bank amount %s by %s",
				money.FormatPaise(settle), money.FormatPaise(bank.AmountPaise),
				money.FormatPaise(d)))
	}
	if d := money.Delta(tx.AmountPaise-bank.AmountPaise, fee); d > tol {
		return exceptionVerdict(ctx.candidate, ReasonFeesVariance,
			fmt.Sprintf("gateway amount %s minus bank amount %s disagrees with reported fee %s by %s",
				money.FormatPaise(tx.AmountPaise), money.FormatPaise(bank.AmountPaise),
				money.FormatPaise(fee), money.FormatPaise(d)))
	}

	tier := TierStrong
	if money.Delta(tx.AmountPaise, bank.AmountPaise) == 0 {
		tier = TierExact
	}
	if ctx.viaRRN {
		tier = TierHeuristic
	}
	return matchedVerdict(ctx.candidate, tier, []string{"utr", "fee", "amount"})
}

// amountBands is the terminal rule: fixed-band classification of the raw
// amount delta for records with no explicit fee data.
func (c *classifier) amountBands(ctx *evalContext) *verdict {
	tx := ctx.tx
	bank := c.index.record(ctx.candidate)
	delta := money.Delta(tx.AmountPaise, bank.AmountPaise)

	switch money.ClassifyDelta(tx.AmountPaise, bank.AmountPaise, c.cfg.bands()) {
	case money.BandExact:
		tier := TierExact
		if ctx.viaRRN {
			tier = TierHeuristic
		}
		return matchedVerdict(ctx.candidate, tier, []string{"utr", "amount", "date"})

	case money.BandRounding:
		return exceptionVerdict(ctx.candidate, ReasonRoundingError,
			fmt.Sprintf("amounts differ by %s (gateway %s, bank %s), rounding artifact",
				money.FormatPaise(delta), money.FormatPaise(tx.AmountPaise),
				money.FormatPaise(bank.AmountPaise)))

	case money.BandFee:
		return exceptionVerdict(ctx.candidate, ReasonFeeMismatch,
			fmt.Sprintf("delta %s sits in the processor fee band with no fee reported (gateway %s, bank %s)",
				money.FormatPaise(delta), money.FormatPaise(tx.AmountPaise),
				money.FormatPaise(bank.AmountPaise)))

	case money.BandWithinTolerance:
		tier := TierStrong
		if ctx.viaRRN {
			tier = TierHeuristic
		}
		return matchedVerdict(ctx.candidate, tier, []string{"utr", "amount", "date"})

	default:
		return exceptionVerdict(ctx.candidate, ReasonAmountMismatch,
			fmt.Sprintf("gateway %s vs bank %s, delta %s exceeds tolerance",
				money.FormatPaise(tx.AmountPaise), money.FormatPaise(bank.AmountPaise),
				money.FormatPaise(delta)))
	}
}
