package recon

import (
	"fmt"
	"math"
	"sort"

	"payment-recon-service/internal/models"
	"payment-recon-service/pkg/errors"
	"payment-recon-service/pkg/logger"
)

// Reconciler runs the matching engine for settlement cycles. It holds only
// immutable configuration; every Reconcile call builds its own working sets,
// so one Reconciler may serve concurrent cycles without locking.
type Reconciler struct {
	cfg *Config
	log logger.Logger
}

// NewReconciler creates a reconciler. A nil config falls back to
// DefaultConfig; a nil logger disables logging.
func NewReconciler(cfg *Config, log logger.Logger) (*Reconciler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			"invalid reconciler configuration", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{cfg: cfg.Clone(), log: log.WithComponent("recon_engine")}, nil
}

// Config returns a copy of the reconciler's configuration.
func (r *Reconciler) Config() *Config {
	return r.cfg.Clone()
}

// Reconcile partitions the cycle's gateway and bank records into matched
// pairs, classified exceptions, and unmatched singletons.
//
// The only error conditions are structural: nil record slices, nil records,
// or a missing/invalid cycle date. Those are programming errors on the
// caller's side. Every data-level problem degrades to a reason code inside
// the result; the engine never partially fails.
func (r *Reconciler) Reconcile(pgRecords []*models.PGTransaction, bankRecords []*models.BankRecord, cycleDate string) (*Result, error) {
	if pgRecords == nil {
		return nil, errors.InputError(errors.CodeInvalidInput, "pg records must not be nil", nil)
	}
	if bankRecords == nil {
		return nil, errors.InputError(errors.CodeInvalidInput, "bank records must not be nil", nil)
	}
	cycle, err := models.ParseCycleDate(cycleDate)
	if err != nil {
		return nil, errors.InputError(errors.CodeInvalidCycleDate,
			"cycle date must be YYYY-MM-DD", err)
	}
	for i, tx := range pgRecords {
		if tx == nil {
			return nil, errors.InputError(errors.CodeInvalidInput,
				fmt.Sprintf("pg record at index %d is nil", i), nil)
		}
	}
	for i, rec := range bankRecords {
		if rec == nil {
			return nil, errors.InputError(errors.CodeInvalidInput,
				fmt.Sprintf("bank record at index %d is nil", i), nil)
		}
	}

	r.log.WithFields(logger.Fields{
		"cycle_date": cycleDate,
		"pg_count":   len(pgRecords),
		"bank_count": len(bankRecords),
	}).Info("Starting reconciliation run")

	result := &Result{CycleDate: cycleDate}

	// With no bank records there is nothing to match against: flag the whole
	// gateway side and skip all per-record work.
	if len(bankRecords) == 0 {
		for _, tx := range pgRecords {
			result.Exceptions = append(result.Exceptions, r.newException(tx, nil, SidePG,
				ReasonBankFileMissing,
				fmt.Sprintf("no bank statement records for cycle %s", cycleDate)))
		}
		r.finalize(result, len(pgRecords), 0)
		return result, nil
	}

	pgDups := pgDuplicates(pgRecords)
	bankDups := bankDuplicates(bankRecords)
	index := newBankIndex(bankRecords, bankDups)
	cls := newClassifier(r.cfg, index)

	// Gateway side, in input order. Duplicate-group members are reported
	// directly; everything else goes through the rule chain.
	for _, tx := range pgRecords {
		key := tx.NormalizedUTR()
		if n, isDup := pgDups[key]; isDup {
			result.Exceptions = append(result.Exceptions, r.newException(tx, nil, SidePG,
				ReasonDuplicatePG,
				fmt.Sprintf("UTR %s appears %d times in the gateway file", key, n)))
			continue
		}

		v := cls.classify(tx, cycle)
		var bank *models.BankRecord
		if v.bankIdx >= 0 {
			bank = index.record(v.bankIdx)
			index.consume(v.bankIdx)
		}

		switch v.kind {
		case verdictMatched:
			result.Matched = append(result.Matched, Match{
				PG:               tx,
				Bank:             bank,
				Tier:             v.tier,
				MatchedFields:    v.fields,
				AmountDeltaPaise: tx.AmountPaise - bank.AmountPaise,
			})
		case verdictException:
			result.Exceptions = append(result.Exceptions, r.newException(tx, bank, SidePG, v.reason, v.detail))
		default:
			result.Unmatched = append(result.Unmatched, Unmatched{
				PG:         tx,
				Side:       SidePG,
				ReasonCode: v.reason,
				Detail:     v.detail,
			})
		}
	}

	// Bank residue, in statement order: duplicate groups become exceptions,
	// everything unconsumed becomes the bank-side no-show case.
	for i, rec := range bankRecords {
		if index.isDuplicate(i) {
			key := rec.NormalizedUTR()
			result.Exceptions = append(result.Exceptions, r.newException(nil, rec, SideBank,
				ReasonDuplicateBank,
				fmt.Sprintf("UTR %s appears %d times in the bank statement", key, bankDups[key])))
			continue
		}
		if !index.isUsed(i) {
			result.Unmatched = append(result.Unmatched, Unmatched{
				Bank:       rec,
				Side:       SideBank,
				ReasonCode: ReasonBankMissingInPG,
				Detail:     fmt.Sprintf("bank record %s has no gateway counterpart", rec.NormalizedUTR()),
			})
		}
	}

	r.finalize(result, len(pgRecords), len(bankRecords))

	r.log.WithFields(logger.Fields{
		"cycle_date":     cycleDate,
		"matched":        result.Stats.Matched,
		"exceptions":     result.Stats.Exceptions,
		"unmatched":      result.Stats.UnmatchedPG + result.Stats.UnmatchedBank,
		"match_rate_pct": result.Stats.MatchRatePct,
	}).Info("Reconciliation run completed")

	return result, nil
}

// newException fills in the fixed severity and resolution hint for a code.
func (r *Reconciler) newException(tx *models.PGTransaction, bank *models.BankRecord, side Side, code ReasonCode, detail string) Exception {
	info := code.Info()
	return Exception{
		PG:             tx,
		Bank:           bank,
		Side:           side,
		ReasonCode:     code,
		Severity:       info.Severity,
		Detail:         detail,
		ResolutionHint: info.ResolutionHint,
	}
}

// finalize computes stats and the top-reasons summary.
func (r *Reconciler) finalize(result *Result, totalPG, totalBank int) {
	stats := Stats{
		TotalPG:      totalPG,
		TotalBank:    totalBank,
		Matched:      len(result.Matched),
		Exceptions:   len(result.Exceptions),
		ReasonCounts: make(map[ReasonCode]int),
	}

	for _, u := range result.Unmatched {
		if u.Side == SidePG {
			stats.UnmatchedPG++
		} else {
			stats.UnmatchedBank++
		}
		stats.ReasonCounts[u.ReasonCode]++
	}
	for _, e := range result.Exceptions {
		stats.ReasonCounts[e.ReasonCode]++
	}

	if totalPG > 0 {
		stats.MatchRatePct = round2(float64(stats.Matched) / float64(totalPG) * 100)
	}

	result.Stats = stats
	result.TopReasons = topReasons(stats.ReasonCounts, r.cfg.TopReasonsLimit)
}

// topReasons ranks reason codes by frequency. Ties break on code so the
// ordering is deterministic regardless of map iteration.
func topReasons(counts map[ReasonCode]int, limit int) []TopReason {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil
	}

	reasons := make([]TopReason, 0, len(counts))
	for code, n := range counts {
		reasons = append(reasons, TopReason{
			Code:    code,
			Count:   n,
			Percent: round2(float64(n) / float64(total) * 100),
		})
	}

	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Count != reasons[j].Count {
			return reasons[i].Count > reasons[j].Count
		}
		return reasons[i].Code < reasons[j].Code
	})

	if len(reasons) > limit {
		reasons = reasons[:limit]
	}
	return reasons
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
