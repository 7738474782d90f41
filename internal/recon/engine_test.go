package recon

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"payment-recon-service/internal/models"
	"payment-recon-service/pkg/errors"
)

const testCycle = "2024-03-15"

func newTestReconciler(t *testing.T, cfg *Config) *Reconciler {
	t.Helper()
	r, err := NewReconciler(cfg, nil)
	if err != nil {
		t.Fatalf("NewReconciler failed: %v", err)
	}
	return r
}

func pgTx(utr string, amountPaise int64) *models.PGTransaction {
	return &models.PGTransaction{ReferenceID: utr, AmountPaise: amountPaise}
}

func bankRec(utr string, amountPaise int64, date string) *models.BankRecord {
	rec := &models.BankRecord{ReferenceID: utr, AmountPaise: amountPaise}
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		rec.TransactionDate = &d
	}
	return rec
}

func capturedAt(tx *models.PGTransaction, date string) *models.PGTransaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	tx.CapturedAt = &d
	return tx
}

func int64Ptr(v int64) *int64 { return &v }

func TestReconcile_ExactMatch(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("U1", 10000)},
		[]*models.BankRecord{bankRec("U1", 10000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result.Matched))
	}
	m := result.Matched[0]
	if m.Tier != TierExact {
		t.Errorf("expected tier EXACT, got %s", m.Tier)
	}
	if m.AmountDeltaPaise != 0 {
		t.Errorf("expected zero delta, got %d", m.AmountDeltaPaise)
	}

	if result.Stats.Matched != 1 || result.Stats.TotalPG != 1 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}
	if result.Stats.MatchRatePct != 100 {
		t.Errorf("expected match rate 100, got %v", result.Stats.MatchRatePct)
	}
	if len(result.Exceptions) != 0 || len(result.Unmatched) != 0 {
		t.Errorf("expected clean result, got %d exceptions %d unmatched",
			len(result.Exceptions), len(result.Unmatched))
	}
}

func TestReconcile_RoundingError(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("U1", 10000)},
		[]*models.BankRecord{bankRec("U1", 10001, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(result.Exceptions))
	}
	ex := result.Exceptions[0]
	if ex.ReasonCode != ReasonRoundingError {
		t.Errorf("expected ROUNDING_ERROR, got %s", ex.ReasonCode)
	}
	if ex.Severity != SeverityLow {
		t.Errorf("expected LOW severity, got %s", ex.Severity)
	}
	if !strings.Contains(ex.Detail, "0.01") {
		t.Errorf("detail should report the one paisa delta: %s", ex.Detail)
	}
	if ex.Bank == nil {
		t.Error("rounding exception should consume the bank record")
	}
	if len(result.Unmatched) != 0 {
		t.Errorf("consumed bank record must not reappear as unmatched: %+v", result.Unmatched)
	}
}

func TestReconcile_FeeBand(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("U1", 10000)},
		[]*models.BankRecord{bankRec("U1", 9700, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(result.Exceptions))
	}
	if result.Exceptions[0].ReasonCode != ReasonFeeMismatch {
		t.Errorf("expected FEE_MISMATCH, got %s", result.Exceptions[0].ReasonCode)
	}
}

func TestReconcile_MissingBankFile(t *testing.T) {
	r := newTestReconciler(t, nil)

	pg := []*models.PGTransaction{
		pgTx("U1", 100), pgTx("U2", 200), pgTx("U3", 300), pgTx("U4", 400), pgTx("U5", 500),
	}
	result, err := r.Reconcile(pg, []*models.BankRecord{}, testCycle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 5 {
		t.Fatalf("expected 5 exceptions, got %d", len(result.Exceptions))
	}
	for _, ex := range result.Exceptions {
		if ex.ReasonCode != ReasonBankFileMissing {
			t.Errorf("expected BANK_FILE_MISSING, got %s", ex.ReasonCode)
		}
		if ex.Severity != SeverityCritical {
			t.Errorf("expected CRITICAL severity, got %s", ex.Severity)
		}
	}
	if result.Stats.Matched != 0 || result.Stats.MatchRatePct != 0 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}
}

func TestReconcile_DateWindowBreach(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{capturedAt(pgTx("U1", 10000), "2024-03-15")},
		[]*models.BankRecord{bankRec("U1", 10000, "2024-03-20")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(result.Exceptions))
	}
	ex := result.Exceptions[0]
	if ex.ReasonCode != ReasonDateOutOfWindow {
		t.Errorf("expected DATE_OUT_OF_WINDOW, got %s", ex.ReasonCode)
	}
	if ex.Severity != SeverityMedium {
		t.Errorf("expected MEDIUM severity, got %s", ex.Severity)
	}
	for _, want := range []string{"2024-03-15", "2024-03-20", "5 day"} {
		if !strings.Contains(ex.Detail, want) {
			t.Errorf("detail missing %q: %s", want, ex.Detail)
		}
	}
}

func TestReconcile_DateWindowEdge(t *testing.T) {
	r := newTestReconciler(t, nil)

	// Exactly at the T+2 boundary still matches.
	result, err := r.Reconcile(
		[]*models.PGTransaction{capturedAt(pgTx("U1", 10000), "2024-03-15")},
		[]*models.BankRecord{bankRec("U1", 10000, "2024-03-17")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matched) != 1 {
		t.Fatalf("expected a match at the window boundary, got %+v", result)
	}
}

func TestReconcile_DateFailOpen(t *testing.T) {
	r := newTestReconciler(t, nil)

	// No bank date at all: the window check must not block the match.
	result, err := r.Reconcile(
		[]*models.PGTransaction{capturedAt(pgTx("U1", 10000), "2024-01-01")},
		[]*models.BankRecord{bankRec("U1", 10000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matched) != 1 {
		t.Fatalf("expected match with missing bank date, got %+v", result)
	}

	// No capture time: the cycle date stands in for the PG side.
	result, err = r.Reconcile(
		[]*models.PGTransaction{pgTx("U2", 10000)},
		[]*models.BankRecord{bankRec("U2", 10000, "2024-03-16")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matched) != 1 {
		t.Fatalf("expected match using cycle date fallback, got %+v", result)
	}
}

func TestReconcile_PriorityMissingUTRBeforeAmount(t *testing.T) {
	r := newTestReconciler(t, nil)

	// The record is both missing its UTR and would amount-mismatch; the
	// missing identity must win.
	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("  ", 10000)},
		[]*models.BankRecord{bankRec("U1", 50, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(result.Exceptions))
	}
	if result.Exceptions[0].ReasonCode != ReasonUTRMissing {
		t.Errorf("expected UTR_MISSING_OR_INVALID, got %s", result.Exceptions[0].ReasonCode)
	}
	if result.Exceptions[0].Severity != SeverityCritical {
		t.Errorf("expected CRITICAL severity, got %s", result.Exceptions[0].Severity)
	}
}

func TestReconcile_LiteralNullUTR(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("null", 100), pgTx("UNDEFINED", 200)},
		[]*models.BankRecord{bankRec("U1", 100, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 2 {
		t.Fatalf("expected 2 exceptions, got %d", len(result.Exceptions))
	}
	for _, ex := range result.Exceptions {
		if ex.ReasonCode != ReasonUTRMissing {
			t.Errorf("expected UTR_MISSING_OR_INVALID, got %s", ex.ReasonCode)
		}
	}
}

func TestReconcile_DuplicatePGPrecedence(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("U1", 10000), pgTx("u1", 10000)},
		[]*models.BankRecord{bankRec("U1", 10000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 0 {
		t.Fatal("duplicated gateway records must never match")
	}
	if len(result.Exceptions) != 2 {
		t.Fatalf("expected 2 duplicate exceptions, got %d", len(result.Exceptions))
	}
	for _, ex := range result.Exceptions {
		if ex.ReasonCode != ReasonDuplicatePG {
			t.Errorf("expected DUPLICATE_PG_ENTRY, got %s", ex.ReasonCode)
		}
		if !strings.Contains(ex.Detail, "2 times") {
			t.Errorf("detail should state the occurrence count: %s", ex.Detail)
		}
	}

	// The untouched bank record surfaces as the bank-side no-show.
	if len(result.Unmatched) != 1 || result.Unmatched[0].ReasonCode != ReasonBankMissingInPG {
		t.Errorf("expected bank record to be unmatched, got %+v", result.Unmatched)
	}
}

func TestReconcile_DuplicateBankEntries(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("B1", 10000)},
		[]*models.BankRecord{bankRec("B1", 10000, ""), bankRec(" b1 ", 10000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 0 {
		t.Fatal("duplicated bank records must never match")
	}

	var dupCount int
	for _, ex := range result.Exceptions {
		if ex.ReasonCode == ReasonDuplicateBank {
			dupCount++
			if ex.Side != SideBank {
				t.Errorf("bank duplicate should be bank-side, got %s", ex.Side)
			}
		}
	}
	if dupCount != 2 {
		t.Errorf("expected 2 DUPLICATE_BANK_ENTRY exceptions, got %d", dupCount)
	}

	// The gateway record finds no eligible candidate and goes unmatched.
	if len(result.Unmatched) != 1 || result.Unmatched[0].ReasonCode != ReasonPGMissingInBank {
		t.Errorf("expected PG record unmatched, got %+v", result.Unmatched)
	}
}

func TestReconcile_RRNFallbackDefault(t *testing.T) {
	r := newTestReconciler(t, nil)

	tx := pgTx("U9", 10000)
	tx.AlternateReferenceID = "R1"

	result, err := r.Reconcile(
		[]*models.PGTransaction{tx},
		[]*models.BankRecord{bankRec("R1", 10000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(result.Exceptions))
	}
	ex := result.Exceptions[0]
	if ex.ReasonCode != ReasonUTRMismatch {
		t.Errorf("expected UTR_MISMATCH, got %s", ex.ReasonCode)
	}
	if ex.Bank == nil {
		t.Error("UTR_MISMATCH should consume the bank record")
	}
	if len(result.Unmatched) != 0 {
		t.Errorf("consumed bank record must not reappear: %+v", result.Unmatched)
	}
}

func TestReconcile_RRNHeuristicMatchWhenAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowAlternateReferenceMatch = true
	r := newTestReconciler(t, cfg)

	tx := pgTx("U9", 10000)
	tx.AlternateReferenceID = "R1"

	result, err := r.Reconcile(
		[]*models.PGTransaction{tx},
		[]*models.BankRecord{bankRec("R1", 10000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 1 {
		t.Fatalf("expected heuristic match, got %+v", result)
	}
	if result.Matched[0].Tier != TierHeuristic {
		t.Errorf("expected tier HEURISTIC, got %s", result.Matched[0].Tier)
	}
}

func TestReconcile_NoShowCarriesCandidateHint(t *testing.T) {
	r := newTestReconciler(t, nil)

	result, err := r.Reconcile(
		[]*models.PGTransaction{pgTx("U1", 10000)},
		[]*models.BankRecord{bankRec("X1", 10000, testCycle)},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Unmatched) != 2 {
		t.Fatalf("expected both sides unmatched, got %+v", result.Unmatched)
	}
	var pgSide *Unmatched
	for i := range result.Unmatched {
		if result.Unmatched[i].Side == SidePG {
			pgSide = &result.Unmatched[i]
		}
	}
	if pgSide == nil {
		t.Fatal("missing PG-side unmatched entry")
	}
	if !strings.Contains(pgSide.Detail, "transcription error") {
		t.Errorf("expected amount-and-date candidate hint, got: %s", pgSide.Detail)
	}
}

func TestReconcile_ToleranceBoundaries(t *testing.T) {
	r := newTestReconciler(t, nil)

	tests := []struct {
		name      string
		pgAmount  int64
		bankAmt   int64
		wantMatch bool
		reason    ReasonCode
	}{
		// Flat path: tolerance is 100 paise on a 10000 paise amount.
		{"flat at threshold", 10000, 10000 - 100, true, ""},
		{"flat one above", 10000, 10000 - 101, false, ReasonAmountMismatch},
		// Percentage path: 0.1% of 10,00,000 paise is 1000 paise. Deltas in
		// [200,500] belong to the fee band, so probe above it.
		{"percent at threshold", 1000000, 1000000 - 1000, true, ""},
		{"percent one above", 1000000, 1000000 - 1001, false, ReasonAmountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Reconcile(
				[]*models.PGTransaction{pgTx("U1", tt.pgAmount)},
				[]*models.BankRecord{bankRec("U1", tt.bankAmt, "")},
				testCycle,
			)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantMatch {
				if len(result.Matched) != 1 {
					t.Fatalf("expected match, got %+v", result)
				}
				if result.Matched[0].Tier != TierStrong {
					t.Errorf("expected tier STRONG, got %s", result.Matched[0].Tier)
				}
				return
			}
			if len(result.Exceptions) != 1 || result.Exceptions[0].ReasonCode != tt.reason {
				t.Fatalf("expected %s exception, got %+v", tt.reason, result)
			}
		})
	}
}

func TestReconcile_ExplicitFeeExplainsDelta(t *testing.T) {
	r := newTestReconciler(t, nil)

	tx := pgTx("U1", 10000)
	tx.BankFeePaise = int64Ptr(200)
	tx.SettlementAmountPaise = int64Ptr(9800)

	// Raw delta of 200 would otherwise land in the fee band; the explicit fee
	// figures explain it so the pair matches.
	result, err := r.Reconcile(
		[]*models.PGTransaction{tx},
		[]*models.BankRecord{bankRec("U1", 9800, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Matched) != 1 {
		t.Fatalf("expected fee-explained match, got %+v", result)
	}
	if result.Matched[0].Tier != TierStrong {
		t.Errorf("expected tier STRONG, got %s", result.Matched[0].Tier)
	}
}

func TestReconcile_FeeOnlyDerivesSettlement(t *testing.T) {
	r := newTestReconciler(t, nil)

	tx := pgTx("U1", 10000)
	tx.BankFeePaise = int64Ptr(300)

	result, err := r.Reconcile(
		[]*models.PGTransaction{tx},
		[]*models.BankRecord{bankRec("U1", 9700, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matched) != 1 {
		t.Fatalf("expected match with derived settlement amount, got %+v", result)
	}
}

func TestReconcile_FeesVariance(t *testing.T) {
	r := newTestReconciler(t, nil)

	tx := pgTx("U1", 10000)
	tx.BankFeePaise = int64Ptr(200)
	tx.SettlementAmountPaise = int64Ptr(9800)

	// Bank settled 9000: settlement amount disagrees with the bank amount.
	result, err := r.Reconcile(
		[]*models.PGTransaction{tx},
		[]*models.BankRecord{bankRec("U1", 9000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %+v", result)
	}
	ex := result.Exceptions[0]
	if ex.ReasonCode != ReasonFeesVariance {
		t.Errorf("expected FEES_VARIANCE, got %s", ex.ReasonCode)
	}
	if !strings.Contains(ex.Detail, "bank amount") {
		t.Errorf("detail should name the mismatched quantity: %s", ex.Detail)
	}
}

func TestReconcile_InconsistentFeeArithmetic(t *testing.T) {
	r := newTestReconciler(t, nil)

	tx := pgTx("U1", 10000)
	tx.BankFeePaise = int64Ptr(200)
	tx.SettlementAmountPaise = int64Ptr(9000) // 10000-200 != 9000

	result, err := r.Reconcile(
		[]*models.PGTransaction{tx},
		[]*models.BankRecord{bankRec("U1", 9000, "")},
		testCycle,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Exceptions) != 1 || result.Exceptions[0].ReasonCode != ReasonFeesVariance {
		t.Fatalf("expected FEES_VARIANCE for inconsistent fee arithmetic, got %+v", result)
	}
	if !strings.Contains(result.Exceptions[0].Detail, "minus fee") {
		t.Errorf("first failing check should be reported: %s", result.Exceptions[0].Detail)
	}
}

func TestReconcile_StructuralErrors(t *testing.T) {
	r := newTestReconciler(t, nil)

	if _, err := r.Reconcile(nil, []*models.BankRecord{}, testCycle); err == nil {
		t.Error("expected error for nil pg records")
	}
	if _, err := r.Reconcile([]*models.PGTransaction{}, nil, testCycle); err == nil {
		t.Error("expected error for nil bank records")
	}
	if _, err := r.Reconcile([]*models.PGTransaction{}, []*models.BankRecord{}, "15/03/2024"); err == nil {
		t.Error("expected error for invalid cycle date")
	}
	if _, err := r.Reconcile([]*models.PGTransaction{nil}, []*models.BankRecord{}, testCycle); err == nil {
		t.Error("expected error for nil pg record element")
	}

	_, err := r.Reconcile(nil, nil, "")
	if !errors.IsCategory(err, errors.CategoryInput) {
		t.Errorf("structural errors should be input-category, got %v", err)
	}
}

func TestReconcile_Determinism(t *testing.T) {
	r := newTestReconciler(t, nil)

	pg := []*models.PGTransaction{
		pgTx("U1", 10000),
		pgTx("U2", 20000),
		pgTx("", 300),
		pgTx("U4", 9700),
		pgTx("U4", 9700),
		pgTx("U6", 5000),
	}
	bank := []*models.BankRecord{
		bankRec("U1", 10000, testCycle),
		bankRec("U2", 20300, testCycle),
		bankRec("U7", 123, testCycle),
		bankRec("U6", 5001, ""),
	}

	first, err := r.Reconcile(pg, bank, testCycle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Reconcile(pg, bank, testCycle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must produce identical results")
	}
}

// countPartition verifies the partition-completeness invariant: every record
// lands in exactly one bucket.
func countPartition(t *testing.T, result *Result, totalPG, totalBank int) {
	t.Helper()

	pgSeen := len(result.Matched)
	bankSeen := len(result.Matched)

	for _, ex := range result.Exceptions {
		if ex.PG != nil {
			pgSeen++
		}
		if ex.Bank != nil {
			bankSeen++
		}
	}
	for _, u := range result.Unmatched {
		if u.Side == SidePG {
			pgSeen++
		} else {
			bankSeen++
		}
	}

	if pgSeen != totalPG {
		t.Errorf("pg partition incomplete: %d records accounted for, want %d", pgSeen, totalPG)
	}
	if bankSeen != totalBank {
		t.Errorf("bank partition incomplete: %d records accounted for, want %d", bankSeen, totalBank)
	}
}

func TestReconcile_PartitionCompleteness(t *testing.T) {
	r := newTestReconciler(t, nil)

	pg := []*models.PGTransaction{
		pgTx("U1", 10000),  // exact match
		pgTx("U2", 20000),  // fee band exception
		pgTx("", 300),      // missing UTR
		pgTx("DUP", 100),   // pg duplicate
		pgTx("DUP", 100),   // pg duplicate
		pgTx("GONE", 5000), // no bank counterpart
	}
	bank := []*models.BankRecord{
		bankRec("U1", 10000, testCycle),
		bankRec("U2", 20300, testCycle),
		bankRec("BDUP", 50, ""), // bank duplicate
		bankRec("BDUP", 50, ""), // bank duplicate
		bankRec("EXTRA", 999, ""),
	}

	result, err := r.Reconcile(pg, bank, testCycle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	countPartition(t, result, len(pg), len(bank))

	if result.Stats.TotalPG != len(pg) || result.Stats.TotalBank != len(bank) {
		t.Errorf("unexpected totals: %+v", result.Stats)
	}
}

func TestReconcile_StatsAndTopReasons(t *testing.T) {
	r := newTestReconciler(t, nil)

	pg := []*models.PGTransaction{
		pgTx("U1", 10000), // match
		pgTx("U2", 20000), // fee band
		pgTx("U3", 30000), // fee band
		pgTx("", 1),       // missing UTR
		pgTx("GONE", 2),   // unmatched
		pgTx("GONE2", 3),  // unmatched
	}
	bank := []*models.BankRecord{
		bankRec("U1", 10000, ""),
		bankRec("U2", 20300, ""),
		bankRec("U3", 30300, ""),
	}

	result, err := r.Reconcile(pg, bank, testCycle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1 of 6 matched.
	if result.Stats.MatchRatePct != 16.67 {
		t.Errorf("expected match rate 16.67, got %v", result.Stats.MatchRatePct)
	}

	// 5 problem records: 2x FEE_MISMATCH, 2x PG_TXN_MISSING_IN_BANK,
	// 1x UTR_MISSING_OR_INVALID. Ties break alphabetically on the code.
	if len(result.TopReasons) != 3 {
		t.Fatalf("expected 3 top reasons, got %+v", result.TopReasons)
	}
	if result.TopReasons[0].Code != ReasonFeeMismatch || result.TopReasons[0].Count != 2 {
		t.Errorf("unexpected first reason: %+v", result.TopReasons[0])
	}
	if result.TopReasons[1].Code != ReasonPGMissingInBank {
		t.Errorf("unexpected second reason: %+v", result.TopReasons[1])
	}
	if result.TopReasons[0].Percent != 40 {
		t.Errorf("expected 40%%, got %v", result.TopReasons[0].Percent)
	}
	if result.TopReasons[2].Percent != 20 {
		t.Errorf("expected 20%%, got %v", result.TopReasons[2].Percent)
	}
}

func TestReconcile_TopReasonsLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopReasonsLimit = 2
	r := newTestReconciler(t, cfg)

	pg := []*models.PGTransaction{
		pgTx("U2", 20000), // fee band
		pgTx("", 1),       // missing UTR
		pgTx("GONE", 2),   // unmatched
	}
	bank := []*models.BankRecord{bankRec("U2", 20300, "")}

	result, err := r.Reconcile(pg, bank, testCycle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.TopReasons) != 2 {
		t.Errorf("expected top reasons capped at 2, got %d", len(result.TopReasons))
	}
}

func TestNewReconciler_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DateWindowDays = -1

	_, err := NewReconciler(cfg, nil)
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if !errors.IsCategory(err, errors.CategoryConfiguration) {
		t.Errorf("expected configuration category, got %v", err)
	}
}

func TestReconciler_ConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	r := newTestReconciler(t, cfg)

	cfg.DateWindowDays = 99
	if r.Config().DateWindowDays == 99 {
		t.Error("reconciler must clone its configuration")
	}

	got := r.Config()
	got.TopReasonsLimit = 1
	if r.Config().TopReasonsLimit == 1 {
		t.Error("Config() must return a copy")
	}
}
