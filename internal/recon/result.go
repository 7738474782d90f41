package recon

import (
	"payment-recon-service/internal/models"
)

// MatchTier grades how a matched pair was established.
type MatchTier string

const (
	// TierExact means identity and amount agreed exactly inside the window.
	TierExact MatchTier = "EXACT"

	// TierStrong means the pair agreed within tolerance or the difference is
	// fully explained by reported fees.
	TierStrong MatchTier = "STRONG"

	// TierHeuristic means the pair was joined via the alternate reference
	// (RRN) only. Emitted only when the engine is configured to allow
	// alternate-reference matches.
	TierHeuristic MatchTier = "HEURISTIC"
)

// Side tags which source a one-sided record came from.
type Side string

const (
	SidePG   Side = "PG"
	SideBank Side = "BANK"
)

// Match is a reconciled pair of gateway and bank records. Tier and
// MatchedFields are informational metadata for the dashboard; nothing
// downstream branches on them.
type Match struct {
	PG               *models.PGTransaction `json:"pg_transaction"`
	Bank             *models.BankRecord    `json:"bank_record"`
	Tier             MatchTier             `json:"tier"`
	MatchedFields    []string              `json:"matched_fields"`
	AmountDeltaPaise int64                 `json:"amount_delta_paise"`
}

// Exception is a record (or pair) that triggered a specific classification
// rule. Exactly one of PG/Bank may be nil for one-sided exceptions.
type Exception struct {
	PG             *models.PGTransaction `json:"pg_transaction,omitempty"`
	Bank           *models.BankRecord    `json:"bank_record,omitempty"`
	Side           Side                  `json:"side"`
	ReasonCode     ReasonCode            `json:"reason_code"`
	Severity       Severity              `json:"severity"`
	Detail         string                `json:"detail"`
	ResolutionHint string                `json:"resolution_hint"`
}

// Unmatched is a one-sided record for which no rule fired: the normal
// no-show case rather than a detected problem.
type Unmatched struct {
	PG         *models.PGTransaction `json:"pg_transaction,omitempty"`
	Bank       *models.BankRecord    `json:"bank_record,omitempty"`
	Side       Side                  `json:"side"`
	ReasonCode ReasonCode            `json:"reason_code"`
	Detail     string                `json:"detail,omitempty"`
}

// Stats aggregates counts over one reconciliation run.
type Stats struct {
	TotalPG       int     `json:"total_pg"`
	TotalBank     int     `json:"total_bank"`
	Matched       int     `json:"matched"`
	UnmatchedPG   int     `json:"unmatched_pg"`
	UnmatchedBank int     `json:"unmatched_bank"`
	Exceptions    int     `json:"exceptions"`
	MatchRatePct  float64 `json:"match_rate_pct"`

	// ReasonCounts is the histogram over exceptions and unmatched records.
	ReasonCounts map[ReasonCode]int `json:"reason_counts"`
}

// TopReason is one entry of the most-frequent-reasons summary.
type TopReason struct {
	Code    ReasonCode `json:"code"`
	Count   int        `json:"count"`
	Percent float64    `json:"percent"`
}

// Result is the complete outcome of reconciling one settlement cycle. It is
// created fresh per Reconcile call and never mutated after return.
//
// Partition invariant: every gateway record appears in exactly one of
// Matched, Exceptions (PG side), or Unmatched (PG side); every bank record
// in exactly one of Matched, Exceptions (bank side), or Unmatched (bank
// side).
type Result struct {
	CycleDate  string      `json:"cycle_date"`
	Matched    []Match     `json:"matched"`
	Exceptions []Exception `json:"exceptions"`
	Unmatched  []Unmatched `json:"unmatched"`
	Stats      Stats       `json:"stats"`
	TopReasons []TopReason `json:"top_reasons"`
}
