package recon

// ReasonCode identifies why a record failed to reconcile cleanly. The set is
// closed: the dashboard and the persistence schema both key off these values.
type ReasonCode string

const (
	// ReasonBankFileMissing is raised for every gateway record when the cycle
	// has no bank records at all.
	ReasonBankFileMissing ReasonCode = "BANK_FILE_MISSING"

	// ReasonUTRMissing is raised when a gateway record carries no usable UTR.
	ReasonUTRMissing ReasonCode = "UTR_MISSING_OR_INVALID"

	// ReasonUTRMismatch is raised when the bank statement row was located via
	// the RRN rather than the UTR, a format disagreement rather than a data
	// error.
	ReasonUTRMismatch ReasonCode = "UTR_MISMATCH"

	// ReasonDuplicatePG is raised once per gateway record whose UTR occurs
	// more than once in the gateway file.
	ReasonDuplicatePG ReasonCode = "DUPLICATE_PG_ENTRY"

	// ReasonDuplicateBank is raised once per bank record whose UTR occurs
	// more than once in the bank statement.
	ReasonDuplicateBank ReasonCode = "DUPLICATE_BANK_ENTRY"

	// ReasonDateOutOfWindow is raised when capture and settlement dates are
	// further apart than the configured settlement window.
	ReasonDateOutOfWindow ReasonCode = "DATE_OUT_OF_WINDOW"

	// ReasonFeesVariance is raised when the gateway's explicit fee figures
	// are internally inconsistent with the bank amount.
	ReasonFeesVariance ReasonCode = "FEES_VARIANCE"

	// ReasonRoundingError is raised when amounts differ by exactly the
	// rounding band (one paisa by default).
	ReasonRoundingError ReasonCode = "ROUNDING_ERROR"

	// ReasonFeeMismatch is raised when the delta sits in the typical
	// processor-fee band with no fee reported by the gateway.
	ReasonFeeMismatch ReasonCode = "FEE_MISMATCH"

	// ReasonAmountMismatch is raised when amounts disagree beyond every band
	// and the generic tolerance.
	ReasonAmountMismatch ReasonCode = "AMOUNT_MISMATCH"

	// ReasonPGMissingInBank tags a gateway record with no bank counterpart.
	ReasonPGMissingInBank ReasonCode = "PG_TXN_MISSING_IN_BANK"

	// ReasonBankMissingInPG tags a bank record with no gateway counterpart.
	ReasonBankMissingInPG ReasonCode = "BANK_TXN_MISSING_IN_PG"
)

// Severity grades how urgently an ops operator should look at an exception.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// ReasonInfo carries the fixed display metadata for a reason code.
type ReasonInfo struct {
	Severity       Severity
	ResolutionHint string
}

// reasonTable is the closed severity and resolution-hint mapping. It is
// package-level immutable data; nothing mutates it after init.
var reasonTable = map[ReasonCode]ReasonInfo{
	ReasonBankFileMissing: {
		Severity:       SeverityCritical,
		ResolutionHint: "Upload or re-fetch the bank statement file for this cycle.",
	},
	ReasonUTRMissing: {
		Severity:       SeverityCritical,
		ResolutionHint: "Chase the gateway for the missing UTR or repair the export.",
	},
	ReasonUTRMismatch: {
		Severity:       SeverityMedium,
		ResolutionHint: "Verify whether the bank reported the RRN in place of the UTR.",
	},
	ReasonDuplicatePG: {
		Severity:       SeverityHigh,
		ResolutionHint: "Void the duplicated gateway entries and re-run the cycle.",
	},
	ReasonDuplicateBank: {
		Severity:       SeverityHigh,
		ResolutionHint: "Ask the bank which statement row is authoritative.",
	},
	ReasonDateOutOfWindow: {
		Severity:       SeverityMedium,
		ResolutionHint: "Check for settlement holidays or delayed clearing.",
	},
	ReasonFeesVariance: {
		Severity:       SeverityHigh,
		ResolutionHint: "Compare the gateway fee schedule against the bank deduction.",
	},
	ReasonRoundingError: {
		Severity:       SeverityLow,
		ResolutionHint: "Accept after verifying the paisa-level rounding difference.",
	},
	ReasonFeeMismatch: {
		Severity:       SeverityMedium,
		ResolutionHint: "Confirm whether an undisclosed processor fee was deducted.",
	},
	ReasonAmountMismatch: {
		Severity:       SeverityHigh,
		ResolutionHint: "Escalate to the bank; the settled amount disagrees beyond tolerance.",
	},
	ReasonPGMissingInBank: {
		Severity:       SeverityHigh,
		ResolutionHint: "Wait for the next cycle's statement; raise with the bank if it persists.",
	},
	ReasonBankMissingInPG: {
		Severity:       SeverityHigh,
		ResolutionHint: "Check for gateway capture failures or late-voided transactions.",
	},
}

// Info returns the fixed metadata for the reason code. Unknown codes map to
// a HIGH severity with no hint so a partial table can never panic a caller.
func (rc ReasonCode) Info() ReasonInfo {
	if info, ok := reasonTable[rc]; ok {
		return info
	}
	return ReasonInfo{Severity: SeverityHigh}
}

// Severity returns the fixed severity for the reason code.
func (rc ReasonCode) Severity() Severity {
	return rc.Info().Severity
}

// String returns the string representation of ReasonCode
func (rc ReasonCode) String() string {
	return string(rc)
}

// AllReasonCodes returns every code in the closed set, in display order.
func AllReasonCodes() []ReasonCode {
	return []ReasonCode{
		ReasonBankFileMissing,
		ReasonUTRMissing,
		ReasonUTRMismatch,
		ReasonDuplicatePG,
		ReasonDuplicateBank,
		ReasonDateOutOfWindow,
		ReasonFeesVariance,
		ReasonRoundingError,
		ReasonFeeMismatch,
		ReasonAmountMismatch,
		ReasonPGMissingInBank,
		ReasonBankMissingInPG,
	}
}
