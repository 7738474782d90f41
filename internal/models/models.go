// Package models defines the record types exchanged between the ingest layer,
// the reconciliation engine, and the settlement calculator.
//
// Records reach the engine already normalized: amounts as integer paise,
// reference codes trimmed and upper-cased, dates parsed where possible.
// Normalization happens once here at the boundary; the matching rules never
// re-clean their inputs.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PGTransaction represents a payment-gateway transaction record for one
// settlement cycle. ReferenceID (the UTR) is the identity used for matching;
// a record with a blank UTR can never be reference-matched and is classified
// by the engine instead of rejected here.
type PGTransaction struct {
	ReferenceID          string     `json:"utr" csv:"utr"`
	AlternateReferenceID string     `json:"rrn,omitempty" csv:"rrn"`
	AmountPaise          int64      `json:"amount_paise" csv:"amount_paise"`
	CapturedAt           *time.Time `json:"captured_at,omitempty" csv:"captured_at"`
	Status               string     `json:"status,omitempty" csv:"status"`
	MerchantID           string     `json:"merchant_id,omitempty" csv:"merchant_id"`

	// BankFeePaise is the fee explicitly reported by the gateway, when any.
	BankFeePaise *int64 `json:"bank_fee_paise,omitempty" csv:"bank_fee_paise"`

	// SettlementAmountPaise is the net amount the gateway expects to settle
	// after fees, when reported.
	SettlementAmountPaise *int64 `json:"settlement_amount_paise,omitempty" csv:"settlement_amount_paise"`
}

// BankRecord represents one row of a bank settlement statement.
type BankRecord struct {
	ReferenceID     string     `json:"utr" csv:"utr"`
	AmountPaise     int64      `json:"amount_paise" csv:"amount_paise"`
	TransactionDate *time.Time `json:"transaction_date,omitempty" csv:"transaction_date"`
	Status          string     `json:"status,omitempty" csv:"status"`
}

// NormalizedUTR returns the matching key for the transaction.
func (t *PGTransaction) NormalizedUTR() string {
	return NormalizeUTR(t.ReferenceID)
}

// NormalizedRRN returns the alternate matching key for the transaction.
func (t *PGTransaction) NormalizedRRN() string {
	return NormalizeUTR(t.AlternateReferenceID)
}

// HasFeeData reports whether the gateway supplied explicit fee or settlement
// figures for this transaction.
func (t *PGTransaction) HasFeeData() bool {
	return t.BankFeePaise != nil || t.SettlementAmountPaise != nil
}

// Validate performs boundary validation on the PGTransaction
func (t *PGTransaction) Validate() error {
	if t.AmountPaise < 0 {
		return fmt.Errorf("transaction amount cannot be negative: %d", t.AmountPaise)
	}
	if t.BankFeePaise != nil && *t.BankFeePaise < 0 {
		return fmt.Errorf("bank fee cannot be negative: %d", *t.BankFeePaise)
	}
	return nil
}

// String returns a string representation of the PGTransaction
func (t *PGTransaction) String() string {
	captured := "unknown"
	if t.CapturedAt != nil {
		captured = t.CapturedAt.Format("2006-01-02")
	}
	return fmt.Sprintf("PGTransaction{UTR: %s, Amount: %d, CapturedAt: %s}",
		t.ReferenceID, t.AmountPaise, captured)
}

// NormalizedUTR returns the matching key for the bank record.
func (b *BankRecord) NormalizedUTR() string {
	return NormalizeUTR(b.ReferenceID)
}

// Validate performs boundary validation on the BankRecord
func (b *BankRecord) Validate() error {
	if b.AmountPaise < 0 {
		return fmt.Errorf("bank record amount cannot be negative: %d", b.AmountPaise)
	}
	return nil
}

// String returns a string representation of the BankRecord
func (b *BankRecord) String() string {
	date := "unknown"
	if b.TransactionDate != nil {
		date = b.TransactionDate.Format("2006-01-02")
	}
	return fmt.Sprintf("BankRecord{UTR: %s, Amount: %d, Date: %s}",
		b.ReferenceID, b.AmountPaise, date)
}

// NormalizeUTR cleans a reference code into its canonical matching form:
// surrounding whitespace removed, upper-cased.
func NormalizeUTR(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// IsMissingUTR reports whether a reference code is effectively absent.
// Upstream exports sometimes serialize missing references as the literal
// strings "null" or "undefined"; those count as missing too.
func IsMissingUTR(ref string) bool {
	switch NormalizeUTR(ref) {
	case "", "NULL", "UNDEFINED":
		return true
	}
	return false
}

// ParsePaise parses a human-entered amount string into integer paise.
// Accepts major-unit decimals ("105.50"), currency symbols, and thousand
// separators. Sub-paisa inputs round half away from zero.
func ParsePaise(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount string cannot be empty")
	}

	for _, junk := range []string{"₹", "Rs.", "Rs", "INR", ",", " "} {
		s = strings.ReplaceAll(s, junk, "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// ParseCycleDate parses a settlement cycle date in YYYY-MM-DD form.
func ParseCycleDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cycle date '%s': %w", s, err)
	}
	return t, nil
}

// ParseTimeWithFormats attempts to parse a timestamp using the formats seen
// across gateway exports and bank statement files.
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006",
		"02-01-2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// DayDelta returns the absolute difference between two timestamps in whole
// days, comparing calendar dates rather than elapsed hours so that a payment
// captured at 23:59 and settled at 00:05 the next day counts as one day apart.
func DayDelta(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
