package recon

import (
	"time"

	"payment-recon-service/internal/models"
)

// bankIndex provides O(1) candidate lookup over the bank record set for one
// reconciliation run. Every record gets a stable arena position at build
// time; consumption is tracked in a used bitset and the source slice is
// never mutated, so lookups stay valid for the whole run.
type bankIndex struct {
	records []*models.BankRecord
	used    []bool
	dup     []bool

	byUTR    map[string][]int
	byAmount map[int64][]int
	byDate   map[string][]int
}

// newBankIndex builds the index. Records whose UTR is in dupKeys are kept in
// the arena (so arena positions line up with the input slice) but excluded
// from all lookup maps; they are reported as duplicate exceptions, never
// matched.
func newBankIndex(records []*models.BankRecord, dupKeys map[string]int) *bankIndex {
	bi := &bankIndex{
		records:  records,
		used:     make([]bool, len(records)),
		dup:      make([]bool, len(records)),
		byUTR:    make(map[string][]int),
		byAmount: make(map[int64][]int),
		byDate:   make(map[string][]int),
	}

	for i, rec := range records {
		key := rec.NormalizedUTR()
		if _, isDup := dupKeys[key]; isDup {
			bi.dup[i] = true
			continue
		}

		if !models.IsMissingUTR(key) {
			bi.byUTR[key] = append(bi.byUTR[key], i)
		}
		bi.byAmount[rec.AmountPaise] = append(bi.byAmount[rec.AmountPaise], i)
		if rec.TransactionDate != nil {
			dateKey := rec.TransactionDate.Format("2006-01-02")
			bi.byDate[dateKey] = append(bi.byDate[dateKey], i)
		}
	}

	return bi
}

// firstAvailableByUTR returns the arena position of the first unconsumed
// bank record with the given normalized reference, or -1.
func (bi *bankIndex) firstAvailableByUTR(key string) int {
	for _, i := range bi.byUTR[key] {
		if !bi.used[i] {
			return i
		}
	}
	return -1
}

// availableByAmount returns the arena positions of unconsumed bank records
// carrying exactly the given amount, in statement order.
func (bi *bankIndex) availableByAmount(amountPaise int64) []int {
	var out []int
	for _, i := range bi.byAmount[amountPaise] {
		if !bi.used[i] {
			out = append(out, i)
		}
	}
	return out
}

// availableOnDate returns the arena positions of unconsumed bank records
// dated on the given calendar day, in statement order.
func (bi *bankIndex) availableOnDate(day time.Time) []int {
	var out []int
	for _, i := range bi.byDate[day.Format("2006-01-02")] {
		if !bi.used[i] {
			out = append(out, i)
		}
	}
	return out
}

// consume marks a bank record as taken by a match or an exception.
func (bi *bankIndex) consume(i int) {
	bi.used[i] = true
}

// record returns the bank record at an arena position.
func (bi *bankIndex) record(i int) *models.BankRecord {
	return bi.records[i]
}

// isDuplicate reports whether the record at an arena position belongs to a
// bank-side duplicate group.
func (bi *bankIndex) isDuplicate(i int) bool {
	return bi.dup[i]
}

// isUsed reports whether the record at an arena position was consumed.
func (bi *bankIndex) isUsed(i int) bool {
	return bi.used[i]
}
