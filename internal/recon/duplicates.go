package recon

import (
	"payment-recon-service/internal/models"
)

// duplicateKeyCounts counts normalized reference keys and keeps only those
// occurring more than once. Missing keys are excluded: a blank UTR is a
// missing-identity problem for the classifier, not a duplicate.
func duplicateKeyCounts(keys []string) map[string]int {
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		if models.IsMissingUTR(k) {
			continue
		}
		counts[models.NormalizeUTR(k)]++
	}

	for k, n := range counts {
		if n < 2 {
			delete(counts, k)
		}
	}
	return counts
}

// pgDuplicates returns the duplicated UTR counts for the gateway side.
func pgDuplicates(records []*models.PGTransaction) map[string]int {
	keys := make([]string, len(records))
	for i, tx := range records {
		keys[i] = tx.ReferenceID
	}
	return duplicateKeyCounts(keys)
}

// bankDuplicates returns the duplicated UTR counts for the bank side.
func bankDuplicates(records []*models.BankRecord) map[string]int {
	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = rec.ReferenceID
	}
	return duplicateKeyCounts(keys)
}
