package ledger

import (
	"fmt"

	"recaudo-reconciliation-service/internal/models"
)

// Stats summarizes one extraction pass
type Stats struct {
	Total     int      `json:"total"`
	Matched   int      `json:"matched"`
	Unmatched int      `json:"unmatched"`
	Samples   []string `json:"samples,omitempty"`
}

// String returns a human-readable summary
func (s *Stats) String() string {
	return fmt.Sprintf("%d ledger lines, %d matched, %d unmatched", s.Total, s.Matched, s.Unmatched)
}

// Parse fills the extracted ids of a copy of entries. Entries whose
// description does not match keep empty ids and stay in the result.
// Up to maxSamples unmatched descriptions are kept in the stats.
func Parse(entries []models.LedgerEntry, ex Extractor, maxSamples int) ([]models.LedgerEntry, *Stats) {
	out := make([]models.LedgerEntry, len(entries))
	stats := &Stats{Total: len(entries)}

	for i, entry := range entries {
		invoice, identity, ok := ex.Extract(entry.Description)
		if ok {
			entry.ExtractedInvoiceID = invoice
			entry.ExtractedIdentityID = identity
			stats.Matched++
		} else {
			entry.ExtractedInvoiceID = ""
			entry.ExtractedIdentityID = ""
			stats.Unmatched++
			if len(stats.Samples) < maxSamples {
				stats.Samples = append(stats.Samples, entry.Description)
			}
		}
		out[i] = entry
	}
	return out, stats
}
