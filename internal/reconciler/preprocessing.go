package reconciler

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"recaudo-reconciliation-service/internal/ledger"
	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/parsers"
)

// StripDiacritics removes combining marks, so "Núñez" becomes "Nunez"
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FullName joins the name parts after stripping diacritics from each one.
// Empty parts are skipped and runs of whitespace collapse to one space.
func FullName(first, last1, last2 string) string {
	var parts []string
	for _, part := range []string{first, last1, last2} {
		part = strings.Join(strings.Fields(StripDiacritics(part)), " ")
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// hasNameColumns reports whether the order batch carries every name part
func hasNameColumns(columns models.ColumnSet) bool {
	return len(columns.Missing(models.NameColumns...)) == 0
}

// cleanInvoices strips the configured prefixes from order invoice ids
func cleanInvoices(records []models.UnifiedRecord, prefixes []string) {
	if len(prefixes) == 0 {
		return
	}
	for i := range records {
		records[i].Order.InvoiceID = ledger.StripInvoicePrefixes(records[i].Order.InvoiceID, prefixes)
	}
}

// deriveDates fills the parsed date, year and month of each record and
// returns how many dates could not be parsed.
func deriveDates(records []models.UnifiedRecord) int {
	unparsed := 0
	for i := range records {
		rec := &records[i]
		date, err := parsers.ParseDate(rec.Settlement.Date)
		if err != nil {
			rec.ParsedDate = nil
			rec.Year = 0
			rec.Month = ""
			unparsed++
			continue
		}
		rec.ParsedDate = &date
		rec.Year = date.Year()
		rec.Month = models.MonthName(date.Month())
	}
	return unparsed
}
