// Package ledger extracts invoice and identity ids from the free-text
// descriptions of accounting ledger lines.
//
// The description format is owned by the accounting system and has changed
// over time, so extraction goes through the Extractor interface. Named
// dialects cover the known formats and custom patterns can be configured.
//
// Example usage:
//
//	ex, err := ledger.Build(ledger.Config{Dialects: []string{"fe-prefixed", "standard"}})
//	invoice, identity, ok := ex.Extract("FV-001-FE 9876 12345678")
//	// invoice == "9876", identity == "12345678", ok == true
package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

// Extractor pulls an invoice id and an identity id out of a description
type Extractor interface {
	Extract(text string) (invoiceID, identityID string, ok bool)
}

var hyphenSpace = regexp.MustCompile(`-\s+`)

// NormalizeDescription collapses every hyphen followed by whitespace into a
// single hyphen, so "FV-1- 10 20" reads as "FV-1-10 20".
func NormalizeDescription(text string) string {
	return hyphenSpace.ReplaceAllString(text, "-")
}

// RegexExtractor matches descriptions against one pattern. The pattern has
// either named groups "invoice" and "identity" or at least two groups, the
// first being the invoice and the second the identity.
type RegexExtractor struct {
	name          string
	pattern       *regexp.Regexp
	invoiceGroup  int
	identityGroup int
	prefixes      []string
}

// NewRegexExtractor compiles pattern. Prefixes are stripped from the
// extracted invoice id.
func NewRegexExtractor(name, pattern string, prefixes ...string) (*RegexExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern for %s: %w", name, err)
	}

	invoice := re.SubexpIndex("invoice")
	identity := re.SubexpIndex("identity")
	if (invoice < 0) != (identity < 0) {
		return nil, fmt.Errorf("pattern for %s names only one of the groups invoice and identity", name)
	}
	if invoice < 0 {
		if re.NumSubexp() < 2 {
			return nil, fmt.Errorf("pattern for %s needs two capture groups, has %d", name, re.NumSubexp())
		}
		invoice, identity = 1, 2
	}

	return &RegexExtractor{
		name:          name,
		pattern:       re,
		invoiceGroup:  invoice,
		identityGroup: identity,
		prefixes:      prefixes,
	}, nil
}

// Name returns the dialect or pattern name
func (r *RegexExtractor) Name() string {
	return r.name
}

// Pattern returns the source of the compiled pattern
func (r *RegexExtractor) Pattern() string {
	return r.pattern.String()
}

// Extract implements Extractor
func (r *RegexExtractor) Extract(text string) (string, string, bool) {
	m := r.pattern.FindStringSubmatch(NormalizeDescription(text))
	if m == nil {
		return "", "", false
	}
	invoice := StripInvoicePrefixes(m[r.invoiceGroup], r.prefixes)
	identity := strings.TrimSpace(m[r.identityGroup])
	return invoice, identity, true
}

// Chain tries each extractor in order; the first match wins
type Chain []Extractor

// Extract implements Extractor
func (c Chain) Extract(text string) (string, string, bool) {
	for _, ex := range c {
		if invoice, identity, ok := ex.Extract(text); ok {
			return invoice, identity, true
		}
	}
	return "", "", false
}

// StripInvoicePrefixes removes the first matching prefix from an invoice id.
// Matching ignores case and the prefix's own trailing space, so "FE " also
// strips "FE123" and "fe 123".
func StripInvoicePrefixes(invoice string, prefixes []string) string {
	invoice = strings.TrimSpace(invoice)
	for _, prefix := range prefixes {
		p := strings.TrimSpace(prefix)
		if p == "" || len(invoice) < len(p) {
			continue
		}
		if strings.EqualFold(invoice[:len(p)], p) {
			return strings.TrimSpace(invoice[len(p):])
		}
	}
	return invoice
}
