package ledger

import (
	"fmt"
	"sort"
	"strings"

	"recaudo-reconciliation-service/pkg/errors"
)

// Built-in dialect names
const (
	DialectStandard   = "standard"
	DialectFEPrefixed = "fe-prefixed"
)

type dialect struct {
	pattern  string
	prefixes []string
}

var dialects = map[string]dialect{
	// FV-<seq>-<invoice> <identity>
	DialectStandard: {pattern: `^FV-\d+-(\d+)\s+(\d+)`},
	// FV-<seq>-FE <invoice> <identity>, the electronic invoice export
	DialectFEPrefixed: {pattern: `^FV-\d+-((?:FE\s*)?\d+)\s+(\d+)`, prefixes: []string{"FE "}},
}

// Dialects lists the built-in dialect names
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dialect returns the extractor for a built-in dialect
func Dialect(name string) (*RegexExtractor, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown ledger dialect %q (known: %s)", name, strings.Join(Dialects(), ", "))
	}
	return NewRegexExtractor(name, d.pattern, d.prefixes...)
}

// Config selects the extractors used for a run
type Config struct {
	// Dialects are tried first, in order
	Dialects []string `mapstructure:"dialects"`
	// Patterns are custom regular expressions tried after the dialects
	Patterns []string `mapstructure:"patterns"`
	// InvoicePrefixes are stripped from invoices matched by custom patterns
	InvoicePrefixes []string `mapstructure:"invoice_prefixes"`
}

// DefaultConfig accepts both the plain and the FE-prefixed exports
func DefaultConfig() Config {
	return Config{
		Dialects:        []string{DialectStandard, DialectFEPrefixed},
		InvoicePrefixes: []string{"FE "},
	}
}

// Build compiles cfg into a single extractor. With nothing configured the
// standard dialect is used.
func Build(cfg Config) (Extractor, error) {
	var chain Chain

	for _, name := range cfg.Dialects {
		ex, err := Dialect(name)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.dialects", name, err).
				WithSuggestion(fmt.Sprintf("use one of: %s", strings.Join(Dialects(), ", ")))
		}
		chain = append(chain, ex)
	}

	for i, pattern := range cfg.Patterns {
		ex, err := NewRegexExtractor(fmt.Sprintf("pattern-%d", i+1), pattern, cfg.InvoicePrefixes...)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.patterns", pattern, err).
				WithSuggestion("use a valid regular expression with two capture groups or named groups invoice and identity")
		}
		chain = append(chain, ex)
	}

	switch len(chain) {
	case 0:
		ex, err := Dialect(DialectStandard)
		if err != nil {
			return nil, err
		}
		return ex, nil
	case 1:
		return chain[0], nil
	default:
		return chain, nil
	}
}
