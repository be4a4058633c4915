package reconciler

import (
	"fmt"
	"strings"
)

// AccumulationMode decides how new rows meet the historical ledger
type AccumulationMode string

const (
	// ModeAppend prepends every new row and keeps history untouched
	ModeAppend AccumulationMode = "append"
	// ModeUpsert drops history rows whose service order is in the new batch
	ModeUpsert AccumulationMode = "upsert"
)

// IsValid reports whether the mode is known
func (m AccumulationMode) IsValid() bool {
	return m == ModeAppend || m == ModeUpsert
}

// AccumulationConfig controls the historical ledger update
type AccumulationConfig struct {
	Mode AccumulationMode `json:"mode" mapstructure:"mode"`
	// PaymentMethod is written to MEDIO DE PAGO on every new row
	PaymentMethod string `json:"payment_method" mapstructure:"payment_method"`
}

// Config holds the settings of a Recaudo run
type Config struct {
	// InvoicePrefixes are removed from order invoice ids in the unified table
	InvoicePrefixes []string           `json:"invoice_prefixes"`
	Accumulation    AccumulationConfig `json:"accumulation"`
	// CarteraFill replaces empty cells in the Cartera export
	CarteraFill string `json:"cartera_fill"`
	// MaxIssueSamples bounds the cell issues kept for reporting
	MaxIssueSamples int `json:"max_issue_samples"`
	// MaxUnmatchedSamples bounds the unmatched ledger descriptions kept
	MaxUnmatchedSamples int `json:"max_unmatched_samples"`
}

// DefaultConfig returns the settings matching the collection workflow
func DefaultConfig() *Config {
	return &Config{
		InvoicePrefixes: []string{"FE "},
		Accumulation: AccumulationConfig{
			Mode:          ModeAppend,
			PaymentMethod: "EFECTY",
		},
		CarteraFill:         "NA",
		MaxIssueSamples:     20,
		MaxUnmatchedSamples: 5,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if !c.Accumulation.Mode.IsValid() {
		return fmt.Errorf("invalid accumulation mode %q: must be %s or %s", c.Accumulation.Mode, ModeAppend, ModeUpsert)
	}
	if strings.TrimSpace(c.Accumulation.PaymentMethod) == "" {
		return fmt.Errorf("payment method cannot be empty")
	}
	if c.MaxIssueSamples < 0 {
		return fmt.Errorf("max issue samples cannot be negative")
	}
	if c.MaxUnmatchedSamples < 0 {
		return fmt.Errorf("max unmatched samples cannot be negative")
	}
	return nil
}
