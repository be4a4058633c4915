// Package reporter presents and exports the results of Recaudo runs.
//
// Results are shown on the console or as JSON, and written as workbooks:
//   - the unified table and the discrepancy summary
//   - the accumulated ledger used as the next run's history
//   - the settlement-order table when a run halts after the first join
//   - the processed portfolio, as xlsx and csv
//
// Example usage:
//
//	presenter, err := reporter.NewPresenter(reporter.DefaultReportConfig())
//	err = presenter.Present(os.Stdout, result)
//
//	exporter, err := reporter.NewWorkbookExporter(
//		reporter.NewFileDownloader(afero.NewOsFs(), "out", log), nil, log)
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"recaudo-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported console output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for presenting results
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`
	// PreviewRows bounds the unified rows printed on the console
	PreviewRows int `json:"preview_rows" mapstructure:"preview_rows"`
	// MaxViewRows bounds the rows printed per discrepancy table
	MaxViewRows int `json:"max_view_rows" mapstructure:"max_view_rows"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:      FormatConsole,
		PreviewRows: 10,
		MaxViewRows: 20,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.PreviewRows < 0 || c.MaxViewRows < 0 {
		return fmt.Errorf("row limits cannot be negative")
	}
	return nil
}

// Presenter writes run results for people to read
type Presenter struct {
	config *ReportConfig
}

// NewPresenter creates a presenter with the specified configuration
func NewPresenter(config *ReportConfig) (*Presenter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &Presenter{config: config}, nil
}

// Present writes a Recaudo run result, including halted runs
func (p *Presenter) Present(w io.Writer, result *reconciler.RunResult) error {
	if result == nil {
		return fmt.Errorf("run result cannot be nil")
	}
	if p.config.Format == FormatJSON {
		return p.writeJSON(w, result)
	}

	fmt.Fprintf(w, "RECAUDO RECONCILIATION\n")
	fmt.Fprintf(w, "Run:      %s\n", result.RunID)
	fmt.Fprintf(w, "State:    %s\n", result.State)
	fmt.Fprintf(w, "Duration: %v\n\n", result.Duration())

	fmt.Fprintf(w, "=== INPUTS ===\n")
	p.printInputs(w, result)
	fmt.Fprintf(w, "\n")

	if result.Halt != nil {
		fmt.Fprintf(w, "=== HALTED ===\n")
		fmt.Fprintf(w, "%s\n", result.Halt.Message)
		if result.Halt.Suggestion != "" {
			fmt.Fprintf(w, "Suggestion: %s\n", result.Halt.Suggestion)
		}
		if result.Join != nil && result.Join.Partial != nil {
			fmt.Fprintf(w, "Partial rows available: %d\n", result.Join.Partial.Len())
		}
		return nil
	}

	if result.Join != nil && result.Join.Unified != nil {
		fmt.Fprintf(w, "=== UNIFIED TABLE (%d rows) ===\n", result.Join.Unified.Len())
		p.printUnified(w, result)
		fmt.Fprintf(w, "\n")
	}

	if acc := result.Accumulation; acc != nil {
		fmt.Fprintf(w, "=== ACCUMULATED LEDGER ===\n")
		fmt.Fprintf(w, "History rows:  %d\n", acc.HistoryRows)
		fmt.Fprintf(w, "New rows:      %d\n", acc.NewRows)
		fmt.Fprintf(w, "Combined rows: %d\n", acc.CombinedRows)
		if acc.Replaced > 0 {
			fmt.Fprintf(w, "Replaced rows: %d\n", acc.Replaced)
		}
		fmt.Fprintf(w, "\n")
	}

	if d := result.Discrepancy; d != nil {
		fmt.Fprintf(w, "=== SETTLEMENT VS LEDGER ===\n")
		p.printView(w, d.SettlementVsLedger, HeaderSettlementDifference)
		fmt.Fprintf(w, "\n=== LEDGER VS SETTLEMENT ===\n")
		p.printView(w, d.LedgerVsSettlement, HeaderLedgerDifference)
	}
	return nil
}

// PresentCartera writes a summary of a processed portfolio
func (p *Presenter) PresentCartera(w io.Writer, result *reconciler.CarteraResult) error {
	if result == nil {
		return fmt.Errorf("cartera result cannot be nil")
	}
	if p.config.Format == FormatJSON {
		return p.writeJSON(w, result)
	}

	fmt.Fprintf(w, "PORTFOLIO\n")
	fmt.Fprintf(w, "Rows:         %d\n", result.Table.Len())
	fmt.Fprintf(w, "Columns:      %s\n", strings.Join(result.Table.Columns, ", "))
	fmt.Fprintf(w, "Filled cells: %d\n", result.Filled)
	if len(result.Missing) > 0 {
		fmt.Fprintf(w, "Missing:      %s\n", strings.Join(result.Missing, ", "))
	}
	return nil
}

func (p *Presenter) writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (p *Presenter) printInputs(w io.Writer, result *reconciler.RunResult) {
	names := make([]string, 0, len(result.Counts))
	for name := range result.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-11s %d rows\n", name+":", result.Counts[name])
	}

	tables := make([]string, 0, len(result.Missing))
	for name := range result.Missing {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		for _, col := range result.Missing[name] {
			if hint := result.Hints[name][col]; hint != "" {
				fmt.Fprintf(w, "  missing %s.%s (closest header: %s)\n", name, col, hint)
			} else {
				fmt.Fprintf(w, "  missing %s.%s\n", name, col)
			}
		}
	}

	if s := result.LedgerStats; s != nil && s.Unmatched > 0 {
		fmt.Fprintf(w, "  ledger lines without reference: %d of %d\n", s.Unmatched, s.Total)
		for _, sample := range s.Samples {
			fmt.Fprintf(w, "    - %s\n", sample)
		}
	}
	if result.Issues != nil && result.Issues.Count() > 0 {
		fmt.Fprintf(w, "  %s\n", result.Issues.Summary())
	}
}

func (p *Presenter) printUnified(w io.Writer, result *reconciler.RunResult) {
	unified := result.Join.Unified
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(unified.Columns, "\t"))

	n := unified.Len()
	if n > p.config.PreviewRows {
		n = p.config.PreviewRows
	}
	for i := 0; i < n; i++ {
		cells := make([]string, 0, len(unified.Columns))
		for _, v := range unified.Row(i) {
			cells = append(cells, fmt.Sprint(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	if unified.Len() > n {
		fmt.Fprintf(w, "... and %d more\n", unified.Len()-n)
	}
}

func (p *Presenter) printView(w io.Writer, v *reconciler.View, differenceHeader string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
		v.Left.KeyColumn, v.Left.AmountColumn, v.Right.KeyColumn, v.Right.AmountColumn, differenceHeader)

	for i, r := range v.Rows {
		if i >= p.config.MaxViewRows {
			break
		}
		if r.Matched {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
				r.Key, r.Amount.StringFixed(2), r.CounterKey, r.CounterAmount.StringFixed(2), r.Difference.StringFixed(2))
		} else {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t\n", r.Key, r.Amount.StringFixed(2))
		}
	}
	fmt.Fprintf(tw, "TOTAL GENERAL\t%s\t\t%s\t%s\t\n",
		v.GrandTotal.Amount.StringFixed(2), v.GrandTotal.CounterAmount.StringFixed(2), v.GrandTotal.Difference.StringFixed(2))
	tw.Flush()

	if len(v.Rows) > p.config.MaxViewRows {
		fmt.Fprintf(w, "... and %d more\n", len(v.Rows)-p.config.MaxViewRows)
	}
	fmt.Fprintf(w, "Matched: %d (%.1f%%)  Uncorroborated: %d\n",
		v.MatchedRows(), calculatePercentage(v.MatchedRows(), len(v.Rows)), len(v.Unmatched))
}

func calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}
