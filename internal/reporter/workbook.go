package reporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/reconciler"
	"recaudo-reconciliation-service/internal/table"
)

// Difference headers of the two summary views
const (
	HeaderSettlementDifference = "DIFERENCIA_EFECTY_SIIGO"
	HeaderLedgerDifference     = "DIFERENCIA_SIIGO_EFECTY"
)

// MIME types of the exported files
const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeCSV  = "text/csv"
)

// ExportConfig names the output files and places the tables inside them
type ExportConfig struct {
	RecaudoFile     string `json:"recaudo_file" mapstructure:"recaudo_file"`
	AccumulatedFile string `json:"accumulated_file" mapstructure:"accumulated_file"`
	PartialFile     string `json:"partial_file" mapstructure:"partial_file"`
	CarteraFile     string `json:"cartera_file" mapstructure:"cartera_file"`

	DataSheet        string `json:"data_sheet" mapstructure:"data_sheet"`
	SummarySheet     string `json:"summary_sheet" mapstructure:"summary_sheet"`
	AccumulatedSheet string `json:"accumulated_sheet" mapstructure:"accumulated_sheet"`
	PartialSheet     string `json:"partial_sheet" mapstructure:"partial_sheet"`
	CarteraSheet     string `json:"cartera_sheet" mapstructure:"cartera_sheet"`

	// SummaryRow is the 1-based row where the summary tables start
	SummaryRow int `json:"summary_row" mapstructure:"summary_row"`
	// Column letters of the four summary tables
	SettlementViewColumn      string `json:"settlement_view_column" mapstructure:"settlement_view_column"`
	SettlementUnmatchedColumn string `json:"settlement_unmatched_column" mapstructure:"settlement_unmatched_column"`
	LedgerViewColumn          string `json:"ledger_view_column" mapstructure:"ledger_view_column"`
	LedgerUnmatchedColumn     string `json:"ledger_unmatched_column" mapstructure:"ledger_unmatched_column"`

	CSVDelimiter string `json:"csv_delimiter" mapstructure:"csv_delimiter"`
}

// DefaultExportConfig returns the layout the collection team works with
func DefaultExportConfig() *ExportConfig {
	return &ExportConfig{
		RecaudoFile:     "datos_cruzados.xlsx",
		AccumulatedFile: "base_acumulada.xlsx",
		PartialFile:     "datos_parciales.xlsx",
		CarteraFile:     "facturacion_procesada",

		DataSheet:        "Datos_Cruzados",
		SummarySheet:     "Resumen_Recaudo",
		AccumulatedSheet: "Base_Acumulada",
		PartialSheet:     "Datos_Parciales",
		CarteraSheet:     "Facturacion",

		SummaryRow:                2,
		SettlementViewColumn:      "B",
		SettlementUnmatchedColumn: "H",
		LedgerViewColumn:          "K",
		LedgerUnmatchedColumn:     "Q",

		CSVDelimiter: ",",
	}
}

// Validate checks sheet names, file names and offsets
func (c *ExportConfig) Validate() error {
	for name, value := range map[string]string{
		"recaudo_file":      c.RecaudoFile,
		"accumulated_file":  c.AccumulatedFile,
		"partial_file":      c.PartialFile,
		"cartera_file":      c.CarteraFile,
		"data_sheet":        c.DataSheet,
		"summary_sheet":     c.SummarySheet,
		"accumulated_sheet": c.AccumulatedSheet,
		"partial_sheet":     c.PartialSheet,
		"cartera_sheet":     c.CarteraSheet,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}
	if strings.EqualFold(c.DataSheet, c.SummarySheet) {
		return fmt.Errorf("data and summary sheets must differ")
	}
	if c.SummaryRow < 1 {
		return fmt.Errorf("summary row must be at least 1, got %d", c.SummaryRow)
	}
	for _, col := range []string{c.SettlementViewColumn, c.SettlementUnmatchedColumn, c.LedgerViewColumn, c.LedgerUnmatchedColumn} {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return fmt.Errorf("invalid summary column %q: %w", col, err)
		}
	}
	if len([]rune(c.CSVDelimiter)) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", c.CSVDelimiter)
	}
	return nil
}

// Delimiter returns the CSV delimiter as a rune
func (c *ExportConfig) Delimiter() rune {
	return []rune(c.CSVDelimiter)[0]
}

// newWorkbook creates a file whose sheets are named in order
func newWorkbook(sheets ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheets[0]); err != nil {
		f.Close()
		return nil, err
	}
	for _, sheet := range sheets[1:] {
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// writeTable writes header and rows with the top-left cell at (col, row)
func writeTable(f *excelize.File, sheet string, col, row int, header []string, rows [][]interface{}) error {
	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	all := append([][]interface{}{headerCells}, rows...)

	for i, values := range all {
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		if err != nil {
			return err
		}
		values := values
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// cellValue turns amounts into numbers so the sheet can sum them
func cellValue(column string, v interface{}) interface{} {
	switch value := v.(type) {
	case decimal.Decimal:
		return value.InexactFloat64()
	case string:
		if models.IsAmountColumn(column) && value != "" {
			if d, err := decimal.NewFromString(value); err == nil {
				return d.InexactFloat64()
			}
		}
	}
	return v
}

func unifiedRows(u *models.UnifiedTable) [][]interface{} {
	rows := make([][]interface{}, u.Len())
	for i := range rows {
		row := u.Row(i)
		for c, col := range u.Columns {
			row[c] = cellValue(col, row[c])
		}
		rows[i] = row
	}
	return rows
}

func tableRows(t *table.Table) [][]interface{} {
	rows := make([][]interface{}, t.Len())
	for i, r := range t.Rows {
		row := make([]interface{}, len(r))
		for c, cell := range r {
			row[c] = cellValue(t.Columns[c], cell)
		}
		rows[i] = row
	}
	return rows
}

func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// viewRows renders a comparison view, closed by the grand total line.
// Unmatched rows leave the counterpart cells empty.
func viewRows(v *reconciler.View) [][]interface{} {
	rows := make([][]interface{}, 0, len(v.Rows)+1)
	for _, r := range v.Rows {
		if r.Matched {
			rows = append(rows, []interface{}{r.Key, amount(r.Amount), r.CounterKey, amount(r.CounterAmount), amount(r.Difference)})
		} else {
			rows = append(rows, []interface{}{r.Key, amount(r.Amount), "", "", ""})
		}
	}
	rows = append(rows, []interface{}{
		models.GrandTotalLabel, amount(v.GrandTotal.Amount),
		models.GrandTotalLabel, amount(v.GrandTotal.CounterAmount),
		amount(v.GrandTotal.Difference),
	})
	return rows
}

func unmatchedRows(totals []reconciler.IdentityTotal) [][]interface{} {
	rows := make([][]interface{}, len(totals))
	for i, t := range totals {
		rows[i] = []interface{}{t.Key, amount(t.Amount)}
	}
	return rows
}

func viewHeader(v *reconciler.View, difference string) []string {
	return []string{v.Left.KeyColumn, v.Left.AmountColumn, v.Right.KeyColumn, v.Right.AmountColumn, difference}
}

// RecaudoWorkbook builds the unified data sheet and the summary sheet with
// both comparison views and both uncorroborated tables
func RecaudoWorkbook(result *reconciler.RunResult, config *ExportConfig) (*excelize.File, error) {
	if result.Join == nil || result.Join.Unified == nil || result.Discrepancy == nil {
		return nil, fmt.Errorf("run %s has no unified table to export", result.RunID)
	}

	f, err := newWorkbook(config.DataSheet, config.SummarySheet)
	if err != nil {
		return nil, err
	}

	unified := result.Join.Unified
	if err := writeTable(f, config.DataSheet, 1, 1, unified.Columns, unifiedRows(unified)); err != nil {
		f.Close()
		return nil, err
	}

	a := result.Discrepancy.SettlementVsLedger
	b := result.Discrepancy.LedgerVsSettlement
	tables := []struct {
		column string
		header []string
		rows   [][]interface{}
	}{
		{config.SettlementViewColumn, viewHeader(a, HeaderSettlementDifference), viewRows(a)},
		{config.SettlementUnmatchedColumn, []string{a.Left.KeyColumn, a.Left.AmountColumn}, unmatchedRows(a.Unmatched)},
		{config.LedgerViewColumn, viewHeader(b, HeaderLedgerDifference), viewRows(b)},
		{config.LedgerUnmatchedColumn, []string{b.Left.KeyColumn, b.Left.AmountColumn}, unmatchedRows(b.Unmatched)},
	}
	for _, t := range tables {
		col, err := excelize.ColumnNameToNumber(t.column)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := writeTable(f, config.SummarySheet, col, config.SummaryRow, t.header, t.rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// UnifiedWorkbook writes a unified or partial table to a single sheet
func UnifiedWorkbook(u *models.UnifiedTable, sheet string) (*excelize.File, error) {
	f, err := newWorkbook(sheet)
	if err != nil {
		return nil, err
	}
	if err := writeTable(f, sheet, 1, 1, u.Columns, unifiedRows(u)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// TableWorkbook writes a table to a single sheet
func TableWorkbook(t *table.Table, sheet string) (*excelize.File, error) {
	f, err := newWorkbook(sheet)
	if err != nil {
		return nil, err
	}
	if err := writeTable(f, sheet, 1, 1, t.Columns, tableRows(t)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Encode serializes and closes the workbook
func Encode(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSV renders a table as UTF-8 CSV with a header row
func CSV(t *table.Table, delimiter rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return buf.Bytes(), nil
}
