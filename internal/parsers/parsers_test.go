package parsers

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input       string
		expected    string
		expectError bool
	}{
		{"", "0", false},
		{"1500", "1500", false},
		{"1500.5", "1500.5", false},
		{"$ 1.500", "1500", false},
		{"1.234.567", "1234567", false},
		{"1.234.567,89", "1234567.89", false},
		{"1,234,567.89", "1234567.89", false},
		{"1,234", "1234", false},
		{"12,5", "12.5", false},
		{"0.125", "0.125", false},
		{"(2.000)", "-2000", false},
		{"-350", "-350", false},
		{"COP 10.000", "10000", false},
		{"abc", "", true},
		{"$", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input       string
		expected    time.Time
		expectError bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"2024-03-05 10:30:00", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), false},
		{"05/03/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"5/3/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"45356", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"not a date", time.Time{}, true},
		{"-4", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		input    string
		expected rune
	}{
		{"NUI;CC;PROYECTO\n1;2;3", ';'},
		{"NUI,CC,PROYECTO\n1,2,3", ','},
		{"NUI\tCC\tPROYECTO", '\t'},
		{"NUI", ','},
	}

	for _, tt := range tests {
		if got := SniffDelimiter([]byte(tt.input)); got != tt.expected {
			t.Errorf("SniffDelimiter(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestReadCSV(t *testing.T) {
	reader := NewSpreadsheetReader(afero.NewMemMapFs(), nil)

	data := "\xef\xbb\xbfNUI;CC;PROYECTO\n77;123;CALI\n\n78;124;\n"
	tbl, err := reader.Read("provision", "provision.csv", bytes.NewBufferString(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tbl.Width() != 3 || tbl.Columns[0] != "NUI" {
		t.Errorf("BOM should be stripped from the header: %v", tbl.Columns)
	}
	if tbl.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Value(1, "PROYECTO") != "" {
		t.Errorf("missing trailing cell should be empty, got %q", tbl.Value(1, "PROYECTO"))
	}
	if tbl.Typed {
		t.Error("csv cells are text and must keep the separator rules")
	}
}

func TestReadCSVWindows1252(t *testing.T) {
	reader := NewSpreadsheetReader(afero.NewMemMapFs(), nil)

	// "DÉBITO" with É encoded as a single Windows-1252 byte
	data := []byte("DESCRIPCI\xd3N,D\xc9BITO\nFV-1-10 20,5000\n")
	tbl, err := reader.Read("ledger", "siigo.csv", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tbl.Has(models.ColDebit) || !tbl.Has(models.ColDescription) {
		t.Errorf("headers not decoded: %v", tbl.Columns)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Documento", "Fecha", "Valor Movilizado", "IVA"},
		{"1001", 45356, 5000, 0},
		{"1002", "2024-03-06", 7000.5, 0},
		{"1003", 45357, 150000.125, 2850.095},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("failed to build workbook: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}

	tbl, err := NewSpreadsheetReader(nil, nil).Read("settlement", "liquidacion.xlsx", buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	if !tbl.Typed {
		t.Error("workbook tables should be marked typed")
	}
	if tbl.Value(0, "FECHA") != "45356" {
		t.Errorf("expected raw serial date, got %q", tbl.Value(0, "FECHA"))
	}
	if tbl.Value(1, "VALOR MOVILIZADO") != "7000.5" {
		t.Errorf("expected raw amount, got %q", tbl.Value(1, "VALOR MOVILIZADO"))
	}

	normalized := table.NewNormalizer(logger.Discard()).Normalize(tbl, models.SettlementColumns)
	batch := NewDecoder(10, logger.Discard()).Settlements(normalized.Table)
	got := batch.Records[2]
	if !got.MovedAmount.Equal(decimal.RequireFromString("150000.125")) {
		t.Errorf("moved amount = %s, want 150000.125", got.MovedAmount)
	}
	if !got.TaxAmount.Equal(decimal.RequireFromString("2850.095")) {
		t.Errorf("tax amount = %s, want 2850.095", got.TaxAmount)
	}
}

func TestParseCellAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2850.095", "2850.095"},
		{"150000.125", "150000.125"},
		{"-45.5", "-45.5"},
		{"1.5E+06", "1500000"},
		{"120000", "120000"},
		// text cells still use the separator rules
		{"1.234.567", "1234567"},
		{"$ 1.500", "1500"},
		{"", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCellAmount(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("ParseCellAmount(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestReadUnsupportedAndCorrupt(t *testing.T) {
	reader := NewSpreadsheetReader(nil, nil)

	_, err := reader.Read("orders", "ordenes.pdf", bytes.NewBufferString("x"))
	if !errors.HasCode(err, errors.CodeUnsupportedFormat) {
		t.Errorf("expected unsupported format, got %v", err)
	}

	_, err = reader.Read("orders", "ordenes.xlsx", bytes.NewBufferString("not a zip"))
	if !errors.HasCode(err, errors.CodeFileCorrupted) {
		t.Errorf("expected corrupted file, got %v", err)
	}
}

func TestDecoder(t *testing.T) {
	raw := table.New("settlement", []string{models.ColDocument, models.ColDate, models.ColMovedAmount})
	raw.Append([]string{" 1001 ", "2024-03-05", "5.000"})
	raw.Append([]string{"1002", "2024-03-06", "n/a"})

	decoder := NewDecoder(10, logger.Discard())
	batch := decoder.Settlements(raw)

	if batch.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", batch.Len())
	}
	if batch.Records[0].DocumentID != "1001" {
		t.Errorf("text cells should be trimmed, got %q", batch.Records[0].DocumentID)
	}
	if !batch.Records[0].MovedAmount.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("unexpected amount %s", batch.Records[0].MovedAmount)
	}
	if !batch.Records[1].MovedAmount.IsZero() {
		t.Errorf("bad amount should decode as zero, got %s", batch.Records[1].MovedAmount)
	}
	if decoder.Issues().Count() != 1 {
		t.Fatalf("expected 1 issue, got %d", decoder.Issues().Count())
	}
	issue := decoder.Issues().Issues()[0]
	if issue.Row != 3 || issue.Column != models.ColMovedAmount {
		t.Errorf("issue should point at the sheet row: %+v", issue)
	}
	if !batch.Columns.Has(models.ColDate) || batch.Columns.Has(models.ColTaxAmount) {
		t.Errorf("unexpected column set: %v", batch.Columns)
	}
}

func TestDecodeLedgerKeepsDescription(t *testing.T) {
	raw := table.New("ledger", []string{models.ColDescription, models.ColDebit})
	raw.Append([]string{"FV-1- 10 20 ", "1500"})

	batch := NewDecoder(0, logger.Discard()).Ledger(raw)
	if batch.Records[0].Description != "FV-1- 10 20 " {
		t.Errorf("description should be kept verbatim, got %q", batch.Records[0].Description)
	}
	if batch.Records[0].Extracted() {
		t.Error("decoding alone does not extract ids")
	}
}

func TestFileCollector(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/in/provision.csv", []byte("NUI,CC,PROYECTO\n7,100,CALI\n"), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	collector := NewFileCollector(fs, nil, map[string]string{
		"provision": "/in/provision.csv",
		"orders":    "/in/missing.xlsx",
		"ledger":    "",
		"history":   "",
	}, "history")
	ctx := context.Background()

	tbl, err := collector.Provide(ctx, "provision")
	if err != nil || tbl.Len() != 1 {
		t.Fatalf("expected provision table, got %v (%v)", tbl, err)
	}

	history, err := collector.Provide(ctx, "history")
	if err != nil || history != nil {
		t.Errorf("optional input should be nil without error, got %v (%v)", history, err)
	}

	if _, err := collector.Provide(ctx, "ledger"); !errors.HasCode(err, errors.CodeMissingConfig) {
		t.Errorf("expected missing config error, got %v", err)
	}

	if _, err := collector.Provide(ctx, "orders"); !errors.HasCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file not found, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := collector.Provide(cancelled, "provision"); !errors.HasCode(err, errors.CodeAborted) {
		t.Errorf("expected aborted error, got %v", err)
	}
}
