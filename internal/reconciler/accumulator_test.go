package reconciler

import (
	"testing"

	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/logger"
)

func unifiedScenario(t *testing.T) *models.UnifiedTable {
	t.Helper()
	join, err := NewPipeline(nil, logger.Discard()).Join(buildBundle(t, scenario(), nil))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return join.Unified
}

func column(t *table.Table, name string) []string {
	return t.Column(name)
}

func TestReshape(t *testing.T) {
	acc := NewAccumulator(DefaultConfig().Accumulation, logger.Discard())
	records := acc.Reshape(unifiedScenario(t))

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	got := records[0]
	want := models.AccumulatedRecord{
		PaymentMethod:    "EFECTY",
		Date:             "2024-03-05",
		Month:            "MARZO",
		Year:             "2024",
		ServicePointCode: "P1",
		ServiceOrderID:   "1001",
		MovedAmount:      "100000",
		CommissionAmount: "1000",
		TaxAmount:        "0",
		TotalAmount:      "0",
		NUI:              "900",
		CitizenID:        "111",
		Name:             "Jose Nunez",
		InvoiceID:        "500",
		Municipality:     "BOGOTA",
	}
	if got != want {
		t.Errorf("unexpected record:\n got %+v\nwant %+v", got, want)
	}
	if records[2].Date != "not a date" || records[2].Year != "" {
		t.Errorf("unparsed date should be kept raw with an empty year: %+v", records[2])
	}
	if len(got.Cells()) != len(models.AccumulatedColumns) {
		t.Errorf("cells and columns differ in length")
	}
}

func TestAccumulateFirstRun(t *testing.T) {
	acc := NewAccumulator(DefaultConfig().Accumulation, logger.Discard())
	result := acc.Accumulate(unifiedScenario(t), nil)

	if result.Table.Width() != len(models.AccumulatedColumns) {
		t.Errorf("expected %d columns, got %d", len(models.AccumulatedColumns), result.Table.Width())
	}
	if result.HistoryRows != 0 || result.NewRows != 3 || result.CombinedRows != 3 {
		t.Errorf("unexpected counts: %+v", result)
	}
}

func TestAppendDuplicatesOnRerun(t *testing.T) {
	unified := unifiedScenario(t)
	acc := NewAccumulator(DefaultConfig().Accumulation, logger.Discard())

	first := acc.Accumulate(unified, nil)
	second := acc.Accumulate(unified, first.Table)

	if second.CombinedRows != 6 {
		t.Fatalf("expected the batch twice, got %d rows", second.CombinedRows)
	}
	orders := column(second.Table, models.ColAccServiceOrder)
	seen := map[string]int{}
	for _, o := range orders {
		seen[o]++
	}
	for _, o := range []string{"1001", "1002", "1003"} {
		if seen[o] != 2 {
			t.Errorf("order %s should appear twice in append mode, got %d", o, seen[o])
		}
	}
}

func TestUpsertReplacesHistory(t *testing.T) {
	unified := unifiedScenario(t)
	cfg := AccumulationConfig{Mode: ModeUpsert, PaymentMethod: "EFECTY"}
	acc := NewAccumulator(cfg, logger.Discard())

	history := acc.Accumulate(unified, nil).Table.Clone()
	older := make([]string, len(models.AccumulatedColumns))
	older[6] = "2000"
	history.Append(older)

	result := acc.Accumulate(unified, history)
	if result.Replaced != 3 {
		t.Errorf("expected 3 replaced rows, got %d", result.Replaced)
	}
	if result.CombinedRows != 4 {
		t.Fatalf("expected 4 rows, got %d", result.CombinedRows)
	}
	if got := result.Table.Value(3, models.ColAccServiceOrder); got != "2000" {
		t.Errorf("unrelated history row should be kept last, got %q", got)
	}
	if result.FellBack {
		t.Error("service order column was present")
	}
}

func TestAccumulateTruncatesToNarrowerSide(t *testing.T) {
	unified := unifiedScenario(t)

	tests := []struct {
		name          string
		historyWidth  int
		expectedWidth int
	}{
		{"narrower history", 5, 5},
		{"same width", len(models.AccumulatedColumns), len(models.AccumulatedColumns)},
		{"wider history", len(models.AccumulatedColumns) + 2, len(models.AccumulatedColumns)},
		{"single column", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := make([]string, tt.historyWidth)
			for i := range header {
				if i < len(models.AccumulatedColumns) {
					header[i] = models.AccumulatedColumns[i]
				} else {
					header[i] = "EXTRA"
				}
			}
			history := table.New("history", header)
			row := make([]string, tt.historyWidth)
			row[0] = "BANCO"
			history.Append(row)
			history.Append(row)

			acc := NewAccumulator(DefaultConfig().Accumulation, logger.Discard())
			result := acc.Accumulate(unified, history)

			if result.Table.Width() != tt.expectedWidth {
				t.Errorf("expected width %d, got %d", tt.expectedWidth, result.Table.Width())
			}
			if result.CombinedRows != 5 {
				t.Errorf("expected 5 rows, got %d", result.CombinedRows)
			}
			for i, r := range result.Table.Rows {
				if len(r) != tt.expectedWidth {
					t.Errorf("row %d has %d cells", i, len(r))
				}
			}
			if result.Table.Rows[0][0] != "EFECTY" || result.Table.Rows[3][0] != "BANCO" {
				t.Errorf("new rows should come first: %v", result.Table.Rows)
			}
			if result.Truncated != (tt.historyWidth != len(models.AccumulatedColumns)) {
				t.Errorf("unexpected truncated flag %v", result.Truncated)
			}
		})
	}
}

func TestUpsertFallsBackWhenOrderColumnTruncated(t *testing.T) {
	history := table.New("history", models.AccumulatedColumns[:5])
	history.Append([]string{"EFECTY", "", "2024-01-01", "ENERO", "2024"})

	acc := NewAccumulator(AccumulationConfig{Mode: ModeUpsert, PaymentMethod: "EFECTY"}, logger.Discard())
	result := acc.Accumulate(unifiedScenario(t), history)

	if !result.FellBack {
		t.Error("expected fallback to append")
	}
	if result.CombinedRows != 4 || result.Replaced != 0 {
		t.Errorf("unexpected counts: %+v", result)
	}
}

func TestAccumulateIgnoresHistoryWithoutColumns(t *testing.T) {
	history := table.New("history", nil)
	acc := NewAccumulator(DefaultConfig().Accumulation, logger.Discard())
	result := acc.Accumulate(unifiedScenario(t), history)

	if result.Table.Width() != len(models.AccumulatedColumns) || result.CombinedRows != 3 {
		t.Errorf("expected a fresh ledger, got %d columns and %d rows", result.Table.Width(), result.CombinedRows)
	}
}

func TestAccumulateAlignsHistoryByColumnName(t *testing.T) {
	var header []string
	for _, col := range models.AccumulatedColumns {
		if col != models.ColAccCollectionMethod {
			header = append(header, col)
		}
	}
	history := table.New("history", header)
	row := make([]string, len(header))
	for i, col := range header {
		switch col {
		case models.ColAccPaymentMethod:
			row[i] = "BANCO"
		case models.ColDate:
			row[i] = "2023-12-01"
		case models.ColMonth:
			row[i] = "DICIEMBRE"
		case models.ColAccServiceOrder:
			row[i] = "900"
		}
	}
	history.Append(row)

	acc := NewAccumulator(DefaultConfig().Accumulation, logger.Discard())
	result := acc.Accumulate(unifiedScenario(t), history)

	if result.Table.Width() != len(header) {
		t.Fatalf("expected width %d, got %d", len(header), result.Table.Width())
	}
	if result.CombinedRows != 4 {
		t.Fatalf("expected 4 rows, got %d", result.CombinedRows)
	}
	last := result.CombinedRows - 1
	expected := map[string]string{
		models.ColAccPaymentMethod:    "BANCO",
		models.ColAccCollectionMethod: "",
		models.ColDate:                "2023-12-01",
		models.ColMonth:               "DICIEMBRE",
		models.ColAccServiceOrder:     "900",
	}
	for col, want := range expected {
		if got := result.Table.Value(last, col); got != want {
			t.Errorf("history %s = %q, want %q", col, got, want)
		}
	}
}
