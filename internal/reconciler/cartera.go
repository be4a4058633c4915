package reconciler

import (
	"strings"

	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/errors"
)

// CarteraTableName names the processed portfolio table
const CarteraTableName = "facturacion_procesada"

// CarteraResult is the processed portfolio table
type CarteraResult struct {
	RunID   string            `json:"run_id"`
	Table   *table.Table      `json:"-"`
	Missing []string          `json:"missing_columns,omitempty"`
	Hints   map[string]string `json:"column_hints,omitempty"`
	// Filled counts the empty cells replaced by the fill value
	Filled int `json:"filled"`
}

// ProcessCartera projects the order table onto the portfolio columns and
// replaces empty cells with fill. Absent columns are reported, not added.
func ProcessCartera(raw *table.Table, normalizer *table.Normalizer, fill string) (*CarteraResult, error) {
	if raw.Len() == 0 {
		return nil, errors.EmptyTableError(TableCartera)
	}

	projection := normalizer.Normalize(raw, models.CarteraColumns)
	if projection.Table.Width() == 0 {
		return nil, errors.New(errors.CategoryParse, errors.CodeMissingColumn,
			"none of the portfolio columns were found").
			WithSuggestion("the file must carry at least one of "+strings.Join(models.CarteraColumns, ", ")).
			WithContext("table", TableCartera)
	}

	out := projection.Table
	out.Name = CarteraTableName
	filled := 0
	for _, row := range out.Rows {
		for i, cell := range row {
			if strings.TrimSpace(cell) == "" {
				row[i] = fill
				filled++
			}
		}
	}

	return &CarteraResult{
		Table:   out,
		Missing: projection.Missing,
		Hints:   projection.Hints,
		Filled:  filled,
	}, nil
}
