package reconciler

import (
	"strconv"

	"recaudo-reconciliation-service/internal/matcher"
	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/logger"
)

// AccumulatedTableName names the accumulated ledger table
const AccumulatedTableName = "base_acumulada"

// AccumulationResult is the updated historical ledger together with its counts
type AccumulationResult struct {
	Table        *table.Table               `json:"-"`
	NewRecords   []models.AccumulatedRecord `json:"-"`
	HistoryRows  int                        `json:"history_rows"`
	NewRows      int                        `json:"new_rows"`
	CombinedRows int                        `json:"combined_rows"`
	// Replaced counts history rows dropped by upsert
	Replaced int              `json:"replaced"`
	Mode     AccumulationMode `json:"mode"`
	// FellBack is set when upsert ran as append because the service order
	// column did not survive truncation
	FellBack bool `json:"fell_back,omitempty"`
	// Truncated is set when the two sides had different widths
	Truncated bool `json:"truncated,omitempty"`
}

// Accumulator reshapes unified rows and merges them into the history
type Accumulator struct {
	config AccumulationConfig
	logger logger.Logger
}

// NewAccumulator creates an accumulator
func NewAccumulator(config AccumulationConfig, log logger.Logger) *Accumulator {
	if !config.Mode.IsValid() {
		config.Mode = ModeAppend
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Accumulator{config: config, logger: log.WithComponent("accumulator")}
}

// Reshape converts unified records into the accumulated ledger schema
func (a *Accumulator) Reshape(unified *models.UnifiedTable) []models.AccumulatedRecord {
	if unified.Len() == 0 {
		return nil
	}

	out := make([]models.AccumulatedRecord, 0, unified.Len())
	for i := range unified.Records {
		rec := &unified.Records[i]

		date := rec.Settlement.Date
		if rec.ParsedDate != nil {
			date = rec.ParsedDate.Format("2006-01-02")
		}
		year := ""
		if rec.Year != 0 {
			year = strconv.Itoa(rec.Year)
		}

		out = append(out, models.AccumulatedRecord{
			PaymentMethod:    a.config.PaymentMethod,
			Date:             date,
			Month:            rec.Month,
			Year:             year,
			ServicePointCode: rec.Settlement.ServicePointCode,
			ServiceOrderID:   rec.Order.OrderNumber,
			MovedAmount:      rec.Settlement.MovedAmount.String(),
			CommissionAmount: rec.Settlement.CommissionAmount.String(),
			TaxAmount:        rec.Settlement.TaxAmount.String(),
			TotalAmount:      rec.Settlement.TotalAmount.String(),
			NUI:              rec.Provision.NUI,
			CitizenID:        rec.Provision.CitizenID,
			Name:             rec.FullName,
			InvoiceID:        rec.Order.InvoiceID,
			Municipality:     rec.Provision.ProjectName,
		})
	}
	return out
}

// Accumulate places the reshaped new rows on top of the history. The new
// rows are cut to the narrower width and history rows are laid out under the
// kept header by column name, with empty cells where history lacks a column.
// A nil history yields the new rows alone.
func (a *Accumulator) Accumulate(unified *models.UnifiedTable, history *table.Table) *AccumulationResult {
	records := a.Reshape(unified)

	fresh := table.New(AccumulatedTableName, models.AccumulatedColumns)
	for i := range records {
		fresh.Append(records[i].Cells())
	}

	result := &AccumulationResult{
		NewRecords:  records,
		NewRows:     fresh.Len(),
		HistoryRows: history.Len(),
		Mode:        a.config.Mode,
	}

	if history == nil || history.Width() == 0 {
		if history != nil {
			a.logger.Warn("History carries none of the accumulated columns, starting a new ledger")
			result.HistoryRows = 0
		}
		result.Table = fresh
		result.CombinedRows = fresh.Len()
		a.logSummary(result)
		return result
	}

	width := fresh.Width()
	if history.Width() < width {
		width = history.Width()
	}
	result.Truncated = fresh.Width() != history.Width()
	if result.Truncated {
		a.logger.WithFields(logger.Fields{
			"new_columns":     fresh.Width(),
			"history_columns": history.Width(),
			"kept_columns":    width,
		}).Warn("History and new rows differ in width, truncating both")
	}

	fresh = fresh.Truncate(width)
	past := history.Align(fresh.Columns)

	kept := past.Rows
	if a.config.Mode == ModeUpsert {
		kept = a.upsert(fresh, past, result)
	}

	combined := table.New(AccumulatedTableName, fresh.Columns)
	combined.Rows = make([][]string, 0, len(fresh.Rows)+len(kept))
	combined.Rows = append(combined.Rows, fresh.Rows...)
	combined.Rows = append(combined.Rows, kept...)

	result.Table = combined
	result.CombinedRows = combined.Len()
	a.logSummary(result)
	return result
}

// upsert returns the history rows whose service order is not in the new batch
func (a *Accumulator) upsert(fresh, past *table.Table, result *AccumulationResult) [][]string {
	newIdx := fresh.Index(models.ColAccServiceOrder)
	pastIdx := past.Index(models.ColAccServiceOrder)
	if newIdx < 0 || pastIdx < 0 {
		a.logger.WithField("column", models.ColAccServiceOrder).
			Warn("Service order column was truncated away, accumulating in append mode")
		result.FellBack = true
		return past.Rows
	}

	incoming := matcher.NewIndex(fresh.Rows, func(row []string) string { return row[newIdx] })

	kept := make([][]string, 0, len(past.Rows))
	for _, row := range past.Rows {
		if incoming.Contains(row[pastIdx]) {
			result.Replaced++
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

func (a *Accumulator) logSummary(result *AccumulationResult) {
	a.logger.WithFields(logger.Fields{
		"mode":          result.Mode,
		"history_rows":  result.HistoryRows,
		"new_rows":      result.NewRows,
		"combined_rows": result.CombinedRows,
		"replaced":      result.Replaced,
	}).Info("Historical ledger updated")
}
