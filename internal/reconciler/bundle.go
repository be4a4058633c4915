package reconciler

import (
	"context"

	"recaudo-reconciliation-service/internal/ledger"
	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/parsers"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// Input table names
const (
	TableSettlement = "settlement"
	TableOrders     = "orders"
	TableProvision  = "provision"
	TableLedger     = "ledger"
	TableHistory    = "history"
	TableCartera    = "cartera"
)

// RecaudoTables lists the inputs of a Recaudo run in collection order
var RecaudoTables = []string{TableSettlement, TableOrders, TableProvision, TableLedger, TableHistory}

// InputCollector supplies raw input tables by name. A nil table with a nil
// error means the input was not supplied.
type InputCollector interface {
	Provide(ctx context.Context, name string) (*table.Table, error)
}

// TableCollector provides tables already held in memory
type TableCollector map[string]*table.Table

// Provide implements InputCollector
func (c TableCollector) Provide(ctx context.Context, name string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeAborted, "input collection", err)
	}
	return c[name], nil
}

// InputBundle is the complete, decoded input of one run. It is assembled
// once before the pipeline starts and is not modified afterwards.
type InputBundle struct {
	Settlements *models.Batch[models.SettlementRecord]
	Orders      *models.Batch[models.OrderRecord]
	Provisions  *models.Batch[models.ProvisionRecord]
	// Ledger entries carry their extracted ids
	Ledger      *models.Batch[models.LedgerEntry]
	LedgerStats *ledger.Stats
	// History is projected onto the accumulated columns; nil on a first run
	History *table.Table
	// Missing lists the expected columns each table did not carry
	Missing map[string][]string
	// Hints maps a missing column to the closest header that was present
	Hints  map[string]map[string]string
	Issues *errors.IssueCollector
}

// Counts returns the number of records per input table
func (b *InputBundle) Counts() map[string]int {
	return map[string]int{
		TableSettlement: b.Settlements.Len(),
		TableOrders:     b.Orders.Len(),
		TableProvision:  b.Provisions.Len(),
		TableLedger:     b.Ledger.Len(),
		TableHistory:    b.History.Len(),
	}
}

// BundleBuilder collects, normalizes and decodes every Recaudo input
type BundleBuilder struct {
	normalizer *table.Normalizer
	extractor  ledger.Extractor
	config     *Config
	logger     logger.Logger
}

// NewBundleBuilder creates a builder extracting ledger ids with extractor
func NewBundleBuilder(extractor ledger.Extractor, config *Config, log logger.Logger) *BundleBuilder {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &BundleBuilder{
		normalizer: table.NewNormalizer(log),
		extractor:  extractor,
		config:     config,
		logger:     log.WithComponent("bundle_builder"),
	}
}

// Build asks the collector for every input table and returns the bundle.
// Tables that are not supplied decode as empty batches, except history
// which stays nil.
func (b *BundleBuilder) Build(ctx context.Context, collector InputCollector) (*InputBundle, error) {
	raw := make(map[string]*table.Table, len(RecaudoTables))
	for _, name := range RecaudoTables {
		tbl, err := collector.Provide(ctx, name)
		if err != nil {
			return nil, err
		}
		if tbl != nil && tbl.Name != name {
			tbl = tbl.Clone()
			tbl.Name = name
		}
		raw[name] = tbl
	}

	bundle := &InputBundle{
		Missing: make(map[string][]string),
		Hints:   make(map[string]map[string]string),
	}
	decoder := parsers.NewDecoder(b.config.MaxIssueSamples, b.logger)

	normalize := func(name string, expected []string) *table.Table {
		tbl := raw[name]
		if tbl == nil {
			tbl = table.New(name, nil)
		}
		projection := b.normalizer.Normalize(tbl, expected)
		if len(projection.Missing) > 0 {
			bundle.Missing[name] = projection.Missing
		}
		if len(projection.Hints) > 0 {
			bundle.Hints[name] = projection.Hints
		}
		return projection.Table
	}

	bundle.Settlements = decoder.Settlements(normalize(TableSettlement, models.SettlementColumns))
	bundle.Orders = decoder.Orders(normalize(TableOrders, models.OrderColumns))
	bundle.Provisions = decoder.Provisions(normalize(TableProvision, models.ProvisionColumns))

	ledgerBatch := decoder.Ledger(normalize(TableLedger, models.LedgerColumns))
	entries, stats := ledger.Parse(ledgerBatch.Records, b.extractor, b.config.MaxUnmatchedSamples)
	ledgerBatch.Records = entries
	bundle.Ledger = ledgerBatch
	bundle.LedgerStats = stats

	if raw[TableHistory] != nil {
		bundle.History = normalize(TableHistory, models.AccumulatedColumns)
	}
	bundle.Issues = decoder.Issues()

	b.logger.WithFields(logger.Fields{
		"settlements":      bundle.Settlements.Len(),
		"orders":           bundle.Orders.Len(),
		"provisions":       bundle.Provisions.Len(),
		"ledger_lines":     bundle.Ledger.Len(),
		"ledger_matched":   stats.Matched,
		"ledger_unmatched": stats.Unmatched,
		"history_rows":     bundle.History.Len(),
		"cell_issues":      bundle.Issues.Count(),
	}).Info("Inputs normalized")

	if stats.Unmatched > 0 {
		b.logger.WithFields(logger.Fields{
			"unmatched": stats.Unmatched,
			"samples":   stats.Samples,
		}).Warn("Ledger descriptions without invoice and identity")
	}
	if bundle.Issues.Count() > 0 {
		b.logger.WithField("issues", bundle.Issues.Count()).Warn(bundle.Issues.Summary())
	}

	return bundle, nil
}
