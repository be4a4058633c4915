package reconciler

import (
	"recaudo-reconciliation-service/internal/matcher"
	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// Join stage names used in halt errors
const (
	StageSettlementOrder = "settlement-order"
	StageProvision       = "provision"
)

// JoinResult is the output of the join stages
type JoinResult struct {
	// Unified is nil when the run halted before the provision join
	Unified *models.UnifiedTable
	// Partial holds the settlement-order join when the provision join could not run
	Partial              *models.UnifiedTable
	SettlementOrderStats matcher.JoinStats
	ProvisionStats       matcher.JoinStats
	UnparsedDates        int
}

// Pipeline runs the precondition checks and the chained joins
type Pipeline struct {
	config *Config
	logger logger.Logger
}

// NewPipeline creates a pipeline with config
func NewPipeline(config *Config, log logger.Logger) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Pipeline{config: config, logger: log.WithComponent("pipeline")}
}

// Check verifies the preconditions of the joins: every required table has
// rows and settlements and orders have the same count.
func (p *Pipeline) Check(bundle *InputBundle) error {
	required := []struct {
		name string
		rows int
	}{
		{TableSettlement, bundle.Settlements.Len()},
		{TableOrders, bundle.Orders.Len()},
		{TableProvision, bundle.Provisions.Len()},
		{TableLedger, bundle.Ledger.Len()},
	}
	for _, r := range required {
		if r.rows == 0 {
			p.logger.WithField("table", r.name).Warn("Required input is empty")
			return errors.EmptyTableError(r.name)
		}
	}

	if bundle.Settlements.Len() != bundle.Orders.Len() {
		p.logger.WithFields(logger.Fields{
			"settlements": bundle.Settlements.Len(),
			"orders":      bundle.Orders.Len(),
		}).Warn("Record count mismatch")
		return errors.RecordCountMismatchError(bundle.Settlements.Len(), bundle.Orders.Len())
	}
	return nil
}

// Join crosses settlements with orders and the result with provisions.
// When the provision join keys are missing the returned result carries the
// settlement-order table in Partial together with the halt error.
func (p *Pipeline) Join(bundle *InputBundle) (*JoinResult, error) {
	result := &JoinResult{}

	missing := append(
		bundle.Settlements.Columns.Missing(models.ColDocument),
		bundle.Orders.Columns.Missing(models.ColOrderNumber)...,
	)
	if len(missing) > 0 {
		return result, errors.MissingJoinKeysError(StageSettlementOrder, missing)
	}

	withNames := hasNameColumns(bundle.Orders.Columns)
	pairs, stats := matcher.InnerJoin(bundle.Settlements.Records, bundle.Orders.Records,
		func(s models.SettlementRecord) string { return s.DocumentID },
		func(o models.OrderRecord) string { return o.OrderNumber },
	)
	result.SettlementOrderStats = stats

	stage1 := make([]models.UnifiedRecord, 0, len(pairs))
	for _, pair := range pairs {
		rec := models.UnifiedRecord{Settlement: pair.Left, Order: pair.Right}
		if withNames {
			rec.FullName = FullName(pair.Right.FirstName, pair.Right.LastName1, pair.Right.LastName2)
		}
		// name parts only live on in the full name
		rec.Order.FirstName, rec.Order.LastName1, rec.Order.LastName2 = "", "", ""
		stage1 = append(stage1, rec)
	}
	stage1Columns := p.stage1Columns(bundle, withNames)

	p.logger.WithFields(logger.Fields{
		"stage":     StageSettlementOrder,
		"rows":      stats.OutputRows,
		"unmatched": stats.LeftUnmatched,
	}).Info("Settlements joined with orders")

	missing = append(
		bundle.Orders.Columns.Missing(models.ColIdentity),
		bundle.Provisions.Columns.Missing(models.ColNUI)...,
	)
	if len(missing) > 0 {
		result.Partial = &models.UnifiedTable{Records: stage1, Columns: stage1Columns}
		return result, errors.MissingJoinKeysError(StageProvision, missing)
	}

	provisionPairs, provisionStats := matcher.InnerJoin(stage1, bundle.Provisions.Records,
		func(u models.UnifiedRecord) string { return u.Order.IdentityID },
		func(pr models.ProvisionRecord) string { return pr.NUI },
	)
	result.ProvisionStats = provisionStats

	unified := make([]models.UnifiedRecord, 0, len(provisionPairs))
	for _, pair := range provisionPairs {
		rec := pair.Left
		rec.Provision = pair.Right
		unified = append(unified, rec)
	}

	if bundle.Orders.Columns.Has(models.ColInvoice) {
		cleanInvoices(unified, p.config.InvoicePrefixes)
	}
	result.UnparsedDates = deriveDates(unified)

	columns := append([]string{}, stage1Columns...)
	columns = append(columns, bundle.Provisions.Columns.Ordered(models.ProvisionColumns)...)
	columns = append(columns, models.ColYear, models.ColMonth)
	result.Unified = &models.UnifiedTable{Records: unified, Columns: columns}

	p.logger.WithFields(logger.Fields{
		"stage":          StageProvision,
		"rows":           provisionStats.OutputRows,
		"unmatched":      provisionStats.LeftUnmatched,
		"unparsed_dates": result.UnparsedDates,
	}).Info("Unified table built")

	return result, nil
}

func (p *Pipeline) stage1Columns(bundle *InputBundle, withNames bool) []string {
	columns := bundle.Settlements.Columns.Ordered(models.SettlementColumns)
	for _, col := range bundle.Orders.Columns.Ordered(models.OrderColumns) {
		if !isNameColumn(col) {
			columns = append(columns, col)
		}
	}
	if withNames {
		columns = append(columns, models.ColFullName)
	}
	return columns
}

func isNameColumn(col string) bool {
	for _, name := range models.NameColumns {
		if name == col {
			return true
		}
	}
	return false
}

// Accumulate places the unified table of join on top of the bundle's history
func (p *Pipeline) Accumulate(bundle *InputBundle, join *JoinResult) *AccumulationResult {
	return NewAccumulator(p.config.Accumulation, p.logger).Accumulate(join.Unified, bundle.History)
}

// Discrepancies compares the unified table of join with the bundle's ledger
func (p *Pipeline) Discrepancies(bundle *InputBundle, join *JoinResult) *DiscrepancyReport {
	return ComputeDiscrepancies(join.Unified, bundle.Ledger.Records)
}
