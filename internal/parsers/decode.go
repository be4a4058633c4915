package parsers

import (
	"strings"

	"github.com/shopspring/decimal"

	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// Decoder turns normalized tables into typed record batches. Cells that
// cannot be decoded fall back to zero and are reported to the issue collector.
type Decoder struct {
	issues *errors.IssueCollector
	logger logger.Logger
}

// NewDecoder creates a decoder keeping at most maxIssues detailed issues
func NewDecoder(maxIssues int, log logger.Logger) *Decoder {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Decoder{
		issues: errors.NewIssueCollector(maxIssues),
		logger: log.WithComponent("decoder"),
	}
}

// Issues returns every cell issue reported so far
func (d *Decoder) Issues() *errors.IssueCollector {
	return d.issues
}

// row is a cursor over one table row addressed by canonical column name
type row struct {
	d     *Decoder
	t     *table.Table
	index int
}

func (r row) text(column string) string {
	return strings.TrimSpace(r.t.Value(r.index, column))
}

func (r row) amount(column string) decimal.Decimal {
	raw := r.t.Value(r.index, column)
	parse := ParseAmount
	if r.t.Typed {
		parse = ParseCellAmount
	}
	value, err := parse(raw)
	if err != nil {
		r.d.issues.Add(&errors.CellIssue{
			Table:  r.t.Name,
			Row:    r.index + 2,
			Column: column,
			Value:  raw,
			Code:   errors.CodeInvalidData,
			Reason: "amount is not a number, counted as zero",
		})
		return decimal.Zero
	}
	return value
}

func (d *Decoder) rows(t *table.Table) []row {
	rows := make([]row, t.Len())
	for i := range rows {
		rows[i] = row{d: d, t: t, index: i}
	}
	return rows
}

func (d *Decoder) logBatch(name string, records, issuesBefore int) {
	d.logger.WithFields(logger.Fields{
		"table":   name,
		"records": records,
		"issues":  d.issues.Count() - issuesBefore,
	}).Debug("Decoded table")
}

// Settlements decodes a normalized settlement table
func (d *Decoder) Settlements(t *table.Table) *models.Batch[models.SettlementRecord] {
	before := d.issues.Count()
	batch := &models.Batch[models.SettlementRecord]{
		Name:    t.Name,
		Columns: models.NewColumnSet(t.Columns...),
		Records: make([]models.SettlementRecord, 0, t.Len()),
	}
	for _, r := range d.rows(t) {
		batch.Records = append(batch.Records, models.SettlementRecord{
			DocumentID:       r.text(models.ColDocument),
			ProjectCode:      r.text(models.ColProjectCode),
			Date:             r.text(models.ColDate),
			PaymentForm:      r.text(models.ColPaymentForm),
			ServicePointCode: r.text(models.ColServicePointCode),
			MovedAmount:      r.amount(models.ColMovedAmount),
			CommissionAmount: r.amount(models.ColCommissionAmount),
			TaxAmount:        r.amount(models.ColTaxAmount),
			TotalAmount:      r.amount(models.ColTotalAmount),
			Year:             r.text(models.ColSettlementYear),
		})
	}
	d.logBatch(t.Name, batch.Len(), before)
	return batch
}

// Orders decodes a normalized order table
func (d *Decoder) Orders(t *table.Table) *models.Batch[models.OrderRecord] {
	before := d.issues.Count()
	batch := &models.Batch[models.OrderRecord]{
		Name:    t.Name,
		Columns: models.NewColumnSet(t.Columns...),
		Records: make([]models.OrderRecord, 0, t.Len()),
	}
	for _, r := range d.rows(t) {
		batch.Records = append(batch.Records, models.OrderRecord{
			OrderNumber: r.text(models.ColOrderNumber),
			IdentityID:  r.text(models.ColIdentity),
			FirstName:   r.text(models.ColFirstName),
			LastName1:   r.text(models.ColLastName1),
			LastName2:   r.text(models.ColLastName2),
			InvoiceID:   r.text(models.ColInvoice),
		})
	}
	d.logBatch(t.Name, batch.Len(), before)
	return batch
}

// Provisions decodes a normalized provision table
func (d *Decoder) Provisions(t *table.Table) *models.Batch[models.ProvisionRecord] {
	before := d.issues.Count()
	batch := &models.Batch[models.ProvisionRecord]{
		Name:    t.Name,
		Columns: models.NewColumnSet(t.Columns...),
		Records: make([]models.ProvisionRecord, 0, t.Len()),
	}
	for _, r := range d.rows(t) {
		batch.Records = append(batch.Records, models.ProvisionRecord{
			NUI:         r.text(models.ColNUI),
			CitizenID:   r.text(models.ColCitizenID),
			ProjectName: r.text(models.ColProject),
		})
	}
	d.logBatch(t.Name, batch.Len(), before)
	return batch
}

// Ledger decodes a normalized ledger table. Descriptions are kept verbatim;
// extraction of invoice and identity ids happens in the ledger package.
func (d *Decoder) Ledger(t *table.Table) *models.Batch[models.LedgerEntry] {
	before := d.issues.Count()
	batch := &models.Batch[models.LedgerEntry]{
		Name:    t.Name,
		Columns: models.NewColumnSet(t.Columns...),
		Records: make([]models.LedgerEntry, 0, t.Len()),
	}
	for _, r := range d.rows(t) {
		batch.Records = append(batch.Records, models.LedgerEntry{
			AccountingCode:  r.text(models.ColAccountingCode),
			AccountName:     r.text(models.ColAccountName),
			VoucherNumber:   r.text(models.ColVoucher),
			Sequence:        r.text(models.ColSequence),
			ElaborationDate: r.text(models.ColElaborationDate),
			IdentityID:      r.text(models.ColLedgerIdentity),
			ThirdPartyName:  r.text(models.ColThirdPartyName),
			Description:     r.t.Value(r.index, models.ColDescription),
			CostCenter:      r.text(models.ColCostCenter),
			DebitAmount:     r.amount(models.ColDebit),
		})
	}
	d.logBatch(t.Name, batch.Len(), before)
	return batch
}
