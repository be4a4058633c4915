package reconciler

import (
	"sort"

	"github.com/shopspring/decimal"

	"recaudo-reconciliation-service/internal/matcher"
	"recaudo-reconciliation-service/internal/models"
)

// Totals sources
const (
	SourceSettlement = "settlement"
	SourceLedger     = "ledger"
)

// View names
const (
	ViewSettlementVsLedger = "settlement_vs_ledger"
	ViewLedgerVsSettlement = "ledger_vs_settlement"
)

// IdentityTotal is the summed amount of one identity
type IdentityTotal struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// Totals is a per-identity sum of one source. GrandTotal covers every row,
// including the rows left out of the groups for lack of a key.
type Totals struct {
	Source       string          `json:"source"`
	KeyColumn    string          `json:"key_column"`
	AmountColumn string          `json:"amount_column"`
	Rows         []IdentityTotal `json:"rows"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	// Excluded counts the rows without a key
	Excluded       int             `json:"excluded"`
	ExcludedAmount decimal.Decimal `json:"excluded_amount"`
}

// groupTotals sums amounts per canonical key, rows ordered by key
func groupTotals[T any](source, keyColumn, amountColumn string, items []T, key func(T) string, amount func(T) decimal.Decimal) *Totals {
	totals := &Totals{
		Source:         source,
		KeyColumn:      keyColumn,
		AmountColumn:   amountColumn,
		GrandTotal:     decimal.Zero,
		ExcludedAmount: decimal.Zero,
	}

	sums := make(map[string]decimal.Decimal)
	for _, item := range items {
		value := amount(item)
		totals.GrandTotal = totals.GrandTotal.Add(value)

		k := matcher.CanonicalKey(key(item))
		if k == "" {
			totals.Excluded++
			totals.ExcludedAmount = totals.ExcludedAmount.Add(value)
			continue
		}
		sums[k] = sums[k].Add(value)
	}

	totals.Rows = make([]IdentityTotal, 0, len(sums))
	for k, v := range sums {
		totals.Rows = append(totals.Rows, IdentityTotal{Key: k, Amount: v})
	}
	sort.Slice(totals.Rows, func(i, j int) bool { return totals.Rows[i].Key < totals.Rows[j].Key })
	return totals
}

// SettlementTotals sums moved amounts per citizen id over the unified table
func SettlementTotals(unified *models.UnifiedTable) *Totals {
	var records []models.UnifiedRecord
	if unified != nil {
		records = unified.Records
	}
	return groupTotals(SourceSettlement, models.ColCitizenID, models.ColMovedAmount, records,
		func(u models.UnifiedRecord) string { return u.Provision.CitizenID },
		func(u models.UnifiedRecord) decimal.Decimal { return u.Settlement.MovedAmount },
	)
}

// LedgerTotals sums debits per extracted identity. Lines whose description
// did not yield an identity only count towards the grand total.
func LedgerTotals(entries []models.LedgerEntry) *Totals {
	return groupTotals(SourceLedger, models.ColIdentity, models.ColDebit, entries,
		func(e models.LedgerEntry) string { return e.ExtractedIdentityID },
		func(e models.LedgerEntry) decimal.Decimal { return e.DebitAmount },
	)
}

// ViewRow is one identity of the left side with its counterpart, if any
type ViewRow struct {
	Key           string          `json:"key"`
	Amount        decimal.Decimal `json:"amount"`
	CounterKey    string          `json:"counter_key,omitempty"`
	CounterAmount decimal.Decimal `json:"counter_amount"`
	Matched       bool            `json:"matched"`
	// Difference is Amount minus CounterAmount, zero when unmatched
	Difference decimal.Decimal `json:"difference"`
}

// GrandTotalLine compares the grand totals of both sides
type GrandTotalLine struct {
	Amount        decimal.Decimal `json:"amount"`
	CounterAmount decimal.Decimal `json:"counter_amount"`
	Difference    decimal.Decimal `json:"difference"`
}

// View is a left join of one side's totals against the other's
type View struct {
	Name       string         `json:"name"`
	Left       *Totals        `json:"-"`
	Right      *Totals        `json:"-"`
	Rows       []ViewRow      `json:"rows"`
	GrandTotal GrandTotalLine `json:"grand_total"`
	// Unmatched holds the left identities absent from the right side
	Unmatched []IdentityTotal `json:"unmatched"`
}

// MatchedRows counts rows with a counterpart
func (v *View) MatchedRows() int {
	return len(v.Rows) - len(v.Unmatched)
}

// Compare left-joins left against right by key. Differences are taken in
// the direction left minus right.
func Compare(name string, left, right *Totals) *View {
	view := &View{
		Name:  name,
		Left:  left,
		Right: right,
		Rows:  make([]ViewRow, 0, len(left.Rows)),
		GrandTotal: GrandTotalLine{
			Amount:        left.GrandTotal,
			CounterAmount: right.GrandTotal,
			Difference:    left.GrandTotal.Sub(right.GrandTotal),
		},
	}

	pairs, _ := matcher.LeftJoin(left.Rows, right.Rows, identityKey, identityKey)
	for _, pair := range pairs {
		row := pair.Left
		vr := ViewRow{Key: row.Key, Amount: row.Amount, CounterAmount: decimal.Zero, Difference: decimal.Zero}
		if pair.Matched {
			vr.CounterKey = pair.Right.Key
			vr.CounterAmount = pair.Right.Amount
			vr.Matched = true
			vr.Difference = row.Amount.Sub(pair.Right.Amount)
		} else {
			view.Unmatched = append(view.Unmatched, row)
		}
		view.Rows = append(view.Rows, vr)
	}
	return view
}

func identityKey(t IdentityTotal) string {
	return t.Key
}

// DiscrepancyReport holds both totals and both comparison views
type DiscrepancyReport struct {
	SettlementTotals   *Totals `json:"settlement_totals"`
	LedgerTotals       *Totals `json:"ledger_totals"`
	SettlementVsLedger *View   `json:"settlement_vs_ledger"`
	LedgerVsSettlement *View   `json:"ledger_vs_settlement"`
}

// ComputeDiscrepancies totals both sources and compares them in both directions
func ComputeDiscrepancies(unified *models.UnifiedTable, entries []models.LedgerEntry) *DiscrepancyReport {
	settlement := SettlementTotals(unified)
	ledger := LedgerTotals(entries)
	return &DiscrepancyReport{
		SettlementTotals:   settlement,
		LedgerTotals:       ledger,
		SettlementVsLedger: Compare(ViewSettlementVsLedger, settlement, ledger),
		LedgerVsSettlement: Compare(ViewLedgerVsSettlement, ledger, settlement),
	}
}
