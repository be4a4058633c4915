package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"

	"recaudo-reconciliation-service/internal/models"
)

func scenarioReport(t *testing.T) *DiscrepancyReport {
	t.Helper()
	bundle := buildBundle(t, scenario(), nil)
	return ComputeDiscrepancies(unifiedScenario(t), bundle.Ledger.Records)
}

func TestSettlementTotals(t *testing.T) {
	totals := SettlementTotals(unifiedScenario(t))

	want := []IdentityTotal{{"111", dec("100000")}, {"222", dec("50000")}, {"333", dec("25000")}}
	if len(totals.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %v", len(want), totals.Rows)
	}
	for i, w := range want {
		if totals.Rows[i].Key != w.Key || !totals.Rows[i].Amount.Equal(w.Amount) {
			t.Errorf("row %d: got %s=%s, want %s=%s", i, totals.Rows[i].Key, totals.Rows[i].Amount, w.Key, w.Amount)
		}
	}
	if !totals.GrandTotal.Equal(dec("175000")) {
		t.Errorf("unexpected grand total %s", totals.GrandTotal)
	}
}

func TestLedgerTotalsExcludeUnextractedFromGroups(t *testing.T) {
	entries := []models.LedgerEntry{
		{ExtractedIdentityID: "111", DebitAmount: dec("100")},
		{ExtractedIdentityID: "111.0", DebitAmount: dec("50")},
		{ExtractedIdentityID: "", DebitAmount: dec("30")},
		{ExtractedIdentityID: "222", DebitAmount: dec("20")},
	}
	totals := LedgerTotals(entries)

	if len(totals.Rows) != 2 {
		t.Fatalf("expected 2 groups, got %v", totals.Rows)
	}
	if totals.Rows[0].Key != "111" || !totals.Rows[0].Amount.Equal(dec("150")) {
		t.Errorf("expected 111 to group 150, got %+v", totals.Rows[0])
	}
	if totals.Excluded != 1 || !totals.ExcludedAmount.Equal(dec("30")) {
		t.Errorf("unexpected exclusion: %d %s", totals.Excluded, totals.ExcludedAmount)
	}
	if !totals.GrandTotal.Equal(dec("200")) {
		t.Errorf("grand total should include excluded rows, got %s", totals.GrandTotal)
	}
	for _, row := range totals.Rows {
		if row.Key == "" {
			t.Error("empty key must not be a group")
		}
	}
}

func TestViews(t *testing.T) {
	report := scenarioReport(t)
	a := report.SettlementVsLedger
	b := report.LedgerVsSettlement

	tests := []struct {
		view       *View
		key        string
		matched    bool
		difference string
	}{
		{a, "111", true, "10000"},
		{a, "222", true, "0"},
		{a, "333", false, "0"},
		{b, "111", true, "-10000"},
		{b, "222", true, "0"},
		{b, "444", false, "0"},
	}
	for _, tt := range tests {
		var found *ViewRow
		for i := range tt.view.Rows {
			if tt.view.Rows[i].Key == tt.key {
				found = &tt.view.Rows[i]
			}
		}
		if found == nil {
			t.Errorf("%s: key %s not found", tt.view.Name, tt.key)
			continue
		}
		if found.Matched != tt.matched || !found.Difference.Equal(dec(tt.difference)) {
			t.Errorf("%s %s: matched=%v difference=%s, want %v %s",
				tt.view.Name, tt.key, found.Matched, found.Difference, tt.matched, tt.difference)
		}
	}

	if len(a.Unmatched) != 1 || a.Unmatched[0].Key != "333" {
		t.Errorf("uncorroborated settlement: %v", a.Unmatched)
	}
	if len(b.Unmatched) != 1 || b.Unmatched[0].Key != "444" || !b.Unmatched[0].Amount.Equal(dec("7000")) {
		t.Errorf("uncorroborated ledger: %v", b.Unmatched)
	}
	if a.MatchedRows() != 2 || b.MatchedRows() != 2 {
		t.Errorf("expected 2 matched rows per view")
	}

	if !a.GrandTotal.Amount.Equal(dec("175000")) || !a.GrandTotal.CounterAmount.Equal(dec("150000")) ||
		!a.GrandTotal.Difference.Equal(dec("25000")) {
		t.Errorf("unexpected grand total line A: %+v", a.GrandTotal)
	}
	if !b.GrandTotal.Difference.Equal(dec("-25000")) {
		t.Errorf("unexpected grand total line B: %+v", b.GrandTotal)
	}
}

func TestDiscrepancySignSymmetry(t *testing.T) {
	report := scenarioReport(t)
	a := report.SettlementVsLedger
	b := report.LedgerVsSettlement

	for _, ra := range a.Rows {
		if !ra.Matched {
			continue
		}
		for _, rb := range b.Rows {
			if rb.Key == ra.Key && !ra.Difference.Equal(rb.Difference.Neg()) {
				t.Errorf("key %s: %s is not the negation of %s", ra.Key, ra.Difference, rb.Difference)
			}
		}
	}
	if !a.GrandTotal.Difference.Equal(b.GrandTotal.Difference.Neg()) {
		t.Error("grand total differences should be opposite")
	}
}

func TestGrandTotalKeptOutOfMatching(t *testing.T) {
	report := scenarioReport(t)

	for _, view := range []*View{report.SettlementVsLedger, report.LedgerVsSettlement} {
		sum := decimal.Zero
		for _, row := range view.Rows {
			if row.Key == models.GrandTotalLabel {
				t.Errorf("%s: grand total must not be a keyed row", view.Name)
			}
			sum = sum.Add(row.Amount)
		}
		if !sum.Add(view.Left.ExcludedAmount).Equal(view.GrandTotal.Amount) {
			t.Errorf("%s: rows %s plus excluded %s do not add up to %s",
				view.Name, sum, view.Left.ExcludedAmount, view.GrandTotal.Amount)
		}
	}
}
