package table

import (
	"reflect"
	"testing"

	"recaudo-reconciliation-service/pkg/logger"
)

func TestFromRows(t *testing.T) {
	rows := [][]string{
		{"Documento", "Fecha", ""},
		{"1001", "2024-01-05"},
		{"", "  "},
		{"1002", "2024-01-06", "extra"},
	}

	tbl := FromRows("settlement", rows)

	if !reflect.DeepEqual(tbl.Columns, []string{"Documento", "Fecha"}) {
		t.Errorf("unexpected header: %v", tbl.Columns)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected blank row to be dropped, got %d rows", tbl.Len())
	}
	if !reflect.DeepEqual(tbl.Rows[1], []string{"1002", "2024-01-06"}) {
		t.Errorf("long row not cut to header width: %v", tbl.Rows[1])
	}
	if FromRows("empty", nil).Width() != 0 {
		t.Error("no rows should give an empty table")
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{" documento ", "DOCUMENTO"},
		{"Código Proyecto", "CÓDIGO PROYECTO"},
		{"débito", "DÉBITO"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Canonical(tt.input); got != tt.expected {
			t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestProject(t *testing.T) {
	raw := New("orders", []string{"factura", " NUMERO_ORDEN", "Otra", "FACTURA"})
	raw.Append([]string{"FE 10", "500", "x", "ignored"})
	raw.Append([]string{"FE 11"})

	projected, missing := raw.Canonicalize().Project([]string{"NUMERO_ORDEN", "IDENTIFICACION", "FACTURA"})

	if !reflect.DeepEqual(projected.Columns, []string{"NUMERO_ORDEN", "FACTURA"}) {
		t.Errorf("columns should follow expected order: %v", projected.Columns)
	}
	if !reflect.DeepEqual(missing, []string{"IDENTIFICACION"}) {
		t.Errorf("unexpected missing list: %v", missing)
	}
	if projected.Rows[0][1] != "FE 10" {
		t.Errorf("first duplicate header should win, got %q", projected.Rows[0][1])
	}
	if projected.Rows[1][0] != "" || projected.Rows[1][1] != "FE 11" {
		t.Errorf("short row should be padded: %v", projected.Rows[1])
	}
}

func TestTruncateAndClone(t *testing.T) {
	tbl := New("history", []string{"A", "B", "C"})
	tbl.Append([]string{"1", "2", "3"})

	cut := tbl.Truncate(2)
	if cut.Width() != 2 || !reflect.DeepEqual(cut.Rows[0], []string{"1", "2"}) {
		t.Errorf("unexpected truncation: %v %v", cut.Columns, cut.Rows)
	}
	if tbl.Truncate(10).Width() != 3 {
		t.Error("truncating past the width should keep every column")
	}

	clone := tbl.Clone()
	clone.Rows[0][0] = "changed"
	if tbl.Rows[0][0] != "1" {
		t.Error("clone should not share row storage")
	}
}

func TestAlign(t *testing.T) {
	tbl := New("history", []string{"A", "C", "D"})
	tbl.Append([]string{"1", "3", "4"})
	tbl.Typed = true

	aligned := tbl.Align([]string{"A", "B", "c"})
	if !reflect.DeepEqual(aligned.Columns, []string{"A", "B", "c"}) {
		t.Errorf("unexpected columns: %v", aligned.Columns)
	}
	if !reflect.DeepEqual(aligned.Rows[0], []string{"1", "", "3"}) {
		t.Errorf("cells should follow their column names: %v", aligned.Rows[0])
	}
	if !aligned.Typed {
		t.Error("align should keep the typed flag")
	}
}

func TestValueAndColumn(t *testing.T) {
	tbl := New("provision", []string{"NUI", "CC"})
	tbl.Append([]string{"7", "100"})

	if tbl.Value(0, "cc") != "100" {
		t.Errorf("lookup should be case-insensitive, got %q", tbl.Value(0, "cc"))
	}
	if tbl.Value(0, "PROYECTO") != "" || tbl.Value(5, "NUI") != "" {
		t.Error("absent column or row should give an empty value")
	}
	if !reflect.DeepEqual(tbl.Column("NUI"), []string{"7"}) {
		t.Errorf("unexpected column values: %v", tbl.Column("NUI"))
	}
	if tbl.Column("missing") != nil {
		t.Error("absent column should return nil")
	}
}

func TestNormalizerHints(t *testing.T) {
	raw := New("ledger", []string{"Descripción", "Debito"})
	raw.Append([]string{"FV-1-10 20", "5000"})

	result := NewNormalizer(logger.Discard()).Normalize(raw, []string{"DESCRIPCIÓN", "DÉBITO"})

	if !reflect.DeepEqual(result.Table.Columns, []string{"DESCRIPCIÓN"}) {
		t.Errorf("unexpected projection: %v", result.Table.Columns)
	}
	if !reflect.DeepEqual(result.Missing, []string{"DÉBITO"}) {
		t.Errorf("unexpected missing list: %v", result.Missing)
	}
	if result.Hints["DÉBITO"] != "DEBITO" {
		t.Errorf("expected DEBITO as hint, got %q", result.Hints["DÉBITO"])
	}
}

func TestNormalizeNil(t *testing.T) {
	result := NewNormalizer(logger.Discard()).Normalize(nil, []string{"NUI"})
	if result.Table.Len() != 0 || len(result.Missing) != 1 {
		t.Errorf("nil table should project to an empty table: %+v", result)
	}
	if len(result.Hints) != 0 {
		t.Errorf("no headers means no hints: %v", result.Hints)
	}
}
