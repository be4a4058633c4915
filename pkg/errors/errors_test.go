package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "precondition halt",
			category:   CategoryPrecondition,
			code:       CodeRecordCountMismatch,
			message:    "counts differ",
			expectCode: 5,
		},
		{
			name:       "export error",
			category:   CategoryExport,
			code:       CodeExportFailed,
			message:    "disk full",
			cause:      errors.New("no space left on device"),
			expectCode: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a captured stack trace")
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryFile, CodeFileNotFound, "x") != nil {
		t.Error("wrapping nil should return nil")
	}
	if WrapIfNeeded(nil, CategoryFile, CodeFileNotFound, "x") != nil {
		t.Error("WrapIfNeeded(nil) should return nil")
	}
}

func TestHaltConstructors(t *testing.T) {
	mismatch := RecordCountMismatchError(3, 4)
	if !mismatch.IsHalt() || mismatch.Code != CodeRecordCountMismatch {
		t.Errorf("unexpected mismatch error: %+v", mismatch)
	}
	if mismatch.Context["settlement_records"] != 3 || mismatch.Context["order_records"] != 4 {
		t.Errorf("counts missing from context: %v", mismatch.Context)
	}

	keys := MissingJoinKeysError("provision", []string{"NUI"})
	if !keys.IsHalt() || keys.Code != CodeMissingJoinKeys {
		t.Errorf("unexpected key error: %+v", keys)
	}
	if !strings.Contains(keys.Message, "NUI") {
		t.Errorf("message should name the missing column: %s", keys.Message)
	}

	empty := EmptyTableError("ledger")
	if !empty.IsHalt() || empty.Code != CodeEmptyTable {
		t.Errorf("unexpected empty error: %+v", empty)
	}

	if ExportError("x.xlsx", errors.New("boom")).IsHalt() {
		t.Error("export errors are not halts")
	}
}

func TestAsReconcilerErrorThroughWrapping(t *testing.T) {
	base := EmptyTableError("orders")
	wrapped := fmt.Errorf("collecting inputs: %w", base)

	got, ok := AsReconcilerError(wrapped)
	if !ok || got != base {
		t.Fatalf("expected to find the original error in the chain")
	}
	if !HasCode(wrapped, CodeEmptyTable) {
		t.Error("HasCode should see through fmt wrapping")
	}
	if HasCode(errors.New("plain"), CodeEmptyTable) {
		t.Error("plain errors carry no code")
	}
	if IsReconcilerError(wrapped) {
		t.Error("IsReconcilerError only checks the top-level value")
	}
	if WrapIfNeeded(wrapped, CategoryInternal, CodeUnexpectedError, "x") != base {
		t.Error("WrapIfNeeded should return the existing ReconcilerError")
	}
}

func TestConfigurationError(t *testing.T) {
	err := ConfigurationError(CodeInvalidConfig, "accumulation.mode", "merge", nil)
	if err.Category != CategoryConfiguration {
		t.Errorf("expected configuration category, got %s", err.Category)
	}
	if err.Context["setting"] != "accumulation.mode" {
		t.Errorf("setting missing from context: %v", err.Context)
	}
	if !strings.Contains(err.Error(), "suggestion") {
		t.Errorf("error string should include the suggestion: %s", err.Error())
	}
}

func TestIssueCollector(t *testing.T) {
	collector := NewIssueCollector(2)
	for i := 0; i < 3; i++ {
		collector.Add(&CellIssue{
			Table:  "settlement",
			Row:    i + 2,
			Column: "VALOR MOVILIZADO",
			Value:  "abc",
			Code:   CodeInvalidData,
			Reason: "not a number",
		})
	}
	collector.Add(&CellIssue{Table: "settlement", Row: 9, Column: "FECHA", Code: CodeInvalidFormat, Reason: "bad date"})

	if collector.Count() != 4 {
		t.Errorf("expected 4 issues counted, got %d", collector.Count())
	}
	if len(collector.Issues()) != 2 {
		t.Errorf("expected 2 retained issues, got %d", len(collector.Issues()))
	}
	if collector.CountByCode(CodeInvalidData) != 3 {
		t.Errorf("expected 3 invalid data issues, got %d", collector.CountByCode(CodeInvalidData))
	}
	summary := collector.Summary()
	if !strings.Contains(summary, "4 cell issue(s)") || !strings.Contains(summary, "and 2 more") {
		t.Errorf("unexpected summary:\n%s", summary)
	}

	parseErr := collector.Issues()[0].AsReconcilerError()
	if parseErr.Category != CategoryParse || parseErr.Context["row"] != 2 {
		t.Errorf("unexpected parse error conversion: %+v", parseErr)
	}

	if NewIssueCollector(0).Summary() != "no issues" {
		t.Error("empty collector should report no issues")
	}
}
