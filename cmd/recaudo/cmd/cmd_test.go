package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"recaudo-reconciliation-service/cmd/recaudo/config"
	"recaudo-reconciliation-service/internal/fixtures"
	"recaudo-reconciliation-service/internal/reconciler"
	"recaudo-reconciliation-service/pkg/errors"
)

func testSettings(t *testing.T, values map[string]interface{}) *config.Settings {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	for key, value := range values {
		v.Set(key, value)
	}
	s, err := config.Load(v)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	return s
}

// scenarioFiles writes the sample inputs into an in-memory filesystem
func scenarioFiles(t *testing.T) (afero.Fs, map[string]string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	paths, err := fixtures.WriteScenario(fs, "in")
	if err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return fs, paths
}

func recaudoValues(paths map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"inputs.settlement": paths[fixtures.Settlement],
		"inputs.orders":     paths[fixtures.Orders],
		"inputs.provision":  paths[fixtures.Provision],
		"inputs.ledger":     paths[fixtures.Ledger],
		"output_dir":        "out",
	}
}

func TestRunRecaudo(t *testing.T) {
	fs, paths := scenarioFiles(t)
	settings := testSettings(t, recaudoValues(paths))

	var out bytes.Buffer
	result, err := runRecaudo(context.Background(), settings, fs, &out)
	if err != nil {
		t.Fatalf("runRecaudo() error = %v", err)
	}
	if result.State != reconciler.StateExported {
		t.Errorf("state = %s, want %s", result.State, reconciler.StateExported)
	}
	if result.Join.Unified.Len() != len(fixtures.SettlementRows())-1 {
		t.Errorf("unified rows = %d", result.Join.Unified.Len())
	}

	for _, name := range []string{settings.Export.RecaudoFile, settings.Export.AccumulatedFile} {
		if ok, _ := afero.Exists(fs, filepath.Join("out", name)); !ok {
			t.Errorf("%s not written", name)
		}
	}
	for _, want := range []string{"=== SETTLEMENT VS LEDGER ===", "Files written:", fixtures.UnreferencedDescription} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRunRecaudo_WithHistory(t *testing.T) {
	fs, paths := scenarioFiles(t)
	values := recaudoValues(paths)

	if _, err := runRecaudo(context.Background(), testSettings(t, values), fs, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	newRows := len(fixtures.SettlementRows()) - 1
	tests := []struct {
		mode     string
		combined int
	}{
		{"append", 2 * newRows},
		{"upsert", newRows},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			values := recaudoValues(paths)
			values["inputs.history"] = filepath.Join("out", "base_acumulada.xlsx")
			values["accumulation.mode"] = tt.mode
			values["output_dir"] = "out-" + tt.mode

			result, err := runRecaudo(context.Background(), testSettings(t, values), fs, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("second run: %v", err)
			}
			if result.Accumulation.HistoryRows != newRows {
				t.Errorf("history rows = %d, want %d", result.Accumulation.HistoryRows, newRows)
			}
			if result.Accumulation.CombinedRows != tt.combined {
				t.Errorf("combined rows = %d, want %d", result.Accumulation.CombinedRows, tt.combined)
			}
		})
	}
}

func TestRunRecaudo_Halted(t *testing.T) {
	fs, paths := scenarioFiles(t)

	data, err := fixtures.XLSX("orders", fixtures.OrderRows()[:3])
	if err != nil {
		t.Fatalf("build orders: %v", err)
	}
	short := filepath.Join("in", "ordenes_cortas.xlsx")
	if err := afero.WriteFile(fs, short, data, 0o644); err != nil {
		t.Fatalf("write orders: %v", err)
	}

	values := recaudoValues(paths)
	values["inputs.orders"] = short

	var out bytes.Buffer
	result, err := runRecaudo(context.Background(), testSettings(t, values), fs, &out)
	if !errors.HasCode(err, errors.CodeRecordCountMismatch) {
		t.Fatalf("error = %v, want record count mismatch", err)
	}
	if result.State != reconciler.StateHalted {
		t.Errorf("state = %s, want %s", result.State, reconciler.StateHalted)
	}
	if !strings.Contains(out.String(), "=== HALTED ===") {
		t.Errorf("output missing halt section:\n%s", out.String())
	}
	if ok, _ := afero.DirExists(fs, "out"); ok {
		t.Error("a halted run must not write outputs")
	}
}

func TestRunRecaudo_MissingInputs(t *testing.T) {
	settings := testSettings(t, nil)
	_, err := runRecaudo(context.Background(), settings, afero.NewMemMapFs(), &bytes.Buffer{})
	if !errors.HasCode(err, errors.CodeMissingConfig) {
		t.Errorf("error = %v, want missing config", err)
	}
}

func TestRunRecaudo_UnreadableInput(t *testing.T) {
	fs, paths := scenarioFiles(t)
	values := recaudoValues(paths)
	values["inputs.ledger"] = filepath.Join("in", "no_existe.xlsx")

	result, err := runRecaudo(context.Background(), testSettings(t, values), fs, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
	if result.State != reconciler.StateFailed {
		t.Errorf("state = %s, want %s", result.State, reconciler.StateFailed)
	}
}

func TestRunCartera(t *testing.T) {
	fs, paths := scenarioFiles(t)
	settings := testSettings(t, map[string]interface{}{
		"inputs.cartera":       paths[fixtures.Cartera],
		"output_dir":           "out",
		"export.csv_delimiter": ";",
	})

	var out bytes.Buffer
	result, err := runCartera(context.Background(), settings, fs, &out)
	if err != nil {
		t.Fatalf("runCartera() error = %v", err)
	}
	if result.Filled == 0 {
		t.Error("expected filled cells")
	}

	for _, ext := range []string{".xlsx", ".csv"} {
		path := filepath.Join("out", settings.Export.CarteraFile+ext)
		if ok, _ := afero.Exists(fs, path); !ok {
			t.Errorf("%s not written", path)
		}
	}
	if !strings.Contains(out.String(), "PORTFOLIO") {
		t.Errorf("output = %s", out.String())
	}
}

func TestRunSample(t *testing.T) {
	fs := afero.NewMemMapFs()
	var out bytes.Buffer

	if err := runSample(fs, "muestra", &out); err != nil {
		t.Fatalf("runSample() error = %v", err)
	}
	for _, name := range fixtures.Files {
		if ok, _ := afero.Exists(fs, filepath.Join("muestra", name)); !ok {
			t.Errorf("%s not written", name)
		}
	}
	if !strings.Contains(out.String(), "recaudo run --settlement") {
		t.Errorf("output = %s", out.String())
	}
}

func TestRunSample_ReadOnly(t *testing.T) {
	err := runSample(afero.NewReadOnlyFs(afero.NewMemMapFs()), "muestra", &bytes.Buffer{})
	rerr, ok := errors.AsReconcilerError(err)
	if !ok || rerr.Category != errors.CategoryFile {
		t.Errorf("error = %v, want file category", err)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{"nil", nil, 0, ""},
		{"halt", errors.EmptyTableError("settlement"), 5, "The run stopped"},
		{"configuration", errors.ConfigurationError(errors.CodeMissingConfig, "inputs.ledger", "", nil), 4, "Suggestion:"},
		{"export", errors.ExportError("datos_cruzados.xlsx", os.ErrPermission), 7, "Export error help"},
		{"file not found", &os.PathError{Op: "open", Path: "x.xlsx", Err: os.ErrNotExist}, 2, "File not found"},
		{"flag error", stringError("unknown flag: --foo"), 1, "recaudo --help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := NewCLIErrorHandler(&out)

			if got := h.HandleError(tt.err); got != tt.wantCode {
				t.Errorf("HandleError() = %d, want %d", got, tt.wantCode)
			}
			if !strings.Contains(out.String(), tt.wantText) {
				t.Errorf("output %q missing %q", out.String(), tt.wantText)
			}
		})
	}
}

type stringError string

func (e stringError) Error() string { return string(e) }

func TestVersion(t *testing.T) {
	defer SetVersionInfo("dev", "unknown", "unknown")

	SetVersionInfo("1.4.0", "abc123", "2024-03-01")
	if got := getVersionString(); got != "1.4.0" {
		t.Errorf("getVersionString() = %q", got)
	}

	SetVersionInfo("dev", "abc123", "2024-03-01")
	if got := getVersionString(); got != "dev (commit abc123, built 2024-03-01)" {
		t.Errorf("getVersionString() = %q", got)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "recaudo dev") {
		t.Errorf("output = %q", out.String())
	}
}
