package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"recaudo-reconciliation-service/cmd/recaudo/config"
	"recaudo-reconciliation-service/internal/ledger"
	"recaudo-reconciliation-service/internal/parsers"
	"recaudo-reconciliation-service/internal/reconciler"
	"recaudo-reconciliation-service/internal/reporter"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile a collection batch against the ledger",
	Long: `Run joins the settlement, order and provision tables into the unified
collection table, appends it to the accumulated history and compares the
collected amounts per citizen id against the Siigo ledger.

Outputs written to --output-dir:
  datos_cruzados.xlsx    unified table and both discrepancy views
  base_acumulada.xlsx    accumulated history, the --history input of the next run
  datos_parciales.xlsx   only when the run halts after the first join

Examples:
  # First run, no history yet
  recaudo run --settlement liquidacion.xlsx --orders ordenes.xlsx \
    --provision aprovisionamiento.csv --ledger siigo.xlsx

  # Later runs replace rerun service orders instead of duplicating them
  recaudo run --settlement liquidacion.xlsx --orders ordenes.xlsx \
    --provision aprovisionamiento.csv --ledger siigo.xlsx \
    --history salida/base_acumulada.xlsx --accumulation-mode upsert`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, runFlagKeys); err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		_, err = runRecaudo(ctx, settings, afero.NewOsFs(), cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("settlement", "", "settlement (liquidación) file")
	runCmd.Flags().String("orders", "", "service orders file")
	runCmd.Flags().String("provision", "", "provision file mapping NUI to citizen id")
	runCmd.Flags().String("ledger", "", "Siigo ledger export")
	runCmd.Flags().String("history", "", "accumulated history from the previous run (optional)")
	runCmd.Flags().StringP("output-dir", "o", "salida", "directory for the generated workbooks")
	runCmd.Flags().String("accumulation-mode", "append", "how new rows meet the history: append or upsert")
	runCmd.Flags().StringSlice("dialect", nil, "ledger description dialects, tried in order")
	runCmd.Flags().StringSlice("pattern", nil, "extra ledger description patterns with two capture groups")
	runCmd.Flags().StringP("format", "f", "console", "console output format: console, json")
}

var runFlagKeys = map[string]string{
	"settlement":        "inputs.settlement",
	"orders":            "inputs.orders",
	"provision":         "inputs.provision",
	"ledger":            "inputs.ledger",
	"history":           "inputs.history",
	"output-dir":        "output_dir",
	"accumulation-mode": "accumulation.mode",
	"dialect":           "ledger.dialects",
	"pattern":           "ledger.patterns",
	"format":            "report.format",
}

// runRecaudo reconciles the configured inputs, writes the outputs to fs and
// presents the result on out. Halted runs are presented before their error
// is returned.
func runRecaudo(ctx context.Context, settings *config.Settings, fs afero.Fs, out io.Writer) (*reconciler.RunResult, error) {
	log := logger.GetGlobalLogger()

	paths, err := settings.RecaudoPaths()
	if err != nil {
		return nil, err
	}
	extractor, err := ledger.Build(settings.ExtractorConfig())
	if err != nil {
		return nil, err
	}
	presenter, err := reporter.NewPresenter(settings.ReportConfig())
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", settings.Report, err)
	}
	exporter, err := reporter.NewWorkbookExporter(
		reporter.NewFileDownloader(fs, settings.OutputDir, log), settings.ExportConfig(), log)
	if err != nil {
		return nil, err
	}
	orchestrator, err := reconciler.NewOrchestrator(extractor, settings.ReconcilerConfig(), exporter, log)
	if err != nil {
		return nil, err
	}
	orchestrator.OnTransition(func(t reconciler.Transition) {
		log.WithFields(logger.Fields{"from": t.From, "to": t.To}).Debug("Run state changed")
	})

	collector := parsers.NewFileCollector(fs, settings.ReaderConfig(), paths, reconciler.TableHistory)
	result, runErr := orchestrator.Run(ctx, collector)

	if result != nil && result.State != reconciler.StateFailed {
		if err := presenter.Present(out, result); err != nil {
			return result, errors.InternalError(errors.CodeUnexpectedError, "present results", err)
		}
	}
	printWritten(out, exporter.Written())
	return result, runErr
}

func printWritten(out io.Writer, written []string) {
	if len(written) == 0 {
		return
	}
	fmt.Fprintf(out, "\nFiles written:\n")
	for _, path := range written {
		fmt.Fprintf(out, "  %s\n", path)
	}
}
