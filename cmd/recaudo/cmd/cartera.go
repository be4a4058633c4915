package cmd

import (
	"context"
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

var carteraCmd = &cobra.Command{
	Use:   "cartera",
	Short: "Prepare the portfolio billing export",
	Long: `Cartera keeps the order, identity, name and invoice columns of a
portfolio workbook, fills empty cells and writes the result as xlsx and csv.

Examples:
  recaudo cartera --file cartera.xlsx
  recaudo cartera --file cartera.csv --fill "SIN DATO" --csv-delimiter ";"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, carteraFlagKeys); err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		_, err = runCartera(ctx, settings, afero.NewOsFs(), cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(carteraCmd)

	carteraCmd.Flags().String("file", "", "portfolio file")
	carteraCmd.Flags().StringP("output-dir", "o", "salida", "directory for the generated files")
	carteraCmd.Flags().String("fill", "NA", "value written into empty cells")
	carteraCmd.Flags().String("csv-delimiter", ",", "delimiter of the csv export")
}

var carteraFlagKeys = map[string]string{
	"file":          "inputs.cartera",
	"output-dir":    "output_dir",
	"fill":          "cartera.fill",
	"csv-delimiter": "export.csv_delimiter",
}

func runCartera(ctx context.Context, settings *config.Settings, fs afero.Fs, out io.Writer) (*reconciler.CarteraResult, error) {
	log := logger.GetGlobalLogger()

	paths, err := settings.CarteraPaths()
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
	// ledger extraction is unused in this mode but the orchestrator needs one
	extractor, err := ledger.Build(ledger.DefaultConfig())
	if err != nil {
		return nil, err
	}
	orchestrator, err := reconciler.NewOrchestrator(extractor, settings.ReconcilerConfig(), exporter, log)
	if err != nil {
		return nil, err
	}

	collector := parsers.NewFileCollector(fs, settings.ReaderConfig(), paths)
	result, err := orchestrator.RunCartera(ctx, collector)
	if result != nil {
		if perr := presenter.PresentCartera(out, result); perr != nil && err == nil {
			err = errors.InternalError(errors.CodeUnexpectedError, "present results", perr)
		}
	}
	printWritten(out, exporter.Written())
	return result, err
}
