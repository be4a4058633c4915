package reporter

import (
	"context"

	"github.com/xuri/excelize/v2"

	"recaudo-reconciliation-service/internal/reconciler"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

var _ reconciler.Exporter = (*WorkbookExporter)(nil)

// WorkbookExporter writes run outputs as workbooks through a Downloader
type WorkbookExporter struct {
	downloader Downloader
	config     *ExportConfig
	logger     logger.Logger
	written    []string
}

// NewWorkbookExporter creates an exporter
func NewWorkbookExporter(downloader Downloader, config *ExportConfig, log logger.Logger) (*WorkbookExporter, error) {
	if config == nil {
		config = DefaultExportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "export", config, err).
			WithSuggestion("check the export sheet names, file names and offsets")
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &WorkbookExporter{
		downloader: downloader,
		config:     config,
		logger:     log.WithComponent("exporter"),
	}, nil
}

// Written returns the paths written so far
func (e *WorkbookExporter) Written() []string {
	out := make([]string, len(e.written))
	copy(out, e.written)
	return out
}

func (e *WorkbookExporter) offer(ctx context.Context, data []byte, filename, mime string) error {
	if err := ctx.Err(); err != nil {
		return errors.ReconciliationError(errors.CodeAborted, "export", err)
	}
	path, err := e.downloader.OfferDownload(data, filename, mime)
	if err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryExport, errors.CodeExportFailed, "failed to export "+filename)
	}
	e.written = append(e.written, path)
	return nil
}

func (e *WorkbookExporter) offerWorkbook(ctx context.Context, build func() (*excelize.File, error), filename string) error {
	f, err := build()
	if err != nil {
		return errors.ExportError(filename, err)
	}
	data, err := Encode(f)
	if err != nil {
		return errors.ExportError(filename, err)
	}
	return e.offer(ctx, data, filename, MimeXLSX)
}

// ExportRecaudo writes the unified workbook and the accumulated ledger
func (e *WorkbookExporter) ExportRecaudo(ctx context.Context, result *reconciler.RunResult) error {
	err := e.offerWorkbook(ctx, func() (*excelize.File, error) {
		return RecaudoWorkbook(result, e.config)
	}, e.config.RecaudoFile)
	if err != nil {
		return err
	}

	if result.Accumulation != nil {
		err = e.offerWorkbook(ctx, func() (*excelize.File, error) {
			return TableWorkbook(result.Accumulation.Table, e.config.AccumulatedSheet)
		}, e.config.AccumulatedFile)
		if err != nil {
			return err
		}
	}

	e.logger.WithFields(logger.Fields{
		"run_id": result.RunID,
		"files":  len(e.written),
	}).Info("Reconciliation exported")
	return nil
}

// ExportPartial writes the settlement-order table of a halted run
func (e *WorkbookExporter) ExportPartial(ctx context.Context, result *reconciler.RunResult) error {
	if result.Join == nil || result.Join.Partial == nil {
		return nil
	}
	return e.offerWorkbook(ctx, func() (*excelize.File, error) {
		return UnifiedWorkbook(result.Join.Partial, e.config.PartialSheet)
	}, e.config.PartialFile)
}

// ExportCartera writes the portfolio as xlsx and csv
func (e *WorkbookExporter) ExportCartera(ctx context.Context, result *reconciler.CarteraResult) error {
	xlsxName := e.config.CarteraFile + ".xlsx"
	err := e.offerWorkbook(ctx, func() (*excelize.File, error) {
		return TableWorkbook(result.Table, e.config.CarteraSheet)
	}, xlsxName)
	if err != nil {
		return err
	}

	csvName := e.config.CarteraFile + ".csv"
	data, err := CSV(result.Table, e.config.Delimiter())
	if err != nil {
		return errors.ExportError(csvName, err)
	}
	return e.offer(ctx, data, csvName, MimeCSV)
}
