// Package parsers reads spreadsheet inputs into raw tables and decodes
// normalized tables into typed records.
//
// Supported formats:
//   - .xlsx through excelize (raw cell values, so dates arrive as Excel serials)
//   - .xls through xlsReader
//   - .csv with delimiter sniffing and Windows-1252 fallback for non UTF-8 files
//
// Example usage:
//
//	reader := NewSpreadsheetReader(afero.NewOsFs(), DefaultReaderConfig())
//	raw, err := reader.ReadFile("settlement", "liquidacion.xlsx")
//	normalized := table.NewNormalizer(log).Normalize(raw, models.SettlementColumns)
//	batch := NewDecoder(50, log).Settlements(normalized.Table)
package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// ReaderConfig holds options for reading spreadsheet files
type ReaderConfig struct {
	// SheetName selects a sheet by name; empty means the first sheet
	SheetName string `json:"sheet_name,omitempty"`
	// CSVDelimiter forces a delimiter; 0 sniffs it from the header line
	CSVDelimiter rune `json:"csv_delimiter,omitempty"`
	// ValidateEncoding re-decodes non UTF-8 CSV files as Windows-1252
	ValidateEncoding bool `json:"validate_encoding"`
}

// DefaultReaderConfig returns a configuration with sensible defaults
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{ValidateEncoding: true}
}

// SpreadsheetReader loads xlsx, xls and csv files into raw tables
type SpreadsheetReader struct {
	fs     afero.Fs
	config *ReaderConfig
	logger logger.Logger
}

// NewSpreadsheetReader creates a reader over fs
func NewSpreadsheetReader(fs afero.Fs, config *ReaderConfig) *SpreadsheetReader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if config == nil {
		config = DefaultReaderConfig()
	}
	return &SpreadsheetReader{
		fs:     fs,
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("spreadsheet_reader"),
	}
}

// ReadFile opens path on the reader's filesystem and reads it as table name
func (r *SpreadsheetReader) ReadFile(name, path string) (*table.Table, error) {
	r.logger.WithFields(logger.Fields{"table": name, "file_path": path}).Debug("Opening spreadsheet")

	file, err := r.fs.Open(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		case os.IsPermission(err):
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		default:
			return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
		}
	}
	defer file.Close()

	tbl, err := r.Read(name, path, file)
	if err != nil {
		if rerr, ok := errors.AsReconcilerError(err); ok {
			return nil, rerr.WithContext("file_path", path)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return tbl, nil
}

// Read decodes the spreadsheet in src, choosing the format from filename's extension
func (r *SpreadsheetReader) Read(name, filename string, src io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filename, err)
	}

	var rows [][]string
	format := strings.ToLower(filepath.Ext(filename))
	switch format {
	case ".xlsx", ".xlsm":
		rows, err = r.readXLSX(data)
	case ".xls":
		rows, err = r.readXLS(data)
	case ".csv", ".txt":
		rows, err = r.readCSV(data)
	default:
		return nil, errors.FileError(errors.CodeUnsupportedFormat, filename, nil).
			WithContext("extension", format)
	}
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filename, err)
	}

	tbl := table.FromRows(name, rows)
	tbl.Typed = format != ".csv" && format != ".txt"
	r.logger.WithFields(logger.Fields{
		"table":   name,
		"columns": tbl.Width(),
		"rows":    tbl.Len(),
	}).Debug("Spreadsheet read")
	return tbl, nil
}

func (r *SpreadsheetReader) readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheet := sheets[0]
	if r.config.SheetName != "" {
		idx, err := f.GetSheetIndex(r.config.SheetName)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("sheet %q not found", r.config.SheetName)
		}
		sheet = r.config.SheetName
	}

	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func (r *SpreadsheetReader) readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if workbook.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheetIdx := 0
	if r.config.SheetName != "" {
		sheetIdx = -1
		for i := 0; i < workbook.GetNumberSheets(); i++ {
			s, err := workbook.GetSheet(i)
			if err == nil && s.GetName() == r.config.SheetName {
				sheetIdx = i
				break
			}
		}
		if sheetIdx < 0 {
			return nil, fmt.Errorf("sheet %q not found", r.config.SheetName)
		}
	}

	sheet, err := workbook.GetSheet(sheetIdx)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func (r *SpreadsheetReader) readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if r.config.ValidateEncoding && !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("file is neither UTF-8 nor Windows-1252: %w", err)
		}
		r.logger.Debug("CSV is not UTF-8, decoded as Windows-1252")
		data = decoded
	}

	delimiter := r.config.CSVDelimiter
	if delimiter == 0 {
		delimiter = SniffDelimiter(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

// SniffDelimiter picks the most frequent of ';', ',' and tab on the first line
func SniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}

	best, bestCount := ',', 0
	for _, candidate := range []rune{';', ',', '\t'} {
		if n := bytes.Count(line, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}
