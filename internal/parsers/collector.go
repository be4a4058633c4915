package parsers

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// FileCollector provides named input tables from files on an afero filesystem
type FileCollector struct {
	reader   *SpreadsheetReader
	paths    map[string]string
	optional map[string]bool
	logger   logger.Logger
}

// NewFileCollector creates a collector reading the given name to path mapping.
// Names listed in optional may have an empty path and are then provided as nil.
func NewFileCollector(fs afero.Fs, config *ReaderConfig, paths map[string]string, optional ...string) *FileCollector {
	opt := make(map[string]bool, len(optional))
	for _, name := range optional {
		opt[name] = true
	}
	return &FileCollector{
		reader:   NewSpreadsheetReader(fs, config),
		paths:    paths,
		optional: opt,
		logger:   logger.GetGlobalLogger().WithComponent("file_collector"),
	}
}

// Provide reads the table registered under name
func (c *FileCollector) Provide(ctx context.Context, name string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeAborted, "input collection", err)
	}

	path := strings.TrimSpace(c.paths[name])
	if path == "" {
		if c.optional[name] {
			c.logger.WithField("table", name).Info("Optional input not supplied")
			return nil, nil
		}
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, fmt.Sprintf("inputs.%s", name), "", nil)
	}

	tbl, err := c.reader.ReadFile(name, path)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logger.Fields{
		"table":     name,
		"file_path": path,
		"rows":      tbl.Len(),
	}).Info("Input loaded")
	return tbl, nil
}

