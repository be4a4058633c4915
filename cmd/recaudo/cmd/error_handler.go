package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	out     io.Writer
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a handler printing to out
func NewCLIErrorHandler(out io.Writer) *CLIErrorHandler {
	return &CLIErrorHandler{
		out:     out,
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints err and returns the exit code for it
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		if reconcilerErr.IsHalt() {
			h.logger.WithField("code", reconcilerErr.Code).Warn("Run halted")
		} else {
			h.logger.WithError(err).Error("Command failed")
		}
		return h.handleReconcilerError(reconcilerErr)
	}

	h.logger.WithError(err).Error("Command failed")
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and close the file if a spreadsheet program holds it\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	// flag and argument errors from cobra land here
	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'recaudo --help' for usage.\n")
	return 1
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that every input path exists and is readable
• Close the workbook if it is open in a spreadsheet program
• Supported inputs are .xlsx, .xls and .csv`

	case errors.CategoryParse:
		return `Parse error help:
• Check that the header row is the first row of the sheet
• Compare the headers with the expected names listed above
• Save CSV files as UTF-8 or Windows-1252`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and the --config file
• RECAUDO_ environment variables and the .env file override the config file
• Use 'recaudo <command> --help' to see all available options`

	case errors.CategoryPrecondition:
		return `The run stopped before producing a reconciliation:
• Settlement and order files must have the same number of rows
• Every input must have at least one row
• Join keys DOCUMENTO, NUMERO_ORDEN, IDENTIFICACION and NUI must be present
Partial results, when available, were written to the output directory.`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• The run was interrupted or failed between stages
• Run again; outputs are rewritten from scratch on every run`

	case errors.CategoryExport:
		return `Export error help:
• Check that the output directory is writable
• Close previous output workbooks before running again`

	default:
		return `For more help:
• Use 'recaudo --help' for general help
• Run with --verbose for the underlying error`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if err == syscall.ENOSPC {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
