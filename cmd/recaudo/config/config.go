// Package config loads the CLI settings from flags, environment, .env and
// an optional config file, and turns them into package configurations.
package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"recaudo-reconciliation-service/internal/ledger"
	"recaudo-reconciliation-service/internal/parsers"
	"recaudo-reconciliation-service/internal/reconciler"
	"recaudo-reconciliation-service/internal/reporter"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// EnvPrefix prefixes every environment variable, e.g. RECAUDO_OUTPUT_DIR
const EnvPrefix = "RECAUDO"

// Inputs maps each input table to a file
type Inputs struct {
	Settlement string `mapstructure:"settlement"`
	Orders     string `mapstructure:"orders"`
	Provision  string `mapstructure:"provision"`
	Ledger     string `mapstructure:"ledger"`
	// History is optional; leave empty on the first run
	History string `mapstructure:"history"`
	Cartera string `mapstructure:"cartera"`
}

// LedgerSettings selects how ledger descriptions are parsed
type LedgerSettings struct {
	Dialects        []string `mapstructure:"dialects" validate:"dive,oneof=standard fe-prefixed"`
	Patterns        []string `mapstructure:"patterns"`
	InvoicePrefixes []string `mapstructure:"invoice_prefixes"`
}

type JoinSettings struct {
	InvoicePrefixes []string `mapstructure:"invoice_prefixes"`
}

type AccumulationSettings struct {
	Mode          string `mapstructure:"mode" validate:"required,oneof=append upsert"`
	PaymentMethod string `mapstructure:"payment_method" validate:"required"`
}

type CarteraSettings struct {
	Fill string `mapstructure:"fill" validate:"required"`
}

type ReaderSettings struct {
	Sheet            string `mapstructure:"sheet"`
	CSVDelimiter     string `mapstructure:"csv_delimiter" validate:"omitempty,len=1"`
	ValidateEncoding bool   `mapstructure:"validate_encoding"`
}

type ReportSettings struct {
	Format      string `mapstructure:"format" validate:"oneof=console json"`
	PreviewRows int    `mapstructure:"preview_rows" validate:"gte=0"`
	MaxViewRows int    `mapstructure:"max_view_rows" validate:"gte=0"`
}

type LimitSettings struct {
	MaxIssueSamples     int `mapstructure:"max_issue_samples" validate:"gte=0"`
	MaxUnmatchedSamples int `mapstructure:"max_unmatched_samples" validate:"gte=0"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	Output string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	File   string `mapstructure:"file" validate:"required_if=Output file"`
}

// Settings is everything a command can be configured with
type Settings struct {
	Inputs       Inputs                `mapstructure:"inputs"`
	OutputDir    string                `mapstructure:"output_dir" validate:"required"`
	Ledger       LedgerSettings        `mapstructure:"ledger"`
	Join         JoinSettings          `mapstructure:"join"`
	Accumulation AccumulationSettings  `mapstructure:"accumulation"`
	Cartera      CarteraSettings       `mapstructure:"cartera"`
	Reader       ReaderSettings        `mapstructure:"reader"`
	Export       reporter.ExportConfig `mapstructure:"export"`
	Report       ReportSettings        `mapstructure:"report"`
	Limits       LimitSettings         `mapstructure:"limits"`
	Log          LogSettings           `mapstructure:"log"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for environment variables to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	rc := reconciler.DefaultConfig()
	lc := ledger.DefaultConfig()
	ec := reporter.DefaultExportConfig()
	pc := reporter.DefaultReportConfig()
	logc := logger.DefaultConfig()

	for _, key := range []string{"settlement", "orders", "provision", "ledger", "history", "cartera"} {
		v.SetDefault("inputs."+key, "")
	}
	v.SetDefault("output_dir", "salida")

	v.SetDefault("ledger.dialects", lc.Dialects)
	v.SetDefault("ledger.patterns", append([]string{}, lc.Patterns...))
	v.SetDefault("ledger.invoice_prefixes", lc.InvoicePrefixes)
	v.SetDefault("join.invoice_prefixes", rc.InvoicePrefixes)

	v.SetDefault("accumulation.mode", string(rc.Accumulation.Mode))
	v.SetDefault("accumulation.payment_method", rc.Accumulation.PaymentMethod)
	v.SetDefault("cartera.fill", rc.CarteraFill)

	v.SetDefault("reader.sheet", "")
	v.SetDefault("reader.csv_delimiter", "")
	v.SetDefault("reader.validate_encoding", true)

	v.SetDefault("export.recaudo_file", ec.RecaudoFile)
	v.SetDefault("export.accumulated_file", ec.AccumulatedFile)
	v.SetDefault("export.partial_file", ec.PartialFile)
	v.SetDefault("export.cartera_file", ec.CarteraFile)
	v.SetDefault("export.data_sheet", ec.DataSheet)
	v.SetDefault("export.summary_sheet", ec.SummarySheet)
	v.SetDefault("export.accumulated_sheet", ec.AccumulatedSheet)
	v.SetDefault("export.partial_sheet", ec.PartialSheet)
	v.SetDefault("export.cartera_sheet", ec.CarteraSheet)
	v.SetDefault("export.summary_row", ec.SummaryRow)
	v.SetDefault("export.settlement_view_column", ec.SettlementViewColumn)
	v.SetDefault("export.settlement_unmatched_column", ec.SettlementUnmatchedColumn)
	v.SetDefault("export.ledger_view_column", ec.LedgerViewColumn)
	v.SetDefault("export.ledger_unmatched_column", ec.LedgerUnmatchedColumn)
	v.SetDefault("export.csv_delimiter", ec.CSVDelimiter)

	v.SetDefault("report.format", string(pc.Format))
	v.SetDefault("report.preview_rows", pc.PreviewRows)
	v.SetDefault("report.max_view_rows", pc.MaxViewRows)

	v.SetDefault("limits.max_issue_samples", rc.MaxIssueSamples)
	v.SetDefault("limits.max_unmatched_samples", rc.MaxUnmatchedSamples)

	v.SetDefault("log.level", string(logc.Level))
	v.SetDefault("log.format", string(logc.Format))
	v.SetDefault("log.output", string(logc.Output))
	v.SetDefault("log.file", "")
}

// BindEnv makes RECAUDO_SECTION_KEY override section.key
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "settings", v.ConfigFileUsed(), err).
			WithSuggestion("check the types of the values in the config file and environment")
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// normalize puts the enumerated settings in the form their validation expects
func (s *Settings) normalize() {
	for i, d := range s.Ledger.Dialects {
		s.Ledger.Dialects[i] = strings.ToLower(strings.TrimSpace(d))
	}
	s.Accumulation.Mode = strings.ToLower(strings.TrimSpace(s.Accumulation.Mode))
}

var validate = newValidator()

// newValidator reports fields by their setting keys
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the settings and reports every invalid field at once
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "settings", nil, err)
		}

		fields := make(map[string]string, len(fieldErrs))
		values := make(map[string]interface{}, len(fieldErrs))
		names := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			name := settingName(fe.Namespace())
			fields[name] = describe(fe)
			values[name] = fe.Value()
			names = append(names, name)
		}
		sort.Strings(names)

		rerr := errors.ConfigurationError(errors.CodeInvalidConfig, names[0], values[names[0]],
			fmt.Errorf("%s", fields[names[0]])).
			WithSuggestion("fix the listed settings in the config file, environment or flags")
		for _, name := range names {
			rerr = rerr.WithContext(name, fields[name])
		}
		return rerr
	}

	if err := s.Export.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "export", nil, err).
			WithSuggestion("check the export sheet names, file names and offsets")
	}
	return nil
}

// settingName turns Settings.accumulation.mode into accumulation.mode
func settingName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + fe.Param()
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// RecaudoPaths returns the input files of a Recaudo run. History may be empty.
func (s *Settings) RecaudoPaths() (map[string]string, error) {
	paths := map[string]string{
		reconciler.TableSettlement: s.Inputs.Settlement,
		reconciler.TableOrders:     s.Inputs.Orders,
		reconciler.TableProvision:  s.Inputs.Provision,
		reconciler.TableLedger:     s.Inputs.Ledger,
		reconciler.TableHistory:    s.Inputs.History,
	}
	var missing []string
	for _, name := range []string{reconciler.TableSettlement, reconciler.TableOrders, reconciler.TableProvision, reconciler.TableLedger} {
		if strings.TrimSpace(paths[name]) == "" {
			missing = append(missing, "inputs."+name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, missing[0], "", nil).
			WithContext("missing", strings.Join(missing, ", ")).
			WithSuggestion("pass --settlement, --orders, --provision and --ledger")
	}
	return paths, nil
}

// CarteraPaths returns the input file of a Cartera run
func (s *Settings) CarteraPaths() (map[string]string, error) {
	if strings.TrimSpace(s.Inputs.Cartera) == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "inputs.cartera", "", nil).
			WithSuggestion("pass --file with the portfolio workbook")
	}
	return map[string]string{reconciler.TableCartera: s.Inputs.Cartera}, nil
}

// ExtractorConfig returns the ledger extraction settings
func (s *Settings) ExtractorConfig() ledger.Config {
	return ledger.Config{
		Dialects:        s.Ledger.Dialects,
		Patterns:        s.Ledger.Patterns,
		InvoicePrefixes: s.Ledger.InvoicePrefixes,
	}
}

// ReconcilerConfig returns the run settings
func (s *Settings) ReconcilerConfig() *reconciler.Config {
	return &reconciler.Config{
		InvoicePrefixes: s.Join.InvoicePrefixes,
		Accumulation: reconciler.AccumulationConfig{
			Mode:          reconciler.AccumulationMode(s.Accumulation.Mode),
			PaymentMethod: s.Accumulation.PaymentMethod,
		},
		CarteraFill:         s.Cartera.Fill,
		MaxIssueSamples:     s.Limits.MaxIssueSamples,
		MaxUnmatchedSamples: s.Limits.MaxUnmatchedSamples,
	}
}

// ReaderConfig returns the spreadsheet reader settings
func (s *Settings) ReaderConfig() *parsers.ReaderConfig {
	c := &parsers.ReaderConfig{
		SheetName:        s.Reader.Sheet,
		ValidateEncoding: s.Reader.ValidateEncoding,
	}
	if s.Reader.CSVDelimiter != "" {
		c.CSVDelimiter = []rune(s.Reader.CSVDelimiter)[0]
	}
	return c
}

// ExportConfig returns a copy of the export layout
func (s *Settings) ExportConfig() *reporter.ExportConfig {
	c := s.Export
	return &c
}

// ReportConfig returns the console presentation settings
func (s *Settings) ReportConfig() *reporter.ReportConfig {
	return &reporter.ReportConfig{
		Format:      reporter.OutputFormat(s.Report.Format),
		PreviewRows: s.Report.PreviewRows,
		MaxViewRows: s.Report.MaxViewRows,
	}
}

// LoggerConfig returns the logger settings; verbose forces debug level
func (s *Settings) LoggerConfig(verbose bool) *logger.Config {
	c := &logger.Config{
		Level:  logger.Level(s.Log.Level),
		Format: logger.Format(s.Log.Format),
		Output: logger.Output(s.Log.Output),
		File:   s.Log.File,
	}
	if verbose {
		c.Level = logger.DebugLevel
	}
	return c
}
