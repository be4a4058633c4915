package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"recaudo-reconciliation-service/cmd/recaudo/config"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	configErr error
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recaudo",
	Short: "Collection reconciliation tool",
	Long: `Recaudo reconciles the payments reported by the collection agent
(settlement, service orders and provision) against the accounting ledger
exported from Siigo, and keeps the accumulated collection history up to date.

Examples:
  recaudo run --settlement liquidacion.xlsx --orders ordenes.xlsx \
    --provision aprovisionamiento.csv --ledger siigo.xlsx --history base_acumulada.xlsx
  recaudo cartera --file cartera.xlsx --output-dir salida
  recaudo sample --dir muestra
  recaudo version`,
	Version:       getVersionString(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	return NewCLIErrorHandler(os.Stderr).HandleError(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, yaml/json/toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with RECAUDO_ variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig loads the .env file, the config file and the environment
func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", envFile, err)
		}
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			configErr = errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
				WithSuggestion("check that the config file exists and its syntax is valid")
			return
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
		}
	}
}

// bindFlags binds the running command's flags to their setting keys. Flags
// are bound per command since several commands share a key.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, key, name, err)
		}
	}
	return nil
}

// loadSettings validates the merged settings and installs the global logger
func loadSettings() (*config.Settings, error) {
	if configErr != nil {
		return nil, configErr
	}

	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(settings.LoggerConfig(verbose))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", settings.Log, err)
	}
	logger.SetGlobalLogger(log)
	return settings, nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "recaudo %s\n", getVersionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
