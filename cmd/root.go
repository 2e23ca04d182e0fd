// =============================================================================
// Retail Invoice ETL - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (invoice-etl)
//   ├── runCmd     (invoice-etl run)
//   ├── detectCmd  (invoice-etl detect)
//   └── versionCmd (invoice-etl version)
//
// CONFIGURATION:
//   Settings are resolved in this order (later wins):
//   1. Built-in defaults
//   2. The YAML config file (--config or INVOICE_ETL_CONFIG)
//   3. Environment variables with the INVOICE_ETL_ prefix, also read from a
//      .env file in the working directory when present
//   4. Command line flags
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ginjaninja78/retail-invoice-etl/internal/config"
	"github.com/ginjaninja78/retail-invoice-etl/internal/logger"
	"github.com/ginjaninja78/retail-invoice-etl/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// envPrefix prefixes every environment variable the CLI reads.
const envPrefix = "INVOICE_ETL"

// settings resolves flag, environment and .env values.
var settings = viper.New()

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "invoice-etl",
	Short: "Retail Invoice ETL - Clean, aggregate and model retail invoice lines",
	Long: `Retail Invoice ETL is a batch pipeline over a delimited file of retail
invoice lines. It cleans the raw export, reports data-quality abnormalities
before and after cleaning, produces reporting aggregates and builds a star
schema (fact_sales with product, customer and date dimensions).

Example Usage:
  invoice-etl run                          # Run the full pipeline
  invoice-etl run --config ./my.yaml       # Use a custom configuration file
  invoice-etl run --raw data/raw/2011.csv  # Override the input file
  invoice-etl detect                       # Report abnormalities only`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(".env")
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	flags := rootCmd.PersistentFlags()

	flags.String("config", "config.yaml", "Path to the pipeline configuration file")
	flags.String("raw", "", "Path to the raw invoice file (overrides raw_data_path)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	settings.SetEnvPrefix(envPrefix)
	settings.AutomaticEnv()

	// Viper keys use the environment variable suffix.
	settings.BindPFlag("config", flags.Lookup("config"))
	settings.BindPFlag("raw_data_path", flags.Lookup("raw"))
	settings.BindPFlag("log_level", flags.Lookup("log-level"))
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadEnvFile exports the variables of path into the process environment.
// Variables already set are kept. A missing file is not an error.
func loadEnvFile(path string) error {
	if !utils.FileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig reads the configuration file and applies environment and flag
// overrides on top of it.
func loadConfig(extra config.Overrides) (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(settings.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	extra.RawDataPath = settings.GetString("raw_data_path")
	extra.LogLevel = settings.GetString("log_level")
	if verbose {
		extra.LogLevel = "debug"
	}

	if err := cfg.Apply(extra); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the zap logger for cfg and its printf adapter.
func newLogger(cfg *config.MainConfig) (*zap.Logger, *logger.Printf, error) {
	zl, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return zl, logger.NewPrintf(zl), nil
}
