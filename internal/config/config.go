// =============================================================================
// Retail Invoice ETL - Configuration Module
// =============================================================================
//
// This module loads the pipeline configuration. Every input and output path
// the Pipeline Driver touches is a named field here; core components never
// read configuration, they only receive in-memory datasets.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (the data/ and output/ layout)
//   2. The YAML file (config.yaml by default, optional)
//   3. Environment / flag overrides applied by the cmd package via Overrides
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the pipeline configuration.
type MainConfig struct {
	// =========================================================================
	// INPUT
	// =========================================================================

	// RawDataPath is the delimited invoice line file to ingest.
	// Default: "data/raw/transactions.csv"
	RawDataPath string `yaml:"raw_data_path"`

	// CSVSettings controls how the raw file is read.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// REPORTING OUTPUTS
	// =========================================================================

	// ProcessedDataPath receives the cleaned dataset.
	ProcessedDataPath string `yaml:"processed_data_path"`

	// AssumptionsPath receives the free-text abnormalities report.
	AssumptionsPath string `yaml:"assumptions_path"`

	AggCountryPath  string `yaml:"agg_country_path"`
	AggCustomerPath string `yaml:"agg_customer_path"`
	AggMonthlyPath  string `yaml:"agg_monthly_path"`

	// MismatchPath receives fact rows whose TotalPrice does not match
	// round(Quantity * Price, 2).
	MismatchPath string `yaml:"mismatch_path"`

	// SummaryDir receives one run summary file per run.
	SummaryDir string `yaml:"summary_dir"`

	// WorkbookPath, when set, also writes every output table as a sheet of
	// one XLSX workbook.
	WorkbookPath string `yaml:"workbook_path"`

	// =========================================================================
	// WAREHOUSE OUTPUTS
	// =========================================================================

	Warehouse WarehouseConfig `yaml:"warehouse"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the pipeline log file.
	// Default: "output/pipeline.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// CSVSettings contains settings for reading the raw file.
type CSVSettings struct {
	// Delimiter separates fields. Accepts a single character or one of
	// "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is tried first.
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// FallbackEncoding is used when the file is not valid in Encoding.
	// Default: "ISO-8859-1"
	FallbackEncoding string `yaml:"fallback_encoding"`
}

// WarehouseConfig holds the star schema output locations.
type WarehouseConfig struct {
	FactPath        string `yaml:"fact_path"`
	DimCustomerPath string `yaml:"dim_customer_path"`
	DimProductPath  string `yaml:"dim_product_path"`
	DimDatePath     string `yaml:"dim_date_path"`

	// SQLitePath, when set, also loads the star schema into a SQLite file.
	SQLitePath string `yaml:"sqlite_path"`
}

// SupportedEncodings lists the encodings the raw loader can decode.
var SupportedEncodings = []string{"UTF-8", "ISO-8859-1", "Windows-1252"}

// Overrides carries values set from the environment or the command line.
// Empty fields leave the loaded configuration unchanged.
type Overrides struct {
	RawDataPath  string
	LogLevel     string
	WorkbookPath string
	SQLitePath   string
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the configuration from a YAML file. A missing file is
// not an error: the defaults are returned.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var cfg MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Apply copies the non-empty override values into the configuration and
// validates the result.
func (c *MainConfig) Apply(o Overrides) error {
	if o.RawDataPath != "" {
		c.RawDataPath = o.RawDataPath
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.WorkbookPath != "" {
		c.WorkbookPath = o.WorkbookPath
	}
	if o.SQLitePath != "" {
		c.Warehouse.SQLitePath = o.SQLitePath
	}
	return c.Validate()
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(c *MainConfig) {
	setDefault(&c.RawDataPath, "data/raw/transactions.csv")
	setDefault(&c.ProcessedDataPath, "data/processed/final_output.csv")
	setDefault(&c.AssumptionsPath, "output/assumptions.txt")
	setDefault(&c.AggCountryPath, "output/agg_by_country.csv")
	setDefault(&c.AggCustomerPath, "output/agg_by_customer.csv")
	setDefault(&c.AggMonthlyPath, "output/agg_monthly.csv")
	setDefault(&c.MismatchPath, "output/mismatched_totalprice_rows.csv")
	setDefault(&c.SummaryDir, "output")
	setDefault(&c.LogFile, "output/pipeline.log")
	setDefault(&c.LogLevel, "info")

	setDefault(&c.Warehouse.FactPath, "data/warehouse/fact_sales.csv")
	setDefault(&c.Warehouse.DimCustomerPath, "data/warehouse/dim_customer.csv")
	setDefault(&c.Warehouse.DimProductPath, "data/warehouse/dim_product.csv")
	setDefault(&c.Warehouse.DimDatePath, "data/warehouse/dim_date.csv")

	setDefault(&c.CSVSettings.Delimiter, ",")
	setDefault(&c.CSVSettings.Encoding, "UTF-8")
	setDefault(&c.CSVSettings.FallbackEncoding, "ISO-8859-1")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Validate checks the configuration for values the pipeline cannot use.
func (c *MainConfig) Validate() error {
	if strings.TrimSpace(c.RawDataPath) == "" {
		return fmt.Errorf("%w: raw_data_path is required", ErrInvalidConfig)
	}
	if _, err := DelimiterRune(c.CSVSettings.Delimiter); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, enc := range []string{c.CSVSettings.Encoding, c.CSVSettings.FallbackEncoding} {
		if !isSupportedEncoding(enc) {
			return fmt.Errorf("%w: unsupported encoding %q", ErrInvalidConfig, enc)
		}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DelimiterRune resolves the configured delimiter to a single rune.
func DelimiterRune(delimiter string) (rune, error) {
	switch strings.ToLower(delimiter) {
	case "\\t", "\t", "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	case ",", "comma", "":
		return ',', nil
	}
	r := []rune(delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
	}
	return r[0], nil
}

func isSupportedEncoding(name string) bool {
	for _, enc := range SupportedEncodings {
		if strings.EqualFold(enc, name) {
			return true
		}
	}
	return false
}

// OutputPaths lists every file the pipeline may write, for directory setup.
func (c *MainConfig) OutputPaths() []string {
	paths := []string{
		c.ProcessedDataPath,
		c.AssumptionsPath,
		c.AggCountryPath,
		c.AggCustomerPath,
		c.AggMonthlyPath,
		c.MismatchPath,
		c.LogFile,
		c.Warehouse.FactPath,
		c.Warehouse.DimCustomerPath,
		c.Warehouse.DimProductPath,
		c.Warehouse.DimDatePath,
	}
	if c.WorkbookPath != "" {
		paths = append(paths, c.WorkbookPath)
	}
	if c.Warehouse.SQLitePath != "" {
		paths = append(paths, c.Warehouse.SQLitePath)
	}
	return paths
}
