package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

const validConfigYAML = `
raw_data_path: "input/online_retail.csv"
csv_settings:
  delimiter: "tab"
  fallback_encoding: "Windows-1252"
processed_data_path: "out/clean.csv"
workbook_path: "out/report.xlsx"
warehouse:
  fact_path: "dw/fact.csv"
  sqlite_path: "dw/warehouse.db"
log_level: "debug"
`

func TestLoadMainConfig(t *testing.T) {
	cfg, err := LoadMainConfig(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "input/online_retail.csv", cfg.RawDataPath)
	assert.Equal(t, "tab", cfg.CSVSettings.Delimiter)
	assert.Equal(t, "UTF-8", cfg.CSVSettings.Encoding)
	assert.Equal(t, "Windows-1252", cfg.CSVSettings.FallbackEncoding)
	assert.Equal(t, "out/clean.csv", cfg.ProcessedDataPath)
	assert.Equal(t, "out/report.xlsx", cfg.WorkbookPath)
	assert.Equal(t, "dw/fact.csv", cfg.Warehouse.FactPath)
	assert.Equal(t, "data/warehouse/dim_date.csv", cfg.Warehouse.DimDatePath)
	assert.Equal(t, "dw/warehouse.db", cfg.Warehouse.SQLitePath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "data/raw/transactions.csv", cfg.RawDataPath)
	assert.Equal(t, "output/mismatched_totalprice_rows.csv", cfg.MismatchPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.WorkbookPath)
	assert.Empty(t, cfg.Warehouse.SQLitePath)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad delimiter", "csv_settings:\n  delimiter: \"::\"\n"},
		{"bad encoding", "csv_settings:\n  encoding: \"EBCDIC\"\n"},
		{"bad level", "log_level: \"loud\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(createTempConfigFile(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMainConfig_MalformedYAML(t *testing.T) {
	_, err := LoadMainConfig(createTempConfigFile(t, "raw_data_path: [unclosed\n"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestApply(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Apply(Overrides{
		RawDataPath: "other.csv",
		SQLitePath:  "dw.db",
	}))
	assert.Equal(t, "other.csv", cfg.RawDataPath)
	assert.Equal(t, "dw.db", cfg.Warehouse.SQLitePath)
	assert.Equal(t, "info", cfg.LogLevel)

	err := cfg.Apply(Overrides{LogLevel: "chatty"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDelimiterRune(t *testing.T) {
	tests := map[string]rune{
		",":         ',',
		"":          ',',
		"tab":       '\t',
		`\t`:        '\t',
		"PIPE":      '|',
		"semicolon": ';',
		"#":         '#',
	}
	for in, want := range tests {
		got, err := DelimiterRune(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := DelimiterRune("ab")
	assert.Error(t, err)
}

func TestOutputPaths(t *testing.T) {
	cfg := Default()
	assert.NotContains(t, cfg.OutputPaths(), "")

	cfg.WorkbookPath = "out/report.xlsx"
	assert.Contains(t, cfg.OutputPaths(), "out/report.xlsx")
}
