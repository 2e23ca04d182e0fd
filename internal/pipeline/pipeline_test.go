package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/retail-invoice-etl/internal/config"
	"github.com/ginjaninja78/retail-invoice-etl/internal/csvparser"
	"github.com/ginjaninja78/retail-invoice-etl/internal/detector"
)

type entry struct {
	level string
	msg   string
}

// recordingLogger keeps every formatted entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []entry
}

func (l *recordingLogger) log(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{level, fmt.Sprintf(msg, args...)})
}

func (l *recordingLogger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...interface{})  { l.log("info", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...interface{}) { l.log("error", msg, args...) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

const rawCSV = `Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country
536365,85123A, WHITE HANGING HEART ,6,2010-12-01 08:26,2.55,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26,3.39,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26,3.39,17850,United Kingdom
C536379,22752,SET 7 BABUSHKA NESTING BOXES,-3,2010-12-01 09:41,7.65,14527,United Kingdom
536370,POST,POSTAGE,3,2010-12-01 16:45,18.00,12583,France
536371,22633,HAND WARMER UNION JACK,6,2010-12-02 10:05,1.85,,United Kingdom
536372,22632,HAND WARMER RED POLKA DOT,6,2011-01-04 10:00,1.85,17850,France
`

// testConfig points every path into dir.
func testConfig(t *testing.T, dir, raw string) *config.MainConfig {
	t.Helper()

	rawPath := filepath.Join(dir, "data", "raw", "transactions.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(rawPath), 0755))
	require.NoError(t, os.WriteFile(rawPath, []byte(raw), 0644))

	cfg := config.Default()
	cfg.RawDataPath = rawPath
	cfg.ProcessedDataPath = filepath.Join(dir, "data", "processed", "final_output.csv")
	cfg.AssumptionsPath = filepath.Join(dir, "output", "assumptions.txt")
	cfg.AggCountryPath = filepath.Join(dir, "output", "agg_by_country.csv")
	cfg.AggCustomerPath = filepath.Join(dir, "output", "agg_by_customer.csv")
	cfg.AggMonthlyPath = filepath.Join(dir, "output", "agg_monthly.csv")
	cfg.MismatchPath = filepath.Join(dir, "output", "mismatched_totalprice_rows.csv")
	cfg.SummaryDir = filepath.Join(dir, "output")
	cfg.LogFile = filepath.Join(dir, "output", "pipeline.log")
	cfg.Warehouse.FactPath = filepath.Join(dir, "data", "warehouse", "fact_sales.csv")
	cfg.Warehouse.DimCustomerPath = filepath.Join(dir, "data", "warehouse", "dim_customer.csv")
	cfg.Warehouse.DimProductPath = filepath.Join(dir, "data", "warehouse", "dim_product.csv")
	cfg.Warehouse.DimDatePath = filepath.Join(dir, "data", "warehouse", "dim_date.csv")
	require.NoError(t, cfg.Validate())
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, rawCSV)
	log := &recordingLogger{}

	res, err := New(cfg, log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, res.RawRows)
	assert.Equal(t, 4, res.CleanRows)
	assert.Equal(t, 1, res.CleanStats.Duplicates)
	assert.Equal(t, 1, res.CleanStats.MissingRequired)
	assert.Equal(t, 1, res.CleanStats.NonPositive)

	assert.Contains(t, res.RawIssues, detector.MsgNonPositiveQuantity)
	assert.Contains(t, res.RawIssues, detector.MsgMissingCustomerID)
	assert.Equal(t, []string{detector.MsgSystemStockCodes, detector.MsgMultiCountryCustomers}, res.CleanIssues)

	warnings := log.messages("warn")
	assert.Contains(t, warnings, "[RAW] "+detector.MsgNonPositiveQuantity)
	assert.Contains(t, warnings, "[CLEAN] "+detector.MsgSystemStockCodes)
	assert.Empty(t, log.messages("error"))

	var steps []string
	for _, s := range res.Steps {
		steps = append(steps, s.Step)
	}
	assert.Equal(t, []string{"load", "clean", "abnormalities", "aggregate", "star_schema", "save"}, steps)

	report := readFile(t, cfg.AssumptionsPath)
	assert.Contains(t, report, "Issues Detected in Raw Data:\n- "+detector.MsgMissingCustomerID)
	assert.Contains(t, report, "Issues Still Present After Cleaning:\n- "+detector.MsgSystemStockCodes)

	clean := readFile(t, cfg.ProcessedDataPath)
	assert.True(t, strings.HasPrefix(clean, "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country,TotalPrice\n"))
	assert.Contains(t, clean, "536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom,15.30\n")

	assert.Equal(t, "Country,TotalPrice\nFrance,65.10\nUnited Kingdom,35.64\n", readFile(t, cfg.AggCountryPath))
	assert.Equal(t, "InvoiceDate,TotalPrice\n2010-12-01,89.64\n2011-01-01,11.10\n", readFile(t, cfg.AggMonthlyPath))

	assert.Equal(t, "Customer ID,Country,customer_key\n17850,United Kingdom,1\n12583,France,2\n17850,France,3\n",
		readFile(t, cfg.Warehouse.DimCustomerPath))
	assert.Equal(t, "Invoice,product_id,customer_key,date_key,Quantity,Price,TotalPrice\n",
		readFile(t, cfg.MismatchPath))
	assert.Len(t, strings.Split(strings.TrimSpace(readFile(t, cfg.Warehouse.FactPath)), "\n"), 5)

	require.NotEmpty(t, res.SummaryFile)
	summary := readFile(t, res.SummaryFile)
	assert.Contains(t, summary, res.RunID)
	assert.Contains(t, summary, "date_key Collisions: 1")
	assert.Len(t, res.OutputFiles, 10)
}

func TestRun_WorkbookAndSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, rawCSV)
	cfg.WorkbookPath = filepath.Join(dir, "output", "report.xlsx")
	cfg.Warehouse.SQLitePath = filepath.Join(dir, "data", "warehouse", "warehouse.db")

	res, err := New(cfg, &recordingLogger{}).Run(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, cfg.WorkbookPath)
	assert.FileExists(t, cfg.Warehouse.SQLitePath)
	assert.Contains(t, res.OutputFiles, cfg.WorkbookPath)
	assert.Contains(t, res.OutputFiles, cfg.Warehouse.SQLitePath)
	assert.Equal(t, "workbook", res.Steps[len(res.Steps)-1].Step)
}

func TestRun_MissingColumnIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Country\n1,A,B,1,2010-12-01,1.00,UK\n")
	log := &recordingLogger{}

	res, err := New(cfg, log).Run(context.Background())
	require.ErrorIs(t, err, csvparser.ErrMissingColumn)

	assert.True(t, strings.HasPrefix(err.Error(), "load: "))
	assert.Empty(t, res.SummaryFile)
	require.Len(t, log.messages("error"), 1)
	assert.Contains(t, log.messages("error")[0], res.RunID)
	assert.NoFileExists(t, cfg.ProcessedDataPath)
}

func TestRun_MissingInputFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, rawCSV)
	cfg.RawDataPath = filepath.Join(dir, "absent.csv")

	_, err := New(cfg, &recordingLogger{}).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_Rerun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, rawCSV)

	_, err := New(cfg, &recordingLogger{}).Run(context.Background())
	require.NoError(t, err)
	first := readFile(t, cfg.Warehouse.FactPath)

	_, err = New(cfg, &recordingLogger{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, readFile(t, cfg.Warehouse.FactPath))
}

func TestInspect(t *testing.T) {
	cfg := testConfig(t, t.TempDir(), rawCSV)

	findings, raw, err := New(cfg, &recordingLogger{}).Inspect()
	require.NoError(t, err)

	assert.Equal(t, 7, raw.RowCount())
	require.NotEmpty(t, findings)
	assert.Equal(t, detector.MsgMissingCustomerID, findings[0].Message)
	assert.Equal(t, 1, findings[0].Rows)
}

func TestNewWithRunID(t *testing.T) {
	p := NewWithRunID(config.Default(), &recordingLogger{}, "fixed")
	assert.Equal(t, "fixed", p.RunID())
	assert.NotEqual(t, New(config.Default(), &recordingLogger{}).RunID(), "")
}
