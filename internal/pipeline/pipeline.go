// =============================================================================
// Retail Invoice ETL - Pipeline Driver
// =============================================================================
//
// This module sequences one batch run over the raw invoice file.
//
// PIPELINE:
//   1. Load the raw file
//   2. Clean it
//   3. Detect abnormalities on the raw and the cleaned data, write the report
//   4. Aggregate the cleaned data
//   5. Build the star schema, write its tables and the mismatch side-report,
//      optionally load it into SQLite
//   6. Write the cleaned dataset and the aggregates
//   7. Optionally write every table into one workbook
//   8. Write the run summary
//
// Every step is timed and logged. The first failing step stops the run; its
// error is logged with the step name and returned. Files written by earlier
// steps are left in place.
//
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ginjaninja78/retail-invoice-etl/internal/aggregate"
	"github.com/ginjaninja78/retail-invoice-etl/internal/cleaner"
	"github.com/ginjaninja78/retail-invoice-etl/internal/config"
	"github.com/ginjaninja78/retail-invoice-etl/internal/csvparser"
	"github.com/ginjaninja78/retail-invoice-etl/internal/csvwriter"
	"github.com/ginjaninja78/retail-invoice-etl/internal/detector"
	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
	"github.com/ginjaninja78/retail-invoice-etl/internal/warehouse"
	"github.com/ginjaninja78/retail-invoice-etl/internal/xlsxwriter"
	"github.com/ginjaninja78/retail-invoice-etl/pkg/utils"
)

// =============================================================================
// LOGGER
// =============================================================================

// Logger is the printf-style logging surface the driver needs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one run.
type Result struct {
	RunID string

	RawRows    int
	CleanRows  int
	CleanStats cleaner.Stats

	RawIssues   []string
	CleanIssues []string

	Aggregates aggregate.Result
	Star       *warehouse.Result

	// OutputFiles lists every file written, in write order.
	OutputFiles []string

	// SummaryFile is the run summary path; empty if the run failed first.
	SummaryFile string

	Steps    []utils.StepDuration
	Duration time.Duration
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline runs the ETL steps for one configuration.
type Pipeline struct {
	cfg    *config.MainConfig
	logger Logger
	runID  string
}

// New creates a Pipeline with a fresh run id.
func New(cfg *config.MainConfig, logger Logger) *Pipeline {
	return NewWithRunID(cfg, logger, utils.NewRunID())
}

// NewWithRunID creates a Pipeline for a run id chosen by the caller.
func NewWithRunID(cfg *config.MainConfig, logger Logger, runID string) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		runID:  runID,
	}
}

// RunID returns the identifier of this pipeline's run.
func (p *Pipeline) RunID() string {
	return p.runID
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes every step. On error the partial Result is returned with it.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: p.runID}

	p.logger.Info("Starting ETL run %s", p.runID)

	if err := utils.EnsureParentDirs(p.cfg.OutputPaths()...); err != nil {
		p.logger.Error("Pipeline failed while preparing output directories: %v", err)
		return res, err
	}

	// =========================================================================
	// STEP 1: LOAD
	// =========================================================================

	var raw *csvparser.Dataset
	err := p.step(res, "load", func() error {
		p.logger.Info("Loading raw data from %s...", p.cfg.RawDataPath)
		var err error
		raw, err = csvparser.Parse(p.cfg.RawDataPath, p.cfg.CSVSettings)
		if err != nil {
			return err
		}
		res.RawRows = raw.RowCount()
		p.logger.Info("Raw data loaded: %d rows x %d columns (%s)", raw.RowCount(), len(raw.Headers), raw.Encoding)
		return nil
	})
	if err != nil {
		return res, err
	}

	// =========================================================================
	// STEP 2: CLEAN
	// =========================================================================

	var clean []types.InvoiceLine
	_ = p.step(res, "clean", func() error {
		clean, res.CleanStats = cleaner.CleanWithStats(raw.Records)
		res.CleanRows = len(clean)
		s := res.CleanStats
		p.logger.Info("Data cleaned. Rows before: %d, after: %d", s.Input, s.Output)
		p.logger.Debug("Dropped: duplicates=%d missing=%d description=%d non_positive=%d timestamp=%d normalized=%d",
			s.Duplicates, s.MissingRequired, s.BadDescription, s.NonPositive, s.BadTimestamp, s.Normalized)
		return nil
	})

	// =========================================================================
	// STEP 3: ABNORMALITIES
	// =========================================================================

	err = p.step(res, "abnormalities", func() error {
		p.logger.Info("Checking for abnormalities (raw vs clean)...")
		res.RawIssues = detector.Detect(raw.Records)
		res.CleanIssues = detector.Detect(types.ToRaw(clean))

		p.logIssues("RAW", res.RawIssues, "No abnormalities found in raw data.")
		p.logIssues("CLEAN", res.CleanIssues, "No abnormalities found in cleaned data.")

		return p.write(res, p.cfg.AssumptionsPath, func(path string) error {
			return utils.WriteAbnormalityReport(path, utils.AbnormalityReport{
				RunID:       p.runID,
				GeneratedAt: time.Now(),
				RawIssues:   res.RawIssues,
				CleanIssues: res.CleanIssues,
			})
		})
	})
	if err != nil {
		return res, err
	}

	// =========================================================================
	// STEP 4: AGGREGATE
	// =========================================================================

	_ = p.step(res, "aggregate", func() error {
		p.logger.Info("Aggregating data for reporting...")
		res.Aggregates = aggregate.Aggregate(clean)
		p.logger.Debug("Aggregates: %d countries, %d customers, %d months",
			len(res.Aggregates.ByCountry), len(res.Aggregates.ByCustomer), len(res.Aggregates.Monthly))
		return nil
	})

	// =========================================================================
	// STEP 5: STAR SCHEMA
	// =========================================================================

	err = p.step(res, "star_schema", func() error {
		p.logger.Info("Building data warehouse (star schema) tables...")
		star, err := warehouse.BuildStarSchema(clean)
		if err != nil {
			return err
		}
		res.Star = star

		if n := warehouse.DateKeyCollisions(star.DimDate); n > 0 {
			p.logger.Warn("%d dim_date rows share a date_key with an earlier timestamp on the same day", n)
		}
		if len(star.Mismatches) > 0 {
			p.logger.Warn("%d fact rows have a TotalPrice that does not match Quantity x Price", len(star.Mismatches))
		}

		if err := p.writeTables(res, []namedTable{
			{p.cfg.Warehouse.FactPath, types.NewTable("fact_sales", star.Fact)},
			{p.cfg.Warehouse.DimCustomerPath, types.NewTable("dim_customer", star.DimCustomer)},
			{p.cfg.Warehouse.DimProductPath, types.NewTable("dim_product", star.DimProduct)},
			{p.cfg.Warehouse.DimDatePath, types.NewTable("dim_date", star.DimDate)},
			{p.cfg.MismatchPath, types.NewTable("mismatched_totalprice_rows", star.Mismatches)},
		}); err != nil {
			return err
		}

		if p.cfg.Warehouse.SQLitePath != "" {
			return p.loadSQLite(ctx, res, &star.StarSchema)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	// =========================================================================
	// STEP 6: SAVE REPORTING OUTPUTS
	// =========================================================================

	err = p.step(res, "save", func() error {
		p.logger.Info("Saving output files...")
		return p.writeTables(res, []namedTable{
			{p.cfg.ProcessedDataPath, types.NewTable("final_output", clean)},
			{p.cfg.AggCountryPath, types.NewTable("agg_by_country", res.Aggregates.ByCountry)},
			{p.cfg.AggCustomerPath, types.NewTable("agg_by_customer", res.Aggregates.ByCustomer)},
			{p.cfg.AggMonthlyPath, types.NewTable("agg_monthly", res.Aggregates.Monthly)},
		})
	})
	if err != nil {
		return res, err
	}

	// =========================================================================
	// STEP 7: WORKBOOK
	// =========================================================================

	if p.cfg.WorkbookPath != "" {
		err = p.step(res, "workbook", func() error {
			return p.write(res, p.cfg.WorkbookPath, func(path string) error {
				return xlsxwriter.WriteWorkbook(path, p.allTables(clean, res))
			})
		})
		if err != nil {
			return res, err
		}
	}

	// =========================================================================
	// STEP 8: SUMMARY
	// =========================================================================

	res.Duration = time.Since(start)
	summaryPath, err := utils.WriteSummaryLog(p.summary(res, raw, start), p.cfg.SummaryDir)
	if err != nil {
		p.logger.Error("Pipeline failed while writing the run summary: %v", err)
		return res, fmt.Errorf("summary: %w", err)
	}
	res.SummaryFile = summaryPath

	p.logger.Info("ETL pipeline completed successfully in %s (summary: %s)", res.Duration, summaryPath)
	return res, nil
}

// Inspect loads the raw file and runs the detector over it only.
func (p *Pipeline) Inspect() ([]detector.Finding, *csvparser.Dataset, error) {
	raw, err := csvparser.Parse(p.cfg.RawDataPath, p.cfg.CSVSettings)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}
	return detector.Inspect(raw.Records), raw, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// step times fn, records its duration and logs failures with their context.
func (p *Pipeline) step(res *Result, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	res.Steps = append(res.Steps, utils.StepDuration{Step: name, Duration: elapsed})

	if err != nil {
		p.logger.Error("Pipeline failed in step %s after %s (run %s): %v", name, elapsed, p.runID, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Info("Step %s completed in %s", name, elapsed)
	return nil
}

func (p *Pipeline) logIssues(tag string, issues []string, none string) {
	if len(issues) == 0 {
		p.logger.Info("%s", none)
		return
	}
	for _, issue := range issues {
		p.logger.Warn("[%s] %s", tag, issue)
	}
}

type namedTable struct {
	path  string
	table types.Table
}

func (p *Pipeline) writeTables(res *Result, tables []namedTable) error {
	comma, err := config.DelimiterRune(p.cfg.CSVSettings.Delimiter)
	if err != nil {
		return err
	}
	opts := csvwriter.Options{Comma: comma}

	for _, t := range tables {
		if err := p.write(res, t.path, func(path string) error {
			return csvwriter.WriteFileWithOptions(path, t.table, opts)
		}); err != nil {
			return err
		}
		p.logger.Debug("Wrote %s (%d rows)", t.path, len(t.table.Rows))
	}
	return nil
}

// write runs fn and records path as an output on success.
func (p *Pipeline) write(res *Result, path string, fn func(path string) error) error {
	if err := fn(path); err != nil {
		return err
	}
	res.OutputFiles = append(res.OutputFiles, path)
	return nil
}

func (p *Pipeline) loadSQLite(ctx context.Context, res *Result, star *warehouse.StarSchema) error {
	path := p.cfg.Warehouse.SQLitePath
	db, err := warehouse.OpenSQLite(path)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sqlite handle: %w", err)
	}
	defer sqlDB.Close()

	if err := p.write(res, path, func(string) error {
		return warehouse.Load(ctx, db, star)
	}); err != nil {
		return err
	}
	p.logger.Info("Star schema loaded into %s", path)
	return nil
}

func (p *Pipeline) allTables(clean []types.InvoiceLine, res *Result) []types.Table {
	return []types.Table{
		types.NewTable("final_output", clean),
		types.NewTable("agg_by_country", res.Aggregates.ByCountry),
		types.NewTable("agg_by_customer", res.Aggregates.ByCustomer),
		types.NewTable("agg_monthly", res.Aggregates.Monthly),
		types.NewTable("fact_sales", res.Star.Fact),
		types.NewTable("dim_customer", res.Star.DimCustomer),
		types.NewTable("dim_product", res.Star.DimProduct),
		types.NewTable("dim_date", res.Star.DimDate),
	}
}

func (p *Pipeline) summary(res *Result, raw *csvparser.Dataset, start time.Time) utils.ProcessingSummary {
	s := res.CleanStats
	return utils.ProcessingSummary{
		RunID:     res.RunID,
		StartTime: start,
		EndTime:   start.Add(res.Duration),
		InputFile: raw.SourceFile,
		Encoding:  raw.Encoding,
		RawRows:   res.RawRows,
		CleanRows: res.CleanRows,
		DroppedRows: map[string]int{
			"duplicates":     s.Duplicates,
			"missing_fields": s.MissingRequired,
			"bad_descr":      s.BadDescription,
			"non_positive":   s.NonPositive,
			"bad_timestamp":  s.BadTimestamp,
			"normalized_dup": s.Normalized,
		},
		RawIssues:   len(res.RawIssues),
		CleanIssues: len(res.CleanIssues),
		TableRows: map[string]int{
			"fact_sales":      len(res.Star.Fact),
			"dim_product":     len(res.Star.DimProduct),
			"dim_customer":    len(res.Star.DimCustomer),
			"dim_date":        len(res.Star.DimDate),
			"agg_by_country":  len(res.Aggregates.ByCountry),
			"agg_by_customer": len(res.Aggregates.ByCustomer),
			"agg_monthly":     len(res.Aggregates.Monthly),
		},
		DateKeyCollisions: warehouse.DateKeyCollisions(res.Star.DimDate),
		Mismatches:        len(res.Star.Mismatches),
		StepDurations:     res.Steps,
		OutputFiles:       res.OutputFiles,
	}
}
