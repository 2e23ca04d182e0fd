// =============================================================================
// Retail Invoice ETL - Run Command
// =============================================================================
//
// This file defines the 'run' command, which executes the whole pipeline
// once over the configured raw file.
//
// COMMAND USAGE:
//   invoice-etl run [flags]
//
// FLAGS:
//   --workbook : Also write every output table into one XLSX workbook
//   --sqlite   : Also load the star schema into a SQLite database file
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/retail-invoice-etl/internal/config"
	"github.com/ginjaninja78/retail-invoice-etl/internal/pipeline"
	"github.com/ginjaninja78/retail-invoice-etl/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var workbookPath string

var sqlitePath string

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ETL pipeline",
	Long: `The run command loads the raw invoice file, cleans it, writes the
abnormalities report, the cleaned dataset, the reporting aggregates and the
star schema tables, then writes a run summary.

On error:
  - The failing step and the run id are logged
  - Files written by earlier steps are left in place
  - The command exits with a non-zero status`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&workbookPath, "workbook", "", "Also write all tables to this XLSX workbook")
	runCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Also load the star schema into this SQLite file")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runPipeline(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(config.Overrides{
		WorkbookPath: workbookPath,
		SQLitePath:   sqlitePath,
	})
	if err != nil {
		return err
	}

	zl, log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer zl.Sync()

	runID := utils.NewRunID()
	p := pipeline.NewWithRunID(cfg, log.With("run_id", runID), runID)
	res, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("run %s failed: %w", res.RunID, err)
	}

	fmt.Println("\n=== ETL Run Complete ===")
	fmt.Printf("Run:             %s\n", res.RunID)
	fmt.Printf("Raw rows:        %d\n", res.RawRows)
	fmt.Printf("Clean rows:      %d\n", res.CleanRows)
	fmt.Printf("Fact rows:       %d\n", len(res.Star.Fact))
	fmt.Printf("Mismatches:      %d\n", len(res.Star.Mismatches))
	fmt.Printf("Files written:   %d\n", len(res.OutputFiles))
	fmt.Printf("Time elapsed:    %s\n", res.Duration)
	fmt.Printf("Summary:         %s\n", res.SummaryFile)

	return nil
}
