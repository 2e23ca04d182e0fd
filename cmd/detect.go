// =============================================================================
// Retail Invoice ETL - Detect Command
// =============================================================================
//
// This file defines the 'detect' command, which loads the raw file and
// prints the abnormalities found in it without cleaning or writing outputs.
//
// COMMAND USAGE:
//   invoice-etl detect [--strict]
//
// OUTPUT:
//   One line per rule that fired: category, affected rows, message.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/retail-invoice-etl/internal/config"
	"github.com/ginjaninja78/retail-invoice-etl/internal/detector"
	"github.com/ginjaninja78/retail-invoice-etl/internal/pipeline"
)

// strict makes detect fail when a must-fix rule fires.
var strict bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report abnormalities in the raw invoice file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when a must-fix abnormality is found")
}

func runDetect(out io.Writer) error {
	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	zl, log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer zl.Sync()

	findings, raw, err := pipeline.New(cfg, log).Inspect()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "=== Abnormalities in %s (%d rows, %s) ===\n", raw.SourceFile, raw.RowCount(), raw.Encoding)
	if len(findings) == 0 {
		fmt.Fprintln(out, "No abnormalities found in raw data.")
		return nil
	}

	mustFix := 0
	for _, f := range findings {
		fmt.Fprintf(out, "  [%-9s] %8d  %s\n", f.Category, f.Rows, f.Message)
		if f.Category == detector.MustFix {
			mustFix++
		}
	}

	if strict && mustFix > 0 {
		return fmt.Errorf("%d must-fix abnormalities found", mustFix)
	}
	return nil
}
