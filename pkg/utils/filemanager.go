// =============================================================================
// Retail Invoice ETL - File Manager Utility
// =============================================================================
//
// This module provides the file utilities of the Pipeline Driver:
//   - Directory management for every configured output path
//   - The free-text abnormalities report
//   - The per-run processing summary
//   - Run identifiers and generated file names
//
// Files already written stay on disk when a later step fails.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureParentDirs creates the parent directory of every path.
//
// RETURNS:
//   - An error if any directory cannot be created.
func EnsureParentDirs(paths ...string) error {
	created := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if created[dir] {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		created[dir] = true
	}
	return nil
}

// =============================================================================
// RUN IDENTIFIERS AND FILE NAMING
// =============================================================================

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}

// GenerateOutputFileName generates a file name from a format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {<key>}     - Any key of params
//   - params: A map of placeholder values.
//   - ext: Extension appended when the result does not already end with it.
//
// EXAMPLE:
//   format: "run_summary_{timestamp}_{run}"
//   params: {"run": "1f0c..."}
//   output: "run_summary_20240115_143022_1f0c....txt"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.NewString(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// ABNORMALITIES REPORT
// =============================================================================

// AbnormalityReport holds the detector output of both passes.
type AbnormalityReport struct {
	RunID       string
	GeneratedAt time.Time
	RawIssues   []string
	CleanIssues []string
}

// WriteAbnormalityReport writes the report to path, replacing any existing
// file.
func WriteAbnormalityReport(path string, report AbnormalityReport) error {
	if err := EnsureParentDirs(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create abnormalities report: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Assumptions & Abnormalities:\n")
	fmt.Fprintf(writer, "Run: %s\n", report.RunID)
	fmt.Fprintf(writer, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	writeIssues(writer, "Issues Detected in Raw Data:", report.RawIssues, "No abnormalities found in raw data.")
	writer.WriteString("\n")
	writeIssues(writer, "Issues Still Present After Cleaning:", report.CleanIssues, "No abnormalities found in cleaned data.")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush abnormalities report: %w", err)
	}
	return file.Close()
}

func writeIssues(w *bufio.Writer, title string, issues []string, none string) {
	w.WriteString(title + "\n")
	if len(issues) == 0 {
		w.WriteString("- " + none + "\n")
		return
	}
	for _, issue := range issues {
		w.WriteString("- " + issue + "\n")
	}
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a pipeline run.
type ProcessingSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	InputFile string
	Encoding  string

	RawRows     int
	CleanRows   int
	DroppedRows map[string]int

	RawIssues   int
	CleanIssues int

	TableRows map[string]int

	// DateKeyCollisions counts dim_date rows sharing a date_key with an
	// earlier row.
	DateKeyCollisions int

	Mismatches int

	StepDurations []StepDuration
	OutputFiles   []string
}

// StepDuration records how long one pipeline step took.
type StepDuration struct {
	Step     string
	Duration time.Duration
}

// WriteSummaryLog writes a processing summary into outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", outputDir, err)
	}

	shortID := summary.RunID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := GenerateOutputFileName("run_summary_{timestamp}_{run}", map[string]string{"run": shortID}, ".txt")
	summaryPath := filepath.Join(outputDir, name)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Retail Invoice ETL - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Input File:     %s\n"+
		"  Encoding:       %s\n\n"+
		"Statistics:\n"+
		"  Raw Rows:            %d\n"+
		"  Clean Rows:          %d\n"+
		"  Raw Issues:          %d\n"+
		"  Clean Issues:        %d\n"+
		"  TotalPrice Mismatch: %d\n"+
		"  date_key Collisions: %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.InputFile,
		summary.Encoding,
		summary.RawRows,
		summary.CleanRows,
		summary.RawIssues,
		summary.CleanIssues,
		summary.Mismatches,
		summary.DateKeyCollisions)

	writeCounts(writer, "Dropped Rows:", summary.DroppedRows)
	writeCounts(writer, "Table Rows:", summary.TableRows)

	if len(summary.StepDurations) > 0 {
		writer.WriteString("Step Durations:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, s := range summary.StepDurations {
			fmt.Fprintf(writer, "  %-20s %s\n", s.Step, s.Duration)
		}
		writer.WriteString("\n")
	}

	if len(summary.OutputFiles) > 0 {
		writer.WriteString("Output Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.OutputFiles {
			fmt.Fprintf(writer, "  %s\n", f)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// writeCounts writes a name -> count section in sorted name order.
func writeCounts(w *bufio.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	w.WriteString(title + "\n")
	w.WriteString("--------------------------------------------------------------------------------\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %d\n", name, counts[name])
	}
	w.WriteString("\n")
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
