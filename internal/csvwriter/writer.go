// =============================================================================
// Retail Invoice ETL - Table Writer
// =============================================================================
//
// This module serializes a types.Table to a delimited text file: one header
// row followed by the data rows. Parent directories are created as needed
// and an existing file is replaced.
//
// =============================================================================

package csvwriter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// Options contains options for writing tables.
type Options struct {
	// Comma is the field delimiter.
	// Default: ','
	Comma rune

	// UseCRLF ends lines with \r\n instead of \n.
	UseCRLF bool
}

// DefaultOptions returns comma-delimited, LF-terminated output.
func DefaultOptions() Options {
	return Options{Comma: ','}
}

// WriteFile writes table to path with the default options.
func WriteFile(path string, table types.Table) error {
	return WriteFileWithOptions(path, table, DefaultOptions())
}

// WriteFileWithOptions writes table to path.
func WriteFileWithOptions(path string, table types.Table, options Options) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	buffered := bufio.NewWriter(file)
	if err := Write(buffered, table, options); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := buffered.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}

// Write writes table to w.
func Write(w io.Writer, table types.Table, options Options) error {
	cw := csv.NewWriter(w)
	if options.Comma != 0 {
		cw.Comma = options.Comma
	}
	cw.UseCRLF = options.UseCRLF

	if err := cw.Write(table.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	return cw.Error()
}
