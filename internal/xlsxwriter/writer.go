// =============================================================================
// Retail Invoice ETL - Workbook Writer
// =============================================================================
//
// This module writes several tables into one XLSX workbook, one sheet per
// table, with a bold frozen header row. It is an optional companion to the
// delimited outputs for analysts who open results in a spreadsheet.
//
// Cell values stay text except for columns listed as numeric, which are
// written as numbers so spreadsheet sums work.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// maxSheetName is the sheet name length limit of the XLSX format.
const maxSheetName = 31

// numericColumns are written as numbers when their value parses.
var numericColumns = map[string]bool{
	types.ColQuantity:   true,
	types.ColPrice:      true,
	types.ColTotalPrice: true,
	"product_id":        true,
	"customer_key":      true,
	"date_key":          true,
	"year":              true,
	"month":             true,
	"day":               true,
}

// WriteWorkbook writes tables to a new workbook at path, replacing any
// existing file. Sheets appear in the order given.
func WriteWorkbook(path string, tables []types.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, table := range tables {
		name := sheetName(table.Name)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}

		if err := writeSheet(f, name, table, headerStyle); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, table types.Table, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	// Panes must be set before the first row is streamed.
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	header := make([]interface{}, len(table.Header))
	for i, h := range table.Header {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{}); err != nil {
		return err
	}

	for r, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for c, v := range row {
			cells[c] = cellValue(table.Header, c, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}

	return sw.Flush()
}

func cellValue(header []string, col int, v string) interface{} {
	if col < len(header) && numericColumns[header[col]] {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return v
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
