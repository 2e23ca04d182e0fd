// =============================================================================
// Retail Invoice ETL - Raw Loader
// =============================================================================
//
// This module reads the raw invoice line file into typed records. It:
//   - Decodes the file as UTF-8, falling back to one alternate encoding
//     (ISO-8859-1 by default) when the bytes are not valid UTF-8
//   - Trims whitespace around column headers
//   - Checks that every required column is present
//   - Converts each row into a types.RawRecord, keeping cell values verbatim
//     and turning empty or unreadable cells into nulls
//
// Data rules are NOT applied here; they belong to the cleaner.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/retail-invoice-etl/internal/config"
	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing required column")

// utf8BOM is stripped from the start of UTF-8 files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// DATASET STRUCTURE
// =============================================================================

// Dataset represents the parsed raw file.
type Dataset struct {
	// Headers contains the trimmed column headers, in file order.
	Headers []string

	// Records contains one RawRecord per non-blank data row.
	Records []types.RawRecord

	// SourceFile is the path to the source file.
	SourceFile string

	// Encoding is the encoding the file was decoded with.
	Encoding string
}

// RowCount is the number of data rows.
func (d *Dataset) RowCount() int {
	return len(d.Records)
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the raw file at filePath.
func Parse(filePath string, settings config.CSVSettings) (*Dataset, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	ds, err := ParseBytes(data, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	ds.SourceFile = filePath
	return ds, nil
}

// ParseBytes parses raw file contents already held in memory.
func ParseBytes(data []byte, settings config.CSVSettings) (*Dataset, error) {
	text, usedEncoding, err := decode(data, settings)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(bytes.NewReader(text))
	if err := configureReader(csvReader, settings); err != nil {
		return nil, err
	}

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers := cleanHeaders(allRows[0])
	index, err := columnIndex(headers)
	if err != nil {
		return nil, err
	}

	records := make([]types.RawRecord, 0, len(allRows)-1)
	for _, row := range allRows[1:] {
		if isRowEmpty(row) {
			continue
		}
		records = append(records, toRecord(row, index))
	}

	return &Dataset{
		Headers:  headers,
		Records:  records,
		Encoding: usedEncoding,
	}, nil
}

// decode returns the file contents as UTF-8. The primary encoding is tried
// first; UTF-8 input that is not valid UTF-8 switches to the fallback.
func decode(data []byte, settings config.CSVSettings) ([]byte, string, error) {
	primary := settings.Encoding
	if isUTF8(primary) {
		if utf8.Valid(data) {
			return bytes.TrimPrefix(data, utf8BOM), primary, nil
		}
		primary = settings.FallbackEncoding
		if isUTF8(primary) {
			return nil, "", fmt.Errorf("file is not valid UTF-8 and no alternate encoding is configured")
		}
	}

	enc, err := lookupEncoding(primary)
	if err != nil {
		return nil, "", err
	}
	text, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode file as %s: %w", primary, err)
	}
	return text, primary, nil
}

func isUTF8(name string) bool {
	n := strings.ToUpper(strings.ReplaceAll(name, "-", ""))
	return n == "UTF8" || n == ""
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(name) {
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) error {
	comma, err := config.DelimiterRune(settings.Delimiter)
	if err != nil {
		return err
	}
	reader.Comma = comma

	// Short or long rows are tolerated; missing cells read as empty.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return nil
}

// cleanHeaders trims whitespace around every header.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}

// columnIndex maps each required column to its position.
func columnIndex(headers []string) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range types.RawColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

// toRecord converts a data row into a RawRecord.
func toRecord(row []string, index map[string]int) types.RawRecord {
	cell := func(col string) string {
		if i := index[col]; i < len(row) {
			return row[i]
		}
		return ""
	}

	return types.RawRecord{
		Invoice:     nullableString(cell(types.ColInvoice)),
		StockCode:   cell(types.ColStockCode),
		Description: nullableString(cell(types.ColDescription)),
		Quantity:    parseQuantity(cell(types.ColQuantity)),
		Price:       parsePrice(cell(types.ColPrice)),
		InvoiceDate: nullableString(cell(types.ColInvoiceDate)),
		CustomerID:  nullableString(cell(types.ColCustomerID)),
		Country:     cell(types.ColCountry),
	}
}

// nullableString treats an empty cell as null. Whitespace-only cells are
// values.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseQuantity accepts integers, including integral decimals such as "6.0".
func parseQuantity(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if q, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &q
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return nil
	}
	q := d.IntPart()
	return &q
}

func parsePrice(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
