// =============================================================================
// Retail Invoice ETL - Shared Types
// =============================================================================
//
// This package contains the typed records shared by every stage of the
// pipeline. Keeping them here avoids import cycles between:
//   - csvparser   (produces RawRecord)
//   - cleaner     (RawRecord -> InvoiceLine)
//   - detector    (observes RawRecord)
//   - aggregate   (produces reporting rows)
//   - warehouse   (produces dimension and fact rows)
//   - csvwriter / xlsxwriter (serialize Table)
//
// =============================================================================

package types

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================

// Column headers of the invoice line file. The cleaned output keeps the same
// names and appends ColTotalPrice.
const (
	ColInvoice     = "Invoice"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColPrice       = "Price"
	ColCustomerID  = "Customer ID"
	ColCountry     = "Country"
	ColTotalPrice  = "TotalPrice"
)

// RawColumns lists the required columns of the raw file, in file order.
var RawColumns = []string{
	ColInvoice,
	ColStockCode,
	ColDescription,
	ColQuantity,
	ColInvoiceDate,
	ColPrice,
	ColCustomerID,
	ColCountry,
}

// TimestampLayout is the layout used whenever a parsed invoice timestamp is
// written back out as text.
const TimestampLayout = "2006-01-02 15:04:05"

// MonthLayout formats the month key of the monthly aggregate.
const MonthLayout = "2006-01-02"

// =============================================================================
// RAW RECORD
// =============================================================================

// RawRecord is one invoice line as loaded from the raw file.
// Nil pointers (and an invalid Price) mean the cell was empty or could not be
// read as the column's type.
type RawRecord struct {
	Invoice     *string
	StockCode   string
	Description *string
	Quantity    *int64
	Price       decimal.NullDecimal
	InvoiceDate *string
	CustomerID  *string
	Country     string
}

// RowKey is a comparable form of a RawRecord. Two records with equal keys are
// full duplicates.
type RowKey struct {
	Invoice     string
	StockCode   string
	Description string
	Quantity    string
	Price       string
	InvoiceDate string
	CustomerID  string
	Country     string
}

// nullMarker cannot appear in a decoded CSV cell, so a null never collides
// with a real value.
const nullMarker = "\x00"

// Key returns the duplicate-detection key of the record.
func (r RawRecord) Key() RowKey {
	key := RowKey{
		Invoice:     strOrNull(r.Invoice),
		StockCode:   r.StockCode,
		Description: strOrNull(r.Description),
		Quantity:    nullMarker,
		Price:       nullMarker,
		InvoiceDate: strOrNull(r.InvoiceDate),
		CustomerID:  strOrNull(r.CustomerID),
		Country:     r.Country,
	}
	if r.Quantity != nil {
		key.Quantity = strconv.FormatInt(*r.Quantity, 10)
	}
	if r.Price.Valid {
		key.Price = r.Price.Decimal.String()
	}
	return key
}

func strOrNull(s *string) string {
	if s == nil {
		return nullMarker
	}
	return *s
}

// Ptr returns a pointer to v. It keeps RawRecord literals short in tests and
// in the loader.
func Ptr[T any](v T) *T {
	return &v
}

// =============================================================================
// CLEANED RECORD
// =============================================================================

// InvoiceLine is a validated invoice line with its derived TotalPrice.
type InvoiceLine struct {
	Invoice     string
	StockCode   string
	Description string
	Quantity    int64
	Price       decimal.Decimal
	InvoiceDate time.Time
	CustomerID  string
	Country     string
	TotalPrice  decimal.Decimal
}

// Raw converts a cleaned line back to its raw form. TotalPrice is dropped,
// the timestamp is rendered with TimestampLayout.
func (l InvoiceLine) Raw() RawRecord {
	return RawRecord{
		Invoice:     Ptr(l.Invoice),
		StockCode:   l.StockCode,
		Description: Ptr(l.Description),
		Quantity:    Ptr(l.Quantity),
		Price:       decimal.NewNullDecimal(l.Price),
		InvoiceDate: Ptr(l.InvoiceDate.Format(TimestampLayout)),
		CustomerID:  Ptr(l.CustomerID),
		Country:     l.Country,
	}
}

// ToRaw converts a cleaned dataset back to raw records.
func ToRaw(lines []InvoiceLine) []RawRecord {
	raw := make([]RawRecord, len(lines))
	for i, l := range lines {
		raw[i] = l.Raw()
	}
	return raw
}

// =============================================================================
// REPORTING ROWS
// =============================================================================

// CountryTotal is one row of the revenue-by-country aggregate.
type CountryTotal struct {
	Country    string
	TotalPrice decimal.Decimal
}

// CustomerTotal is one row of the revenue-by-customer aggregate.
type CustomerTotal struct {
	CustomerID string
	TotalPrice decimal.Decimal
}

// MonthlyTotal is one row of the monthly aggregate. Month is the first
// instant of the calendar month.
type MonthlyTotal struct {
	Month      time.Time
	TotalPrice decimal.Decimal
}

// =============================================================================
// STAR SCHEMA ROWS
// =============================================================================

// ProductDim is a dim_product row.
type ProductDim struct {
	StockCode   string
	Description string
	ProductID   int
}

// CustomerDim is a dim_customer row.
type CustomerDim struct {
	CustomerID  string
	Country     string
	CustomerKey int
}

// DateDim is a dim_date row. One row exists per distinct invoice timestamp;
// DateKey only carries the calendar day (YYYYMMDD).
type DateDim struct {
	InvoiceDate time.Time
	DateKey     int
	Year        int
	Month       int
	Day         int
	Weekday     string
}

// FactSale is a fact_sales row.
type FactSale struct {
	Invoice     string
	ProductID   int
	CustomerKey int
	DateKey     int
	Quantity    int64
	Price       decimal.Decimal
	TotalPrice  decimal.Decimal
}
