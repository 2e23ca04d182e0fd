// Package cleaner turns raw invoice line records into a validated dataset
// carrying the derived TotalPrice.
//
// Cleaning is a fixed sequence of pure stages. Each stage consumes the
// previous stage's slice and returns a new one; the caller's records are
// never modified.
//
//  1. drop exact duplicate rows
//  2. drop rows missing Invoice, Customer ID, Description, Quantity or Price
//  3. trim Description, drop "", "?" and "UNKNOWN"
//  4. drop rows with Quantity <= 0 or Price <= 0
//  5. parse InvoiceDate, drop rows that do not parse
//  6. TotalPrice = round(Quantity * Price, 2)
//
// A last stage collapses rows that only became identical through trimming or
// timestamp normalization, so the output never holds two equal rows.
package cleaner

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/retail-invoice-etl/internal/detector"
	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// TimestampLayouts are tried in order when parsing InvoiceDate.
var TimestampLayouts = []string{
	types.TimestampLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Stats counts the rows each stage removed.
type Stats struct {
	Input           int
	Duplicates      int
	MissingRequired int
	BadDescription  int
	NonPositive     int
	BadTimestamp    int
	Normalized      int
	Output          int
}

// Dropped is the total number of rows removed.
func (s Stats) Dropped() int {
	return s.Input - s.Output
}

// Clean returns the cleaned dataset for raw.
func Clean(raw []types.RawRecord) []types.InvoiceLine {
	lines, _ := CleanWithStats(raw)
	return lines
}

// CleanWithStats is Clean plus per-stage drop counts.
func CleanWithStats(raw []types.RawRecord) ([]types.InvoiceLine, Stats) {
	stats := Stats{Input: len(raw)}

	records := dropDuplicates(raw)
	stats.Duplicates = len(raw) - len(records)

	n := len(records)
	records = dropMissing(records)
	stats.MissingRequired = n - len(records)

	n = len(records)
	records = dropSuspicious(trimDescriptions(records))
	stats.BadDescription = n - len(records)

	n = len(records)
	records = dropNonPositive(records)
	stats.NonPositive = n - len(records)

	n = len(records)
	lines := parseTimestamps(records)
	stats.BadTimestamp = n - len(lines)

	lines = withTotalPrice(lines)

	n = len(lines)
	lines = collapseNormalized(lines)
	stats.Normalized = n - len(lines)

	stats.Output = len(lines)
	return lines, stats
}

// TotalPrice is Quantity x Price rounded to cents, half away from zero.
func TotalPrice(quantity int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// ParseTimestamp parses an invoice timestamp using TimestampLayouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dropDuplicates(in []types.RawRecord) []types.RawRecord {
	seen := make(map[types.RowKey]struct{}, len(in))
	out := make([]types.RawRecord, 0, len(in))
	for _, r := range in {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func dropMissing(in []types.RawRecord) []types.RawRecord {
	return filter(in, func(r types.RawRecord) bool {
		return r.Invoice != nil &&
			r.CustomerID != nil &&
			r.Description != nil &&
			r.Quantity != nil &&
			r.Price.Valid
	})
}

// trimDescriptions copies every record with a trimmed Description. Records
// reaching this stage always have one.
func trimDescriptions(in []types.RawRecord) []types.RawRecord {
	out := make([]types.RawRecord, len(in))
	for i, r := range in {
		r.Description = types.Ptr(strings.TrimSpace(*r.Description))
		out[i] = r
	}
	return out
}

func dropSuspicious(in []types.RawRecord) []types.RawRecord {
	return filter(in, func(r types.RawRecord) bool {
		return !detector.IsSuspiciousDescription(r)
	})
}

func dropNonPositive(in []types.RawRecord) []types.RawRecord {
	return filter(in, func(r types.RawRecord) bool {
		return *r.Quantity > 0 && r.Price.Decimal.IsPositive()
	})
}

func parseTimestamps(in []types.RawRecord) []types.InvoiceLine {
	out := make([]types.InvoiceLine, 0, len(in))
	for _, r := range in {
		if r.InvoiceDate == nil {
			continue
		}
		ts, ok := ParseTimestamp(*r.InvoiceDate)
		if !ok {
			continue
		}
		out = append(out, types.InvoiceLine{
			Invoice:     *r.Invoice,
			StockCode:   r.StockCode,
			Description: *r.Description,
			Quantity:    *r.Quantity,
			Price:       r.Price.Decimal,
			InvoiceDate: ts,
			CustomerID:  *r.CustomerID,
			Country:     r.Country,
		})
	}
	return out
}

func withTotalPrice(in []types.InvoiceLine) []types.InvoiceLine {
	out := make([]types.InvoiceLine, len(in))
	for i, l := range in {
		l.TotalPrice = TotalPrice(l.Quantity, l.Price)
		out[i] = l
	}
	return out
}

func collapseNormalized(in []types.InvoiceLine) []types.InvoiceLine {
	seen := make(map[types.RowKey]struct{}, len(in))
	out := make([]types.InvoiceLine, 0, len(in))
	for _, l := range in {
		k := l.Raw().Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}

func filter(in []types.RawRecord, keep func(types.RawRecord) bool) []types.RawRecord {
	out := make([]types.RawRecord, 0, len(in))
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
