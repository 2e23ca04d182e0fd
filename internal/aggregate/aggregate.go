// Package aggregate computes the reporting summaries of a cleaned dataset.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// Result holds the three grouped sums of TotalPrice. The views are
// independent; each partitions the same overall total.
type Result struct {
	ByCountry  []types.CountryTotal
	ByCustomer []types.CustomerTotal
	Monthly    []types.MonthlyTotal
}

// Aggregate groups lines by country, by customer and by calendar month.
// Country and customer rows are ordered by key; monthly rows ascend by month
// and only cover months that have at least one line.
func Aggregate(lines []types.InvoiceLine) Result {
	return Result{
		ByCountry:  ByCountry(lines),
		ByCustomer: ByCustomer(lines),
		Monthly:    Monthly(lines),
	}
}

// ByCountry sums TotalPrice per country.
func ByCountry(lines []types.InvoiceLine) []types.CountryTotal {
	sums := sumBy(lines, func(l types.InvoiceLine) string { return l.Country })
	keys := sortedKeys(sums)

	out := make([]types.CountryTotal, len(keys))
	for i, k := range keys {
		out[i] = types.CountryTotal{Country: k, TotalPrice: sums[k]}
	}
	return out
}

// ByCustomer sums TotalPrice per customer id.
func ByCustomer(lines []types.InvoiceLine) []types.CustomerTotal {
	sums := sumBy(lines, func(l types.InvoiceLine) string { return l.CustomerID })
	keys := sortedKeys(sums)

	out := make([]types.CustomerTotal, len(keys))
	for i, k := range keys {
		out[i] = types.CustomerTotal{CustomerID: k, TotalPrice: sums[k]}
	}
	return out
}

// Monthly sums TotalPrice per calendar month.
func Monthly(lines []types.InvoiceLine) []types.MonthlyTotal {
	sums := make(map[time.Time]decimal.Decimal)
	for _, l := range lines {
		m := MonthStart(l.InvoiceDate)
		sums[m] = sums[m].Add(l.TotalPrice)
	}

	months := make([]time.Time, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]types.MonthlyTotal, len(months))
	for i, m := range months {
		out[i] = types.MonthlyTotal{Month: m, TotalPrice: sums[m]}
	}
	return out
}

// MonthStart truncates t to midnight of the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Total is the sum of TotalPrice over lines.
func Total(lines []types.InvoiceLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}

func sumBy(lines []types.InvoiceLine, key func(types.InvoiceLine) string) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, l := range lines {
		k := key(l)
		sums[k] = sums[k].Add(l.TotalPrice)
	}
	return sums
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
