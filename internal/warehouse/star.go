// Package warehouse builds the star schema (fact_sales plus the product,
// customer and date dimensions) from a cleaned dataset and can load it into
// a SQLite database.
package warehouse

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ginjaninja78/retail-invoice-etl/internal/cleaner"
	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// ErrUnresolvedKey means a cleaned line had no matching dimension row. The
// dimensions are derived from the same lines, so this is an internal fault.
var ErrUnresolvedKey = errors.New("unresolved foreign key")

// StarSchema is the dimensional model of one run.
type StarSchema struct {
	Fact        []types.FactSale
	DimProduct  []types.ProductDim
	DimCustomer []types.CustomerDim
	DimDate     []types.DateDim
}

// Result is the star schema plus the fact rows whose TotalPrice disagrees
// with round(Quantity * Price, 2). Mismatches is empty in a correct run.
type Result struct {
	StarSchema
	Mismatches []types.FactSale
}

type productKey struct{ stockCode, description string }

type customerKey struct{ customerID, country string }

// BuildStarSchema derives the dimensions from lines, assigns surrogate keys
// in first-seen order and resolves every line into a fact row. The fact
// table has exactly one row per line, in input order.
func BuildStarSchema(lines []types.InvoiceLine) (*Result, error) {
	dimProduct, products := buildProducts(lines)
	dimCustomer, customers := buildCustomers(lines)
	dimDate, dates := buildDates(lines)

	fact := make([]types.FactSale, len(lines))
	for i, l := range lines {
		productID, ok := products[productKey{l.StockCode, l.Description}]
		if !ok {
			return nil, fmt.Errorf("%w: product (%q, %q) on invoice %s", ErrUnresolvedKey, l.StockCode, l.Description, l.Invoice)
		}
		custKey, ok := customers[customerKey{l.CustomerID, l.Country}]
		if !ok {
			return nil, fmt.Errorf("%w: customer (%q, %q) on invoice %s", ErrUnresolvedKey, l.CustomerID, l.Country, l.Invoice)
		}
		dateKey, ok := dates[l.InvoiceDate.UnixNano()]
		if !ok {
			return nil, fmt.Errorf("%w: date %s on invoice %s", ErrUnresolvedKey, l.InvoiceDate.Format(types.TimestampLayout), l.Invoice)
		}

		fact[i] = types.FactSale{
			Invoice:     l.Invoice,
			ProductID:   productID,
			CustomerKey: custKey,
			DateKey:     dateKey,
			Quantity:    l.Quantity,
			Price:       l.Price,
			TotalPrice:  l.TotalPrice,
		}
	}

	return &Result{
		StarSchema: StarSchema{
			Fact:        fact,
			DimProduct:  dimProduct,
			DimCustomer: dimCustomer,
			DimDate:     dimDate,
		},
		Mismatches: Mismatches(fact),
	}, nil
}

// Mismatches returns the fact rows with a positive price whose stored
// TotalPrice differs from round(Quantity * Price, 2).
func Mismatches(fact []types.FactSale) []types.FactSale {
	var out []types.FactSale
	for _, f := range fact {
		if !f.Price.IsPositive() {
			continue
		}
		if !f.TotalPrice.Round(2).Equal(cleaner.TotalPrice(f.Quantity, f.Price)) {
			out = append(out, f)
		}
	}
	return out
}

// DateKey encodes the calendar day of t as YYYYMMDD.
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DateKeyCollisions counts dim_date rows whose date_key was already used by
// an earlier row (several timestamps on the same day).
func DateKeyCollisions(dim []types.DateDim) int {
	seen := make(map[int]struct{}, len(dim))
	n := 0
	for _, d := range dim {
		if _, dup := seen[d.DateKey]; dup {
			n++
			continue
		}
		seen[d.DateKey] = struct{}{}
	}
	return n
}

func buildProducts(lines []types.InvoiceLine) ([]types.ProductDim, map[productKey]int) {
	ids := make(map[productKey]int)
	var dim []types.ProductDim
	for _, l := range lines {
		k := productKey{l.StockCode, l.Description}
		if _, ok := ids[k]; ok {
			continue
		}
		id := len(dim) + 1
		ids[k] = id
		dim = append(dim, types.ProductDim{StockCode: l.StockCode, Description: l.Description, ProductID: id})
	}
	return dim, ids
}

func buildCustomers(lines []types.InvoiceLine) ([]types.CustomerDim, map[customerKey]int) {
	keys := make(map[customerKey]int)
	var dim []types.CustomerDim
	for _, l := range lines {
		k := customerKey{l.CustomerID, l.Country}
		if _, ok := keys[k]; ok {
			continue
		}
		key := len(dim) + 1
		keys[k] = key
		dim = append(dim, types.CustomerDim{CustomerID: l.CustomerID, Country: l.Country, CustomerKey: key})
	}
	return dim, keys
}

// buildDates keeps one row per distinct timestamp, sorted by timestamp.
// The lookup is keyed by the full timestamp even though date_key is not.
func buildDates(lines []types.InvoiceLine) ([]types.DateDim, map[int64]int) {
	keys := make(map[int64]int)
	var dim []types.DateDim
	for _, l := range lines {
		ts := l.InvoiceDate.UnixNano()
		if _, ok := keys[ts]; ok {
			continue
		}
		keys[ts] = DateKey(l.InvoiceDate)
		dim = append(dim, types.DateDim{
			InvoiceDate: l.InvoiceDate,
			DateKey:     DateKey(l.InvoiceDate),
			Year:        l.InvoiceDate.Year(),
			Month:       int(l.InvoiceDate.Month()),
			Day:         l.InvoiceDate.Day(),
			Weekday:     l.InvoiceDate.Weekday().String(),
		})
	}
	sort.SliceStable(dim, func(i, j int) bool {
		return dim[i].InvoiceDate.Before(dim[j].InvoiceDate)
	})
	return dim, keys
}
