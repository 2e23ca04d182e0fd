// Package detector scans invoice line records for data-quality issues.
//
// Every rule is evaluated independently over the whole dataset and contributes
// at most one fixed message, however many rows trigger it. Must-fix rules
// describe defects the cleaner removes; flag-only rules describe conditions
// that are retained with a caveat. Detection never mutates its input and
// never fails.
//
// Precondition: records come from a loader that has verified every required
// column exists.
package detector

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// Category tells whether an issue is removed by cleaning or only flagged.
type Category string

const (
	MustFix  Category = "must-fix"
	FlagOnly Category = "flag-only"
)

// Issue messages, in evaluation order.
const (
	MsgMissingCustomerID     = "Rows with missing Customer ID were removed."
	MsgMissingPrice          = "Rows with missing Price were removed."
	MsgMissingDescription    = "Rows with missing Description were removed."
	MsgNonPositiveQuantity   = "Rows with Quantity ≤ 0 were removed."
	MsgNonPositivePrice      = "Rows with Price ≤ 0 were removed."
	MsgExactDuplicates       = "Exact duplicate rows were removed."
	MsgSuspiciousDescription = "Rows with suspicious descriptions ('?', 'UNKNOWN', or blank) were removed."
	MsgQuantityOutlier       = "Some rows have Quantity > 1000 - flagged as potential outliers."
	MsgPriceOutlier          = "Some rows have Price > 1000 - flagged as potential outliers."
	MsgDuplicateInvoiceStock = "Duplicate (Invoice, StockCode) combinations found - retained but logged."
	MsgSystemStockCodes      = "System StockCodes like POST, ADJUST, CHECK found - retained but excluded from revenue."
	MsgMultiCountryCustomers = "Some Customer IDs appear in multiple countries - retained as possible B2B cases."
)

// OutlierThreshold is the exclusive bound above which quantity and unit
// price are flagged.
const OutlierThreshold = 1000

var outlierPrice = decimal.NewFromInt(OutlierThreshold)

// SuspiciousDescriptions are trimmed description values treated as missing.
// Matching is case-sensitive.
var SuspiciousDescriptions = map[string]struct{}{
	"":        {},
	"?":       {},
	"UNKNOWN": {},
}

// SystemStockCodes are upper-cased stock codes of postage/adjustment rows.
var SystemStockCodes = map[string]struct{}{
	"POST":   {},
	"CHECK":  {},
	"ADJUST": {},
}

// Finding is one rule that fired, with the number of rows behind it.
type Finding struct {
	RuleID   string
	Category Category
	Message  string
	Rows     int
}

type rule struct {
	id       string
	category Category
	message  string
	count    func(records []types.RawRecord) int
}

var rules = []rule{
	{"missing_customer_id", MustFix, MsgMissingCustomerID, countRows(func(r types.RawRecord) bool { return r.CustomerID == nil })},
	{"missing_price", MustFix, MsgMissingPrice, countRows(func(r types.RawRecord) bool { return !r.Price.Valid })},
	{"missing_description", MustFix, MsgMissingDescription, countRows(func(r types.RawRecord) bool { return r.Description == nil })},
	{"non_positive_quantity", MustFix, MsgNonPositiveQuantity, countRows(func(r types.RawRecord) bool { return r.Quantity != nil && *r.Quantity <= 0 })},
	{"non_positive_price", MustFix, MsgNonPositivePrice, countRows(func(r types.RawRecord) bool { return r.Price.Valid && !r.Price.Decimal.IsPositive() })},
	{"exact_duplicates", MustFix, MsgExactDuplicates, countExactDuplicates},
	{"suspicious_description", MustFix, MsgSuspiciousDescription, countRows(IsSuspiciousDescription)},
	{"quantity_outlier", FlagOnly, MsgQuantityOutlier, countRows(func(r types.RawRecord) bool { return r.Quantity != nil && *r.Quantity > OutlierThreshold })},
	{"price_outlier", FlagOnly, MsgPriceOutlier, countRows(func(r types.RawRecord) bool { return r.Price.Valid && r.Price.Decimal.GreaterThan(outlierPrice) })},
	{"duplicate_invoice_stockcode", FlagOnly, MsgDuplicateInvoiceStock, countDuplicateInvoiceStock},
	{"system_stockcode", FlagOnly, MsgSystemStockCodes, countRows(func(r types.RawRecord) bool { return IsSystemStockCode(r.StockCode) })},
	{"multi_country_customer", FlagOnly, MsgMultiCountryCustomers, countMultiCountryCustomers},
}

// Detect returns the messages of every rule that holds for records, in rule
// order. An empty result means no abnormalities.
func Detect(records []types.RawRecord) []string {
	findings := Inspect(records)
	issues := make([]string, len(findings))
	for i, f := range findings {
		issues[i] = f.Message
	}
	return issues
}

// Inspect is Detect with row counts and categories attached.
func Inspect(records []types.RawRecord) []Finding {
	var findings []Finding
	for _, r := range rules {
		if n := r.count(records); n > 0 {
			findings = append(findings, Finding{
				RuleID:   r.id,
				Category: r.category,
				Message:  r.message,
				Rows:     n,
			})
		}
	}
	return findings
}

// IsSuspiciousDescription reports whether a non-null description trims to a
// placeholder value.
func IsSuspiciousDescription(r types.RawRecord) bool {
	if r.Description == nil {
		return false
	}
	_, bad := SuspiciousDescriptions[strings.TrimSpace(*r.Description)]
	return bad
}

// IsSystemStockCode matches stock codes case-insensitively against
// SystemStockCodes.
func IsSystemStockCode(code string) bool {
	_, ok := SystemStockCodes[strings.ToUpper(code)]
	return ok
}

func countRows(pred func(types.RawRecord) bool) func([]types.RawRecord) int {
	return func(records []types.RawRecord) int {
		n := 0
		for _, r := range records {
			if pred(r) {
				n++
			}
		}
		return n
	}
}

// countExactDuplicates counts rows equal to an earlier row.
func countExactDuplicates(records []types.RawRecord) int {
	seen := make(map[types.RowKey]struct{}, len(records))
	n := 0
	for _, r := range records {
		k := r.Key()
		if _, dup := seen[k]; dup {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}

// countDuplicateInvoiceStock counts rows whose (Invoice, StockCode) pair
// already appeared.
func countDuplicateInvoiceStock(records []types.RawRecord) int {
	type pair struct{ invoice, stock string }
	seen := make(map[pair]struct{}, len(records))
	n := 0
	for _, r := range records {
		k := r.Key()
		p := pair{k.Invoice, k.StockCode}
		if _, dup := seen[p]; dup {
			n++
			continue
		}
		seen[p] = struct{}{}
	}
	return n
}

// countMultiCountryCustomers counts customers seen with more than one
// distinct non-empty country. Rows without a customer id are ignored.
func countMultiCountryCustomers(records []types.RawRecord) int {
	countries := make(map[string]map[string]struct{})
	for _, r := range records {
		if r.CustomerID == nil || r.Country == "" {
			continue
		}
		set, ok := countries[*r.CustomerID]
		if !ok {
			set = make(map[string]struct{})
			countries[*r.CustomerID] = set
		}
		set[r.Country] = struct{}{}
	}
	n := 0
	for _, set := range countries {
		if len(set) > 1 {
			n++
		}
	}
	return n
}
