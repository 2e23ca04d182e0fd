package types

import (
	"strconv"
)

// Table is a named, fully stringified tabular output: one header row plus
// data rows. Writers only ever see Tables.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Row is implemented by every record type that is persisted.
type Row interface {
	Header() []string
	Record() []string
}

// NewTable renders rows into a Table. The header comes from the zero value
// of T, so an empty slice still produces a header-only table.
func NewTable[T Row](name string, rows []T) Table {
	var zero T
	t := Table{
		Name:   name,
		Header: zero.Header(),
		Rows:   make([][]string, len(rows)),
	}
	for i, r := range rows {
		t.Rows[i] = r.Record()
	}
	return t
}

func (InvoiceLine) Header() []string {
	return append(append([]string{}, RawColumns...), ColTotalPrice)
}

func (l InvoiceLine) Record() []string {
	return []string{
		l.Invoice,
		l.StockCode,
		l.Description,
		strconv.FormatInt(l.Quantity, 10),
		l.InvoiceDate.Format(TimestampLayout),
		l.Price.String(),
		l.CustomerID,
		l.Country,
		l.TotalPrice.StringFixed(2),
	}
}

func (CountryTotal) Header() []string { return []string{ColCountry, ColTotalPrice} }

func (c CountryTotal) Record() []string {
	return []string{c.Country, c.TotalPrice.StringFixed(2)}
}

func (CustomerTotal) Header() []string { return []string{ColCustomerID, ColTotalPrice} }

func (c CustomerTotal) Record() []string {
	return []string{c.CustomerID, c.TotalPrice.StringFixed(2)}
}

func (MonthlyTotal) Header() []string { return []string{ColInvoiceDate, ColTotalPrice} }

func (m MonthlyTotal) Record() []string {
	return []string{m.Month.Format(MonthLayout), m.TotalPrice.StringFixed(2)}
}

func (ProductDim) Header() []string { return []string{ColStockCode, ColDescription, "product_id"} }

func (p ProductDim) Record() []string {
	return []string{p.StockCode, p.Description, strconv.Itoa(p.ProductID)}
}

func (CustomerDim) Header() []string { return []string{ColCustomerID, ColCountry, "customer_key"} }

func (c CustomerDim) Record() []string {
	return []string{c.CustomerID, c.Country, strconv.Itoa(c.CustomerKey)}
}

func (DateDim) Header() []string {
	return []string{ColInvoiceDate, "date_key", "year", "month", "day", "weekday"}
}

func (d DateDim) Record() []string {
	return []string{
		d.InvoiceDate.Format(TimestampLayout),
		strconv.Itoa(d.DateKey),
		strconv.Itoa(d.Year),
		strconv.Itoa(d.Month),
		strconv.Itoa(d.Day),
		d.Weekday,
	}
}

func (FactSale) Header() []string {
	return []string{ColInvoice, "product_id", "customer_key", "date_key", ColQuantity, ColPrice, ColTotalPrice}
}

func (f FactSale) Record() []string {
	return []string{
		f.Invoice,
		strconv.Itoa(f.ProductID),
		strconv.Itoa(f.CustomerKey),
		strconv.Itoa(f.DateKey),
		strconv.FormatInt(f.Quantity, 10),
		f.Price.String(),
		f.TotalPrice.StringFixed(2),
	}
}
