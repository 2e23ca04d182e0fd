package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

func line(customerID, country string, at time.Time, total string) types.InvoiceLine {
	return types.InvoiceLine{
		Invoice:     "536365",
		StockCode:   "85123A",
		Description: "WHITE HANGING HEART",
		Quantity:    1,
		Price:       decimal.RequireFromString(total),
		InvoiceDate: at,
		CustomerID:  customerID,
		Country:     country,
		TotalPrice:  decimal.RequireFromString(total),
	}
}

func day(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.UTC)
}

func fixture() []types.InvoiceLine {
	return []types.InvoiceLine{
		line("17850", "United Kingdom", day(2010, 12, 1, 8), "15.30"),
		line("12583", "France", day(2010, 12, 3, 9), "54.00"),
		line("17850", "United Kingdom", day(2011, 2, 14, 10), "0.85"),
		line("17850", "France", day(2011, 2, 28, 23), "10.10"),
		line("13047", "United Kingdom", day(2010, 12, 31, 23), "4.05"),
	}
}

func TestByCountry(t *testing.T) {
	got := ByCountry(fixture())

	require.Len(t, got, 2)
	assert.Equal(t, "France", got[0].Country)
	assert.Equal(t, "64.10", got[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "United Kingdom", got[1].Country)
	assert.Equal(t, "20.20", got[1].TotalPrice.StringFixed(2))
}

func TestByCustomer(t *testing.T) {
	got := ByCustomer(fixture())

	require.Len(t, got, 3)
	assert.Equal(t, []string{"12583", "13047", "17850"}, []string{got[0].CustomerID, got[1].CustomerID, got[2].CustomerID})
	assert.Equal(t, "26.25", got[2].TotalPrice.StringFixed(2))
}

func TestMonthly_NoGapFill(t *testing.T) {
	got := Monthly(fixture())

	require.Len(t, got, 2)
	assert.Equal(t, day(2010, 12, 1, 0), got[0].Month)
	assert.Equal(t, "73.35", got[0].TotalPrice.StringFixed(2))
	assert.Equal(t, day(2011, 2, 1, 0), got[1].Month)
	assert.Equal(t, "10.95", got[1].TotalPrice.StringFixed(2))
}

func TestAggregate_TotalConservation(t *testing.T) {
	lines := fixture()
	res := Aggregate(lines)
	want := Total(lines)

	var country, customer, monthly decimal.Decimal
	for _, r := range res.ByCountry {
		country = country.Add(r.TotalPrice)
	}
	for _, r := range res.ByCustomer {
		customer = customer.Add(r.TotalPrice)
	}
	for _, r := range res.Monthly {
		monthly = monthly.Add(r.TotalPrice)
	}

	assert.True(t, want.Equal(country), "country %s != %s", country, want)
	assert.True(t, want.Equal(customer), "customer %s != %s", customer, want)
	assert.True(t, want.Equal(monthly), "monthly %s != %s", monthly, want)
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil)

	assert.Empty(t, res.ByCountry)
	assert.Empty(t, res.ByCustomer)
	assert.Empty(t, res.Monthly)
	assert.True(t, Total(nil).IsZero())
}

func TestAggregate_Deterministic(t *testing.T) {
	lines := fixture()
	reversed := make([]types.InvoiceLine, len(lines))
	for i, l := range lines {
		reversed[len(lines)-1-i] = l
	}

	a, b := Aggregate(lines), Aggregate(reversed)
	require.Len(t, b.ByCountry, len(a.ByCountry))
	for i := range a.ByCountry {
		assert.Equal(t, a.ByCountry[i].Country, b.ByCountry[i].Country)
		assert.True(t, a.ByCountry[i].TotalPrice.Equal(b.ByCountry[i].TotalPrice))
	}
}

func TestMonthStart(t *testing.T) {
	assert.Equal(t, day(2011, 2, 1, 0), MonthStart(time.Date(2011, 2, 28, 23, 59, 59, 1, time.UTC)))
}
