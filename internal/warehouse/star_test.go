package warehouse

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/retail-invoice-etl/internal/cleaner"
	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

func line(invoice, stockCode, description string, quantity int64, price string, at time.Time, customerID, country string) types.InvoiceLine {
	p := decimal.RequireFromString(price)
	return types.InvoiceLine{
		Invoice:     invoice,
		StockCode:   stockCode,
		Description: description,
		Quantity:    quantity,
		Price:       p,
		InvoiceDate: at,
		CustomerID:  customerID,
		Country:     country,
		TotalPrice:  cleaner.TotalPrice(quantity, p),
	}
}

var (
	morning   = time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	afternoon = time.Date(2010, 12, 1, 14, 2, 0, 0, time.UTC)
	nextDay   = time.Date(2010, 12, 2, 9, 0, 0, 0, time.UTC)
)

func fixture() []types.InvoiceLine {
	return []types.InvoiceLine{
		line("536365", "85123A", "WHITE HANGING HEART", 6, "2.55", afternoon, "17850", "United Kingdom"),
		line("536365", "71053", "WHITE METAL LANTERN", 6, "3.39", afternoon, "17850", "United Kingdom"),
		line("536366", "85123A", "WHITE HANGING HEART", 2, "2.55", morning, "12583", "France"),
		line("536367", "POST", "POSTAGE", 1, "18.00", nextDay, "17850", "France"),
		line("536368", "85123A", "WHITE HANGING HEART", 12, "2.55", nextDay, "17850", "United Kingdom"),
	}
}

func TestBuildStarSchema_Dimensions(t *testing.T) {
	res, err := BuildStarSchema(fixture())
	require.NoError(t, err)

	assert.Equal(t, []types.ProductDim{
		{StockCode: "85123A", Description: "WHITE HANGING HEART", ProductID: 1},
		{StockCode: "71053", Description: "WHITE METAL LANTERN", ProductID: 2},
		{StockCode: "POST", Description: "POSTAGE", ProductID: 3},
	}, res.DimProduct)

	assert.Equal(t, []types.CustomerDim{
		{CustomerID: "17850", Country: "United Kingdom", CustomerKey: 1},
		{CustomerID: "12583", Country: "France", CustomerKey: 2},
		{CustomerID: "17850", Country: "France", CustomerKey: 3},
	}, res.DimCustomer)

	require.Len(t, res.DimDate, 3)
	assert.Equal(t, morning, res.DimDate[0].InvoiceDate)
	assert.Equal(t, afternoon, res.DimDate[1].InvoiceDate)
	assert.Equal(t, nextDay, res.DimDate[2].InvoiceDate)
	assert.Equal(t, types.DateDim{
		InvoiceDate: afternoon,
		DateKey:     20101201,
		Year:        2010,
		Month:       12,
		Day:         1,
		Weekday:     "Wednesday",
	}, res.DimDate[1])
}

func TestBuildStarSchema_Fact(t *testing.T) {
	lines := fixture()
	res, err := BuildStarSchema(lines)
	require.NoError(t, err)

	require.Len(t, res.Fact, len(lines))
	assert.Equal(t, types.FactSale{
		Invoice:     "536367",
		ProductID:   3,
		CustomerKey: 3,
		DateKey:     20101202,
		Quantity:    1,
		Price:       lines[3].Price,
		TotalPrice:  lines[3].TotalPrice,
	}, res.Fact[3])
	assert.Empty(t, res.Mismatches)
}

func TestBuildStarSchema_ReferentialCompleteness(t *testing.T) {
	res, err := BuildStarSchema(fixture())
	require.NoError(t, err)

	products := make(map[int]bool)
	for _, p := range res.DimProduct {
		products[p.ProductID] = true
	}
	customers := make(map[int]bool)
	for _, c := range res.DimCustomer {
		customers[c.CustomerKey] = true
	}
	dates := make(map[int]bool)
	for _, d := range res.DimDate {
		dates[d.DateKey] = true
	}

	for _, f := range res.Fact {
		assert.True(t, products[f.ProductID], "product_id %d", f.ProductID)
		assert.True(t, customers[f.CustomerKey], "customer_key %d", f.CustomerKey)
		assert.True(t, dates[f.DateKey], "date_key %d", f.DateKey)
	}
}

func TestBuildStarSchema_SameDayCollision(t *testing.T) {
	res, err := BuildStarSchema(fixture())
	require.NoError(t, err)

	assert.Equal(t, res.DimDate[0].DateKey, res.DimDate[1].DateKey)
	assert.NotEqual(t, res.DimDate[0].InvoiceDate, res.DimDate[1].InvoiceDate)
	assert.Equal(t, 1, DateKeyCollisions(res.DimDate))
}

func TestBuildStarSchema_Empty(t *testing.T) {
	res, err := BuildStarSchema(nil)
	require.NoError(t, err)

	assert.Empty(t, res.Fact)
	assert.Empty(t, res.DimProduct)
	assert.Empty(t, res.DimCustomer)
	assert.Empty(t, res.DimDate)
	assert.Empty(t, res.Mismatches)
}

func TestMismatches(t *testing.T) {
	res, err := BuildStarSchema(fixture())
	require.NoError(t, err)

	fact := append([]types.FactSale(nil), res.Fact...)
	fact[1].TotalPrice = decimal.RequireFromString("20.00")
	fact[2].Price = decimal.Zero
	fact[2].TotalPrice = decimal.RequireFromString("1.00")

	got := Mismatches(fact)
	require.Len(t, got, 1)
	assert.Equal(t, "536365", got[0].Invoice)
	assert.Equal(t, 2, got[0].ProductID)
}

func TestDateKey(t *testing.T) {
	assert.Equal(t, 20101201, DateKey(morning))
	assert.Equal(t, 20110109, DateKey(time.Date(2011, 1, 9, 23, 59, 0, 0, time.UTC)))
}
