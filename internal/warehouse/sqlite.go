package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ginjaninja78/retail-invoice-etl/internal/types"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 500

// dim_date rows can share a date_key, so the table gets its own row id and
// date_key is only indexed.

type productRow struct {
	ProductID   int    `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	StockCode   string `gorm:"column:stock_code;index:idx_product_natural"`
	Description string `gorm:"column:description;index:idx_product_natural"`
}

func (productRow) TableName() string { return "dim_product" }

type customerRow struct {
	CustomerKey int    `gorm:"column:customer_key;primaryKey;autoIncrement:false"`
	CustomerID  string `gorm:"column:customer_id;index:idx_customer_natural"`
	Country     string `gorm:"column:country;index:idx_customer_natural"`
}

func (customerRow) TableName() string { return "dim_customer" }

type dateRow struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	InvoiceDate time.Time `gorm:"column:invoice_date;uniqueIndex"`
	DateKey     int       `gorm:"column:date_key;index"`
	Year        int       `gorm:"column:year"`
	Month       int       `gorm:"column:month"`
	Day         int       `gorm:"column:day"`
	Weekday     string    `gorm:"column:weekday"`
}

func (dateRow) TableName() string { return "dim_date" }

type factRow struct {
	ID          uint            `gorm:"column:id;primaryKey"`
	Invoice     string          `gorm:"column:invoice;index"`
	ProductID   int             `gorm:"column:product_id;index"`
	CustomerKey int             `gorm:"column:customer_key;index"`
	DateKey     int             `gorm:"column:date_key;index"`
	Quantity    int64           `gorm:"column:quantity"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(12,2)"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:decimal(14,2)"`
}

func (factRow) TableName() string { return "fact_sales" }

// OpenSQLite opens (creating if needed) the SQLite database at dsn.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", dsn, err)
	}
	return db, nil
}

// Load replaces the star schema tables in db with s. Tables are dropped and
// recreated, so every run starts from an empty warehouse.
func Load(ctx context.Context, db *gorm.DB, s *StarSchema) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := []any{&factRow{}, &productRow{}, &customerRow{}, &dateRow{}}
		if err := tx.Migrator().DropTable(models...); err != nil {
			return fmt.Errorf("failed to drop warehouse tables: %w", err)
		}
		if err := tx.AutoMigrate(models...); err != nil {
			return fmt.Errorf("failed to create warehouse tables: %w", err)
		}

		if err := insert(tx, toProductRows(s.DimProduct)); err != nil {
			return fmt.Errorf("failed to load dim_product: %w", err)
		}
		if err := insert(tx, toCustomerRows(s.DimCustomer)); err != nil {
			return fmt.Errorf("failed to load dim_customer: %w", err)
		}
		if err := insert(tx, toDateRows(s.DimDate)); err != nil {
			return fmt.Errorf("failed to load dim_date: %w", err)
		}
		if err := insert(tx, toFactRows(s.Fact)); err != nil {
			return fmt.Errorf("failed to load fact_sales: %w", err)
		}
		return nil
	})
}

func insert[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, insertBatchSize).Error
}

func toProductRows(dim []types.ProductDim) []productRow {
	rows := make([]productRow, len(dim))
	for i, d := range dim {
		rows[i] = productRow{ProductID: d.ProductID, StockCode: d.StockCode, Description: d.Description}
	}
	return rows
}

func toCustomerRows(dim []types.CustomerDim) []customerRow {
	rows := make([]customerRow, len(dim))
	for i, d := range dim {
		rows[i] = customerRow{CustomerKey: d.CustomerKey, CustomerID: d.CustomerID, Country: d.Country}
	}
	return rows
}

func toDateRows(dim []types.DateDim) []dateRow {
	rows := make([]dateRow, len(dim))
	for i, d := range dim {
		rows[i] = dateRow{
			InvoiceDate: d.InvoiceDate,
			DateKey:     d.DateKey,
			Year:        d.Year,
			Month:       d.Month,
			Day:         d.Day,
			Weekday:     d.Weekday,
		}
	}
	return rows
}

func toFactRows(fact []types.FactSale) []factRow {
	rows := make([]factRow, len(fact))
	for i, f := range fact {
		rows[i] = factRow{
			Invoice:     f.Invoice,
			ProductID:   f.ProductID,
			CustomerKey: f.CustomerKey,
			DateKey:     f.DateKey,
			Quantity:    f.Quantity,
			Price:       f.Price,
			TotalPrice:  f.TotalPrice,
		}
	}
	return rows
}
