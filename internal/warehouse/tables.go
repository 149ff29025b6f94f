//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse defines the star schema: the five dimension tables,
// the order item fact table, their DDL and the post-load integrity checks.
package warehouse

import (
	"fmt"
	"iter"
)

// Row is a warehouse row ready to be loaded. Values are ordered as the
// owning table's Columns.
type Row interface {
	// BusinessKey identifies the row in logs and skip lists.
	BusinessKey() string

	// Values returns the column values.
	Values() []any
}

// Column describes one table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// ForeignKey describes a column referencing a dimension's surrogate key.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table describes a warehouse table.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Unique     [][]string
	References []ForeignKey
}

// ColumnNames returns the column names in load order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of a column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Table names.
const (
	DimTime       = "dim_time"
	DimCustomer   = "dim_customer"
	DimSeller     = "dim_seller"
	DimPayment    = "dim_payment"
	DimReview     = "dim_review"
	FactOrderItem = "fact_order_item"
)

func col(name, typ string) Column {
	return Column{Name: name, Type: typ}
}

func nullable(name, typ string) Column {
	return Column{Name: name, Type: typ, Nullable: true}
}

// geoColumns are shared by the customer and seller dimensions.
func geoColumns() []Column {
	return []Column{
		col("city", "VARCHAR(100)"),
		col("state", "CHAR(2)"),
		col("region", "VARCHAR(20)"),
		col("matched_city", "VARCHAR(100)"),
		col("match_method", "VARCHAR(10)"),
		col("match_score", "DOUBLE PRECISION"),
		nullable("city_population", "BIGINT"),
		nullable("city_gdp_per_capita", "DOUBLE PRECISION"),
		nullable("city_hdi", "DOUBLE PRECISION"),
		nullable("city_hdi_income", "DOUBLE PRECISION"),
		nullable("city_hdi_education", "DOUBLE PRECISION"),
		nullable("city_hdi_longevity", "DOUBLE PRECISION"),
		col("city_is_capital", "BOOLEAN"),
		nullable("city_category", "VARCHAR(10)"),
		col("city_size", "VARCHAR(20)"),
		col("development_level", "VARCHAR(20)"),
	}
}

// TimeTable is the calendar dimension. Keys are YYYYMMDD.
var TimeTable = Table{
	Name: DimTime,
	Columns: []Column{
		col("time_key", "INTEGER"),
		col("date_value", "DATE"),
		col("day_name", "VARCHAR(10)"),
		col("day_of_month", "INTEGER"),
		col("iso_week", "INTEGER"),
		col("month", "INTEGER"),
		col("month_name", "VARCHAR(10)"),
		col("quarter", "INTEGER"),
		col("quarter_name", "CHAR(2)"),
		col("year", "INTEGER"),
		col("is_weekend", "BOOLEAN"),
		col("is_holiday", "BOOLEAN"),
		nullable("holiday_name", "VARCHAR(50)"),
		col("date_string", "CHAR(10)"),
	},
	PrimaryKey: []string{"time_key"},
	Unique:     [][]string{{"date_value"}},
}

// CustomerTable is the customer dimension.
var CustomerTable = Table{
	Name: DimCustomer,
	Columns: append([]Column{
		col("customer_key", "BIGINT"),
		col("customer_id", "VARCHAR(64)"),
		nullable("customer_unique_id", "VARCHAR(64)"),
		nullable("zip_code_prefix", "VARCHAR(10)"),
	}, geoColumns()...),
	PrimaryKey: []string{"customer_key"},
	Unique:     [][]string{{"customer_id"}},
}

// SellerTable is the seller dimension.
var SellerTable = Table{
	Name: DimSeller,
	Columns: append([]Column{
		col("seller_key", "BIGINT"),
		col("seller_id", "VARCHAR(64)"),
		nullable("zip_code_prefix", "VARCHAR(10)"),
	}, geoColumns()...),
	PrimaryKey: []string{"seller_key"},
	Unique:     [][]string{{"seller_id"}},
}

// PaymentTable is the payment dimension, one row per type and
// installment range.
var PaymentTable = Table{
	Name: DimPayment,
	Columns: []Column{
		col("payment_key", "BIGINT"),
		col("payment_type", "VARCHAR(20)"),
		col("payment_category", "VARCHAR(20)"),
		col("installments_range", "VARCHAR(20)"),
		col("is_credit", "BOOLEAN"),
		col("is_installment", "BOOLEAN"),
	},
	PrimaryKey: []string{"payment_key"},
	Unique:     [][]string{{"payment_type", "installments_range"}},
}

// ReviewTable is the review dimension, one row per review category and
// comment length category.
var ReviewTable = Table{
	Name: DimReview,
	Columns: []Column{
		col("review_key", "BIGINT"),
		col("review_category", "VARCHAR(20)"),
		col("satisfaction_level", "VARCHAR(20)"),
		col("comment_length_category", "VARCHAR(30)"),
		col("has_comment", "BOOLEAN"),
	},
	PrimaryKey: []string{"review_key"},
	Unique:     [][]string{{"review_category", "comment_length_category"}},
}

// FactTable holds one row per order item.
var FactTable = Table{
	Name: FactOrderItem,
	Columns: []Column{
		col("order_id", "VARCHAR(64)"),
		col("order_item_id", "INTEGER"),
		col("time_key", "INTEGER"),
		col("customer_key", "BIGINT"),
		col("seller_key", "BIGINT"),
		col("payment_key", "BIGINT"),
		col("review_key", "BIGINT"),
		nullable("product_id", "VARCHAR(64)"),
		nullable("order_status", "VARCHAR(20)"),
		col("price", "NUMERIC(12,2)"),
		col("freight_value", "NUMERIC(12,2)"),
		col("payment_value", "NUMERIC(12,2)"),
		nullable("review_score", "NUMERIC(3,2)"),
		col("payment_installments", "INTEGER"),
		col("payment_count", "INTEGER"),
		col("purchase_date", "DATE"),
		nullable("delivered_date", "DATE"),
		nullable("estimated_delivery_date", "DATE"),
		nullable("delivery_days", "INTEGER"),
	},
	PrimaryKey: []string{"order_id", "order_item_id"},
	References: []ForeignKey{
		{Column: "time_key", RefTable: DimTime, RefColumn: "time_key"},
		{Column: "customer_key", RefTable: DimCustomer, RefColumn: "customer_key"},
		{Column: "seller_key", RefTable: DimSeller, RefColumn: "seller_key"},
		{Column: "payment_key", RefTable: DimPayment, RefColumn: "payment_key"},
		{Column: "review_key", RefTable: DimReview, RefColumn: "review_key"},
	},
}

// Dimensions returns the dimension tables in load order.
func Dimensions() []Table {
	return []Table{TimeTable, CustomerTable, SellerTable, PaymentTable, ReviewTable}
}

// All returns every warehouse table in load order, facts last.
func All() []Table {
	return append(Dimensions(), FactTable)
}

// Get returns a table by name.
func Get(name string) (Table, error) {
	for _, t := range All() {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("unknown table: %s", name)
}

// Seq yields rows as warehouse rows.
func Seq[T Row](rows []T) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}
