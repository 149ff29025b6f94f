//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package source reads the extracted CSV files and decodes them into typed
// records. Extraction problems (missing file, missing column) are fatal;
// problems with individual rows become ParseErrors.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgEdge/pgedge-starload/internal/config"
	"github.com/pgEdge/pgedge-starload/internal/etlerr"
)

// Source table names.
const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableCustomers  = "customers"
	TableSellers    = "sellers"
	TablePayments   = "payments"
	TableReviews    = "reviews"
	TableCities     = "cities"
)

// TableNames lists the source tables in extraction order.
var TableNames = []string{
	TableOrders,
	TableOrderItems,
	TableCustomers,
	TableSellers,
	TablePayments,
	TableReviews,
	TableCities,
}

// RequiredColumns lists the header columns each extract must carry.
// Optional columns may be missing from the header and read as empty.
var RequiredColumns = map[string][]string{
	TableOrders:     {"order_id", "customer_id", "order_purchase_timestamp"},
	TableOrderItems: {"order_id", "order_item_id", "seller_id", "price", "freight_value"},
	TableCustomers:  {"customer_id", "customer_city", "customer_state"},
	TableSellers:    {"seller_id", "seller_city", "seller_state"},
	TablePayments:   {"order_id", "payment_type", "payment_installments", "payment_value"},
	TableReviews:    {"review_id", "order_id", "review_score"},
	TableCities:     {"CITY", "STATE"},
}

// Table is a raw extracted table: a header and string records.
type Table struct {
	Name    string
	Header  []string
	Records [][]string

	// Lines holds the source line of each record, parallel to Records.
	Lines []int

	index map[string]int
}

// NewTable builds a Table from a header and records. Header names are
// trimmed and a leading byte order mark is dropped.
func NewTable(name string, header []string, records [][]string) *Table {
	t := &Table{
		Name:    name,
		Header:  make([]string, len(header)),
		Records: records,
		index:   make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	t.Lines = make([]int, len(records))
	for i := range records {
		t.Lines[i] = i + 2
	}
	return t
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// Has reports whether the header contains col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Value returns the trimmed value of col in record row. Absent columns and
// short records read as empty.
func (t *Table) Value(row int, col string) string {
	i, ok := t.index[col]
	if !ok {
		return ""
	}
	rec := t.Records[row]
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Line returns the source line of record row.
func (t *Table) Line(row int) int {
	if row < len(t.Lines) {
		return t.Lines[row]
	}
	return 0
}

// Require checks that every named column is present.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadCSV reads a comma separated file with a header row.
func ReadCSV(name, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(name, f)
}

func readCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: file is empty", name)
		}
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	t := NewTable(name, header, records)
	t.Lines = lines
	return t, nil
}

// Dataset holds every extracted table of one run.
type Dataset struct {
	Orders     *Table
	OrderItems *Table
	Customers  *Table
	Sellers    *Table
	Payments   *Table
	Reviews    *Table
	Cities     *Table
}

// Tables returns the dataset's tables keyed by name.
func (d *Dataset) Tables() map[string]*Table {
	return map[string]*Table{
		TableOrders:     d.Orders,
		TableOrderItems: d.OrderItems,
		TableCustomers:  d.Customers,
		TableSellers:    d.Sellers,
		TablePayments:   d.Payments,
		TableReviews:    d.Reviews,
		TableCities:     d.Cities,
	}
}

// Validate checks every table is present and carries its required columns.
func (d *Dataset) Validate() error {
	tables := d.Tables()
	for _, name := range TableNames {
		t := tables[name]
		if t == nil {
			return etlerr.Extraction(name, fmt.Errorf("table not loaded"))
		}
		if err := t.Require(RequiredColumns[name]...); err != nil {
			return etlerr.Extraction(name, err)
		}
	}
	return nil
}

// ReadDir reads all extract files named by cfg. Any failure is returned as
// a fatal extraction error.
func ReadDir(cfg config.SourceConfig) (*Dataset, error) {
	ds := &Dataset{}
	files := []struct {
		name string
		file string
		dst  **Table
	}{
		{TableOrders, cfg.Orders, &ds.Orders},
		{TableOrderItems, cfg.OrderItems, &ds.OrderItems},
		{TableCustomers, cfg.Customers, &ds.Customers},
		{TableSellers, cfg.Sellers, &ds.Sellers},
		{TablePayments, cfg.Payments, &ds.Payments},
		{TableReviews, cfg.Reviews, &ds.Reviews},
		{TableCities, cfg.Cities, &ds.Cities},
	}

	for _, f := range files {
		path := f.file
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.DataDir, path)
		}
		t, err := ReadCSV(f.name, path)
		if err != nil {
			return nil, etlerr.Extraction(f.name, err)
		}
		*f.dst = t
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}
