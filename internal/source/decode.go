//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-starload/internal/etlerr"
)

// timeLayouts are the timestamp formats accepted in the extracts.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
}

// ParseTime parses an extract timestamp.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// rowDecoder reads one record and collects the first field problem.
type rowDecoder struct {
	t   *Table
	row int
	err *etlerr.RowError
}

func (d *rowDecoder) fail(col, value, reason string) {
	if d.err == nil {
		d.err = etlerr.NewParseError(d.t.Name, d.t.Line(d.row), col, value, reason)
	}
}

func (d *rowDecoder) str(col string) string {
	return d.t.Value(d.row, col)
}

func (d *rowDecoder) required(col string) string {
	v := d.str(col)
	if v == "" {
		d.fail(col, v, "required value is empty")
	}
	return v
}

func (d *rowDecoder) requiredInt(col string, min, max int) int {
	v := d.required(col)
	if v == "" {
		return 0
	}
	n, err := parseInt(v)
	if err != nil {
		d.fail(col, v, "not an integer")
		return 0
	}
	if n < min || n > max {
		d.fail(col, v, fmt.Sprintf("out of range [%d, %d]", min, max))
	}
	return n
}

func (d *rowDecoder) requiredTime(col string) time.Time {
	v := d.required(col)
	if v == "" {
		return time.Time{}
	}
	t, err := ParseTime(v)
	if err != nil {
		d.fail(col, v, "not a timestamp")
	}
	return t
}

func (d *rowDecoder) optionalTime(col string) *time.Time {
	v := d.str(col)
	if v == "" {
		return nil
	}
	t, err := ParseTime(v)
	if err != nil {
		d.fail(col, v, "not a timestamp")
		return nil
	}
	return &t
}

func (d *rowDecoder) optionalInt(col string) *int {
	v := d.str(col)
	if v == "" {
		return nil
	}
	n, err := parseInt(v)
	if err != nil {
		d.fail(col, v, "not an integer")
		return nil
	}
	return &n
}

func (d *rowDecoder) optionalInt64(col string) *int64 {
	v := d.str(col)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int64(f)) {
		d.fail(col, v, "not an integer")
		return nil
	}
	n := int64(f)
	return &n
}

func (d *rowDecoder) optionalFloat(col string) *float64 {
	v := d.str(col)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		d.fail(col, v, "not a number")
		return nil
	}
	return &f
}

func (d *rowDecoder) optionalDigits(col string) string {
	v := d.str(col)
	for _, r := range v {
		if r < '0' || r > '9' {
			d.fail(col, v, "not a numeric code")
			return ""
		}
	}
	return v
}

func (d *rowDecoder) flag(col string) bool {
	switch strings.ToLower(d.str(col)) {
	case "", "0", "false", "no", "n":
		return false
	case "1", "true", "yes", "y":
		return true
	default:
		d.fail(col, d.str(col), "not a boolean")
		return false
	}
}

// parseInt accepts integral values written as floats ("3.0").
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

// decodeTable runs fn for every record of t. Records with a field problem
// are dropped and their error collected.
func decodeTable[T any](t *Table, fn func(d *rowDecoder) T, errs *[]*etlerr.RowError) []T {
	out := make([]T, 0, t.Len())
	for row := range t.Records {
		d := &rowDecoder{t: t, row: row}
		rec := fn(d)
		if d.err != nil {
			*errs = append(*errs, d.err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Decode converts the raw dataset into typed records. Rows with missing or
// invalid required fields, or with non-empty optional fields that cannot
// be parsed, are excluded and returned as ParseErrors.
func Decode(ds *Dataset) (*Records, []*etlerr.RowError) {
	var errs []*etlerr.RowError
	recs := &Records{}

	recs.Orders = decodeTable(ds.Orders, func(d *rowDecoder) Order {
		return Order{
			Line:        d.t.Line(d.row),
			ID:          d.required("order_id"),
			CustomerID:  d.required("customer_id"),
			Status:      d.str("order_status"),
			PurchasedAt: d.requiredTime("order_purchase_timestamp"),
			DeliveredAt: d.optionalTime("order_delivered_customer_date"),
			EstimatedAt: d.optionalTime("order_estimated_delivery_date"),
		}
	}, &errs)

	recs.Items = decodeTable(ds.OrderItems, func(d *rowDecoder) OrderItem {
		return OrderItem{
			Line:      d.t.Line(d.row),
			OrderID:   d.required("order_id"),
			Seq:       d.requiredInt("order_item_id", 1, 1<<31-1),
			ProductID: d.str("product_id"),
			SellerID:  d.required("seller_id"),
			Price:     ParseAmount(d.str("price")),
			Freight:   ParseAmount(d.str("freight_value")),
		}
	}, &errs)

	recs.Customers = decodeTable(ds.Customers, func(d *rowDecoder) Customer {
		return Customer{
			Line:      d.t.Line(d.row),
			ID:        d.required("customer_id"),
			UniqueID:  d.str("customer_unique_id"),
			ZipPrefix: d.optionalDigits("customer_zip_code_prefix"),
			City:      d.str("customer_city"),
			State:     strings.ToUpper(d.required("customer_state")),
		}
	}, &errs)

	recs.Sellers = decodeTable(ds.Sellers, func(d *rowDecoder) Seller {
		return Seller{
			Line:      d.t.Line(d.row),
			ID:        d.required("seller_id"),
			ZipPrefix: d.optionalDigits("seller_zip_code_prefix"),
			City:      d.str("seller_city"),
			State:     strings.ToUpper(d.required("seller_state")),
		}
	}, &errs)

	recs.Payments = decodeTable(ds.Payments, func(d *rowDecoder) Payment {
		return Payment{
			Line:         d.t.Line(d.row),
			OrderID:      d.required("order_id"),
			Sequential:   d.optionalInt("payment_sequential"),
			Type:         strings.ToLower(d.required("payment_type")),
			Installments: d.requiredInt("payment_installments", 1, 1<<31-1),
			Value:        ParseAmount(d.str("payment_value")),
		}
	}, &errs)

	recs.Reviews = decodeTable(ds.Reviews, func(d *rowDecoder) Review {
		return Review{
			Line:       d.t.Line(d.row),
			ID:         d.required("review_id"),
			OrderID:    d.required("order_id"),
			Score:      d.requiredInt("review_score", 1, 5),
			Comment:    d.str("review_comment_message"),
			CreatedAt:  d.optionalTime("review_creation_date"),
			AnsweredAt: d.optionalTime("review_answer_timestamp"),
		}
	}, &errs)

	recs.Cities = decodeTable(ds.Cities, func(d *rowDecoder) City {
		return City{
			Line:         d.t.Line(d.row),
			Name:         d.required("CITY"),
			State:        strings.ToUpper(d.required("STATE")),
			Population:   d.optionalInt64("IBGE_POP"),
			GDPPerCapita: d.optionalFloat("GDP_CAPITA"),
			HDI:          d.optionalFloat("IDHM"),
			HDIIncome:    d.optionalFloat("IDHM_Renda"),
			HDIEducation: d.optionalFloat("IDHM_Educacao"),
			HDILongevity: d.optionalFloat("IDHM_Longevidade"),
			IsCapital:    d.flag("CAPITAL"),
			Category:     d.str("CATEGORIA_TUR"),
		}
	}, &errs)

	return recs, errs
}
