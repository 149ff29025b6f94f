//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package fact assembles order item fact rows from the decoded extracts and
// the populated surrogate key registry.
package fact

import (
	"errors"
	"iter"
	"math"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-starload/internal/dimension"
	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/keys"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/source"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// OrdersDimension names the order header relation in orphan reports.
const OrdersDimension = "orders"

// Row is a row of fact_order_item.
type Row struct {
	OrderID string
	ItemSeq int

	TimeKey     keys.Key
	CustomerKey keys.Key
	SellerKey   keys.Key
	PaymentKey  keys.Key
	ReviewKey   keys.Key

	ProductID string
	Status    string

	Price        float64
	Freight      float64
	PaymentValue float64
	// ReviewScore is the order's average score, nil without reviews.
	ReviewScore *float64

	Installments int
	PaymentCount int

	PurchaseDate  time.Time
	DeliveredDate *time.Time
	EstimatedDate *time.Time
	DeliveryDays  *int
}

func (r Row) BusinessKey() string {
	return r.OrderID + "|" + strconv.Itoa(r.ItemSeq)
}

func (r Row) Values() []any {
	return []any{
		r.OrderID, r.ItemSeq,
		int64(r.TimeKey), int64(r.CustomerKey), int64(r.SellerKey),
		int64(r.PaymentKey), int64(r.ReviewKey),
		optString(r.ProductID), optString(r.Status),
		r.Price, r.Freight, r.PaymentValue, r.ReviewScore,
		r.Installments, r.PaymentCount,
		r.PurchaseDate, r.DeliveredDate, r.EstimatedDate, r.DeliveryDays,
	}
}

// Recorder receives orphan and measure warnings. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordRowError(e *etlerr.RowError)
}

// Builder assembles fact rows.
type Builder struct {
	registry *keys.Registry
	recorder Recorder
}

// NewBuilder creates a Builder. The registry must be fully populated by the
// dimension builds before Build is iterated.
func NewBuilder(registry *keys.Registry, recorder Recorder) *Builder {
	return &Builder{registry: registry, recorder: recorder}
}

// paymentAgg aggregates the payments of one order.
type paymentAgg struct {
	total   float64
	count   int
	primary *source.Payment
}

// reviewAgg aggregates the reviews of one order.
type reviewAgg struct {
	sum    int
	count  int
	latest *source.Review
}

// orderTotals holds the item totals used to allocate payment value.
type orderTotals struct {
	price float64
	items int
}

// Build returns the fact rows in order item source order. Indexes over
// orders, payments and reviews are built when iteration starts.
func (b *Builder) Build(recs *source.Records) iter.Seq[warehouse.Row] {
	return func(yield func(warehouse.Row) bool) {
		orders := b.indexOrders(recs.Orders)
		payments := b.aggregatePayments(recs.Payments)
		reviews := aggregateReviews(recs.Reviews)
		totals := itemTotals(recs.Items)

		for i := range recs.Items {
			row, ok := b.assemble(&recs.Items[i], orders, payments, reviews, totals)
			if !ok {
				continue
			}
			if !yield(row) {
				return
			}
		}
	}
}

func (b *Builder) indexOrders(orders []source.Order) map[string]*source.Order {
	idx := make(map[string]*source.Order, len(orders))
	for i := range orders {
		o := &orders[i]
		if _, dup := idx[o.ID]; dup {
			b.recorder.RecordRowError(&etlerr.RowError{
				Kind:   etlerr.KindDuplicateKey,
				Table:  source.TableOrders,
				Line:   o.Line,
				Key:    o.ID,
				Reason: "order id already seen, keeping first occurrence",
			})
			continue
		}
		idx[o.ID] = o
	}
	return idx
}

// earlier reports whether a is the primary payment over b: lowest
// sequential number first, payments without one last.
func earlier(a, b *source.Payment) bool {
	switch {
	case a.Sequential == nil:
		return false
	case b.Sequential == nil:
		return true
	default:
		return *a.Sequential < *b.Sequential
	}
}

func (b *Builder) aggregatePayments(payments []source.Payment) map[string]*paymentAgg {
	aggs := make(map[string]*paymentAgg)
	for i := range payments {
		p := &payments[i]
		agg, ok := aggs[p.OrderID]
		if !ok {
			agg = &paymentAgg{}
			aggs[p.OrderID] = agg
		}
		agg.total += b.measure(source.TablePayments, p.Line, p.OrderID, "payment_value", p.Value)
		agg.count++
		if agg.primary == nil || earlier(p, agg.primary) {
			agg.primary = p
		}
	}
	return aggs
}

// later reports whether review a is more recent than b. Later source
// position wins when timestamps tie.
func later(a, b *source.Review) bool {
	if c := compareTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c > 0
	}
	return compareTime(a.AnsweredAt, b.AnsweredAt) >= 0
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

func aggregateReviews(reviews []source.Review) map[string]*reviewAgg {
	aggs := make(map[string]*reviewAgg)
	for i := range reviews {
		r := &reviews[i]
		agg, ok := aggs[r.OrderID]
		if !ok {
			agg = &reviewAgg{}
			aggs[r.OrderID] = agg
		}
		agg.sum += r.Score
		agg.count++
		if agg.latest == nil || later(r, agg.latest) {
			agg.latest = r
		}
	}
	return aggs
}

func itemTotals(items []source.OrderItem) map[string]*orderTotals {
	totals := make(map[string]*orderTotals)
	for _, it := range items {
		t, ok := totals[it.OrderID]
		if !ok {
			t = &orderTotals{}
			totals[it.OrderID] = t
		}
		if it.Price.Valid {
			t.price += it.Price.Value
		}
		t.items++
	}
	return totals
}

// measure returns the value of an amount, or 0 with a warning when it is
// missing, non-numeric or negative.
func (b *Builder) measure(table string, line int, key, field string, a source.Amount) float64 {
	if a.Valid {
		return a.Value
	}
	b.recorder.RecordRowError(&etlerr.RowError{
		Kind:   etlerr.KindMeasureDefaulted,
		Table:  table,
		Line:   line,
		Key:    key,
		Field:  field,
		Value:  a.Raw,
		Reason: "invalid amount replaced by 0",
	})
	logging.RowWarn().
		Str("table", table).
		Int("line", line).
		Str("field", field).
		Str("value", a.Raw).
		Msg("Invalid amount replaced by 0")
	return 0
}

// orphan records a tuple that cannot be resolved.
func (b *Builder) orphan(item *source.OrderItem, dimension, bk, reason string) {
	key := item.OrderID + "|" + strconv.Itoa(item.Seq)
	e := etlerr.NewOrphan(warehouse.FactOrderItem, key, dimension, bk, reason)
	e.Line = item.Line
	b.recorder.RecordRowError(e)
	logging.RowWarn().
		Str("order_item", key).
		Str("dimension", dimension).
		Str("business_key", bk).
		Msg("Orphan fact tuple skipped")
}

// resolver looks up dimension keys and remembers the first failure.
type resolver struct {
	registry  *keys.Registry
	dimension string
	bk        string
	err       error
}

func (r *resolver) lookup(table, bk string) keys.Key {
	if r.err != nil {
		return 0
	}
	k, err := r.registry.Lookup(table, bk)
	if err != nil {
		r.dimension, r.bk, r.err = table, bk, err
	}
	return k
}

func (b *Builder) assemble(
	item *source.OrderItem,
	orders map[string]*source.Order,
	payments map[string]*paymentAgg,
	reviews map[string]*reviewAgg,
	totals map[string]*orderTotals,
) (Row, bool) {
	order, ok := orders[item.OrderID]
	if !ok {
		b.orphan(item, OrdersDimension, item.OrderID, "order header not found")
		return Row{}, false
	}
	pay, ok := payments[item.OrderID]
	if !ok {
		b.orphan(item, warehouse.DimPayment, "", "order has no payment records")
		return Row{}, false
	}

	reviewKey := dimension.NoReviewKey
	var score *float64
	if rv, ok := reviews[item.OrderID]; ok {
		reviewKey = dimension.ReviewBusinessKey(rv.latest.Score, rv.latest.Comment)
		avg := float64(rv.sum) / float64(rv.count)
		score = &avg
	}

	res := &resolver{registry: b.registry}
	row := Row{
		OrderID:      item.OrderID,
		ItemSeq:      item.Seq,
		TimeKey:      res.lookup(warehouse.DimTime, dimension.TimeBusinessKey(order.PurchasedAt)),
		CustomerKey:  res.lookup(warehouse.DimCustomer, order.CustomerID),
		SellerKey:    res.lookup(warehouse.DimSeller, item.SellerID),
		PaymentKey:   res.lookup(warehouse.DimPayment, dimension.PaymentBusinessKey(pay.primary.Type, pay.primary.Installments)),
		ReviewKey:    res.lookup(warehouse.DimReview, reviewKey),
		ProductID:    item.ProductID,
		Status:       order.Status,
		ReviewScore:  score,
		Installments: pay.primary.Installments,
		PaymentCount: pay.count,
	}
	if res.err != nil {
		reason := res.err.Error()
		if errors.Is(res.err, keys.ErrNotFound) {
			reason = "dimension key not found"
		}
		b.orphan(item, res.dimension, res.bk, reason)
		return Row{}, false
	}

	row.Price = b.measure(source.TableOrderItems, item.Line, row.BusinessKey(), "price", item.Price)
	row.Freight = b.measure(source.TableOrderItems, item.Line, row.BusinessKey(), "freight_value", item.Freight)
	row.PaymentValue = allocate(pay.total, row.Price, totals[item.OrderID])

	row.PurchaseDate = day(order.PurchasedAt)
	if order.DeliveredAt != nil {
		delivered := day(*order.DeliveredAt)
		days := int(delivered.Sub(row.PurchaseDate).Hours() / 24)
		row.DeliveredDate = &delivered
		row.DeliveryDays = &days
	}
	if order.EstimatedAt != nil {
		estimated := day(*order.EstimatedAt)
		row.EstimatedDate = &estimated
	}
	return row, true
}

// allocate splits an order's payment total over its items by price share,
// evenly when the order has no priced items.
func allocate(total, price float64, t *orderTotals) float64 {
	if t == nil || t.items == 0 {
		return 0
	}
	share := 1 / float64(t.items)
	if t.price > 0 {
		share = price / t.price
	}
	return math.Round(total*share*100) / 100
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
