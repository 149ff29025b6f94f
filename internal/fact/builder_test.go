package fact

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-starload/internal/calendar"
	"github.com/pgEdge/pgedge-starload/internal/dimension"
	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/geo"
	"github.com/pgEdge/pgedge-starload/internal/keys"
	"github.com/pgEdge/pgedge-starload/internal/source"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

type recorder struct {
	mu   sync.Mutex
	errs []*etlerr.RowError
}

func (r *recorder) RecordRowError(e *etlerr.RowError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recorder) count(kind etlerr.Kind) int {
	n := 0
	for _, e := range r.errs {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func ts(s string) time.Time {
	t, err := source.ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

func seq(n int) *int { return &n }

func testRecords() *source.Records {
	return &source.Records{
		Orders: []source.Order{
			{Line: 2, ID: "o1", CustomerID: "c1", Status: "delivered",
				PurchasedAt: ts("2017-10-02 10:56:33"),
				DeliveredAt: tsp("2017-10-10 21:25:13"),
				EstimatedAt: tsp("2017-10-18 00:00:00")},
			{Line: 3, ID: "o2", CustomerID: "c2", Status: "shipped",
				PurchasedAt: ts("2018-07-24 20:41:37")},
			{Line: 4, ID: "o3", CustomerID: "c1", Status: "delivered",
				PurchasedAt: ts("2015-01-01 08:00:00")},
		},
		Items: []source.OrderItem{
			{Line: 2, OrderID: "o1", Seq: 1, ProductID: "p1", SellerID: "s1",
				Price: source.NewAmount(30), Freight: source.NewAmount(5)},
			{Line: 3, OrderID: "o1", Seq: 2, ProductID: "p2", SellerID: "s2",
				Price: source.NewAmount(10), Freight: source.ParseAmount("-1")},
			{Line: 4, OrderID: "o2", Seq: 1, SellerID: "s1",
				Price: source.NewAmount(20), Freight: source.NewAmount(2)},
			{Line: 5, OrderID: "o9", Seq: 1, SellerID: "s1",
				Price: source.NewAmount(1), Freight: source.NewAmount(1)},
			{Line: 6, OrderID: "o3", Seq: 1, SellerID: "s1",
				Price: source.NewAmount(1), Freight: source.NewAmount(1)},
		},
		Customers: []source.Customer{
			{ID: "c1", City: "sao paulo", State: "SP"},
			{ID: "c2", City: "sao paulo", State: "SP"},
		},
		Sellers: []source.Seller{
			{ID: "s1", City: "sao paulo", State: "SP"},
			{ID: "s2", City: "sao paulo", State: "SP"},
		},
		Payments: []source.Payment{
			{OrderID: "o1", Sequential: seq(2), Type: "voucher", Installments: 1, Value: source.NewAmount(40)},
			{OrderID: "o1", Sequential: seq(1), Type: "credit_card", Installments: 3, Value: source.NewAmount(60)},
			{OrderID: "o3", Sequential: seq(1), Type: "boleto", Installments: 1, Value: source.NewAmount(2)},
		},
		Reviews: []source.Review{
			{ID: "r1", OrderID: "o1", Score: 2, CreatedAt: tsp("2017-10-11 00:00:00")},
			{ID: "r2", OrderID: "o1", Score: 5, Comment: "ótimo", CreatedAt: tsp("2017-10-12 00:00:00")},
		},
	}
}

// populate runs the dimension builds the way the pipeline does.
func populate(t *testing.T, recs *source.Records) *keys.Registry {
	t.Helper()
	reg := keys.NewRegistry()
	idx := geo.NewCityIndex([]source.City{{Name: "São Paulo", State: "SP"}})
	b := dimension.NewBuilder(reg, geo.NewMatcher(idx, 0), nil, 2)

	start := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC)
	if _, err := b.BuildTime(start, end, calendar.NewNone()); err != nil {
		t.Fatalf("BuildTime: %v", err)
	}
	if _, err := b.BuildCustomers(context.Background(), recs.Customers); err != nil {
		t.Fatalf("BuildCustomers: %v", err)
	}
	if _, err := b.BuildSellers(context.Background(), recs.Sellers); err != nil {
		t.Fatalf("BuildSellers: %v", err)
	}
	b.BuildPayments(recs.Payments)
	b.BuildReviews(recs.Reviews)
	return reg
}

func collect(t *testing.T, recs *source.Records, rec *recorder) []Row {
	t.Helper()
	reg := populate(t, recs)
	var rows []Row
	for r := range NewBuilder(reg, rec).Build(recs) {
		rows = append(rows, r.(Row))
	}
	return rows
}

func TestBuildJoinsAndMeasures(t *testing.T) {
	rec := &recorder{}
	rows := collect(t, testRecords(), rec)

	// o1 yields two rows; o2 has no payments, o9 has no header, o3 predates the calendar
	if len(rows) != 2 {
		t.Fatalf("Expected 2 fact rows, got %d", len(rows))
	}

	first, second := rows[0], rows[1]
	if first.BusinessKey() != "o1|1" || second.BusinessKey() != "o1|2" {
		t.Errorf("Expected source order, got %s, %s", first.BusinessKey(), second.BusinessKey())
	}
	if first.TimeKey != 20171002 {
		t.Errorf("Expected time key 20171002, got %d", first.TimeKey)
	}
	if first.PaymentValue != 75 || second.PaymentValue != 25 {
		t.Errorf("Expected payment value split 75/25, got %v/%v", first.PaymentValue, second.PaymentValue)
	}
	if first.Installments != 3 || first.PaymentCount != 2 {
		t.Errorf("Expected primary payment installments 3 of 2 payments, got %d of %d", first.Installments, first.PaymentCount)
	}
	if first.ReviewScore == nil || *first.ReviewScore != 3.5 {
		t.Errorf("Expected average review score 3.5, got %v", first.ReviewScore)
	}
	if second.ReviewScore == nil || *second.ReviewScore != 3.5 {
		t.Error("Expected review score replicated to every item of the order")
	}
	if first.DeliveryDays == nil || *first.DeliveryDays != 8 {
		t.Errorf("Expected 8 delivery days, got %v", first.DeliveryDays)
	}
	if second.Freight != 0 {
		t.Errorf("Expected negative freight defaulted to 0, got %v", second.Freight)
	}
	if got := len(first.Values()); got != len(warehouse.FactTable.Columns) {
		t.Errorf("Expected %d values, got %d", len(warehouse.FactTable.Columns), got)
	}

	if n := rec.count(etlerr.KindMeasureDefaulted); n != 1 {
		t.Errorf("Expected 1 measure_defaulted warning, got %d", n)
	}
	if n := rec.count(etlerr.KindOrphanReference); n != 3 {
		t.Errorf("Expected 3 orphans, got %d", n)
	}
}

func TestOrderWithoutPaymentIsOrphan(t *testing.T) {
	rec := &recorder{}
	rows := collect(t, testRecords(), rec)

	for _, r := range rows {
		if r.OrderID == "o2" {
			t.Fatal("Expected order without payments to be excluded")
		}
	}
	found := false
	for _, e := range rec.errs {
		if e.Kind == etlerr.KindOrphanReference && e.Key == "o2|1" {
			found = true
			if e.Field != warehouse.DimPayment {
				t.Errorf("Expected orphan on %s, got %s", warehouse.DimPayment, e.Field)
			}
		}
	}
	if !found {
		t.Error("Expected o2 to be counted as an orphan")
	}
}

func TestOrphanDimensions(t *testing.T) {
	rec := &recorder{}
	collect(t, testRecords(), rec)

	dims := make(map[string]string)
	for _, e := range rec.errs {
		if e.Kind == etlerr.KindOrphanReference {
			dims[e.Key] = e.Field
		}
	}
	if dims["o9|1"] != OrdersDimension {
		t.Errorf("Expected missing header to be reported on %s, got %q", OrdersDimension, dims["o9|1"])
	}
	if dims["o3|1"] != warehouse.DimTime {
		t.Errorf("Expected out-of-calendar purchase date on %s, got %q", warehouse.DimTime, dims["o3|1"])
	}
}

func TestRevokedKeyMakesOrphan(t *testing.T) {
	recs := testRecords()
	reg := populate(t, recs)
	reg.Namespace(warehouse.DimSeller).Revoke("s2")

	rec := &recorder{}
	var rows []Row
	for r := range NewBuilder(reg, rec).Build(recs) {
		rows = append(rows, r.(Row))
	}
	if len(rows) != 1 || rows[0].SellerKey == 0 {
		t.Fatalf("Expected only the item sold by s1, got %d rows", len(rows))
	}
	if n := rec.count(etlerr.KindOrphanReference); n != 4 {
		t.Errorf("Expected 4 orphans, got %d", n)
	}
}

func TestBuildStopsEarly(t *testing.T) {
	recs := testRecords()
	reg := populate(t, recs)
	n := 0
	for range NewBuilder(reg, &recorder{}).Build(recs) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("Expected to stop after one row, got %d", n)
	}
}

func TestAllocate(t *testing.T) {
	if got := allocate(90, 0, &orderTotals{price: 0, items: 3}); got != 30 {
		t.Errorf("Expected even split 30, got %v", got)
	}
	if got := allocate(10, 1, &orderTotals{price: 3, items: 2}); got != 3.33 {
		t.Errorf("Expected 3.33, got %v", got)
	}
	if got := allocate(10, 1, nil); got != 0 {
		t.Errorf("Expected 0 without totals, got %v", got)
	}
}

func TestMostRecentReview(t *testing.T) {
	a := &source.Review{CreatedAt: tsp("2017-10-11 00:00:00")}
	b := &source.Review{CreatedAt: tsp("2017-10-11 00:00:00"), AnsweredAt: tsp("2017-10-12 00:00:00")}
	c := &source.Review{}

	if !later(b, a) {
		t.Error("Expected later answer to win a creation tie")
	}
	if later(c, a) {
		t.Error("Expected a review without dates to be older")
	}
	if !later(a, a) {
		t.Error("Expected equal timestamps to favour the later position")
	}
}
