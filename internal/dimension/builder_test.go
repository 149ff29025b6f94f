package dimension

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-starload/internal/calendar"
	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/geo"
	"github.com/pgEdge/pgedge-starload/internal/keys"
	"github.com/pgEdge/pgedge-starload/internal/source"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

type recorder struct {
	mu      sync.Mutex
	matches map[geo.Method]int
	errs    []*etlerr.RowError
}

func newRecorder() *recorder {
	return &recorder{matches: make(map[geo.Method]int)}
}

func (r *recorder) RecordMatch(table string, m geo.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.Method]++
}

func (r *recorder) RecordRowError(e *etlerr.RowError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func ptr[T any](v T) *T { return &v }

func testMatcher() *geo.Matcher {
	return geo.NewMatcher(geo.NewCityIndex([]source.City{
		{Name: "São Paulo", State: "SP", Population: ptr(int64(12325232)), HDI: ptr(0.805)},
		{Name: "Campinas", State: "SP", Population: ptr(int64(1213792)), HDI: ptr(0.805)},
		{Name: "Barreiras", State: "BA", Population: ptr(int64(156975)), HDI: ptr(0.721)},
	}), geo.DefaultThreshold)
}

func TestBuildTime(t *testing.T) {
	b := NewBuilder(keys.NewRegistry(), testMatcher(), nil, 2)
	start := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC)

	rows, err := b.BuildTime(start, end, calendar.NewBrazil())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 1461 {
		t.Fatalf("Expected 1461 days, got %d", len(rows))
	}
	if rows[0].Key != 20160101 || rows[len(rows)-1].Key != 20191231 {
		t.Errorf("Unexpected key range %d..%d", rows[0].Key, rows[len(rows)-1].Key)
	}

	var oct2 TimeRow
	for _, r := range rows {
		if r.Key == 20171002 {
			oct2 = r
		}
	}
	if oct2.DayName != "Monday" {
		t.Errorf("Expected Monday, got %s", oct2.DayName)
	}
	if oct2.Quarter != 4 || oct2.QuarterName != "Q4" {
		t.Errorf("Expected Q4, got %d %s", oct2.Quarter, oct2.QuarterName)
	}
	if oct2.ISOWeek != 40 {
		t.Errorf("Expected ISO week 40, got %d", oct2.ISOWeek)
	}
	if oct2.IsWeekend || oct2.IsHoliday {
		t.Error("Expected a regular weekday")
	}

	christmas := rows[len(rows)-7]
	if !christmas.IsHoliday || christmas.HolidayName != "Christmas Day" {
		t.Errorf("Expected Christmas Day on %s, got %q", christmas.Date.Format(DateLayout), christmas.HolidayName)
	}

	k, err := b.registry.Lookup(warehouse.DimTime, "2018-05-31")
	if err != nil || k != 20180531 {
		t.Errorf("Expected pinned key 20180531, got %d (%v)", k, err)
	}
}

func TestBuildTimeInvalidRange(t *testing.T) {
	b := NewBuilder(keys.NewRegistry(), testMatcher(), nil, 1)
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := b.BuildTime(start, start.AddDate(0, 0, -1), nil); err == nil {
		t.Error("Expected error for end before start")
	}
}

func TestBuildCustomersDuplicateFirstWins(t *testing.T) {
	rec := newRecorder()
	b := NewBuilder(keys.NewRegistry(), testMatcher(), rec, 3)

	rows, err := b.BuildCustomers(context.Background(), []source.Customer{
		{Line: 2, ID: "c1", City: "sao paulo", State: "SP"},
		{Line: 3, ID: "c2", City: "campinass", State: "SP"},
		{Line: 4, ID: "c1", City: "barreiras", State: "BA"},
		{Line: 5, ID: "c3", City: "atlantis", State: "AM"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.ID != "c1" || first.Geo.State != "SP" || first.Geo.Match.City.Name != "São Paulo" {
		t.Errorf("Expected first occurrence of c1 to win, got %+v", first.Geo)
	}
	if first.Key != 1 || rows[1].Key != 2 || rows[2].Key != 3 {
		t.Errorf("Expected keys 1..3 in source order, got %d %d %d", rows[0].Key, rows[1].Key, rows[2].Key)
	}
	if first.Geo.Region != "Southeast" || first.Geo.CitySize != "Metropolis" || first.Geo.DevelopmentLevel != "Very High" {
		t.Errorf("Unexpected derived attributes %+v", first.Geo)
	}

	if rows[1].Geo.Match.Method != geo.MethodFuzzy {
		t.Errorf("Expected fuzzy match for campinass, got %s", rows[1].Geo.Match.Method)
	}
	unknown := rows[2].Geo
	if unknown.Match.Method != geo.MethodDefault || unknown.CitySize != Unknown || unknown.Region != "North" {
		t.Errorf("Unexpected attributes for unmatched city %+v", unknown)
	}

	if len(rec.errs) != 1 || rec.errs[0].Kind != etlerr.KindDuplicateKey || rec.errs[0].Line != 4 {
		t.Errorf("Expected one duplicate_key warning on line 4, got %v", rec.errs)
	}
	if rec.matches[geo.MethodExact] != 1 || rec.matches[geo.MethodFuzzy] != 1 || rec.matches[geo.MethodDefault] != 1 {
		t.Errorf("Unexpected match counts %v", rec.matches)
	}
}

func TestBuildSellersCancelled(t *testing.T) {
	b := NewBuilder(keys.NewRegistry(), testMatcher(), nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.BuildSellers(ctx, []source.Seller{{ID: "s1", City: "campinas", State: "SP"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBuildSellers(t *testing.T) {
	b := NewBuilder(keys.NewRegistry(), testMatcher(), nil, 4)
	rows, err := b.BuildSellers(context.Background(), []source.Seller{
		{ID: "s1", City: "Campinas", State: "SP", ZipPrefix: "13023"},
		{ID: "s2", City: "barreiras", State: "BA"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[1].Geo.Region != "Northeast" || rows[1].Geo.CitySize != "Medium" || rows[1].Geo.DevelopmentLevel != "High" {
		t.Errorf("Unexpected derived attributes %+v", rows[1].Geo)
	}
	if got := len(rows[0].Values()); got != len(warehouse.SellerTable.Columns) {
		t.Errorf("Expected %d values, got %d", len(warehouse.SellerTable.Columns), got)
	}
}

func TestBuildPayments(t *testing.T) {
	reg := keys.NewRegistry()
	b := NewBuilder(reg, testMatcher(), nil, 1)

	rows := b.BuildPayments([]source.Payment{
		{Type: "credit_card", Installments: 1},
		{Type: "credit_card", Installments: 8},
		{Type: "credit_card", Installments: 10},
		{Type: "boleto", Installments: 1},
		{Type: "not_defined", Installments: 2},
	})

	if len(rows) != 4 {
		t.Fatalf("Expected 4 payment rows, got %d", len(rows))
	}
	if rows[1].InstallmentsRange != "7-12 installments" || !rows[1].IsCredit || !rows[1].IsInstallment {
		t.Errorf("Unexpected credit row %+v", rows[1])
	}
	if rows[3].Category != "Other" {
		t.Errorf("Expected Other category, got %s", rows[3].Category)
	}
	if _, err := reg.Lookup(warehouse.DimPayment, PaymentBusinessKey("credit_card", 12)); err != nil {
		t.Errorf("Expected 12 installments to resolve to the 7-12 row: %v", err)
	}
}

func TestBuildReviews(t *testing.T) {
	reg := keys.NewRegistry()
	b := NewBuilder(reg, testMatcher(), nil, 1)

	rows := b.BuildReviews([]source.Review{
		{Score: 5},
		{Score: 4},
		{Score: 1, Comment: "produto chegou quebrado e atrasado"},
		{Score: 3, Comment: "ok"},
	})

	// Positive|No Comment, Negative|Medium, Neutral|Short, No Review
	if len(rows) != 4 {
		t.Fatalf("Expected 4 review rows, got %d", len(rows))
	}
	last := rows[len(rows)-1]
	if last.Category != NoReviewCategory || last.HasComment {
		t.Errorf("Expected the no review row last, got %+v", last)
	}
	if _, err := reg.Lookup(warehouse.DimReview, NoReviewKey); err != nil {
		t.Errorf("Expected no review key to resolve: %v", err)
	}
	if rows[1].CommentLength != "Medium (30-49)" || !rows[1].HasComment {
		t.Errorf("Unexpected negative review row %+v", rows[1])
	}
}
