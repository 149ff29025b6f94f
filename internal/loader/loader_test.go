package loader

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/fact"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

var testTable = warehouse.Table{
	Name: "t",
	Columns: []warehouse.Column{
		{Name: "id", Type: "BIGINT"},
		{Name: "name", Type: "TEXT", Nullable: true},
	},
	PrimaryKey: []string{"id"},
}

type testRow struct {
	id   int64
	name string
}

func (r testRow) BusinessKey() string { return strconv.FormatInt(r.id, 10) }
func (r testRow) Values() []any       { return []any{r.id, r.name} }

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

func rows(n int) []testRow {
	out := make([]testRow, n)
	for i := range out {
		out[i] = testRow{id: int64(i + 1), name: "row"}
	}
	return out
}

func TestLoadCommitsAllBatches(t *testing.T) {
	sink := NewMemorySink()
	l := New(sink, 10, nil)

	out, err := l.Load(context.Background(), testTable, warehouse.Seq(rows(25)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out.Committed != 25 {
		t.Errorf("Expected 25 committed, got %d", out.Committed)
	}
	if out.Batches != 3 {
		t.Errorf("Expected 3 batches, got %d", out.Batches)
	}
	if out.FailedBatches != 0 || out.Skipped != 0 {
		t.Errorf("Expected no failures, got %d batches and %d rows", out.FailedBatches, out.Skipped)
	}
	if sink.Count("t") != 25 {
		t.Errorf("Expected 25 stored rows, got %d", sink.Count("t"))
	}
}

func TestLoadOneBadRowInBatch(t *testing.T) {
	data := rows(1000)
	// row 501 repeats the key of row 500
	data[500].id = data[499].id

	sink := NewMemorySink()
	rec := &recorder{}
	l := New(sink, 1000, rec)

	out, err := l.Load(context.Background(), testTable, warehouse.Seq(data))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out.Committed != 999 {
		t.Errorf("Expected 999 committed, got %d", out.Committed)
	}
	if out.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", out.Skipped)
	}
	if out.FailedBatches != 1 {
		t.Errorf("Expected 1 failed batch, got %d", out.FailedBatches)
	}
	if len(out.SkippedKeys) != 1 || out.SkippedKeys[0] != "500" {
		t.Errorf("Expected skipped key 500, got %v", out.SkippedKeys)
	}
	if n := rec.count(etlerr.KindBatchCommit); n != 1 {
		t.Errorf("Expected 1 batch_commit error, got %d", n)
	}
	if n := rec.count(etlerr.KindRowCommit); n != 1 {
		t.Errorf("Expected 1 row_commit error, got %d", n)
	}
	if sink.Count("t") != 999 {
		t.Errorf("Expected 999 stored rows, got %d", sink.Count("t"))
	}
}

func TestLoadDigestIsStable(t *testing.T) {
	load := func() uint64 {
		out, err := New(NewMemorySink(), 7, nil).Load(context.Background(), testTable, warehouse.Seq(rows(20)))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return out.Digest
	}
	a, b := load(), load()
	if a != b {
		t.Errorf("Expected identical digests, got %x and %x", a, b)
	}

	other, _ := New(NewMemorySink(), 7, nil).Load(context.Background(), testTable, warehouse.Seq(rows(19)))
	if other.Digest == a {
		t.Error("Expected different content to change the digest")
	}
}

type nopSink struct{}

func (nopSink) CommitBatch(context.Context, warehouse.Table, [][]any) error { return nil }

func TestLoadDigestIgnoresPointerIdentity(t *testing.T) {
	load := func(score float64) uint64 {
		delivered := time.Date(2017, time.March, 9, 0, 0, 0, 0, time.UTC)
		row := fact.Row{
			OrderID:       "o1",
			ItemSeq:       1,
			ProductID:     "p",
			Status:        "delivered",
			ReviewScore:   &score,
			DeliveredDate: &delivered,
		}
		out, err := New(nopSink{}, 10, nil).Load(context.Background(), warehouse.FactTable, warehouse.Seq([]fact.Row{row}))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return out.Digest
	}

	a, b := load(4.0), load(4.0)
	if a != b {
		t.Errorf("Expected identical digests for identical rows, got %x and %x", a, b)
	}
	if c := load(3.0); c == a {
		t.Error("Expected a different review score to change the digest")
	}
}

func TestDigestValue(t *testing.T) {
	s := "x"
	var nilString *string
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "\x00"},
		{"typed nil pointer", nilString, "\x00"},
		{"pointer", &s, "x"},
		{"int", 42, "42"},
	}
	for _, tt := range tests {
		if got := digestValue(tt.in); got != tt.want {
			t.Errorf("%s: Expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

type failingSink struct {
	err   error
	calls int
}

func (s *failingSink) CommitBatch(context.Context, warehouse.Table, [][]any) error {
	s.calls++
	return s.err
}

func TestLoadFatalError(t *testing.T) {
	sink := &failingSink{err: errors.New("connection reset")}
	out, err := New(sink, 10, nil).Load(context.Background(), testTable, warehouse.Seq(rows(30)))
	if err == nil {
		t.Fatal("Expected an error")
	}
	fe, ok := etlerr.AsFatal(err)
	if !ok {
		t.Fatalf("Expected a fatal error, got %T", err)
	}
	if fe.Phase != "load" || fe.Table != "t" {
		t.Errorf("Expected phase load on table t, got %s on %s", fe.Phase, fe.Table)
	}
	if sink.calls != 1 {
		t.Errorf("Expected the load to stop after the first batch, got %d calls", sink.calls)
	}
	if out.Committed != 0 {
		t.Errorf("Expected nothing committed, got %d", out.Committed)
	}
}

func TestLoadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(NewMemorySink(), 10, nil).Load(ctx, testTable, warehouse.Seq(rows(5)))
	if !etlerr.IsFatal(err) {
		t.Fatalf("Expected a fatal error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLoadEmpty(t *testing.T) {
	out, err := New(NewMemorySink(), 10, nil).Load(context.Background(), testTable, warehouse.Seq([]testRow{}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out.Batches != 0 || out.Committed != 0 {
		t.Errorf("Expected an empty outcome, got %+v", out)
	}
}

func TestNewDefaultBatchSize(t *testing.T) {
	if got := New(NewMemorySink(), 0, nil).BatchSize(); got != DefaultBatchSize {
		t.Errorf("Expected %d, got %d", DefaultBatchSize, got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, true},
		{"numeric out of range", &pgconn.PgError{Code: "22003"}, true},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"insufficient privilege", &pgconn.PgError{Code: "42501"}, false},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, false},
		{"not a server error", errors.New("broken pipe"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRejected(classify(tt.err)); got != tt.rejected {
				t.Errorf("Expected rejected=%v, got %v", tt.rejected, got)
			}
		})
	}
}

func TestMemorySinkForeignKeys(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	dims := []struct {
		def  warehouse.Table
		vals []any
	}{
		{warehouse.TimeTable, make([]any, len(warehouse.TimeTable.Columns))},
		{warehouse.CustomerTable, make([]any, len(warehouse.CustomerTable.Columns))},
		{warehouse.SellerTable, make([]any, len(warehouse.SellerTable.Columns))},
		{warehouse.PaymentTable, make([]any, len(warehouse.PaymentTable.Columns))},
		{warehouse.ReviewTable, make([]any, len(warehouse.ReviewTable.Columns))},
	}
	for _, d := range dims {
		for i := range d.vals {
			d.vals[i] = "x"
		}
		d.vals[0] = int64(1)
		if err := sink.CommitBatch(ctx, d.def, [][]any{d.vals}); err != nil {
			t.Fatalf("Failed to load %s: %v", d.def.Name, err)
		}
	}

	fact := func(customer int64) []any {
		v := make([]any, len(warehouse.FactTable.Columns))
		for i := range v {
			v[i] = "x"
		}
		v[0], v[1] = "o1", int(customer)
		for _, fk := range warehouse.FactTable.References {
			v[warehouse.FactTable.ColumnIndex(fk.Column)] = int64(1)
		}
		v[warehouse.FactTable.ColumnIndex("customer_key")] = customer
		return v
	}

	if err := sink.CommitBatch(ctx, warehouse.FactTable, [][]any{fact(1)}); err != nil {
		t.Fatalf("Expected a resolvable fact row to commit, got %v", err)
	}
	err := sink.CommitBatch(ctx, warehouse.FactTable, [][]any{fact(2)})
	if !IsRejected(err) {
		t.Fatalf("Expected a dangling customer key to be rejected, got %v", err)
	}

	res, err := sink.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity failed: %v", err)
	}
	if !res.OK() {
		t.Errorf("Expected no dangling keys, got %v", res.Dangling)
	}
	if res.Counts[warehouse.FactOrderItem] != 1 {
		t.Errorf("Expected 1 fact row, got %d", res.Counts[warehouse.FactOrderItem])
	}
}

func TestMemorySinkNotNull(t *testing.T) {
	sink := NewMemorySink()
	err := sink.CommitBatch(context.Background(), testTable, [][]any{{nil, "a"}})
	if !IsRejected(err) {
		t.Errorf("Expected a null key to be rejected, got %v", err)
	}
	if err := sink.CommitBatch(context.Background(), testTable, [][]any{{int64(1), nil}}); err != nil {
		t.Errorf("Expected a null in a nullable column to commit, got %v", err)
	}
}

func TestProgressReporter(t *testing.T) {
	p := NewProgressReporter("t", 10)
	p.Update(4)
	p.Update(8)
	if p.Rows() != 12 {
		t.Errorf("Expected 12 rows, got %d", p.Rows())
	}
}
