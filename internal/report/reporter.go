//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package report collects run statistics from concurrent producers and
// freezes them into a RunReport.
package report

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/geo"
	"github.com/pgEdge/pgedge-starload/internal/loader"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// Run phases in execution order.
const (
	PhaseInit           = "init"
	PhaseDecode         = "decode"
	PhaseBuild          = "build_dimensions"
	PhaseLoadDimensions = "load_dimensions"
	PhaseLoadFacts      = "load_facts"
	PhaseVerify         = "verify"
	PhaseDone           = "done"
)

// Status is the final state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// SampleLimit is the number of error messages kept per kind.
const SampleLimit = 10

// scoreBounds are the lower bounds of the fuzzy score histogram buckets.
var scoreBounds = []float64{0.80, 0.85, 0.90, 0.95}

// BucketLabels names the histogram buckets; the first holds scores under
// the lowest bound, reachable only with a lowered threshold.
var BucketLabels = []string{"<0.80", "[0.80,0.85)", "[0.85,0.90)", "[0.90,0.95)", "[0.95,1.00]"}

func bucket(score float64) int {
	i := sort.Search(len(scoreBounds), func(i int) bool { return scoreBounds[i] > score })
	return i
}

// Reporter is safe for concurrent use.
type Reporter struct {
	runID   string
	started time.Time

	mu        sync.Mutex
	phase     string
	integrity *warehouse.Integrity
	reference CityReference

	errorMetrics sync.Map // map[etlerr.Kind]*errorMetric
	orphans      sync.Map // map[string]*atomic.Int64
	tableMetrics sync.Map // map[string]*tableMetric
	matchMetrics sync.Map // map[string]*matchMetric
}

type errorMetric struct {
	count   atomic.Int64
	mu      sync.Mutex
	samples []string
}

type tableMetric struct {
	built   atomic.Int64
	mu      sync.Mutex
	outcome *loader.Outcome
}

type matchMetric struct {
	exact    atomic.Int64
	fuzzy    atomic.Int64
	fallback atomic.Int64
	buckets  [5]atomic.Int64

	mu   sync.Mutex
	seen int64
	min  float64
	max  float64
	sum  float64
}

// New creates a Reporter for a new run.
func New() *Reporter {
	return &Reporter{
		runID:   uuid.NewString(),
		started: time.Now().UTC(),
		phase:   PhaseInit,
	}
}

// RunID returns the run identifier.
func (r *Reporter) RunID() string {
	return r.runID
}

// SetPhase records the phase the run has reached.
func (r *Reporter) SetPhase(phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phase
}

// Phase returns the current phase.
func (r *Reporter) Phase() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// RecordRowError counts a non-fatal error.
func (r *Reporter) RecordRowError(e *etlerr.RowError) {
	m := loadOrStore(&r.errorMetrics, e.Kind, func() *errorMetric { return &errorMetric{} })
	m.count.Add(1)

	m.mu.Lock()
	if len(m.samples) < SampleLimit {
		m.samples = append(m.samples, e.Error())
	}
	m.mu.Unlock()

	if e.Kind == etlerr.KindOrphanReference {
		loadOrStore(&r.orphans, e.Field, func() *atomic.Int64 { return &atomic.Int64{} }).Add(1)
	}
}

// RecordMatch counts a city match made for a dimension row of table.
func (r *Reporter) RecordMatch(table string, m geo.Match) {
	mm := loadOrStore(&r.matchMetrics, table, func() *matchMetric { return &matchMetric{} })
	switch m.Method {
	case geo.MethodExact:
		mm.exact.Add(1)
	case geo.MethodFuzzy:
		mm.fuzzy.Add(1)
		mm.buckets[bucket(m.Score)].Add(1)

		mm.mu.Lock()
		mm.seen++
		if mm.seen == 1 || m.Score < mm.min {
			mm.min = m.Score
		}
		mm.max = math.Max(mm.max, m.Score)
		mm.sum += m.Score
		mm.mu.Unlock()
	default:
		mm.fallback.Add(1)
	}
}

// RecordBuilt records the number of rows built for a table.
func (r *Reporter) RecordBuilt(table string, n int) {
	r.table(table).built.Store(int64(n))
}

// RecordLoad records the outcome of loading a table.
func (r *Reporter) RecordLoad(out loader.Outcome) {
	t := r.table(out.Table)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcome = &out
}

// RecordIntegrity records the post-load verification.
func (r *Reporter) RecordIntegrity(i warehouse.Integrity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrity = &i
}

// RecordCityReference records the size of the city reference index.
func (r *Reporter) RecordCityReference(entries, duplicates int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reference = CityReference{Entries: entries, Duplicates: duplicates}
}

// ErrorCount returns the number of errors recorded for a kind.
func (r *Reporter) ErrorCount(kind etlerr.Kind) int64 {
	if m, ok := r.errorMetrics.Load(kind); ok {
		return m.(*errorMetric).count.Load()
	}
	return 0
}

func (r *Reporter) table(name string) *tableMetric {
	return loadOrStore(&r.tableMetrics, name, func() *tableMetric { return &tableMetric{} })
}

func loadOrStore[K comparable, V any](m *sync.Map, key K, create func() V) V {
	if v, ok := m.Load(key); ok {
		return v.(V)
	}
	actual, _ := m.LoadOrStore(key, create())
	return actual.(V)
}

// Finalize freezes the collected statistics. The reporter may keep
// receiving records afterwards without affecting the returned report.
func (r *Reporter) Finalize(status Status, err error) RunReport {
	finished := time.Now().UTC()

	r.mu.Lock()
	rep := RunReport{
		RunID:         r.runID,
		StartedAt:     r.started,
		FinishedAt:    finished,
		Duration:      finished.Sub(r.started),
		Phase:         r.phase,
		Status:        status,
		CityReference: r.reference,
		Errors:        make(map[string]int64, len(etlerr.Kinds)),
		Orphans:       make(map[string]int64),
		Matches:       make(map[string]MatchReport),
		Samples:       make(map[string][]string),
	}
	if r.integrity != nil {
		i := *r.integrity
		rep.Integrity = &i
	}
	r.mu.Unlock()

	if err != nil {
		rep.Error = err.Error()
		if fe, ok := etlerr.AsFatal(err); ok {
			rep.FailedTable = fe.Table
		}
	}

	for _, k := range etlerr.Kinds {
		rep.Errors[string(k)] = 0
	}
	r.errorMetrics.Range(func(key, value any) bool {
		m := value.(*errorMetric)
		rep.Errors[string(key.(etlerr.Kind))] = m.count.Load()
		m.mu.Lock()
		if len(m.samples) > 0 {
			rep.Samples[string(key.(etlerr.Kind))] = append([]string(nil), m.samples...)
		}
		m.mu.Unlock()
		return true
	})

	r.orphans.Range(func(key, value any) bool {
		rep.Orphans[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	r.matchMetrics.Range(func(key, value any) bool {
		rep.Matches[key.(string)] = value.(*matchMetric).snapshot()
		return true
	})

	for _, t := range warehouse.All() {
		v, ok := r.tableMetrics.Load(t.Name)
		if !ok {
			continue
		}
		rep.Tables = append(rep.Tables, v.(*tableMetric).snapshot(t.Name))
	}
	return rep
}

func (m *matchMetric) snapshot() MatchReport {
	mr := MatchReport{
		Exact:     m.exact.Load(),
		Fuzzy:     m.fuzzy.Load(),
		Default:   m.fallback.Load(),
		Histogram: make([]Bucket, len(BucketLabels)),
	}
	for i, label := range BucketLabels {
		mr.Histogram[i] = Bucket{Range: label, Count: m.buckets[i].Load()}
	}
	if total := mr.Exact + mr.Fuzzy + mr.Default; total > 0 {
		mr.SuccessRate = float64(mr.Exact+mr.Fuzzy) / float64(total)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen > 0 {
		mr.MinScore = m.min
		mr.MaxScore = m.max
		mr.MeanScore = m.sum / float64(m.seen)
	}
	return mr
}

func (t *tableMetric) snapshot(name string) TableReport {
	tr := TableReport{Table: name, Built: t.built.Load()}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.outcome != nil {
		tr.Loaded = true
		tr.Committed = t.outcome.Committed
		tr.Skipped = t.outcome.Skipped
		tr.Batches = t.outcome.Batches
		tr.FailedBatches = t.outcome.FailedBatches
		tr.SkippedKeys = append([]string(nil), t.outcome.SkippedKeys...)
		tr.Digest = fmt.Sprintf("%016x", t.outcome.Digest)
	}
	return tr
}
