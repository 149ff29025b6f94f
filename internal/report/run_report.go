//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// RunReport is the immutable summary of one run.
type RunReport struct {
	RunID      string        `yaml:"run_id"`
	StartedAt  time.Time     `yaml:"started_at"`
	FinishedAt time.Time     `yaml:"finished_at"`
	Duration   time.Duration `yaml:"duration"`
	Phase      string        `yaml:"phase"`
	Status     Status        `yaml:"status"`

	Error       string `yaml:"error,omitempty"`
	FailedTable string `yaml:"failed_table,omitempty"`

	CityReference CityReference          `yaml:"city_reference"`
	Tables        []TableReport          `yaml:"tables"`
	Errors        map[string]int64       `yaml:"errors"`
	Orphans       map[string]int64       `yaml:"orphans,omitempty"`
	Matches       map[string]MatchReport `yaml:"matches,omitempty"`
	Integrity     *warehouse.Integrity   `yaml:"integrity,omitempty"`
	Samples       map[string][]string    `yaml:"samples,omitempty"`
}

// CityReference describes the city reference index used by the run.
type CityReference struct {
	Entries    int `yaml:"entries"`
	Duplicates int `yaml:"duplicates"`
}

// TableReport holds the build and load figures of one table.
type TableReport struct {
	Table         string   `yaml:"table"`
	Built         int64    `yaml:"built"`
	Loaded        bool     `yaml:"loaded"`
	Committed     int64    `yaml:"committed"`
	Skipped       int64    `yaml:"skipped"`
	Batches       int64    `yaml:"batches"`
	FailedBatches int64    `yaml:"failed_batches"`
	SkippedKeys   []string `yaml:"skipped_keys,omitempty"`
	Digest        string   `yaml:"digest,omitempty"`
}

// MatchReport holds the city match statistics of one dimension. SuccessRate
// is the share of exact and fuzzy matches among all lookups.
type MatchReport struct {
	Exact       int64    `yaml:"exact"`
	Fuzzy       int64    `yaml:"fuzzy"`
	Default     int64    `yaml:"default"`
	SuccessRate float64  `yaml:"success_rate"`
	Histogram   []Bucket `yaml:"histogram"`
	MinScore    float64  `yaml:"min_score"`
	MeanScore   float64  `yaml:"mean_score"`
	MaxScore    float64  `yaml:"max_score"`
}

// Bucket is one fuzzy score histogram bucket.
type Bucket struct {
	Range string `yaml:"range"`
	Count int64  `yaml:"count"`
}

// Table returns the report of a table.
func (r RunReport) Table(name string) (TableReport, bool) {
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableReport{}, false
}

// TotalErrors returns the number of non-fatal errors.
func (r RunReport) TotalErrors() int64 {
	var n int64
	for _, c := range r.Errors {
		n += c
	}
	return n
}

// Succeeded reports whether the run completed.
func (r RunReport) Succeeded() bool {
	return r.Status == StatusCompleted
}

// Log writes the report through the global logger.
func (r RunReport) Log() {
	event := logging.Info()
	if !r.Succeeded() {
		event = logging.Error().Str("error", r.Error)
	}
	event.
		Str("run_id", r.RunID).
		Str("status", string(r.Status)).
		Str("phase", r.Phase).
		Dur("duration", r.Duration).
		Int64("errors", r.TotalErrors()).
		Msg("Run summary")

	for _, t := range r.Tables {
		logging.Info().
			Str("table", t.Table).
			Int64("built", t.Built).
			Int64("committed", t.Committed).
			Int64("skipped", t.Skipped).
			Int64("batches", t.Batches).
			Int64("failed_batches", t.FailedBatches).
			Str("digest", t.Digest).
			Msg("Table summary")
	}

	for _, kind := range sortedKeys(r.Errors) {
		if n := r.Errors[kind]; n > 0 {
			logging.Warn().Str("kind", kind).Int64("count", n).Msg("Row errors")
		}
	}
	for _, dim := range sortedKeys(r.Orphans) {
		logging.Warn().Str("dimension", dim).Int64("count", r.Orphans[dim]).Msg("Orphan fact tuples")
	}

	for _, table := range sortedKeys(r.Matches) {
		m := r.Matches[table]
		logging.Info().
			Str("table", table).
			Int64("exact", m.Exact).
			Int64("fuzzy", m.Fuzzy).
			Int64("default", m.Default).
			Float64("success_rate", m.SuccessRate).
			Float64("min_score", m.MinScore).
			Float64("mean_score", m.MeanScore).
			Float64("max_score", m.MaxScore).
			Msg("City matching")
	}

	if r.Integrity != nil {
		event := logging.Info()
		if !r.Integrity.OK() {
			event = logging.Warn()
		}
		d := event.Bool("ok", r.Integrity.OK())
		for _, col := range sortedKeys(r.Integrity.Dangling) {
			d = d.Int64(col, r.Integrity.Dangling[col])
		}
		d.Msg("Referential integrity")
	}
}

// WriteYAML writes the report to path.
func (r RunReport) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
