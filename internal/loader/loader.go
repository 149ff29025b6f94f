//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package loader commits warehouse rows in bounded transactional batches.
// A batch that fails is rolled back and its rows are retried one at a time;
// rows that still fail are skipped and counted.
package loader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"

	"github.com/cespare/xxhash/v2"

	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// DefaultBatchSize is the number of rows committed per transaction.
const DefaultBatchSize = 1000

// Sink commits rows to the target store.
type Sink interface {
	// CommitBatch commits all rows atomically or none of them. Failures
	// caused by the rows themselves are returned as *RejectedError; any
	// other error is fatal to the run.
	CommitBatch(ctx context.Context, table warehouse.Table, rows [][]any) error
}

// RejectedError reports rows refused by the store (constraint or data
// errors). The run continues.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string {
	return "rows rejected: " + e.Err.Error()
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is a row-level rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// Recorder receives batch and row commit failures.
type Recorder interface {
	RecordRowError(e *etlerr.RowError)
}

// Outcome summarizes the load of one table.
type Outcome struct {
	Table         string   `yaml:"table"`
	Committed     int64    `yaml:"committed"`
	Skipped       int64    `yaml:"skipped"`
	Batches       int64    `yaml:"batches"`
	FailedBatches int64    `yaml:"failed_batches"`
	SkippedKeys   []string `yaml:"skipped_keys,omitempty"`
	// Digest hashes the committed rows in commit order.
	Digest uint64 `yaml:"digest"`
}

// Loader loads tables through a Sink.
type Loader struct {
	sink      Sink
	batchSize int
	recorder  Recorder
	progress  int64
}

// New creates a Loader. A batch size below one selects DefaultBatchSize.
func New(sink Sink, batchSize int, recorder Recorder) *Loader {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		sink:      sink,
		batchSize: batchSize,
		recorder:  recorder,
		progress:  100000,
	}
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int {
	return l.batchSize
}

// tableLoad holds the state of one Load call.
type tableLoad struct {
	l        *Loader
	table    warehouse.Table
	outcome  Outcome
	digest   *xxhash.Digest
	progress *ProgressReporter
}

// Load commits rows to table in batches, preserving their order. Rows are
// pulled lazily so at most one batch is held in memory. A fatal store
// error stops the load and is returned as an etlerr.FatalError together
// with the partial outcome.
func (l *Loader) Load(ctx context.Context, table warehouse.Table, rows iter.Seq[warehouse.Row]) (Outcome, error) {
	tl := &tableLoad{
		l:        l,
		table:    table,
		outcome:  Outcome{Table: table.Name},
		digest:   xxhash.New(),
		progress: NewProgressReporter(table.Name, l.progress),
	}

	batch := make([]warehouse.Row, 0, l.batchSize)
	for r := range rows {
		batch = append(batch, r)
		if len(batch) < l.batchSize {
			continue
		}
		if err := tl.flush(ctx, batch); err != nil {
			return tl.finish(), err
		}
		batch = batch[:0]
	}
	if len(batch) > 0 {
		if err := tl.flush(ctx, batch); err != nil {
			return tl.finish(), err
		}
	}

	tl.progress.Done()
	return tl.finish(), nil
}

func (tl *tableLoad) finish() Outcome {
	tl.outcome.Digest = tl.digest.Sum64()
	return tl.outcome
}

func (tl *tableLoad) fatal(err error) error {
	return etlerr.Schema("load", tl.table.Name, err)
}

// flush commits one batch, falling back to row-by-row commits once.
func (tl *tableLoad) flush(ctx context.Context, batch []warehouse.Row) error {
	if err := ctx.Err(); err != nil {
		return tl.fatal(err)
	}

	values := make([][]any, len(batch))
	for i, r := range batch {
		values[i] = r.Values()
	}

	tl.outcome.Batches++
	err := tl.l.sink.CommitBatch(ctx, tl.table, values)
	if err == nil {
		tl.committed(values)
		return nil
	}
	if !IsRejected(err) {
		return tl.fatal(err)
	}

	tl.outcome.FailedBatches++
	tl.record(&etlerr.RowError{
		Kind:   etlerr.KindBatchCommit,
		Table:  tl.table.Name,
		Key:    fmt.Sprintf("%s..%s", batch[0].BusinessKey(), batch[len(batch)-1].BusinessKey()),
		Reason: err.Error(),
	})
	logging.Warn().
		Err(err).
		Str("table", tl.table.Name).
		Int("rows", len(batch)).
		Msg("Batch rejected, retrying rows individually")

	for i, r := range batch {
		err := tl.l.sink.CommitBatch(ctx, tl.table, values[i:i+1])
		if err == nil {
			tl.committed(values[i : i+1])
			continue
		}
		if !IsRejected(err) {
			return tl.fatal(err)
		}
		tl.skip(r, err)
	}
	return nil
}

func (tl *tableLoad) committed(values [][]any) {
	for _, v := range values {
		for _, x := range v {
			_, _ = tl.digest.WriteString(digestValue(x))
			_, _ = tl.digest.WriteString("\x1f")
		}
		_, _ = tl.digest.WriteString("\n")
	}
	n := int64(len(values))
	tl.outcome.Committed += n
	tl.progress.Update(n)
}

func (tl *tableLoad) skip(r warehouse.Row, err error) {
	tl.outcome.Skipped++
	tl.outcome.SkippedKeys = append(tl.outcome.SkippedKeys, r.BusinessKey())
	tl.record(&etlerr.RowError{
		Kind:   etlerr.KindRowCommit,
		Table:  tl.table.Name,
		Key:    r.BusinessKey(),
		Reason: err.Error(),
	})
	logging.RowWarn().
		Err(err).
		Str("table", tl.table.Name).
		Str("key", r.BusinessKey()).
		Msg("Row skipped")
}

func (tl *tableLoad) record(e *etlerr.RowError) {
	if tl.l.recorder != nil {
		tl.l.recorder.RecordRowError(e)
	}
}

// digestValue renders a column value for the digest. Pointers are
// dereferenced so the digest depends on content only.
func digestValue(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "\x00"
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return "\x00"
	}
	return fmt.Sprint(rv.Interface())
}
