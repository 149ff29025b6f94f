//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package etlerr defines the error kinds produced while transforming and
// loading the warehouse. Row-level problems are plain values that callers
// count and carry forward; only FatalError stops a run.
package etlerr

import (
	"errors"
	"fmt"
)

// Kind classifies a run error for reporting.
type Kind string

// Error kinds. Extraction and Schema are fatal; the rest are counted.
const (
	KindExtraction       Kind = "extraction"
	KindSchema           Kind = "schema"
	KindParse            Kind = "parse"
	KindOrphanReference  Kind = "orphan_reference"
	KindBatchCommit      Kind = "batch_commit"
	KindRowCommit        Kind = "row_commit"
	KindMeasureDefaulted Kind = "measure_defaulted"
	KindDuplicateKey     Kind = "duplicate_key"
)

// Kinds lists the non-fatal kinds in reporting order.
var Kinds = []Kind{
	KindParse,
	KindOrphanReference,
	KindBatchCommit,
	KindRowCommit,
	KindMeasureDefaulted,
	KindDuplicateKey,
}

// Fatal reports whether errors of this kind abort a run.
func (k Kind) Fatal() bool {
	return k == KindExtraction || k == KindSchema
}

// RowError describes a single source or warehouse row that was skipped or
// repaired. For orphan references Field names the unresolved dimension and
// Value the business key that was looked up.
type RowError struct {
	Kind  Kind
	Table string
	// Line is the 1-based data line in the source file, 0 when unknown.
	Line   int
	Key    string
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Table)
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" key %q", e.Key)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %s=%q", e.Field, e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NewOrphan returns an OrphanReferenceError for a fact tuple whose
// dimension key could not be resolved.
func NewOrphan(table, key, dimension, businessKey, reason string) *RowError {
	return &RowError{
		Kind:   KindOrphanReference,
		Table:  table,
		Key:    key,
		Field:  dimension,
		Value:  businessKey,
		Reason: reason,
	}
}

// NewParseError returns a ParseError for a source row field.
func NewParseError(table string, line int, field, value, reason string) *RowError {
	return &RowError{
		Kind:   KindParse,
		Table:  table,
		Line:   line,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// FatalError aborts a run. Phase and Table locate where the run stopped.
type FatalError struct {
	Kind  Kind
	Phase string
	Table string
	Err   error
}

func (e *FatalError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s failed in phase %s on table %s: %v", e.Kind, e.Phase, e.Table, e.Err)
	}
	return fmt.Sprintf("%s failed in phase %s: %v", e.Kind, e.Phase, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Extraction wraps err as a fatal extraction error.
func Extraction(table string, err error) *FatalError {
	return &FatalError{Kind: KindExtraction, Phase: "extract", Table: table, Err: err}
}

// Schema wraps err as a fatal store error raised in phase.
func Schema(phase, table string, err error) *FatalError {
	return &FatalError{Kind: KindSchema, Phase: phase, Table: table, Err: err}
}

// IsFatal reports whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// AsFatal returns the FatalError wrapped by err, if any.
func AsFatal(err error) (*FatalError, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
