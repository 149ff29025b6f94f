//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// MemorySink is an in-memory store that enforces the primary, unique and
// foreign keys of the warehouse tables. It backs dry runs and tests.
type MemorySink struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

type memTable struct {
	def    warehouse.Table
	rows   [][]any
	pk     map[string]struct{}
	unique []map[string]struct{}
}

// NewMemorySink creates an empty store.
func NewMemorySink() *MemorySink {
	return &MemorySink{tables: make(map[string]*memTable)}
}

func (s *MemorySink) table(def warehouse.Table) *memTable {
	t, ok := s.tables[def.Name]
	if !ok {
		t = &memTable{
			def:    def,
			pk:     make(map[string]struct{}),
			unique: make([]map[string]struct{}, len(def.Unique)),
		}
		for i := range t.unique {
			t.unique[i] = make(map[string]struct{})
		}
		s.tables[def.Name] = t
	}
	return t
}

// tupleKey renders the values of cols as a map key.
func tupleKey(def warehouse.Table, row []any, cols []string) (string, error) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		idx := def.ColumnIndex(c)
		if idx < 0 || idx >= len(row) {
			return "", fmt.Errorf("column %s missing from row", c)
		}
		parts[i] = fmt.Sprint(row[idx])
	}
	return strings.Join(parts, "\x1f"), nil
}

// CommitBatch implements Sink. A batch with any violation is rejected as a
// whole and leaves the store unchanged.
func (s *MemorySink) CommitBatch(ctx context.Context, def warehouse.Table, rows [][]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(def)
	pending := make(map[string]struct{}, len(rows))
	pendingUnique := make([]map[string]struct{}, len(def.Unique))
	for i := range pendingUnique {
		pendingUnique[i] = make(map[string]struct{})
	}

	for _, row := range rows {
		if len(row) != len(def.Columns) {
			return fmt.Errorf("%s expects %d values, got %d", def.Name, len(def.Columns), len(row))
		}
		if err := s.check(t, row, pending, pendingUnique); err != nil {
			return &RejectedError{Err: err}
		}
	}

	for k := range pending {
		t.pk[k] = struct{}{}
	}
	for i, keys := range pendingUnique {
		for k := range keys {
			t.unique[i][k] = struct{}{}
		}
	}
	t.rows = append(t.rows, rows...)
	return nil
}

func (s *MemorySink) check(t *memTable, row []any, pending map[string]struct{}, pendingUnique []map[string]struct{}) error {
	def := t.def
	for i, c := range def.Columns {
		if !c.Nullable && row[i] == nil {
			return fmt.Errorf("null value in column %q violates not-null constraint", c.Name)
		}
	}

	pk, err := tupleKey(def, row, def.PrimaryKey)
	if err != nil {
		return err
	}
	if _, dup := t.pk[pk]; dup {
		return fmt.Errorf("duplicate key value violates %s primary key (%s)", def.Name, pk)
	}
	if _, dup := pending[pk]; dup {
		return fmt.Errorf("duplicate key value violates %s primary key (%s)", def.Name, pk)
	}
	pending[pk] = struct{}{}

	for i, cols := range def.Unique {
		k, err := tupleKey(def, row, cols)
		if err != nil {
			return err
		}
		_, committed := t.unique[i][k]
		_, staged := pendingUnique[i][k]
		if committed || staged {
			return fmt.Errorf("duplicate key value violates unique constraint on %s(%s)",
				def.Name, strings.Join(cols, ", "))
		}
		pendingUnique[i][k] = struct{}{}
	}

	for _, fk := range def.References {
		ref, ok := s.tables[fk.RefTable]
		if !ok {
			return fmt.Errorf("%s.%s references missing table %s", def.Name, fk.Column, fk.RefTable)
		}
		v := row[def.ColumnIndex(fk.Column)]
		if _, ok := ref.pk[fmt.Sprint(v)]; !ok {
			return fmt.Errorf("insert on %s violates foreign key %s: key %v not present in %s",
				def.Name, fk.Column, v, fk.RefTable)
		}
	}
	return nil
}

// Rows returns a copy of the committed rows of a table.
func (s *MemorySink) Rows(table string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	out := make([][]any, len(t.rows))
	copy(out, t.rows)
	return out
}

// Count returns the number of committed rows of a table.
func (s *MemorySink) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[table]; ok {
		return len(t.rows)
	}
	return 0
}

// Truncate removes every row.
func (s *MemorySink) Truncate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*memTable)
}

// VerifyIntegrity computes the same checks as the database verification.
func (s *MemorySink) VerifyIntegrity(ctx context.Context) (warehouse.Integrity, error) {
	res := warehouse.Integrity{
		Counts:   make(map[string]int64),
		Dangling: make(map[string]int64),
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, def := range warehouse.All() {
		if t, ok := s.tables[def.Name]; ok {
			res.Counts[def.Name] = int64(len(t.rows))
		} else {
			res.Counts[def.Name] = 0
		}
	}

	fact := s.tables[warehouse.FactOrderItem]
	for _, fk := range warehouse.FactTable.References {
		res.Dangling[fk.Column] = 0
		if fact == nil {
			continue
		}
		ref := s.tables[fk.RefTable]
		idx := warehouse.FactTable.ColumnIndex(fk.Column)
		for _, row := range fact.rows {
			if ref == nil {
				res.Dangling[fk.Column]++
				continue
			}
			if _, ok := ref.pk[fmt.Sprint(row[idx])]; !ok {
				res.Dangling[fk.Column]++
			}
		}
	}
	return res, nil
}
