//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
)

// Integrity is the result of the post-load checks.
type Integrity struct {
	// Counts holds the row count of every table.
	Counts map[string]int64 `yaml:"counts"`

	// Dangling holds, per fact foreign key column, the number of fact rows
	// whose key has no dimension row.
	Dangling map[string]int64 `yaml:"dangling"`
}

// OK reports whether no foreign key dangles.
func (i Integrity) OK() bool {
	for _, n := range i.Dangling {
		if n > 0 {
			return false
		}
	}
	return true
}

// DanglingSQL renders the orphan check for one foreign key.
func DanglingSQL(t Table, fk ForeignKey) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM %s f LEFT JOIN %s d ON f.%s = d.%s WHERE d.%s IS NULL",
		t.Name, fk.RefTable, fk.Column, fk.RefColumn, fk.RefColumn)
}

// VerifyIntegrity counts the rows of every table and the dangling foreign
// keys of the fact table.
func VerifyIntegrity(ctx context.Context, q Querier) (Integrity, error) {
	res := Integrity{
		Counts:   make(map[string]int64),
		Dangling: make(map[string]int64),
	}
	for _, t := range All() {
		var n int64
		if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM "+t.Name).Scan(&n); err != nil {
			return res, fmt.Errorf("failed to count %s: %w", t.Name, err)
		}
		res.Counts[t.Name] = n
	}
	for _, fk := range FactTable.References {
		var n int64
		if err := q.QueryRow(ctx, DanglingSQL(FactTable, fk)).Scan(&n); err != nil {
			return res, fmt.Errorf("failed to check %s: %w", fk.Column, err)
		}
		res.Dangling[fk.Column] = n
	}
	return res, nil
}
