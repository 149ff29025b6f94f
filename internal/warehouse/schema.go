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
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateTableSQL renders the CREATE TABLE statement of t.
func CreateTableSQL(t Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for _, c := range t.Columns {
		null := " NOT NULL"
		if c.Nullable {
			null = ""
		}
		fmt.Fprintf(&b, "    %-28s %s%s,\n", c.Name, c.Type, null)
	}
	for _, u := range t.Unique {
		fmt.Fprintf(&b, "    UNIQUE (%s),\n", strings.Join(u, ", "))
	}
	for _, fk := range t.References {
		fmt.Fprintf(&b, "    FOREIGN KEY (%s) REFERENCES %s (%s),\n", fk.Column, fk.RefTable, fk.RefColumn)
	}
	fmt.Fprintf(&b, "    PRIMARY KEY (%s)\n)", strings.Join(t.PrimaryKey, ", "))
	return b.String()
}

// indexSQL returns the foreign key indexes of t.
func indexSQL(t Table) []string {
	stmts := make([]string, 0, len(t.References))
	for _, fk := range t.References {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
			t.Name, fk.Column, t.Name, fk.Column))
	}
	return stmts
}

// CreateSchema creates the warehouse tables and indexes.
func CreateSchema(ctx context.Context, q Querier) error {
	for _, t := range All() {
		if _, err := q.Exec(ctx, CreateTableSQL(t)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		for _, stmt := range indexSQL(t) {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create index on %s: %w", t.Name, err)
			}
		}
	}
	return nil
}

// reversed returns the tables with the fact table first.
func reversed() []Table {
	tables := All()
	slices.Reverse(tables)
	return tables
}

// DropSchema drops the warehouse tables.
func DropSchema(ctx context.Context, q Querier) error {
	for _, t := range reversed() {
		if _, err := q.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", t.Name)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Truncate empties every warehouse table.
func Truncate(ctx context.Context, q Querier) error {
	names := make([]string, 0, 6)
	for _, t := range reversed() {
		names = append(names, t.Name)
	}
	_, err := q.Exec(ctx, "TRUNCATE "+strings.Join(names, ", "))
	if err != nil {
		return fmt.Errorf("failed to truncate warehouse: %w", err)
	}
	return nil
}

// SchemaExists reports whether every warehouse table exists.
func SchemaExists(ctx context.Context, q Querier) (bool, error) {
	names := make([]string, 0, 6)
	for _, t := range All() {
		names = append(names, t.Name)
	}
	var n int
	err := q.QueryRow(ctx, `
        SELECT COUNT(*) FROM information_schema.tables
        WHERE table_schema = current_schema() AND table_name = ANY($1)
    `, names).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == len(names), nil
}
