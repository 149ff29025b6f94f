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
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// PgSink commits batches to PostgreSQL with COPY, one transaction per batch.
type PgSink struct {
	pool *pgxpool.Pool
}

// NewPgSink creates a sink over an open pool.
func NewPgSink(pool *pgxpool.Pool) *PgSink {
	return &PgSink{pool: pool}
}

// CommitBatch implements Sink.
func (s *PgSink) CommitBatch(ctx context.Context, table warehouse.Table, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{table.Name},
		table.ColumnNames(),
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// VerifyIntegrity runs the post-load checks against the database.
func (s *PgSink) VerifyIntegrity(ctx context.Context) (warehouse.Integrity, error) {
	return warehouse.VerifyIntegrity(ctx, s.pool)
}

// classify marks constraint violations (class 23) and data exceptions
// (class 22) as row-level. Everything else stops the run.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && rowLevel(pgErr.Code) {
		return &RejectedError{Err: err}
	}
	return err
}

func rowLevel(sqlState string) bool {
	return strings.HasPrefix(sqlState, "23") || strings.HasPrefix(sqlState, "22")
}
