//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/report"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
	"github.com/pgEdge/pgedge-starload/pkg/version"
)

// RunLogTable records one row per run.
const RunLogTable = "starload_run_log"

// createRunLogTableSQL creates the run log table if it doesn't exist.
const createRunLogTableSQL = `
CREATE TABLE IF NOT EXISTS starload_run_log (
    run_id          UUID PRIMARY KEY,
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ NOT NULL,
    status          VARCHAR(20) NOT NULL,
    phase           VARCHAR(30) NOT NULL,
    version         TEXT NOT NULL,
    facts_committed BIGINT NOT NULL DEFAULT 0,
    errors_total    BIGINT NOT NULL DEFAULT 0,
    error_message   TEXT,
    report          TEXT NOT NULL
)`

// RunLogEntry is one row of the run log.
type RunLogEntry struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         string
	Phase          string
	Version        string
	FactsCommitted int64
	ErrorsTotal    int64
	ErrorMessage   *string
}

// EnsureRunLog creates the run log table.
func EnsureRunLog(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, createRunLogTableSQL); err != nil {
		return fmt.Errorf("failed to create run log table: %w", err)
	}
	return nil
}

// SaveRun stores a run report in the run log.
func SaveRun(ctx context.Context, pool *pgxpool.Pool, rep report.RunReport) error {
	if err := EnsureRunLog(ctx, pool); err != nil {
		return err
	}

	doc, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	var facts int64
	if t, ok := rep.Table(warehouse.FactOrderItem); ok {
		facts = t.Committed
	}
	var errMsg *string
	if rep.Error != "" {
		errMsg = &rep.Error
	}

	_, err = pool.Exec(ctx, `
        INSERT INTO starload_run_log
            (run_id, started_at, finished_at, status, phase, version,
             facts_committed, errors_total, error_message, report)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (run_id) DO UPDATE SET
            finished_at = EXCLUDED.finished_at,
            status = EXCLUDED.status,
            phase = EXCLUDED.phase,
            facts_committed = EXCLUDED.facts_committed,
            errors_total = EXCLUDED.errors_total,
            error_message = EXCLUDED.error_message,
            report = EXCLUDED.report
    `, rep.RunID, rep.StartedAt, rep.FinishedAt, string(rep.Status), rep.Phase,
		version.Short(), facts, rep.TotalErrors(), errMsg, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rep.RunID, err)
	}

	logging.Debug().
		Str("run_id", rep.RunID).
		Str("status", string(rep.Status)).
		Msg("Saved run log")

	return nil
}

// RecentRuns returns the latest runs, newest first.
func RecentRuns(ctx context.Context, pool *pgxpool.Pool, limit int) ([]RunLogEntry, error) {
	rows, err := pool.Query(ctx, `
        SELECT run_id::text, started_at, finished_at, status, phase, version,
               facts_committed, errors_total, error_message
        FROM starload_run_log
        ORDER BY started_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunLogEntry, error) {
		var e RunLogEntry
		err := row.Scan(&e.RunID, &e.StartedAt, &e.FinishedAt, &e.Status, &e.Phase,
			&e.Version, &e.FactsCommitted, &e.ErrorsTotal, &e.ErrorMessage)
		return e, err
	})
}

// DropRunLog drops the run log table.
func DropRunLog(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", RunLogTable))
	return err
}
