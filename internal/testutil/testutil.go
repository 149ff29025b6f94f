//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides PostgreSQL helpers for integration tests.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-starload/internal/db"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

const (
	// ConnEnv names the environment variable holding the test server.
	ConnEnv = "STARLOAD_TEST_CONN"

	// DefaultTestConnString is used when ConnEnv is unset.
	DefaultTestConnString = "postgres://postgres@localhost:5432/postgres"

	// TestDBPrefix is the prefix of every scratch warehouse database.
	TestDBPrefix = "starload_test_"
)

// ServerConnString returns the connection string of the test server, or
// skips the test when the server does not answer.
func ServerConnString(t *testing.T) string {
	t.Helper()

	connStr := os.Getenv(ConnEnv)
	if connStr == "" {
		connStr = DefaultTestConnString
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, connStr, 1)
	if err != nil {
		t.Skipf("PostgreSQL not available, skipping integration test: %v", err)
	}
	pool.Close()

	return connStr
}

// scratchName returns a unique database name for suffix.
func scratchName(t *testing.T, suffix string) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("Failed to generate database name: %v", err)
	}
	return TestDBPrefix + suffix + "_" + hex.EncodeToString(b)
}

// exec runs one statement on the server's maintenance database.
func exec(ctx context.Context, connStr, sql string) error {
	pool, err := db.Connect(ctx, connStr, 1)
	if err != nil {
		return err
	}
	defer pool.Close()
	_, err = pool.Exec(ctx, sql)
	return err
}

// NewWarehouseDB creates a scratch database holding the star schema and
// returns a pool to it. The database is dropped when the test passes and
// kept for inspection when it fails.
func NewWarehouseDB(t *testing.T, suffix string) *pgxpool.Pool {
	t.Helper()

	serverConn := ServerConnString(t)
	name := scratchName(t, suffix)
	ident := pgx.Identifier{name}.Sanitize()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := exec(ctx, serverConn, "CREATE DATABASE "+ident); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cfg, err := db.ParseConfig(serverConn, 2)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	cfg.ConnConfig.Database = name

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if t.Failed() {
			t.Logf("Test failed - keeping database %s for diagnostics", name)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := exec(ctx, serverConn, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
			t.Logf("Warning: failed to drop test database %s: %v", name, err)
		}
	})

	if err := warehouse.CreateSchema(ctx, pool); err != nil {
		t.Fatalf("Failed to create warehouse schema: %v", err)
	}
	return pool
}
