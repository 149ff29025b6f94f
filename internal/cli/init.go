package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-starload/internal/db"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the warehouse schema",
	Long: `Create the star schema tables, their indexes and the run log table
in the target PostgreSQL database. Existing tables are kept unless
--drop-existing is given.

Example:
  pgedge-starload init --connection "postgres://..."
  pgedge-starload init --connection "postgres://..." --drop-existing`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing warehouse tables and run log before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initDropExisting {
		cfg.Init.DropExisting = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection, db.DefaultMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	exists, err := warehouse.SchemaExists(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if exists && !cfg.Init.DropExisting {
		logging.Warn().Msg("Warehouse tables already exist; use --drop-existing to recreate them")
	}

	if cfg.Init.DropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := warehouse.DropSchema(ctx, pool); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
		if err := db.DropRunLog(ctx, pool); err != nil {
			logging.Debug().Err(err).Msg("No run log table to drop")
		}
	}

	logging.Info().Msg("Creating schema")
	if err := warehouse.CreateSchema(ctx, pool); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := db.EnsureRunLog(ctx, pool); err != nil {
		return err
	}

	logging.Info().
		Int("tables", len(warehouse.All())).
		Msg("Warehouse initialization complete")

	return nil
}
