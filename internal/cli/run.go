package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-starload/internal/calendar"
	"github.com/pgEdge/pgedge-starload/internal/db"
	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/loader"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/pipeline"
	"github.com/pgEdge/pgedge-starload/internal/report"
	"github.com/pgEdge/pgedge-starload/internal/source"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

var (
	runBatchSize       int
	runFuzzyThreshold  float64
	runCalendarStart   string
	runCalendarEnd     string
	runHolidayCalendar string
	runWorkers         int
	runNoVerify        bool
	runTruncate        bool
	runDryRun          bool
	runReportFile      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Transform the extracts and load them into the warehouse",
	Long: `Read the CSV extracts, build the five dimensions and the order item
facts, and load them into a warehouse created with the 'init' command.

Dimensions are loaded before facts. Each batch is committed in its own
transaction; a batch that fails on a constraint is retried row by row so
that only the offending rows are skipped. The run report lists committed
and skipped rows per table, errors by kind and city matching statistics.

Example:
  pgedge-starload run --data-dir ./data --connection "postgres://..."
  pgedge-starload run --data-dir ./data --truncate --report-file run.yaml
  pgedge-starload run --data-dir ./data --dry-run`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0,
		"rows committed per transaction (default: 1000)")
	runCmd.Flags().Float64Var(&runFuzzyThreshold, "fuzzy-threshold", 0,
		"minimum similarity for a fuzzy city match (default: 0.80)")
	runCmd.Flags().StringVar(&runCalendarStart, "calendar-start", "",
		"first day of the time dimension (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runCalendarEnd, "calendar-end", "",
		"last day of the time dimension (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runHolidayCalendar, "holiday-calendar", "",
		"holiday calendar for the time dimension: brazil, none")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0,
		"concurrent city matchers per geographic dimension")
	runCmd.Flags().BoolVar(&runNoVerify, "no-verify", false,
		"skip the referential integrity checks after loading")
	runCmd.Flags().BoolVar(&runTruncate, "truncate", false,
		"empty the warehouse tables before loading")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"load into memory instead of PostgreSQL")
	runCmd.Flags().StringVar(&runReportFile, "report-file", "",
		"write the run report as YAML to this file")
}

// applyRunFlags overrides load configuration with CLI flags.
func applyRunFlags() {
	if runBatchSize > 0 {
		cfg.Load.BatchSize = runBatchSize
	}
	if runFuzzyThreshold > 0 {
		cfg.Load.FuzzyThreshold = runFuzzyThreshold
	}
	if runCalendarStart != "" {
		cfg.Load.CalendarStart = runCalendarStart
	}
	if runCalendarEnd != "" {
		cfg.Load.CalendarEnd = runCalendarEnd
	}
	if runHolidayCalendar != "" {
		cfg.Load.HolidayCalendar = runHolidayCalendar
	}
	if runWorkers > 0 {
		cfg.Load.Workers = runWorkers
	}
	if runNoVerify {
		cfg.Load.VerifyIntegrity = false
	}
	if runTruncate {
		cfg.Load.Truncate = true
	}
	if runDryRun {
		cfg.Load.DryRun = true
	}
	if runReportFile != "" {
		cfg.Load.ReportFile = runReportFile
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunFlags()

	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := loadWarehouse(ctx, cfg.Load.Truncate)
	if err != nil {
		return err
	}
	if rep.Integrity != nil && !rep.Integrity.OK() {
		return fmt.Errorf("warehouse has dangling references after load")
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// loadWarehouse performs one complete load with the current configuration.
// The report is logged, written to the report file and stored in the run
// log whether or not the run completed.
func loadWarehouse(ctx context.Context, truncate bool) (report.RunReport, error) {
	opts, err := runOptions()

	var pool *pgxpool.Pool
	switch {
	case err != nil:
	case cfg.Load.DryRun:
		logging.Info().Msg("Dry run: loading into memory")
		opts.Sink = loader.NewMemorySink()
	default:
		pool, err = openWarehouse(ctx, truncate)
		if pool != nil {
			defer pool.Close()
			opts.Sink = loader.NewPgSink(pool)
		}
	}

	var rep report.RunReport
	if err == nil {
		var ds *source.Dataset
		ds, err = source.ReadDir(cfg.Source)
		if err == nil {
			rep, err = pipeline.Run(ctx, pipeline.Inputs{Dataset: ds}, opts)
		}
	}
	if err != nil && rep.RunID == "" {
		rep = opts.Reporter.Finalize(report.StatusAborted, err)
	}

	rep.Log()
	if cfg.Load.ReportFile != "" {
		if werr := rep.WriteYAML(cfg.Load.ReportFile); werr != nil {
			logging.Warn().Err(werr).Str("file", cfg.Load.ReportFile).Msg("Failed to write run report")
		}
	}
	if pool != nil {
		// The run context may already be cancelled.
		if serr := db.SaveRun(context.Background(), pool, rep); serr != nil {
			logging.Warn().Err(serr).Msg("Failed to save run log")
		}
	}

	return rep, err
}

// runOptions builds the pipeline options from the load configuration. The
// reporter is always set, even when an option is invalid.
func runOptions() (pipeline.Options, error) {
	opts := pipeline.Options{
		BatchSize:      cfg.Load.BatchSize,
		Workers:        cfg.Load.Workers,
		FuzzyThreshold: cfg.Load.FuzzyThreshold,
		Verify:         cfg.Load.VerifyIntegrity,
		Reporter:       report.New(),
	}

	start, end, err := cfg.Load.CalendarRange()
	if err != nil {
		return opts, etlerr.Schema("init", "", err)
	}
	cal, err := calendar.Get(cfg.Load.HolidayCalendar)
	if err != nil {
		return opts, etlerr.Schema("init", "", err)
	}
	opts.CalendarStart, opts.CalendarEnd, opts.Calendar = start, end, cal
	return opts, nil
}

// openWarehouse connects to the warehouse, checks the schema and optionally
// truncates it. The pool is returned even when a later step fails so that
// the run can still be logged.
func openWarehouse(ctx context.Context, truncate bool) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.Connection, db.DefaultMaxConns)
	if err != nil {
		return nil, etlerr.Schema("connect", "", err)
	}

	exists, err := warehouse.SchemaExists(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, etlerr.Schema("connect", "", fmt.Errorf("failed to inspect schema: %w", err))
	}
	if !exists {
		return pool, etlerr.Schema("init", "",
			errors.New("warehouse schema not found; run 'pgedge-starload init' first"))
	}
	if truncate {
		logging.Info().Msg("Truncating warehouse tables")
		if err := warehouse.Truncate(ctx, pool); err != nil {
			return pool, etlerr.Schema("init", "", err)
		}
	}
	return pool, nil
}
