//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the transform and load phases of a warehouse
// load: decode the extracts, build the dimensions in parallel, load them,
// then build and load the facts.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-starload/internal/calendar"
	"github.com/pgEdge/pgedge-starload/internal/dimension"
	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/fact"
	"github.com/pgEdge/pgedge-starload/internal/geo"
	"github.com/pgEdge/pgedge-starload/internal/keys"
	"github.com/pgEdge/pgedge-starload/internal/loader"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/report"
	"github.com/pgEdge/pgedge-starload/internal/source"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// Inputs holds the extracted source tables.
type Inputs struct {
	Dataset *source.Dataset
}

// Options configures a run.
type Options struct {
	Sink      loader.Sink
	BatchSize int
	Workers   int

	// FuzzyThreshold is the minimum similarity for a fuzzy city match.
	FuzzyThreshold float64

	CalendarStart time.Time
	CalendarEnd   time.Time
	Calendar      calendar.Calendar

	// Verify runs the integrity checks after loading when the sink
	// supports them.
	Verify bool

	// Reporter collects statistics; a new one is created when nil.
	Reporter *report.Reporter
}

// Verifier is implemented by sinks that can check referential integrity.
type Verifier interface {
	VerifyIntegrity(ctx context.Context) (warehouse.Integrity, error)
}

// dimensions holds the built dimension rows.
type dimensions struct {
	time      []dimension.TimeRow
	customers []dimension.CustomerRow
	sellers   []dimension.SellerRow
	payments  []dimension.PaymentRow
	reviews   []dimension.ReviewRow
}

type run struct {
	opts     Options
	reporter *report.Reporter
	registry *keys.Registry
	loader   *loader.Loader
}

// Run executes one full load. Row and batch errors are counted in the
// report and never stop the run. A fatal error cancels the run and is
// returned together with the partial report.
func Run(ctx context.Context, in Inputs, opts Options) (report.RunReport, error) {
	rep := opts.Reporter
	if rep == nil {
		rep = report.New()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		opts:     opts,
		reporter: rep,
		registry: keys.NewRegistry(),
		loader:   loader.New(opts.Sink, opts.BatchSize, rep),
	}

	logging.Info().Str("run_id", rep.RunID()).Msg("Starting warehouse load")

	if err := r.execute(ctx, in); err != nil {
		cancel()
		final := rep.Finalize(report.StatusAborted, err)
		return final, err
	}

	rep.SetPhase(report.PhaseDone)
	return rep.Finalize(report.StatusCompleted, nil), nil
}

func (r *run) execute(ctx context.Context, in Inputs) error {
	r.reporter.SetPhase(report.PhaseDecode)
	recs, err := r.decode(in)
	if err != nil {
		return err
	}

	r.reporter.SetPhase(report.PhaseBuild)
	dims, err := r.buildDimensions(ctx, recs)
	if err != nil {
		return err
	}

	r.reporter.SetPhase(report.PhaseLoadDimensions)
	if err := r.loadDimensions(ctx, dims); err != nil {
		return err
	}

	r.reporter.SetPhase(report.PhaseLoadFacts)
	if err := r.loadFacts(ctx, recs); err != nil {
		return err
	}

	if r.opts.Verify {
		r.reporter.SetPhase(report.PhaseVerify)
		if err := r.verify(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) decode(in Inputs) (*source.Records, error) {
	if in.Dataset == nil {
		return nil, etlerr.Extraction("", fmt.Errorf("no source dataset"))
	}
	if err := in.Dataset.Validate(); err != nil {
		return nil, err
	}

	recs, errs := source.Decode(in.Dataset)
	for _, e := range errs {
		r.reporter.RecordRowError(e)
		logging.RowWarn().
			Str("table", e.Table).
			Int("line", e.Line).
			Str("field", e.Field).
			Str("value", e.Value).
			Msg(e.Reason)
	}

	logging.Info().
		Int("orders", len(recs.Orders)).
		Int("order_items", len(recs.Items)).
		Int("customers", len(recs.Customers)).
		Int("sellers", len(recs.Sellers)).
		Int("payments", len(recs.Payments)).
		Int("reviews", len(recs.Reviews)).
		Int("cities", len(recs.Cities)).
		Int("parse_errors", len(errs)).
		Msg("Decoded source tables")
	return recs, nil
}

// buildDimensions runs the five dimension builds concurrently and waits
// for all of them before any fact is assembled.
func (r *run) buildDimensions(ctx context.Context, recs *source.Records) (*dimensions, error) {
	idx := geo.NewCityIndex(recs.Cities)
	r.reporter.RecordCityReference(idx.Len(), idx.Duplicates())
	matcher := geo.NewMatcher(idx, r.opts.FuzzyThreshold)
	b := dimension.NewBuilder(r.registry, matcher, r.reporter, r.opts.Workers)

	logging.Info().
		Int("cities", idx.Len()).
		Int("duplicate_cities", idx.Duplicates()).
		Float64("threshold", matcher.Threshold()).
		Msg("Building dimensions")

	dims := &dimensions{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := b.BuildTime(r.opts.CalendarStart, r.opts.CalendarEnd, r.opts.Calendar)
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", warehouse.DimTime, err)
		}
		dims.time = rows
		return nil
	})
	g.Go(func() error {
		rows, err := b.BuildCustomers(gctx, recs.Customers)
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", warehouse.DimCustomer, err)
		}
		dims.customers = rows
		return nil
	})
	g.Go(func() error {
		rows, err := b.BuildSellers(gctx, recs.Sellers)
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", warehouse.DimSeller, err)
		}
		dims.sellers = rows
		return nil
	})
	g.Go(func() error {
		dims.payments = b.BuildPayments(recs.Payments)
		return nil
	})
	g.Go(func() error {
		dims.reviews = b.BuildReviews(recs.Reviews)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.reporter.RecordBuilt(warehouse.DimTime, len(dims.time))
	r.reporter.RecordBuilt(warehouse.DimCustomer, len(dims.customers))
	r.reporter.RecordBuilt(warehouse.DimSeller, len(dims.sellers))
	r.reporter.RecordBuilt(warehouse.DimPayment, len(dims.payments))
	r.reporter.RecordBuilt(warehouse.DimReview, len(dims.reviews))
	return dims, nil
}

// loadDimensions loads the dimensions in table order. Keys of rows the
// store refused are revoked so no fact can reference them.
func (r *run) loadDimensions(ctx context.Context, dims *dimensions) error {
	steps := []struct {
		table warehouse.Table
		rows  iter.Seq[warehouse.Row]
	}{
		{warehouse.TimeTable, warehouse.Seq(dims.time)},
		{warehouse.CustomerTable, warehouse.Seq(dims.customers)},
		{warehouse.SellerTable, warehouse.Seq(dims.sellers)},
		{warehouse.PaymentTable, warehouse.Seq(dims.payments)},
		{warehouse.ReviewTable, warehouse.Seq(dims.reviews)},
	}

	for _, step := range steps {
		out, err := r.loader.Load(ctx, step.table, step.rows)
		r.reporter.RecordLoad(out)
		if err != nil {
			return err
		}

		ns := r.registry.Namespace(step.table.Name)
		for _, bk := range out.SkippedKeys {
			ns.Revoke(bk)
		}
	}
	return nil
}

func (r *run) loadFacts(ctx context.Context, recs *source.Records) error {
	b := fact.NewBuilder(r.registry, r.reporter)

	var built int
	rows := func(yield func(warehouse.Row) bool) {
		for row := range b.Build(recs) {
			built++
			if !yield(row) {
				return
			}
		}
	}

	out, err := r.loader.Load(ctx, warehouse.FactTable, rows)
	r.reporter.RecordBuilt(warehouse.FactOrderItem, built)
	r.reporter.RecordLoad(out)
	return err
}

func (r *run) verify(ctx context.Context) error {
	v, ok := r.opts.Sink.(Verifier)
	if !ok {
		logging.Debug().Msg("Sink does not support integrity verification")
		return nil
	}

	res, err := v.VerifyIntegrity(ctx)
	if err != nil {
		return etlerr.Schema("verify", "", err)
	}
	r.reporter.RecordIntegrity(res)

	if !res.OK() {
		logging.Warn().Interface("dangling", res.Dangling).Msg("Dangling foreign keys found")
	}
	return nil
}
