//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package dimension builds the rows of the five dimension tables and
// registers their surrogate keys.
package dimension

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-starload/internal/calendar"
	"github.com/pgEdge/pgedge-starload/internal/etlerr"
	"github.com/pgEdge/pgedge-starload/internal/geo"
	"github.com/pgEdge/pgedge-starload/internal/keys"
	"github.com/pgEdge/pgedge-starload/internal/logging"
	"github.com/pgEdge/pgedge-starload/internal/source"
	"github.com/pgEdge/pgedge-starload/internal/warehouse"
)

// Recorder receives match results and row problems while dimensions are
// built. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordMatch(table string, m geo.Match)
	RecordRowError(e *etlerr.RowError)
}

// DefaultWorkers bounds concurrent city matching per dimension.
const DefaultWorkers = 4

// Builder builds dimension rows. The five Build methods may run
// concurrently; each writes only its own key namespace.
type Builder struct {
	registry *keys.Registry
	matcher  *geo.Matcher
	recorder Recorder
	workers  int
}

// NewBuilder creates a Builder. A nil recorder discards events.
func NewBuilder(registry *keys.Registry, matcher *geo.Matcher, recorder Recorder, workers int) *Builder {
	if recorder == nil {
		recorder = discard{}
	}
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Builder{
		registry: registry,
		matcher:  matcher,
		recorder: recorder,
		workers:  workers,
	}
}

// BuildTime generates one row per day between start and end inclusive.
// Keys are pinned to YYYYMMDD.
func (b *Builder) BuildTime(start, end time.Time, cal calendar.Calendar) ([]TimeRow, error) {
	start = day(start)
	end = day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("calendar end %s is before start %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}
	if cal == nil {
		cal = calendar.NewNone()
	}

	ns := b.registry.Namespace(warehouse.DimTime)
	rows := make([]TimeRow, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key, _ := ns.Pin(TimeBusinessKey(d), TimeKey(d))
		_, week := d.ISOWeek()
		quarter := (int(d.Month())-1)/3 + 1
		holiday, isHoliday := cal.Holiday(d)
		rows = append(rows, TimeRow{
			Key:         key,
			Date:        d,
			DayName:     d.Weekday().String(),
			DayOfMonth:  d.Day(),
			ISOWeek:     week,
			Month:       int(d.Month()),
			MonthName:   d.Month().String(),
			Quarter:     quarter,
			QuarterName: QuarterName(quarter),
			Year:        d.Year(),
			IsWeekend:   d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
			IsHoliday:   isHoliday,
			HolidayName: holiday,
		})
	}

	logging.Debug().
		Int("rows", len(rows)).
		Str("calendar", cal.Name()).
		Msg("Built time dimension")
	return rows, nil
}

// day truncates t to midnight UTC of its calendar day.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type place struct {
	city  string
	state string
}

// matchAll resolves every distinct place concurrently, bounded by the
// configured number of workers.
func (b *Builder) matchAll(ctx context.Context, places []place) (map[place]geo.Match, error) {
	distinct := make([]place, 0, len(places))
	seen := make(map[place]struct{}, len(places))
	for _, p := range places {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			distinct = append(distinct, p)
		}
	}

	results := make([]geo.Match, len(distinct))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, p := range distinct {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.matcher.Match(p.city, p.state)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[place]geo.Match, len(distinct))
	for i, p := range distinct {
		out[p] = results[i]
	}
	return out, nil
}

// duplicate records a repeated business key.
func (b *Builder) duplicate(table string, line int, bk string) {
	b.recorder.RecordRowError(&etlerr.RowError{
		Kind:   etlerr.KindDuplicateKey,
		Table:  table,
		Line:   line,
		Key:    bk,
		Reason: "business key already seen, keeping first occurrence",
	})
	logging.RowWarn().
		Str("table", table).
		Str("key", bk).
		Int("line", line).
		Msg("Duplicate business key skipped")
}

// BuildCustomers builds one row per distinct customer id in source order.
func (b *Builder) BuildCustomers(ctx context.Context, customers []source.Customer) ([]CustomerRow, error) {
	places := make([]place, len(customers))
	for i, c := range customers {
		places[i] = place{c.City, c.State}
	}
	matches, err := b.matchAll(ctx, places)
	if err != nil {
		return nil, err
	}

	ns := b.registry.Namespace(warehouse.DimCustomer)
	rows := make([]CustomerRow, 0, len(customers))
	for i, c := range customers {
		key, issued := ns.Assign(c.ID)
		if !issued {
			b.duplicate(warehouse.DimCustomer, c.Line, c.ID)
			continue
		}
		m := matches[places[i]]
		b.recorder.RecordMatch(warehouse.DimCustomer, m)
		rows = append(rows, CustomerRow{
			Key:       key,
			ID:        c.ID,
			UniqueID:  c.UniqueID,
			ZipPrefix: c.ZipPrefix,
			Geo:       newGeo(c.City, c.State, m),
		})
	}

	logging.Debug().
		Int("rows", len(rows)).
		Int("places", len(matches)).
		Msg("Built customer dimension")
	return rows, nil
}

// BuildSellers builds one row per distinct seller id in source order.
func (b *Builder) BuildSellers(ctx context.Context, sellers []source.Seller) ([]SellerRow, error) {
	places := make([]place, len(sellers))
	for i, s := range sellers {
		places[i] = place{s.City, s.State}
	}
	matches, err := b.matchAll(ctx, places)
	if err != nil {
		return nil, err
	}

	ns := b.registry.Namespace(warehouse.DimSeller)
	rows := make([]SellerRow, 0, len(sellers))
	for i, s := range sellers {
		key, issued := ns.Assign(s.ID)
		if !issued {
			b.duplicate(warehouse.DimSeller, s.Line, s.ID)
			continue
		}
		m := matches[places[i]]
		b.recorder.RecordMatch(warehouse.DimSeller, m)
		rows = append(rows, SellerRow{
			Key:       key,
			ID:        s.ID,
			ZipPrefix: s.ZipPrefix,
			Geo:       newGeo(s.City, s.State, m),
		})
	}

	logging.Debug().
		Int("rows", len(rows)).
		Int("places", len(matches)).
		Msg("Built seller dimension")
	return rows, nil
}

// BuildPayments builds one row per distinct payment type and installment
// range.
func (b *Builder) BuildPayments(payments []source.Payment) []PaymentRow {
	ns := b.registry.Namespace(warehouse.DimPayment)
	var rows []PaymentRow
	for _, p := range payments {
		key, issued := ns.Assign(PaymentBusinessKey(p.Type, p.Installments))
		if !issued {
			continue
		}
		category, credit := PaymentCategory(p.Type)
		rows = append(rows, PaymentRow{
			Key:               key,
			Type:              p.Type,
			Category:          category,
			InstallmentsRange: InstallmentsRange(p.Installments),
			IsCredit:          credit,
			IsInstallment:     p.Installments > 1,
		})
	}

	logging.Debug().Int("rows", len(rows)).Msg("Built payment dimension")
	return rows
}

// BuildReviews builds one row per distinct review category and comment
// length, plus the row used by orders without a review.
func (b *Builder) BuildReviews(reviews []source.Review) []ReviewRow {
	ns := b.registry.Namespace(warehouse.DimReview)
	var rows []ReviewRow
	for _, r := range reviews {
		key, issued := ns.Assign(ReviewBusinessKey(r.Score, r.Comment))
		if !issued {
			continue
		}
		category, satisfaction := ReviewCategory(r.Score)
		length := CommentLength(r.Comment)
		rows = append(rows, ReviewRow{
			Key:           key,
			Category:      category,
			Satisfaction:  satisfaction,
			CommentLength: length,
			HasComment:    length != NoComment,
		})
	}

	if key, issued := ns.Assign(NoReviewKey); issued {
		rows = append(rows, ReviewRow{
			Key:           key,
			Category:      NoReviewCategory,
			Satisfaction:  Unknown,
			CommentLength: NoComment,
		})
	}

	logging.Debug().Int("rows", len(rows)).Msg("Built review dimension")
	return rows
}

type discard struct{}

func (discard) RecordMatch(string, geo.Match)   {}
func (discard) RecordRowError(*etlerr.RowError) {}
