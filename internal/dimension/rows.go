//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dimension

import (
	"time"

	"github.com/pgEdge/pgedge-starload/internal/geo"
	"github.com/pgEdge/pgedge-starload/internal/keys"
)

// TimeRow is a row of dim_time.
type TimeRow struct {
	Key         keys.Key
	Date        time.Time
	DayName     string
	DayOfMonth  int
	ISOWeek     int
	Month       int
	MonthName   string
	Quarter     int
	QuarterName string
	Year        int
	IsWeekend   bool
	IsHoliday   bool
	HolidayName string
}

func (r TimeRow) BusinessKey() string {
	return TimeBusinessKey(r.Date)
}

func (r TimeRow) Values() []any {
	return []any{
		int64(r.Key), r.Date, r.DayName, r.DayOfMonth, r.ISOWeek, r.Month,
		r.MonthName, r.Quarter, r.QuarterName, r.Year, r.IsWeekend,
		r.IsHoliday, optString(r.HolidayName), r.Date.Format(DateLayout),
	}
}

// Geo holds the location attributes shared by customers and sellers.
type Geo struct {
	City             string
	State            string
	Region           string
	Match            geo.Match
	CitySize         string
	DevelopmentLevel string
}

func newGeo(city, state string, m geo.Match) Geo {
	return Geo{
		City:             city,
		State:            state,
		Region:           Region(state),
		Match:            m,
		CitySize:         CitySize(m.City.Population),
		DevelopmentLevel: DevelopmentLevel(m.City.HDI),
	}
}

func (g Geo) values() []any {
	c := g.Match.City
	return []any{
		g.City, g.State, g.Region, c.Name, string(g.Match.Method), g.Match.Score,
		c.Population, c.GDPPerCapita, c.HDI, c.HDIIncome, c.HDIEducation,
		c.HDILongevity, c.IsCapital, optString(c.Category), g.CitySize,
		g.DevelopmentLevel,
	}
}

// CustomerRow is a row of dim_customer.
type CustomerRow struct {
	Key       keys.Key
	ID        string
	UniqueID  string
	ZipPrefix string
	Geo       Geo
}

func (r CustomerRow) BusinessKey() string {
	return r.ID
}

func (r CustomerRow) Values() []any {
	return append([]any{int64(r.Key), r.ID, optString(r.UniqueID), optString(r.ZipPrefix)}, r.Geo.values()...)
}

// SellerRow is a row of dim_seller.
type SellerRow struct {
	Key       keys.Key
	ID        string
	ZipPrefix string
	Geo       Geo
}

func (r SellerRow) BusinessKey() string {
	return r.ID
}

func (r SellerRow) Values() []any {
	return append([]any{int64(r.Key), r.ID, optString(r.ZipPrefix)}, r.Geo.values()...)
}

// PaymentRow is a row of dim_payment.
type PaymentRow struct {
	Key               keys.Key
	Type              string
	Category          string
	InstallmentsRange string
	IsCredit          bool
	IsInstallment     bool
}

func (r PaymentRow) BusinessKey() string {
	return r.Type + "|" + r.InstallmentsRange
}

func (r PaymentRow) Values() []any {
	return []any{int64(r.Key), r.Type, r.Category, r.InstallmentsRange, r.IsCredit, r.IsInstallment}
}

// ReviewRow is a row of dim_review.
type ReviewRow struct {
	Key           keys.Key
	Category      string
	Satisfaction  string
	CommentLength string
	HasComment    bool
}

func (r ReviewRow) BusinessKey() string {
	return r.Category + "|" + r.CommentLength
}

func (r ReviewRow) Values() []any {
	return []any{int64(r.Key), r.Category, r.Satisfaction, r.CommentLength, r.HasComment}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
