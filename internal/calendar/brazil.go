//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package calendar

import (
	"time"
)

type monthDay struct {
	month time.Month
	day   int
}

// brazilFixed are the national holidays with a fixed date.
var brazilFixed = map[monthDay]string{
	{time.January, 1}:   "New Year's Day",
	{time.April, 21}:    "Tiradentes",
	{time.May, 1}:       "Labour Day",
	{time.September, 7}: "Independence Day",
	{time.October, 12}:  "Our Lady of Aparecida",
	{time.November, 2}:  "All Souls' Day",
	{time.November, 15}: "Proclamation of the Republic",
	{time.December, 25}: "Christmas Day",
}

// brazilMovable are offsets in days from Easter Sunday.
var brazilMovable = map[int]string{
	-48: "Carnival Monday",
	-47: "Carnival Tuesday",
	-2:  "Good Friday",
	60:  "Corpus Christi",
}

// Brazil is the Brazilian national holiday calendar, including the
// Easter-relative Carnival, Good Friday and Corpus Christi.
type Brazil struct{}

// NewBrazil creates the Brazilian calendar.
func NewBrazil() Calendar {
	return Brazil{}
}

func (Brazil) Name() string {
	return "brazil"
}

func (Brazil) Description() string {
	return "Brazilian national holidays (fixed dates plus Carnival, Good Friday, Corpus Christi)"
}

func (Brazil) Holiday(d time.Time) (string, bool) {
	if name, ok := brazilFixed[monthDay{d.Month(), d.Day()}]; ok {
		return name, true
	}
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(day.Sub(Easter(d.Year())).Hours() / 24)
	if name, ok := brazilMovable[offset]; ok {
		return name, true
	}
	return "", false
}

// Easter returns Easter Sunday of year (Gregorian, anonymous algorithm)
// at midnight UTC.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
