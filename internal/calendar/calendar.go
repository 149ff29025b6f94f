//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package calendar implements holiday calendars for the time dimension.
package calendar

import (
	"fmt"
	"sort"
	"time"
)

// Calendar defines the interface for holiday calendars.
type Calendar interface {
	// Name returns the calendar name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Holiday reports whether the day of d is a holiday and its name.
	Holiday(d time.Time) (string, bool)
}

var registry = make(map[string]func() Calendar)

// Register adds a calendar constructor to the registry.
func Register(name string, constructor func() Calendar) {
	registry[name] = constructor
}

// Get retrieves a calendar by name.
func Get(name string) (Calendar, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown holiday calendar: %s", name)
	}
	return constructor(), nil
}

// List returns all registered calendar names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// None is a calendar without holidays.
type None struct{}

// NewNone creates a calendar without holidays.
func NewNone() Calendar {
	return None{}
}

func (None) Name() string {
	return "none"
}

func (None) Description() string {
	return "No holidays"
}

func (None) Holiday(time.Time) (string, bool) {
	return "", false
}

func init() {
	Register("brazil", NewBrazil)
	Register("none", NewNone)
}
