//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"testing"
	"time"
)

func TestNewFaker(t *testing.T) {
	f := NewFaker()
	if f == nil {
		t.Fatal("NewFaker returned nil")
	}
	if f.faker == nil {
		t.Fatal("faker field is nil")
	}
}

func TestNewFakerWithSeed(t *testing.T) {
	seed := uint64(12345)
	f1 := NewFakerWithSeed(seed)
	f2 := NewFakerWithSeed(seed)

	// Same seed should produce same sequence
	for i := 0; i < 10; i++ {
		v1 := f1.ID()
		v2 := f2.ID()
		if v1 != v2 {
			t.Errorf("Same seed produced different values: %s != %s", v1, v2)
		}
	}
}

func TestFakerID(t *testing.T) {
	f := NewFaker()
	id := f.ID()
	if len(id) != 32 {
		t.Errorf("Expected 32 characters, got %d (%s)", len(id), id)
	}
	for _, c := range id {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Errorf("Expected hexadecimal id, got %s", id)
			break
		}
	}
	if f.ID() == id {
		t.Error("Expected distinct ids")
	}
}

func TestFakerDateRange(t *testing.T) {
	f := NewFaker()
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		d := f.DateRange(start, end)
		if d.Before(start) || d.After(end) {
			t.Errorf("DateRange returned %v outside range", d)
		}
	}
}

func TestFakerChance(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		if f.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !f.Chance(1.1) {
			t.Fatal("Chance above 1 returned false")
		}
	}
}

func TestFakerTranspose(t *testing.T) {
	f := NewFakerWithSeed(7)
	tests := []struct {
		in string
	}{
		{"florianopolis"},
		{"sao paulo"},
		{"rio"},
	}
	for _, tt := range tests {
		got := f.Transpose(tt.in)
		if len([]rune(got)) != len([]rune(tt.in)) {
			t.Errorf("Transpose(%q) changed the length: %q", tt.in, got)
		}
		if got[0] != tt.in[0] {
			t.Errorf("Transpose(%q) moved the first letter: %q", tt.in, got)
		}
	}
	if got := f.Transpose("ab"); got != "ab" {
		t.Errorf("Expected short names unchanged, got %q", got)
	}
}

func TestChoose(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 100; i++ {
		chosen := Choose(f, items)
		found := false
		for _, item := range items {
			if item == chosen {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Choose returned item not in slice: %s", chosen)
		}
	}
}

func TestChooseEmpty(t *testing.T) {
	f := NewFaker()
	var items []string

	chosen := Choose(f, items)
	if chosen != "" {
		t.Errorf("Choose on empty slice should return zero value, got: %s", chosen)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c"}
	weights := []int{1, 2, 7} // c should be chosen ~70% of the time

	counts := make(map[string]int)
	iterations := 1000

	for i := 0; i < iterations; i++ {
		chosen := ChooseWeighted(f, items, weights)
		counts[chosen]++
	}

	if counts["c"] < counts["a"] || counts["c"] < counts["b"] {
		t.Errorf("Weighted choice distribution unexpected: %v", counts)
	}
}

func TestFakerDigits(t *testing.T) {
	f := NewFaker()
	s := f.Digits(5)
	if len(s) != 5 {
		t.Errorf("Digits(5) should return 5 chars, got %d", len(s))
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			t.Errorf("Digits should only contain digits, got: %c", c)
		}
	}
}
