//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package geo

import (
	"cmp"
	"slices"

	"github.com/pgEdge/pgedge-starload/internal/source"
)

// DefaultThreshold is the minimum similarity, inclusive, for a fuzzy match.
const DefaultThreshold = 0.80

// City is a reference city with its normalized name.
type City struct {
	source.City
	Normalized string
}

// UnknownCity is the sentinel returned when no reference city matches.
// Its indicators are all nil.
var UnknownCity = &City{
	City:       source.City{Name: "Unknown"},
	Normalized: "unknown",
}

type cityKey struct {
	name  string
	state string
}

// CityIndex is the read-only city reference index. Candidates within a
// state are held in lexicographic order of (normalized, original name).
type CityIndex struct {
	exact      map[cityKey]*City
	byState    map[string][]*City
	duplicates int
}

// NewCityIndex builds the index. Entries repeating an earlier
// (normalized name, state) pair are ignored.
func NewCityIndex(cities []source.City) *CityIndex {
	idx := &CityIndex{
		exact:   make(map[cityKey]*City, len(cities)),
		byState: make(map[string][]*City),
	}
	for _, c := range cities {
		city := &City{City: c, Normalized: Normalize(c.Name)}
		city.State = NormalizeState(c.State)
		if city.Normalized == "" {
			continue
		}
		k := cityKey{city.Normalized, city.State}
		if _, ok := idx.exact[k]; ok {
			idx.duplicates++
			continue
		}
		idx.exact[k] = city
		idx.byState[city.State] = append(idx.byState[city.State], city)
	}
	for _, list := range idx.byState {
		slices.SortFunc(list, func(a, b *City) int {
			if c := cmp.Compare(a.Normalized, b.Normalized); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		})
	}
	return idx
}

// Len returns the number of indexed cities.
func (idx *CityIndex) Len() int {
	return len(idx.exact)
}

// Duplicates returns how many reference rows were ignored as duplicates.
func (idx *CityIndex) Duplicates() int {
	return idx.duplicates
}

// Lookup returns the city with exactly this normalized name and state.
func (idx *CityIndex) Lookup(normalized, state string) (*City, bool) {
	c, ok := idx.exact[cityKey{normalized, state}]
	return c, ok
}

// Candidates returns the ordered candidates of a state.
func (idx *CityIndex) Candidates(state string) []*City {
	return idx.byState[state]
}

// Method records how a city was resolved.
type Method string

const (
	MethodExact   Method = "exact"
	MethodFuzzy   Method = "fuzzy"
	MethodDefault Method = "default"
)

// Match is the result of resolving one raw city name.
type Match struct {
	City   *City
	Method Method
	Score  float64
}

// Matcher resolves raw city names. It is safe for concurrent use.
type Matcher struct {
	index     *CityIndex
	threshold float64
}

// NewMatcher returns a Matcher over idx. A non-positive threshold selects
// DefaultThreshold.
func NewMatcher(idx *CityIndex, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{index: idx, threshold: threshold}
}

// Threshold returns the fuzzy match threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match resolves rawCity within rawState. An exact normalized match wins;
// otherwise the most similar candidate of the same state is taken when its
// score reaches the threshold, the earliest candidate winning ties. When
// nothing qualifies UnknownCity is returned with the best score seen.
func (m *Matcher) Match(rawCity, rawState string) Match {
	name := Normalize(rawCity)
	state := NormalizeState(rawState)
	if name == "" {
		return Match{City: UnknownCity, Method: MethodDefault}
	}

	if c, ok := m.index.Lookup(name, state); ok {
		return Match{City: c, Method: MethodExact, Score: 1.0}
	}

	var best *City
	bestScore := 0.0
	for _, c := range m.index.Candidates(state) {
		score := Similarity(name, c.Normalized)
		if best == nil || score > bestScore {
			best = c
			bestScore = score
		}
	}

	if best != nil && bestScore >= m.threshold {
		return Match{City: best, Method: MethodFuzzy, Score: bestScore}
	}
	return Match{City: UnknownCity, Method: MethodDefault, Score: bestScore}
}
