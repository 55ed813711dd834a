/*
spec.go - Search, sort, and aggregate specifications

PURPOSE:
  The three engines take explicit specification structs instead of option
  bags. A spec names the field, the algorithm (or "auto"), and the
  operation parameters; validation happens up front so engines run on
  well-formed input only.

KEY CONCEPTS IN THIS FILE (spec.go):
  - QuerySpec / SortSpec / AggregateSpec: One struct per engine
  - Auto selection: A fixed decision table, not a heuristic guess
  - CoerceValue: JSON-shaped input mapped onto typed Values

DESIGN PRINCIPLES:
  1. "auto" is deterministic: same spec + same collection size = same
     algorithm, documented in the table below and in the catalog
  2. Bad specs fail fast with typed errors before any record is touched

SEE ALSO:
  - search.go, sort.go, aggregate.go: Consumers of these specs
  - catalog.go: Human-readable algorithm descriptions
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SEARCH SPECIFICATION
// =============================================================================

type SearchAlgorithm string

const (
	SearchAuto    SearchAlgorithm = "auto"
	SearchLinear  SearchAlgorithm = "linear"
	SearchBinary  SearchAlgorithm = "binary"
	SearchHash    SearchAlgorithm = "hash"
	SearchFuzzy   SearchAlgorithm = "fuzzy"
	SearchRange   SearchAlgorithm = "range"
	SearchPattern SearchAlgorithm = "pattern"
)

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy match when
// the spec does not set one.
const DefaultFuzzyThreshold = 0.8

// autoHashThreshold is the collection size above which auto prefers the
// hash strategy for exact matching over a linear scan.
const autoHashThreshold = 64

// QuerySpec describes one search. Exact strategies (linear, binary,
// hash) use Value; fuzzy uses Value and Threshold; range uses Low/High;
// pattern uses Pattern.
type QuerySpec struct {
	Field     string
	Algorithm SearchAlgorithm // empty means auto

	Value     Value
	Threshold float64 // fuzzy similarity floor, 0 means DefaultFuzzyThreshold
	Low       *Value  // range lower bound, nil means open
	High      *Value  // range upper bound, nil means open
	Pattern   string
}

// resolve picks the concrete strategy for this query and validates its
// parameters. Auto infers the query mode first: a pattern means pattern,
// bounds mean range, a threshold means fuzzy, and plain equality follows
// the size table.
func (q QuerySpec) resolve(f Field, n int) (SearchAlgorithm, error) {
	algo := q.Algorithm
	if algo == "" {
		algo = SearchAuto
	}
	if algo == SearchAuto {
		switch {
		case q.Pattern != "":
			algo = SearchPattern
		case q.Low != nil || q.High != nil:
			algo = SearchRange
		case q.Threshold != 0:
			algo = SearchFuzzy
		default:
			algo = chooseSearch(f, n)
		}
	}
	switch algo {
	case SearchLinear, SearchBinary, SearchHash:
		if q.Value.IsNull() {
			return "", &InvalidSpecError{Reason: "search value is required"}
		}
		if q.Value.Kind() != f.Kind {
			return "", &InvalidSpecError{Reason: fmt.Sprintf("field %q holds %s values, search value is %s", f.Name, f.Kind, q.Value.Kind())}
		}
	case SearchFuzzy:
		if f.Kind != KindText {
			return "", &InvalidSpecError{Reason: "fuzzy search requires a text field"}
		}
		if q.Value.IsNull() || q.Value.Kind() != KindText {
			return "", &InvalidSpecError{Reason: "fuzzy search requires a text value"}
		}
		if q.Threshold < 0 || q.Threshold > 1 {
			return "", &InvalidSpecError{Reason: "fuzzy threshold must be between 0 and 1"}
		}
	case SearchRange:
		if f.Kind == KindText {
			return "", &InvalidSpecError{Reason: "range search requires a number or date field"}
		}
		if q.Low == nil && q.High == nil {
			return "", &InvalidSpecError{Reason: "range search requires at least one bound"}
		}
		for _, b := range []*Value{q.Low, q.High} {
			if b != nil && b.Kind() != f.Kind {
				return "", &InvalidSpecError{Reason: fmt.Sprintf("range bound kind %s does not match field %q (%s)", b.Kind(), f.Name, f.Kind)}
			}
		}
		if q.Low != nil && q.High != nil && q.Low.Compare(*q.High) > 0 {
			return "", &InvalidSpecError{Reason: "range lower bound exceeds upper bound"}
		}
	case SearchPattern:
		if f.Kind != KindText {
			return "", &InvalidSpecError{Reason: "pattern search requires a text field"}
		}
		if q.Pattern == "" {
			return "", &InvalidSpecError{Reason: "pattern search requires a pattern"}
		}
	default:
		return "", &UnsupportedAlgorithmError{Family: "search", Name: string(algo)}
	}
	return algo, nil
}

// chooseSearch is the auto table for exact matching: scan linearly while
// the collection is small, switch to the hash index once the build cost
// pays for itself.
func chooseSearch(f Field, n int) SearchAlgorithm {
	if n > autoHashThreshold {
		return SearchHash
	}
	return SearchLinear
}

// =============================================================================
// SORT SPECIFICATION
// =============================================================================

type SortAlgorithm string

const (
	SortAuto      SortAlgorithm = "auto"
	SortQuicksort SortAlgorithm = "quicksort"
	SortMergesort SortAlgorithm = "mergesort"
	SortTimsort   SortAlgorithm = "timsort"
	SortHeapsort  SortAlgorithm = "heapsort"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// autoSortThreshold is the collection size below which auto always picks
// timsort: adaptive runs beat heap overhead on small input.
const autoSortThreshold = 64

// SortSpec describes one ordering. Stable forces a stable strategy when
// the algorithm is auto.
type SortSpec struct {
	Field     string
	Direction Direction     // empty means ascending
	Algorithm SortAlgorithm // empty means auto
	Stable    bool
}

func (s SortSpec) validate() (SortAlgorithm, Direction, error) {
	algo := s.Algorithm
	if algo == "" {
		algo = SortAuto
	}
	switch algo {
	case SortAuto, SortQuicksort, SortMergesort, SortTimsort, SortHeapsort:
	default:
		return "", "", &UnsupportedAlgorithmError{Family: "sort", Name: string(algo)}
	}
	dir := s.Direction
	if dir == "" {
		dir = Ascending
	}
	if dir != Ascending && dir != Descending {
		return "", "", &InvalidSpecError{Reason: fmt.Sprintf("direction must be %q or %q", Ascending, Descending)}
	}
	return algo, dir, nil
}

// chooseSort is the auto decision table: timsort for small collections
// and whenever stability is required, heapsort (no allocation, no
// quadratic corner) for everything else.
func chooseSort(s SortSpec, n int) SortAlgorithm {
	if s.Stable || n <= autoSortThreshold {
		return SortTimsort
	}
	return SortHeapsort
}

// =============================================================================
// AGGREGATE SPECIFICATION
// =============================================================================

type AggregateKind string

const (
	AggregateSum       AggregateKind = "sum"
	AggregateMean      AggregateKind = "mean"
	AggregateMedian    AggregateKind = "median"
	AggregateMode      AggregateKind = "mode"
	AggregateVariance  AggregateKind = "variance"
	AggregateStdDev    AggregateKind = "stddev"
	AggregateHistogram AggregateKind = "histogram"
	AggregateRollup    AggregateKind = "rollup"
)

type RollupStat string

const (
	RollupSum   RollupStat = "sum"
	RollupCount RollupStat = "count"
	RollupMean  RollupStat = "mean"
	RollupMin   RollupStat = "min"
	RollupMax   RollupStat = "max"
)

// AggregateSpec describes one aggregation. Sample applies the N-1
// correction to variance and stddev; Buckets sizes the histogram (0
// means Sturges' rule); DateField, Granularity, and Stat shape rollups.
type AggregateSpec struct {
	Kind  AggregateKind
	Field string

	Sample      bool
	Buckets     int
	DateField   string      // rollup grouping field, a date field
	Granularity Granularity // rollup bucket width
	Stat        RollupStat  // rollup per-bucket statistic, empty means sum
}

func (a AggregateSpec) validate() (AggregateKind, RollupStat, error) {
	switch a.Kind {
	case AggregateSum, AggregateMean, AggregateMedian, AggregateMode,
		AggregateVariance, AggregateStdDev, AggregateHistogram:
		return a.Kind, "", nil
	case AggregateRollup:
		stat := a.Stat
		if stat == "" {
			stat = RollupSum
		}
		switch stat {
		case RollupSum, RollupCount, RollupMean, RollupMin, RollupMax:
		default:
			return "", "", &InvalidSpecError{Reason: fmt.Sprintf("unknown rollup statistic %q", a.Stat)}
		}
		return a.Kind, stat, nil
	default:
		return "", "", &UnsupportedAlgorithmError{Family: "aggregate", Name: string(a.Kind)}
	}
}

// =============================================================================
// VALUE COERCION - JSON-shaped input onto typed Values
// =============================================================================

// CoerceValue converts a decoded JSON value into a typed Value for the
// given field. Numbers accept float64, integers, and decimal strings;
// dates accept the YYYY-MM-DD form.
func CoerceValue(f Field, raw any) (Value, error) {
	if raw == nil {
		return Null(f.Kind), nil
	}
	switch f.Kind {
	case KindText:
		s, ok := raw.(string)
		if !ok {
			return Value{}, &InvalidSpecError{Reason: fmt.Sprintf("field %q expects a text value", f.Name)}
		}
		return Text(s), nil
	case KindNumber:
		switch n := raw.(type) {
		case float64:
			return NumberFromFloat(n), nil
		case int:
			return NumberFromInt(int64(n)), nil
		case int64:
			return NumberFromInt(n), nil
		case decimal.Decimal:
			return Number(n), nil
		case string:
			d, err := decimal.NewFromString(n)
			if err != nil {
				return Value{}, &InvalidSpecError{Reason: fmt.Sprintf("field %q expects a numeric value, got %q", f.Name, n)}
			}
			return Number(d), nil
		default:
			return Value{}, &InvalidSpecError{Reason: fmt.Sprintf("field %q expects a numeric value", f.Name)}
		}
	case KindDate:
		s, ok := raw.(string)
		if !ok {
			return Value{}, &InvalidSpecError{Reason: fmt.Sprintf("field %q expects a YYYY-MM-DD date", f.Name)}
		}
		tp, err := ParseDate(s)
		if err != nil {
			return Value{}, &InvalidSpecError{Reason: fmt.Sprintf("field %q expects a YYYY-MM-DD date, got %q", f.Name, s)}
		}
		return Date(tp), nil
	}
	return Value{}, &InvalidSpecError{Reason: fmt.Sprintf("field %q has unknown kind %q", f.Name, f.Kind)}
}
