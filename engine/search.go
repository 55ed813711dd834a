/*
search.go - Search strategies over record collections

PURPOSE:
  Six strategies behind one entry point. Exact matching (linear, binary,
  hash) answers "which records equal this value"; fuzzy, range, and
  pattern answer approximate, interval, and regular-expression questions.
  All strategies agree on what "equal" means because equality derives
  from the field Kind.

STRATEGY PROPERTIES:
  linear   O(N) scan, results in collection order
  binary   O(N log N) sort of a copy + O(log N) probe, results in sorted
           order, every record in the contiguous equal block is returned
  hash     O(N) index build per call + O(1) average probe, results in
           collection order, no index survives the call
  fuzzy    O(N*M^2) Levenshtein similarity, results ranked best first
  range    O(N) scan of an inclusive [low, high] interval
  pattern  O(N) case-insensitive regular expression scan

DESIGN PRINCIPLES:
  1. Wrong input is an error, never a silent empty result
  2. Null field values never match anything
  3. The caller's slice is read, never reordered

SEE ALSO:
  - spec.go: QuerySpec validation and the auto decision table
  - sort.go: The sorted copy binary search probes
*/
package engine

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

type SearchResult struct {
	Matches   []Record
	Count     int
	Elapsed   time.Duration
	Algorithm SearchAlgorithm // strategy actually executed
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Search runs one query against a collection. An empty collection is a
// valid collection: the result is empty, not an error.
func Search(schema Schema, records []Record, spec QuerySpec) (*SearchResult, error) {
	f, err := schema.Field(spec.Field)
	if err != nil {
		return nil, err
	}
	algo, err := spec.resolve(f, len(records))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var matches []Record
	switch algo {
	case SearchLinear:
		matches = searchLinear(records, f, spec.Value)
	case SearchBinary:
		matches = searchBinary(records, f, spec.Value)
	case SearchHash:
		matches = searchHash(records, f, spec.Value)
	case SearchFuzzy:
		threshold := spec.Threshold
		if threshold == 0 {
			threshold = DefaultFuzzyThreshold
		}
		matches = searchFuzzy(records, f, spec.Value.Text(), threshold)
	case SearchRange:
		matches = searchRange(records, f, spec.Low, spec.High)
	case SearchPattern:
		matches, err = searchPattern(records, f, spec.Pattern)
		if err != nil {
			return nil, err
		}
	}
	return &SearchResult{
		Matches:   matches,
		Count:     len(matches),
		Elapsed:   time.Since(start),
		Algorithm: algo,
	}, nil
}

// =============================================================================
// EXACT STRATEGIES - linear, binary, hash agree on every non-null value
// =============================================================================

func searchLinear(records []Record, f Field, q Value) []Record {
	var matches []Record
	for _, r := range records {
		if r.Value(f).Equal(q) {
			matches = append(matches, r)
		}
	}
	return matches
}

// searchBinary sorts a copy on the target field, probes for the first
// position not below the query, then expands the contiguous block of
// equal keys so duplicates are never dropped.
func searchBinary(records []Record, f Field, q Value) []Record {
	sorted := sortedCopy(records, f, Ascending, SortMergesort)
	lo := sort.Search(len(sorted), func(i int) bool {
		v := sorted[i].Value(f)
		if v.IsNull() {
			return true // nulls sit after every real value
		}
		return v.Compare(q) >= 0
	})
	var matches []Record
	for i := lo; i < len(sorted) && sorted[i].Value(f).Equal(q); i++ {
		matches = append(matches, sorted[i])
	}
	return matches
}

// searchHash builds a value-to-positions index for this call only, then
// reads the query's bucket. Positions keep matches in collection order.
func searchHash(records []Record, f Field, q Value) []Record {
	index := make(map[string][]int, len(records))
	for i, r := range records {
		v := r.Value(f)
		if v.IsNull() {
			continue
		}
		index[v.Key()] = append(index[v.Key()], i)
	}
	var matches []Record
	for _, i := range index[q.Key()] {
		matches = append(matches, records[i])
	}
	return matches
}

// =============================================================================
// FUZZY STRATEGY - Levenshtein similarity
// =============================================================================

// searchFuzzy scores every text value against the query and keeps those
// at or above the threshold, ranked by descending similarity. Ties keep
// collection order.
func searchFuzzy(records []Record, f Field, query string, threshold float64) []Record {
	q := strings.ToLower(query)
	type hit struct {
		rec   Record
		score float64
	}
	var hits []hit
	for _, r := range records {
		v := r.Value(f)
		if v.IsNull() {
			continue
		}
		if s := similarity(q, strings.ToLower(v.Text())); s >= threshold {
			hits = append(hits, hit{rec: r, score: s})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	matches := make([]Record, len(hits))
	for i, h := range hits {
		matches[i] = h.rec
	}
	return matches
}

// similarity maps edit distance onto [0, 1]: identical strings score 1,
// completely different strings score 0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with the two-row dynamic program,
// O(M*N) time and O(min side) space.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// =============================================================================
// RANGE STRATEGY - Inclusive interval over numbers or dates
// =============================================================================

func searchRange(records []Record, f Field, low, high *Value) []Record {
	var matches []Record
	for _, r := range records {
		v := r.Value(f)
		if v.IsNull() {
			continue
		}
		if low != nil && v.Compare(*low) < 0 {
			continue
		}
		if high != nil && v.Compare(*high) > 0 {
			continue
		}
		matches = append(matches, r)
	}
	return matches
}

// =============================================================================
// PATTERN STRATEGY - Case-insensitive regular expression
// =============================================================================

func searchPattern(records []Record, f Field, pattern string) ([]Record, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	var matches []Record
	for _, r := range records {
		v := r.Value(f)
		if v.IsNull() {
			continue
		}
		if re.MatchString(v.Text()) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}
