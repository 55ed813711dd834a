/*
sort.go - Sort strategies over record collections

PURPOSE:
  Four comparison sorts behind one entry point, all driven by the same
  field-derived comparator. Callers choose the cost profile explicitly
  or let the auto table choose for them.

STRATEGY PROPERTIES:
  quicksort  O(N log N) average, median-of-three pivot, in place, NOT stable
  mergesort  O(N log N) worst case, O(N) auxiliary, stable
  timsort    O(N log N) worst, O(N) best on presorted input, stable,
             natural runs extended by binary insertion, invariant-driven
             run merging
  heapsort   O(N log N) worst case, O(1) auxiliary, NOT stable

DESIGN PRINCIPLES:
  1. The caller's slice is copied, never reordered
  2. Null field values order last regardless of direction; direction
     flips value order only
  3. Stable strategies preserve the collection order of equal keys

SEE ALSO:
  - spec.go: SortSpec validation and the auto decision table
  - aggregate.go: Median is defined in terms of this engine
*/
package engine

import (
	"sort"
	"time"
)

// =============================================================================
// SORT RESULT
// =============================================================================

type SortResult struct {
	Records   []Record
	Elapsed   time.Duration
	Algorithm SortAlgorithm // strategy actually executed
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Sort orders a copy of the collection by one field.
func Sort(schema Schema, records []Record, spec SortSpec) (*SortResult, error) {
	f, err := schema.Field(spec.Field)
	if err != nil {
		return nil, err
	}
	algo, dir, err := spec.validate()
	if err != nil {
		return nil, err
	}
	if algo == SortAuto {
		algo = chooseSort(spec, len(records))
	}

	start := time.Now()
	out := sortedCopy(records, f, dir, algo)
	return &SortResult{Records: out, Elapsed: time.Since(start), Algorithm: algo}, nil
}

func sortedCopy(records []Record, f Field, dir Direction, algo SortAlgorithm) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	cmp := comparator(f, dir)
	switch algo {
	case SortQuicksort:
		quicksort(out, cmp)
	case SortMergesort:
		mergesort(out, cmp)
	case SortTimsort:
		timsort(out, cmp)
	case SortHeapsort:
		heapsort(out, cmp)
	}
	return out
}

// comparator derives the ordering from the field kind. Nulls compare
// after every real value on both directions, so "largest first" never
// surfaces the records that have no value at all.
func comparator(f Field, dir Direction) func(a, b Record) int {
	return func(a, b Record) int {
		va, vb := a.Value(f), b.Value(f)
		switch {
		case va.IsNull() && vb.IsNull():
			return 0
		case va.IsNull():
			return 1
		case vb.IsNull():
			return -1
		}
		c := va.Compare(vb)
		if dir == Descending {
			return -c
		}
		return c
	}
}

// =============================================================================
// QUICKSORT - median-of-three pivot, recurse into the smaller half
// =============================================================================

func quicksort(recs []Record, cmp func(a, b Record) int) {
	if len(recs) > 1 {
		quicksortRange(recs, 0, len(recs)-1, cmp)
	}
}

func quicksortRange(recs []Record, lo, hi int, cmp func(a, b Record) int) {
	for lo < hi {
		p := partition(recs, lo, hi, cmp)
		if p-lo < hi-p {
			quicksortRange(recs, lo, p-1, cmp)
			lo = p + 1
		} else {
			quicksortRange(recs, p+1, hi, cmp)
			hi = p - 1
		}
	}
}

// partition orders lo/mid/hi, takes the median as pivot, and splits the
// range around it. Median-of-three keeps sorted and reversed input off
// the quadratic path.
func partition(recs []Record, lo, hi int, cmp func(a, b Record) int) int {
	mid := lo + (hi-lo)/2
	if cmp(recs[mid], recs[lo]) < 0 {
		recs[mid], recs[lo] = recs[lo], recs[mid]
	}
	if cmp(recs[hi], recs[lo]) < 0 {
		recs[hi], recs[lo] = recs[lo], recs[hi]
	}
	if cmp(recs[hi], recs[mid]) < 0 {
		recs[hi], recs[mid] = recs[mid], recs[hi]
	}
	recs[mid], recs[hi] = recs[hi], recs[mid]

	pivot := recs[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if cmp(recs[j], pivot) < 0 {
			recs[i], recs[j] = recs[j], recs[i]
			i++
		}
	}
	recs[i], recs[hi] = recs[hi], recs[i]
	return i
}

// =============================================================================
// MERGESORT - top-down, stable, ping-pong buffers
// =============================================================================

func mergesort(recs []Record, cmp func(a, b Record) int) {
	if len(recs) < 2 {
		return
	}
	aux := make([]Record, len(recs))
	copy(aux, recs)
	splitMerge(aux, recs, 0, len(recs), cmp)
}

// splitMerge sorts dst[lo:hi], using src for merge input. The roles swap
// each level so every element is copied once per level instead of twice.
func splitMerge(src, dst []Record, lo, hi int, cmp func(a, b Record) int) {
	if hi-lo < 2 {
		return
	}
	mid := (lo + hi) / 2
	splitMerge(dst, src, lo, mid, cmp)
	splitMerge(dst, src, mid, hi, cmp)

	i, j := lo, mid
	for k := lo; k < hi; k++ {
		switch {
		case i >= mid:
			dst[k] = src[j]
			j++
		case j >= hi:
			dst[k] = src[i]
			i++
		case cmp(src[j], src[i]) < 0: // take right only when strictly smaller
			dst[k] = src[j]
			j++
		default:
			dst[k] = src[i]
			i++
		}
	}
}

// =============================================================================
// TIMSORT - natural runs, binary insertion, invariant-driven merging
// =============================================================================

type run struct {
	start  int
	length int
}

func timsort(recs []Record, cmp func(a, b Record) int) {
	n := len(recs)
	if n < 2 {
		return
	}
	minRun := minRunLength(n)
	var stack []run
	var buf []Record

	i := 0
	for i < n {
		end := runEnd(recs, i, cmp)
		if end-i < minRun {
			limit := min(i+minRun, n)
			binaryInsertion(recs[i:limit], end-i, cmp)
			end = limit
		}
		stack = append(stack, run{start: i, length: end - i})
		i = end
		stack, buf = collapse(recs, stack, buf, cmp)
	}
	for len(stack) > 1 {
		stack, buf = mergeAt(recs, stack, len(stack)-2, buf, cmp)
	}
}

// minRunLength picks a run floor in [32, 64] so the run count is close
// to a power of two.
func minRunLength(n int) int {
	r := 0
	for n >= 64 {
		r |= n & 1
		n >>= 1
	}
	return n + r
}

// runEnd extends a natural run starting at i and returns its exclusive
// end. Descending runs must be strictly descending so reversing them
// cannot reorder equal keys.
func runEnd(recs []Record, i int, cmp func(a, b Record) int) int {
	j := i + 1
	if j == len(recs) {
		return j
	}
	if cmp(recs[j], recs[i]) < 0 {
		for j+1 < len(recs) && cmp(recs[j+1], recs[j]) < 0 {
			j++
		}
		reverseRecords(recs[i : j+1])
	} else {
		for j+1 < len(recs) && cmp(recs[j+1], recs[j]) >= 0 {
			j++
		}
	}
	return j + 1
}

func reverseRecords(recs []Record) {
	for l, r := 0, len(recs)-1; l < r; l, r = l+1, r-1 {
		recs[l], recs[r] = recs[r], recs[l]
	}
}

// binaryInsertion grows the sorted prefix recs[:sorted] to cover the
// whole slice. Insertion lands after equal keys to preserve stability.
func binaryInsertion(recs []Record, sorted int, cmp func(a, b Record) int) {
	if sorted < 1 {
		sorted = 1
	}
	for k := sorted; k < len(recs); k++ {
		key := recs[k]
		at := sort.Search(k, func(m int) bool { return cmp(recs[m], key) > 0 })
		copy(recs[at+1:k+1], recs[at:k])
		recs[at] = key
	}
}

// collapse restores the run stack invariants (each run longer than the
// sum of the two above it), merging until they hold.
func collapse(recs []Record, stack []run, buf []Record, cmp func(a, b Record) int) ([]run, []Record) {
	for len(stack) > 1 {
		n := len(stack)
		switch {
		case n >= 3 && stack[n-3].length <= stack[n-2].length+stack[n-1].length:
			if stack[n-3].length < stack[n-1].length {
				stack, buf = mergeAt(recs, stack, n-3, buf, cmp)
			} else {
				stack, buf = mergeAt(recs, stack, n-2, buf, cmp)
			}
		case stack[n-2].length <= stack[n-1].length:
			stack, buf = mergeAt(recs, stack, n-2, buf, cmp)
		default:
			return stack, buf
		}
	}
	return stack, buf
}

// mergeAt merges stack[i] with stack[i+1] in place on recs.
func mergeAt(recs []Record, stack []run, i int, buf []Record, cmp func(a, b Record) int) ([]run, []Record) {
	a, b := stack[i], stack[i+1]
	buf = mergeAdjacent(recs, a.start, a.start+a.length, b.start+b.length, buf, cmp)
	stack[i] = run{start: a.start, length: a.length + b.length}
	stack = append(stack[:i+1], stack[i+2:]...)
	return stack, buf
}

// mergeAdjacent merges recs[start:mid] with recs[mid:end], buffering the
// left run. Left wins ties, so stability holds.
func mergeAdjacent(recs []Record, start, mid, end int, buf []Record, cmp func(a, b Record) int) []Record {
	if cap(buf) < mid-start {
		buf = make([]Record, mid-start)
	}
	left := buf[:mid-start]
	copy(left, recs[start:mid])

	i, j, k := 0, mid, start
	for i < len(left) && j < end {
		if cmp(recs[j], left[i]) < 0 {
			recs[k] = recs[j]
			j++
		} else {
			recs[k] = left[i]
			i++
		}
		k++
	}
	for i < len(left) {
		recs[k] = left[i]
		i++
		k++
	}
	return buf
}

// =============================================================================
// HEAPSORT - max heap, sift down, constant auxiliary space
// =============================================================================

func heapsort(recs []Record, cmp func(a, b Record) int) {
	n := len(recs)
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(recs, i, n, cmp)
	}
	for end := n - 1; end > 0; end-- {
		recs[0], recs[end] = recs[end], recs[0]
		siftDown(recs, 0, end, cmp)
	}
}

func siftDown(recs []Record, root, end int, cmp func(a, b Record) int) {
	for {
		child := 2*root + 1
		if child >= end {
			return
		}
		if child+1 < end && cmp(recs[child+1], recs[child]) > 0 {
			child++
		}
		if cmp(recs[child], recs[root]) <= 0 {
			return
		}
		recs[root], recs[child] = recs[child], recs[root]
		root = child
	}
}
