package engine

// =============================================================================
// ALGORITHM CATALOG - Capability listing for the API
// =============================================================================

// AlgorithmInfo describes one algorithm for capability listings. Stable
// is meaningful for sort strategies only.
type AlgorithmInfo struct {
	Name        string
	Complexity  string
	Space       string
	Stable      bool
	Description string
}

// Capabilities groups the catalog by engine.
type Capabilities struct {
	Search    []AlgorithmInfo
	Sort      []AlgorithmInfo
	Aggregate []AlgorithmInfo
}

// Catalog returns every algorithm the engines implement, with the cost
// model callers pick between. The auto entries document the decision
// tables verbatim so "auto" is never a surprise.
func Catalog() Capabilities {
	return Capabilities{
		Search: []AlgorithmInfo{
			{Name: "linear", Complexity: "O(n)", Space: "O(1)",
				Description: "Sequential scan, results in collection order."},
			{Name: "binary", Complexity: "O(n log n)", Space: "O(n)",
				Description: "Sorts a copy, probes, returns the whole block of equal keys in sorted order."},
			{Name: "hash", Complexity: "O(n)", Space: "O(n)",
				Description: "Builds a value index per call, constant-time probe, results in collection order."},
			{Name: "fuzzy", Complexity: "O(n*m^2)", Space: "O(m)",
				Description: "Levenshtein similarity against every text value, ranked best first, threshold 0.8 unless set."},
			{Name: "range", Complexity: "O(n)", Space: "O(1)",
				Description: "Inclusive [low, high] interval over numbers or dates, either bound may be open."},
			{Name: "pattern", Complexity: "O(n)", Space: "O(1)",
				Description: "Case-insensitive regular expression over text values."},
			{Name: "auto", Complexity: "-", Space: "-",
				Description: "Fuzzy, range, and pattern queries run their own strategy; exact queries scan linearly up to 64 records and use hash beyond."},
		},
		Sort: []AlgorithmInfo{
			{Name: "quicksort", Complexity: "O(n log n) average, O(n^2) worst", Space: "O(log n)", Stable: false,
				Description: "Median-of-three pivot, in place. Equal keys may reorder."},
			{Name: "mergesort", Complexity: "O(n log n)", Space: "O(n)", Stable: true,
				Description: "Top-down merge, guaranteed bound, equal keys keep collection order."},
			{Name: "timsort", Complexity: "O(n log n) worst, O(n) presorted", Space: "O(n)", Stable: true,
				Description: "Natural runs extended by binary insertion, merged under stack invariants."},
			{Name: "heapsort", Complexity: "O(n log n)", Space: "O(1)", Stable: false,
				Description: "Max-heap selection, no auxiliary memory, equal keys may reorder."},
			{Name: "auto", Complexity: "-", Space: "-",
				Description: "Timsort up to 64 records or whenever stability is requested, heapsort beyond."},
		},
		Aggregate: []AlgorithmInfo{
			{Name: "sum", Complexity: "O(n)", Space: "O(1)",
				Description: "Decimal sum, zero on an empty collection."},
			{Name: "mean", Complexity: "O(n)", Space: "O(1)",
				Description: "Decimal mean, fails on an empty collection."},
			{Name: "median", Complexity: "O(n log n)", Space: "O(n)",
				Description: "Stable sort then midpoint, even counts average the middle pair."},
			{Name: "mode", Complexity: "O(n)", Space: "O(n)",
				Description: "Most frequent value(s), frequency ties returned ascending."},
			{Name: "variance", Complexity: "O(n)", Space: "O(n)",
				Description: "Population variance unless the sample correction is requested."},
			{Name: "stddev", Complexity: "O(n)", Space: "O(n)",
				Description: "Square root of the variance, same population/sample choice."},
			{Name: "histogram", Complexity: "O(n)", Space: "O(buckets)",
				Description: "Equal-width buckets, Sturges' rule when no count is given, top edge inclusive."},
			{Name: "rollup", Complexity: "O(n log n)", Space: "O(buckets)",
				Description: "Daily, weekly, or monthly buckets over a date field, chronological, no zero fill."},
		},
	}
}
