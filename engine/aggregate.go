/*
aggregate.go - Statistical aggregation over record collections

PURPOSE:
  Eight aggregation kinds behind one entry point: scalar statistics
  (sum, mean, median, variance, stddev), the mode set, histogram
  distributions, and time-bucketed rollups.

EMPTY-COLLECTION CONTRACT:
  sum                zero, no error (additive identity)
  mean, median       InsufficientDataError
  variance, stddev   InsufficientDataError (sample forms need two values)
  mode, histogram    EmptyCollectionError
  rollup             empty series, no error

DESIGN PRINCIPLES:
  1. Money math is decimal: sum, mean, median, and rollup values never
     round-trip through float64
  2. Dispersion is floating point: variance and stddev are distribution
     shape, not ledger amounts, and say so here
  3. Median is defined in terms of the sort engine, not a private order
  4. Null field values are absent: they join no bucket and no statistic

SEE ALSO:
  - spec.go: AggregateSpec validation
  - sort.go: The stable sort median builds on
  - time.go: Granularity and bucket truncation for rollups
*/
package engine

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATE RESULT
// =============================================================================

// AggregateResult carries the result slot for the kind that ran: Scalar
// for sum/mean/median/variance/stddev, Modes for mode, Histogram for
// histogram, Series for rollup.
type AggregateResult struct {
	Kind      AggregateKind
	Scalar    decimal.Decimal
	Modes     []Value
	Histogram *Histogram
	Series    []RollupBucket
	Elapsed   time.Duration
}

// Histogram is an equal-width bucketing of a numeric field. Bucket
// intervals are [Low, High) except the last, which includes its upper
// edge so the maximum value is never orphaned. Counts sum to the number
// of non-null values.
type Histogram struct {
	Buckets []HistogramBucket
}

type HistogramBucket struct {
	Low   decimal.Decimal
	High  decimal.Decimal
	Count int
}

func (h *Histogram) Total() int {
	total := 0
	for _, b := range h.Buckets {
		total += b.Count
	}
	return total
}

// RollupBucket is one time bucket of a rollup series. Label is the
// bucket key (YYYY-MM-DD for daily and weekly, YYYY-MM for monthly),
// Start the bucket's first day, Value the requested statistic.
type RollupBucket struct {
	Label string
	Start TimePoint
	Count int
	Value decimal.Decimal
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Aggregate computes one statistic over a collection.
func Aggregate(schema Schema, records []Record, spec AggregateSpec) (*AggregateResult, error) {
	kind, stat, err := spec.validate()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &AggregateResult{Kind: kind}
	switch kind {
	case AggregateSum:
		res.Scalar, err = aggregateSum(schema, records, spec.Field)
	case AggregateMean:
		res.Scalar, err = aggregateMean(schema, records, spec.Field)
	case AggregateMedian:
		res.Scalar, err = aggregateMedian(schema, records, spec.Field)
	case AggregateMode:
		res.Modes, err = aggregateMode(schema, records, spec.Field)
	case AggregateVariance:
		res.Scalar, err = aggregateVariance(schema, records, spec.Field, spec.Sample)
	case AggregateStdDev:
		var variance decimal.Decimal
		variance, err = aggregateVariance(schema, records, spec.Field, spec.Sample)
		if err == nil {
			res.Scalar = decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
		}
	case AggregateHistogram:
		res.Histogram, err = aggregateHistogram(schema, records, spec.Field, spec.Buckets)
	case AggregateRollup:
		res.Series, err = aggregateRollup(schema, records, spec, stat)
	}
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// numericValues resolves a numeric field and collects its non-null
// values in collection order.
func numericValues(schema Schema, records []Record, field string) ([]decimal.Decimal, error) {
	f, err := schema.Field(field)
	if err != nil {
		return nil, err
	}
	if f.Kind != KindNumber {
		return nil, &InvalidSpecError{Reason: "aggregation requires a numeric field"}
	}
	var values []decimal.Decimal
	for _, r := range records {
		if v := r.Value(f); !v.IsNull() {
			values = append(values, v.Number())
		}
	}
	return values, nil
}

// =============================================================================
// SCALAR STATISTICS
// =============================================================================

func aggregateSum(schema Schema, records []Record, field string) (decimal.Decimal, error) {
	values, err := numericValues(schema, records, field)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum, nil
}

func aggregateMean(schema Schema, records []Record, field string) (decimal.Decimal, error) {
	values, err := numericValues(schema, records, field)
	if err != nil {
		return decimal.Zero, err
	}
	if len(values) == 0 {
		return decimal.Zero, &InsufficientDataError{Op: "mean", Need: 1, Got: 0}
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))), nil
}

// aggregateMedian sorts the records that carry a value with the stable
// mergesort and reads the midpoint; even counts average the two middle
// values.
func aggregateMedian(schema Schema, records []Record, field string) (decimal.Decimal, error) {
	f, err := schema.Field(field)
	if err != nil {
		return decimal.Zero, err
	}
	if f.Kind != KindNumber {
		return decimal.Zero, &InvalidSpecError{Reason: "aggregation requires a numeric field"}
	}
	var present []Record
	for _, r := range records {
		if !r.Value(f).IsNull() {
			present = append(present, r)
		}
	}
	if len(present) == 0 {
		return decimal.Zero, &InsufficientDataError{Op: "median", Need: 1, Got: 0}
	}
	sorted, err := Sort(schema, present, SortSpec{Field: field, Algorithm: SortMergesort})
	if err != nil {
		return decimal.Zero, err
	}
	n := len(sorted.Records)
	mid := sorted.Records[n/2].Value(f).Number()
	if n%2 == 1 {
		return mid, nil
	}
	lower := sorted.Records[n/2-1].Value(f).Number()
	return lower.Add(mid).Div(decimal.NewFromInt(2)), nil
}

// aggregateMode returns the most frequent value(s). A frequency tie
// returns every tied value, ascending. The first occurrence of a key
// supplies the representative value, so "Walmart" and "walmart" count
// together and surface with their first-seen spelling.
func aggregateMode(schema Schema, records []Record, field string) ([]Value, error) {
	f, err := schema.Field(field)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	first := make(map[string]Value)
	for _, r := range records {
		v := r.Value(f)
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if _, seen := first[k]; !seen {
			first[k] = v
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return nil, &EmptyCollectionError{Op: "mode"}
	}
	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	var modes []Value
	for k, c := range counts {
		if c == best {
			modes = append(modes, first[k])
		}
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].Compare(modes[j]) < 0 })
	return modes, nil
}

// aggregateVariance computes dispersion in float64. Population (divide
// by N) is the default: the collection is treated as the whole universe
// of receipts, not a sample from one. Sample applies the N-1 correction
// and therefore needs a second value.
func aggregateVariance(schema Schema, records []Record, field string, sample bool) (decimal.Decimal, error) {
	values, err := numericValues(schema, records, field)
	if err != nil {
		return decimal.Zero, err
	}
	need := 1
	op := "variance"
	if sample {
		need = 2
		op = "sample variance"
	}
	if len(values) < need {
		return decimal.Zero, &InsufficientDataError{Op: op, Need: need, Got: len(values)}
	}
	floats := make([]float64, len(values))
	mean := 0.0
	for i, v := range values {
		floats[i] = v.InexactFloat64()
		mean += floats[i]
	}
	mean /= float64(len(floats))
	sumSq := 0.0
	for _, x := range floats {
		d := x - mean
		sumSq += d * d
	}
	div := float64(len(floats))
	if sample {
		div = float64(len(floats) - 1)
	}
	return decimal.NewFromFloat(sumSq / div), nil
}

// =============================================================================
// HISTOGRAM
// =============================================================================

// aggregateHistogram buckets a numeric field into equal-width intervals.
// Zero buckets means Sturges' rule. All-equal values collapse to one
// bucket spanning that single value.
func aggregateHistogram(schema Schema, records []Record, field string, buckets int) (*Histogram, error) {
	values, err := numericValues(schema, records, field)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, &EmptyCollectionError{Op: "histogram"}
	}
	if buckets < 0 {
		return nil, &InvalidSpecError{Reason: "histogram bucket count must not be negative"}
	}
	if buckets == 0 {
		buckets = sturges(len(values))
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v.LessThan(lo) {
			lo = v
		}
		if v.GreaterThan(hi) {
			hi = v
		}
	}
	if lo.Equal(hi) {
		return &Histogram{Buckets: []HistogramBucket{{Low: lo, High: hi, Count: len(values)}}}, nil
	}

	width := hi.Sub(lo).Div(decimal.NewFromInt(int64(buckets)))
	out := make([]HistogramBucket, buckets)
	for i := range out {
		out[i].Low = lo.Add(width.Mul(decimal.NewFromInt(int64(i))))
		out[i].High = lo.Add(width.Mul(decimal.NewFromInt(int64(i + 1))))
	}
	out[buckets-1].High = hi // pin the top edge, division may not land exactly

	for _, v := range values {
		idx := int(v.Sub(lo).Div(width).IntPart())
		if idx >= buckets {
			idx = buckets - 1 // the maximum belongs to the last bucket
		}
		out[idx].Count++
	}
	return &Histogram{Buckets: out}, nil
}

// sturges is the default bucket count: ceil(log2 N) + 1.
func sturges(n int) int {
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// =============================================================================
// TIME ROLLUP
// =============================================================================

// aggregateRollup groups records by a date field truncated to the
// requested granularity and computes one statistic per bucket. Records
// without a date are skipped; for value statistics, records without a
// value are skipped too. Buckets come back chronologically, and only
// buckets that received records exist: quiet weeks produce no zero rows.
func aggregateRollup(schema Schema, records []Record, spec AggregateSpec, stat RollupStat) ([]RollupBucket, error) {
	df, err := schema.Field(spec.DateField)
	if err != nil {
		return nil, err
	}
	if df.Kind != KindDate {
		return nil, &InvalidSpecError{Reason: "rollup requires a date field to group by"}
	}
	var vf Field
	if stat != RollupCount {
		vf, err = schema.Field(spec.Field)
		if err != nil {
			return nil, err
		}
		if vf.Kind != KindNumber {
			return nil, &InvalidSpecError{Reason: "rollup statistics other than count require a numeric field"}
		}
	}

	type bucket struct {
		start TimePoint
		count int
		sum   decimal.Decimal
		min   decimal.Decimal
		max   decimal.Decimal
	}
	byKey := make(map[string]*bucket)
	for _, r := range records {
		dv := r.Value(df)
		if dv.IsNull() {
			continue
		}
		var amount decimal.Decimal
		if stat != RollupCount {
			v := r.Value(vf)
			if v.IsNull() {
				continue
			}
			amount = v.Number()
		}
		start := dv.Date().Truncate(spec.Granularity)
		key := start.String()
		b, ok := byKey[key]
		if !ok {
			b = &bucket{start: start, min: amount, max: amount}
			byKey[key] = b
		}
		b.count++
		b.sum = b.sum.Add(amount)
		if amount.LessThan(b.min) {
			b.min = amount
		}
		if amount.GreaterThan(b.max) {
			b.max = amount
		}
	}

	series := make([]RollupBucket, 0, len(byKey))
	for _, b := range byKey {
		var value decimal.Decimal
		switch stat {
		case RollupSum:
			value = b.sum
		case RollupCount:
			value = decimal.NewFromInt(int64(b.count))
		case RollupMean:
			value = b.sum.Div(decimal.NewFromInt(int64(b.count)))
		case RollupMin:
			value = b.min
		case RollupMax:
			value = b.max
		}
		series = append(series, RollupBucket{
			Label: b.start.Label(spec.Granularity),
			Start: b.start,
			Count: b.count,
			Value: value,
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Start.Before(series[j].Start) })
	return series, nil
}
