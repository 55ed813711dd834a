/*
statistics.go - Dashboard summary over the whole collection

PURPOSE:
  One call that answers the dashboard's standing questions: how much was
  spent, where, on what, and how it trends by month. Everything here is
  computed through the engines so the summary can never disagree with an
  equivalent aggregate query.
*/
package receipt

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
)

// topVendorLimit caps the vendor leaderboard.
const topVendorLimit = 10

// =============================================================================
// STATISTICS TYPES
// =============================================================================

type Statistics struct {
	TotalReceipts     int
	TotalSpend        decimal.Decimal
	AverageAmount     decimal.Decimal
	MaxAmount         decimal.Decimal
	AverageConfidence float64
	TopVendors        []VendorCount
	Categories        []CategoryBreakdown
	MonthlyTrends     []MonthlyTrend
}

type VendorCount struct {
	Vendor string
	Count  int
}

type CategoryBreakdown struct {
	Category string
	Count    int
	Total    decimal.Decimal
}

type MonthlyTrend struct {
	Month string
	Count int
	Total decimal.Decimal
}

// =============================================================================
// SUMMARY
// =============================================================================

// Statistics summarizes the stored collection. An empty store yields a
// zero summary, not an error: a dashboard over nothing is a real state.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	receipts, records, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Statistics{TotalReceipts: len(receipts)}
	if len(receipts) == 0 {
		return stats, nil
	}

	sum, err := engine.Aggregate(s.schema, records, engine.AggregateSpec{Kind: engine.AggregateSum, Field: FieldAmount})
	if err != nil {
		return nil, err
	}
	stats.TotalSpend = sum.Scalar

	mean, err := engine.Aggregate(s.schema, records, engine.AggregateSpec{Kind: engine.AggregateMean, Field: FieldAmount})
	if err != nil {
		return nil, err
	}
	stats.AverageAmount = mean.Scalar

	// Largest single receipt: descending amount sort, read the head.
	byAmount, err := engine.Sort(s.schema, records, engine.SortSpec{
		Field:     FieldAmount,
		Direction: engine.Descending,
		Algorithm: engine.SortHeapsort,
	})
	if err != nil {
		return nil, err
	}
	stats.MaxAmount = byAmount.Records[0].Value(engine.Field{Name: FieldAmount, Kind: engine.KindNumber}).Number()

	confidence, err := engine.Aggregate(s.schema, records, engine.AggregateSpec{Kind: engine.AggregateMean, Field: FieldConfidence})
	if err != nil {
		return nil, err
	}
	stats.AverageConfidence = confidence.Scalar.InexactFloat64()

	stats.TopVendors = topVendors(receipts)
	stats.Categories = categoryBreakdown(receipts)

	stats.MonthlyTrends, err = s.monthlyTrends(records)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// topVendors counts receipts per vendor, case-folded, first spelling
// kept for display. Ties break alphabetically so the leaderboard is
// deterministic.
func topVendors(receipts []*Receipt) []VendorCount {
	type acc struct {
		display string
		count   int
	}
	byVendor := make(map[string]*acc)
	for _, r := range receipts {
		k := foldKey(r.Vendor)
		a, ok := byVendor[k]
		if !ok {
			a = &acc{display: r.Vendor}
			byVendor[k] = a
		}
		a.count++
	}
	out := make([]VendorCount, 0, len(byVendor))
	for _, a := range byVendor {
		out = append(out, VendorCount{Vendor: a.display, Count: a.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Vendor < out[j].Vendor
	})
	if len(out) > topVendorLimit {
		out = out[:topVendorLimit]
	}
	return out
}

// categoryBreakdown counts and sums per category, biggest spend first.
// Uncategorized receipts group under an empty category.
func categoryBreakdown(receipts []*Receipt) []CategoryBreakdown {
	type acc struct {
		display string
		count   int
		total   decimal.Decimal
	}
	byCat := make(map[string]*acc)
	for _, r := range receipts {
		k := foldKey(r.Category)
		a, ok := byCat[k]
		if !ok {
			a = &acc{display: r.Category}
			byCat[k] = a
		}
		a.count++
		a.total = a.total.Add(r.Amount)
	}
	out := make([]CategoryBreakdown, 0, len(byCat))
	for _, a := range byCat {
		out = append(out, CategoryBreakdown{Category: a.display, Count: a.count, Total: a.total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// monthlyTrends merges a monthly sum rollup with a monthly count rollup.
// Both skip dateless receipts, so the bucket sets line up label for
// label.
func (s *Service) monthlyTrends(records []engine.Record) ([]MonthlyTrend, error) {
	sums, err := engine.Aggregate(s.schema, records, engine.AggregateSpec{
		Kind:        engine.AggregateRollup,
		Field:       FieldAmount,
		DateField:   FieldDate,
		Granularity: engine.GranularityMonthly,
	})
	if err != nil {
		return nil, err
	}
	trends := make([]MonthlyTrend, len(sums.Series))
	for i, b := range sums.Series {
		trends[i] = MonthlyTrend{Month: b.Label, Count: b.Count, Total: b.Value}
	}
	return trends, nil
}

func foldKey(s string) string {
	return engine.Text(s).Key()
}
