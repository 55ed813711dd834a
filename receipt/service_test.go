package receipt_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/receipt-engine/engine"
	"github.com/warp/receipt-engine/receipt"
	"github.com/warp/receipt-engine/receipt/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) *receipt.Service {
	t.Helper()
	mem := store.NewMemory()
	t.Cleanup(func() { mem.Close() })
	return receipt.NewService(mem, zerolog.Nop())
}

func mustDate(s string) *engine.TimePoint {
	tp, err := engine.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &tp
}

func sampleReceipt(vendor, amount, date string) *receipt.Receipt {
	r := &receipt.Receipt{
		Vendor:     vendor,
		Amount:     decimal.RequireFromString(amount),
		Category:   "Groceries",
		Confidence: 0.9,
	}
	if date != "" {
		r.TransactionDate = mustDate(date)
	}
	return r
}

func seed(t *testing.T, svc *receipt.Service, receipts ...*receipt.Receipt) []*receipt.Receipt {
	t.Helper()
	out := make([]*receipt.Receipt, len(receipts))
	for i, r := range receipts {
		created, err := svc.Create(context.Background(), r)
		require.NoError(t, err)
		out[i] = created
	}
	return out
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestService_Create_AssignsIDAndDefaults(t *testing.T) {
	// GIVEN: A receipt without ID or currency
	// WHEN: Creating it
	// THEN: It gets an ID, USD, and timestamps

	svc := newTestService(t)
	created, err := svc.Create(context.Background(), sampleReceipt("Walmart", "42.50", "2024-01-05"))

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "id should be assigned")
	assert.Equal(t, "USD", created.Currency)
	assert.False(t, created.CreatedAt.IsZero(), "created timestamp should be set")
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Walmart", stored.Vendor)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("42.50")))
}

func TestService_Create_RejectsInvalidReceipts(t *testing.T) {
	svc := newTestService(t)

	negative := sampleReceipt("Walmart", "-1.00", "")
	_, err := svc.Create(context.Background(), negative)
	assert.ErrorIs(t, err, receipt.ErrInvalidReceipt, "negative amount must be rejected")

	nameless := sampleReceipt("", "5.00", "")
	_, err = svc.Create(context.Background(), nameless)
	assert.ErrorIs(t, err, receipt.ErrInvalidReceipt, "vendor is required")
}

func TestService_Create_DuplicateID_Rejected(t *testing.T) {
	svc := newTestService(t)

	first := sampleReceipt("Walmart", "1.00", "")
	first.ID = "fixed-id"
	_, err := svc.Create(context.Background(), first)
	require.NoError(t, err)

	second := sampleReceipt("Target", "2.00", "")
	second.ID = "fixed-id"
	_, err = svc.Create(context.Background(), second)
	assert.ErrorIs(t, err, receipt.ErrDuplicateID)
}

func TestService_Update_PatchesOnlyGivenFields(t *testing.T) {
	// GIVEN: A stored receipt
	// WHEN: Patching the vendor and amount only
	// THEN: Those change, the rest stays, UpdatedAt moves

	svc := newTestService(t)
	created := seed(t, svc, sampleReceipt("Wallmart", "42.50", "2024-01-05"))[0]

	vendor := "Walmart"
	amount := decimal.RequireFromString("43.00")
	updated, err := svc.Update(context.Background(), created.ID, receipt.Patch{
		Vendor: &vendor,
		Amount: &amount,
	})

	require.NoError(t, err)
	assert.Equal(t, "Walmart", updated.Vendor)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, "Groceries", updated.Category, "untouched field must survive")
	require.NotNil(t, updated.TransactionDate)
	assert.Equal(t, "2024-01-05", updated.TransactionDate.String())
}

func TestService_Update_UnknownReceipt_NotFound(t *testing.T) {
	svc := newTestService(t)
	vendor := "Nobody"
	_, err := svc.Update(context.Background(), "missing", receipt.Patch{Vendor: &vendor})
	assert.ErrorIs(t, err, receipt.ErrReceiptNotFound)
}

func TestService_Update_BadDate_RejectedBeforeWrite(t *testing.T) {
	svc := newTestService(t)
	created := seed(t, svc, sampleReceipt("Walmart", "1.00", "2024-01-05"))[0]

	bad := "01/05/2024"
	_, err := svc.Update(context.Background(), created.ID, receipt.Patch{TransactionDate: &bad})
	assert.ErrorIs(t, err, receipt.ErrInvalidReceipt)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", stored.TransactionDate.String(), "failed patch must not touch the store")
}

func TestService_Update_EmptyDate_ClearsIt(t *testing.T) {
	svc := newTestService(t)
	created := seed(t, svc, sampleReceipt("Walmart", "1.00", "2024-01-05"))[0]

	empty := ""
	updated, err := svc.Update(context.Background(), created.ID, receipt.Patch{TransactionDate: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.TransactionDate, "date should be absent after clearing")
}

func TestService_Delete_RemovesReceipt(t *testing.T) {
	svc := newTestService(t)
	created := seed(t, svc, sampleReceipt("Walmart", "1.00", ""))[0]

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err := svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, receipt.ErrReceiptNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), receipt.ErrReceiptNotFound)
}

// =============================================================================
// ENGINE OPERATIONS
// =============================================================================

func TestService_Search_MapsMatchesBackToReceipts(t *testing.T) {
	// GIVEN: Three receipts, two from Walmart
	// WHEN: Searching vendor equality
	// THEN: Full receipts come back, not bare records

	svc := newTestService(t)
	seed(t, svc,
		sampleReceipt("Walmart", "42.50", "2024-01-05"),
		sampleReceipt("Target", "13.20", "2024-01-07"),
		sampleReceipt("walmart", "7.99", "2024-02-01"),
	)

	out, err := svc.Search(context.Background(), engine.QuerySpec{
		Field: receipt.FieldVendor,
		Value: engine.Text("walmart"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	require.Len(t, out.Receipts, 2)
	assert.Equal(t, "Walmart", out.Receipts[0].Vendor)
	assert.True(t, out.Receipts[0].Amount.Equal(decimal.RequireFromString("42.50")), "receipt fields must survive the round trip")
	assert.NotEmpty(t, out.Algorithm, "the executed strategy is part of the answer")
}

func TestService_Sort_OrdersReceiptsByField(t *testing.T) {
	svc := newTestService(t)
	seed(t, svc,
		sampleReceipt("Walmart", "42.50", ""),
		sampleReceipt("Target", "13.20", ""),
		sampleReceipt("Costco", "120.00", ""),
	)

	out, err := svc.Sort(context.Background(), engine.SortSpec{
		Field:     receipt.FieldAmount,
		Direction: engine.Descending,
	})

	require.NoError(t, err)
	require.Len(t, out.Receipts, 3)
	assert.Equal(t, "Costco", out.Receipts[0].Vendor)
	assert.Equal(t, "Walmart", out.Receipts[1].Vendor)
	assert.Equal(t, "Target", out.Receipts[2].Vendor)
}

func TestService_Aggregate_SumsAmounts(t *testing.T) {
	svc := newTestService(t)
	seed(t, svc,
		sampleReceipt("Walmart", "42.50", ""),
		sampleReceipt("Target", "13.20", ""),
	)

	res, err := svc.Aggregate(context.Background(), engine.AggregateSpec{
		Kind:  engine.AggregateSum,
		Field: receipt.FieldAmount,
	})

	require.NoError(t, err)
	assert.True(t, res.Scalar.Equal(decimal.RequireFromString("55.70")), "expected 55.70, got %s", res.Scalar)
}

func TestService_Search_ClientErrorsPassThroughTyped(t *testing.T) {
	svc := newTestService(t)
	seed(t, svc, sampleReceipt("Walmart", "1.00", ""))

	_, err := svc.Search(context.Background(), engine.QuerySpec{
		Field: "tip_percent",
		Value: engine.NumberFromFloat(1),
	})
	assert.ErrorIs(t, err, engine.ErrFieldNotFound)
	assert.True(t, engine.IsClientError(err), "unknown field is the caller's fault")
}

// =============================================================================
// STATISTICS
// =============================================================================

func TestService_Statistics_SummarizesCollection(t *testing.T) {
	// GIVEN: Four receipts across two months and two vendors
	// WHEN: Summarizing
	// THEN: Totals, leaderboard, and monthly trends line up

	svc := newTestService(t)
	seed(t, svc,
		sampleReceipt("Walmart", "10.00", "2024-01-05"),
		sampleReceipt("Walmart", "20.00", "2024-01-20"),
		sampleReceipt("Target", "30.00", "2024-02-01"),
		sampleReceipt("walmart", "40.00", "2024-02-10"),
	)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalReceipts)
	assert.True(t, stats.TotalSpend.Equal(decimal.RequireFromString("100.00")), "total spend, got %s", stats.TotalSpend)
	assert.True(t, stats.AverageAmount.Equal(decimal.RequireFromString("25")), "average amount, got %s", stats.AverageAmount)
	assert.True(t, stats.MaxAmount.Equal(decimal.RequireFromString("40.00")), "max amount, got %s", stats.MaxAmount)
	assert.InDelta(t, 0.9, stats.AverageConfidence, 1e-9)

	require.NotEmpty(t, stats.TopVendors)
	assert.Equal(t, "Walmart", stats.TopVendors[0].Vendor, "case variants count as one vendor")
	assert.Equal(t, 3, stats.TopVendors[0].Count)

	require.Len(t, stats.MonthlyTrends, 2)
	assert.Equal(t, "2024-01", stats.MonthlyTrends[0].Month)
	assert.Equal(t, 2, stats.MonthlyTrends[0].Count)
	assert.True(t, stats.MonthlyTrends[0].Total.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, "2024-02", stats.MonthlyTrends[1].Month)
	assert.True(t, stats.MonthlyTrends[1].Total.Equal(decimal.RequireFromString("70.00")))
}

func TestService_Statistics_EmptyStore_IsZeroNotError(t *testing.T) {
	svc := newTestService(t)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalReceipts)
	assert.True(t, stats.TotalSpend.IsZero())
	assert.Empty(t, stats.TopVendors)
	assert.Empty(t, stats.MonthlyTrends)
}
