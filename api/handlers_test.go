/*
handlers_test.go - HTTP-level tests for the API

Tests for:
- Receipt CRUD round-trips and error envelopes
- Search/sort/aggregate endpoints and their status mapping
- Introspection, statistics, and export endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
	"github.com/warp/receipt-engine/receipt"
	"github.com/warp/receipt-engine/store/sqlite"
)

func newTestRouter(t *testing.T) (*chi.Mux, *receipt.Service) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := receipt.NewService(store, zerolog.Nop())
	h := NewHandler(svc, zerolog.Nop())
	return NewRouter(h, zerolog.Nop()), svc
}

// seedGroceries stores five receipts with known amounts, dates, and
// vendor spellings.
func seedGroceries(t *testing.T, svc *receipt.Service) {
	t.Helper()
	rows := []struct {
		id, vendor, amount, date string
	}{
		{"r-1", "Walmart", "42.50", "2024-01-05"},
		{"r-2", "Target", "13.20", "2024-01-07"},
		{"r-3", "Walmart", "7.99", "2024-02-01"},
		{"r-4", "Costco", "120.00", "2024-02-10"},
		{"r-5", "walmart", "42.50", "2024-03-15"},
	}
	for _, row := range rows {
		date, err := engine.ParseDate(row.date)
		if err != nil {
			t.Fatalf("Bad fixture date %s: %v", row.date, err)
		}
		r := &receipt.Receipt{
			ID:              row.id,
			Vendor:          row.vendor,
			Amount:          decimal.RequireFromString(row.amount),
			Category:        "Groceries",
			TransactionDate: &date,
			Confidence:      0.9,
		}
		if _, err := svc.Create(context.Background(), r); err != nil {
			t.Fatalf("Failed to seed receipt %s: %v", row.id, err)
		}
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// =============================================================================
// RECEIPT CRUD
// =============================================================================

func TestCreateAndGetReceipt(t *testing.T) {
	// GIVEN: An empty collection
	router, _ := newTestRouter(t)

	// WHEN: Creating a receipt without an ID or currency
	rec := doJSON(t, router, http.MethodPost, "/api/v1/receipts", map[string]any{
		"vendor":           "Whole Foods",
		"amount":           87.42,
		"transaction_date": "2024-03-15",
		"category":         "Groceries",
		"confidence_score": 0.93,
	})

	// THEN: The server assigns both and echoes the receipt
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created ReceiptDTO
	decodeInto(t, rec, &created)
	if created.ID == "" {
		t.Error("Expected a generated ID")
	}
	if created.Currency != "USD" {
		t.Errorf("Expected default currency USD, got %q", created.Currency)
	}

	// AND: It can be fetched back by ID
	got := doJSON(t, router, http.MethodGet, "/api/v1/receipts/"+created.ID, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", got.Code)
	}
	var fetched ReceiptDTO
	decodeInto(t, got, &fetched)
	if fetched.Vendor != "Whole Foods" || fetched.Amount != 87.42 {
		t.Errorf("Round-trip lost data: %+v", fetched)
	}
	if fetched.TransactionDate == nil || *fetched.TransactionDate != "2024-03-15" {
		t.Errorf("Expected date 2024-03-15, got %v", fetched.TransactionDate)
	}
}

func TestCreateReceipt_ValidationError(t *testing.T) {
	// GIVEN: A request with no vendor
	router, _ := newTestRouter(t)

	// WHEN: Creating it
	rec := doJSON(t, router, http.MethodPost, "/api/v1/receipts", map[string]any{
		"amount": 5.00,
	})

	// THEN: 400 with the standard error envelope
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var errResp ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Error == "" || errResp.Details == nil {
		t.Errorf("Expected populated error envelope, got %+v", errResp)
	}
}

func TestCreateReceipt_UnknownFieldRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/receipts", map[string]any{
		"vendor": "X",
		"amount": 1.00,
		"bogus":  true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestGetReceipt_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/receipts/no-such-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	var errResp ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Code != "not_found" {
		t.Errorf("Expected code not_found, got %q", errResp.Code)
	}
}

func TestUpdateReceipt_PartialPatch(t *testing.T) {
	// GIVEN: A seeded collection
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	// WHEN: Patching only the vendor
	rec := doJSON(t, router, http.MethodPatch, "/api/v1/receipts/r-2", map[string]any{
		"vendor": "Target Express",
	})

	// THEN: The vendor changes, everything else survives
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated ReceiptDTO
	decodeInto(t, rec, &updated)
	if updated.Vendor != "Target Express" {
		t.Errorf("Expected patched vendor, got %q", updated.Vendor)
	}
	if updated.Amount != 13.20 {
		t.Errorf("Expected amount untouched at 13.20, got %v", updated.Amount)
	}
	if updated.TransactionDate == nil || *updated.TransactionDate != "2024-01-07" {
		t.Errorf("Expected date untouched, got %v", updated.TransactionDate)
	}
}

func TestDeleteReceipt(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/receipts/r-3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	gone := doJSON(t, router, http.MethodGet, "/api/v1/receipts/r-3", nil)
	if gone.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", gone.Code)
	}
}

// =============================================================================
// QUERY ENDPOINTS
// =============================================================================

func TestSearch_ExactMatchIsCaseInsensitive(t *testing.T) {
	// GIVEN: Three Walmart receipts under two spellings
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	// WHEN: Searching for lowercase walmart
	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"field": "vendor",
		"value": "walmart",
	})

	// THEN: All three spellings match, via linear scan on a small collection
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SearchResponse
	decodeInto(t, rec, &resp)
	if resp.Count != 3 || len(resp.Results) != 3 {
		t.Errorf("Expected 3 matches, got count=%d len=%d", resp.Count, len(resp.Results))
	}
	if resp.AlgorithmUsed != "linear" {
		t.Errorf("Expected linear for a small collection, got %q", resp.AlgorithmUsed)
	}
	if resp.ExecutionTimeMS < 0 {
		t.Errorf("Expected non-negative execution time, got %v", resp.ExecutionTimeMS)
	}
}

func TestSearch_AutoInfersRangeFromBounds(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"field": "amount",
		"low":   10,
		"high":  50,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SearchResponse
	decodeInto(t, rec, &resp)
	if resp.AlgorithmUsed != "range" {
		t.Errorf("Expected range, got %q", resp.AlgorithmUsed)
	}
	if resp.Count != 3 {
		t.Errorf("Expected 3 receipts between 10 and 50, got %d", resp.Count)
	}
	if resp.QueryInfo.Field != "amount" || resp.QueryInfo.Low == nil || resp.QueryInfo.High == nil {
		t.Errorf("Expected the query echoed back, got %+v", resp.QueryInfo)
	}
}

func TestSearch_UnknownFieldIs400(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"field": "flavor",
		"value": "sweet",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var errResp ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Code != "field_not_found" {
		t.Errorf("Expected code field_not_found, got %q", errResp.Code)
	}
}

func TestSearch_BadPatternIs400(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"field":   "vendor",
		"pattern": "[",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	var errResp ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Code != "invalid_pattern" {
		t.Errorf("Expected code invalid_pattern, got %q", errResp.Code)
	}
}

func TestSort_DescendingByAmount(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sort", map[string]any{
		"field":     "amount",
		"direction": "desc",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SortResponse
	decodeInto(t, rec, &resp)
	if len(resp.Results) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Vendor != "Costco" {
		t.Errorf("Expected Costco first, got %q", resp.Results[0].Vendor)
	}
	if resp.AlgorithmUsed != "timsort" {
		t.Errorf("Expected timsort for a small collection, got %q", resp.AlgorithmUsed)
	}
	if resp.SortInfo.Field != "amount" || resp.SortInfo.Direction != "desc" {
		t.Errorf("Expected the sort echoed back, got %+v", resp.SortInfo)
	}
}

func TestAggregate_Sum(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/aggregate", map[string]any{
		"operation": "sum",
		"field":     "amount",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AggregateResponse
	decodeInto(t, rec, &resp)
	if resp.Value == nil || *resp.Value != 226.19 {
		t.Errorf("Expected sum 226.19, got %v", resp.Value)
	}
}

func TestAggregate_Histogram(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/aggregate", map[string]any{
		"operation": "histogram",
		"field":     "amount",
		"buckets":   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AggregateResponse
	decodeInto(t, rec, &resp)
	if len(resp.Histogram) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(resp.Histogram))
	}
	total := resp.Histogram[0].Count + resp.Histogram[1].Count
	if total != 5 {
		t.Errorf("Expected bucket counts to sum to 5, got %d", total)
	}
}

func TestAggregate_MeanOnEmptyCollectionIs400(t *testing.T) {
	// GIVEN: An empty collection
	router, _ := newTestRouter(t)

	// WHEN: Asking for a mean
	rec := doJSON(t, router, http.MethodPost, "/api/v1/aggregate", map[string]any{
		"operation": "mean",
		"field":     "amount",
	})

	// THEN: A client error, not a 500
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var errResp ErrorResponse
	decodeInto(t, rec, &errResp)
	if errResp.Code != "insufficient_data" {
		t.Errorf("Expected code insufficient_data, got %q", errResp.Code)
	}
}

func TestAggregate_MonthlyRollup(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/aggregate", map[string]any{
		"operation":   "rollup",
		"field":       "amount",
		"date_field":  "transaction_date",
		"granularity": "monthly",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AggregateResponse
	decodeInto(t, rec, &resp)
	if len(resp.Series) != 3 {
		t.Fatalf("Expected 3 monthly buckets, got %d", len(resp.Series))
	}
	if resp.Series[0].Period != "2024-01" || resp.Series[0].Count != 2 {
		t.Errorf("Unexpected first bucket: %+v", resp.Series[0])
	}
	if resp.Series[1].Value != 127.99 {
		t.Errorf("Expected February total 127.99, got %v", resp.Series[1].Value)
	}
}

func TestListAlgorithms(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/algorithms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp AlgorithmsResponse
	decodeInto(t, rec, &resp)
	if len(resp.Search) == 0 || len(resp.Sort) == 0 || len(resp.Aggregate) == 0 {
		t.Fatalf("Expected all three families populated, got %+v", resp)
	}
	names := map[string]bool{}
	for _, a := range resp.Search {
		names[a.Name] = true
	}
	for _, want := range []string{"linear", "binary", "hash", "fuzzy", "range", "pattern", "auto"} {
		if !names[want] {
			t.Errorf("Expected search algorithm %q in catalog", want)
		}
	}
}

// =============================================================================
// ANALYTICS ENDPOINTS
// =============================================================================

func TestStatistics(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/statistics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp StatisticsDTO
	decodeInto(t, rec, &resp)
	if resp.TotalReceipts != 5 {
		t.Errorf("Expected 5 receipts, got %d", resp.TotalReceipts)
	}
	if resp.TotalSpend != 226.19 {
		t.Errorf("Expected total spend 226.19, got %v", resp.TotalSpend)
	}
	if resp.MaxAmount != 120 {
		t.Errorf("Expected max amount 120, got %v", resp.MaxAmount)
	}
	if len(resp.TopVendors) == 0 || resp.TopVendors[0].Vendor != "Walmart" || resp.TopVendors[0].Count != 3 {
		t.Errorf("Expected Walmart x3 on top, got %+v", resp.TopVendors)
	}
	if len(resp.MonthlyTrends) != 3 {
		t.Errorf("Expected 3 monthly trend buckets, got %d", len(resp.MonthlyTrends))
	}
}

func TestExportCSV(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/export/csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected header + 5 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,vendor,transaction_date,amount,") {
		t.Errorf("Unexpected CSV header: %q", lines[0])
	}
}

func TestExportJSON(t *testing.T) {
	router, svc := newTestRouter(t)
	seedGroceries(t, svc)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/export/json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var env struct {
		Count    int `json:"count"`
		Receipts []struct {
			Amount string `json:"amount"`
		} `json:"receipts"`
	}
	decodeInto(t, rec, &env)
	if env.Count != 5 || len(env.Receipts) != 5 {
		t.Fatalf("Expected 5 exported receipts, got count=%d len=%d", env.Count, len(env.Receipts))
	}
	if env.Receipts[0].Amount != "42.5" {
		t.Errorf("Expected decimal string amount, got %q", env.Receipts[0].Amount)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected health body: %s", rec.Body.String())
	}
}
