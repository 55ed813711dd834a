/*
sqlite_test.go - Round-trip tests for the SQLite receipt store

Tests for:
- Insert/Get round-trips preserving decimal amounts and line items
- Absent transaction dates surviving storage as NULL
- Duplicate ID rejection, update, delete, insertion order
*/
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
	"github.com/warp/receipt-engine/receipt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testReceipt(id string) *receipt.Receipt {
	date := engine.NewTimePoint(2024, time.March, 15)
	now := time.Date(2024, 3, 16, 10, 30, 0, 0, time.UTC)
	return &receipt.Receipt{
		ID:              id,
		Vendor:          "Whole Foods",
		Amount:          decimal.RequireFromString("87.42"),
		Currency:        "USD",
		Category:        "Groceries",
		TransactionDate: &date,
		Items: []receipt.LineItem{
			{Description: "Olive oil", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("12.99")},
			{Description: "Apples", Quantity: decimal.RequireFromString("2.5"), UnitPrice: decimal.RequireFromString("3.50")},
		},
		FileName:      "receipt_0315.jpg",
		FileSize:      204800,
		Confidence:    0.93,
		ExtractedText: "WHOLE FOODS MARKET\nTOTAL 87.42",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestInsertGet_RoundTrip(t *testing.T) {
	// GIVEN: A receipt with a date, line items, and a cent-precise amount
	store := newTestStore(t)
	ctx := context.Background()

	original := testReceipt("rcpt-1")
	if err := store.Insert(ctx, original); err != nil {
		t.Fatalf("Failed to insert receipt: %v", err)
	}

	// WHEN: Reading it back
	got, err := store.Get(ctx, "rcpt-1")
	if err != nil {
		t.Fatalf("Failed to get receipt: %v", err)
	}

	// THEN: Every field survives, amounts to the exact cent
	if got.Vendor != "Whole Foods" {
		t.Errorf("Expected vendor Whole Foods, got %q", got.Vendor)
	}
	if got.Amount.String() != "87.42" {
		t.Errorf("Expected amount 87.42, got %s", got.Amount)
	}
	if got.TransactionDate == nil || got.TransactionDate.String() != "2024-03-15" {
		t.Errorf("Expected date 2024-03-15, got %v", got.TransactionDate)
	}
	if len(got.Items) != 2 {
		t.Fatalf("Expected 2 line items, got %d", len(got.Items))
	}
	if got.Items[1].Quantity.String() != "2.5" || got.Items[1].UnitPrice.String() != "3.5" {
		t.Errorf("Unexpected second item: %+v", got.Items[1])
	}
	if got.Confidence != 0.93 {
		t.Errorf("Expected confidence 0.93, got %v", got.Confidence)
	}
	if got.CreatedAt != original.CreatedAt {
		t.Errorf("Expected created_at %v, got %v", original.CreatedAt, got.CreatedAt)
	}
}

func TestInsertGet_AbsentDateStaysAbsent(t *testing.T) {
	// GIVEN: A receipt whose extraction found no date
	store := newTestStore(t)
	ctx := context.Background()

	r := testReceipt("rcpt-nodate")
	r.TransactionDate = nil
	r.Items = nil
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Failed to insert receipt: %v", err)
	}

	// WHEN: Reading it back
	got, err := store.Get(ctx, "rcpt-nodate")
	if err != nil {
		t.Fatalf("Failed to get receipt: %v", err)
	}

	// THEN: The date is still absent, not a zero date
	if got.TransactionDate != nil {
		t.Errorf("Expected nil transaction date, got %v", got.TransactionDate)
	}
	if len(got.Items) != 0 {
		t.Errorf("Expected no items, got %d", len(got.Items))
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	// GIVEN: A stored receipt
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testReceipt("rcpt-dup")); err != nil {
		t.Fatalf("Failed to insert receipt: %v", err)
	}

	// WHEN: Inserting another receipt with the same ID
	err := store.Insert(ctx, testReceipt("rcpt-dup"))

	// THEN: The store reports the duplicate
	if !errors.Is(err, receipt.ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-receipt")
	if !errors.Is(err, receipt.ErrReceiptNotFound) {
		t.Errorf("Expected ErrReceiptNotFound, got %v", err)
	}
}

func TestUpdate_ReplacesRow(t *testing.T) {
	// GIVEN: A stored receipt
	store := newTestStore(t)
	ctx := context.Background()

	r := testReceipt("rcpt-upd")
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Failed to insert receipt: %v", err)
	}

	// WHEN: Updating its amount and clearing the date
	r.Amount = decimal.RequireFromString("90.00")
	r.TransactionDate = nil
	if err := store.Update(ctx, r); err != nil {
		t.Fatalf("Failed to update receipt: %v", err)
	}

	// THEN: The stored row reflects both changes
	got, err := store.Get(ctx, "rcpt-upd")
	if err != nil {
		t.Fatalf("Failed to get receipt: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("90.00")) {
		t.Errorf("Expected amount 90.00, got %s", got.Amount)
	}
	if got.TransactionDate != nil {
		t.Errorf("Expected cleared date, got %v", got.TransactionDate)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), testReceipt("ghost"))
	if !errors.Is(err, receipt.ErrReceiptNotFound) {
		t.Errorf("Expected ErrReceiptNotFound, got %v", err)
	}
}

func TestDelete_RemovesRow(t *testing.T) {
	// GIVEN: A stored receipt
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testReceipt("rcpt-del")); err != nil {
		t.Fatalf("Failed to insert receipt: %v", err)
	}

	// WHEN: Deleting it
	if err := store.Delete(ctx, "rcpt-del"); err != nil {
		t.Fatalf("Failed to delete receipt: %v", err)
	}

	// THEN: It is gone, and deleting again reports not found
	if _, err := store.Get(ctx, "rcpt-del"); !errors.Is(err, receipt.ErrReceiptNotFound) {
		t.Errorf("Expected ErrReceiptNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "rcpt-del"); !errors.Is(err, receipt.ErrReceiptNotFound) {
		t.Errorf("Expected ErrReceiptNotFound on second delete, got %v", err)
	}
}

func TestAll_InsertionOrder(t *testing.T) {
	// GIVEN: Receipts inserted in a known order
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := testReceipt(fmt.Sprintf("rcpt-%d", i))
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Failed to insert receipt %d: %v", i, err)
		}
	}

	// WHEN: Listing all receipts
	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("Failed to list receipts: %v", err)
	}

	// THEN: They come back in insertion order
	if len(all) != 5 {
		t.Fatalf("Expected 5 receipts, got %d", len(all))
	}
	for i, r := range all {
		want := fmt.Sprintf("rcpt-%d", i)
		if r.ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, r.ID)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count receipts: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected count 5, got %d", count)
	}
}
