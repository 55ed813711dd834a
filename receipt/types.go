// Package receipt implements receipt-specific record management.
// It stores scanned purchase records and projects them onto the
// analytics engine's schema for search, sort, and aggregation.
package receipt

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
)

// =============================================================================
// RECEIPT - A scanned purchase record
// =============================================================================

// Receipt is one scanned receipt. TransactionDate is a pointer because
// extraction legitimately fails: an unreadable date is stored as absent,
// never as a zero date.
type Receipt struct {
	ID              string
	Vendor          string
	Amount          decimal.Decimal
	Currency        string
	Category        string
	TransactionDate *engine.TimePoint
	Items           []LineItem
	FileName        string
	FileSize        int64
	Confidence      float64
	ExtractedText   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineItem is one purchased item on a receipt, in receipt order.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// ItemsTotal sums quantity times unit price over the line items.
func (r *Receipt) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range r.Items {
		total = total.Add(it.Quantity.Mul(it.UnitPrice))
	}
	return total
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// reach shared line-item slices.
func (r *Receipt) Clone() *Receipt {
	c := *r
	if r.TransactionDate != nil {
		d := *r.TransactionDate
		c.TransactionDate = &d
	}
	if r.Items != nil {
		c.Items = append([]LineItem(nil), r.Items...)
	}
	return &c
}

// =============================================================================
// QUERYABLE SCHEMA - The field vocabulary every engine call shares
// =============================================================================

const (
	FieldVendor     = "vendor"
	FieldDate       = "transaction_date"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldConfidence = "confidence_score"
)

// Schema declares the queryable receipt fields and their kinds.
func Schema() engine.Schema {
	return engine.NewSchema(
		engine.Field{Name: FieldVendor, Kind: engine.KindText},
		engine.Field{Name: FieldDate, Kind: engine.KindDate},
		engine.Field{Name: FieldAmount, Kind: engine.KindNumber},
		engine.Field{Name: FieldCategory, Kind: engine.KindText},
		engine.Field{Name: FieldConfidence, Kind: engine.KindNumber},
	)
}

// Record projects the receipt onto the engine schema. An absent
// transaction date becomes a typed null, which searches skip and sorts
// place last.
func (r *Receipt) Record() engine.Record {
	values := map[string]engine.Value{
		FieldVendor:     engine.Text(r.Vendor),
		FieldAmount:     engine.Number(r.Amount),
		FieldCategory:   engine.Text(r.Category),
		FieldConfidence: engine.NumberFromFloat(r.Confidence),
	}
	if r.TransactionDate != nil {
		values[FieldDate] = engine.Date(*r.TransactionDate)
	} else {
		values[FieldDate] = engine.Null(engine.KindDate)
	}
	return engine.Record{ID: r.ID, Values: values}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ErrInvalidReceipt is the sentinel for receipts that violate the record
// invariants.
var ErrInvalidReceipt = errors.New("invalid receipt")

// InvalidReceiptError names the violated invariant.
type InvalidReceiptError struct {
	Reason string
}

func (e *InvalidReceiptError) Error() string {
	return fmt.Sprintf("invalid receipt: %s", e.Reason)
}

func (e *InvalidReceiptError) Unwrap() error { return ErrInvalidReceipt }

// Validate checks the record invariants: a vendor, a non-negative
// amount, non-negative line-item quantities and prices, confidence in
// [0, 1].
func (r *Receipt) Validate() error {
	if r.Vendor == "" {
		return &InvalidReceiptError{Reason: "vendor is required"}
	}
	if r.Amount.IsNegative() {
		return &InvalidReceiptError{Reason: "amount must not be negative"}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &InvalidReceiptError{Reason: "confidence score must be between 0 and 1"}
	}
	for i, it := range r.Items {
		if it.Description == "" {
			return &InvalidReceiptError{Reason: fmt.Sprintf("line item %d has no description", i+1)}
		}
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
			return &InvalidReceiptError{Reason: fmt.Sprintf("line item %d has a negative quantity or price", i+1)}
		}
	}
	return nil
}
