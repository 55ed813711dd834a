/*
Package factory provides receipt fixture loading and sample data generation.

PURPOSE:
  Turns JSON fixture files into receipt slices for seeding, and
  generates deterministic sample collections for demos and benchmarks.
  Keeps test and demo data out of the domain packages.

JSON SCHEMA:
  Either a bare array or an envelope:
  {
    "receipts": [
      {
        "id": "rcpt-001",
        "vendor": "Walmart",
        "transaction_date": "2024-01-05",
        "amount": "42.50",
        "currency": "USD",
        "category": "Groceries",
        "items": [
          {"description": "Milk", "quantity": 2, "unit_price": "3.49"}
        ],
        "confidence_score": 0.93
      }
    ]
  }

  Amounts accept JSON numbers or decimal strings; strings survive
  exactly. transaction_date is optional - receipts without one sort
  last and stay out of rollups.

KEY FEATURES:
  - Validates each receipt before returning it
  - Sample() is fully deterministic for a given seed
  - Roughly one in eight samples has no transaction date, so the
    null-handling paths always have data to chew on

USAGE:
  receipts, err := factory.Load("./fixtures/receipts.json")

  demo := factory.Sample(500, 42)
  for _, r := range demo {
      svc.Create(ctx, r)
  }

SEE ALSO:
  - cmd/server/main.go: Seeding on startup
  - receipt/types.go: Validation rules
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
	"github.com/warp/receipt-engine/receipt"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ReceiptJSON is the fixture representation of a receipt.
type ReceiptJSON struct {
	ID              string          `json:"id,omitempty"`
	Vendor          string          `json:"vendor"`
	TransactionDate string          `json:"transaction_date,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	Category        string          `json:"category,omitempty"`
	Items           []LineItemJSON  `json:"items,omitempty"`
	FileName        string          `json:"file_name,omitempty"`
	FileSize        int64           `json:"file_size,omitempty"`
	ConfidenceScore float64         `json:"confidence_score,omitempty"`
	ExtractedText   string          `json:"extracted_text,omitempty"`
}

// LineItemJSON is the fixture representation of a line item.
type LineItemJSON struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type fixtureEnvelope struct {
	Receipts []ReceiptJSON `json:"receipts"`
}

// =============================================================================
// FIXTURE LOADING
// =============================================================================

// Load reads a JSON fixture file into validated receipts.
func Load(path string) ([]*receipt.Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseReceipts(data)
}

// ParseReceipts decodes fixture JSON, accepting both the envelope form
// and a bare array.
func ParseReceipts(data []byte) ([]*receipt.Receipt, error) {
	var rows []ReceiptJSON

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse fixture JSON: %w", err)
		}
	} else {
		var env fixtureEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to parse fixture JSON: %w", err)
		}
		rows = env.Receipts
	}

	receipts := make([]*receipt.Receipt, 0, len(rows))
	for i, row := range rows {
		r, err := row.toReceipt()
		if err != nil {
			return nil, fmt.Errorf("fixture receipt %d: %w", i, err)
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

func (rj ReceiptJSON) toReceipt() (*receipt.Receipt, error) {
	r := &receipt.Receipt{
		ID:            rj.ID,
		Vendor:        rj.Vendor,
		Amount:        rj.Amount,
		Currency:      rj.Currency,
		Category:      rj.Category,
		FileName:      rj.FileName,
		FileSize:      rj.FileSize,
		Confidence:    rj.ConfidenceScore,
		ExtractedText: rj.ExtractedText,
	}
	if rj.TransactionDate != "" {
		tp, err := engine.ParseDate(rj.TransactionDate)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction_date %q: %w", rj.TransactionDate, err)
		}
		r.TransactionDate = &tp
	}
	for _, it := range rj.Items {
		r.Items = append(r.Items, receipt.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// =============================================================================
// SAMPLE GENERATION
// =============================================================================

var sampleVendors = []struct {
	name     string
	category string
	minCents int64
	maxCents int64
}{
	{"Walmart", "Groceries", 500, 25000},
	{"Target", "Groceries", 800, 18000},
	{"Costco", "Groceries", 3000, 45000},
	{"Whole Foods", "Groceries", 1500, 22000},
	{"Trader Joe's", "Groceries", 900, 12000},
	{"CVS Pharmacy", "Pharmacy", 300, 9000},
	{"Walgreens", "Pharmacy", 400, 8000},
	{"Home Depot", "Home Improvement", 1200, 60000},
	{"Starbucks", "Dining", 350, 2500},
	{"Shell", "Fuel", 2000, 9000},
}

// Sample generates n deterministic receipts for the given seed. Dates
// spread over the year ending 2024-12-31; about one in eight receipts
// has no date at all.
func Sample(n int, seed int64) []*receipt.Receipt {
	rng := rand.New(rand.NewSource(seed))
	anchor := engine.NewTimePoint(2024, time.December, 31)

	receipts := make([]*receipt.Receipt, n)
	for i := 0; i < n; i++ {
		v := sampleVendors[rng.Intn(len(sampleVendors))]
		cents := v.minCents + rng.Int63n(v.maxCents-v.minCents+1)

		r := &receipt.Receipt{
			ID:         fmt.Sprintf("sample-%04d", i+1),
			Vendor:     v.name,
			Amount:     decimal.New(cents, -2),
			Currency:   "USD",
			Category:   v.category,
			FileName:   fmt.Sprintf("scan_%04d.jpg", i+1),
			FileSize:   int64(50_000 + rng.Intn(450_000)),
			Confidence: 0.70 + float64(rng.Intn(30))/100,
		}
		if rng.Intn(8) != 0 {
			date := anchor.AddDays(-rng.Intn(365))
			r.TransactionDate = &date
		}
		receipts[i] = r
	}
	return receipts
}
