/*
Package export renders the receipt collection into download formats.

PURPOSE:
  CSV for spreadsheets, JSON for backup and re-import. Unlike the API
  DTOs (which serve floats for frontend convenience), exports keep
  amounts as decimal strings so nothing is lost in the round trip.

CSV COLUMNS:
  id, vendor, transaction_date, amount, currency, category,
  confidence_score, file_name, created_at

  Line items and extracted text stay out of the CSV; they don't fit a
  flat row. The JSON export carries everything.
*/
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/receipt"
)

var csvHeader = []string{
	"id", "vendor", "transaction_date", "amount", "currency", "category",
	"confidence_score", "file_name", "created_at",
}

// WriteCSV writes one row per receipt in collection order.
func WriteCSV(w io.Writer, receipts []*receipt.Receipt) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range receipts {
		date := ""
		if r.TransactionDate != nil {
			date = r.TransactionDate.String()
		}
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format(time.RFC3339)
		}
		row := []string{
			r.ID,
			r.Vendor,
			date,
			r.Amount.String(),
			r.Currency,
			r.Category,
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
			r.FileName,
			created,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

type jsonEnvelope struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	Receipts   []jsonReceipt `json:"receipts"`
}

type jsonReceipt struct {
	ID              string          `json:"id"`
	Vendor          string          `json:"vendor"`
	TransactionDate string          `json:"transaction_date,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category,omitempty"`
	Items           []jsonItem      `json:"items,omitempty"`
	FileName        string          `json:"file_name,omitempty"`
	FileSize        int64           `json:"file_size,omitempty"`
	ConfidenceScore float64         `json:"confidence_score"`
	ExtractedText   string          `json:"extracted_text,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

type jsonItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// WriteJSON writes the full collection under an envelope carrying the
// export timestamp and count.
func WriteJSON(w io.Writer, receipts []*receipt.Receipt) error {
	env := jsonEnvelope{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(receipts),
		Receipts:   make([]jsonReceipt, len(receipts)),
	}
	for i, r := range receipts {
		jr := jsonReceipt{
			ID:              r.ID,
			Vendor:          r.Vendor,
			Amount:          r.Amount,
			Currency:        r.Currency,
			Category:        r.Category,
			FileName:        r.FileName,
			FileSize:        r.FileSize,
			ConfidenceScore: r.Confidence,
			ExtractedText:   r.ExtractedText,
		}
		if r.TransactionDate != nil {
			jr.TransactionDate = r.TransactionDate.String()
		}
		for _, it := range r.Items {
			jr.Items = append(jr.Items, jsonItem{
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
			})
		}
		if !r.CreatedAt.IsZero() {
			jr.CreatedAt = r.CreatedAt.Format(time.RFC3339)
		}
		if !r.UpdatedAt.IsZero() {
			jr.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
		}
		env.Receipts[i] = jr
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
