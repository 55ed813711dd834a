/*
Package sqlite provides a SQLite-backed implementation of the receipt store.

PURPOSE:
  Implements receipt.Store using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLE:
  receipts: One row per scanned receipt. Line items travel as a JSON
  column (they are always read and written with their receipt, never
  queried relationally). Amounts are stored as decimal text, never
  floating point. transaction_date is NULL when extraction found no
  date; the column never holds a zero date.

INDEXES:
  Composite indexes mirror the query engine's hot field pairs:
  - idx_receipts_vendor_amount:   vendor equality then amount ranges
  - idx_receipts_date_amount:     date ranges then amount
  - idx_receipts_category_amount: category breakdowns
  - idx_receipts_vendor_date:     vendor trends

COLLECTION ORDER:
  All() returns rowid order, which is insertion order. The engines
  define "collection order" on top of this, so stable sorts and hash
  lookups behave identically over SQLite and the in-memory store.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/receipts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := receipt.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - receipt/store.go: Interface definition
  - receipt/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
	"github.com/warp/receipt-engine/receipt"
)

// Store implements receipt.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Receipts
	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		vendor TEXT NOT NULL,
		transaction_date TEXT,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		category TEXT,
		items_json TEXT,
		file_name TEXT,
		file_size INTEGER,
		confidence_score REAL,
		extracted_text TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Composite indexes for the field pairs the query engine hits hardest
	CREATE INDEX IF NOT EXISTS idx_receipts_vendor_amount
		ON receipts(vendor, amount);
	CREATE INDEX IF NOT EXISTS idx_receipts_date_amount
		ON receipts(transaction_date, amount);
	CREATE INDEX IF NOT EXISTS idx_receipts_category_amount
		ON receipts(category, amount);
	CREATE INDEX IF NOT EXISTS idx_receipts_vendor_date
		ON receipts(vendor, transaction_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECEIPT STORE (receipt.Store interface)
// =============================================================================

// Insert adds a new receipt.
func (s *Store) Insert(ctx context.Context, r *receipt.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemsJSON, err := marshalItems(r.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO receipts
		(id, vendor, transaction_date, amount, currency, category, items_json,
		 file_name, file_size, confidence_score, extracted_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.Vendor,
		nullDate(r.TransactionDate),
		r.Amount.String(),
		r.Currency,
		nullString(r.Category),
		itemsJSON,
		nullString(r.FileName),
		r.FileSize,
		r.Confidence,
		nullString(r.ExtractedText),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return receipt.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	return nil
}

// Get returns one receipt by ID.
func (s *Store) Get(ctx context.Context, id string) (*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipts, err := s.queryReceipts(ctx, selectReceipts+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return receipts[0], nil
}

// Update replaces a stored receipt.
func (s *Store) Update(ctx context.Context, r *receipt.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemsJSON, err := marshalItems(r.Items)
	if err != nil {
		return err
	}

	query := `
		UPDATE receipts
		SET vendor = ?, transaction_date = ?, amount = ?, currency = ?, category = ?,
		    items_json = ?, file_name = ?, file_size = ?, confidence_score = ?,
		    extracted_text = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		r.Vendor,
		nullDate(r.TransactionDate),
		r.Amount.String(),
		r.Currency,
		nullString(r.Category),
		itemsJSON,
		nullString(r.FileName),
		r.FileSize,
		r.Confidence,
		nullString(r.ExtractedText),
		r.UpdatedAt.UTC().Format(time.RFC3339),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return receipt.ErrReceiptNotFound
	}
	return nil
}

// Delete removes a receipt.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM receipts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return receipt.ErrReceiptNotFound
	}
	return nil
}

// All returns every receipt in insertion order.
func (s *Store) All(ctx context.Context) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReceipts(ctx, selectReceipts+" ORDER BY rowid ASC")
}

// Count returns the number of stored receipts.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM receipts").Scan(&count)
	return count, err
}

const selectReceipts = `
	SELECT id, vendor, transaction_date, amount, currency, category, items_json,
	       file_name, file_size, confidence_score, extracted_text, created_at, updated_at
	FROM receipts`

func (s *Store) queryReceipts(ctx context.Context, query string, args ...any) ([]*receipt.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*receipt.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}

	return receipts, rows.Err()
}

func scanReceipt(rows *sql.Rows) (*receipt.Receipt, error) {
	var (
		r               receipt.Receipt
		transactionDate sql.NullString
		amount          string
		category        sql.NullString
		itemsJSON       sql.NullString
		fileName        sql.NullString
		fileSize        sql.NullInt64
		confidence      sql.NullFloat64
		extractedText   sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := rows.Scan(
		&r.ID, &r.Vendor, &transactionDate, &amount, &r.Currency, &category,
		&itemsJSON, &fileName, &fileSize, &confidence, &extractedText,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan receipt: %w", err)
	}

	r.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q for receipt %s: %w", amount, r.ID, err)
	}
	if transactionDate.Valid && transactionDate.String != "" {
		tp, err := engine.ParseDate(transactionDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q for receipt %s: %w", transactionDate.String, r.ID, err)
		}
		r.TransactionDate = &tp
	}
	r.Category = category.String
	r.FileName = fileName.String
	r.FileSize = fileSize.Int64
	r.Confidence = confidence.Float64
	r.ExtractedText = extractedText.String

	if itemsJSON.Valid && itemsJSON.String != "" {
		r.Items, err = unmarshalItems(itemsJSON.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse items for receipt %s: %w", r.ID, err)
		}
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		r.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		r.UpdatedAt = t
	}

	return &r, nil
}

// =============================================================================
// LINE ITEM CODEC - decimals travel as strings, never floats
// =============================================================================

type itemRow struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

func marshalItems(items []receipt.LineItem) (sql.NullString, error) {
	if len(items) == 0 {
		return sql.NullString{}, nil
	}
	rows := make([]itemRow, len(items))
	for i, it := range items {
		rows[i] = itemRow{
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   it.UnitPrice.String(),
		}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode line items: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalItems(s string) ([]receipt.LineItem, error) {
	var rows []itemRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		return nil, err
	}
	items := make([]receipt.LineItem, len(rows))
	for i, row := range rows {
		qty, err := decimal.NewFromString(row.Quantity)
		if err != nil {
			return nil, fmt.Errorf("bad quantity %q: %w", row.Quantity, err)
		}
		price, err := decimal.NewFromString(row.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("bad unit price %q: %w", row.UnitPrice, err)
		}
		items[i] = receipt.LineItem{Description: row.Description, Quantity: qty, UnitPrice: price}
	}
	return items, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(tp *engine.TimePoint) sql.NullString {
	if tp == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (contains(err.Error(), "UNIQUE constraint failed") ||
		contains(err.Error(), "duplicate key"))
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsAt(s, substr, 0))
}

func containsAt(s, substr string, start int) bool {
	for i := start; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
