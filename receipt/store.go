/*
store.go - Persistence interface for receipts

PURPOSE:
  Defines the interface between the receipt service and the database.
  Different implementations can use SQLite or in-memory storage.

KEY GUARANTEES:
  ID uniqueness:   Insert rejects an ID the store already holds
  Collection order: All() returns receipts in insertion order, so
                    "collection order" means the same thing in every
                    store and every engine result
  Isolation:       Stores hand out copies; mutating a returned receipt
                    never changes stored state

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - receipt/store/memory.go: In-memory for testing

EXAMPLE:
  store := sqlite.New("./receipts.db")
  err := store.Insert(ctx, rcpt)
  if errors.Is(err, receipt.ErrDuplicateID) {
      // Already ingested, safe to ignore
  }

SEE ALSO:
  - service.go: Higher-level operations using Store
  - store/sqlite/sqlite.go: Concrete implementation
*/
package receipt

import (
	"context"
	"errors"
)

// =============================================================================
// STORE ERRORS
// =============================================================================

var (
	// ErrReceiptNotFound is returned when a referenced receipt doesn't exist.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrDuplicateID is returned when inserting an ID the store already holds.
	ErrDuplicateID = errors.New("duplicate receipt id")
)

// =============================================================================
// STORE - Interface for receipt persistence
// =============================================================================

type Store interface {
	// Insert persists a new receipt. Fails with ErrDuplicateID if the ID
	// is already stored.
	Insert(ctx context.Context, r *Receipt) error

	// Get returns one receipt by ID, or ErrReceiptNotFound.
	Get(ctx context.Context, id string) (*Receipt, error)

	// Update replaces a stored receipt, or ErrReceiptNotFound.
	Update(ctx context.Context, r *Receipt) error

	// Delete removes a receipt, or ErrReceiptNotFound.
	Delete(ctx context.Context, id string) error

	// All returns every receipt in insertion order.
	All(ctx context.Context) ([]*Receipt, error)

	// Count returns the number of stored receipts.
	Count(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
