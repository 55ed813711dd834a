/*
service.go - Receipt operations over a Store and the analytics engines

PURPOSE:
  The service owns the receipt lifecycle (create, read, patch, delete)
  and runs every engine call against a point-in-time snapshot of the
  store. Engines see records; callers see receipts; the service maps
  between the two.

SNAPSHOT SEMANTICS:
  Each search/sort/aggregate call loads the full collection once and
  projects it onto the schema. Nothing is cached between calls, so a
  write is visible to the next engine call and never to a running one.

SEE ALSO:
  - types.go: Receipt, schema, validation
  - statistics.go: The dashboard summary built on these operations
*/
package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  Store
	schema engine.Schema
	log    zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		schema: Schema(),
		log:    log.With().Str("component", "receipt").Logger(),
	}
}

// Schema exposes the queryable field vocabulary for spec building.
func (s *Service) Schema() engine.Schema { return s.schema }

// =============================================================================
// LIFECYCLE - create, read, patch, delete
// =============================================================================

// Create validates and stores a receipt. A missing ID is assigned, a
// missing currency defaults to USD.
func (s *Service) Create(ctx context.Context, r *Receipt) (*Receipt, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert receipt: %w", err)
	}
	s.log.Info().Str("id", r.ID).Str("vendor", r.Vendor).Msg("receipt created")
	return r.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Receipt, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Receipt, error) {
	return s.store.All(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Patch is a partial update. Nil fields stay untouched. The date takes
// the YYYY-MM-DD form; an explicit empty string clears it back to
// absent.
type Patch struct {
	Vendor          *string
	Amount          *decimal.Decimal
	Category        *string
	Currency        *string
	TransactionDate *string
}

// Update applies a patch to a stored receipt.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Receipt, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Vendor != nil {
		r.Vendor = *p.Vendor
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Currency != nil {
		r.Currency = *p.Currency
	}
	if p.TransactionDate != nil {
		if *p.TransactionDate == "" {
			r.TransactionDate = nil
		} else {
			tp, err := engine.ParseDate(*p.TransactionDate)
			if err != nil {
				return nil, &InvalidReceiptError{Reason: fmt.Sprintf("transaction date %q is not a YYYY-MM-DD date", *p.TransactionDate)}
			}
			r.TransactionDate = &tp
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}
	s.log.Info().Str("id", r.ID).Msg("receipt updated")
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("receipt deleted")
	return nil
}

// =============================================================================
// ENGINE OPERATIONS - search, sort, aggregate over a store snapshot
// =============================================================================

// SearchOutcome carries matched receipts plus the engine's cost report.
type SearchOutcome struct {
	Receipts  []*Receipt
	Count     int
	Elapsed   time.Duration
	Algorithm engine.SearchAlgorithm
}

func (s *Service) Search(ctx context.Context, spec engine.QuerySpec) (*SearchOutcome, error) {
	receipts, records, byID, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res, err := engine.Search(s.schema, records, spec)
	if err != nil {
		return nil, err
	}
	matched := make([]*Receipt, 0, len(res.Matches))
	for _, rec := range res.Matches {
		matched = append(matched, byID[rec.ID])
	}
	s.log.Debug().
		Str("field", spec.Field).
		Str("algorithm", string(res.Algorithm)).
		Int("collection", len(receipts)).
		Int("matches", res.Count).
		Dur("elapsed", res.Elapsed).
		Msg("search executed")
	return &SearchOutcome{
		Receipts:  matched,
		Count:     res.Count,
		Elapsed:   res.Elapsed,
		Algorithm: res.Algorithm,
	}, nil
}

// SortOutcome carries the ordered receipts plus the engine's cost report.
type SortOutcome struct {
	Receipts  []*Receipt
	Elapsed   time.Duration
	Algorithm engine.SortAlgorithm
}

func (s *Service) Sort(ctx context.Context, spec engine.SortSpec) (*SortOutcome, error) {
	_, records, byID, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res, err := engine.Sort(s.schema, records, spec)
	if err != nil {
		return nil, err
	}
	ordered := make([]*Receipt, 0, len(res.Records))
	for _, rec := range res.Records {
		ordered = append(ordered, byID[rec.ID])
	}
	s.log.Debug().
		Str("field", spec.Field).
		Str("algorithm", string(res.Algorithm)).
		Int("collection", len(ordered)).
		Dur("elapsed", res.Elapsed).
		Msg("sort executed")
	return &SortOutcome{
		Receipts:  ordered,
		Elapsed:   res.Elapsed,
		Algorithm: res.Algorithm,
	}, nil
}

func (s *Service) Aggregate(ctx context.Context, spec engine.AggregateSpec) (*engine.AggregateResult, error) {
	_, records, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res, err := engine.Aggregate(s.schema, records, spec)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("kind", string(spec.Kind)).
		Str("field", spec.Field).
		Int("collection", len(records)).
		Dur("elapsed", res.Elapsed).
		Msg("aggregation executed")
	return res, nil
}

// snapshot loads the collection once and projects it for the engines.
func (s *Service) snapshot(ctx context.Context) ([]*Receipt, []engine.Record, map[string]*Receipt, error) {
	receipts, err := s.store.All(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load receipts: %w", err)
	}
	records := make([]engine.Record, len(receipts))
	byID := make(map[string]*Receipt, len(receipts))
	for i, r := range receipts {
		records[i] = r.Record()
		byID[r.ID] = r
	}
	return receipts, records, byID, nil
}
