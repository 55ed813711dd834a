/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Receipts:
    ReceiptDTO, LineItemDTO, CreateReceiptRequest, UpdateReceiptRequest

  Queries:
    SearchRequest/SearchResponse, SortRequest/SortResponse,
    AggregateRequest/AggregateResponse (histogram and rollup sub-DTOs)

  Introspection:
    AlgorithmInfoDTO, AlgorithmsResponse

  Analytics:
    StatisticsDTO and its vendor/category/month breakdowns

AMOUNTS:
  Wire amounts are JSON numbers. Internally they are decimals; the
  conversion happens exactly once in each direction, in this file.

VALIDATION:
  Request structs carry validate tags consumed by bind.go. Everything
  past shape validation (field names, algorithm names, bound kinds) is
  checked by the engines, which return typed client errors.

SEE ALSO:
  - handlers.go: Uses these types
  - bind.go: JSON decoding and validation
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/receipt-engine/engine"
	"github.com/warp/receipt-engine/receipt"
)

// =============================================================================
// RECEIPT TYPES
// =============================================================================

// ReceiptDTO represents a receipt in API responses.
type ReceiptDTO struct {
	ID              string        `json:"id"`
	Vendor          string        `json:"vendor"`
	TransactionDate *string       `json:"transaction_date,omitempty"`
	Amount          float64       `json:"amount"`
	Currency        string        `json:"currency"`
	Category        string        `json:"category,omitempty"`
	Items           []LineItemDTO `json:"items,omitempty"`
	FileName        string        `json:"file_name,omitempty"`
	FileSize        int64         `json:"file_size,omitempty"`
	ConfidenceScore float64       `json:"confidence_score"`
	ExtractedText   string        `json:"extracted_text,omitempty"`
	CreatedAt       string        `json:"created_at,omitempty"`
	UpdatedAt       string        `json:"updated_at,omitempty"`
}

// LineItemDTO represents one line item on a receipt.
type LineItemDTO struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// CreateReceiptRequest is the request to store a receipt.
type CreateReceiptRequest struct {
	ID              string        `json:"id,omitempty"`
	Vendor          string        `json:"vendor" validate:"required"`
	TransactionDate string        `json:"transaction_date,omitempty"`
	Amount          float64       `json:"amount" validate:"gte=0"`
	Currency        string        `json:"currency,omitempty"`
	Category        string        `json:"category,omitempty"`
	Items           []LineItemDTO `json:"items,omitempty" validate:"dive"`
	FileName        string        `json:"file_name,omitempty"`
	FileSize        int64         `json:"file_size,omitempty" validate:"gte=0"`
	ConfidenceScore float64       `json:"confidence_score,omitempty" validate:"gte=0,lte=1"`
	ExtractedText   string        `json:"extracted_text,omitempty"`
}

// UpdateReceiptRequest is a partial update. Absent fields stay untouched;
// an empty transaction_date string clears the date.
type UpdateReceiptRequest struct {
	Vendor          *string  `json:"vendor,omitempty"`
	Amount          *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Category        *string  `json:"category,omitempty"`
	Currency        *string  `json:"currency,omitempty"`
	TransactionDate *string  `json:"transaction_date,omitempty"`
}

// =============================================================================
// QUERY TYPES
// =============================================================================

// SearchRequest selects records matching a query. Algorithm defaults
// to auto. Value/low/high accept JSON numbers, decimal strings, or
// YYYY-MM-DD dates depending on the field's kind.
type SearchRequest struct {
	Field     string  `json:"field" validate:"required"`
	Algorithm string  `json:"algorithm,omitempty"`
	Value     any     `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty" validate:"gte=0,lte=1"`
	Low       any     `json:"low,omitempty"`
	High      any     `json:"high,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
}

// QueryInfoDTO echoes the search request back so clients can pair a
// response with the query that produced it.
type QueryInfoDTO struct {
	Field     string  `json:"field"`
	Value     any     `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Low       any     `json:"low,omitempty"`
	High      any     `json:"high,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
}

// SearchResponse carries the matches plus execution metadata.
type SearchResponse struct {
	Results         []ReceiptDTO `json:"results"`
	Count           int          `json:"count"`
	AlgorithmUsed   string       `json:"algorithm_used"`
	ExecutionTimeMS float64      `json:"execution_time_ms"`
	QueryInfo       QueryInfoDTO `json:"query_info"`
}

// SortRequest orders the whole collection by one field.
type SortRequest struct {
	Field     string `json:"field" validate:"required"`
	Direction string `json:"direction,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
	Stable    bool   `json:"stable,omitempty"`
}

// SortInfoDTO echoes the sort request back to the client.
type SortInfoDTO struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// SortResponse carries the ordered collection plus execution metadata.
type SortResponse struct {
	Results         []ReceiptDTO `json:"results"`
	Count           int          `json:"count"`
	AlgorithmUsed   string       `json:"algorithm_used"`
	ExecutionTimeMS float64      `json:"execution_time_ms"`
	SortInfo        SortInfoDTO  `json:"sort_info"`
}

// AggregateRequest computes one statistic over a field.
type AggregateRequest struct {
	Operation   string `json:"operation" validate:"required"`
	Field       string `json:"field,omitempty"`
	Sample      bool   `json:"sample,omitempty"`
	Buckets     int    `json:"buckets,omitempty" validate:"gte=0"`
	DateField   string `json:"date_field,omitempty"`
	Granularity string `json:"granularity,omitempty"`
	Stat        string `json:"stat,omitempty"`
}

// AggregateResponse carries whichever result shape the operation
// produces: a scalar, the mode values, histogram buckets, or a time
// series.
type AggregateResponse struct {
	Operation       string               `json:"operation"`
	Field           string               `json:"field,omitempty"`
	Value           *float64             `json:"value,omitempty"`
	Modes           []any                `json:"modes,omitempty"`
	Histogram       []HistogramBucketDTO `json:"histogram,omitempty"`
	Series          []RollupBucketDTO    `json:"series,omitempty"`
	ExecutionTimeMS float64              `json:"execution_time_ms"`
}

// HistogramBucketDTO is one histogram bucket. The top bucket's high
// edge is inclusive.
type HistogramBucketDTO struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// RollupBucketDTO is one time-series bucket.
type RollupBucketDTO struct {
	Period string  `json:"period"`
	Start  string  `json:"start"`
	Count  int     `json:"count"`
	Value  float64 `json:"value"`
}

// =============================================================================
// INTROSPECTION TYPES
// =============================================================================

// AlgorithmInfoDTO describes one algorithm.
type AlgorithmInfoDTO struct {
	Name        string `json:"name"`
	Complexity  string `json:"complexity"`
	Space       string `json:"space"`
	Stable      bool   `json:"stable,omitempty"`
	Description string `json:"description"`
}

// AlgorithmsResponse lists every available algorithm by family.
type AlgorithmsResponse struct {
	Search    []AlgorithmInfoDTO `json:"search"`
	Sort      []AlgorithmInfoDTO `json:"sort"`
	Aggregate []AlgorithmInfoDTO `json:"aggregate"`
}

// =============================================================================
// ANALYTICS TYPES
// =============================================================================

// StatisticsDTO is the collection-wide analytics summary.
type StatisticsDTO struct {
	TotalReceipts     int                    `json:"total_receipts"`
	TotalSpend        float64                `json:"total_spend"`
	AverageAmount     float64                `json:"average_amount"`
	MaxAmount         float64                `json:"max_amount"`
	AverageConfidence float64                `json:"average_confidence"`
	TopVendors        []VendorCountDTO       `json:"top_vendors"`
	CategoryBreakdown []CategoryBreakdownDTO `json:"category_breakdown"`
	MonthlyTrends     []MonthlyTrendDTO      `json:"monthly_trends"`
}

// VendorCountDTO is one vendor with its receipt count.
type VendorCountDTO struct {
	Vendor string `json:"vendor"`
	Count  int    `json:"count"`
}

// CategoryBreakdownDTO is one category with count and total spend.
type CategoryBreakdownDTO struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

// MonthlyTrendDTO is one month's receipt count and total spend.
type MonthlyTrendDTO struct {
	Month string  `json:"month"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toReceiptDTO(r *receipt.Receipt) ReceiptDTO {
	dto := ReceiptDTO{
		ID:              r.ID,
		Vendor:          r.Vendor,
		Amount:          r.Amount.InexactFloat64(),
		Currency:        r.Currency,
		Category:        r.Category,
		FileName:        r.FileName,
		FileSize:        r.FileSize,
		ConfidenceScore: r.Confidence,
		ExtractedText:   r.ExtractedText,
	}
	if r.TransactionDate != nil {
		d := r.TransactionDate.String()
		dto.TransactionDate = &d
	}
	for _, it := range r.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			Description: it.Description,
			Quantity:    it.Quantity.InexactFloat64(),
			UnitPrice:   it.UnitPrice.InexactFloat64(),
		})
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	if !r.UpdatedAt.IsZero() {
		dto.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toReceiptDTOs(receipts []*receipt.Receipt) []ReceiptDTO {
	dtos := make([]ReceiptDTO, len(receipts))
	for i, r := range receipts {
		dtos[i] = toReceiptDTO(r)
	}
	return dtos
}

func (req CreateReceiptRequest) toReceipt() (*receipt.Receipt, error) {
	r := &receipt.Receipt{
		ID:            req.ID,
		Vendor:        req.Vendor,
		Amount:        decimal.NewFromFloat(req.Amount),
		Currency:      req.Currency,
		Category:      req.Category,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		Confidence:    req.ConfidenceScore,
		ExtractedText: req.ExtractedText,
	}
	if req.TransactionDate != "" {
		tp, err := engine.ParseDate(req.TransactionDate)
		if err != nil {
			return nil, &receipt.InvalidReceiptError{Reason: "transaction_date must be YYYY-MM-DD"}
		}
		r.TransactionDate = &tp
	}
	for _, it := range req.Items {
		r.Items = append(r.Items, receipt.LineItem{
			Description: it.Description,
			Quantity:    decimal.NewFromFloat(it.Quantity),
			UnitPrice:   decimal.NewFromFloat(it.UnitPrice),
		})
	}
	return r, nil
}

func (req UpdateReceiptRequest) toPatch() receipt.Patch {
	p := receipt.Patch{
		Vendor:          req.Vendor,
		Category:        req.Category,
		Currency:        req.Currency,
		TransactionDate: req.TransactionDate,
	}
	if req.Amount != nil {
		d := decimal.NewFromFloat(*req.Amount)
		p.Amount = &d
	}
	return p
}

func (req SearchRequest) toSpec(schema engine.Schema) (engine.QuerySpec, error) {
	spec := engine.QuerySpec{
		Field:     req.Field,
		Algorithm: engine.SearchAlgorithm(req.Algorithm),
		Threshold: req.Threshold,
		Pattern:   req.Pattern,
	}

	f, err := schema.Field(req.Field)
	if err != nil {
		return engine.QuerySpec{}, err
	}
	if req.Value != nil {
		if spec.Value, err = engine.CoerceValue(f, req.Value); err != nil {
			return engine.QuerySpec{}, err
		}
	}
	if req.Low != nil {
		v, err := engine.CoerceValue(f, req.Low)
		if err != nil {
			return engine.QuerySpec{}, err
		}
		spec.Low = &v
	}
	if req.High != nil {
		v, err := engine.CoerceValue(f, req.High)
		if err != nil {
			return engine.QuerySpec{}, err
		}
		spec.High = &v
	}
	return spec, nil
}

func (req SearchRequest) info() QueryInfoDTO {
	return QueryInfoDTO{
		Field:     req.Field,
		Value:     req.Value,
		Threshold: req.Threshold,
		Low:       req.Low,
		High:      req.High,
		Pattern:   req.Pattern,
	}
}

func (req SortRequest) toSpec() engine.SortSpec {
	return engine.SortSpec{
		Field:     req.Field,
		Direction: engine.Direction(req.Direction),
		Algorithm: engine.SortAlgorithm(req.Algorithm),
		Stable:    req.Stable,
	}
}

func (req SortRequest) info() SortInfoDTO {
	direction := req.Direction
	if direction == "" {
		direction = string(engine.Ascending)
	}
	return SortInfoDTO{Field: req.Field, Direction: direction}
}

func (req AggregateRequest) toSpec() (engine.AggregateSpec, error) {
	spec := engine.AggregateSpec{
		Kind:      engine.AggregateKind(req.Operation),
		Field:     req.Field,
		Sample:    req.Sample,
		Buckets:   req.Buckets,
		DateField: req.DateField,
		Stat:      engine.RollupStat(req.Stat),
	}
	if req.Granularity != "" {
		g, err := engine.ParseGranularity(req.Granularity)
		if err != nil {
			return engine.AggregateSpec{}, err
		}
		spec.Granularity = g
	}
	return spec, nil
}

func toAggregateResponse(req AggregateRequest, res *engine.AggregateResult) AggregateResponse {
	out := AggregateResponse{
		Operation:       string(res.Kind),
		Field:           req.Field,
		ExecutionTimeMS: durationMS(res.Elapsed),
	}

	switch res.Kind {
	case engine.AggregateMode:
		for _, v := range res.Modes {
			out.Modes = append(out.Modes, valueJSON(v))
		}
	case engine.AggregateHistogram:
		for _, b := range res.Histogram.Buckets {
			out.Histogram = append(out.Histogram, HistogramBucketDTO{
				Low:   b.Low.InexactFloat64(),
				High:  b.High.InexactFloat64(),
				Count: b.Count,
			})
		}
	case engine.AggregateRollup:
		for _, b := range res.Series {
			out.Series = append(out.Series, RollupBucketDTO{
				Period: b.Label,
				Start:  b.Start.String(),
				Count:  b.Count,
				Value:  b.Value.InexactFloat64(),
			})
		}
	default:
		v := res.Scalar.InexactFloat64()
		out.Value = &v
	}
	return out
}

// valueJSON renders a typed value into its natural JSON form.
func valueJSON(v engine.Value) any {
	switch {
	case v.IsNull():
		return nil
	case v.Kind() == engine.KindNumber:
		return v.Number().InexactFloat64()
	default:
		return v.String()
	}
}

func toAlgorithmInfoDTOs(infos []engine.AlgorithmInfo) []AlgorithmInfoDTO {
	dtos := make([]AlgorithmInfoDTO, len(infos))
	for i, a := range infos {
		dtos[i] = AlgorithmInfoDTO{
			Name:        a.Name,
			Complexity:  a.Complexity,
			Space:       a.Space,
			Stable:      a.Stable,
			Description: a.Description,
		}
	}
	return dtos
}

func toStatisticsDTO(s *receipt.Statistics) StatisticsDTO {
	dto := StatisticsDTO{
		TotalReceipts:     s.TotalReceipts,
		TotalSpend:        s.TotalSpend.InexactFloat64(),
		AverageAmount:     s.AverageAmount.InexactFloat64(),
		MaxAmount:         s.MaxAmount.InexactFloat64(),
		AverageConfidence: s.AverageConfidence,
		TopVendors:        []VendorCountDTO{},
		CategoryBreakdown: []CategoryBreakdownDTO{},
		MonthlyTrends:     []MonthlyTrendDTO{},
	}
	for _, v := range s.TopVendors {
		dto.TopVendors = append(dto.TopVendors, VendorCountDTO{Vendor: v.Vendor, Count: v.Count})
	}
	for _, c := range s.Categories {
		dto.CategoryBreakdown = append(dto.CategoryBreakdown, CategoryBreakdownDTO{
			Category: c.Category,
			Count:    c.Count,
			Total:    c.Total.InexactFloat64(),
		})
	}
	for _, m := range s.MonthlyTrends {
		dto.MonthlyTrends = append(dto.MonthlyTrends, MonthlyTrendDTO{
			Month: m.Month,
			Count: m.Count,
			Total: m.Total.InexactFloat64(),
		})
	}
	return dto
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
