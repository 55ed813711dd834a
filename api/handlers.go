/*
handlers.go - HTTP API handlers for the receipt analytics engine

PURPOSE:
  Exposes the receipt collection and the query engines via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Receipts:
    GET    /api/v1/receipts            List all receipts
    POST   /api/v1/receipts            Store a receipt
    GET    /api/v1/receipts/{id}       Get receipt details
    PATCH  /api/v1/receipts/{id}       Partially update a receipt
    DELETE /api/v1/receipts/{id}       Delete a receipt

  Queries:
    POST   /api/v1/search              Search by field (linear/binary/hash/fuzzy/range/pattern)
    POST   /api/v1/sort                Sort by field (quicksort/mergesort/timsort/heapsort)
    POST   /api/v1/aggregate           Aggregate a field (sum/mean/.../histogram/rollup)
    GET    /api/v1/algorithms          Introspect available algorithms

  Analytics:
    GET    /api/v1/statistics          Collection-wide summary
    GET    /api/v1/export/csv          Download the collection as CSV
    GET    /api/v1/export/json         Download the collection as JSON

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: receipt domain logic and engine access
  - Log: structured logger for server-side failures

REQUEST FLOW:
  1. Parse and validate HTTP request (bind.go)
  2. Convert DTO to engine spec (dto.go)
  3. Call domain logic
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid specs, bad field names
  - 404: Receipt not found
  - 409: Duplicate receipt ID
  - 500: Internal errors (logged; details stay server-side)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/receipt-engine/engine"
	"github.com/warp/receipt-engine/export"
	"github.com/warp/receipt-engine/receipt"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *receipt.Service
	Log     zerolog.Logger
}

// NewHandler creates a new handler around the receipt service.
func NewHandler(svc *receipt.Service, log zerolog.Logger) *Handler {
	return &Handler{Service: svc, Log: log.With().Str("component", "api").Logger()}
}

// =============================================================================
// RECEIPT HANDLERS
// =============================================================================

// ListReceipts returns the whole collection in insertion order.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.Service.List(r.Context())
	if err != nil {
		h.domainError(w, "Failed to list receipts", err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTOs(receipts))
}

// CreateReceipt stores a new receipt.
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[CreateReceiptRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := req.toReceipt()
	if err != nil {
		h.domainError(w, "Invalid receipt", err)
		return
	}

	created, err := h.Service.Create(r.Context(), rec)
	if err != nil {
		h.domainError(w, "Failed to create receipt", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptDTO(created))
}

// GetReceipt returns a single receipt.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.domainError(w, "Failed to get receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(rec))
}

// UpdateReceipt applies a partial update to a receipt.
func (h *Handler) UpdateReceipt(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[UpdateReceiptRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		h.domainError(w, "Failed to update receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(updated))
}

// DeleteReceipt removes a receipt.
func (h *Handler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.domainError(w, "Failed to delete receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// QUERY HANDLERS
// =============================================================================

// SearchReceipts runs a search over the collection.
func (h *Handler) SearchReceipts(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[SearchRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	spec, err := req.toSpec(h.Service.Schema())
	if err != nil {
		h.domainError(w, "Invalid search query", err)
		return
	}

	outcome, err := h.Service.Search(r.Context(), spec)
	if err != nil {
		h.domainError(w, "Search failed", err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results:         toReceiptDTOs(outcome.Receipts),
		Count:           outcome.Count,
		AlgorithmUsed:   string(outcome.Algorithm),
		ExecutionTimeMS: durationMS(outcome.Elapsed),
		QueryInfo:       req.info(),
	})
}

// SortReceipts returns the collection ordered by one field.
func (h *Handler) SortReceipts(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[SortRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	outcome, err := h.Service.Sort(r.Context(), req.toSpec())
	if err != nil {
		h.domainError(w, "Sort failed", err)
		return
	}

	writeJSON(w, http.StatusOK, SortResponse{
		Results:         toReceiptDTOs(outcome.Receipts),
		Count:           len(outcome.Receipts),
		AlgorithmUsed:   string(outcome.Algorithm),
		ExecutionTimeMS: durationMS(outcome.Elapsed),
		SortInfo:        req.info(),
	})
}

// AggregateReceipts computes one statistic over the collection.
func (h *Handler) AggregateReceipts(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[AggregateRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	spec, err := req.toSpec()
	if err != nil {
		h.domainError(w, "Invalid aggregation", err)
		return
	}

	res, err := h.Service.Aggregate(r.Context(), spec)
	if err != nil {
		h.domainError(w, "Aggregation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toAggregateResponse(req, res))
}

// ListAlgorithms describes every available algorithm by family.
func (h *Handler) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	caps := engine.Catalog()
	writeJSON(w, http.StatusOK, AlgorithmsResponse{
		Search:    toAlgorithmInfoDTOs(caps.Search),
		Sort:      toAlgorithmInfoDTOs(caps.Sort),
		Aggregate: toAlgorithmInfoDTOs(caps.Aggregate),
	})
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// GetStatistics returns the collection-wide summary.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Statistics(r.Context())
	if err != nil {
		h.domainError(w, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsDTO(stats))
}

// ExportCSV streams the collection as a CSV attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.Service.List(r.Context())
	if err != nil {
		h.domainError(w, "Failed to export receipts", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.csv"`)
	if err := export.WriteCSV(w, receipts); err != nil {
		h.Log.Error().Err(err).Msg("csv export failed mid-stream")
	}
}

// ExportJSON streams the collection as a JSON attachment.
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.Service.List(r.Context())
	if err != nil {
		h.domainError(w, "Failed to export receipts", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.json"`)
	if err := export.WriteJSON(w, receipts); err != nil {
		h.Log.Error().Err(err).Msg("json export failed mid-stream")
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCode(err)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// domainError maps engine and store errors onto HTTP statuses. Client
// mistakes come back as 400/404/409 with the typed error's message;
// anything else is logged and answered with a bare 500.
func (h *Handler) domainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, receipt.ErrReceiptNotFound):
		writeError(w, http.StatusNotFound, "Receipt not found", err)
	case errors.Is(err, receipt.ErrDuplicateID):
		writeError(w, http.StatusConflict, "Receipt ID already exists", err)
	case errors.Is(err, receipt.ErrInvalidReceipt):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

// errorCode names the error class for machine consumption.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrFieldNotFound):
		return "field_not_found"
	case errors.Is(err, engine.ErrPattern):
		return "invalid_pattern"
	case errors.Is(err, engine.ErrUnsupportedAlgorithm):
		return "unsupported_algorithm"
	case errors.Is(err, engine.ErrInvalidSpec):
		return "invalid_spec"
	case errors.Is(err, engine.ErrEmptyCollection):
		return "empty_collection"
	case errors.Is(err, engine.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, receipt.ErrInvalidReceipt):
		return "invalid_receipt"
	case errors.Is(err, receipt.ErrReceiptNotFound):
		return "not_found"
	case errors.Is(err, receipt.ErrDuplicateID):
		return "duplicate_id"
	default:
		return ""
	}
}
