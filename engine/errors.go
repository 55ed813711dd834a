/*
errors.go - Centralized error types for the analytics engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  A malformed request always fails with a typed error; the engine never
  degrades to a silent empty result.

ERROR CATEGORIES:
  1. Specification errors - Unknown fields, unknown algorithms, bad specs
  2. Data errors - Aggregations undefined on too-small collections
  3. Pattern errors - Regular expressions that fail to compile

USAGE:
  Callers branch on sentinels:

    if errors.Is(err, engine.ErrFieldNotFound) {
        // 400, not 500
    }

SEE ALSO:
  - spec.go: Validation producing these errors
  - search.go, sort.go, aggregate.go: Operations returning them
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFieldNotFound is returned when a spec names a field the schema
	// does not declare.
	ErrFieldNotFound = errors.New("field not found")

	// ErrPattern is returned when a pattern search receives a regular
	// expression that does not compile.
	ErrPattern = errors.New("invalid pattern")

	// ErrEmptyCollection is returned by aggregations that have no meaning
	// on zero records (mode, histogram).
	ErrEmptyCollection = errors.New("empty collection")

	// ErrInsufficientData is returned when a statistic needs more records
	// than the collection holds (mean of nothing, sample variance of one).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnsupportedAlgorithm is returned when a spec names an algorithm
	// the engine does not implement.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrInvalidSpec is returned for malformed specifications: inverted
	// ranges, wrong field kinds, out-of-range thresholds.
	ErrInvalidSpec = errors.New("invalid specification")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldNotFoundError names the unknown field.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q is not part of the record schema", e.Field)
}

func (e *FieldNotFoundError) Unwrap() error { return ErrFieldNotFound }

// PatternError carries the rejected expression and the compile failure.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q does not compile: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return ErrPattern }

// EmptyCollectionError names the operation that has no meaning on an
// empty collection.
type EmptyCollectionError struct {
	Op string
}

func (e *EmptyCollectionError) Error() string {
	return fmt.Sprintf("%s is undefined on an empty collection", e.Op)
}

func (e *EmptyCollectionError) Unwrap() error { return ErrEmptyCollection }

// InsufficientDataError reports how many records a statistic needs versus
// how many it got.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s needs at least %d value(s), got %d", e.Op, e.Need, e.Got)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// UnsupportedAlgorithmError names the unknown algorithm and its family.
type UnsupportedAlgorithmError struct {
	Family string // "search", "sort", "aggregate"
	Name   string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unknown %s algorithm %q", e.Family, e.Name)
}

func (e *UnsupportedAlgorithmError) Unwrap() error { return ErrUnsupportedAlgorithm }

// InvalidSpecError explains what is wrong with a specification.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid specification: %s", e.Reason)
}

func (e *InvalidSpecError) Unwrap() error { return ErrInvalidSpec }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine defect.
func IsClientError(err error) bool {
	return errors.Is(err, ErrFieldNotFound) ||
		errors.Is(err, ErrPattern) ||
		errors.Is(err, ErrEmptyCollection) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrUnsupportedAlgorithm) ||
		errors.Is(err, ErrInvalidSpec)
}
