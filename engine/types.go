/*
Package engine provides the core analytics engine for receipt records.

PURPOSE:
  This package contains domain-agnostic search, sort, and aggregation
  algorithms over collections of typed records. Whether the records are
  scanned receipts, invoices, or expense rows, the same engine answers
  "find", "order", and "summarize" questions with an explicit choice of
  algorithm and an explicit cost model.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: The type of a field (text, number, date)
  - Field/Schema: Field-type metadata, declared once per collection
  - Value: A tagged value with an explicit null state
  - Record: An identified row of field values

DESIGN PRINCIPLES:
  1. Immutability: Engines never reorder or rewrite caller slices
  2. Precision: Numeric values use decimal.Decimal, never float64 math
  3. Explicitness: Comparators and equality derive from the declared Kind,
     not from runtime reflection on whatever happens to be stored
  4. No hidden state: Nothing is cached between calls

USAGE:
  schema := engine.NewSchema(
      engine.Field{Name: "vendor", Kind: engine.KindText},
      engine.Field{Name: "amount", Kind: engine.KindNumber},
  )
  rec := engine.Record{ID: "r-1", Values: map[string]engine.Value{
      "vendor": engine.Text("Walmart"),
      "amount": engine.NumberFromFloat(42.50),
  }}

SEE ALSO:
  - spec.go: Query, sort, and aggregate specifications
  - search.go: Search strategies (linear, binary, hash, fuzzy, range, pattern)
  - sort.go: Sort strategies (quicksort, mergesort, timsort, heapsort)
  - aggregate.go: Statistical aggregation (sum, mean, histogram, rollup, ...)
*/
package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// KIND - Field type, drives comparison and equality
// =============================================================================

type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindDate   Kind = "date"
)

// =============================================================================
// FIELD / SCHEMA - Declared field-type metadata
// =============================================================================

type Field struct {
	Name string
	Kind Kind
}

// Schema is the set of queryable fields for a collection. Comparators are
// derived from the Kind once, at declaration, so every engine agrees on
// how a field orders and equates.
type Schema struct {
	fields []Field
	byName map[string]Field
}

func NewSchema(fields ...Field) Schema {
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	return Schema{fields: fields, byName: byName}
}

// Field resolves a field name. Unknown names fail with FieldNotFoundError;
// engines surface that instead of returning silent empty results.
func (s Schema) Field(name string) (Field, error) {
	f, ok := s.byName[name]
	if !ok {
		return Field{}, &FieldNotFoundError{Field: name}
	}
	return f, nil
}

func (s Schema) Fields() []Field { return s.fields }

// =============================================================================
// VALUE - Tagged value with explicit null
// =============================================================================

// Value holds one field value. The zero Value is null with no kind; a
// typed null (absent date, missing amount) carries its kind so engines
// still know how the field would compare.
type Value struct {
	kind  Kind
	text  string
	num   decimal.Decimal
	date  TimePoint
	valid bool
}

func Text(s string) Value                 { return Value{kind: KindText, text: s, valid: true} }
func Number(d decimal.Decimal) Value      { return Value{kind: KindNumber, num: d, valid: true} }
func NumberFromFloat(f float64) Value     { return Number(decimal.NewFromFloat(f)) }
func NumberFromInt(n int64) Value         { return Number(decimal.NewFromInt(n)) }
func Date(p TimePoint) Value              { return Value{kind: KindDate, date: p, valid: true} }
func Null(kind Kind) Value                { return Value{kind: kind} }

func (v Value) Kind() Kind               { return v.kind }
func (v Value) IsNull() bool             { return !v.valid }
func (v Value) Text() string             { return v.text }
func (v Value) Number() decimal.Decimal  { return v.num }
func (v Value) Date() TimePoint          { return v.date }

// Key returns the canonical equality key for hash lookups. Text keys are
// folded to lower case, numeric keys use the trimmed decimal form so
// 42.50 and 42.5 collide, date keys use the calendar-date form.
func (v Value) Key() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindText:
		return strings.ToLower(v.text)
	case KindNumber:
		return v.num.String()
	case KindDate:
		return v.date.String()
	}
	return ""
}

// Equal reports value equality under the field's kind: text equality is
// case-insensitive, numeric equality ignores representation (1.5 == 1.50).
// A null never equals anything, including another null.
func (v Value) Equal(o Value) bool {
	if !v.valid || !o.valid || v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return strings.EqualFold(v.text, o.text)
	case KindNumber:
		return v.num.Equal(o.num)
	case KindDate:
		return v.date.Equal(o.date)
	}
	return false
}

// Compare orders two non-null values of the same kind. Null ordering is a
// policy of the caller (sorts place nulls last regardless of direction),
// so nulls here only get a deterministic fallback: null < non-null.
func (v Value) Compare(o Value) int {
	if !v.valid || !o.valid {
		switch {
		case v.valid == o.valid:
			return 0
		case !v.valid:
			return -1
		default:
			return 1
		}
	}
	switch v.kind {
	case KindText:
		return strings.Compare(strings.ToLower(v.text), strings.ToLower(o.text))
	case KindNumber:
		return v.num.Cmp(o.num)
	case KindDate:
		return v.date.Compare(o.date)
	}
	return 0
}

// String renders the value for display. Nulls render empty.
func (v Value) String() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num.String()
	case KindDate:
		return v.date.String()
	}
	return ""
}

// =============================================================================
// RECORD - Identified row of field values
// =============================================================================

type Record struct {
	ID     string
	Values map[string]Value
}

// Value returns the record's value for a field. A field the record never
// set is a typed null, which searches skip and sorts place last.
func (r Record) Value(f Field) Value {
	v, ok := r.Values[f.Name]
	if !ok {
		return Null(f.Kind)
	}
	return v
}
