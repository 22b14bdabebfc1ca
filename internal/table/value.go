package table

// value.go defines the cell type of a record table.
//
// Cells coming out of a spreadsheet export are dynamically typed: the same
// column may hold text, integers, decimals or nothing at all. Value keeps the
// kind next to the payload so later stages can coerce without re-parsing.

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the dynamic type stored in a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindFloat
	KindDate
	KindInvalidDate
)

// DateLayout is the canonical rendering of date cells.
const DateLayout = "2006-01-02"

// invalidDateText is how an unparseable date renders in text output.
const invalidDateText = "NaT"

// Value is a single cell value. The zero Value is Missing.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
}

// Missing returns the missing-cell marker.
func Missing() Value { return Value{} }

// String wraps a text cell.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int wraps an integer cell.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a decimal cell.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Date wraps a calendar date. The time-of-day is kept as given.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// InvalidDate returns the explicit marker for a date that could not be parsed.
func InvalidDate() Value { return Value{kind: KindInvalidDate} }

// MissingTokens are the placeholder texts spreadsheet exports use for an
// empty cell. Infer classifies them as Missing.
var MissingTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "n/a": true,
	"NULL": true, "null": true,
	"NaN": true, "nan": true,
	"None": true,
}

// Infer classifies a raw cell read from a delimited file.
// Blank cells and MissingTokens are Missing; integer and decimal literals
// become numbers; everything else is kept as text. Tokens are matched
// case-sensitively after trimming surrounding whitespace.
func Infer(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || MissingTokens[trimmed] {
		return Missing()
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Float(f)
	}
	return String(raw)
}

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsZero reports whether v is a literal numeric zero.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindInt:
		return v.i == 0
	case KindFloat:
		return v.f == 0
	}
	return false
}

// Text returns the payload of a string cell.
func (v Value) Text() (string, bool) {
	return v.s, v.kind == KindString
}

// IntValue returns the payload of an integer cell.
func (v Value) IntValue() (int64, bool) {
	return v.i, v.kind == KindInt
}

// FloatValue returns the payload of a decimal cell.
func (v Value) FloatValue() (float64, bool) {
	return v.f, v.kind == KindFloat
}

// Time returns the payload of a date cell.
func (v Value) Time() (time.Time, bool) {
	return v.t, v.kind == KindDate
}

// String renders v the way it would appear in a CSV export.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindInvalidDate:
		return invalidDateText
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDate:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// MarshalJSON encodes dates as ISO strings and missing or invalid cells as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindDate:
		return json.Marshal(v.t.Format(DateLayout))
	default:
		return []byte("null"), nil
	}
}
