package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface representing a single SQL cell value.
// Only Null, Int, Float, String, and Bool implement this.
type Value interface {
	value() // Sealed - only these types implement it

	// SQL renders the value as a SQL literal.
	SQL() string
}

// Kind identifies the concrete type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Null represents SQL NULL.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) value() {}

func (Null) SQL() string { return "NULL" }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Int represents an integer value.
type Int int64

func (Int) value() {}

func (i Int) SQL() string { return strconv.FormatInt(int64(i), 10) }

// Float represents a floating-point value.
type Float float64

func (Float) value() {}

func (f Float) SQL() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// String represents a text value. Construct with NewString to get NFC
// normalization.
type String string

func (String) value() {}

func (s String) SQL() string {
	return "'" + strings.ReplaceAll(string(s), "'", "''") + "'"
}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

func (b Bool) SQL() string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// NewString creates a String value in Unicode normal form C.
func NewString(s string) String {
	return String(norm.NFC.String(s))
}

// KindOf returns the Kind of v. A nil Value is reported as KindNull.
func KindOf(v Value) Kind {
	switch v.(type) {
	case Int:
		return KindInt
	case Float:
		return KindFloat
	case String:
		return KindString
	case Bool:
		return KindBool
	default:
		return KindNull
	}
}

// IsNull reports whether v is SQL NULL (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// AsFloat returns v as a float64 when it has a numeric reading.
// Booleans read as 0 and 1; text reads as a number only when it is a finite
// decimal literal (no NaN, Inf or hex forms).
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	case Bool:
		if val {
			return 1, true
		}
		return 0, true
	case String:
		s := strings.TrimSpace(string(val))
		if strings.ContainsAny(s, "xX_") {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Text returns the textual form used when two values are compared as strings.
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return val.SQL()
	case Float:
		return val.SQL()
	case Bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// FromSQL converts a value produced by database/sql scanning into a Value.
func FromSQL(v any) (Value, error) {
	if v == nil {
		return Null{}, nil
	}

	switch val := v.(type) {
	case int64:
		return Int(val), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(float64(val)), nil
	case string:
		return NewString(val), nil
	case []byte:
		return NewString(string(val)), nil
	case bool:
		return Bool(val), nil
	case time.Time:
		return NewString(val.UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported SQL type: %T", v)
	}
}

// Of converts a plain Go value into a Value. It accepts the same inputs as
// FromSQL plus Value itself, and is meant for literals in tests and fixtures.
func Of(v any) Value {
	if val, ok := v.(Value); ok {
		return val
	}
	out, err := FromSQL(v)
	if err != nil {
		return NewString(fmt.Sprint(v))
	}
	return out
}

// Native converts a Value back into a database/sql driver value.
func Native(v Value) any {
	switch val := v.(type) {
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

// ParseNumber parses a SQL numeric literal. Literals without a fraction or
// exponent become Int; everything else becomes Float.
func ParseNumber(lit string) (Value, error) {
	if !strings.ContainsAny(lit, ".eE") {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric literal %q: %w", lit, err)
	}
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("numeric literal out of range: %q", lit)
	}
	return Float(f), nil
}
