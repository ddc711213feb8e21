package cell

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the closed set of value kinds a result cell can hold.
// Null and Error are first-class kinds, never coerced into another kind.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindText
	KindBool
	KindTimestamp
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Value is a single decoded result cell. The zero value is SQL NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	d    decimal.Decimal
	t    time.Time
}

func Null() Value                 { return Value{kind: KindNull} }
func Int(v int64) Value           { return Value{kind: KindInt, i: v} }
func Float(v float64) Value       { return Value{kind: KindFloat, f: v} }
func Dec(v decimal.Decimal) Value { return Value{kind: KindDecimal, d: v} }
func Text(v string) Value         { return Value{kind: KindText, s: v} }
func Bool(v bool) Value           { return Value{kind: KindBool, b: v} }
func Timestamp(v time.Time) Value { return Value{kind: KindTimestamp, t: v.UTC()} }

// Errored marks a cell whose driver value could not be decoded. The message
// is kept for display; the cell is excluded from numeric aggregates.
func Errored(msg string) Value { return Value{kind: KindError, s: msg} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsError() bool { return v.kind == KindError }

func (v Value) Int() int64               { return v.i }
func (v Value) Float() float64           { return v.f }
func (v Value) Decimal() decimal.Decimal { return v.d }
func (v Value) Text() string             { return v.s }
func (v Value) Bool() bool               { return v.b }
func (v Value) Time() time.Time          { return v.t }
func (v Value) ErrorMessage() string     { return v.s }

// Numeric reports the cell as a float64 when it carries a numeric kind.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindDecimal:
		f, _ := v.d.Float64()
		return f, true
	default:
		return 0, false
	}
}

// Render formats the cell for display and export. NULL renders as the empty
// string; the caller is responsible for distinguishing it from empty text.
func (v Value) Render() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		return v.d.String()
	case KindText:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case KindError:
		return "#ERR:" + v.s
	default:
		return ""
	}
}

// DistinctKey is a stable byte form fed to the cardinality sketch. The kind
// prefix keeps Int(1) and Text("1") apart.
func (v Value) DistinctKey() []byte {
	return []byte(v.kind.String() + "\x00" + v.Render())
}

// Compare orders two cells of comparable kinds. Null sorts before everything,
// errors after everything; mixed numeric kinds compare as float64; any other
// kind mismatch falls back to rendered text.
func Compare(a, b Value) int {
	if a.kind == KindNull || b.kind == KindNull {
		return boolPairCompare(a.kind != KindNull, b.kind != KindNull)
	}
	if a.kind == KindError || b.kind == KindError {
		return boolPairCompare(a.kind == KindError, b.kind == KindError)
	}
	if af, aok := a.Numeric(); aok {
		if bf, bok := b.Numeric(); bok {
			if a.kind == KindDecimal && b.kind == KindDecimal {
				return a.d.Cmp(b.d)
			}
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if a.kind == b.kind {
		switch a.kind {
		case KindText:
			return strings.Compare(a.s, b.s)
		case KindBool:
			return boolPairCompare(a.b, b.b)
		case KindTimestamp:
			return a.t.Compare(b.t)
		}
	}
	return strings.Compare(a.Render(), b.Render())
}

func boolPairCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// EstimateBytes approximates the resident size of the cell for the tile
// memory budget. Header cost is charged per cell regardless of kind.
func (v Value) EstimateBytes() int64 {
	const header = 64
	switch v.kind {
	case KindText, KindError:
		return header + int64(len(v.s))
	case KindDecimal:
		return header + 32
	default:
		return header
	}
}
