package cell

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decode converts a raw driver value into a typed cell per the declared
// column type. nil is always NULL. A failure here is a per-cell condition:
// callers record Errored(...) against the cell and keep streaming.
func Decode(raw any, col Column) (Value, error) {
	if raw == nil {
		return Null(), nil
	}

	switch typed := raw.(type) {
	case int64:
		return decodeInt(typed, col), nil
	case int32:
		return decodeInt(int64(typed), col), nil
	case int16:
		return decodeInt(int64(typed), col), nil
	case int8:
		return decodeInt(int64(typed), col), nil
	case int:
		return decodeInt(int64(typed), col), nil
	case uint64:
		if typed > 1<<63-1 {
			return Dec(decimal.NewFromUint64(typed)), nil
		}
		return decodeInt(int64(typed), col), nil
	case float64:
		return decodeFloat(typed, col), nil
	case float32:
		return decodeFloat(float64(typed), col), nil
	case bool:
		return Bool(typed), nil
	case time.Time:
		return Timestamp(typed), nil
	case decimal.Decimal:
		return Dec(typed), nil
	case string:
		return decodeString(typed, col)
	case []byte:
		return decodeString(string(typed), col)
	default:
		return Value{}, fmt.Errorf("unsupported driver value %T for column %q", raw, col.Name)
	}
}

func decodeInt(v int64, col Column) Value {
	switch col.Type {
	case TypeFloat:
		return Float(float64(v))
	case TypeDecimal:
		return Dec(decimal.NewFromInt(v))
	case TypeBoolean:
		return Bool(v != 0)
	default:
		return Int(v)
	}
}

func decodeFloat(v float64, col Column) Value {
	if col.Type == TypeDecimal {
		return Dec(decimal.NewFromFloat(v))
	}
	return Float(v)
}

// decodeString handles drivers that deliver typed columns as text ([]byte
// scans, CSV re-imports). The declared type decides the parse target.
func decodeString(v string, col Column) (Value, error) {
	switch col.Type {
	case TypeInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as integer for column %q: %w", v, col.Name, err)
		}
		return Int(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as float for column %q: %w", v, col.Name, err)
		}
		return Float(f), nil
	case TypeDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as decimal for column %q: %w", v, col.Name, err)
		}
		return Dec(d), nil
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as boolean for column %q: %w", v, col.Name, err)
		}
		return Bool(b), nil
	case TypeTimestamp:
		t, err := parseTimestamp(strings.TrimSpace(v))
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as timestamp for column %q: %w", v, col.Name, err)
		}
		return Timestamp(t), nil
	default:
		return Text(v), nil
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(v string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
