package cell

import "strings"

// Type is the declared column type mapped from the driver's type name.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeInteger
	TypeFloat
	TypeDecimal
	TypeText
	TypeBoolean
	TypeTimestamp
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeText:
		return "text"
	case TypeBoolean:
		return "boolean"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Column is one entry of a result schema. The schema is fixed once the
// cursor opens and is shared by every tile of the result.
type Column struct {
	Name     string
	Type     Type
	Nullable bool
}

// Schema is the ordered column list of one result set.
type Schema []Column

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// TypeFromDatabase maps a driver DatabaseTypeName to a declared Type.
// Covers the names pgx and duckdb report; anything unrecognized is text.
func TypeFromDatabase(name string) Type {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INT", "INT2", "INT4", "INT8", "BIGINT", "SMALLINT", "INTEGER", "TINYINT", "HUGEINT", "UINTEGER", "UBIGINT", "USMALLINT", "UTINYINT", "SERIAL", "BIGSERIAL":
		return TypeInteger
	case "FLOAT4", "FLOAT8", "FLOAT", "DOUBLE", "REAL", "DOUBLE PRECISION":
		return TypeFloat
	case "NUMERIC", "DECIMAL", "MONEY":
		return TypeDecimal
	case "BOOL", "BOOLEAN":
		return TypeBoolean
	case "DATE", "TIME", "TIMETZ", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP_NS", "TIMESTAMP_MS", "TIMESTAMP_S", "DATETIME":
		return TypeTimestamp
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NAME", "UUID", "JSON", "JSONB":
		return TypeText
	default:
		return TypeText
	}
}
