package export

import (
	"strings"

	"github.com/frostbench/frostbench/internal/cell"
)

// CSVOptions controls the CSV wire format. The zero value means comma
// delimiter, LF line endings, header row included.
type CSVOptions struct {
	Delimiter byte
	CRLF      bool
	NoHeader  bool
}

func (o CSVOptions) withDefaults() CSVOptions {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	return o
}

func (o CSVOptions) lineEnding() string {
	if o.CRLF {
		return "\r\n"
	}
	return "\n"
}

// EncodeField renders one cell as a CSV field. NULL becomes an empty
// unquoted field; empty text is quoted so a re-import can tell the two
// apart. Any field containing the delimiter, a quote, or a newline is quoted
// with internal quotes doubled.
func EncodeField(v cell.Value, delimiter byte) string {
	if v.IsNull() {
		return ""
	}
	field := v.Render()
	if field == "" {
		return `""`
	}
	return escapeField(field, delimiter)
}

func escapeField(field string, delimiter byte) string {
	if !strings.ContainsAny(field, string(delimiter)+"\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func encodeHeaderField(name string, delimiter byte) string {
	if name == "" {
		return `""`
	}
	return escapeField(name, delimiter)
}

func joinRow(fields []string, delimiter byte) string {
	return strings.Join(fields, string(delimiter))
}
