package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/observability"
	"github.com/frostbench/frostbench/internal/selection"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// JSON writes the selection as an array of column-keyed objects. Null cells
// become JSON null; errored cells keep their marker text.
func (e *Exporter) JSON(ctx context.Context, store *tilestore.Store, sel *selection.Model, w io.Writer) (int64, error) {
	sel = orFullResult(sel)
	ingested, cols, err := resolveBounds(store, sel)
	if err != nil {
		return 0, err
	}
	schema := store.Schema()

	records := make([]map[string]any, 0)
	for row := range sel.RowIter(ingested) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		values, err := store.GetRow(ctx, row)
		if err != nil {
			return 0, fmt.Errorf("export row %d: %w", row, err)
		}
		record := make(map[string]any, len(cols))
		for _, col := range cols {
			record[schema[col].Name] = jsonValue(values[col])
		}
		records = append(records, record)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return 0, err
	}
	observability.ObserveExportedRows(int64(len(records)))
	return int64(len(records)), nil
}

func jsonValue(v cell.Value) any {
	switch v.Kind() {
	case cell.KindNull:
		return nil
	case cell.KindInt:
		return v.Int()
	case cell.KindFloat:
		return v.Float()
	case cell.KindBool:
		return v.Bool()
	default:
		return v.Render()
	}
}

// Table writes the selection as an aligned text table with a separator rule,
// rendering nulls as NULL.
func (e *Exporter) Table(ctx context.Context, store *tilestore.Store, sel *selection.Model, w io.Writer) (int64, error) {
	sel = orFullResult(sel)
	ingested, cols, err := resolveBounds(store, sel)
	if err != nil {
		return 0, err
	}
	schema := store.Schema()

	headers := make([]string, len(cols))
	widths := make([]int, len(cols))
	for i, col := range cols {
		headers[i] = schema[col].Name
		widths[i] = len(headers[i])
	}

	var rendered [][]string
	for row := range sel.RowIter(ingested) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		values, err := store.GetRow(ctx, row)
		if err != nil {
			return 0, fmt.Errorf("export row %d: %w", row, err)
		}
		fields := make([]string, len(cols))
		for i, col := range cols {
			fields[i] = tableField(values[col])
			if len(fields[i]) > widths[i] {
				widths[i] = len(fields[i])
			}
		}
		rendered = append(rendered, fields)
	}

	var b strings.Builder
	writeTableLine(&b, headers, widths)
	for i, width := range widths {
		if i > 0 {
			b.WriteString("-+-")
		}
		b.WriteString(strings.Repeat("-", width))
	}
	b.WriteByte('\n')
	for _, fields := range rendered {
		writeTableLine(&b, fields, widths)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return 0, err
	}
	observability.ObserveExportedRows(int64(len(rendered)))
	return int64(len(rendered)), nil
}

func tableField(v cell.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	return v.Render()
}

func writeTableLine(b *strings.Builder, fields []string, widths []int) {
	for i, field := range fields {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(field)
		if pad := widths[i] - len(field); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	b.WriteByte('\n')
}
