package export

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/observability"
	"github.com/frostbench/frostbench/internal/selection"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// Parquet writes the selection as a parquet file. Decimal cells are written
// as strings to stay lossless; errored cells carry their marker text.
func (e *Exporter) Parquet(ctx context.Context, store *tilestore.Store, sel *selection.Model, w io.Writer) (int64, error) {
	sel = orFullResult(sel)
	ingested, cols, err := resolveBounds(store, sel)
	if err != nil {
		return 0, err
	}
	schema := store.Schema()

	group := parquet.Group{}
	for _, col := range cols {
		group[schema[col].Name] = parquetNode(schema[col].Type)
	}
	fileSchema := parquet.NewSchema("result", group)
	writer := parquet.NewGenericWriter[map[string]any](w, fileSchema)

	var written int64
	batch := make([]map[string]any, 0, 1024)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := writer.Write(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for row := range sel.RowIter(ingested) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		values, err := store.GetRow(ctx, row)
		if err != nil {
			return written, fmt.Errorf("export row %d: %w", row, err)
		}
		record := make(map[string]any, len(cols))
		for _, col := range cols {
			record[schema[col].Name] = parquetValue(values[col], schema[col].Type)
		}
		batch = append(batch, record)
		written++
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	if err := writer.Close(); err != nil {
		return written, fmt.Errorf("close parquet writer: %w", err)
	}
	observability.ObserveExportedRows(written)
	return written, nil
}

func parquetNode(t cell.Type) parquet.Node {
	switch t {
	case cell.TypeInteger:
		return parquet.Optional(parquet.Int(64))
	case cell.TypeFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case cell.TypeBoolean:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	case cell.TypeTimestamp:
		return parquet.Optional(parquet.Timestamp(parquet.Microsecond))
	default:
		return parquet.Optional(parquet.String())
	}
}

func parquetValue(v cell.Value, t cell.Type) any {
	if v.IsNull() {
		return nil
	}
	if v.IsError() {
		if t == cell.TypeText || t == cell.TypeDecimal || t == cell.TypeUnknown {
			return v.Render()
		}
		return nil
	}
	switch t {
	case cell.TypeInteger:
		return v.Int()
	case cell.TypeFloat:
		return v.Float()
	case cell.TypeBoolean:
		return v.Bool()
	case cell.TypeTimestamp:
		return v.Time().UnixMicro()
	default:
		return v.Render()
	}
}
