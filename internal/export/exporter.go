package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/frostbench/frostbench/internal/observability"
	"github.com/frostbench/frostbench/internal/selection"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// Exporter streams a selection's rows to an output sink in ascending row
// order. Evicted tiles are materialized on demand, blocking the export task
// only. Exporting while a tab is still streaming covers the rows ingested at
// call time; a selection that names a row beyond that fails with
// tilestore.ErrRowUnavailable rather than waiting.
type Exporter struct {
	Logger *slog.Logger
}

// CSV writes the selection as CSV and reports the number of data rows
// written. An empty selection exports the full result.
func (e *Exporter) CSV(ctx context.Context, store *tilestore.Store, sel *selection.Model, w io.Writer, opts CSVOptions) (int64, error) {
	opts = opts.withDefaults()
	sel = orFullResult(sel)

	ingested, cols, err := resolveBounds(store, sel)
	if err != nil {
		return 0, err
	}

	schema := store.Schema()
	buffered := bufio.NewWriter(w)
	ending := opts.lineEnding()

	if !opts.NoHeader {
		fields := make([]string, len(cols))
		for i, col := range cols {
			fields[i] = encodeHeaderField(schema[col].Name, opts.Delimiter)
		}
		if _, err := buffered.WriteString(joinRow(fields, opts.Delimiter) + ending); err != nil {
			return 0, err
		}
	}

	var written int64
	for row := range sel.RowIter(ingested) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		values, err := store.GetRow(ctx, row)
		if err != nil {
			return written, fmt.Errorf("export row %d: %w", row, err)
		}
		fields := make([]string, len(cols))
		for i, col := range cols {
			fields[i] = EncodeField(values[col], opts.Delimiter)
		}
		if _, err := buffered.WriteString(joinRow(fields, opts.Delimiter) + ending); err != nil {
			return written, err
		}
		written++
	}

	if err := buffered.Flush(); err != nil {
		return written, err
	}
	observability.ObserveExportedRows(written)
	return written, nil
}

// resolveBounds validates the selection against the rows ingested at call
// time and resolves the selected column set.
func resolveBounds(store *tilestore.Store, sel *selection.Model) (int64, []int64, error) {
	ingested, _ := store.RowCount()
	for _, r := range sel.Rects() {
		if r.RowEnd != selection.Open && r.RowEnd >= ingested {
			return 0, nil, fmt.Errorf("selection row %d: %w", r.RowEnd, tilestore.ErrRowUnavailable)
		}
	}
	cols := sel.Columns(int64(len(store.Schema())))
	if len(cols) == 0 {
		return 0, nil, fmt.Errorf("selection covers no columns")
	}
	return ingested, cols, nil
}

// orFullResult substitutes an all-rows/all-columns selection for a nil or
// empty one, so batch exports can pass nil.
func orFullResult(sel *selection.Model) *selection.Model {
	if sel != nil && !sel.Empty() {
		return sel
	}
	full := selection.New()
	full.Add(selection.Rect{
		RowStart: selection.Open, RowEnd: selection.Open,
		ColStart: selection.Open, ColEnd: selection.Open,
	})
	return full
}
