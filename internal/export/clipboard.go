package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/frostbench/frostbench/internal/selection"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// ClipboardWriter writes text to the host clipboard. Tests substitute a
// recording stub.
type ClipboardWriter interface {
	WriteAll(text string) error
}

type hostClipboard struct{}

func (hostClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// HostClipboard returns the real clipboard handle.
func HostClipboard() ClipboardWriter { return hostClipboard{} }

// RenderSelection serializes a selection as tab-separated text with a header
// line, the way it lands on the clipboard. Nulls render empty; a single-cell
// selection yields the bare value with no header.
func RenderSelection(ctx context.Context, store *tilestore.Store, sel *selection.Model) (string, error) {
	sel = orFullResult(sel)
	ingested, cols, err := resolveBounds(store, sel)
	if err != nil {
		return "", err
	}
	schema := store.Schema()

	var lines []string
	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = schema[col].Name
	}
	lines = append(lines, strings.Join(header, "\t"))

	cells := 0
	var lastValue string
	for row := range sel.RowIter(ingested) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		values, err := store.GetRow(ctx, row)
		if err != nil {
			return "", fmt.Errorf("copy row %d: %w", row, err)
		}
		fields := make([]string, len(cols))
		for i, col := range cols {
			fields[i] = values[col].Render()
			lastValue = fields[i]
			cells++
		}
		lines = append(lines, strings.Join(fields, "\t"))
	}

	if cells == 1 {
		return lastValue, nil
	}
	return strings.Join(lines, "\n"), nil
}

// Copy places the serialized selection on the host clipboard.
func Copy(ctx context.Context, store *tilestore.Store, sel *selection.Model, dst ClipboardWriter) error {
	if dst == nil {
		dst = HostClipboard()
	}
	text, err := RenderSelection(ctx, store, sel)
	if err != nil {
		return err
	}
	return dst.WriteAll(text)
}
