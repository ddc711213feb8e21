package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/session"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// stubCursor serves scripted batches and then either exhausts or fails.
type stubCursor struct {
	schema  cell.Schema
	batches [][][]any
	failErr error
	closed  bool
}

func (c *stubCursor) Schema() cell.Schema { return c.schema }

func (c *stubCursor) NextBatch(ctx context.Context, _ int) ([][]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if len(c.batches) == 0 {
		if c.failErr != nil {
			return nil, false, c.failErr
		}
		return nil, true, nil
	}
	batch := c.batches[0]
	c.batches = c.batches[1:]
	exhausted := len(c.batches) == 0 && c.failErr == nil
	return batch, exhausted, nil
}

func (c *stubCursor) Close() error {
	c.closed = true
	return nil
}

func intSchema() cell.Schema {
	return cell.Schema{{Name: "n", Type: cell.TypeInteger}}
}

func newStreamingTab(t *testing.T, schema cell.Schema) (*session.Tab, *tilestore.Store) {
	t.Helper()
	tab := session.New().NewTab("select 1")
	store := tilestore.New(schema, tilestore.Config{TileCapacity: 4}, nil)
	if err := tab.BeginStreaming(schema, store, func() {}); err != nil {
		t.Fatalf("BeginStreaming() error = %v", err)
	}
	return tab, store
}

func TestRunIngestsAllBatches(t *testing.T) {
	cursor := &stubCursor{
		schema: intSchema(),
		batches: [][][]any{
			{{int64(1)}, {int64(2)}},
			{{int64(3)}},
		},
	}
	tab, store := newStreamingTab(t, cursor.schema)

	f := &Fetcher{BatchRows: 2}
	f.Run(context.Background(), tab, cursor, store.Producer())

	if tab.State() != session.StateComplete {
		t.Fatalf("State() = %v", tab.State())
	}
	rows, final := store.RowCount()
	if rows != 3 || !final {
		t.Fatalf("RowCount() = %d/%v", rows, final)
	}
	if !cursor.closed {
		t.Fatal("cursor must be closed")
	}
	row, err := store.GetRow(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row[0].Int() != 3 {
		t.Fatalf("row = %v", row)
	}
}

func TestRunRecordsDecodeErrorsPerCell(t *testing.T) {
	cursor := &stubCursor{
		schema: intSchema(),
		batches: [][][]any{
			{{int64(1)}, {"not-a-number"}, {int64(3)}},
		},
	}
	tab, store := newStreamingTab(t, cursor.schema)

	f := &Fetcher{}
	f.Run(context.Background(), tab, cursor, store.Producer())

	if tab.State() != session.StateComplete {
		t.Fatalf("State() = %v; decode errors must not abort the stream", tab.State())
	}
	if tab.DecodeErrors() != 1 {
		t.Fatalf("DecodeErrors() = %d", tab.DecodeErrors())
	}
	row, err := store.GetRow(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if !row[0].IsError() {
		t.Fatalf("row[0] = %v, want errored cell", row[0])
	}
}

func TestRunCursorFailureFailsTab(t *testing.T) {
	boom := errors.New("connection reset")
	cursor := &stubCursor{
		schema:  intSchema(),
		batches: [][][]any{{{int64(1)}}},
		failErr: boom,
	}
	tab, store := newStreamingTab(t, cursor.schema)

	f := &Fetcher{}
	f.Run(context.Background(), tab, cursor, store.Producer())

	if tab.State() != session.StateFailed {
		t.Fatalf("State() = %v", tab.State())
	}
	if !errors.Is(tab.Err(), boom) {
		t.Fatalf("Err() = %v", tab.Err())
	}
	rows, final := store.RowCount()
	if rows != 1 || !final {
		t.Fatalf("RowCount() = %d/%v; partial rows stay readable", rows, final)
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cursor := &stubCursor{schema: intSchema(), batches: [][][]any{{{int64(1)}}}}
	tab, store := newStreamingTab(t, cursor.schema)

	f := &Fetcher{}
	f.Run(ctx, tab, cursor, store.Producer())

	if tab.State() != session.StateCancelled {
		t.Fatalf("State() = %v", tab.State())
	}
	if _, final := store.RowCount(); !final {
		t.Fatal("store must be finalized on cancellation")
	}
	select {
	case <-tab.Done():
	default:
		t.Fatal("Done() must be closed")
	}
}

func TestRunShortRawRowPadsWithNulls(t *testing.T) {
	schema := cell.Schema{
		{Name: "a", Type: cell.TypeInteger},
		{Name: "b", Type: cell.TypeText},
	}
	cursor := &stubCursor{schema: schema, batches: [][][]any{{{int64(1)}}}}
	tab, store := newStreamingTab(t, schema)

	f := &Fetcher{}
	f.Run(context.Background(), tab, cursor, store.Producer())

	row, err := store.GetRow(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if !row[1].IsNull() {
		t.Fatalf("row[1] = %v, want null", row[1])
	}
}
