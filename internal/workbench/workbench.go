package workbench

import (
	"context"
	"log/slog"

	"github.com/frostbench/frostbench/internal/fetch"
	"github.com/frostbench/frostbench/internal/session"
	"github.com/frostbench/frostbench/internal/tilestore"
	"github.com/frostbench/frostbench/internal/warehouse"
)

// Workbench executes statements against one warehouse engine into one
// session. Each execution gets its own tab, tile store, and fetcher
// goroutine; failures stay local to their tab.
type Workbench struct {
	Engine    *warehouse.Engine
	Session   *session.Session
	Tiles     tilestore.Config
	BatchRows int
	Logger    *slog.Logger
}

// Execute submits one statement. The returned tab is Streaming on success
// with a fetcher draining the cursor in the background, or already Failed
// when the cursor could not be opened. Cancel the tab to stop ingestion.
func (w *Workbench) Execute(ctx context.Context, query string) (*session.Tab, error) {
	tab := w.Session.NewTab(query)

	cursor, err := w.Engine.OpenCursor(ctx, query)
	if err != nil {
		_ = tab.Fail(err)
		return tab, err
	}

	schema := cursor.Schema()
	var refetch tilestore.Refetcher
	if w.Tiles.RefetchEnabled {
		refetch = w.Engine.Refetcher(query, schema)
	}
	store := tilestore.New(schema, w.Tiles, refetch)

	fetchCtx, cancel := context.WithCancel(ctx)
	if err := tab.BeginStreaming(schema, store, cancel); err != nil {
		cancel()
		_ = cursor.Close()
		return tab, err
	}

	fetcher := &fetch.Fetcher{BatchRows: w.BatchRows, Logger: w.Logger}
	go fetcher.Run(fetchCtx, tab, cursor, store.Producer())

	if w.Logger != nil {
		w.Logger.DebugContext(ctx, "statement streaming", slog.Int("columns", len(schema)))
	}
	return tab, nil
}

// Wait blocks until the tab is terminal or ctx expires.
func (w *Workbench) Wait(ctx context.Context, tab *session.Tab) (session.State, error) {
	select {
	case <-tab.Done():
		return tab.State(), nil
	case <-ctx.Done():
		return tab.State(), ctx.Err()
	}
}
