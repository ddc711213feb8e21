package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/observability"
	"github.com/frostbench/frostbench/internal/session"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// Cursor is the remote streaming cursor the fetcher drains: forward-only,
// schema fixed at open time. Implementations must honor context
// cancellation inside NextBatch.
type Cursor interface {
	Schema() cell.Schema
	NextBatch(ctx context.Context, maxRows int) (rows [][]any, exhausted bool, err error)
	Close() error
}

// Fetcher pulls driver row batches from a cursor, decodes them into typed
// cells, and appends them through a store's producer handle. One fetcher
// runs per streaming tab, on its own goroutine.
type Fetcher struct {
	BatchRows int
	Logger    *slog.Logger
}

// Run drains the cursor into the tab's store until exhaustion, cancellation,
// or a cursor-level failure, and drives the tab to its terminal state. The
// in-flight tile is sealed on every exit path. Per-cell decode failures are
// recorded as errored cells and never abort the stream.
func (f *Fetcher) Run(ctx context.Context, tab *session.Tab, cursor Cursor, producer *tilestore.Producer) {
	defer func() { _ = cursor.Close() }()

	batchRows := f.BatchRows
	if batchRows <= 0 {
		batchRows = 2000
	}
	schema := cursor.Schema()

	for {
		if ctx.Err() != nil {
			producer.Finish()
			tab.MarkCancelled()
			return
		}

		start := time.Now()
		raw, exhausted, err := cursor.NextBatch(ctx, batchRows)
		if err != nil {
			producer.Finish()
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				tab.MarkCancelled()
				return
			}
			if f.Logger != nil {
				f.Logger.ErrorContext(ctx, "cursor batch failed",
					slog.String("query", tab.Query),
					slog.Any("error", err),
				)
			}
			_ = tab.Fail(err)
			return
		}

		decodeErrors := 0
		for _, rawRow := range raw {
			row := make([]cell.Value, len(schema))
			for i := range schema {
				var rawValue any
				if i < len(rawRow) {
					rawValue = rawRow[i]
				}
				value, decodeErr := cell.Decode(rawValue, schema[i])
				if decodeErr != nil {
					value = cell.Errored(decodeErr.Error())
					decodeErrors++
				}
				row[i] = value
			}
			if err := producer.Append(row); err != nil {
				producer.Finish()
				_ = tab.Fail(err)
				return
			}
		}
		if decodeErrors > 0 {
			tab.AddDecodeErrors(int64(decodeErrors))
		}
		observability.ObserveFetchBatch(len(raw), decodeErrors, time.Since(start))

		if exhausted {
			producer.Finish()
			_ = tab.Complete()
			return
		}
	}
}
