package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/observability"
	"github.com/frostbench/frostbench/internal/selection"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// ColumnSummary is the merged aggregate of one selected column. Distinct is
// a HyperLogLog estimate, not an exact cardinality.
type ColumnSummary struct {
	Column       string
	Count        int64
	Nulls        int64
	CellErrors   int64
	NumericCount int64
	Sum          float64
	Mean         float64
	StdDev       float64
	HasNumeric   bool
	Min          cell.Value
	Max          cell.Value
	Distinct     uint64
}

// Engine computes selection aggregates against a tile store. Row spans that
// exactly cover a resident sealed tile reuse its precomputed accumulators;
// boundary spans and unsealed tiles are scanned row by row. Results reflect
// the rows ingested at call time and the call is repeatable as ingestion
// continues.
type Engine struct {
	Logger *slog.Logger
}

// Compute aggregates the selection per column. Safe to run as a cancellable
// background task; it blocks only its own goroutine when an evicted tile
// must be re-fetched.
func (e *Engine) Compute(ctx context.Context, store *tilestore.Store, sel *selection.Model) ([]ColumnSummary, error) {
	start := time.Now()
	defer func() { observability.ObserveStatsCompute(time.Since(start)) }()

	schema := store.Schema()
	known, _ := store.RowCount()
	spans := sel.RowRanges(known)
	cols := sel.Columns(int64(len(schema)))
	if len(spans) == 0 || len(cols) == 0 {
		return nil, nil
	}

	acc := make([]*tilestore.ColumnStats, len(cols))
	for i := range acc {
		acc[i] = tilestore.NewColumnStats()
	}

	tiles := store.Ranges()
	for _, span := range spans {
		if err := e.computeSpan(ctx, store, tiles, span, cols, acc); err != nil {
			return nil, err
		}
	}

	out := make([]ColumnSummary, len(cols))
	for i, col := range cols {
		s := acc[i]
		summary := ColumnSummary{
			Column:       schema[col].Name,
			Count:        s.Count,
			Nulls:        s.Nulls,
			CellErrors:   s.CellErrors,
			NumericCount: s.NumericCount,
			Sum:          s.Sum,
			Min:          s.Min,
			Max:          s.Max,
			Distinct:     s.ApproxDistinct(),
		}
		if mean, ok := s.Mean(); ok {
			summary.HasNumeric = true
			summary.Mean = mean
			summary.StdDev, _ = s.StdDev()
		}
		out[i] = summary
	}
	return out, nil
}

// computeSpan walks one merged row span tile by tile.
func (e *Engine) computeSpan(ctx context.Context, store *tilestore.Store, tiles [][2]int64, span [2]int64, cols []int64, acc []*tilestore.ColumnStats) error {
	for _, tileRange := range tiles {
		tileStart, tileEnd := tileRange[0], tileRange[0]+tileRange[1]-1
		if tileEnd < span[0] || tileStart > span[1] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lo := max(span[0], tileStart)
		hi := min(span[1], tileEnd)

		if lo == tileStart && hi == tileEnd {
			if tile, ok := store.ResidentTileFor(tileStart); ok && tile.Sealed() {
				merged := false
				for i, col := range cols {
					if ts, ok := tile.Stats(int(col)); ok {
						if err := acc[i].Merge(ts); err != nil {
							return fmt.Errorf("merge tile accumulator at row %d: %w", tileStart, err)
						}
						merged = true
					}
				}
				if merged {
					continue
				}
			}
		}

		if err := e.scanRange(ctx, store, lo, hi-lo+1, cols, acc); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scanRange(ctx context.Context, store *tilestore.Store, start, count int64, cols []int64, acc []*tilestore.ColumnStats) error {
	const chunk = 8192
	for offset := int64(0); offset < count; offset += chunk {
		n := min(chunk, count-offset)
		rows, err := store.GetRange(ctx, start+offset, n)
		if err != nil {
			return fmt.Errorf("scan rows [%d,%d): %w", start+offset, start+offset+n, err)
		}
		for _, row := range rows {
			for i, col := range cols {
				if col < int64(len(row)) {
					acc[i].Observe(row[col])
				}
			}
		}
	}
	return nil
}
