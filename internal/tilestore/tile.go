package tilestore

import (
	"sync/atomic"

	"github.com/frostbench/frostbench/internal/cell"
)

// Tile is a fixed-capacity block of contiguous result rows plus per-column
// accumulators. Exactly one producer appends; sealing publishes the tile as
// immutable. Readers of an unsealed tile see a monotonically growing prefix:
// the producer writes rows[n] before storing n+1 into the atomic length.
type Tile struct {
	start    int64
	capacity int
	columns  int

	rows   [][]cell.Value
	length atomic.Int64
	sealed atomic.Bool

	stats []*ColumnStats
	bytes atomic.Int64
}

func NewTile(start int64, capacity, columns int) *Tile {
	stats := make([]*ColumnStats, columns)
	for i := range stats {
		stats[i] = NewColumnStats()
	}
	return &Tile{
		start:    start,
		capacity: capacity,
		columns:  columns,
		rows:     make([][]cell.Value, capacity),
		stats:    stats,
	}
}

func (t *Tile) Start() int64 { return t.start }
func (t *Tile) Len() int64   { return t.length.Load() }
func (t *Tile) End() int64   { return t.start + t.length.Load() }
func (t *Tile) Sealed() bool { return t.sealed.Load() }
func (t *Tile) Full() bool   { return int(t.length.Load()) >= t.capacity }

// Bytes is the estimated resident size of the appended rows.
func (t *Tile) Bytes() int64 { return t.bytes.Load() }

// Append adds one row and folds it into the accumulators. Producer-only;
// must not be called after Seal.
func (t *Tile) Append(row []cell.Value) {
	n := t.length.Load()
	t.rows[n] = row
	var rowBytes int64
	for i, v := range row {
		if i < t.columns {
			t.stats[i].Observe(v)
		}
		rowBytes += v.EstimateBytes()
	}
	t.bytes.Add(rowBytes)
	t.length.Store(n + 1)
}

// Seal marks the tile immutable. Acts as the publication barrier for the
// accumulators: Stats may only be read after Sealed reports true.
func (t *Tile) Seal() {
	t.sealed.Store(true)
}

// Row returns the row at absolute index, or false when the index is outside
// the published prefix.
func (t *Tile) Row(index int64) ([]cell.Value, bool) {
	offset := index - t.start
	if offset < 0 || offset >= t.length.Load() {
		return nil, false
	}
	return t.rows[offset], true
}

// Stats returns the accumulator for one column of a sealed tile.
func (t *Tile) Stats(column int) (*ColumnStats, bool) {
	if !t.sealed.Load() || column < 0 || column >= t.columns {
		return nil, false
	}
	return t.stats[column], true
}
