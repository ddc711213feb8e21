package selection

import (
	"iter"
	"sort"
	"sync"
)

// Open marks an unbounded rectangle edge. Row mode is a rect with open
// column bounds, column mode one with open row bounds; both share the
// rectangular code path downstream.
const Open int64 = -1

// Rect is one selected rectangle in row-index/column-index space, inclusive
// on both ends. It describes coordinates only and holds no row data.
type Rect struct {
	RowStart int64
	RowEnd   int64
	ColStart int64
	ColEnd   int64
}

// Rows creates a full-width rect covering [start, end].
func Rows(start, end int64) Rect {
	return Rect{RowStart: start, RowEnd: end, ColStart: Open, ColEnd: Open}
}

// Cols creates a full-height rect covering columns [start, end].
func Cols(start, end int64) Rect {
	return Rect{RowStart: Open, RowEnd: Open, ColStart: start, ColEnd: end}
}

// Cell creates a single-cell rect.
func Cell(row, col int64) Rect {
	return Rect{RowStart: row, RowEnd: row, ColStart: col, ColEnd: col}
}

func (r Rect) normalized() Rect {
	if r.RowStart != Open && r.RowEnd != Open && r.RowStart > r.RowEnd {
		r.RowStart, r.RowEnd = r.RowEnd, r.RowStart
	}
	if r.ColStart != Open && r.ColEnd != Open && r.ColStart > r.ColEnd {
		r.ColStart, r.ColEnd = r.ColEnd, r.ColStart
	}
	return r
}

func (r Rect) containsRow(row int64) bool {
	if r.RowStart == Open {
		return true
	}
	return row >= r.RowStart && row <= r.RowEnd
}

func (r Rect) containsCol(col int64) bool {
	if r.ColStart == Open {
		return true
	}
	return col >= r.ColStart && col <= r.ColEnd
}

// rowBounds clamps the rect's row span to [0, totalRows).
func (r Rect) rowBounds(totalRows int64) (int64, int64, bool) {
	start, end := r.RowStart, r.RowEnd
	if start == Open {
		start, end = 0, totalRows-1
	}
	if end >= totalRows {
		end = totalRows - 1
	}
	if start < 0 || totalRows == 0 || start > end {
		return 0, 0, false
	}
	return start, end, true
}

// Model is a multi-region selection over one result tab. Overlapping rects
// are allowed; queries deduplicate at iteration time rather than merging
// eagerly.
type Model struct {
	mu    sync.Mutex
	rects []Rect
}

func New() *Model {
	return &Model{}
}

func (m *Model) Add(r Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rects = append(m.rects, r.normalized())
}

func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rects = nil
}

func (m *Model) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rects) == 0
}

// Rects returns a snapshot of the regions.
func (m *Model) Rects() []Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Rect, len(m.rects))
	copy(out, m.rects)
	return out
}

// Contains reports whether (row, col) falls in any region. Used per cell at
// render time.
func (m *Model) Contains(row, col int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rects {
		if r.containsRow(row) && r.containsCol(col) {
			return true
		}
	}
	return false
}

// Columns resolves the selected column set against a schema width. Open
// column bounds expand to every column.
func (m *Model) Columns(totalCols int64) []int64 {
	seen := map[int64]bool{}
	for _, r := range m.Rects() {
		start, end := r.ColStart, r.ColEnd
		if start == Open {
			start, end = 0, totalCols-1
		}
		if end >= totalCols {
			end = totalCols - 1
		}
		for c := start; c >= 0 && c <= end; c++ {
			seen[c] = true
		}
	}
	cols := make([]int64, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return cols
}

// RowRanges resolves the regions to sorted, merged, non-overlapping
// [start, end] row spans clamped to totalRows.
func (m *Model) RowRanges(totalRows int64) [][2]int64 {
	spans := make([][2]int64, 0)
	for _, r := range m.Rects() {
		start, end, ok := r.rowBounds(totalRows)
		if !ok {
			continue
		}
		spans = append(spans, [2]int64{start, end})
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	merged := spans[:1]
	for _, span := range spans[1:] {
		last := &merged[len(merged)-1]
		if span[0] <= last[1]+1 {
			if span[1] > last[1] {
				last[1] = span[1]
			}
			continue
		}
		merged = append(merged, span)
	}
	return merged
}

// RowIter yields the selected row indices in ascending order, deduplicated,
// lazily.
func (m *Model) RowIter(totalRows int64) iter.Seq[int64] {
	ranges := m.RowRanges(totalRows)
	return func(yield func(int64) bool) {
		for _, span := range ranges {
			for row := span[0]; row <= span[1]; row++ {
				if !yield(row) {
					return
				}
			}
		}
	}
}
