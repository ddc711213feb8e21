package selection

import (
	"reflect"
	"testing"
)

func TestContainsRectBounds(t *testing.T) {
	m := New()
	m.Add(Rect{RowStart: 2, RowEnd: 4, ColStart: 1, ColEnd: 2})

	if !m.Contains(3, 1) {
		t.Fatal("interior cell must be selected")
	}
	if !m.Contains(2, 2) || !m.Contains(4, 1) {
		t.Fatal("bounds are inclusive")
	}
	if m.Contains(5, 1) || m.Contains(3, 0) {
		t.Fatal("outside cells must not be selected")
	}
}

func TestAddNormalizesInvertedDrag(t *testing.T) {
	m := New()
	m.Add(Rect{RowStart: 7, RowEnd: 3, ColStart: 2, ColEnd: 0})
	r := m.Rects()[0]
	if r.RowStart != 3 || r.RowEnd != 7 || r.ColStart != 0 || r.ColEnd != 2 {
		t.Fatalf("normalized = %+v", r)
	}
}

func TestRowModeSelectsEveryColumn(t *testing.T) {
	m := New()
	m.Add(Rows(1, 2))
	if !m.Contains(1, 0) || !m.Contains(2, 99) {
		t.Fatal("row mode must cover all columns")
	}
	if m.Contains(3, 0) {
		t.Fatal("row 3 not selected")
	}
	if got := m.Columns(4); !reflect.DeepEqual(got, []int64{0, 1, 2, 3}) {
		t.Fatalf("Columns() = %v", got)
	}
}

func TestColumnModeSelectsEveryRow(t *testing.T) {
	m := New()
	m.Add(Cols(1, 1))
	if !m.Contains(0, 1) || !m.Contains(1_000_000, 1) {
		t.Fatal("column mode must cover all rows")
	}
	if got := m.RowRanges(5); !reflect.DeepEqual(got, [][2]int64{{0, 4}}) {
		t.Fatalf("RowRanges() = %v", got)
	}
}

func TestColumnsDedupesOverlap(t *testing.T) {
	m := New()
	m.Add(Cols(0, 1))
	m.Add(Cols(1, 2))
	if got := m.Columns(10); !reflect.DeepEqual(got, []int64{0, 1, 2}) {
		t.Fatalf("Columns() = %v", got)
	}
}

func TestRowRangesMergeOverlapAndAdjacency(t *testing.T) {
	m := New()
	m.Add(Rows(5, 9))
	m.Add(Rows(0, 2))
	m.Add(Rows(3, 4)) // adjacent to both
	if got := m.RowRanges(100); !reflect.DeepEqual(got, [][2]int64{{0, 9}}) {
		t.Fatalf("RowRanges() = %v", got)
	}

	m.Clear()
	m.Add(Rows(0, 1))
	m.Add(Rows(5, 6))
	if got := m.RowRanges(100); !reflect.DeepEqual(got, [][2]int64{{0, 1}, {5, 6}}) {
		t.Fatalf("RowRanges() = %v", got)
	}
}

func TestRowRangesClampToKnownRows(t *testing.T) {
	m := New()
	m.Add(Rows(3, 50))
	if got := m.RowRanges(10); !reflect.DeepEqual(got, [][2]int64{{3, 9}}) {
		t.Fatalf("RowRanges() = %v", got)
	}
	if got := m.RowRanges(0); got != nil {
		t.Fatalf("RowRanges(0) = %v", got)
	}
	m.Clear()
	m.Add(Rows(20, 30))
	if got := m.RowRanges(10); got != nil {
		t.Fatalf("RowRanges() = %v, span beyond known rows must vanish", got)
	}
}

func TestRowIterDeduplicates(t *testing.T) {
	m := New()
	m.Add(Rows(0, 3))
	m.Add(Rows(2, 5))

	var rows []int64
	for row := range m.RowIter(100) {
		rows = append(rows, row)
	}
	if !reflect.DeepEqual(rows, []int64{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("RowIter = %v", rows)
	}
}

func TestRowIterEarlyStop(t *testing.T) {
	m := New()
	m.Add(Rows(0, 1_000_000))
	count := 0
	for range m.RowIter(1 << 40) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("count = %d", count)
	}
}

func TestEmptyAndClear(t *testing.T) {
	m := New()
	if !m.Empty() {
		t.Fatal("new model must be empty")
	}
	m.Add(Cell(1, 1))
	if m.Empty() {
		t.Fatal("model with a rect is not empty")
	}
	m.Clear()
	if !m.Empty() {
		t.Fatal("Clear() must empty the model")
	}
}
