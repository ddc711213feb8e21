package tilestore

import (
	"math"

	"github.com/axiomhq/hyperloglog"

	"github.com/frostbench/frostbench/internal/cell"
)

// ColumnStats is the running per-column accumulator carried by every tile.
// All updates are O(1) per observed cell. Distinct counts come from a
// HyperLogLog sketch (16-bit precision, roughly 0.4% relative error) and are
// approximate, never exact.
type ColumnStats struct {
	Count        int64
	Nulls        int64
	CellErrors   int64
	NumericCount int64
	Sum          float64
	SumSquares   float64
	Min          cell.Value
	Max          cell.Value

	sketch *hyperloglog.Sketch
}

func NewColumnStats() *ColumnStats {
	return &ColumnStats{
		Min:    cell.Null(),
		Max:    cell.Null(),
		sketch: hyperloglog.New16(),
	}
}

// Observe folds one cell into the accumulator. Nulls and errored cells are
// counted separately and never reach min/max/sum or the sketch.
func (s *ColumnStats) Observe(v cell.Value) {
	if v.IsNull() {
		s.Nulls++
		return
	}
	if v.IsError() {
		s.CellErrors++
		return
	}
	s.Count++
	if f, ok := v.Numeric(); ok {
		s.NumericCount++
		s.Sum += f
		s.SumSquares += f * f
	}
	if s.Count == 1 {
		s.Min = v
		s.Max = v
	} else {
		if cell.Compare(v, s.Min) < 0 {
			s.Min = v
		}
		if cell.Compare(v, s.Max) > 0 {
			s.Max = v
		}
	}
	s.sketch.Insert(v.DistinctKey())
}

// Merge folds other into s. Merging is associative, so partial accumulators
// from tile reuse and boundary scans can combine in any grouping.
func (s *ColumnStats) Merge(other *ColumnStats) error {
	if other == nil {
		return nil
	}
	if other.Count > 0 {
		if s.Count == 0 {
			s.Min = other.Min
			s.Max = other.Max
		} else {
			if cell.Compare(other.Min, s.Min) < 0 {
				s.Min = other.Min
			}
			if cell.Compare(other.Max, s.Max) > 0 {
				s.Max = other.Max
			}
		}
	}
	s.Count += other.Count
	s.Nulls += other.Nulls
	s.CellErrors += other.CellErrors
	s.NumericCount += other.NumericCount
	s.Sum += other.Sum
	s.SumSquares += other.SumSquares
	return s.sketch.Merge(other.sketch)
}

// ApproxDistinct estimates the number of distinct non-null values observed.
func (s *ColumnStats) ApproxDistinct() uint64 {
	return s.sketch.Estimate()
}

// Mean returns the arithmetic mean of numeric cells.
func (s *ColumnStats) Mean() (float64, bool) {
	if s.NumericCount == 0 {
		return 0, false
	}
	return s.Sum / float64(s.NumericCount), true
}

// StdDev returns the population standard deviation of numeric cells, derived
// from sum and sum-of-squares.
func (s *ColumnStats) StdDev() (float64, bool) {
	if s.NumericCount == 0 {
		return 0, false
	}
	n := float64(s.NumericCount)
	mean := s.Sum / n
	variance := s.SumSquares/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), true
}
