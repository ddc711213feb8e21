package tilestore

import (
	"fmt"
	"math"
	"testing"

	"github.com/frostbench/frostbench/internal/cell"
)

func TestObserveSeparatesNullsAndErrors(t *testing.T) {
	s := NewColumnStats()
	s.Observe(cell.Int(1))
	s.Observe(cell.Null())
	s.Observe(cell.Errored("bad cell"))
	s.Observe(cell.Int(3))

	if s.Count != 2 || s.Nulls != 1 || s.CellErrors != 1 {
		t.Fatalf("Count/Nulls/CellErrors = %d/%d/%d", s.Count, s.Nulls, s.CellErrors)
	}
	if s.Sum != 4 {
		t.Fatalf("Sum = %v; nulls and errors must not contribute", s.Sum)
	}
}

func TestMinMaxIgnoreNulls(t *testing.T) {
	s := NewColumnStats()
	s.Observe(cell.Null())
	s.Observe(cell.Int(5))
	s.Observe(cell.Int(-2))
	s.Observe(cell.Null())

	if s.Min.Int() != -2 || s.Max.Int() != 5 {
		t.Fatalf("Min/Max = %v/%v", s.Min, s.Max)
	}
}

func TestNonNumericColumnHasNoAggregates(t *testing.T) {
	s := NewColumnStats()
	s.Observe(cell.Text("b"))
	s.Observe(cell.Text("a"))

	if s.NumericCount != 0 {
		t.Fatalf("NumericCount = %d", s.NumericCount)
	}
	if _, ok := s.Mean(); ok {
		t.Fatal("Mean() should not be available")
	}
	if s.Min.Text() != "a" || s.Max.Text() != "b" {
		t.Fatalf("Min/Max = %v/%v", s.Min, s.Max)
	}
}

func TestMergeMatchesSingleAccumulator(t *testing.T) {
	whole := NewColumnStats()
	left := NewColumnStats()
	right := NewColumnStats()
	for i := 0; i < 100; i++ {
		v := cell.Int(int64(i % 37))
		whole.Observe(v)
		if i < 50 {
			left.Observe(v)
		} else {
			right.Observe(v)
		}
	}
	if err := left.Merge(right); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if left.Count != whole.Count || left.Sum != whole.Sum || left.SumSquares != whole.SumSquares {
		t.Fatalf("merged = %+v, whole = %+v", left, whole)
	}
	if cell.Compare(left.Min, whole.Min) != 0 || cell.Compare(left.Max, whole.Max) != 0 {
		t.Fatalf("merged min/max = %v/%v", left.Min, left.Max)
	}
	if left.ApproxDistinct() != whole.ApproxDistinct() {
		t.Fatalf("ApproxDistinct merged = %d, whole = %d", left.ApproxDistinct(), whole.ApproxDistinct())
	}
}

func TestMergeIntoEmpty(t *testing.T) {
	dst := NewColumnStats()
	src := NewColumnStats()
	src.Observe(cell.Int(9))
	if err := dst.Merge(src); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if dst.Count != 1 || dst.Min.Int() != 9 || dst.Max.Int() != 9 {
		t.Fatalf("dst = %+v", dst)
	}
}

func TestApproxDistinctWithinTolerance(t *testing.T) {
	s := NewColumnStats()
	const distinct = 5000
	for i := 0; i < distinct; i++ {
		s.Observe(cell.Text(fmt.Sprintf("value-%d", i)))
		s.Observe(cell.Text(fmt.Sprintf("value-%d", i))) // duplicates must not inflate
	}
	got := float64(s.ApproxDistinct())
	if math.Abs(got-distinct)/distinct > 0.05 {
		t.Fatalf("ApproxDistinct() = %v, want within 5%% of %d", got, distinct)
	}
}

func TestMeanAndStdDev(t *testing.T) {
	s := NewColumnStats()
	for _, v := range []int64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Observe(cell.Int(v))
	}
	mean, ok := s.Mean()
	if !ok || mean != 5 {
		t.Fatalf("Mean() = %v/%v", mean, ok)
	}
	sd, ok := s.StdDev()
	if !ok || math.Abs(sd-2) > 1e-9 {
		t.Fatalf("StdDev() = %v/%v", sd, ok)
	}
}
