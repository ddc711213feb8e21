package tilestore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/frostbench/frostbench/internal/cell"
)

func testSchema() cell.Schema {
	return cell.Schema{
		{Name: "id", Type: cell.TypeInteger},
		{Name: "label", Type: cell.TypeText},
	}
}

func testRow(i int64) []cell.Value {
	return []cell.Value{cell.Int(i), cell.Text(fmt.Sprintf("row-%d", i))}
}

func feed(t *testing.T, p *Producer, from, to int64) {
	t.Helper()
	for i := from; i < to; i++ {
		if err := p.Append(testRow(i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
}

// stubRefetcher regenerates the deterministic rows of testRow.
type stubRefetcher struct {
	calls int
	fail  error
}

func (r *stubRefetcher) FetchRange(_ context.Context, start, count int64) ([][]cell.Value, error) {
	r.calls++
	if r.fail != nil {
		return nil, r.fail
	}
	rows := make([][]cell.Value, 0, count)
	for i := start; i < start+count; i++ {
		rows = append(rows, testRow(i))
	}
	return rows, nil
}

func TestGetRowBeforeAnyIngestion(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 4}, nil)
	if _, err := s.GetRow(context.Background(), 0); !errors.Is(err, ErrRowUnavailable) {
		t.Fatalf("GetRow() error = %v, want ErrRowUnavailable", err)
	}
}

func TestProducerRotatesAtCapacity(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 3}, nil)
	p := s.Producer()
	feed(t, p, 0, 7)

	ranges := s.Ranges()
	if len(ranges) != 3 {
		t.Fatalf("Ranges() = %v, want 3 tiles", ranges)
	}
	if ranges[0] != [2]int64{0, 3} || ranges[1] != [2]int64{3, 3} || ranges[2] != [2]int64{6, 1} {
		t.Fatalf("Ranges() = %v", ranges)
	}

	p.Finish()
	rows, final := s.RowCount()
	if rows != 7 || !final {
		t.Fatalf("RowCount() = %d/%v, want 7/true", rows, final)
	}
}

func TestGetRangeAcrossTileBoundary(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 3}, nil)
	p := s.Producer()
	feed(t, p, 0, 7)
	p.Finish()

	rows, err := s.GetRange(context.Background(), 2, 3)
	if err != nil {
		t.Fatalf("GetRange() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	for i, row := range rows {
		if row[0].Int() != int64(2+i) {
			t.Fatalf("rows[%d][0] = %d, want %d", i, row[0].Int(), 2+i)
		}
	}
}

func TestGetRangePartialWhileStreaming(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 10}, nil)
	p := s.Producer()
	feed(t, p, 0, 4)

	rows, err := s.GetRange(context.Background(), 2, 10)
	if !errors.Is(err, ErrRowUnavailable) {
		t.Fatalf("GetRange() error = %v, want ErrRowUnavailable", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want the ingested prefix", len(rows))
	}
}

func TestReadsSeeGrowingPrefixBeforeSeal(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 100}, nil)
	p := s.Producer()
	feed(t, p, 0, 5)

	row, err := s.GetRow(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row[0].Int() != 4 {
		t.Fatalf("row[0] = %d", row[0].Int())
	}
}

func TestInvalidRange(t *testing.T) {
	s := New(testSchema(), Config{}, nil)
	if _, err := s.GetRange(context.Background(), -1, 2); err == nil {
		t.Fatal("expected error for negative start")
	}
}

func TestEvictionPrefersFarFromViewport(t *testing.T) {
	// Rows are ~150 bytes each; a small budget forces eviction of all but
	// roughly one tile.
	s := New(testSchema(), Config{TileCapacity: 2, MemoryBudgetBytes: 700, RefetchEnabled: true}, &stubRefetcher{})
	p := s.Producer()
	s.SetViewport(0)
	feed(t, p, 0, 10)
	p.Finish()

	if s.ResidentBytes() > 700 {
		t.Fatalf("ResidentBytes() = %d, want <= budget", s.ResidentBytes())
	}
	if len(s.Ranges()) != 5 {
		t.Fatalf("Ranges() = %v; eviction must not drop directory entries", s.Ranges())
	}
}

func TestEvictedTileRefetchedOnDemand(t *testing.T) {
	refetch := &stubRefetcher{}
	s := New(testSchema(), Config{TileCapacity: 2, MemoryBudgetBytes: 700, RefetchEnabled: true}, refetch)
	p := s.Producer()
	s.SetViewport(9)
	feed(t, p, 0, 10)
	p.Finish()

	if _, ok := s.ResidentTileFor(0); ok {
		t.Fatal("tile 0 should have been evicted")
	}
	row, err := s.GetRow(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if row[0].Int() != 0 || row[1].Text() != "row-0" {
		t.Fatalf("row = %v", row)
	}
	if refetch.calls == 0 {
		t.Fatal("expected a re-fetch")
	}
}

func TestEvictedTileWithoutRefetcher(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 2, MemoryBudgetBytes: 700, RefetchEnabled: false}, nil)
	p := s.Producer()
	s.SetViewport(9)
	feed(t, p, 0, 10)
	p.Finish()

	if _, err := s.GetRow(context.Background(), 0); !errors.Is(err, ErrNotResident) {
		t.Fatalf("GetRow() error = %v, want ErrNotResident", err)
	}
}

func TestRefetchFailureSurfaces(t *testing.T) {
	boom := errors.New("warehouse gone")
	s := New(testSchema(), Config{TileCapacity: 2, MemoryBudgetBytes: 700, RefetchEnabled: true}, &stubRefetcher{fail: boom})
	p := s.Producer()
	s.SetViewport(9)
	feed(t, p, 0, 10)
	p.Finish()

	if _, err := s.GetRow(context.Background(), 0); !errors.Is(err, boom) {
		t.Fatalf("GetRow() error = %v, want wrapped %v", err, boom)
	}
}

func TestUnsealedTileNeverEvicted(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 1000, MemoryBudgetBytes: 700}, nil)
	p := s.Producer()
	feed(t, p, 0, 10)

	// over budget, but the only tile is still unsealed
	if _, ok := s.ResidentTileFor(5); !ok {
		t.Fatal("unsealed tile must stay resident")
	}
}

func TestOversizedRowRejected(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 4, MemoryBudgetBytes: 100}, nil)
	p := s.Producer()
	big := []cell.Value{cell.Int(0), cell.Text(string(make([]byte, 200)))}
	if err := p.Append(big); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Append() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestFinishOnTileBoundaryDropsEmptyTile(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 3}, nil)
	p := s.Producer()
	feed(t, p, 0, 6)
	p.Finish()

	ranges := s.Ranges()
	if len(ranges) != 2 {
		t.Fatalf("Ranges() = %v, want 2 tiles", ranges)
	}
}

func TestSealedTileStatsMatchRows(t *testing.T) {
	s := New(testSchema(), Config{TileCapacity: 4}, nil)
	p := s.Producer()
	feed(t, p, 0, 4)
	p.Finish()

	tile, ok := s.ResidentTileFor(0)
	if !ok {
		t.Fatal("tile not resident")
	}
	stats, ok := tile.Stats(0)
	if !ok {
		t.Fatal("Stats() not readable after seal")
	}
	if stats.Count != 4 || stats.Sum != 0+1+2+3 {
		t.Fatalf("Count/Sum = %d/%v", stats.Count, stats.Sum)
	}
	if stats.Min.Int() != 0 || stats.Max.Int() != 3 {
		t.Fatalf("Min/Max = %v/%v", stats.Min, stats.Max)
	}
}
