package tilestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/observability"
)

var (
	// ErrRowUnavailable reports an index at or beyond the ingested row count.
	ErrRowUnavailable = errors.New("row not yet ingested")
	// ErrNotResident reports an evicted tile that cannot be re-fetched.
	ErrNotResident = errors.New("tile evicted and re-fetch disabled")
	// ErrCapacityExceeded reports a memory budget that cannot be honored
	// even after evicting every sealed tile.
	ErrCapacityExceeded = errors.New("tile memory budget exceeded")
)

// Refetcher re-materializes a row range of the originating statement. The
// warehouse implementation re-executes the query with a LIMIT/OFFSET wrapper,
// which is only stable for deterministic, side-effect-free statements.
type Refetcher interface {
	FetchRange(ctx context.Context, start, count int64) ([][]cell.Value, error)
}

type Config struct {
	TileCapacity      int
	MemoryBudgetBytes int64
	RefetchEnabled    bool
}

func (c Config) withDefaults() Config {
	if c.TileCapacity <= 0 {
		c.TileCapacity = 50_000
	}
	if c.MemoryBudgetBytes <= 0 {
		c.MemoryBudgetBytes = 256 << 20
	}
	return c
}

// entry is one slot of the tile directory. tile is nil while evicted; count
// is fixed at seal time so evicted ranges stay addressable.
type entry struct {
	start int64
	count int64
	tile  *Tile

	lastAccess int64
	bytes      int64

	fetching sync.Mutex
}

func (e *entry) end() int64 {
	if e.tile != nil && !e.tile.Sealed() {
		return e.tile.End()
	}
	return e.start + e.count
}

// Store holds the ordered tile collection of one result set. Tiles never
// overlap; the union of their ranges covers [0, rows_ingested) with no gaps,
// though any sealed tile may be non-resident at a given moment.
type Store struct {
	cfg    Config
	schema cell.Schema

	mu            sync.Mutex
	entries       []*entry
	residentBytes int64

	rowsIngested atomic.Int64
	final        atomic.Bool
	viewportRow  atomic.Int64
	accessTick   atomic.Int64

	refetch Refetcher

	producerMu sync.Mutex
	current    *entry
}

func New(schema cell.Schema, cfg Config, refetch Refetcher) *Store {
	return &Store{
		cfg:     cfg.withDefaults(),
		schema:  schema,
		refetch: refetch,
	}
}

func (s *Store) Schema() cell.Schema { return s.schema }

// RowCount returns the best-known row count and whether it is final. A
// non-final count is advisory and grows as ingestion continues.
func (s *Store) RowCount() (int64, bool) {
	return s.rowsIngested.Load(), s.final.Load()
}

// SetViewport records the row the UI is currently rendering. Eviction
// prefers victims far from this row.
func (s *Store) SetViewport(row int64) {
	s.viewportRow.Store(row)
}

// GetRow resolves one ingested row, re-fetching its tile if evicted. Blocks
// only the calling goroutine.
func (s *Store) GetRow(ctx context.Context, index int64) ([]cell.Value, error) {
	rows, err := s.GetRange(ctx, index, 1)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// GetRange resolves up to count rows starting at start. When a row in the
// range is not yet ingested, the rows before it are returned together with
// ErrRowUnavailable so callers can render the partial range and retry.
func (s *Store) GetRange(ctx context.Context, start, count int64) ([][]cell.Value, error) {
	if start < 0 || count < 0 {
		return nil, fmt.Errorf("invalid range start=%d count=%d", start, count)
	}
	ingested := s.rowsIngested.Load()
	if start >= ingested {
		return nil, ErrRowUnavailable
	}
	end := start + count
	partial := false
	if end > ingested {
		end = ingested
		partial = true
	}

	rows := make([][]cell.Value, 0, end-start)
	for index := start; index < end; {
		tile, err := s.residentTile(ctx, index)
		if err != nil {
			if len(rows) > 0 {
				return rows, err
			}
			return nil, err
		}
		for ; index < end; index++ {
			row, ok := tile.Row(index)
			if !ok {
				break
			}
			rows = append(rows, row)
		}
	}
	if partial {
		return rows, ErrRowUnavailable
	}
	return rows, nil
}

// ResidentTileFor exposes the tile covering index when it is resident,
// without triggering a re-fetch. The statistics engine uses it to reuse
// sealed accumulators.
func (s *Store) ResidentTileFor(index int64) (*Tile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookupLocked(index)
	if e == nil || e.tile == nil {
		return nil, false
	}
	e.lastAccess = s.accessTick.Add(1)
	return e.tile, true
}

// Ranges reports the (start, count) pairs of the directory in order.
func (s *Store) Ranges() [][2]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][2]int64, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, [2]int64{e.start, e.end() - e.start})
	}
	return out
}

// ResidentBytes reports the estimated memory held by resident tiles.
func (s *Store) ResidentBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.residentBytes
}

func (s *Store) residentTile(ctx context.Context, index int64) (*Tile, error) {
	s.mu.Lock()
	e := s.lookupLocked(index)
	if e == nil {
		s.mu.Unlock()
		return nil, ErrRowUnavailable
	}
	e.lastAccess = s.accessTick.Add(1)
	tile := e.tile
	s.mu.Unlock()

	if tile != nil {
		return tile, nil
	}
	return s.materialize(ctx, e)
}

func (s *Store) lookupLocked(index int64) *entry {
	n := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].start > index
	})
	if n == 0 {
		return nil
	}
	e := s.entries[n-1]
	if index >= e.end() {
		return nil
	}
	return e
}

// materialize re-fetches an evicted tile. The per-entry mutex collapses
// concurrent readers of the same tile into one remote scan.
func (s *Store) materialize(ctx context.Context, e *entry) (*Tile, error) {
	if s.refetch == nil || !s.cfg.RefetchEnabled {
		return nil, ErrNotResident
	}

	e.fetching.Lock()
	defer e.fetching.Unlock()

	s.mu.Lock()
	if e.tile != nil {
		tile := e.tile
		s.mu.Unlock()
		return tile, nil
	}
	s.mu.Unlock()

	rows, err := s.refetch.FetchRange(ctx, e.start, e.count)
	if err != nil {
		return nil, fmt.Errorf("re-fetch tile at row %d: %w", e.start, err)
	}
	if int64(len(rows)) != e.count {
		return nil, fmt.Errorf("re-fetch tile at row %d: got %d rows, want %d", e.start, len(rows), e.count)
	}

	tile := NewTile(e.start, int(e.count), len(s.schema))
	for _, row := range rows {
		tile.Append(row)
	}
	tile.Seal()

	s.mu.Lock()
	e.tile = tile
	e.bytes = tile.Bytes()
	s.residentBytes += e.bytes
	s.mu.Unlock()

	observability.ObserveTileRefetched()
	s.EvictIfNeeded()
	return tile, nil
}

// EvictIfNeeded drops least-recently-accessed sealed tiles farthest from the
// viewport until resident memory fits the budget. The unsealed tile the
// producer is writing is never a victim.
func (s *Store) EvictIfNeeded() {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewport := s.viewportRow.Load()
	for s.residentBytes > s.cfg.MemoryBudgetBytes {
		var victim *entry
		for _, e := range s.entries {
			if e.tile == nil || !e.tile.Sealed() {
				continue
			}
			if victim == nil || evictBefore(e, victim, viewport) {
				victim = e
			}
		}
		if victim == nil {
			break
		}
		victim.tile = nil
		s.residentBytes -= victim.bytes
		victim.bytes = 0
		observability.ObserveTileEvicted()
	}
	observability.SetResidentTileBytes(s.residentBytes)
}

func evictBefore(a, b *entry, viewport int64) bool {
	if a.lastAccess != b.lastAccess {
		return a.lastAccess < b.lastAccess
	}
	return distance(a, viewport) > distance(b, viewport)
}

func distance(e *entry, viewport int64) int64 {
	if viewport < e.start {
		return e.start - viewport
	}
	if end := e.end(); viewport >= end {
		return viewport - end + 1
	}
	return 0
}
