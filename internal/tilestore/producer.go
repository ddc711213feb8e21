package tilestore

import (
	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/observability"
)

// Producer is the single-writer handle a row fetcher holds into a Store. It
// may append and seal, never read back. Exactly one producer writes a store.
type Producer struct {
	s *Store
}

func (s *Store) Producer() *Producer {
	return &Producer{s: s}
}

// Append adds one decoded row, rotating to a fresh tile at capacity. A
// single row larger than the whole memory budget is unappendable and fails
// with ErrCapacityExceeded.
func (p *Producer) Append(row []cell.Value) error {
	s := p.s
	s.producerMu.Lock()
	defer s.producerMu.Unlock()

	var rowBytes int64
	for _, v := range row {
		rowBytes += v.EstimateBytes()
	}
	if rowBytes > s.cfg.MemoryBudgetBytes {
		return ErrCapacityExceeded
	}

	if s.current == nil || s.current.tile.Full() {
		p.rotateLocked()
	}
	s.current.tile.Append(row)
	s.rowsIngested.Add(1)
	return nil
}

// Finish seals the in-flight tile and marks the row count final. Called on
// cursor exhaustion, cancellation, and cursor failure alike; a partial tile
// is sealed with whatever rows arrived.
func (p *Producer) Finish() {
	s := p.s
	s.producerMu.Lock()
	defer s.producerMu.Unlock()
	p.sealCurrentLocked()
	s.final.Store(true)
}

// rotateLocked seals the current tile and opens the next one. The new entry
// joins the directory immediately so readers can follow the growing prefix.
func (p *Producer) rotateLocked() {
	s := p.s
	p.sealCurrentLocked()

	start := s.rowsIngested.Load()
	e := &entry{
		start: start,
		tile:  NewTile(start, s.cfg.TileCapacity, len(s.schema)),
	}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	s.current = e
}

func (p *Producer) sealCurrentLocked() {
	s := p.s
	e := s.current
	if e == nil {
		return
	}
	tile := e.tile
	tile.Seal()

	s.mu.Lock()
	e.count = tile.Len()
	e.bytes = tile.Bytes()
	s.residentBytes += e.bytes
	if e.count == 0 {
		// cursor exhausted exactly on a tile boundary; drop the empty slot
		if n := len(s.entries); n > 0 && s.entries[n-1] == e {
			s.entries = s.entries[:n-1]
		}
		s.residentBytes -= e.bytes
	}
	s.mu.Unlock()
	s.current = nil

	if e.count > 0 {
		observability.ObserveTileSealed()
		s.EvictIfNeeded()
	}
}
