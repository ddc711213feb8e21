package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frostbench/frostbench/internal/cell"
	"github.com/frostbench/frostbench/internal/selection"
	"github.com/frostbench/frostbench/internal/tilestore"
)

// State is the lifecycle of one executed statement's result tab.
type State string

const (
	StatePending   State = "pending"
	StateStreaming State = "streaming"
	StateComplete  State = "complete"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

// Tab is one executed query's result: schema, tile store, lifecycle state,
// and the selection scoped to it. A fetcher failure is local to its tab and
// never affects siblings.
type Tab struct {
	Query     string
	Selection *selection.Model

	mu      sync.Mutex
	state   State
	err     error
	schema  cell.Schema
	store   *tilestore.Store
	cancel  context.CancelFunc
	started time.Time
	elapsed time.Duration
	done    chan struct{}

	decodeErrors atomic.Int64
}

func newTab(query string) *Tab {
	return &Tab{
		Query:     query,
		Selection: selection.New(),
		state:     StatePending,
		started:   time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed when the tab reaches a terminal state. Batch mode waits on
// it headlessly.
func (t *Tab) Done() <-chan struct{} { return t.done }

func (t *Tab) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the failure detail for a Failed tab.
func (t *Tab) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tab) Schema() cell.Schema {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.schema
}

func (t *Tab) Store() *tilestore.Store {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store
}

// Elapsed is the statement wall time, final once the tab is terminal.
func (t *Tab) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return t.elapsed
	}
	return time.Since(t.started)
}

// DecodeErrors is the tab-level tally of cells that failed to decode.
func (t *Tab) DecodeErrors() int64 { return t.decodeErrors.Load() }

func (t *Tab) AddDecodeErrors(n int64) { t.decodeErrors.Add(n) }

// BeginStreaming transitions Pending → Streaming once the cursor is open and
// the schema is known. The cancel function stops the in-flight fetcher.
func (t *Tab) BeginStreaming(schema cell.Schema, store *tilestore.Store, cancel context.CancelFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return fmt.Errorf("begin streaming from state %q", t.state)
	}
	t.state = StateStreaming
	t.schema = schema
	t.store = store
	t.cancel = cancel
	return nil
}

// Complete transitions Streaming → Complete.
func (t *Tab) Complete() error {
	return t.finish(StateComplete, nil)
}

// Fail transitions Pending/Streaming → Failed with the error detail.
func (t *Tab) Fail(err error) error {
	return t.finish(StateFailed, err)
}

// Cancel requests cancellation. From Streaming it signals the fetcher, which
// observes it within one batch iteration; from Pending it is immediate. On a
// terminal tab it is a no-op.
func (t *Tab) Cancel() {
	t.mu.Lock()
	cancel := t.cancel
	terminal := t.state.Terminal()
	t.mu.Unlock()
	if terminal {
		return
	}
	if cancel != nil {
		cancel()
	}
	_ = t.finish(StateCancelled, nil)
}

func (t *Tab) finish(state State, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return fmt.Errorf("transition %q → %q on terminal tab", t.state, state)
	}
	t.state = state
	t.err = err
	t.elapsed = time.Since(t.started)
	t.cancel = nil
	close(t.done)
	return nil
}

// MarkCancelled records the Cancelled state without re-triggering the cancel
// function. The fetcher calls it after observing context cancellation.
func (t *Tab) MarkCancelled() {
	_ = t.finish(StateCancelled, nil)
}
