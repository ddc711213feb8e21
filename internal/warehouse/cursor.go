package warehouse

import (
	"context"
	"fmt"

	"github.com/frostbench/frostbench/internal/cell"
)

// Cursor streams driver rows from one executed statement. It implements
// fetch.Cursor. Not safe for concurrent use; the owning fetcher is the only
// caller.
type Cursor struct {
	rows   rowSource
	schema cell.Schema
	closed bool
}

// rowSource is the subset of *sql.Rows the cursor drains.
type rowSource interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func (c *Cursor) Schema() cell.Schema { return c.schema }

// NextBatch pulls up to maxRows raw rows. exhausted reports that the cursor
// delivered its final row; a subsequent call returns an empty exhausted
// batch.
func (c *Cursor) NextBatch(ctx context.Context, maxRows int) ([][]any, bool, error) {
	if maxRows <= 0 {
		maxRows = 1
	}
	batch := make([][]any, 0, maxRows)
	for len(batch) < maxRows {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if !c.rows.Next() {
			if err := c.rows.Err(); err != nil {
				return nil, false, fmt.Errorf("iterate rows: %w", err)
			}
			return batch, true, nil
		}
		values := make([]any, len(c.schema))
		scanTargets := make([]any, len(c.schema))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := c.rows.Scan(scanTargets...); err != nil {
			return nil, false, fmt.Errorf("scan row: %w", err)
		}
		batch = append(batch, values)
	}
	return batch, false, nil
}

func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
