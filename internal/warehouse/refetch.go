package warehouse

import (
	"context"
	"fmt"

	"github.com/frostbench/frostbench/internal/cell"
)

// RangeRefetcher re-materializes a row range of an executed statement by
// re-running it wrapped in a LIMIT/OFFSET subquery. Row values are only
// guaranteed to match the original fetch when the statement is deterministic
// and side-effect-free; the results config gates whether stores use it at
// all.
type RangeRefetcher struct {
	engine *Engine
	query  string
	schema cell.Schema
}

// Refetcher builds the re-fetch handle for one statement. The schema is the
// one captured at original cursor open time.
func (e *Engine) Refetcher(query string, schema cell.Schema) *RangeRefetcher {
	return &RangeRefetcher{engine: e, query: stripTrailingSemicolons(query), schema: schema}
}

func (r *RangeRefetcher) FetchRange(ctx context.Context, start, count int64) ([][]cell.Value, error) {
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d OFFSET %d", r.query, count, start)
	rows, err := r.engine.db.QueryContext(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("re-execute range [%d,%d): %w", start, start+count, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([][]cell.Value, 0, count)
	for rows.Next() {
		values := make([]any, len(r.schema))
		scanTargets := make([]any, len(r.schema))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]cell.Value, len(r.schema))
		for i, raw := range values {
			value, decodeErr := cell.Decode(raw, r.schema[i])
			if decodeErr != nil {
				value = cell.Errored(decodeErr.Error())
			}
			row[i] = value
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
