package store

import (
	"context"
	"fmt"
	"time"

	"github.com/spatialkv/zindex/internal/core/observability"
	"github.com/spatialkv/zindex/pkg/filter"
	"github.com/spatialkv/zindex/pkg/planner"
)

// Decoder adapts a raw record to the evaluator's feature view. Feature
// serialization itself is external to this core.
type Decoder func(Record) (filter.Feature, error)

// Execute runs every range of a query plan against the scanner, in shard then
// key order, and applies the plan's secondary predicate to drop false
// positives from range over-approximation.
func Execute(ctx context.Context, sc Scanner, plan planner.QueryPlan, dec Decoder) ([]filter.Feature, error) {
	var out []filter.Feature
	for _, r := range plan.Ranges {
		start := time.Now()
		it, err := sc.Scan(ctx, r.Start, r.End)
		if err != nil {
			return nil, fmt.Errorf("store: scan shard %d: %w", r.Shard, err)
		}
		for it.Next() {
			f, err := dec(it.Record())
			if err != nil {
				_ = it.Close()
				return nil, fmt.Errorf("store: decode record: %w", err)
			}
			if filter.Evaluate(plan.Secondary, f) {
				out = append(out, f)
			}
		}
		err = it.Err()
		observability.ObserveScan(plan.Strategy.Kind.String(), err, time.Since(start).Seconds())
		if cerr := it.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("store: scan shard %d: %w", r.Shard, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return out, nil
}
