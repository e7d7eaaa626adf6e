package bridge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/data/search/results"
)

// Aggregate evaluates agg over the documents matching conds. Count yields
// an int64, a single metric a scalar, several metrics a map keyed by
// "<fn>_<col>", and matrix a map of per-field statistics.
func (b *Bridge) Aggregate(ctx context.Context, agg query.Aggregation, conds []query.Condition) (*results.Results[any], error) {
	ctx, op := b.start(ctx, "aggregate", kindQuery)
	res, err := b.aggregate(ctx, op, agg, conds)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) aggregate(ctx context.Context, op *operation, agg query.Aggregation, conds []query.Condition) (*results.Results[any], error) {
	req, err := b.builder(ctx).Aggregate(agg, conds)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = req.Body

	if req.Count {
		n, err := b.countRaw(ctx, op, req.Body)
		if err != nil {
			return nil, err
		}
		return results.New[any](op.tag, n, req.Body).SetMeta("function", agg.Function.String()), nil
	}

	aggs, err := b.aggregations(ctx, op, req.Body)
	if err != nil {
		return nil, err
	}

	var data any
	switch {
	case agg.Function == query.FuncMatrix:
		data = matrixStats(aggs[query.MatrixAggName])
	case len(req.Names) == 1:
		data = metricValue(aggs, req.Names[0])
	default:
		m := make(map[string]any, len(req.Names))
		for _, name := range req.Names {
			m[name] = metricValue(aggs, name)
		}
		data = m
	}
	return results.New(op.tag, data, req.Body).SetMeta("function", agg.Function.String()), nil
}

// aggregations runs a size-0 search and returns its aggregations
func (b *Bridge) aggregations(ctx context.Context, op *operation, body map[string]any) (map[string]any, error) {
	resp, err := b.searchRaw(ctx, op, b.index, body)
	if err != nil {
		return nil, err
	}
	var out struct {
		Aggregations map[string]any `json:"aggregations"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, decodeError(op.name, op.params, err)
	}
	if out.Aggregations == nil {
		out.Aggregations = map[string]any{}
	}
	return out.Aggregations, nil
}

// matrixStats reshapes a matrix_stats answer into field → statistics
func matrixStats(raw any) map[string]any {
	out := map[string]any{}
	agg, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	fields, _ := agg["fields"].([]any)
	for _, f := range fields {
		stats, ok := f.(map[string]any)
		if !ok {
			continue
		}
		name, _ := stats["name"].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		entry := make(map[string]any, len(stats))
		for k, v := range stats {
			if k != "name" {
				entry[k] = v
			}
		}
		out[name] = entry
	}
	if dc, ok := agg["doc_count"]; ok {
		out["doc_count"] = dc
	}
	return out
}
