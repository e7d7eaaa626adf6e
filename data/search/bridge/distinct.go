package bridge

import (
	"context"
	"errors"
	"strings"

	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/spf13/cast"
)

// CountSuffix names the doc-count annotation of a distinct column
const CountSuffix = "_count"

// Distinct returns the distinct combinations of desc.Columns, one row per
// leaf bucket in depth-first order. With includeDocCount every column gets
// a "<col>_count" annotation. Skip and Limit slice the rows.
func (b *Bridge) Distinct(ctx context.Context, desc query.Descriptor, includeDocCount bool) (*results.Results[[]*results.Fields], error) {
	ctx, op := b.start(ctx, "distinct", kindQuery)
	res, err := b.distinct(ctx, op, desc, includeDocCount)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) distinct(ctx context.Context, op *operation, desc query.Descriptor, includeDocCount bool) (*results.Results[[]*results.Fields], error) {
	qb := b.builder(ctx)
	fields, err := qb.DistinctColumns(desc.Columns)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	body, err := qb.Distinct(desc)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = body

	aggs, err := b.aggregations(ctx, op, body)
	if err != nil {
		return nil, err
	}
	dec := &bucketDecoder{fields: fields, names: columnNames(desc.Columns), includeCount: includeDocCount}
	rows := paginate(dec.decode(aggs), desc.Options)
	return results.New(op.tag, rows, body).
		SetMeta("count", len(rows)).
		SetMeta("truncated", dec.truncated), nil
}

// DistinctAggregate evaluates agg per distinct combination of columns.
// Matrix statistics cannot be computed per bucket.
func (b *Bridge) DistinctAggregate(ctx context.Context, desc query.Descriptor, agg query.Aggregation, columns []string) (*results.Results[[]*results.Fields], error) {
	ctx, op := b.start(ctx, "distinct_aggregate", kindQuery)
	res, err := b.distinctAggregate(ctx, op, desc, agg, columns)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) distinctAggregate(ctx context.Context, op *operation, desc query.Descriptor, agg query.Aggregation, columns []string) (*results.Results[[]*results.Fields], error) {
	qb := b.builder(ctx)
	body, err := qb.DistinctAggregate(desc, agg, columns)
	if errors.Is(err, query.ErrMatrixDistinct) {
		return nil, unsupportedError(op.name, agg, err)
	}
	if err != nil {
		return nil, withOp(op.name, err)
	}
	fields, err := qb.DistinctColumns(columns)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = body

	aggs, err := b.aggregations(ctx, op, body)
	if err != nil {
		return nil, err
	}
	dec := &bucketDecoder{fields: fields, names: columnNames(columns), agg: &agg}
	rows := paginate(dec.decode(aggs), desc.Options)
	return results.New(op.tag, rows, body).
		SetMeta("count", len(rows)).
		SetMeta("truncated", dec.truncated), nil
}

// bucketDecoder flattens nested terms buckets into rows. fields are the
// aggregation names, names the columns the rows are keyed by.
type bucketDecoder struct {
	fields       []string
	names        []string
	includeCount bool
	agg          *query.Aggregation
	truncated    bool
}

type cell struct {
	key   string
	value any
}

func (d *bucketDecoder) decode(aggs map[string]any) []*results.Fields {
	rows := []*results.Fields{}
	if len(d.fields) == 0 {
		return rows
	}
	d.walk(aggs, 0, nil, &rows)
	return rows
}

func (d *bucketDecoder) walk(node map[string]any, depth int, prefix []cell, rows *[]*results.Fields) {
	field := d.fields[depth]
	name := d.names[depth]
	agg, _ := node[field].(map[string]any)
	buckets, _ := agg["buckets"].([]any)
	if cast.ToInt64(agg["sum_other_doc_count"]) > 0 {
		d.truncated = true
	}

	for _, raw := range buckets {
		bucket, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		row := append(append([]cell(nil), prefix...), cell{name, bucket["key"]})
		if d.includeCount {
			row = append(row, cell{name + CountSuffix, cast.ToInt64(bucket["doc_count"])})
		}
		if depth+1 < len(d.fields) {
			d.walk(bucket, depth+1, row, rows)
			continue
		}
		row = append(row, d.leafMetrics(bucket)...)
		out := results.NewFields()
		for _, c := range row {
			out.Set(c.key, c.value)
		}
		*rows = append(*rows, out)
	}
}

func (d *bucketDecoder) leafMetrics(bucket map[string]any) []cell {
	if d.agg == nil {
		return nil
	}
	if d.agg.Function == query.FuncCount {
		return []cell{{query.FuncCount.String(), cast.ToInt64(bucket["doc_count"])}}
	}
	out := make([]cell, 0, len(d.agg.Columns))
	for _, col := range d.agg.Columns {
		name := query.MetricName(d.agg.Function, col)
		out = append(out, cell{name, metricValue(bucket, name)})
	}
	return out
}

// columnNames returns the requested columns as row keys
func columnNames(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func paginate(rows []*results.Fields, opts query.Options) []*results.Fields {
	if opts.Skip > 0 {
		if opts.Skip >= len(rows) {
			return []*results.Fields{}
		}
		rows = rows[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(rows) {
		rows = rows[:opts.Limit]
	}
	return rows
}
