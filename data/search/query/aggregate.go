package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/ncobase/querybridge/ecode"
)

// Function is an aggregation function
type Function int

// Aggregation functions
const (
	FuncCount Function = iota + 1
	FuncSum
	FuncMin
	FuncMax
	FuncAvg
	FuncMatrix
)

var functionNames = map[Function]string{
	FuncCount:  "count",
	FuncSum:    "sum",
	FuncMin:    "min",
	FuncMax:    "max",
	FuncAvg:    "avg",
	FuncMatrix: "matrix",
}

func (f Function) String() string {
	if s, ok := functionNames[f]; ok {
		return s
	}
	return fmt.Sprintf("function(%d)", int(f))
}

// ParseFunction parses a function name, case-insensitively
func ParseFunction(s string) (Function, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range functionNames {
		if n == name {
			return f, nil
		}
	}
	return 0, paramErr("function", ecode.FieldIsInvalid(fmt.Sprintf("function %q", s)))
}

// MarshalText implements encoding.TextMarshaler
func (f Function) MarshalText() ([]byte, error) {
	if _, ok := functionNames[f]; !ok {
		return nil, paramErr("function", ecode.FieldIsInvalid(f.String()))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Function) UnmarshalText(text []byte) error {
	v, err := ParseFunction(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Aggregation requests one function over target columns
type Aggregation struct {
	Function Function `json:"function"`
	Columns  []string `json:"columns,omitempty"`
}

// MatrixAggName is the name of the matrix_stats aggregation
const MatrixAggName = "matrix"

// MetricName returns the aggregation name of fn over column
func MetricName(fn Function, column string) string {
	return fn.String() + "_" + column
}

// AggregateRequest is a built aggregation. Count requests go to the _count
// API; others are size-0 searches whose aggregations are listed in Names.
type AggregateRequest struct {
	Count bool
	Body  map[string]any
	Names []string
}

type aggregateHandler func(b *Builder, agg Aggregation, q map[string]any) (*AggregateRequest, error)

var aggregateHandlers = map[Function]aggregateHandler{
	FuncCount:  countAggregate,
	FuncSum:    metricAggregate,
	FuncMin:    metricAggregate,
	FuncMax:    metricAggregate,
	FuncAvg:    metricAggregate,
	FuncMatrix: matrixAggregate,
}

// Aggregate builds an aggregation request over the documents matching conds
func (b *Builder) Aggregate(agg Aggregation, conds []Condition) (*AggregateRequest, error) {
	handler, ok := aggregateHandlers[agg.Function]
	if !ok {
		return nil, paramErr("function", ecode.FieldIsInvalid(agg.Function.String()))
	}
	q, err := b.Query(conds)
	if err != nil {
		return nil, err
	}
	return handler(b, agg, q)
}

func countAggregate(_ *Builder, _ Aggregation, q map[string]any) (*AggregateRequest, error) {
	return &AggregateRequest{Count: true, Body: map[string]any{"query": q}}, nil
}

func metricAggregate(_ *Builder, agg Aggregation, q map[string]any) (*AggregateRequest, error) {
	aggs, names, err := metricAggs(agg)
	if err != nil {
		return nil, err
	}
	return &AggregateRequest{
		Body:  map[string]any{"query": q, "size": 0, "aggs": aggs},
		Names: names,
	}, nil
}

func matrixAggregate(_ *Builder, agg Aggregation, q map[string]any) (*AggregateRequest, error) {
	if len(agg.Columns) == 0 {
		return nil, paramErr("columns", ecode.FieldIsRequired("columns"))
	}
	return &AggregateRequest{
		Body: map[string]any{
			"query": q,
			"size":  0,
			"aggs": map[string]any{
				MatrixAggName: map[string]any{"matrix_stats": map[string]any{"fields": agg.Columns}},
			},
		},
		Names: []string{MatrixAggName},
	}, nil
}

// metricAggs returns one metric aggregation per column
func metricAggs(agg Aggregation) (map[string]any, []string, error) {
	if len(agg.Columns) == 0 {
		return nil, nil, paramErr("columns", ecode.FieldIsRequired("columns"))
	}
	aggs := make(map[string]any, len(agg.Columns))
	names := make([]string, 0, len(agg.Columns))
	for _, col := range agg.Columns {
		name := MetricName(agg.Function, col)
		aggs[name] = map[string]any{agg.Function.String(): map[string]any{"field": col}}
		names = append(names, name)
	}
	return aggs, names, nil
}

// DistinctColumns resolves distinct columns to their aggregation fields,
// which also name the aggregations
func (b *Builder) DistinctColumns(columns []string) ([]string, error) {
	if allColumns(columns) {
		return nil, paramErr("columns", ecode.FieldIsRequired("distinct columns"))
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, b.keyword(c))
	}
	return out, nil
}

// Distinct builds nested terms aggregations over the descriptor columns,
// each column's aggregation inside its parent's. Every level asks for the
// same number of terms, chosen so the whole tree stays within MaxBuckets
// and the result window; a level with more terms is truncated and reports
// a positive sum_other_doc_count.
func (b *Builder) Distinct(desc Descriptor) (map[string]any, error) {
	return b.distinct(desc, desc.Columns, nil)
}

// DistinctAggregate builds a distinct hierarchy over columns with the
// aggregation function evaluated per leaf bucket
func (b *Builder) DistinctAggregate(desc Descriptor, agg Aggregation, columns []string) (map[string]any, error) {
	if _, ok := aggregateHandlers[agg.Function]; !ok {
		return nil, paramErr("function", ecode.FieldIsInvalid(agg.Function.String()))
	}
	if agg.Function == FuncMatrix {
		return nil, ErrMatrixDistinct
	}
	var leaf map[string]any
	if agg.Function != FuncCount {
		aggs, _, err := metricAggs(agg)
		if err != nil {
			return nil, err
		}
		leaf = aggs
	}
	return b.distinct(desc, columns, leaf)
}

func (b *Builder) distinct(desc Descriptor, columns []string, leaf map[string]any) (map[string]any, error) {
	fields, err := b.DistinctColumns(columns)
	if err != nil {
		return nil, err
	}
	q, err := b.Query(desc.Conditions)
	if err != nil {
		return nil, err
	}

	orders := map[string]string{}
	for _, s := range desc.Options.Sort {
		dir, err := direction(s.Direction)
		if err != nil {
			return nil, err
		}
		orders[s.Field] = dir
		orders[b.keyword(s.Field)] = dir
	}

	size := b.distinctSize(len(fields))
	child := leaf
	for i := len(fields) - 1; i >= 0; i-- {
		terms := map[string]any{"field": fields[i], "size": size}
		if dir, ok := orders[columns[i]]; ok {
			terms["order"] = map[string]any{"_key": dir}
		} else if dir, ok := orders[fields[i]]; ok {
			terms["order"] = map[string]any{"_key": dir}
		}
		node := map[string]any{"terms": terms}
		if len(child) > 0 {
			node["aggs"] = child
		}
		child = map[string]any{fields[i]: node}
	}

	return map[string]any{"query": q, "size": 0, "aggs": child}, nil
}

// distinctSize returns the terms size per level of a distinct tree with
// the given depth, the largest n with n + n^2 + ... + n^levels <= budget
func (b *Builder) distinctSize(levels int) int {
	budget := b.MaxBuckets
	if budget <= 0 {
		budget = DefaultMaxBuckets
	}
	if levels < 1 {
		levels = 1
	}
	size := int(math.Pow(float64(budget), 1/float64(levels)))
	for size > 1 && bucketTotal(size, levels) > budget {
		size--
	}
	if w := b.Window(); size > w {
		size = w
	}
	return max(size, 1)
}

func bucketTotal(size, levels int) int {
	total, level := 0, 1
	for range levels {
		level *= size
		total += level
	}
	return total
}
