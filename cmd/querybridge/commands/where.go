package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ncobase/querybridge/data/search/query"
)

// orPrefix starts a new OR-group: --where "or:status=eq:draft"
const orPrefix = "or:"

var operatorNames = map[string]query.Operator{
	"eq":         query.OpEq,
	"ne":         query.OpNe,
	"gt":         query.OpGt,
	"gte":        query.OpGte,
	"lt":         query.OpLt,
	"lte":        query.OpLte,
	"in":         query.OpIn,
	"nin":        query.OpNotIn,
	"not_in":     query.OpNotIn,
	"between":    query.OpBetween,
	"exists":     query.OpExists,
	"missing":    query.OpNotExists,
	"not_exists": query.OpNotExists,
	"like":       query.OpLike,
	"match":      query.OpMatch,
}

// parseConditions parses "field=op:value" expressions. Without a known
// operator prefix the value is compared for equality.
func parseConditions(exprs []string) ([]query.Condition, error) {
	conds := make([]query.Condition, 0, len(exprs))
	for _, expr := range exprs {
		c, err := parseCondition(expr)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func parseCondition(expr string) (query.Condition, error) {
	boolean := query.And
	if rest, ok := strings.CutPrefix(expr, orPrefix); ok {
		boolean, expr = query.Or, rest
	}

	field, rhs, ok := strings.Cut(expr, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return query.Condition{}, fmt.Errorf("invalid condition %q, want field=op:value", expr)
	}

	op := query.OpEq
	raw := rhs
	if name, value, found := strings.Cut(rhs, ":"); found {
		if o, known := operatorNames[strings.ToLower(name)]; known {
			op, raw = o, value
		}
	} else if o, known := operatorNames[strings.ToLower(rhs)]; known && (o == query.OpExists || o == query.OpNotExists) {
		op, raw = o, ""
	}

	var value any
	switch op {
	case query.OpIn, query.OpNotIn, query.OpBetween:
		value = parseList(raw)
	case query.OpExists, query.OpNotExists:
	case query.OpLike, query.OpMatch:
		value = raw
	default:
		value = parseScalar(raw)
	}
	return query.Condition{Attribute: field, Operator: op, Value: value, Boolean: boolean}, nil
}

func parseList(raw string) []any {
	if raw == "" {
		return []any{}
	}
	parts := strings.Split(raw, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, parseScalar(strings.TrimSpace(p)))
	}
	return out
}

// parseScalar reads null, booleans and numbers, anything else stays a string
func parseScalar(raw string) any {
	switch raw {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// parseSorts parses "field" or "field:desc"
func parseSorts(exprs []string) ([]query.Sort, error) {
	sorts := make([]query.Sort, 0, len(exprs))
	for _, expr := range exprs {
		field, dir, _ := strings.Cut(expr, ":")
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("invalid sort %q", expr)
		}
		sorts = append(sorts, query.Sort{Field: field, Direction: query.Direction(strings.ToLower(strings.TrimSpace(dir)))})
	}
	return sorts, nil
}

// parseAssignments parses "field=value" pairs
func parseAssignments(exprs []string) (map[string]any, error) {
	out := make(map[string]any, len(exprs))
	for _, expr := range exprs {
		field, raw, ok := strings.Cut(expr, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid assignment %q, want field=value", expr)
		}
		out[field] = parseScalar(raw)
	}
	return out, nil
}

// parseSearchAfter reads a JSON array cursor
func parseSearchAfter(raw string) ([]any, error) {
	if raw == "" {
		return nil, nil
	}
	var after []any
	if err := json.Unmarshal([]byte(raw), &after); err != nil {
		return nil, fmt.Errorf("invalid search_after %q: %w", raw, err)
	}
	return after, nil
}
