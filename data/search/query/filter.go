package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ncobase/querybridge/ecode"
)

// clauses accumulates the bool clauses of one and-joined group
type clauses struct {
	filter  []any
	must    []any
	mustNot []any
	should  []any
}

func (c *clauses) empty() bool {
	return len(c.filter)+len(c.must)+len(c.mustNot)+len(c.should) == 0
}

func (c *clauses) body() map[string]any {
	b := map[string]any{}
	if len(c.filter) > 0 {
		b["filter"] = c.filter
	}
	if len(c.must) > 0 {
		b["must"] = c.must
	}
	if len(c.mustNot) > 0 {
		b["must_not"] = c.mustNot
	}
	if len(c.should) > 0 {
		b["should"] = c.should
		b["minimum_should_match"] = 1
	}
	return b
}

// compiler holds per-request state while a condition tree is translated
type compiler struct {
	b         *Builder
	innerHits map[string]bool
}

// Query translates conditions into a query clause. An empty list matches all.
func (b *Builder) Query(conds []Condition) (map[string]any, error) {
	c := &compiler{b: b, innerHits: map[string]bool{}}
	return c.query(conds)
}

func (c *compiler) query(conds []Condition) (map[string]any, error) {
	groups := splitGroups(conds)
	if len(groups) == 0 {
		return matchAll(), nil
	}

	bodies := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		cl := &clauses{}
		for _, cond := range g {
			if err := c.add(cl, cond); err != nil {
				return nil, err
			}
		}
		if cl.empty() {
			bodies = append(bodies, map[string]any{"must": []any{matchAll()}})
			continue
		}
		bodies = append(bodies, cl.body())
	}

	if len(bodies) == 1 {
		return map[string]any{"bool": bodies[0]}, nil
	}
	should := make([]any, 0, len(bodies))
	for _, body := range bodies {
		should = append(should, map[string]any{"bool": body})
	}
	return map[string]any{
		"bool": map[string]any{
			"should":               should,
			"minimum_should_match": 1,
		},
	}, nil
}

// splitGroups cuts the condition list into OR-groups of and-joined conditions
func splitGroups(conds []Condition) [][]Condition {
	var groups [][]Condition
	var cur []Condition
	for _, cond := range conds {
		if strings.EqualFold(string(cond.Boolean), string(Or)) && len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, cond)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func (c *compiler) add(cl *clauses, cond Condition) error {
	if len(cond.Nested) > 0 {
		q, err := c.query(cond.Nested)
		if err != nil {
			return err
		}
		cl.filter = append(cl.filter, q)
		return nil
	}
	if cond.Relation != nil || cond.Operator == OpHas {
		return c.relation(cl, cond)
	}

	field := cond.Attribute
	if field == "" {
		return paramErr("attribute", ecode.FieldIsRequired("attribute"))
	}
	op := Operator(strings.ToLower(strings.TrimSpace(string(cond.Operator))))
	if op == "" {
		op = OpEq
	}
	v := cond.Value

	switch op {
	case OpEq:
		q, isNull, err := c.equal(field, v)
		if err != nil {
			return err
		}
		if isNull {
			cl.mustNot = append(cl.mustNot, q)
		} else {
			cl.filter = append(cl.filter, q)
		}
	case OpNe:
		q, isNull, err := c.equal(field, v)
		if err != nil {
			return err
		}
		if isNull {
			cl.filter = append(cl.filter, q)
		} else {
			cl.mustNot = append(cl.mustNot, q)
		}
	case OpGt, OpGte, OpLt, OpLte:
		if v == nil {
			return paramErr(field, ecode.FieldIsRequired("value"))
		}
		cl.filter = append(cl.filter, rangeQuery(field, map[string]any{rangeKeys[op]: v}))
	case OpBetween:
		vals, ok := toSlice(v)
		if !ok || len(vals) != 2 {
			return paramErr(field, "between expects two values")
		}
		cl.filter = append(cl.filter, rangeQuery(field, map[string]any{"gte": vals[0], "lte": vals[1]}))
	case OpIn, OpNotIn:
		vals, ok := toSlice(v)
		if !ok {
			return paramErr(field, fmt.Sprintf("%s expects a list", op))
		}
		q := c.terms(field, vals)
		if op == OpIn {
			cl.filter = append(cl.filter, q)
		} else {
			cl.mustNot = append(cl.mustNot, q)
		}
	case OpExists:
		cl.filter = append(cl.filter, exists(field))
	case OpNotExists:
		cl.mustNot = append(cl.mustNot, exists(field))
	case OpLike:
		s, ok := v.(string)
		if !ok || s == "" {
			return paramErr(field, "like expects a non-empty string")
		}
		cl.filter = append(cl.filter, map[string]any{
			"wildcard": map[string]any{
				c.b.keyword(field): map[string]any{
					"value":            likePattern(s),
					"case_insensitive": true,
				},
			},
		})
	case OpMatch:
		if v == nil {
			return paramErr(field, ecode.FieldIsRequired("value"))
		}
		cl.must = append(cl.must, map[string]any{"match": map[string]any{field: v}})
	default:
		return paramErr(field, ecode.FieldIsInvalid(fmt.Sprintf("operator %q", cond.Operator)))
	}
	return nil
}

var rangeKeys = map[Operator]string{
	OpGt:  "gt",
	OpGte: "gte",
	OpLt:  "lt",
	OpLte: "lte",
}

// equal returns the positive clause for field = v. A nil value yields an
// exists clause and isNull, which callers negate.
func (c *compiler) equal(field string, v any) (q map[string]any, isNull bool, err error) {
	if v == nil {
		return exists(field), true, nil
	}
	if _, isList := toSlice(v); isList {
		return nil, false, paramErr(field, "equality expects a scalar, use in")
	}
	if field == "_id" {
		return ids([]any{v}), false, nil
	}
	return map[string]any{"term": map[string]any{c.b.keyword(field): v}}, false, nil
}

func (c *compiler) terms(field string, vals []any) map[string]any {
	if field == "_id" {
		return ids(vals)
	}
	return map[string]any{"terms": map[string]any{c.b.keyword(field): vals}}
}

// relation translates a has-predicate into a nested query. Child counts are
// measured with a constant_score per child summed by the nested score mode.
func (c *compiler) relation(cl *clauses, cond Condition) error {
	rel := cond.Relation
	if rel == nil || rel.Name == "" {
		return paramErr("relation", ecode.FieldIsRequired("relation name"))
	}

	inner := make([]Condition, len(rel.Conditions))
	for i, rc := range rel.Conditions {
		inner[i] = prefixPath(rel.Name, rc)
	}
	q, err := c.query(inner)
	if err != nil {
		return err
	}

	op := rel.Operator
	count := rel.Count
	if op == "" {
		op, count = OpGte, 1
	}
	if count < 0 {
		return paramErr(rel.Name, "relation count must not be negative")
	}

	atLeast := func(n int, withHits bool) map[string]any {
		return c.nestedAtLeast(rel.Name, q, n, withHits)
	}

	switch op {
	case OpGte:
		if count > 0 {
			cl.filter = append(cl.filter, atLeast(count, true))
		}
	case OpGt:
		cl.filter = append(cl.filter, atLeast(count+1, true))
	case OpLt:
		if count <= 0 {
			cl.filter = append(cl.filter, matchNone())
		} else {
			cl.mustNot = append(cl.mustNot, atLeast(count, false))
		}
	case OpLte:
		cl.mustNot = append(cl.mustNot, atLeast(count+1, false))
	case OpEq:
		if count > 0 {
			cl.filter = append(cl.filter, atLeast(count, true))
		}
		cl.mustNot = append(cl.mustNot, atLeast(count+1, false))
	case OpNe:
		var should []any
		if count > 0 {
			should = append(should, map[string]any{
				"bool": map[string]any{"must_not": []any{atLeast(count, false)}},
			})
		}
		should = append(should, atLeast(count+1, false))
		cl.filter = append(cl.filter, map[string]any{
			"bool": map[string]any{"should": should, "minimum_should_match": 1},
		})
	default:
		return paramErr(rel.Name, ecode.FieldIsInvalid(fmt.Sprintf("relation operator %q", rel.Operator)))
	}
	return nil
}

func (c *compiler) nestedAtLeast(path string, q map[string]any, n int, withHits bool) map[string]any {
	nested := map[string]any{"path": path}
	if n <= 1 {
		nested["query"] = q
		c.attachInnerHits(nested, path, withHits)
		return map[string]any{"nested": nested}
	}

	nested["score_mode"] = "sum"
	nested["query"] = map[string]any{
		"constant_score": map[string]any{"filter": q, "boost": 1},
	}
	c.attachInnerHits(nested, path, withHits)
	return map[string]any{
		"function_score": map[string]any{
			"query":     map[string]any{"nested": nested},
			"min_score": n,
		},
	}
}

// attachInnerHits adds inner_hits the first time a path is seen; the
// engine rejects duplicate inner hit names.
func (c *compiler) attachInnerHits(nested map[string]any, path string, withHits bool) {
	if !withHits || c.innerHits[path] {
		return
	}
	c.innerHits[path] = true
	nested["inner_hits"] = map[string]any{"name": path}
}

func prefixPath(path string, cond Condition) Condition {
	if cond.Attribute != "" && cond.Attribute != "_id" && !strings.HasPrefix(cond.Attribute, path+".") {
		cond.Attribute = path + "." + cond.Attribute
	}
	if len(cond.Nested) > 0 {
		nested := make([]Condition, len(cond.Nested))
		for i, n := range cond.Nested {
			nested[i] = prefixPath(path, n)
		}
		cond.Nested = nested
	}
	return cond
}

// likePattern converts % and _ wildcards; a pattern without them matches
// as a substring.
func likePattern(s string) string {
	if !strings.ContainsAny(s, "%_") {
		return "*" + escapeWildcard(s) + "*"
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '%':
			sb.WriteByte('*')
		case '_':
			sb.WriteByte('?')
		case '*', '?', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}

func rangeQuery(field string, bounds map[string]any) map[string]any {
	return map[string]any{"range": map[string]any{field: bounds}}
}

func exists(field string) map[string]any {
	return map[string]any{"exists": map[string]any{"field": field}}
}

func ids(vals []any) map[string]any {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, fmt.Sprint(v))
	}
	return map[string]any{"ids": map[string]any{"values": out}}
}

func matchAll() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

func matchNone() map[string]any {
	return map[string]any{"match_none": map[string]any{}}
}

// toSlice converts any slice or array value to []any
func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
