package query

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ncobase/querybridge/data/search/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder() *Builder {
	return NewBuilder("products", 100, KeywordMap{
		"name":   "name.keyword",
		"sku":    "sku",
		"author": "author.raw",
	})
}

// asJSON normalises a body for comparison
func asJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestQueryEmptyMatchesAll(t *testing.T) {
	q, err := newTestBuilder().Query(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_all":{}}`, asJSON(t, q))
}

func TestQuerySingleGroup(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Where("name", OpEq, "apple"),
		Where("price", OpGte, 10),
		Where("status", OpNe, "deleted"),
		Where("tags", OpIn, []string{"a", "b"}),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{
		"filter":[
			{"term":{"name.keyword":"apple"}},
			{"range":{"price":{"gte":10}}},
			{"terms":{"tags":["a","b"]}}
		],
		"must_not":[{"term":{"status":"deleted"}}]
	}}`, asJSON(t, q))
}

func TestQueryOrGroups(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Where("a", OpEq, 1),
		Where("b", OpEq, 2),
		OrWhere("c", OpEq, 3),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{
		"should":[
			{"bool":{"filter":[{"term":{"a":1}},{"term":{"b":2}}]}},
			{"bool":{"filter":[{"term":{"c":3}}]}}
		],
		"minimum_should_match":1
	}}`, asJSON(t, q))
}

func TestQueryIdsAndNulls(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Where("_id", OpEq, 7),
		Where("_id", OpNotIn, []any{"x", "y"}),
		Where("deleted_at", OpEq, nil),
		Where("owner", OpNe, nil),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{
		"filter":[{"ids":{"values":["7"]}},{"exists":{"field":"owner"}}],
		"must_not":[{"ids":{"values":["x","y"]}},{"exists":{"field":"deleted_at"}}]
	}}`, asJSON(t, q))
}

func TestQueryBetweenLikeMatchExists(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Where("price", OpBetween, []int{1, 5}),
		Where("name", OpLike, "App%"),
		Where("author", OpLike, "smith"),
		Where("body", OpMatch, "quick fox"),
		Where("image", OpExists, nil),
		Where("draft", OpNotExists, nil),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{
		"filter":[
			{"range":{"price":{"gte":1,"lte":5}}},
			{"wildcard":{"name.keyword":{"value":"App*","case_insensitive":true}}},
			{"wildcard":{"author.raw":{"value":"*smith*","case_insensitive":true}}},
			{"exists":{"field":"image"}}
		],
		"must":[{"match":{"body":"quick fox"}}],
		"must_not":[{"exists":{"field":"draft"}}]
	}}`, asJSON(t, q))
}

func TestQueryNestedGroup(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Where("a", OpEq, 1),
		Group(And, Where("b", OpEq, 2), OrWhere("c", OpEq, 3)),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{"filter":[
		{"term":{"a":1}},
		{"bool":{"should":[
			{"bool":{"filter":[{"term":{"b":2}}]}},
			{"bool":{"filter":[{"term":{"c":3}}]}}
		],"minimum_should_match":1}}
	]}}`, asJSON(t, q))
}

func TestQueryParamErrors(t *testing.T) {
	b := newTestBuilder()
	cases := []Condition{
		{Attribute: "a", Operator: "~", Value: 1},
		Where("a", OpBetween, []int{1}),
		Where("a", OpIn, "x"),
		Where("a", OpLike, 3),
		Where("a", OpEq, []int{1, 2}),
		Where("a", OpGt, nil),
		{Operator: OpEq, Value: 1},
	}
	for _, c := range cases {
		_, err := b.Query([]Condition{c})
		require.Error(t, err, "%+v", c)
		assert.True(t, IsParamError(err))
	}
}

func TestQueryHasRelation(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Has("comments", []Condition{Where("approved", OpEq, true)}, "", 0),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{"filter":[{"nested":{
		"path":"comments",
		"query":{"bool":{"filter":[{"term":{"comments.approved":true}}]}},
		"inner_hits":{"name":"comments"}
	}}]}}`, asJSON(t, q))
}

func TestQueryHasCountThreshold(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Has("comments", nil, OpGte, 3),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{"filter":[{"function_score":{
		"query":{"nested":{
			"path":"comments",
			"score_mode":"sum",
			"query":{"constant_score":{"filter":{"match_all":{}},"boost":1}},
			"inner_hits":{"name":"comments"}
		}},
		"min_score":3
	}}]}}`, asJSON(t, q))
}

func TestQueryHasLessThanUsesMustNot(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Has("comments", nil, OpLt, 2),
	})
	require.NoError(t, err)
	body := q["bool"].(map[string]any)
	assert.NotContains(t, body, "filter")
	mustNot := body["must_not"].([]any)
	require.Len(t, mustNot, 1)
	fs := mustNot[0].(map[string]any)["function_score"].(map[string]any)
	assert.Equal(t, 2, fs["min_score"])
	nested := fs["query"].(map[string]any)["nested"].(map[string]any)
	assert.NotContains(t, nested, "inner_hits")
}

func TestQueryHasEqualCount(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Has("comments", nil, OpEq, 2),
	})
	require.NoError(t, err)
	body := q["bool"].(map[string]any)
	assert.Len(t, body["filter"], 1)
	assert.Len(t, body["must_not"], 1)
	neg := body["must_not"].([]any)[0].(map[string]any)["function_score"].(map[string]any)
	assert.Equal(t, 3, neg["min_score"])
}

func TestQueryInnerHitsOncePerPath(t *testing.T) {
	q, err := newTestBuilder().Query([]Condition{
		Has("comments", []Condition{Where("a", OpEq, 1)}, "", 0),
		Has("comments", []Condition{Where("b", OpEq, 2)}, "", 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(asJSON(t, q), "inner_hits"))
}

func TestSortKeywordRedirect(t *testing.T) {
	sort, err := newTestBuilder().Sort(Options{Sort: []Sort{
		{Field: "name", Direction: Desc},
		{Field: "price"},
		{Field: "_score", Direction: "DESC"},
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name.keyword":{"order":"desc"}},
		{"price":{"order":"asc"}},
		{"_score":{"order":"desc"}}
	]`, asJSON(t, sort))

	_, err = newTestBuilder().Sort(Options{Sort: []Sort{{Field: "a", Direction: "up"}}})
	assert.True(t, IsParamError(err))
}

func TestPageWindowClamp(t *testing.T) {
	b := newTestBuilder()
	cases := []struct {
		skip, limit      int
		wantFrom, wantSz int
	}{
		{0, 0, 0, 100},
		{0, 10, 0, 10},
		{90, 50, 90, 10},
		{95, 0, 95, 5},
		{99, 1, 99, 1},
	}
	for _, c := range cases {
		from, size, err := b.Page(Options{Skip: c.skip, Limit: c.limit})
		require.NoError(t, err)
		assert.Equal(t, c.wantFrom, from)
		assert.Equal(t, c.wantSz, size)
		assert.LessOrEqual(t, from+size, b.Window())
	}

	_, _, err := b.Page(Options{Skip: 100})
	assert.True(t, IsParamError(err))
	_, _, err = b.Page(Options{Limit: -1})
	assert.True(t, IsParamError(err))
}

func TestSearchBody(t *testing.T) {
	body, err := newTestBuilder().Search(Descriptor{
		Conditions: []Condition{Where("sku", OpEq, "x1")},
		Options: Options{
			Skip:      10,
			Limit:     5,
			Sort:      []Sort{{Field: "name"}},
			Highlight: []string{"name"},
			Extra:     map[string]any{"timeout": "2s", "size": 9999},
		},
		Columns: []string{"name", "price"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"query":{"bool":{"filter":[{"term":{"sku":"x1"}}]}},
		"from":10,
		"size":5,
		"sort":[{"name.keyword":{"order":"asc"}}],
		"_source":{"includes":["name","price"]},
		"highlight":{"fields":{"name":{}}},
		"track_total_hits":true,
		"timeout":"2s"
	}`, asJSON(t, body))
}

func TestSearchMultiMatch(t *testing.T) {
	b := newTestBuilder()
	body, err := b.Search(Descriptor{
		Conditions: []Condition{Where("sku", OpEq, "x1")},
		Options: Options{Search: &SearchParams{
			Query: "red shoes", Fields: []string{"name^2", "body"}, Type: TypeBestFields, Fuzziness: "AUTO", Operator: "AND",
		}},
		Columns: []string{"*"},
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "_source")
	assert.JSONEq(t, `{"bool":{
		"must":[{"multi_match":{"query":"red shoes","fields":["name^2","body"],"type":"best_fields","fuzziness":"AUTO","operator":"and"}}],
		"filter":[{"bool":{"filter":[{"term":{"sku":"x1"}}]}}]
	}}`, asJSON(t, body["query"]))

	_, err = b.Search(Descriptor{Options: Options{Search: &SearchParams{Query: "x", Type: TypePhrase, Fuzziness: "1"}}})
	assert.True(t, IsParamError(err))
	_, err = b.Search(Descriptor{Options: Options{Search: &SearchParams{Query: " "}}})
	assert.True(t, IsParamError(err))
}

func TestPitSearchBody(t *testing.T) {
	body, err := newTestBuilder().PitSearch(Descriptor{
		Options: Options{Sort: []Sort{{Field: "price", Direction: Desc}}, Skip: 50, Limit: 20},
	}, PitCursor{ID: "pit-1", SearchAfter: []any{10, 3}}, "")
	require.NoError(t, err)
	assert.NotContains(t, body, "from")
	assert.JSONEq(t, `{
		"query":{"match_all":{}},
		"sort":[{"price":{"order":"desc"}},{"_shard_doc":{"order":"asc"}}],
		"size":20,
		"pit":{"id":"pit-1","keep_alive":"1m"},
		"search_after":[10,3],
		"track_total_hits":true
	}`, asJSON(t, body))

	_, err = newTestBuilder().PitSearch(Descriptor{}, PitCursor{}, "")
	assert.True(t, IsParamError(err))
}

func TestAggregateDispatch(t *testing.T) {
	b := newTestBuilder()

	req, err := b.Aggregate(Aggregation{Function: FuncCount}, []Condition{Where("a", OpEq, 1)})
	require.NoError(t, err)
	assert.True(t, req.Count)
	assert.JSONEq(t, `{"query":{"bool":{"filter":[{"term":{"a":1}}]}}}`, asJSON(t, req.Body))

	req, err = b.Aggregate(Aggregation{Function: FuncSum, Columns: []string{"price", "qty"}}, nil)
	require.NoError(t, err)
	assert.False(t, req.Count)
	assert.Equal(t, []string{"sum_price", "sum_qty"}, req.Names)
	assert.JSONEq(t, `{"query":{"match_all":{}},"size":0,"aggs":{
		"sum_price":{"sum":{"field":"price"}},
		"sum_qty":{"sum":{"field":"qty"}}
	}}`, asJSON(t, req.Body))

	req, err = b.Aggregate(Aggregation{Function: FuncMatrix, Columns: []string{"a", "b"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"matrix"}, req.Names)
	assert.JSONEq(t, `{"matrix":{"matrix_stats":{"fields":["a","b"]}}}`, asJSON(t, req.Body["aggs"]))

	_, err = b.Aggregate(Aggregation{Function: FuncAvg}, nil)
	assert.True(t, IsParamError(err))
	_, err = b.Aggregate(Aggregation{Function: Function(42)}, nil)
	assert.True(t, IsParamError(err))
}

func TestParseFunction(t *testing.T) {
	f, err := ParseFunction(" AVG ")
	require.NoError(t, err)
	assert.Equal(t, FuncAvg, f)

	var agg Aggregation
	require.NoError(t, json.Unmarshal([]byte(`{"function":"max","columns":["p"]}`), &agg))
	assert.Equal(t, FuncMax, agg.Function)
	assert.JSONEq(t, `{"function":"max","columns":["p"]}`, asJSON(t, agg))

	_, err = ParseFunction("median")
	assert.Error(t, err)
}

func TestDistinctBody(t *testing.T) {
	body, err := newTestBuilder().Distinct(Descriptor{
		Columns: []string{"name", "color"},
		Options: Options{Sort: []Sort{{Field: "name", Direction: Desc}}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"match_all":{}},"size":0,"aggs":{
		"name.keyword":{
			"terms":{"field":"name.keyword","size":100,"order":{"_key":"desc"}},
			"aggs":{"color":{"terms":{"field":"color","size":100}}}
		}
	}}`, asJSON(t, body))

	_, err = newTestBuilder().Distinct(Descriptor{})
	assert.True(t, IsParamError(err))
}

func TestDistinctAggregateBody(t *testing.T) {
	b := newTestBuilder()
	body, err := b.DistinctAggregate(Descriptor{}, Aggregation{Function: FuncMax, Columns: []string{"price"}}, []string{"sku"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"match_all":{}},"size":0,"aggs":{
		"sku":{"terms":{"field":"sku","size":100},"aggs":{"max_price":{"max":{"field":"price"}}}}
	}}`, asJSON(t, body))

	_, err = b.DistinctAggregate(Descriptor{}, Aggregation{Function: FuncMatrix, Columns: []string{"a"}}, []string{"sku"})
	assert.ErrorIs(t, err, ErrMatrixDistinct)
}

func TestDistinctSizeFitsBucketLimit(t *testing.T) {
	b := NewBuilder("products", 10000, nil)
	assert.Equal(t, 10000, b.distinctSize(1))
	assert.Equal(t, 255, b.distinctSize(2))
	assert.Equal(t, 39, b.distinctSize(3))
	for levels := 1; levels <= 6; levels++ {
		assert.LessOrEqual(t, bucketTotal(b.distinctSize(levels), levels), DefaultMaxBuckets)
	}

	b.MaxBuckets = 1000
	assert.Equal(t, 1000, b.distinctSize(1))
	assert.Equal(t, 31, b.distinctSize(2))

	body, err := NewBuilder("products", 10000, nil).Distinct(Descriptor{Columns: []string{"sku", "color"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"match_all":{}},"size":0,"aggs":{
		"sku":{"terms":{"field":"sku","size":255},"aggs":{"color":{"terms":{"field":"color","size":255}}}}
	}}`, asJSON(t, body))
}

func TestWriteDocumentStripsReserved(t *testing.T) {
	rec := results.NewRecord().Set("name", "a").Set("price", 2)
	rec.Fields.Set("_id", "abc").Set("_index", "x").Set("_meta", map[string]any{})

	id, body, err := WriteDocument(rec)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, `{"name":"a","price":2}`, string(body))

	id, _, err = WriteDocument(results.NewRecord().Set("a", 1))
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestBulkBody(t *testing.T) {
	body, err := Bulk([]*results.Record{
		results.NewRecord().WithID("1").Set("a", 1),
		results.NewRecord().Set("a", 2),
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"index\":{\"_id\":\"1\"}}\n{\"a\":1}\n{\"index\":{}}\n{\"a\":2}\n", string(body))

	_, err = Bulk(nil)
	assert.True(t, IsParamError(err))
	_, err = Bulk([]*results.Record{nil})
	assert.True(t, IsParamError(err))
}
