package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/ncobase/querybridge/ctxutil"
	"github.com/ncobase/querybridge/data/metrics"
	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/bridge"
	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/data/search/searchtest"
	"github.com/ncobase/querybridge/logging/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsMapping = `{"products-000001":{"mappings":{"properties":{
	"name":{"type":"text","fields":{"keyword":{"type":"keyword","ignore_above":256}}},
	"sku":{"type":"keyword"},
	"price":{"type":"double"},
	"comments":{"type":"nested","properties":{"author":{"type":"keyword"}}}
}}}}`

func quietLogger() *logger.Logger {
	l := logger.NewLogger()
	l.SetOutput(io.Discard)
	return l
}

func newBridge(t *testing.T, opts ...bridge.Option) (*bridge.Bridge, *searchtest.Transport) {
	t.Helper()
	tr := searchtest.New(search.Elasticsearch)
	tr.On(searchtest.MethodGetMapping, func(searchtest.Call) (*search.Response, error) {
		return searchtest.JSON(http.StatusOK, productsMapping), nil
	})
	b, err := bridge.New(tr, "products", append([]bridge.Option{bridge.WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return b, tr
}

func hit(id string, source string, sort ...any) map[string]any {
	h := map[string]any{
		"_index":  "products",
		"_id":     id,
		"_score":  1.0,
		"_source": json.RawMessage(source),
	}
	if len(sort) > 0 {
		h["sort"] = sort
	}
	return h
}

func hitsBody(hits ...map[string]any) map[string]any {
	if hits == nil {
		hits = []map[string]any{}
	}
	return map[string]any{
		"took":      3,
		"timed_out": false,
		"_shards":   map[string]any{"total": 1, "successful": 1, "failed": 0},
		"hits": map[string]any{
			"total":     map[string]any{"value": len(hits), "relation": "eq"},
			"max_score": 1.0,
			"hits":      hits,
		},
	}
}

func TestNewValidation(t *testing.T) {
	_, err := bridge.New(nil, "products")
	assert.ErrorIs(t, err, search.ErrNilClient)
	_, err = bridge.New(searchtest.New(search.OpenSearch), " ")
	assert.ErrorIs(t, err, bridge.ErrIndexRequired)
}

func TestFindClampsPageToWindow(t *testing.T) {
	b, tr := newBridge(t, bridge.WithMaxResultWindow(100))
	tr.Reply(searchtest.MethodSearch, http.StatusOK, hitsBody())

	res, err := b.Find(context.Background(), query.Descriptor{Options: query.Options{Skip: 90, Limit: 50}})
	require.NoError(t, err)
	assert.True(t, res.IsSuccessful())

	call, ok := tr.LastCall(searchtest.MethodSearch)
	require.True(t, ok)
	assert.Equal(t, "products", call.Index)
	body := call.JSONBody()
	assert.EqualValues(t, 90, body["from"])
	assert.EqualValues(t, 10, body["size"])
}

func TestFindDefaultsSizeToWindow(t *testing.T) {
	b, tr := newBridge(t, bridge.WithMaxResultWindow(250))
	tr.Reply(searchtest.MethodSearch, http.StatusOK, hitsBody())

	_, err := b.Find(context.Background(), query.Descriptor{})
	require.NoError(t, err)
	call, _ := tr.LastCall(searchtest.MethodSearch)
	assert.EqualValues(t, 250, call.JSONBody()["size"])
	assert.NotContains(t, call.JSONBody(), "from")
}

func TestFindSkipBeyondWindow(t *testing.T) {
	b, tr := newBridge(t, bridge.WithMaxResultWindow(100))

	res, err := b.Find(context.Background(), query.Descriptor{Options: query.Options{Skip: 100}})
	require.Error(t, err)
	assert.True(t, bridge.IsParamError(err))
	require.NotNil(t, res)
	assert.False(t, res.IsSuccessful())
	assert.Equal(t, http.StatusBadRequest, res.Err.Code)
	assert.Equal(t, bridge.ClassParam, res.Err.Class)
	assert.Empty(t, tr.Calls(searchtest.MethodSearch))
}

func TestFindSanitizesHits(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{
		"took": 5, "timed_out": false,
		"_shards": {"total": 2, "successful": 2, "failed": 0},
		"hits": {
			"total": {"value": 42, "relation": "gte"},
			"max_score": 2.5,
			"hits": [{
				"_index": "products-000001", "_id": "p1", "_score": 2.5,
				"_source": {"sku": "x1", "name": "Red Shoe", "price": 10},
				"sort": [10, "p1"],
				"highlight": {"name.keyword": ["<em>Red Shoe</em>"], "sku": ["<em>x1</em>"]},
				"inner_hits": {"comments": {"hits": {"hits": [
					{"_id": "p1", "_source": {"author": "ann"}}
				]}}}
			}]
		}
	}`)

	res, err := b.Find(context.Background(), query.Descriptor{
		Conditions: []query.Condition{query.Has("comments", nil, "", 0)},
		Stash:      map[string]any{"request": "r-1"},
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)

	assert.EqualValues(t, 42, res.Meta["total"])
	assert.Equal(t, "gte", res.Meta["total_relation"])
	assert.EqualValues(t, 5, res.Meta["took"])
	assert.Equal(t, false, res.Meta["timed_out"])

	rec := res.Data[0]
	assert.Equal(t, []string{"sku", "name", "price", "comments"}, rec.Fields.Keys())
	assert.Equal(t, "p1", rec.Meta.ID)
	assert.Equal(t, "products-000001", rec.Meta.Index)
	require.NotNil(t, rec.Meta.Score)
	assert.Equal(t, 2.5, *rec.Meta.Score)
	assert.Equal(t, []any{float64(10), "p1"}, rec.Meta.Sort)
	assert.Equal(t, map[string][]string{
		"name": {"<em>Red Shoe</em>"},
		"sku":  {"<em>x1</em>"},
	}, rec.Meta.Highlights)
	assert.Equal(t, "r-1", rec.Meta.Extra["request"])

	comments, ok := rec.Fields.Value("comments").([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, []map[string]any{{"author": "ann", "_id": "p1"}}, comments)
}

func TestHighlightKeywordKeptWhenBaseHighlighted(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"hits":{"hits":[{"_id":"1","_source":{},
		"highlight":{"name":["<em>a</em> b"],"name.keyword":["<em>a b</em>"]}}]}}`)

	res, err := b.Find(context.Background(), query.Descriptor{})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"name": {"<em>a</em> b"}}, res.Data[0].Meta.Highlights)
	assert.EqualValues(t, 1, res.Meta["total"])
}

func TestKeywordCacheBuiltOnceAndInvalidated(t *testing.T) {
	b, tr := newBridge(t)
	ctx := context.Background()
	desc := query.Descriptor{
		Conditions: []query.Condition{query.Where("name", query.OpEq, "Red Shoe")},
		Options:    query.Options{Sort: []query.Sort{{Field: "name", Direction: query.Desc}}},
	}

	for i := 0; i < 2; i++ {
		tr.Reply(searchtest.MethodSearch, http.StatusOK, hitsBody())
		_, err := b.Find(ctx, desc)
		require.NoError(t, err)
	}
	assert.Len(t, tr.Calls(searchtest.MethodGetMapping), 1)

	call, _ := tr.LastCall(searchtest.MethodSearch)
	assert.Contains(t, string(call.Body), `"name.keyword":{"order":"desc"}`)
	assert.Contains(t, string(call.Body), `"term":{"name.keyword":"Red Shoe"}`)

	b.InvalidateKeywordCache(ctx)
	tr.Reply(searchtest.MethodSearch, http.StatusOK, hitsBody())
	_, err := b.Find(ctx, desc)
	require.NoError(t, err)
	assert.Len(t, tr.Calls(searchtest.MethodGetMapping), 2)
}

func TestKeywordCacheFallsBackOnMappingFailure(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodGetMapping, http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index"}}`)
	tr.Reply(searchtest.MethodSearch, http.StatusOK, hitsBody())

	_, err := b.Find(context.Background(), query.Descriptor{Options: query.Options{Sort: []query.Sort{{Field: "name"}}}})
	require.NoError(t, err)
	call, _ := tr.LastCall(searchtest.MethodSearch)
	assert.Contains(t, string(call.Body), `{"name":{"order":"asc"}}`)
}

func TestSearchRequiresQueryOrConditions(t *testing.T) {
	b, tr := newBridge(t)
	_, err := b.Search(context.Background(), query.Descriptor{})
	assert.True(t, bridge.IsParamError(err))

	tr.Reply(searchtest.MethodSearch, http.StatusOK, hitsBody())
	_, err = b.Search(context.Background(), query.Descriptor{
		Options: query.Options{
			Search:    &query.SearchParams{Query: "red", Type: query.TypePhrasePrefix},
			Highlight: []string{"name"},
		},
	})
	require.NoError(t, err)
	call, _ := tr.LastCall(searchtest.MethodSearch)
	assert.Contains(t, string(call.Body), `"multi_match"`)
	assert.Contains(t, string(call.Body), `"highlight"`)
}

func TestSearchFailureReturnsQueryError(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodSearch, http.StatusBadRequest,
		`{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":400}`)

	ctx := ctxutil.SetQueryTag(context.Background(), "catalog")
	res, err := b.Find(ctx, query.Descriptor{})
	require.Error(t, err)

	var qe *bridge.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "find", qe.Op)
	assert.Equal(t, http.StatusBadRequest, qe.Status)
	assert.Equal(t, "search_phase_execution_exception", qe.Class)
	assert.Equal(t, "all shards failed", qe.Message)
	assert.NotNil(t, qe.Params)

	var te *search.TransportError
	assert.True(t, errors.As(err, &te))

	assert.Equal(t, "catalog.find", res.QueryTag)
	assert.Len(t, res.Data, 0)
	assert.Equal(t, http.StatusBadRequest, res.Err.Code)
}

func TestGetByID(t *testing.T) {
	b, tr := newBridge(t, bridge.WithSoftDeleteColumn("deleted_at"))
	tr.Reply(searchtest.MethodGet, http.StatusOK,
		`{"_index":"products","_id":"p1","_version":3,"found":true,"_source":{"name":"a","deleted_at":null}}`)

	res, err := b.GetByID(context.Background(), "p1", []string{"name"})
	require.NoError(t, err)
	require.NotNil(t, res.Data)
	assert.Equal(t, true, res.Meta["found"])
	assert.Equal(t, "p1", res.Data.ID())
	assert.Equal(t, []string{"name"}, res.Data.Fields.Keys())

	call, _ := tr.LastCall(searchtest.MethodGet)
	assert.Equal(t, []string{"name", "deleted_at"}, call.Includes)
	assert.Equal(t, "p1", call.ID)
}

func TestGetByIDSoftDeleted(t *testing.T) {
	b, tr := newBridge(t, bridge.WithSoftDeleteColumn("deleted_at"))
	tr.Reply(searchtest.MethodGet, http.StatusOK,
		`{"_index":"products","_id":"p1","found":true,"_source":{"name":"a","deleted_at":1700000000}}`)

	res, err := b.GetByID(context.Background(), "p1", nil)
	require.NoError(t, err)
	assert.True(t, res.IsSuccessful())
	assert.Nil(t, res.Data)
	assert.Equal(t, false, res.Meta["found"])

	call, _ := tr.LastCall(searchtest.MethodGet)
	assert.Nil(t, call.Includes)
}

func TestGetByIDNotFound(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodGet, http.StatusNotFound, `{"_index":"products","_id":"p9","found":false}`)

	res, err := b.GetByID(context.Background(), "p9", nil)
	require.NoError(t, err)
	assert.Nil(t, res.Data)
	assert.Equal(t, false, res.Meta["found"])

	tr.Reply(searchtest.MethodGet, http.StatusInternalServerError, `{"error":"boom"}`)
	res, err = b.GetByID(context.Background(), "p9", nil)
	require.Error(t, err)
	assert.False(t, bridge.IsNotFound(err))
	assert.Equal(t, http.StatusInternalServerError, res.Err.Code)

	_, err = b.GetByID(context.Background(), "", nil)
	assert.True(t, bridge.IsParamError(err))
}

func TestCount(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodCount, http.StatusOK, `{"count":17}`)

	res, err := b.Count(context.Background(), []query.Condition{query.Where("sku", query.OpIn, []string{"a", "b"})})
	require.NoError(t, err)
	assert.Equal(t, int64(17), res.Data)
	call, _ := tr.LastCall(searchtest.MethodCount)
	assert.JSONEq(t, `{"query":{"bool":{"filter":[{"terms":{"sku":["a","b"]}}]}}}`, string(call.Body))
}

func TestDistinctWithDocCount(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"aggregations":{"name.keyword":{"buckets":[
		{"key":"a","doc_count":2},
		{"key":"b","doc_count":1}
	]}}}`)

	res, err := b.Distinct(context.Background(), query.Descriptor{Columns: []string{"name"}}, true)
	require.NoError(t, err)
	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"a","name_count":2},{"name":"b","name_count":1}]`, string(out))

	call, _ := tr.LastCall(searchtest.MethodSearch)
	assert.Contains(t, string(call.Body), `"terms":{"field":"name.keyword","size":10000}`)
}

func TestDistinctNamesRowsAfterRequestedColumn(t *testing.T) {
	b, tr := newBridge(t, bridge.WithMaxBuckets(1000))
	tr.On(searchtest.MethodGetMapping, func(searchtest.Call) (*search.Response, error) {
		return searchtest.JSON(http.StatusOK, `{"products":{"mappings":{"properties":{
			"name":{"type":"text","fields":{"raw":{"type":"keyword"}}}
		}}}}`), nil
	})
	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"aggregations":{"name.raw":{
		"sum_other_doc_count":0,
		"buckets":[{"key":"a","doc_count":2}]
	}}}`)

	res, err := b.Distinct(context.Background(), query.Descriptor{Columns: []string{"name"}}, true)
	require.NoError(t, err)
	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"a","name_count":2}]`, string(out))
	assert.Equal(t, false, res.Meta["truncated"])

	call, _ := tr.LastCall(searchtest.MethodSearch)
	assert.Contains(t, string(call.Body), `"terms":{"field":"name.raw","size":1000}`)
}

func TestDistinctReportsTruncation(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"aggregations":{"sku":{
		"sum_other_doc_count":12,
		"buckets":[{"key":"x","doc_count":3}]
	}}}`)

	res, err := b.Distinct(context.Background(), query.Descriptor{Columns: []string{"sku"}}, false)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, true, res.Meta["truncated"])
	assert.Equal(t, 1, res.Meta["count"])
}

func TestDistinctFlattensDepthFirst(t *testing.T) {
	b, tr := newBridge(t)
	body := `{"aggregations":{"sku":{"buckets":[
		{"key":"x","doc_count":3,"color":{"buckets":[
			{"key":"red","doc_count":2},{"key":"blue","doc_count":1}
		]}},
		{"key":"y","doc_count":4,"color":{"buckets":[
			{"key":"red","doc_count":4}
		]}}
	]}}}`
	tr.On(searchtest.MethodSearch, func(searchtest.Call) (*search.Response, error) {
		return searchtest.JSON(http.StatusOK, body), nil
	})

	res, err := b.Distinct(context.Background(), query.Descriptor{Columns: []string{"sku", "color"}}, true)
	require.NoError(t, err)
	require.Len(t, res.Data, 3)

	var rows []map[string]any
	out, _ := json.Marshal(res.Data)
	require.NoError(t, json.Unmarshal(out, &rows))
	assert.Equal(t, "x", rows[0]["sku"])
	assert.Equal(t, "red", rows[0]["color"])
	assert.Equal(t, "blue", rows[1]["color"])
	assert.Equal(t, "y", rows[2]["sku"])

	sums := map[string]float64{}
	parents := map[string]float64{}
	for _, r := range rows {
		sku := r["sku"].(string)
		sums[sku] += r["color_count"].(float64)
		parents[sku] = r["sku_count"].(float64)
	}
	assert.Equal(t, parents, sums)

	res, err = b.Distinct(context.Background(), query.Descriptor{
		Columns: []string{"sku", "color"},
		Options: query.Options{Skip: 1, Limit: 1},
	}, false)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "blue", res.Data[0].Value("color"))
	assert.False(t, res.Data[0].Has("color_count"))
}

func TestAggregate(t *testing.T) {
	b, tr := newBridge(t)
	ctx := context.Background()

	tr.Reply(searchtest.MethodCount, http.StatusOK, `{"count":9}`)
	res, err := b.Aggregate(ctx, query.Aggregation{Function: query.FuncCount}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Data)

	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"aggregations":{"sum_price":{"value":12.5}}}`)
	res, err = b.Aggregate(ctx, query.Aggregation{Function: query.FuncSum, Columns: []string{"price"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, res.Data)

	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"aggregations":{"max_price":{"value":9},"max_qty":{"value":null}}}`)
	res, err = b.Aggregate(ctx, query.Aggregation{Function: query.FuncMax, Columns: []string{"price", "qty"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"max_price": float64(9), "max_qty": nil}, res.Data)

	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"aggregations":{"matrix":{"doc_count":3,"fields":[
		{"name":"price","count":3,"mean":2.0,"variance":1.0},
		{"name":"qty","count":3,"mean":5.0,"variance":0.5}
	]}}}`)
	res, err = b.Aggregate(ctx, query.Aggregation{Function: query.FuncMatrix, Columns: []string{"price", "qty"}}, nil)
	require.NoError(t, err)
	stats := res.Data.(map[string]any)
	assert.Equal(t, float64(3), stats["doc_count"])
	assert.Equal(t, 2.0, stats["price"].(map[string]any)["mean"])
	assert.NotContains(t, stats["qty"], "name")
}

func TestDistinctAggregate(t *testing.T) {
	b, tr := newBridge(t)
	tr.Reply(searchtest.MethodSearch, http.StatusOK, `{"aggregations":{"sku":{"buckets":[
		{"key":"x","doc_count":3,"avg_price":{"value":4}},
		{"key":"y","doc_count":1,"avg_price":{"value":2}}
	]}}}`)

	res, err := b.DistinctAggregate(context.Background(), query.Descriptor{},
		query.Aggregation{Function: query.FuncAvg, Columns: []string{"price"}}, []string{"sku"})
	require.NoError(t, err)
	out, _ := json.Marshal(res.Data)
	assert.Equal(t, `[{"sku":"x","avg_price":4},{"sku":"y","avg_price":2}]`, string(out))
}

func TestDistinctAggregateMatrixUnsupported(t *testing.T) {
	b, tr := newBridge(t)
	res, err := b.DistinctAggregate(context.Background(), query.Descriptor{},
		query.Aggregation{Function: query.FuncMatrix, Columns: []string{"price"}}, []string{"sku"})

	var qe *bridge.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, bridge.ClassUnsupported, qe.Class)
	assert.ErrorIs(t, err, query.ErrMatrixDistinct)
	assert.Equal(t, http.StatusNotImplemented, res.Err.Code)
	assert.Empty(t, tr.Calls(searchtest.MethodSearch))
}

// reporterFunc records reported errors
type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(_ context.Context, err error, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func TestFailuresReportedAndDiagnosed(t *testing.T) {
	rep := &recordingReporter{}
	collector := metrics.NewDataCollector()
	b, tr := newBridge(t,
		bridge.WithDiagnosticIndex("qb-logs"),
		bridge.WithErrorReporter(rep),
		bridge.WithCollector(collector),
	)
	tr.Reply(searchtest.MethodSearch, http.StatusInternalServerError,
		`{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":500}`)

	ctx := ctxutil.SetTraceID(context.Background(), "trace-1")
	_, err := b.Find(ctx, query.Descriptor{Conditions: []query.Condition{query.Where("password", query.OpEq, "hunter2")}})
	require.Error(t, err)

	calls := tr.Calls(searchtest.MethodIndex)
	require.Len(t, calls, 1)
	assert.Equal(t, "qb-logs", calls[0].Index)
	assert.NotEmpty(t, calls[0].ID)
	doc := calls[0].JSONBody()
	assert.Equal(t, "find", doc["query_tag"])
	assert.Equal(t, "trace-1", doc["trace_id"])
	assert.EqualValues(t, 500, doc["code"])
	assert.Equal(t, "search_phase_execution_exception", doc["class"])
	assert.Equal(t, "elasticsearch", doc["engine"])
	assert.Contains(t, doc, "@timestamp")
	assert.NotContains(t, string(calls[0].Body), "hunter2")

	rep.mu.Lock()
	assert.Len(t, rep.errs, 1)
	rep.mu.Unlock()

	stats := collector.GetStats()["search"].(map[string]any)
	assert.EqualValues(t, 1, stats["errors"])

	// client-side failures are not reported
	tr.Reply(searchtest.MethodSearch, http.StatusBadRequest, `{"error":{"type":"parsing_exception","reason":"bad"}}`)
	_, err = b.Find(ctx, query.Descriptor{})
	require.Error(t, err)
	rep.mu.Lock()
	assert.Len(t, rep.errs, 1)
	rep.mu.Unlock()
	assert.Len(t, tr.Calls(searchtest.MethodIndex), 2)
}

func TestDiagnosticWriteFailureSwallowed(t *testing.T) {
	b, tr := newBridge(t, bridge.WithDiagnosticIndex("qb-logs"))
	tr.Reply(searchtest.MethodCount, http.StatusInternalServerError, `{"error":"boom"}`)
	tr.Fail(searchtest.MethodIndex, errors.New("connection refused"))

	res, err := b.Count(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(res.Err.Message, "boom"))
}

func TestHealthThroughMonitor(t *testing.T) {
	b, tr := newBridge(t)
	collector := metrics.NewDataCollector()
	monitor := metrics.NewHealthMonitor(collector)
	monitor.RegisterComponent(metrics.CheckFunc{Component: "engine", Fn: b.Health})

	assert.Equal(t, map[string]bool{"engine": true}, monitor.CheckAll(context.Background()))

	tr.On(searchtest.MethodHealth, func(searchtest.Call) (*search.Response, error) {
		return nil, errors.New("connection refused")
	})
	assert.False(t, monitor.CheckComponent(context.Background(), "engine"))
	health := collector.GetStats()["health"].(map[string]bool)
	assert.False(t, health["engine"])
}
