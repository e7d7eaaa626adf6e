package opensearch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method      string
	Path        string
	Query       string
	Body        string
	ContentType string
}

type fakeRoundTripper struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func (f *fakeRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method:      req.Method,
		Path:        req.URL.Path,
		Query:       req.URL.RawQuery,
		Body:        string(body),
		ContentType: req.Header.Get("Content-Type"),
	})
	f.mu.Unlock()

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
		Request:    req,
	}, nil
}

func (f *fakeRoundTripper) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, rt *fakeRoundTripper) *Client {
	t.Helper()
	c, err := NewClient(&config.OpenSearch{Addresses: []string{"https://os.local:9200"}}, WithRoundTripper(rt))
	require.NoError(t, err)
	return c
}

func TestSearch_Path(t *testing.T) {
	rt := &fakeRoundTripper{body: `{"took":1}`}
	c := newTestClient(t, rt)

	resp, err := c.Search(context.Background(), "users", []byte(`{"size":0}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"took":1}`, string(resp.Body))

	req := rt.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/users/_search", req.Path)
	assert.Equal(t, "application/json", req.ContentType)
}

func TestSearch_PointInTimeWithoutIndex(t *testing.T) {
	rt := &fakeRoundTripper{body: `{}`}
	c := newTestClient(t, rt)

	_, err := c.Search(context.Background(), "", []byte(`{"pit":{"id":"p"}}`))
	require.NoError(t, err)
	assert.Equal(t, "/_search", rt.last().Path)
}

func TestBulk_NDJSON(t *testing.T) {
	rt := &fakeRoundTripper{body: `{"errors":false,"items":[]}`}
	c := newTestClient(t, rt)

	_, err := c.Bulk(context.Background(), "users", []byte("{\"index\":{}}\n{}\n"), true)
	require.NoError(t, err)
	req := rt.last()
	assert.Equal(t, "/users/_bulk", req.Path)
	assert.Equal(t, "refresh=true", req.Query)
	assert.Equal(t, "application/x-ndjson", req.ContentType)
}

func TestGet_SourceIncludes(t *testing.T) {
	rt := &fakeRoundTripper{body: `{"found":true,"_source":{}}`}
	c := newTestClient(t, rt)

	_, err := c.Get(context.Background(), "users", "a/b", []string{"name", "deleted"})
	require.NoError(t, err)
	req := rt.last()
	assert.Equal(t, "/users/_doc/a/b", req.Path)
	assert.Contains(t, req.Query, "_source_includes=name%2Cdeleted")
}

func TestGet_NotFound(t *testing.T) {
	rt := &fakeRoundTripper{status: http.StatusNotFound, body: `{"_index":"users","_id":"1","found":false}`}
	c := newTestClient(t, rt)

	resp, err := c.Get(context.Background(), "users", "1", nil)
	require.NotNil(t, resp)
	var te *search.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.IsNotFound())
}

func TestPointInTime(t *testing.T) {
	rt := &fakeRoundTripper{body: `{"pit_id":"p-1"}`}
	c := newTestClient(t, rt)

	_, err := c.OpenPointInTime(context.Background(), "users", "2m")
	require.NoError(t, err)
	req := rt.last()
	assert.Equal(t, "/users/_search/point_in_time", req.Path)
	assert.Equal(t, "keep_alive=2m", req.Query)

	_, err = c.ClosePointInTime(context.Background(), "p-1")
	require.NoError(t, err)
	req = rt.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/_search/point_in_time", req.Path)
	assert.JSONEq(t, `{"pit_id":["p-1"]}`, req.Body)
}

func TestIndexExists(t *testing.T) {
	rt := &fakeRoundTripper{status: http.StatusNotFound}
	c := newTestClient(t, rt)

	ok, err := c.IndexExists(context.Background(), "users")
	require.NoError(t, err)
	assert.False(t, ok)

	rt.status = http.StatusOK
	ok, err = c.IndexExists(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, http.MethodHead, rt.last().Method)
}

func TestAdminPaths(t *testing.T) {
	rt := &fakeRoundTripper{body: `{"acknowledged":true}`}
	c := newTestClient(t, rt)
	ctx := context.Background()

	cases := []struct {
		call   func() (*search.Response, error)
		method string
		path   string
	}{
		{func() (*search.Response, error) { return c.CreateIndex(ctx, "users", []byte(`{}`)) }, http.MethodPut, "/users"},
		{func() (*search.Response, error) { return c.PutMapping(ctx, "users", []byte(`{}`)) }, http.MethodPut, "/users/_mapping"},
		{func() (*search.Response, error) { return c.PutSettings(ctx, "users", []byte(`{}`)) }, http.MethodPut, "/users/_settings"},
		{func() (*search.Response, error) { return c.CloseIndex(ctx, "users") }, http.MethodPost, "/users/_close"},
		{func() (*search.Response, error) { return c.OpenIndex(ctx, "users") }, http.MethodPost, "/users/_open"},
		{func() (*search.Response, error) { return c.Refresh(ctx, "users") }, http.MethodPost, "/users/_refresh"},
		{func() (*search.Response, error) { return c.GetMapping(ctx, "users") }, http.MethodGet, "/users/_mapping"},
		{func() (*search.Response, error) { return c.DeleteIndex(ctx, "users") }, http.MethodDelete, "/users"},
	}
	for _, tc := range cases {
		_, err := tc.call()
		require.NoError(t, err)
		req := rt.last()
		assert.Equal(t, tc.method, req.Method, tc.path)
		assert.Equal(t, tc.path, req.Path)
	}
}

func TestErrorStatus(t *testing.T) {
	rt := &fakeRoundTripper{status: http.StatusConflict, body: `{"error":{"type":"version_conflict_engine_exception","reason":"conflict"},"status":409}`}
	c := newTestClient(t, rt)

	_, err := c.Index(context.Background(), "users", "1", []byte(`{}`), false)
	var te *search.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusConflict, te.StatusCode)
	assert.Equal(t, "version_conflict_engine_exception", te.Class)
}
