// Package searchtest provides a scriptable in-memory search.Transport that
// records every call.
//
//	tr := searchtest.New(search.OpenSearch)
//	tr.Reply(searchtest.MethodSearch, 200, map[string]any{"hits": ...})
//	tr.On(searchtest.MethodGetMapping, func(c searchtest.Call) (*search.Response, error) { ... })
//
// Queued replies are consumed first in FIFO order, then the persistent
// handler for the method, then a default 200 "{}" response.
package searchtest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ncobase/querybridge/data/search"
)

// Method names used to script and inspect calls
const (
	MethodSearch        = "search"
	MethodCount         = "count"
	MethodGet           = "get"
	MethodIndex         = "index"
	MethodBulk          = "bulk"
	MethodDelete        = "delete"
	MethodDeleteByQuery = "delete_by_query"
	MethodOpenPit       = "open_pit"
	MethodClosePit      = "close_pit"
	MethodGetMapping    = "get_mapping"
	MethodCreateIndex   = "create_index"
	MethodDeleteIndex   = "delete_index"
	MethodIndexExists   = "index_exists"
	MethodPutMapping    = "put_mapping"
	MethodPutSettings   = "put_settings"
	MethodCloseIndex    = "close_index"
	MethodOpenIndex     = "open_index"
	MethodRefresh       = "refresh"
	MethodHealth        = "health"
)

// Call is one recorded transport call
type Call struct {
	Method    string
	Index     string
	ID        string
	Body      []byte
	Refresh   bool
	KeepAlive string
	Includes  []string
}

// JSONBody decodes the call body into a generic map
func (c Call) JSONBody() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(c.Body, &m)
	return m
}

// Handler answers a call
type Handler func(call Call) (*search.Response, error)

// Transport is a scriptable search.Transport
type Transport struct {
	mu       sync.Mutex
	engine   search.Engine
	queued   map[string][]Handler
	handlers map[string]Handler
	calls    []Call
}

var _ search.Transport = (*Transport)(nil)

// New creates a transport reporting the given engine
func New(engine search.Engine) *Transport {
	return &Transport{
		engine:   engine,
		queued:   make(map[string][]Handler),
		handlers: make(map[string]Handler),
	}
}

// JSON builds a response with v marshalled as body
func JSON(status int, v any) *search.Response {
	var body []byte
	switch b := v.(type) {
	case []byte:
		body = b
	case string:
		body = []byte(b)
	default:
		body, _ = json.Marshal(v)
	}
	return &search.Response{StatusCode: status, Body: body}
}

// On installs the persistent handler for method
func (t *Transport) On(method string, h Handler) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[method] = h
	return t
}

// Queue appends one-shot handlers for method
func (t *Transport) Queue(method string, hs ...Handler) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queued[method] = append(t.queued[method], hs...)
	return t
}

// Reply queues a one-shot response. Status >= 400 responses come with the
// matching *search.TransportError, as a real transport returns them.
func (t *Transport) Reply(method string, status int, body any) *Transport {
	return t.Queue(method, func(Call) (*search.Response, error) {
		return t.respond(status, body)
	})
}

// Fail queues a one-shot request failure without engine answer
func (t *Transport) Fail(method string, err error) *Transport {
	return t.Queue(method, func(Call) (*search.Response, error) {
		return nil, search.NewRequestError(t.engine, err)
	})
}

// Respond is a helper for handlers building a possibly failing response
func (t *Transport) Respond(status int, body any) (*search.Response, error) {
	return t.respond(status, body)
}

func (t *Transport) respond(status int, body any) (*search.Response, error) {
	resp := JSON(status, body)
	return resp, search.NewResponseError(t.engine, resp.StatusCode, resp.Body)
}

// Calls returns the recorded calls, filtered by method when given
func (t *Transport) Calls(methods ...string) []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(methods) == 0 {
		out := make([]Call, len(t.calls))
		copy(out, t.calls)
		return out
	}
	var out []Call
	for _, c := range t.calls {
		for _, m := range methods {
			if c.Method == m {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// LastCall returns the latest call of method
func (t *Transport) LastCall(method string) (Call, bool) {
	calls := t.Calls(method)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// Reset drops recorded calls and queued replies, keeping handlers
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
	t.queued = make(map[string][]Handler)
}

func (t *Transport) dispatch(ctx context.Context, c Call) (*search.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, search.NewRequestError(t.engine, err)
	}

	t.mu.Lock()
	c.Body = append([]byte(nil), c.Body...)
	t.calls = append(t.calls, c)
	var h Handler
	if q := t.queued[c.Method]; len(q) > 0 {
		h = q[0]
		t.queued[c.Method] = q[1:]
	} else {
		h = t.handlers[c.Method]
	}
	t.mu.Unlock()

	if h == nil {
		return &search.Response{StatusCode: http.StatusOK, Body: []byte("{}")}, nil
	}
	return h(c)
}

func (t *Transport) Engine() search.Engine { return t.engine }

func (t *Transport) Search(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodSearch, Index: index, Body: body})
}

func (t *Transport) Count(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodCount, Index: index, Body: body})
}

func (t *Transport) Get(ctx context.Context, index, id string, sourceIncludes []string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodGet, Index: index, ID: id, Includes: sourceIncludes})
}

func (t *Transport) Index(ctx context.Context, index, id string, body []byte, refresh bool) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodIndex, Index: index, ID: id, Body: body, Refresh: refresh})
}

func (t *Transport) Bulk(ctx context.Context, index string, body []byte, refresh bool) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodBulk, Index: index, Body: body, Refresh: refresh})
}

func (t *Transport) Delete(ctx context.Context, index, id string, refresh bool) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodDelete, Index: index, ID: id, Refresh: refresh})
}

func (t *Transport) DeleteByQuery(ctx context.Context, index string, body []byte, refresh bool) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodDeleteByQuery, Index: index, Body: body, Refresh: refresh})
}

func (t *Transport) OpenPointInTime(ctx context.Context, index, keepAlive string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodOpenPit, Index: index, KeepAlive: keepAlive})
}

func (t *Transport) ClosePointInTime(ctx context.Context, id string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodClosePit, ID: id})
}

func (t *Transport) GetMapping(ctx context.Context, index string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodGetMapping, Index: index})
}

func (t *Transport) CreateIndex(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodCreateIndex, Index: index, Body: body})
}

func (t *Transport) DeleteIndex(ctx context.Context, index string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodDeleteIndex, Index: index})
}

// IndexExists answers true unless the scripted status is 404
func (t *Transport) IndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := t.dispatch(ctx, Call{Method: MethodIndexExists, Index: index})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *Transport) PutMapping(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodPutMapping, Index: index, Body: body})
}

func (t *Transport) PutSettings(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodPutSettings, Index: index, Body: body})
}

func (t *Transport) CloseIndex(ctx context.Context, index string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodCloseIndex, Index: index})
}

func (t *Transport) OpenIndex(ctx context.Context, index string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodOpenIndex, Index: index})
}

func (t *Transport) Refresh(ctx context.Context, index string) (*search.Response, error) {
	return t.dispatch(ctx, Call{Method: MethodRefresh, Index: index})
}

func (t *Transport) Health(ctx context.Context) error {
	_, err := t.dispatch(ctx, Call{Method: MethodHealth})
	return err
}
