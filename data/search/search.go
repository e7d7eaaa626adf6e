// Package search defines the transport between the query bridge and a
// document search engine. Engine packages register a TransportFactory in
// their init() functions:
//
//	import _ "github.com/ncobase/querybridge/data/search/elastic"
//	import _ "github.com/ncobase/querybridge/data/search/opensearch"
//
// Every request and response body is raw JSON (NDJSON for bulk). A response
// with status >= 400 is returned together with a *TransportError.
package search

import (
	"context"
	"errors"
)

var (
	ErrNoEngineAvailable = errors.New("no search engine available")
	ErrEngineNotFound    = errors.New("search engine not found")
	ErrNilClient         = errors.New("search client is nil")
)

// Engine names a search engine family
type Engine string

const (
	Elasticsearch Engine = "elasticsearch"
	OpenSearch    Engine = "opensearch"
)

// Response is a raw engine response
type Response struct {
	StatusCode int
	Body       []byte
}

// IsError reports whether the engine answered with an error status
func (r *Response) IsError() bool {
	return r != nil && r.StatusCode >= 400
}

// Transport issues requests to one engine cluster. Implementations must be
// safe for concurrent use.
type Transport interface {
	Engine() Engine

	// Search runs a search body. An empty index targets all indices, which is
	// how point-in-time searches are sent.
	Search(ctx context.Context, index string, body []byte) (*Response, error)
	Count(ctx context.Context, index string, body []byte) (*Response, error)
	Get(ctx context.Context, index, id string, sourceIncludes []string) (*Response, error)

	// Index creates or replaces a document. An empty id lets the engine assign one.
	Index(ctx context.Context, index, id string, body []byte, refresh bool) (*Response, error)
	Bulk(ctx context.Context, index string, body []byte, refresh bool) (*Response, error)
	Delete(ctx context.Context, index, id string, refresh bool) (*Response, error)
	DeleteByQuery(ctx context.Context, index string, body []byte, refresh bool) (*Response, error)

	OpenPointInTime(ctx context.Context, index, keepAlive string) (*Response, error)
	ClosePointInTime(ctx context.Context, id string) (*Response, error)

	GetMapping(ctx context.Context, index string) (*Response, error)
	CreateIndex(ctx context.Context, index string, body []byte) (*Response, error)
	DeleteIndex(ctx context.Context, index string) (*Response, error)
	IndexExists(ctx context.Context, index string) (bool, error)
	PutMapping(ctx context.Context, index string, body []byte) (*Response, error)
	PutSettings(ctx context.Context, index string, body []byte) (*Response, error)
	CloseIndex(ctx context.Context, index string) (*Response, error)
	OpenIndex(ctx context.Context, index string) (*Response, error)
	Refresh(ctx context.Context, index string) (*Response, error)

	Health(ctx context.Context) error
}
