// Package elastic implements search.Transport on go-elasticsearch/v8.
// It registers itself when imported:
//
//	import _ "github.com/ncobase/querybridge/data/search/elastic"
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/search"
)

func init() {
	search.RegisterTransportFactory(search.Elasticsearch, func(cfg *config.Search) (search.Transport, error) {
		if cfg.Elasticsearch == nil {
			return nil, fmt.Errorf("elasticsearch: configuration is missing")
		}
		return NewClient(cfg.Elasticsearch, WithTimeout(cfg.Timeout))
	})
}

// Client Elasticsearch transport
type Client struct {
	client  *elasticsearch.Client
	timeout time.Duration
}

// Option configures the client
type Option func(*options)

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRoundTripper replaces the HTTP transport
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// NewClient new Elasticsearch client
func NewClient(cfg *config.Elasticsearch, opts ...Option) (*Client, error) {
	if cfg == nil || len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch: addresses are empty")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
		Transport:  o.transport,
		MaxRetries: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client creation error: %w", err)
	}

	return &Client{client: es, timeout: o.timeout}, nil
}

// Engine returns the engine family
func (c *Client) Engine() search.Engine { return search.Elasticsearch }

// do runs the request and reads the whole body
func (c *Client) do(ctx context.Context, req esapi.Request) (*search.Response, error) {
	if c == nil || c.client == nil {
		return nil, search.NewRequestError(search.Elasticsearch, search.ErrNilClient)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, search.NewRequestError(search.Elasticsearch, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(res.Body)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, search.NewRequestError(search.Elasticsearch, fmt.Errorf("read response body: %w", err))
	}

	resp := &search.Response{StatusCode: res.StatusCode, Body: body}
	return resp, search.NewResponseError(search.Elasticsearch, res.StatusCode, body)
}

func refreshParam(refresh bool) string {
	if refresh {
		return "true"
	}
	return ""
}

func indices(index string) []string {
	if index == "" {
		return nil
	}
	return []string{index}
}

// Search runs a search request
func (c *Client) Search(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.do(ctx, esapi.SearchRequest{
		Index: indices(index),
		Body:  bytes.NewReader(body),
	})
}

// Count runs a count request
func (c *Client) Count(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.do(ctx, esapi.CountRequest{
		Index: indices(index),
		Body:  bytes.NewReader(body),
	})
}

// Get fetches one document
func (c *Client) Get(ctx context.Context, index, id string, sourceIncludes []string) (*search.Response, error) {
	return c.do(ctx, esapi.GetRequest{
		Index:          index,
		DocumentID:     id,
		SourceIncludes: sourceIncludes,
	})
}

// Index creates or replaces a document
func (c *Client) Index(ctx context.Context, index, id string, body []byte, refresh bool) (*search.Response, error) {
	return c.do(ctx, esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Refresh:    refreshParam(refresh),
	})
}

// Bulk sends an NDJSON bulk body
func (c *Client) Bulk(ctx context.Context, index string, body []byte, refresh bool) (*search.Response, error) {
	return c.do(ctx, esapi.BulkRequest{
		Index:   index,
		Body:    bytes.NewReader(body),
		Refresh: refreshParam(refresh),
	})
}

// Delete deletes one document
func (c *Client) Delete(ctx context.Context, index, id string, refresh bool) (*search.Response, error) {
	return c.do(ctx, esapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
		Refresh:    refreshParam(refresh),
	})
}

// DeleteByQuery deletes matching documents
func (c *Client) DeleteByQuery(ctx context.Context, index string, body []byte, refresh bool) (*search.Response, error) {
	return c.do(ctx, esapi.DeleteByQueryRequest{
		Index:   []string{index},
		Body:    bytes.NewReader(body),
		Refresh: &refresh,
	})
}

// OpenPointInTime opens a point in time, answered as {"id": ...}
func (c *Client) OpenPointInTime(ctx context.Context, index, keepAlive string) (*search.Response, error) {
	return c.do(ctx, esapi.OpenPointInTimeRequest{
		Index:     []string{index},
		KeepAlive: keepAlive,
	})
}

// ClosePointInTime releases a point in time
func (c *Client) ClosePointInTime(ctx context.Context, id string) (*search.Response, error) {
	body, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, search.NewRequestError(search.Elasticsearch, err)
	}
	return c.do(ctx, esapi.ClosePointInTimeRequest{Body: bytes.NewReader(body)})
}

// GetMapping returns the index mapping
func (c *Client) GetMapping(ctx context.Context, index string) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesGetMappingRequest{Index: []string{index}})
}

// CreateIndex creates an index
func (c *Client) CreateIndex(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesCreateRequest{Index: index, Body: bytes.NewReader(body)})
}

// DeleteIndex deletes an index
func (c *Client) DeleteIndex(ctx context.Context, index string) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesDeleteRequest{Index: []string{index}})
}

// IndexExists checks for an index, a 404 answer means false
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := c.do(ctx, esapi.IndicesExistsRequest{Index: []string{index}})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PutMapping updates the index mapping
func (c *Client) PutMapping(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesPutMappingRequest{Index: []string{index}, Body: bytes.NewReader(body)})
}

// PutSettings updates index settings
func (c *Client) PutSettings(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesPutSettingsRequest{Index: []string{index}, Body: bytes.NewReader(body)})
}

// CloseIndex closes an index
func (c *Client) CloseIndex(ctx context.Context, index string) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesCloseRequest{Index: []string{index}})
}

// OpenIndex opens an index
func (c *Client) OpenIndex(ctx context.Context, index string) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesOpenRequest{Index: []string{index}})
}

// Refresh refreshes an index
func (c *Client) Refresh(ctx context.Context, index string) (*search.Response, error) {
	return c.do(ctx, esapi.IndicesRefreshRequest{Index: indices(index)})
}

// Health checks that the cluster answers
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, esapi.InfoRequest{})
	return err
}
