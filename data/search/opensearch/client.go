// Package opensearch implements search.Transport on opensearch-go/v4.
// It registers itself when imported:
//
//	import _ "github.com/ncobase/querybridge/data/search/opensearch"
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/search"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

func init() {
	search.RegisterTransportFactory(search.OpenSearch, func(cfg *config.Search) (search.Transport, error) {
		if cfg.OpenSearch == nil {
			return nil, fmt.Errorf("opensearch: configuration is missing")
		}
		return NewClient(cfg.OpenSearch, WithTimeout(cfg.Timeout))
	})
}

const (
	contentJSON   = "application/json"
	contentNDJSON = "application/x-ndjson"
)

// Client OpenSearch transport
type Client struct {
	client  *opensearchapi.Client
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

// NewClient creates a new OpenSearch client
func NewClient(cfg *config.OpenSearch, opts ...Option) (*Client, error) {
	if cfg == nil || len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("opensearch: addresses are empty")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	transport := o.transport
	if transport == nil {
		// Configure transport with TLS options
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipTLS,
			},
		}
	}

	client, err := opensearchapi.NewClient(
		opensearchapi.Config{
			Client: opensearch.Config{
				Addresses:  cfg.Addresses,
				Username:   cfg.Username,
				Password:   cfg.Password,
				Transport:  transport,
				MaxRetries: 3,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("opensearch client creation error: %w", err)
	}

	return &Client{client: client, timeout: o.timeout}, nil
}

// Engine returns the engine family
func (c *Client) Engine() search.Engine { return search.OpenSearch }

// perform sends a raw request through the client's connection pool
func (c *Client) perform(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (*search.Response, error) {
	if c == nil || c.client == nil {
		return nil, search.NewRequestError(search.OpenSearch, search.ErrNilClient)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, search.NewRequestError(search.OpenSearch, err)
	}
	if body != nil {
		if contentType == "" {
			contentType = contentJSON
		}
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.client.Client.Perform(req)
	if err != nil {
		return nil, search.NewRequestError(search.OpenSearch, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(res.Body)

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, search.NewRequestError(search.OpenSearch, fmt.Errorf("read response body: %w", err))
	}

	resp := &search.Response{StatusCode: res.StatusCode, Body: data}
	return resp, search.NewResponseError(search.OpenSearch, res.StatusCode, data)
}

func indexPath(index string, parts ...string) string {
	var b strings.Builder
	if index != "" {
		b.WriteString("/")
		b.WriteString(url.PathEscape(index))
	}
	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func refreshQuery(refresh bool) url.Values {
	if !refresh {
		return nil
	}
	return url.Values{"refresh": []string{"true"}}
}

// Search runs a search request
func (c *Client) Search(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.perform(ctx, http.MethodPost, indexPath(index, "_search"), nil, body, "")
}

// Count runs a count request
func (c *Client) Count(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.perform(ctx, http.MethodPost, indexPath(index, "_count"), nil, body, "")
}

// Get fetches one document
func (c *Client) Get(ctx context.Context, index, id string, sourceIncludes []string) (*search.Response, error) {
	var q url.Values
	if len(sourceIncludes) > 0 {
		q = url.Values{"_source_includes": []string{strings.Join(sourceIncludes, ",")}}
	}
	return c.perform(ctx, http.MethodGet, indexPath(index, "_doc", url.PathEscape(id)), q, nil, "")
}

// Index creates or replaces a document
func (c *Client) Index(ctx context.Context, index, id string, body []byte, refresh bool) (*search.Response, error) {
	if id == "" {
		return c.perform(ctx, http.MethodPost, indexPath(index, "_doc"), refreshQuery(refresh), body, "")
	}
	return c.perform(ctx, http.MethodPut, indexPath(index, "_doc", url.PathEscape(id)), refreshQuery(refresh), body, "")
}

// Bulk sends an NDJSON bulk body
func (c *Client) Bulk(ctx context.Context, index string, body []byte, refresh bool) (*search.Response, error) {
	return c.perform(ctx, http.MethodPost, indexPath(index, "_bulk"), refreshQuery(refresh), body, contentNDJSON)
}

// Delete deletes one document
func (c *Client) Delete(ctx context.Context, index, id string, refresh bool) (*search.Response, error) {
	return c.perform(ctx, http.MethodDelete, indexPath(index, "_doc", url.PathEscape(id)), refreshQuery(refresh), nil, "")
}

// DeleteByQuery deletes matching documents
func (c *Client) DeleteByQuery(ctx context.Context, index string, body []byte, refresh bool) (*search.Response, error) {
	q := url.Values{"refresh": []string{fmt.Sprint(refresh)}}
	return c.perform(ctx, http.MethodPost, indexPath(index, "_delete_by_query"), q, body, "")
}

// OpenPointInTime opens a point in time, answered as {"pit_id": ...}
func (c *Client) OpenPointInTime(ctx context.Context, index, keepAlive string) (*search.Response, error) {
	q := url.Values{"keep_alive": []string{keepAlive}}
	return c.perform(ctx, http.MethodPost, indexPath(index, "_search", "point_in_time"), q, nil, "")
}

// ClosePointInTime releases a point in time
func (c *Client) ClosePointInTime(ctx context.Context, id string) (*search.Response, error) {
	body, err := json.Marshal(map[string][]string{"pit_id": {id}})
	if err != nil {
		return nil, search.NewRequestError(search.OpenSearch, err)
	}
	return c.perform(ctx, http.MethodDelete, "/_search/point_in_time", nil, body, "")
}

// GetMapping returns the index mapping
func (c *Client) GetMapping(ctx context.Context, index string) (*search.Response, error) {
	return c.perform(ctx, http.MethodGet, indexPath(index, "_mapping"), nil, nil, "")
}

// CreateIndex creates an index
func (c *Client) CreateIndex(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.perform(ctx, http.MethodPut, indexPath(index), nil, body, "")
}

// DeleteIndex deletes an index
func (c *Client) DeleteIndex(ctx context.Context, index string) (*search.Response, error) {
	return c.perform(ctx, http.MethodDelete, indexPath(index), nil, nil, "")
}

// IndexExists checks for an index, a 404 answer means false
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := c.perform(ctx, http.MethodHead, indexPath(index), nil, nil, "")
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
	return c.perform(ctx, http.MethodPut, indexPath(index, "_mapping"), nil, body, "")
}

// PutSettings updates index settings
func (c *Client) PutSettings(ctx context.Context, index string, body []byte) (*search.Response, error) {
	return c.perform(ctx, http.MethodPut, indexPath(index, "_settings"), nil, body, "")
}

// CloseIndex closes an index
func (c *Client) CloseIndex(ctx context.Context, index string) (*search.Response, error) {
	return c.perform(ctx, http.MethodPost, indexPath(index, "_close"), nil, nil, "")
}

// OpenIndex opens an index
func (c *Client) OpenIndex(ctx context.Context, index string) (*search.Response, error) {
	return c.perform(ctx, http.MethodPost, indexPath(index, "_open"), nil, nil, "")
}

// Refresh refreshes an index
func (c *Client) Refresh(ctx context.Context, index string) (*search.Response, error) {
	return c.perform(ctx, http.MethodPost, indexPath(index, "_refresh"), nil, nil, "")
}

// Health checks the cluster health
func (c *Client) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return search.NewRequestError(search.OpenSearch, search.ErrNilClient)
	}

	resp, err := c.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{})
	if err != nil {
		return search.NewRequestError(search.OpenSearch, err)
	}
	if resp.Status == "red" {
		return &search.TransportError{
			Engine: search.OpenSearch,
			Type:   "cluster_health",
			Reason: "cluster status is red",
			Class:  "cluster_health",
		}
	}
	return nil
}
