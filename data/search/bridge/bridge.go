// Package bridge executes engine-agnostic query descriptors against an
// Elasticsearch or OpenSearch index and returns uniform result envelopes.
//
// A Bridge serves one index. Every operation builds its request with
// data/search/query, issues it through a search.Transport, and normalises
// the answer into a *results.Results. Failures are returned both as a
// typed error and inside the envelope:
//
//	res, err := b.Find(ctx, query.Descriptor{
//		Conditions: []query.Condition{query.Where("status", query.OpEq, "active")},
//		Options:    query.Options{Sort: []query.Sort{{Field: "name"}}, Limit: 20},
//	})
//
// A Bridge is safe to share, but it is not designed for overlapping
// logical operations on the same documents: UpdateMany and IncrementMany
// read then write and are not atomic.
package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ncobase/querybridge/data/cache"
	"github.com/ncobase/querybridge/data/metrics"
	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/logging/logger"
	"github.com/ncobase/querybridge/logging/observes"
)

// ErrIndexRequired is returned when a bridge is created without an index
var ErrIndexRequired = errors.New("index name required")

// Bridge runs queries against one index
type Bridge struct {
	transport  search.Transport
	index      string
	window     int
	maxBuckets int
	softDelete string
	diagIndex  string
	tieBreaker string
	refresh    bool

	logger    *logger.Logger
	collector metrics.Collector
	mappings  *cache.MappingStore
	reporter  observes.ErrorReporter

	kwMu     sync.Mutex
	keywords query.KeywordMap
	kwLoaded bool
}

// Option configures a Bridge
type Option func(*Bridge)

// WithMaxResultWindow sets the index result window, the largest from+size
func WithMaxResultWindow(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.window = n
		}
	}
}

// WithMaxBuckets sets the cluster's search.max_buckets, which bounds the
// per-level size of distinct requests
func WithMaxBuckets(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxBuckets = n
		}
	}
}

// WithSoftDeleteColumn sets the column whose truthy value hides a document
// from GetByID
func WithSoftDeleteColumn(column string) Option {
	return func(b *Bridge) { b.softDelete = strings.TrimSpace(column) }
}

// WithDiagnosticIndex sets the index receiving one document per failure
func WithDiagnosticIndex(index string) Option {
	return func(b *Bridge) { b.diagIndex = strings.TrimSpace(index) }
}

// WithPitTieBreaker overrides the point-in-time tie-break sort field
func WithPitTieBreaker(field string) Option {
	return func(b *Bridge) {
		if field != "" {
			b.tieBreaker = field
		}
	}
}

// WithRefresh sets the refresh policy of writes that take no explicit one
func WithRefresh(refresh bool) Option {
	return func(b *Bridge) { b.refresh = refresh }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCollector sets the metrics collector
func WithCollector(c metrics.Collector) Option {
	return func(b *Bridge) {
		if c != nil {
			b.collector = c
		}
	}
}

// WithMappingStore shares keyword mappings through a second-level cache
func WithMappingStore(s *cache.MappingStore) Option {
	return func(b *Bridge) { b.mappings = s }
}

// WithErrorReporter sets where engine failures are reported
func WithErrorReporter(r observes.ErrorReporter) Option {
	return func(b *Bridge) {
		if r != nil {
			b.reporter = r
		}
	}
}

// New creates a bridge for index over transport
func New(transport search.Transport, index string, opts ...Option) (*Bridge, error) {
	if transport == nil {
		return nil, search.ErrNilClient
	}
	index = strings.TrimSpace(index)
	if index == "" {
		return nil, ErrIndexRequired
	}

	b := &Bridge{
		transport:  transport,
		index:      index,
		window:     query.DefaultMaxResultWindow,
		tieBreaker: query.DefaultTieBreaker,
		logger:     logger.StdLogger(),
		collector:  metrics.NoOpCollector{},
		reporter:   observes.NoopReporter{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Index returns the index served by the bridge
func (b *Bridge) Index() string { return b.index }

// Engine returns the engine behind the transport
func (b *Bridge) Engine() search.Engine { return b.transport.Engine() }

// MaxResultWindow returns the effective result window
func (b *Bridge) MaxResultWindow() int { return b.window }

// Health pings the engine behind the transport
func (b *Bridge) Health(ctx context.Context) error {
	return b.transport.Health(ctx)
}
