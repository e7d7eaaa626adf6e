package bridge

import (
	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/cache"
	"github.com/ncobase/querybridge/data/search"
)

// NewFromConfig creates a bridge for the configured engine and index. The
// engine package must be linked in (see data/search). The returned cleanup
// closes the shared mapping cache connection, if any.
func NewFromConfig(cfg *config.Search, opts ...Option) (*Bridge, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, search.ErrNoEngineAvailable
	}
	transport, err := search.NewTransport(cfg)
	if err != nil {
		return nil, noop, err
	}

	base := []Option{
		WithMaxResultWindow(cfg.MaxResultWindow),
		WithMaxBuckets(cfg.MaxBuckets),
		WithSoftDeleteColumn(cfg.SoftDeleteColumn),
		WithDiagnosticIndex(cfg.LogIndex),
		WithRefresh(cfg.Refresh),
	}
	b, err := New(transport, cfg.IndexName(), append(base, opts...)...)
	if err != nil {
		return nil, noop, err
	}

	cleanup := noop
	if b.mappings == nil {
		store, closeFn := cache.NewMappingStoreFromConfig(cfg.MappingCache, b.collector)
		if store != nil {
			b.mappings = store
			cleanup = closeFn
		}
	}
	return b, cleanup, nil
}
