package cache

import (
	"context"
	"time"

	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/metrics"
	"github.com/redis/go-redis/v9"
)

// KeywordMapping maps a field to the field that holds its exact-match value
type KeywordMapping map[string]string

// MappingStore shares keyword mappings between processes. Entries expire
// after the configured TTL so mapping changes are eventually picked up.
type MappingStore struct {
	cache *Cache[KeywordMapping]
	ttl   time.Duration
}

// NewMappingStore creates a store on an existing redis client
func NewMappingStore(rc redis.UniversalClient, prefix string, ttl time.Duration, collector metrics.Collector) *MappingStore {
	if prefix == "" {
		prefix = "querybridge:mapping"
	}
	return &MappingStore{
		cache: NewCacheWithMetrics[KeywordMapping](rc, prefix, collector),
		ttl:   ttl,
	}
}

// NewMappingStoreFromConfig dials redis from config. It returns nil when
// the mapping cache is disabled.
func NewMappingStoreFromConfig(cfg *config.MappingCache, collector metrics.Collector) (*MappingStore, func() error) {
	if cfg == nil || !cfg.Enabled || cfg.Addr == "" {
		return nil, func() error { return nil }
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewMappingStore(rc, "", cfg.TTL, collector), rc.Close
}

// Load returns the mapping cached for index, ok is false on miss
func (s *MappingStore) Load(ctx context.Context, index string) (map[string]string, bool, error) {
	m, err := s.cache.Get(ctx, index)
	if err != nil || m == nil {
		return nil, false, err
	}
	return *m, true, nil
}

// Store caches the mapping for index
func (s *MappingStore) Store(ctx context.Context, index string, mapping map[string]string) error {
	m := KeywordMapping(mapping)
	return s.cache.Set(ctx, index, &m, s.ttl)
}

// Invalidate drops the cached mapping for index
func (s *MappingStore) Invalidate(ctx context.Context, index string) error {
	return s.cache.Delete(ctx, index)
}
