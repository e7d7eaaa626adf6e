package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// SlowQueryThreshold marks a search request as slow
const SlowQueryThreshold = time.Second

// Collector receives query bridge metrics
type Collector interface {
	// SearchQuery records one read request (find, count, aggregate, pit...)
	SearchQuery(engine, operation string, duration time.Duration, err error)
	// SearchIndex records one write or admin request
	SearchIndex(engine, operation string, duration time.Duration, err error)
	// MappingCache records a keyword-mapping lookup served from a cache tier
	MappingCache(tier string, hit bool)
	HealthCheck(component string, healthy bool)
}

// NoOpCollector implements Collector with no-op methods
type NoOpCollector struct{}

func (NoOpCollector) SearchQuery(string, string, time.Duration, error) {}
func (NoOpCollector) SearchIndex(string, string, time.Duration, error) {}
func (NoOpCollector) MappingCache(string, bool)                        {}
func (NoOpCollector) HealthCheck(string, bool)                         {}

// DataCollector keeps in-process counters for the bridge
type DataCollector struct {
	searchQueries  atomic.Int64
	searchErrors   atomic.Int64
	slowQueries    atomic.Int64
	searchIndexOps atomic.Int64
	indexErrors    atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64

	lastSearchQuery atomic.Value // time.Time

	opsMu      sync.Mutex
	operations map[string]int64

	healthChecks map[string]*atomic.Bool
	healthMu     sync.RWMutex
}

// NewDataCollector creates a new in-memory collector
func NewDataCollector() *DataCollector {
	c := &DataCollector{
		operations:   make(map[string]int64),
		healthChecks: make(map[string]*atomic.Bool),
	}
	c.lastSearchQuery.Store(time.Time{})
	return c
}

// SearchQuery records search query metrics
func (c *DataCollector) SearchQuery(engine, operation string, duration time.Duration, err error) {
	c.searchQueries.Add(1)
	c.lastSearchQuery.Store(time.Now())

	if err != nil {
		c.searchErrors.Add(1)
	}
	if duration > SlowQueryThreshold {
		c.slowQueries.Add(1)
	}
	c.countOperation(engine, operation)
}

// SearchIndex records search index operation metrics
func (c *DataCollector) SearchIndex(engine, operation string, _ time.Duration, err error) {
	c.searchIndexOps.Add(1)
	if err != nil {
		c.indexErrors.Add(1)
	}
	c.countOperation(engine, operation)
}

// MappingCache records keyword-mapping cache lookups
func (c *DataCollector) MappingCache(_ string, hit bool) {
	if hit {
		c.cacheHits.Add(1)
		return
	}
	c.cacheMisses.Add(1)
}

// HealthCheck records health check metrics
func (c *DataCollector) HealthCheck(component string, healthy bool) {
	c.healthMu.Lock()
	if _, exists := c.healthChecks[component]; !exists {
		c.healthChecks[component] = &atomic.Bool{}
	}
	healthCheck := c.healthChecks[component]
	c.healthMu.Unlock()

	healthCheck.Store(healthy)
}

func (c *DataCollector) countOperation(engine, operation string) {
	c.opsMu.Lock()
	c.operations[engine+"."+operation]++
	c.opsMu.Unlock()
}

// Operations returns a copy of the per engine/operation counters
func (c *DataCollector) Operations() map[string]int64 {
	c.opsMu.Lock()
	defer c.opsMu.Unlock()
	out := make(map[string]int64, len(c.operations))
	for k, v := range c.operations {
		out[k] = v
	}
	return out
}

// GetStats returns current statistics
func (c *DataCollector) GetStats() map[string]any {
	c.healthMu.RLock()
	healthStatus := make(map[string]bool)
	for component, status := range c.healthChecks {
		healthStatus[component] = status.Load()
	}
	c.healthMu.RUnlock()

	return map[string]any{
		"search": map[string]any{
			"queries":      c.searchQueries.Load(),
			"errors":       c.searchErrors.Load(),
			"slow_queries": c.slowQueries.Load(),
			"index_ops":    c.searchIndexOps.Load(),
			"index_errors": c.indexErrors.Load(),
			"last_query":   c.lastSearchQuery.Load(),
			"operations":   c.Operations(),
		},
		"mapping_cache": map[string]any{
			"hits":   c.cacheHits.Load(),
			"misses": c.cacheMisses.Load(),
		},
		"health":    healthStatus,
		"timestamp": time.Now(),
	}
}
