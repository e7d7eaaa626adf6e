package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports bridge metrics through a prometheus registerer
type PrometheusCollector struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	mappingLookup *prometheus.CounterVec
	health        *prometheus.GaugeVec
}

// NewPrometheusCollector creates the collector and registers it on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(namespace string, reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "querybridge"
	}

	c := &PrometheusCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Search engine requests issued by the bridge.",
		}, []string{"engine", "kind", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of bridge operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"engine", "kind", "operation"}),
		mappingLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mapping_cache_lookups_total",
			Help:      "Keyword mapping cache lookups.",
		}, []string{"tier", "result"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_healthy",
			Help:      "1 when the component passed its last health check.",
		}, []string{"component"}),
	}

	for _, col := range []prometheus.Collector{c.requests, c.duration, c.mappingLookup, c.health} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *PrometheusCollector) observe(kind, engine, operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.requests.WithLabelValues(engine, kind, operation, status).Inc()
	c.duration.WithLabelValues(engine, kind, operation).Observe(duration.Seconds())
}

// SearchQuery records a read request
func (c *PrometheusCollector) SearchQuery(engine, operation string, duration time.Duration, err error) {
	c.observe("query", engine, operation, duration, err)
}

// SearchIndex records a write or admin request
func (c *PrometheusCollector) SearchIndex(engine, operation string, duration time.Duration, err error) {
	c.observe("index", engine, operation, duration, err)
}

// MappingCache records a keyword mapping lookup
func (c *PrometheusCollector) MappingCache(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.mappingLookup.WithLabelValues(tier, result).Inc()
}

// HealthCheck records a component health check
func (c *PrometheusCollector) HealthCheck(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	c.health.WithLabelValues(component).Set(v)
}
