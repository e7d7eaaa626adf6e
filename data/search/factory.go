package search

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ncobase/querybridge/config"
)

// TransportFactory creates a transport from search configuration
type TransportFactory func(cfg *config.Search) (Transport, error)

var (
	// Registry of transport factories by engine type
	transportFactories = make(map[Engine]TransportFactory)
	factoryMu          sync.RWMutex
)

// RegisterTransportFactory registers a factory for creating transports.
// This is called by engine packages in their init() functions.
func RegisterTransportFactory(engine Engine, factory TransportFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	transportFactories[engine] = factory
}

// GetTransportFactory returns the factory for a given engine
func GetTransportFactory(engine Engine) (TransportFactory, error) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := transportFactories[engine]
	if !ok {
		return nil, fmt.Errorf("%w: no transport factory registered for engine %q", ErrEngineNotFound, engine)
	}
	return factory, nil
}

// GetRegisteredEngines returns list of engines with registered factories
func GetRegisteredEngines() []Engine {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	engines := make([]Engine, 0, len(transportFactories))
	for engine := range transportFactories {
		engines = append(engines, engine)
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i] < engines[j] })
	return engines
}

// NewTransport creates the transport for the configured engine, wrapped in
// a circuit breaker when enabled.
func NewTransport(cfg *config.Search) (Transport, error) {
	if cfg == nil {
		return nil, ErrNoEngineAvailable
	}
	factory, err := GetTransportFactory(Engine(cfg.Engine))
	if err != nil {
		return nil, err
	}
	t, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create transport: %w", cfg.Engine, err)
	}
	if cfg.Breaker != nil && cfg.Breaker.Enabled {
		t = NewBreakerTransport(t, cfg.Breaker)
	}
	return t, nil
}
