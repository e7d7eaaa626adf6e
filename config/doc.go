// Package config loads query bridge configuration with Viper, supporting
// YAML, JSON and TOML files, environment overrides and hot reloading.
//
// The configuration is split into three sections:
//   - data.search: engine selection, index naming, result window,
//     soft-delete column, diagnostic log index, circuit breaker and the
//     shared keyword-mapping cache
//   - logger: level, format, output and desensitization of logged params
//   - observes: OpenTelemetry tracer and Sentry
//
// Example YAML:
//
//	app_name: catalog
//	data:
//	  search:
//	    engine: opensearch
//	    index: products
//	    max_result_window: 10000
//	    soft_delete_column: deleted
//	    log_index: catalog-query-log
//	    opensearch:
//	      addresses: ["https://localhost:9200"]
//	      insecure_skip_tls: true
//
// Engine credentials are read from data.search.<engine>.* first and fall
// back to the older data.<engine>.* keys.
//
// Environment variables prefixed with QUERYBRIDGE_ override file values:
//
//	export QUERYBRIDGE_DATA_SEARCH_INDEX=products_v2
//
// Watch reloads the file and invokes a callback on change:
//
//	config.Watch(func(cfg *config.Config) {
//	    log.Println("configuration reloaded")
//	})
package config
