package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestSearchEngineConfigs_PreferDataSearchNamespace(t *testing.T) {
	v := viper.New()

	v.Set("data.elasticsearch.addresses", []string{"http://legacy:9200"})
	v.Set("data.elasticsearch.username", "legacy-user")
	v.Set("data.elasticsearch.password", "legacy-pass")

	v.Set("data.search.elasticsearch.addresses", []string{"http://search:9200"})
	v.Set("data.search.elasticsearch.username", "search-user")
	v.Set("data.search.elasticsearch.password", "search-pass")

	es := getElasticsearchConfigs(v)
	if len(es.Addresses) != 1 || es.Addresses[0] != "http://search:9200" {
		t.Fatalf("expected addresses from data.search.elasticsearch, got %v", es.Addresses)
	}
	if es.Username != "search-user" || es.Password != "search-pass" {
		t.Fatalf("expected credentials from data.search.elasticsearch, got %q/%q", es.Username, es.Password)
	}
}

func TestSearchEngineConfigs_FallbackToLegacyNamespace(t *testing.T) {
	v := viper.New()

	v.Set("data.opensearch.addresses", []string{"http://legacy:9200"})
	v.Set("data.opensearch.insecure_skip_tls", true)

	osc := getOpenSearchConfigs(v)
	if len(osc.Addresses) != 1 || osc.Addresses[0] != "http://legacy:9200" {
		t.Fatalf("expected addresses from data.opensearch, got %v", osc.Addresses)
	}
	if !osc.InsecureSkipTLS {
		t.Fatal("expected insecure_skip_tls from data.opensearch")
	}
}

func TestSearchConfig_Defaults(t *testing.T) {
	v := viper.New()
	v.Set("app_name", "Catalog")
	v.Set("run_mode", "dev")
	v.Set("data.search.index", "products")

	s := getSearchConfig(v)
	if s.Engine != EngineElasticsearch {
		t.Fatalf("expected default engine %q, got %q", EngineElasticsearch, s.Engine)
	}
	if s.MaxResultWindow != DefaultMaxResultWindow {
		t.Fatalf("expected default window, got %d", s.MaxResultWindow)
	}
	if s.MaxBuckets != 0 {
		t.Fatalf("expected engine default buckets, got %d", s.MaxBuckets)
	}
	if s.IndexName() != "catalog-dev-products" {
		t.Fatalf("unexpected index name %q", s.IndexName())
	}
	if s.Breaker.Enabled || s.Breaker.FailureRatio != 0.6 || s.Breaker.MinRequests != 3 {
		t.Fatalf("unexpected breaker defaults %+v", s.Breaker)
	}
	if s.MappingCache.TTL != 10*time.Minute {
		t.Fatalf("unexpected mapping cache ttl %v", s.MappingCache.TTL)
	}
}

func TestSearchConfig_MaxBuckets(t *testing.T) {
	v := viper.New()
	v.Set("data.search.max_buckets", 20000)

	if s := getSearchConfig(v); s.MaxBuckets != 20000 {
		t.Fatalf("expected max_buckets 20000, got %d", s.MaxBuckets)
	}
}

func TestSearchConfig_DefaultEngineKey(t *testing.T) {
	v := viper.New()
	v.Set("data.search.default_engine", "OpenSearch")

	if got := getSearchEngine(v); got != EngineOpenSearch {
		t.Fatalf("expected opensearch, got %q", got)
	}
}

func TestMappingCache_FallbackToRedis(t *testing.T) {
	v := viper.New()
	v.Set("data.redis.addr", "localhost:6379")
	v.Set("data.redis.db", 2)
	v.Set("data.search.mapping_cache.enabled", true)

	mc := getMappingCacheConfig(v)
	if !mc.Enabled || mc.Addr != "localhost:6379" || mc.DB != 2 {
		t.Fatalf("unexpected mapping cache config %+v", mc)
	}
}

func TestLoggerConfig_DefaultDesensitization(t *testing.T) {
	l := getLoggerConfig(viper.New())
	if l.Desensitization == nil || !l.Desensitization.Enabled {
		t.Fatal("expected desensitization enabled by default")
	}
	if l.Format != "json" || l.Output != "stdout" {
		t.Fatalf("unexpected logger defaults %q/%q", l.Format, l.Output)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := []byte(`
app_name: catalog
data:
  search:
    engine: opensearch
    index: products
    soft_delete_column: deleted
    log_index: catalog-query-log
observes:
  sentry:
    dsn: https://key@sentry.example.com/1
`)
	if err := os.WriteFile(file, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Search.Engine != EngineOpenSearch || cfg.Search.SoftDeleteColumn != "deleted" {
		t.Fatalf("unexpected search config %+v", cfg.Search)
	}
	if cfg.Search.LogIndex != "catalog-query-log" {
		t.Fatalf("unexpected log index %q", cfg.Search.LogIndex)
	}
	if cfg.Observes.Sentry.Endpoint == "" {
		t.Fatal("expected sentry dsn to be read")
	}
}

func TestReload_PicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	write := func(index string) {
		t.Helper()
		body := "data:\n  search:\n    index_prefix: \"\"\n    index: " + index + "\n"
		if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}

	write("products")
	if _, err := LoadConfig(file); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := GetConfig().Search.IndexName(); got != "products" {
		t.Fatalf("expected products, got %q", got)
	}

	write("products_v2")
	if err := Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := GetConfig().Search.IndexName(); got != "products_v2" {
		t.Fatalf("expected products_v2, got %q", got)
	}
}
