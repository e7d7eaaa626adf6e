package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported engine names
const (
	EngineElasticsearch = "elasticsearch"
	EngineOpenSearch    = "opensearch"
)

// DefaultMaxResultWindow matches the engines' index.max_result_window default
const DefaultMaxResultWindow = 10000

// Search represents search engine configuration
type Search struct {
	Engine           string         `yaml:"engine" json:"engine"`
	Index            string         `yaml:"index" json:"index"`
	IndexPrefix      string         `yaml:"index_prefix" json:"index_prefix"`
	MaxResultWindow  int            `yaml:"max_result_window" json:"max_result_window"`
	MaxBuckets       int            `yaml:"max_buckets" json:"max_buckets"`
	SoftDeleteColumn string         `yaml:"soft_delete_column" json:"soft_delete_column"`
	LogIndex         string         `yaml:"log_index" json:"log_index"`
	Refresh          bool           `yaml:"refresh" json:"refresh"`
	Timeout          time.Duration  `yaml:"timeout" json:"timeout"`
	Elasticsearch    *Elasticsearch `yaml:"elasticsearch" json:"elasticsearch"`
	OpenSearch       *OpenSearch    `yaml:"opensearch" json:"opensearch"`
	Breaker          *Breaker       `yaml:"breaker" json:"breaker"`
	MappingCache     *MappingCache  `yaml:"mapping_cache" json:"mapping_cache"`
}

// IndexName returns the configured index with the prefix applied
func (s *Search) IndexName() string {
	if s.IndexPrefix == "" || s.Index == "" {
		return s.Index
	}
	if strings.HasPrefix(s.Index, s.IndexPrefix+"-") {
		return s.Index
	}
	return s.IndexPrefix + "-" + s.Index
}

// Breaker circuit breaker settings for the engine transport
type Breaker struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxRequests  uint32        `yaml:"max_requests" json:"max_requests"`
	Interval     time.Duration `yaml:"interval" json:"interval"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	FailureRatio float64       `yaml:"failure_ratio" json:"failure_ratio"`
	MinRequests  uint32        `yaml:"min_requests" json:"min_requests"`
}

// MappingCache shared keyword-mapping cache settings
type MappingCache struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// getSearchConfig reads search configurations
func getSearchConfig(v *viper.Viper) *Search {
	return &Search{
		Engine:           getSearchEngine(v),
		Index:            v.GetString("data.search.index"),
		IndexPrefix:      getSearchIndexPrefix(v),
		MaxResultWindow:  getIntOrDefault(v, "data.search.max_result_window", DefaultMaxResultWindow),
		MaxBuckets:       v.GetInt("data.search.max_buckets"),
		SoftDeleteColumn: v.GetString("data.search.soft_delete_column"),
		LogIndex:         getSearchLogIndex(v),
		Refresh:          v.GetBool("data.search.refresh"),
		Timeout:          getDurationOrDefault(v, "data.search.timeout", 30*time.Second),
		Elasticsearch:    getElasticsearchConfigs(v),
		OpenSearch:       getOpenSearchConfigs(v),
		Breaker:          getBreakerConfig(v),
		MappingCache:     getMappingCacheConfig(v),
	}
}

// getSearchEngine gets the engine, accepting the older default_engine key
func getSearchEngine(v *viper.Viper) string {
	engine := v.GetString("data.search.engine")
	if engine == "" {
		engine = v.GetString("data.search.default_engine")
	}
	if engine == "" {
		return EngineElasticsearch
	}
	return strings.ToLower(engine)
}

// getSearchIndexPrefix gets search index prefix
func getSearchIndexPrefix(v *viper.Viper) string {
	if v.IsSet("data.search.index_prefix") {
		return v.GetString("data.search.index_prefix")
	}
	return getDefaultIndexPrefix(v)
}

// getDefaultIndexPrefix builds default index prefix from app info
func getDefaultIndexPrefix(v *viper.Viper) string {
	appName := v.GetString("app_name")
	environment := v.GetString("run_mode")

	if appName != "" && environment != "" {
		return strings.ToLower(fmt.Sprintf("%s-%s", appName, environment))
	}

	return strings.ToLower(appName)
}

// getSearchLogIndex gets the diagnostic index, empty disables diagnostics
func getSearchLogIndex(v *viper.Viper) string {
	if v.IsSet("data.search.log_index") {
		return v.GetString("data.search.log_index")
	}
	if v.IsSet("logger.index_name") {
		return v.GetString("logger.index_name")
	}
	return ""
}

func getBreakerConfig(v *viper.Viper) *Breaker {
	return &Breaker{
		Enabled:      getBoolOrDefault(v, "data.search.breaker.enabled", false),
		MaxRequests:  getUint32OrDefault(v, "data.search.breaker.max_requests", 100),
		Interval:     getDurationOrDefault(v, "data.search.breaker.interval", 5*time.Second),
		Timeout:      getDurationOrDefault(v, "data.search.breaker.timeout", 3*time.Second),
		FailureRatio: getFloat64OrDefault(v, "data.search.breaker.failure_ratio", 0.6),
		MinRequests:  getUint32OrDefault(v, "data.search.breaker.min_requests", 3),
	}
}

func getMappingCacheConfig(v *viper.Viper) *MappingCache {
	// Falls back to the shared data.redis connection when no dedicated address is set.
	addr := v.GetString("data.search.mapping_cache.addr")
	if addr == "" {
		addr = v.GetString("data.redis.addr")
	}
	password := v.GetString("data.search.mapping_cache.password")
	if password == "" {
		password = v.GetString("data.redis.password")
	}
	db := v.GetInt("data.redis.db")
	if v.IsSet("data.search.mapping_cache.db") {
		db = v.GetInt("data.search.mapping_cache.db")
	}

	return &MappingCache{
		Enabled:  v.GetBool("data.search.mapping_cache.enabled"),
		Addr:     addr,
		Password: password,
		DB:       db,
		TTL:      getDurationOrDefault(v, "data.search.mapping_cache.ttl", 10*time.Minute),
	}
}

// OpenSearch opensearch config struct
type OpenSearch struct {
	Addresses       []string `json:"addresses" yaml:"addresses"`
	Username        string   `json:"username" yaml:"username"`
	Password        string   `json:"password" yaml:"password"`
	InsecureSkipTLS bool     `json:"insecure_skip_tls" yaml:"insecure_skip_tls"`
}

// getOpenSearchConfigs reads OpenSearch configurations
func getOpenSearchConfigs(v *viper.Viper) *OpenSearch {
	// Prefer `data.search.opensearch.*` but keep backward compatibility with `data.opensearch.*`.
	addresses := v.GetStringSlice("data.search.opensearch.addresses")
	if len(addresses) == 0 {
		addresses = v.GetStringSlice("data.opensearch.addresses")
	}

	username := v.GetString("data.search.opensearch.username")
	if username == "" {
		username = v.GetString("data.opensearch.username")
	}

	password := v.GetString("data.search.opensearch.password")
	if password == "" {
		password = v.GetString("data.opensearch.password")
	}

	insecureSkipTLS := v.GetBool("data.search.opensearch.insecure_skip_tls")
	if !v.IsSet("data.search.opensearch.insecure_skip_tls") {
		insecureSkipTLS = v.GetBool("data.opensearch.insecure_skip_tls")
	}

	return &OpenSearch{
		Addresses:       addresses,
		Username:        username,
		Password:        password,
		InsecureSkipTLS: insecureSkipTLS,
	}
}

// Elasticsearch elasticsearch config struct
type Elasticsearch struct {
	Addresses []string `json:"addresses" yaml:"addresses"`
	Username  string   `json:"username" yaml:"username"`
	Password  string   `json:"password" yaml:"password"`
	APIKey    string   `json:"api_key" yaml:"api_key"`
}

// getElasticsearchConfigs reads Elasticsearch configurations
func getElasticsearchConfigs(v *viper.Viper) *Elasticsearch {
	// Prefer `data.search.elasticsearch.*` but keep backward compatibility with `data.elasticsearch.*`.
	addresses := v.GetStringSlice("data.search.elasticsearch.addresses")
	if len(addresses) == 0 {
		addresses = v.GetStringSlice("data.elasticsearch.addresses")
	}

	username := v.GetString("data.search.elasticsearch.username")
	if username == "" {
		username = v.GetString("data.elasticsearch.username")
	}

	password := v.GetString("data.search.elasticsearch.password")
	if password == "" {
		password = v.GetString("data.elasticsearch.password")
	}

	apiKey := v.GetString("data.search.elasticsearch.api_key")
	if apiKey == "" {
		apiKey = v.GetString("data.elasticsearch.api_key")
	}

	return &Elasticsearch{
		Addresses: addresses,
		Username:  username,
		Password:  password,
		APIKey:    apiKey,
	}
}
