package bridge

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/ncobase/querybridge/data/search/query"
)

// keywordResolver returns the field → keyword field map of the index,
// building it on first use. A failed build is not cached; callers then
// fall back to raw fields.
func (b *Bridge) keywordResolver(ctx context.Context) query.KeywordResolver {
	b.kwMu.Lock()
	defer b.kwMu.Unlock()
	if b.kwLoaded {
		b.collector.MappingCache("memory", true)
		return b.keywords
	}
	b.collector.MappingCache("memory", false)

	if b.mappings != nil {
		m, ok, err := b.mappings.Load(ctx, b.index)
		if err != nil {
			b.logger.Warnf(ctx, "load shared keyword mapping of %s: %v", b.index, err)
		}
		if ok {
			b.keywords, b.kwLoaded = m, true
			return b.keywords
		}
	}

	resp, err := b.transport.GetMapping(ctx, b.index)
	if err != nil {
		b.logger.Warnf(ctx, "get mapping of %s: %v", b.index, err)
		return query.KeywordMap{}
	}
	m, err := parseKeywordMapping(resp.Body)
	if err != nil {
		b.logger.Warnf(ctx, "decode mapping of %s: %v", b.index, err)
		return query.KeywordMap{}
	}
	b.keywords, b.kwLoaded = m, true

	if b.mappings != nil {
		if err := b.mappings.Store(ctx, b.index, m); err != nil {
			b.logger.Warnf(ctx, "store shared keyword mapping of %s: %v", b.index, err)
		}
	}
	return b.keywords
}

// builder returns a request builder bound to the keyword map
func (b *Bridge) builder(ctx context.Context) *query.Builder {
	qb := query.NewBuilder(b.index, b.window, b.keywordResolver(ctx))
	qb.MaxBuckets = b.maxBuckets
	return qb
}

// InvalidateKeywordCache drops the keyword map so the next operation reads
// the mapping again, including the shared copy
func (b *Bridge) InvalidateKeywordCache(ctx context.Context) {
	b.kwMu.Lock()
	b.keywords, b.kwLoaded = nil, false
	b.kwMu.Unlock()

	if b.mappings != nil {
		if err := b.mappings.Invalidate(ctx, b.index); err != nil {
			b.logger.Warnf(ctx, "invalidate shared keyword mapping of %s: %v", b.index, err)
		}
	}
}

type mappingProperty struct {
	Type       string                     `json:"type"`
	Fields     map[string]mappingProperty `json:"fields"`
	Properties map[string]mappingProperty `json:"properties"`
}

// parseKeywordMapping reads a get-mapping answer. Keyword fields map to
// themselves; text fields map to their keyword multi-field, preferring one
// named "keyword".
func parseKeywordMapping(body []byte) (query.KeywordMap, error) {
	var indices map[string]struct {
		Mappings struct {
			Properties map[string]mappingProperty `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(body, &indices); err != nil {
		return nil, err
	}
	out := query.KeywordMap{}
	names := make([]string, 0, len(indices))
	for name := range indices {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		collectKeywords(out, "", indices[name].Mappings.Properties)
	}
	return out, nil
}

func collectKeywords(out query.KeywordMap, prefix string, props map[string]mappingProperty) {
	for name, p := range props {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		switch p.Type {
		case "keyword", "constant_keyword", "wildcard":
			out[path] = path
		case "text", "match_only_text":
			if sub := keywordSubField(p.Fields); sub != "" {
				out[path] = path + "." + sub
			}
		}
		if len(p.Properties) > 0 {
			collectKeywords(out, path, p.Properties)
		}
	}
}

func keywordSubField(fields map[string]mappingProperty) string {
	if f, ok := fields["keyword"]; ok && f.Type == "keyword" {
		return "keyword"
	}
	names := make([]string, 0, len(fields))
	for name, f := range fields {
		if f.Type == "keyword" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}
