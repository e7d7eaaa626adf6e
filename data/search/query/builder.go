package query

import (
	"fmt"
	"strings"

	"github.com/ncobase/querybridge/ecode"
)

// DefaultMaxResultWindow is the engine's default index.max_result_window
const DefaultMaxResultWindow = 10000

// DefaultMaxBuckets is the engine's default search.max_buckets
const DefaultMaxBuckets = 65535

// DefaultPitKeepAlive is used when a cursor carries no keep-alive
const DefaultPitKeepAlive = "1m"

// DefaultTieBreaker is the point-in-time tie-break sort field
const DefaultTieBreaker = "_shard_doc"

// owned body keys; Options.Extra never overrides them
var ownedKeys = map[string]bool{
	"query":            true,
	"sort":             true,
	"from":             true,
	"size":             true,
	"_source":          true,
	"highlight":        true,
	"track_total_hits": true,
	"aggs":             true,
	"aggregations":     true,
	"pit":              true,
	"search_after":     true,
}

// Builder turns descriptors into request bodies for one index
type Builder struct {
	Index           string
	MaxResultWindow int
	// MaxBuckets bounds the buckets of one distinct request, 0 uses DefaultMaxBuckets
	MaxBuckets int
	Keywords   KeywordResolver
}

// NewBuilder creates a builder
func NewBuilder(index string, maxResultWindow int, keywords KeywordResolver) *Builder {
	return &Builder{Index: index, MaxResultWindow: maxResultWindow, Keywords: keywords}
}

// Window returns the effective result window
func (b *Builder) Window() int {
	if b.MaxResultWindow <= 0 {
		return DefaultMaxResultWindow
	}
	return b.MaxResultWindow
}

// keyword returns the exact-match field for field, or field itself
func (b *Builder) keyword(field string) string {
	if b.Keywords == nil || strings.HasPrefix(field, "_") {
		return field
	}
	if kw, ok := b.Keywords.Keyword(field); ok && kw != "" {
		return kw
	}
	return field
}

// Sort translates sort keys; text fields are redirected to their keyword field
func (b *Builder) Sort(opts Options) ([]any, error) {
	out := make([]any, 0, len(opts.Sort))
	for _, s := range opts.Sort {
		if s.Field == "" {
			return nil, paramErr("sort", ecode.FieldIsRequired("sort field"))
		}
		dir, err := direction(s.Direction)
		if err != nil {
			return nil, err
		}
		out = append(out, map[string]any{b.keyword(s.Field): map[string]any{"order": dir}})
	}
	return out, nil
}

func direction(d Direction) (string, error) {
	switch Direction(strings.ToLower(string(d))) {
	case "", Asc:
		return string(Asc), nil
	case Desc:
		return string(Desc), nil
	}
	return "", paramErr("sort", ecode.FieldIsInvalid(fmt.Sprintf("direction %q", d)))
}

// Page returns from and size. Size defaults to the window and is clamped
// so that from+size never exceeds it.
func (b *Builder) Page(opts Options) (from, size int, err error) {
	window := b.Window()
	if opts.Skip < 0 {
		return 0, 0, paramErr("skip", ecode.FieldIsInvalid("skip"))
	}
	if opts.Limit < 0 {
		return 0, 0, paramErr("limit", ecode.FieldIsInvalid("limit"))
	}
	if opts.Skip >= window {
		return 0, 0, paramErr("skip", ecode.Exceeds("skip", window-1)+", use a point-in-time cursor")
	}
	size = opts.Limit
	if size == 0 || opts.Skip+size > window {
		size = window - opts.Skip
	}
	return opts.Skip, size, nil
}

// Source returns the _source projection, nil when all columns are selected
func (b *Builder) Source(columns []string) any {
	if allColumns(columns) {
		return nil
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return map[string]any{"includes": out}
}

// Highlight returns the highlight clause for fields
func (b *Builder) Highlight(fields []string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	hl := make(map[string]any, len(fields))
	for _, f := range fields {
		hl[f] = map[string]any{}
	}
	return map[string]any{"fields": hl}
}

// Search builds the full search request body
func (b *Builder) Search(desc Descriptor) (map[string]any, error) {
	q, err := b.searchQuery(desc)
	if err != nil {
		return nil, err
	}
	from, size, err := b.Page(desc.Options)
	if err != nil {
		return nil, err
	}
	sort, err := b.Sort(desc.Options)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"query":            q,
		"size":             size,
		"track_total_hits": true,
	}
	if from > 0 {
		body["from"] = from
	}
	if len(sort) > 0 {
		body["sort"] = sort
	}
	b.decorate(body, desc)
	return body, nil
}

// decorate adds projection, highlight and extras
func (b *Builder) decorate(body map[string]any, desc Descriptor) {
	if src := b.Source(desc.Columns); src != nil {
		body["_source"] = src
	}
	if hl := b.Highlight(desc.Options.Highlight); hl != nil {
		body["highlight"] = hl
	}
	for k, v := range desc.Options.Extra {
		if !ownedKeys[k] {
			body[k] = v
		}
	}
}

// searchQuery combines full-text search with the filter conditions
func (b *Builder) searchQuery(desc Descriptor) (map[string]any, error) {
	if desc.Options.Search == nil {
		return b.Query(desc.Conditions)
	}
	mm, err := multiMatch(desc.Options.Search)
	if err != nil {
		return nil, err
	}
	boolQuery := map[string]any{"must": []any{mm}}
	if len(desc.Conditions) > 0 {
		q, err := b.Query(desc.Conditions)
		if err != nil {
			return nil, err
		}
		boolQuery["filter"] = []any{q}
	}
	return map[string]any{"bool": boolQuery}, nil
}

func multiMatch(p *SearchParams) (map[string]any, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, paramErr("search", ecode.FieldIsRequired("search query"))
	}
	mm := map[string]any{"query": p.Query}
	if len(p.Fields) > 0 {
		mm["fields"] = p.Fields
	}
	if p.Type != "" {
		if !searchTypes[p.Type] {
			return nil, paramErr("search", ecode.FieldIsInvalid(fmt.Sprintf("type %q", p.Type)))
		}
		mm["type"] = p.Type
	}
	if p.Fuzziness != "" {
		switch p.Type {
		case TypePhrase, TypePhrasePrefix, TypeCrossFields:
			return nil, paramErr("search", ecode.NotSupported("fuzziness with "+p.Type))
		}
		mm["fuzziness"] = p.Fuzziness
	}
	if p.Operator != "" {
		op := strings.ToLower(p.Operator)
		if op != "and" && op != "or" {
			return nil, paramErr("search", ecode.FieldIsInvalid(fmt.Sprintf("operator %q", p.Operator)))
		}
		mm["operator"] = op
	}
	return map[string]any{"multi_match": mm}, nil
}

// Count builds a _count request body
func (b *Builder) Count(conds []Condition) (map[string]any, error) {
	q, err := b.Query(conds)
	if err != nil {
		return nil, err
	}
	return map[string]any{"query": q}, nil
}

// DeleteByQuery builds a _delete_by_query request body
func (b *Builder) DeleteByQuery(conds []Condition) (map[string]any, error) {
	return b.Count(conds)
}

// PitSearch builds a point-in-time page request. The body carries no index
// and no from; paging continues from cursor.SearchAfter.
func (b *Builder) PitSearch(desc Descriptor, cursor PitCursor, tieBreaker string) (map[string]any, error) {
	if cursor.ID == "" {
		return nil, paramErr("pit", ecode.FieldIsRequired("pit id"))
	}
	if tieBreaker == "" {
		tieBreaker = DefaultTieBreaker
	}
	keepAlive := cursor.KeepAlive
	if keepAlive == "" {
		keepAlive = DefaultPitKeepAlive
	}
	q, err := b.searchQuery(desc)
	if err != nil {
		return nil, err
	}
	sort, err := b.Sort(desc.Options)
	if err != nil {
		return nil, err
	}
	if !sortsOn(desc.Options.Sort, tieBreaker) {
		sort = append(sort, map[string]any{tieBreaker: map[string]any{"order": string(Asc)}})
	}

	if desc.Options.Limit < 0 {
		return nil, paramErr("limit", ecode.FieldIsInvalid("limit"))
	}
	size := desc.Options.Limit
	if size == 0 || size > b.Window() {
		size = b.Window()
	}

	body := map[string]any{
		"query":            q,
		"sort":             sort,
		"size":             size,
		"pit":              map[string]any{"id": cursor.ID, "keep_alive": keepAlive},
		"track_total_hits": true,
	}
	if len(cursor.SearchAfter) > 0 {
		body["search_after"] = cursor.SearchAfter
	}
	b.decorate(body, desc)
	return body, nil
}

func sortsOn(sorts []Sort, field string) bool {
	for _, s := range sorts {
		if s.Field == field {
			return true
		}
	}
	return false
}
