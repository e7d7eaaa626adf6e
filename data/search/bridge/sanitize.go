package bridge

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ncobase/querybridge/data/search/results"
	"github.com/spf13/cast"
)

type searchResponse struct {
	Took     int64          `json:"took"`
	TimedOut bool           `json:"timed_out"`
	Shards   map[string]any `json:"_shards"`
	PitID    string         `json:"pit_id"`
	Hits     struct {
		Total    json.RawMessage `json:"total"`
		MaxScore *float64        `json:"max_score"`
		Hits     []searchHit     `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]any `json:"aggregations"`
}

type searchHit struct {
	Index     string                    `json:"_index"`
	ID        string                    `json:"_id"`
	Score     *float64                  `json:"_score"`
	Source    json.RawMessage           `json:"_source"`
	Sort      []any                     `json:"sort"`
	Highlight map[string][]string       `json:"highlight"`
	InnerHits map[string]innerHitResult `json:"inner_hits"`
}

type innerHitResult struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// total returns hits.total, which is an object or a bare number
func (r *searchResponse) total() (int64, string) {
	raw := bytes.TrimSpace(r.Hits.Total)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return int64(len(r.Hits.Hits)), "eq"
	}
	var obj struct {
		Value    int64  `json:"value"`
		Relation string `json:"relation"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Value, obj.Relation
	}
	var n int64
	if json.Unmarshal(raw, &n) == nil {
		return n, "eq"
	}
	return int64(len(r.Hits.Hits)), "eq"
}

// meta returns the response-level envelope meta
func (r *searchResponse) meta() map[string]any {
	total, relation := r.total()
	m := map[string]any{
		"took":           r.Took,
		"timed_out":      r.TimedOut,
		"total":          total,
		"total_relation": relation,
		"max_score":      r.Hits.MaxScore,
	}
	if r.Shards != nil {
		m["_shards"] = r.Shards
	}
	return m
}

// sanitizeSearch decodes a search answer into records and meta
func sanitizeSearch(body []byte, stash map[string]any) ([]*results.Record, map[string]any, *searchResponse, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, nil, err
	}
	records := make([]*results.Record, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		rec, err := hitRecord(h, stash, true)
		if err != nil {
			return nil, nil, nil, err
		}
		records = append(records, rec)
	}
	return records, resp.meta(), &resp, nil
}

// sanitizeSources decodes the stored documents of a search answer. Inner
// hits are left out so the records can be written back unchanged.
func sanitizeSources(body []byte) ([]*results.Record, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	records := make([]*results.Record, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		rec, err := hitRecord(h, nil, false)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func hitRecord(h searchHit, stash map[string]any, foldInner bool) (*results.Record, error) {
	fields := results.NewFields()
	if len(h.Source) > 0 && !bytes.Equal(bytes.TrimSpace(h.Source), []byte("null")) {
		if err := fields.UnmarshalJSON(h.Source); err != nil {
			return nil, err
		}
	}
	for _, k := range []string{results.KeyID, results.KeyIndex, results.KeyMeta} {
		fields.Delete(k)
	}

	if foldInner {
		for _, name := range sortedKeys(h.InnerHits) {
			inner, err := flattenInnerHits(h.InnerHits[name])
			if err != nil {
				return nil, err
			}
			fields.Set(name, inner)
		}
	}

	rec := &results.Record{
		Fields: fields,
		Meta: results.Meta{
			Index:      h.Index,
			ID:         h.ID,
			Score:      h.Score,
			Sort:       h.Sort,
			Highlights: collapseHighlights(h.Highlight),
		},
	}
	if len(stash) > 0 {
		rec.Meta.Extra = make(map[string]any, len(stash))
		for k, v := range stash {
			rec.Meta.Extra[k] = v
		}
	}
	return rec, nil
}

// flattenInnerHits turns inner hits into plain field maps carrying _id,
// folding their own inner hits the same way
func flattenInnerHits(ih innerHitResult) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(ih.Hits.Hits))
	for _, h := range ih.Hits.Hits {
		m := map[string]any{}
		if len(h.Source) > 0 && !bytes.Equal(bytes.TrimSpace(h.Source), []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(h.Source))
			dec.UseNumber()
			if err := dec.Decode(&m); err != nil {
				return nil, err
			}
		}
		if h.ID != "" {
			m[results.KeyID] = h.ID
		}
		for _, name := range sortedKeys(h.InnerHits) {
			inner, err := flattenInnerHits(h.InnerHits[name])
			if err != nil {
				return nil, err
			}
			m[name] = inner
		}
		out = append(out, m)
	}
	return out, nil
}

// collapseHighlights folds "<f>.keyword" highlights into "<f>" unless the
// base field has its own highlight
func collapseHighlights(hl map[string][]string) map[string][]string {
	if len(hl) == 0 {
		return nil
	}
	out := make(map[string][]string, len(hl))
	for k, v := range hl {
		if !strings.HasSuffix(k, ".keyword") {
			out[k] = v
		}
	}
	for k, v := range hl {
		if base, ok := strings.CutSuffix(k, ".keyword"); ok {
			if _, own := hl[base]; !own {
				out[base] = v
			}
		}
	}
	return out
}

type getResponse struct {
	Index       string          `json:"_index"`
	ID          string          `json:"_id"`
	Version     int64           `json:"_version"`
	SeqNo       *int64          `json:"_seq_no"`
	PrimaryTerm *int64          `json:"_primary_term"`
	Found       bool            `json:"found"`
	Source      json.RawMessage `json:"_source"`
}

// sanitizeGet decodes a get answer. A document whose soft-delete marker is
// truthy is reported as not found; the marker never reaches the caller.
func sanitizeGet(body []byte, softDelete string) (*results.Record, *getResponse, error) {
	var resp getResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, err
	}
	if !resp.Found {
		return nil, &resp, nil
	}
	fields := results.NewFields()
	if len(resp.Source) > 0 && !bytes.Equal(bytes.TrimSpace(resp.Source), []byte("null")) {
		if err := fields.UnmarshalJSON(resp.Source); err != nil {
			return nil, nil, err
		}
	}
	if softDelete != "" {
		if marker, ok := fields.Get(softDelete); ok && truthy(marker) {
			return nil, &resp, nil
		}
		fields.Delete(softDelete)
	}
	for _, k := range []string{results.KeyID, results.KeyIndex, results.KeyMeta} {
		fields.Delete(k)
	}
	rec := &results.Record{Fields: fields, Meta: results.Meta{Index: resp.Index, ID: resp.ID}}
	return rec, &resp, nil
}

// truthy reports whether a soft-delete marker is set
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "0" && s != "false"
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0
	}
	return true
}

// metricValue reads the "value" of a single-value metric aggregation
func metricValue(aggs map[string]any, name string) any {
	agg, ok := aggs[name].(map[string]any)
	if !ok {
		return nil
	}
	if s, ok := agg["value_as_string"]; ok && agg["value"] == nil {
		return s
	}
	return agg["value"]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
