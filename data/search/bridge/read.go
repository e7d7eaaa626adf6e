package bridge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/ncobase/querybridge/ecode"
)

// Find returns the documents matching desc. Without a limit the page spans
// the rest of the result window.
func (b *Bridge) Find(ctx context.Context, desc query.Descriptor) (*results.Results[[]*results.Record], error) {
	ctx, op := b.start(ctx, "find", kindQuery)
	res, err := b.find(ctx, op, desc)
	return finish(ctx, b, op, res, err)
}

// Search runs a full-text search. It needs Options.Search or conditions.
func (b *Bridge) Search(ctx context.Context, desc query.Descriptor) (*results.Results[[]*results.Record], error) {
	ctx, op := b.start(ctx, "search", kindQuery)
	if desc.Options.Search == nil && len(desc.Conditions) == 0 {
		return finish[[]*results.Record](ctx, b, op, nil,
			&ParamError{Op: op.name, Field: "search", Message: ecode.FieldIsRequired("search query or conditions")})
	}
	res, err := b.find(ctx, op, desc)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) find(ctx context.Context, op *operation, desc query.Descriptor) (*results.Results[[]*results.Record], error) {
	body, err := b.builder(ctx).Search(desc)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = body
	records, meta, err := b.search(ctx, op, b.index, body, desc.Stash)
	if err != nil {
		return nil, err
	}
	res := results.New(op.tag, records, body)
	for k, v := range meta {
		res.SetMeta(k, v)
	}
	res.SetMeta("count", len(records))
	return res, nil
}

// search issues a search body and sanitizes the hits
func (b *Bridge) search(ctx context.Context, op *operation, index string, body map[string]any, stash map[string]any) ([]*results.Record, map[string]any, error) {
	resp, err := b.searchRaw(ctx, op, index, body)
	if err != nil {
		return nil, nil, err
	}
	records, meta, _, err := sanitizeSearch(resp.Body, stash)
	if err != nil {
		return nil, nil, decodeError(op.name, op.params, err)
	}
	return records, meta, nil
}

func (b *Bridge) searchRaw(ctx context.Context, op *operation, index string, body map[string]any) (*search.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ParamError{Op: op.name, Message: err.Error()}
	}
	return b.exec(ctx, op, "search", func(ctx context.Context) (*search.Response, error) {
		return b.transport.Search(ctx, index, payload)
	})
}

// GetByID fetches one document. A missing, soft-deleted or 404 document
// yields a successful envelope with nil Data and meta found=false.
func (b *Bridge) GetByID(ctx context.Context, id string, columns []string) (*results.Results[*results.Record], error) {
	ctx, op := b.start(ctx, "get_by_id", kindQuery)
	res, err := b.getByID(ctx, op, id, columns)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) getByID(ctx context.Context, op *operation, id string, columns []string) (*results.Results[*results.Record], error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ParamError{Op: op.name, Field: "_id", Message: ecode.FieldIsRequired("_id")}
	}
	includes := b.getIncludes(columns)
	op.params = map[string]any{"_id": id, "columns": includes}

	notFound := func() *results.Results[*results.Record] {
		return results.New[*results.Record](op.tag, nil, op.params).SetMeta("found", false)
	}

	resp, err := b.exec(ctx, op, "get", func(ctx context.Context) (*search.Response, error) {
		return b.transport.Get(ctx, b.index, id, includes)
	})
	if err != nil {
		if IsNotFound(err) {
			return notFound(), nil
		}
		return nil, err
	}

	rec, raw, err := sanitizeGet(resp.Body, b.softDelete)
	if err != nil {
		return nil, decodeError(op.name, op.params, err)
	}
	if rec == nil {
		return notFound(), nil
	}
	res := results.New(op.tag, rec, op.params).SetMeta("found", true)
	if raw.Version > 0 {
		res.SetMeta("_version", raw.Version)
	}
	return res, nil
}

// getIncludes returns the source includes of a get; the soft-delete column
// is always fetched
func (b *Bridge) getIncludes(columns []string) []string {
	desc := query.Descriptor{Columns: columns}
	if desc.AllColumns() {
		return nil
	}
	out := make([]string, 0, len(columns)+1)
	seen := map[string]bool{}
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	if b.softDelete != "" && !seen[b.softDelete] {
		out = append(out, b.softDelete)
	}
	return out
}

// Count returns the number of documents matching conds
func (b *Bridge) Count(ctx context.Context, conds []query.Condition) (*results.Results[int64], error) {
	ctx, op := b.start(ctx, "count", kindQuery)
	res, err := b.count(ctx, op, conds)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) count(ctx context.Context, op *operation, conds []query.Condition) (*results.Results[int64], error) {
	body, err := b.builder(ctx).Count(conds)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = body
	n, err := b.countRaw(ctx, op, body)
	if err != nil {
		return nil, err
	}
	return results.New(op.tag, n, body).SetMeta("count", n), nil
}

func (b *Bridge) countRaw(ctx context.Context, op *operation, body map[string]any) (int64, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, &ParamError{Op: op.name, Message: err.Error()}
	}
	resp, err := b.exec(ctx, op, "count", func(ctx context.Context) (*search.Response, error) {
		return b.transport.Count(ctx, b.index, payload)
	})
	if err != nil {
		return 0, err
	}
	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return 0, decodeError(op.name, op.params, err)
	}
	return out.Count, nil
}

// withOp stamps the operation name on descriptor errors
func withOp(op string, err error) error {
	if pe, ok := err.(*ParamError); ok && pe.Op == "" {
		cp := *pe
		cp.Op = op
		return &cp
	}
	return err
}
