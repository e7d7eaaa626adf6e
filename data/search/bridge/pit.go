package bridge

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/ncobase/querybridge/ecode"
	"github.com/ncobase/querybridge/paging"
)

// OpenPit opens a point-in-time on the index and returns its id
func (b *Bridge) OpenPit(ctx context.Context, keepAlive string) (*results.Results[string], error) {
	ctx, op := b.start(ctx, "open_pit", kindQuery)
	res, err := b.openPit(ctx, op, keepAlive)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) openPit(ctx context.Context, op *operation, keepAlive string) (*results.Results[string], error) {
	keepAlive = strings.TrimSpace(keepAlive)
	if keepAlive == "" {
		keepAlive = query.DefaultPitKeepAlive
	}
	op.params = map[string]any{"keep_alive": keepAlive}

	resp, err := b.exec(ctx, op, "open_pit", func(ctx context.Context) (*search.Response, error) {
		return b.transport.OpenPointInTime(ctx, b.index, keepAlive)
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		ID    string `json:"id"`
		PitID string `json:"pit_id"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, decodeError(op.name, op.params, err)
	}
	id := out.ID
	if id == "" {
		id = out.PitID
	}
	if id == "" {
		return nil, &QueryError{Op: op.name, Class: ClassDecode, Message: "engine returned no point-in-time id", Params: op.params}
	}
	return results.New(op.tag, id, op.params).SetMeta("keep_alive", keepAlive), nil
}

// PitSearch reads one page of a point-in-time. The meta carries the pit id
// to use next, which the engine may refresh, and the search_after cursor
// taken from the last hit. A non-empty page also carries both as an opaque
// paging token under "cursor".
func (b *Bridge) PitSearch(ctx context.Context, desc query.Descriptor, cursor query.PitCursor) (*results.Results[[]*results.Record], error) {
	ctx, op := b.start(ctx, "pit_search", kindQuery)
	res, err := b.pitSearch(ctx, op, desc, cursor)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) pitSearch(ctx context.Context, op *operation, desc query.Descriptor, cursor query.PitCursor) (*results.Results[[]*results.Record], error) {
	body, err := b.builder(ctx).PitSearch(desc, cursor, b.tieBreaker)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = body

	resp, err := b.searchRaw(ctx, op, "", body)
	if err != nil {
		return nil, err
	}
	records, meta, raw, err := sanitizeSearch(resp.Body, desc.Stash)
	if err != nil {
		return nil, decodeError(op.name, op.params, err)
	}

	res := results.New(op.tag, records, body)
	for k, v := range meta {
		res.SetMeta(k, v)
	}
	pitID := raw.PitID
	if pitID == "" {
		pitID = cursor.ID
	}
	res.SetMeta("pit_id", pitID)
	res.SetMeta("count", len(records))

	searchAfter := cursor.SearchAfter
	if n := len(records); n > 0 && len(records[n-1].Meta.Sort) > 0 {
		searchAfter = records[n-1].Meta.Sort
	}
	res.SetMeta("search_after", searchAfter)
	if len(records) > 0 {
		next := query.PitCursor{ID: pitID, SearchAfter: searchAfter, KeepAlive: cursor.KeepAlive}
		if token, err := paging.EncodeCursor(next); err == nil {
			res.SetMeta("cursor", token)
		}
	}
	return res, nil
}

// ClosePit releases a point-in-time. An unknown id yields false.
func (b *Bridge) ClosePit(ctx context.Context, id string) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "close_pit", kindQuery)
	res, err := b.closePit(ctx, op, id)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) closePit(ctx context.Context, op *operation, id string) (*results.Results[bool], error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &ParamError{Op: op.name, Field: "pit", Message: ecode.FieldIsRequired("pit id")}
	}
	op.params = map[string]any{"pit_id": id}

	resp, err := b.exec(ctx, op, "close_pit", func(ctx context.Context) (*search.Response, error) {
		return b.transport.ClosePointInTime(ctx, id)
	})
	if err != nil {
		if IsNotFound(err) {
			return results.New(op.tag, false, op.params), nil
		}
		return nil, err
	}

	var out struct {
		Succeeded *bool `json:"succeeded"`
		Pits      []struct {
			Successful bool `json:"successful"`
		} `json:"pits"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, decodeError(op.name, op.params, err)
	}
	closed := true
	switch {
	case out.Succeeded != nil:
		closed = *out.Succeeded
	case len(out.Pits) > 0:
		for _, p := range out.Pits {
			closed = closed && p.Successful
		}
	}
	return results.New(op.tag, closed, op.params), nil
}
