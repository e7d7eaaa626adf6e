package bridge

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/index"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/ncobase/querybridge/ecode"
)

type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// CreateIndex creates the index from settings
func (b *Bridge) CreateIndex(ctx context.Context, settings *index.Settings) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "create_index", kindIndex)
	res, err := b.createIndex(ctx, op, settings)
	return finish(ctx, b, op, res, err)
}

// EnsureIndex creates the index unless it exists. Data reports whether it
// was created.
func (b *Bridge) EnsureIndex(ctx context.Context, settings *index.Settings) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "ensure_index", kindIndex)
	exists, err := b.indexExists(ctx, op)
	if err != nil {
		return finish[bool](ctx, b, op, nil, err)
	}
	if exists {
		return finish(ctx, b, op, results.New(op.tag, false, nil).SetMeta("exists", true), nil)
	}
	res, err := b.createIndex(ctx, op, settings)
	if res != nil {
		res.SetMeta("exists", false)
	}
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) createIndex(ctx context.Context, op *operation, settings *index.Settings) (*results.Results[bool], error) {
	if settings == nil {
		settings = &index.Settings{}
	}
	body, err := index.CreateBody(settings)
	if err != nil {
		return nil, settingsError(op.name, err)
	}
	op.params = body
	ack, err := b.acknowledged(ctx, op, "create_index", body, b.transport.CreateIndex)
	if err != nil {
		return nil, err
	}
	b.InvalidateKeywordCache(ctx)
	return results.New(op.tag, ack, body), nil
}

// DeleteIndex deletes the index. A missing index yields false.
func (b *Bridge) DeleteIndex(ctx context.Context) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "delete_index", kindIndex)
	resp, err := b.exec(ctx, op, "delete_index", func(ctx context.Context) (*search.Response, error) {
		return b.transport.DeleteIndex(ctx, b.index)
	})
	b.InvalidateKeywordCache(ctx)
	if err != nil {
		if IsNotFound(err) {
			return finish(ctx, b, op, results.New(op.tag, false, nil), nil)
		}
		return finish[bool](ctx, b, op, nil, err)
	}
	ack, err := decodeAck(op, resp)
	if err != nil {
		return finish[bool](ctx, b, op, nil, err)
	}
	return finish(ctx, b, op, results.New(op.tag, ack, nil), nil)
}

// IndexExists reports whether the index exists
func (b *Bridge) IndexExists(ctx context.Context) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "index_exists", kindQuery)
	exists, err := b.indexExists(ctx, op)
	if err != nil {
		return finish[bool](ctx, b, op, nil, err)
	}
	return finish(ctx, b, op, results.New(op.tag, exists, nil), nil)
}

func (b *Bridge) indexExists(ctx context.Context, op *operation) (bool, error) {
	var exists bool
	_, err := b.exec(ctx, op, "index_exists", func(ctx context.Context) (*search.Response, error) {
		var err error
		exists, err = b.transport.IndexExists(ctx, b.index)
		return nil, err
	})
	return exists, err
}

// UpdateMapping adds the declared fields to the index mapping
func (b *Bridge) UpdateMapping(ctx context.Context, settings *index.Settings) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "update_mapping", kindIndex)
	res, err := b.updateMapping(ctx, op, settings)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) updateMapping(ctx context.Context, op *operation, settings *index.Settings) (*results.Results[bool], error) {
	if settings == nil {
		return nil, &ParamError{Op: op.name, Field: "settings", Message: ecode.FieldIsRequired("settings")}
	}
	body, err := index.MappingBody(settings)
	if err != nil {
		return nil, settingsError(op.name, err)
	}
	op.params = body
	ack, err := b.acknowledged(ctx, op, "put_mapping", body, b.transport.PutMapping)
	if err != nil {
		return nil, err
	}
	b.InvalidateKeywordCache(ctx)
	return results.New(op.tag, ack, body), nil
}

// UpdateAnalyzers replaces the analysis settings. The index is closed for
// the update and reopened afterwards, also when the update fails.
func (b *Bridge) UpdateAnalyzers(ctx context.Context, settings *index.Settings) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "update_analyzers", kindIndex)
	res, err := b.updateAnalyzers(ctx, op, settings)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) updateAnalyzers(ctx context.Context, op *operation, settings *index.Settings) (res *results.Results[bool], err error) {
	if settings == nil {
		return nil, &ParamError{Op: op.name, Field: "settings", Message: ecode.FieldIsRequired("settings")}
	}
	body, err := index.AnalyzerBody(settings)
	if err != nil {
		return nil, settingsError(op.name, err)
	}
	op.params = body

	if _, err := b.exec(ctx, op, "close_index", func(ctx context.Context) (*search.Response, error) {
		return b.transport.CloseIndex(ctx, b.index)
	}); err != nil {
		return nil, err
	}
	defer func() {
		_, openErr := b.exec(ctx, op, "open_index", func(ctx context.Context) (*search.Response, error) {
			return b.transport.OpenIndex(ctx, b.index)
		})
		if openErr != nil && err == nil {
			res, err = nil, openErr
		}
	}()

	ack, err := b.acknowledged(ctx, op, "put_settings", body, b.transport.PutSettings)
	if err != nil {
		return nil, err
	}
	b.InvalidateKeywordCache(ctx)
	return results.New(op.tag, ack, body), nil
}

// RefreshIndex makes recent writes visible to search
func (b *Bridge) RefreshIndex(ctx context.Context) (*results.Results[bool], error) {
	ctx, op := b.start(ctx, "refresh_index", kindIndex)
	_, err := b.exec(ctx, op, "refresh", func(ctx context.Context) (*search.Response, error) {
		return b.transport.Refresh(ctx, b.index)
	})
	if err != nil {
		return finish[bool](ctx, b, op, nil, err)
	}
	return finish(ctx, b, op, results.New(op.tag, true, nil), nil)
}

// acknowledged sends an admin body and reads the acknowledged flag
func (b *Bridge) acknowledged(ctx context.Context, op *operation, call string, body map[string]any,
	fn func(context.Context, string, []byte) (*search.Response, error)) (bool, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return false, &ParamError{Op: op.name, Message: err.Error()}
	}
	resp, err := b.exec(ctx, op, call, func(ctx context.Context) (*search.Response, error) {
		return fn(ctx, b.index, payload)
	})
	if err != nil {
		return false, err
	}
	return decodeAck(op, resp)
}

func decodeAck(op *operation, resp *search.Response) (bool, error) {
	if resp == nil || len(resp.Body) == 0 {
		return true, nil
	}
	var out ackResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return false, decodeError(op.name, op.params, err)
	}
	return out.Acknowledged, nil
}

// settingsError turns an invalid index declaration into a ParamError
func settingsError(op string, err error) error {
	var ve *index.ValidationError
	if errors.As(err, &ve) {
		return &ParamError{Op: op, Field: ve.Path, Message: ve.Message}
	}
	return &ParamError{Op: op, Message: err.Error()}
}
