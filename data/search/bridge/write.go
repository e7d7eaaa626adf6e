package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/ncobase/querybridge/ecode"
	"github.com/spf13/cast"
)

// engine write results
const (
	resultCreated = "created"
	resultDeleted = "deleted"
)

type indexResponse struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Version int64  `json:"_version"`
	Result  string `json:"result"`
}

// Save creates or replaces rec. Without an id the engine assigns one; the
// returned record carries it.
func (b *Bridge) Save(ctx context.Context, rec *results.Record, refresh bool) (*results.Results[*results.Record], error) {
	ctx, op := b.start(ctx, "save", kindIndex)
	res, err := b.saveOne(ctx, op, rec, refresh)
	return finish(ctx, b, op, res, err)
}

// InsertOne stores rec as a new document, ignoring any identifier it carries
func (b *Bridge) InsertOne(ctx context.Context, rec *results.Record, refresh bool) (*results.Results[*results.Record], error) {
	ctx, op := b.start(ctx, "insert_one", kindIndex)
	if rec != nil {
		rec = rec.Clone()
		rec.Meta.ID = ""
		rec.Fields.Delete(results.KeyID)
	}
	res, err := b.saveOne(ctx, op, rec, refresh)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) saveOne(ctx context.Context, op *operation, rec *results.Record, refresh bool) (*results.Results[*results.Record], error) {
	saved, out, err := b.save(ctx, op, rec, refresh)
	if err != nil {
		return nil, err
	}
	return results.New(op.tag, saved, op.params).
		SetMeta("result", out.Result).
		SetMeta("_version", out.Version), nil
}

// save writes one document and returns a copy carrying the engine id
func (b *Bridge) save(ctx context.Context, op *operation, rec *results.Record, refresh bool) (*results.Record, *indexResponse, error) {
	id, body, err := query.WriteDocument(rec)
	if err != nil {
		return nil, nil, withOp(op.name, err)
	}
	op.params = map[string]any{"_id": id, "document": json.RawMessage(body)}

	resp, err := b.exec(ctx, op, "index", func(ctx context.Context) (*search.Response, error) {
		return b.transport.Index(ctx, b.index, id, body, refresh)
	})
	if err != nil {
		return nil, nil, err
	}
	var out indexResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, nil, decodeError(op.name, op.params, err)
	}

	saved := rec.Clone()
	saved.Fields.Delete(results.KeyID)
	saved.Meta.ID = out.ID
	if saved.Meta.ID == "" {
		saved.Meta.ID = id
	}
	saved.Meta.Index = out.Index
	if saved.Meta.Index == "" {
		saved.Meta.Index = b.index
	}
	return saved, &out, nil
}

type bulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Result string `json:"result"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// InsertBulk indexes recs in one bulk request. Every record is classified
// by position as created, modified or failed. With returnData the summary
// carries the successfully written records with their engine ids.
func (b *Bridge) InsertBulk(ctx context.Context, recs []*results.Record, returnData, refresh bool) (*results.Results[*results.BulkSummary], error) {
	ctx, op := b.start(ctx, "insert_bulk", kindIndex)
	res, err := b.insertBulk(ctx, op, recs, returnData, refresh)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) insertBulk(ctx context.Context, op *operation, recs []*results.Record, returnData, refresh bool) (*results.Results[*results.BulkSummary], error) {
	body, err := query.Bulk(recs)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = map[string]any{"documents": len(recs)}

	resp, err := b.exec(ctx, op, "bulk", func(ctx context.Context) (*search.Response, error) {
		return b.transport.Bulk(ctx, b.index, body, refresh)
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Took   int64                 `json:"took"`
		Errors bool                  `json:"errors"`
		Items  []map[string]bulkItem `json:"items"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, decodeError(op.name, op.params, err)
	}

	summary := results.NewBulkSummary(len(recs))
	for i, rec := range recs {
		item, ok := firstItem(out.Items, i)
		switch {
		case !ok:
			summary.AddFailure(results.BulkError{
				Position: i,
				ID:       rec.ID(),
				Status:   http.StatusInternalServerError,
				Type:     "missing_item",
				Reason:   "bulk response has no item for this document",
				Payload:  rec.Fields.Map(),
			})
		case item.Error != nil || item.Status >= http.StatusBadRequest:
			e := results.BulkError{Position: i, ID: item.ID, Status: item.Status, Payload: rec.Fields.Map()}
			if item.Error != nil {
				e.Type, e.Reason = item.Error.Type, item.Error.Reason
			}
			summary.AddFailure(e)
		case item.Result == resultCreated || (item.Result == "" && item.Status == http.StatusCreated):
			summary.AddCreated()
			summary.Records = appendWritten(summary.Records, returnData, rec, item.ID, b.index)
		default:
			summary.AddModified()
			summary.Records = appendWritten(summary.Records, returnData, rec, item.ID, b.index)
		}
	}

	return results.New(op.tag, summary, op.params).
		SetMeta("took", out.Took).
		SetMeta("errors", out.Errors), nil
}

// appendWritten adds a successfully written record with its engine id
func appendWritten(out []*results.Record, returnData bool, rec *results.Record, id, index string) []*results.Record {
	if !returnData {
		return out
	}
	saved := rec.Clone()
	if id != "" {
		saved.Meta.ID = id
		saved.Meta.Index = index
	}
	return append(out, saved)
}

// firstItem returns the action result at position i, whatever the action
func firstItem(items []map[string]bulkItem, i int) (bulkItem, bool) {
	if i >= len(items) {
		return bulkItem{}, false
	}
	for _, item := range items[i] {
		return item, true
	}
	return bulkItem{}, false
}

// UpdateMany applies changes to every document matching desc: it reads the
// documents, merges the changes and saves each one. It is not atomic and
// concurrent writers may lose updates. Per-document failures are counted
// in the summary and do not stop the run.
func (b *Bridge) UpdateMany(ctx context.Context, desc query.Descriptor, changes query.Changes, refresh bool) (*results.Results[*results.BulkSummary], error) {
	ctx, op := b.start(ctx, "update_many", kindIndex)
	res, err := b.updateMany(ctx, op, desc, changes, refresh)
	return finish(ctx, b, op, res, err)
}

// IncrementMany adds changes.Inc to numeric fields of every document
// matching desc and stores changes.Set alongside. An absent field counts as
// zero. Same consistency caveats as UpdateMany.
func (b *Bridge) IncrementMany(ctx context.Context, desc query.Descriptor, changes query.Changes, refresh bool) (*results.Results[*results.BulkSummary], error) {
	ctx, op := b.start(ctx, "increment_many", kindIndex)
	if len(changes.Inc) == 0 {
		return finish[*results.BulkSummary](ctx, b, op, nil,
			&ParamError{Op: op.name, Field: "inc", Message: ecode.FieldIsRequired("inc")})
	}
	res, err := b.updateMany(ctx, op, desc, changes, refresh)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) updateMany(ctx context.Context, op *operation, desc query.Descriptor, changes query.Changes, refresh bool) (*results.Results[*results.BulkSummary], error) {
	if changes.Empty() {
		return nil, &ParamError{Op: op.name, Field: "changes", Message: ecode.FieldIsEmpty("changes")}
	}
	for _, m := range []map[string]any{changes.Set, changes.Inc} {
		for k := range m {
			if results.IsReserved(k) {
				return nil, &ParamError{Op: op.name, Field: k, Message: ecode.FieldIsInvalid("reserved field " + k)}
			}
		}
	}

	desc.Columns = nil
	body, err := b.builder(ctx).Search(desc)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = body
	resp, err := b.searchRaw(ctx, op, b.index, body)
	if err != nil {
		return nil, err
	}
	found, err := sanitizeSources(resp.Body)
	if err != nil {
		return nil, decodeError(op.name, op.params, err)
	}
	params := map[string]any{"query": body, "changes": changes}

	summary := results.NewBulkSummary(len(found))
	for i, rec := range found {
		doc := rec.Clone()
		if err := applyChanges(doc, changes); err != nil {
			summary.AddFailure(results.BulkError{
				Position: i,
				ID:       rec.ID(),
				Status:   http.StatusBadRequest,
				Type:     "invalid_change",
				Reason:   err.Error(),
				Payload:  rec.Fields.Map(),
			})
			continue
		}
		_, out, err := b.save(ctx, op, doc, refresh)
		if err != nil {
			e := results.BulkError{Position: i, ID: rec.ID(), Reason: err.Error(), Payload: doc.Fields.Map()}
			if qe, ok := err.(*QueryError); ok {
				e.Status, e.Type, e.Reason = qe.Status, qe.Class, qe.Message
			}
			summary.AddFailure(e)
			continue
		}
		if out.Result == resultCreated {
			summary.AddCreated()
		} else {
			summary.AddModified()
		}
	}
	op.params = params
	return results.New(op.tag, summary, params).SetMeta("matched", len(found)), nil
}

// applyChanges merges the set then the increments into rec
func applyChanges(rec *results.Record, changes query.Changes) error {
	for _, k := range sortedKeys(changes.Set) {
		rec.Fields.Set(k, changes.Set[k])
	}
	for _, k := range sortedKeys(changes.Inc) {
		cur, _ := rec.Fields.Get(k)
		v, err := increment(cur, changes.Inc[k])
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		rec.Fields.Set(k, v)
	}
	return nil
}

// increment adds delta to cur. Whole operands give an int64 result.
func increment(cur, delta any) (any, error) {
	if cur == nil {
		cur = int64(0)
	}
	if !isNumber(cur) {
		return nil, fmt.Errorf("current value %v is not numeric", cur)
	}
	if !isNumber(delta) {
		return nil, fmt.Errorf("delta %v is not numeric", delta)
	}
	if c, ok := wholeInt(cur); ok {
		if d, ok := wholeInt(delta); ok {
			return c + d, nil
		}
	}
	c, err := cast.ToFloat64E(cur)
	if err != nil {
		return nil, err
	}
	d, err := cast.ToFloat64E(delta)
	if err != nil {
		return nil, err
	}
	return c + d, nil
}

// wholeInt returns v as an int64 when it holds an integer
func wholeInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil || !isWhole(f) {
			return 0, false
		}
		return int64(f), true
	case float32:
		if !isWhole(float64(n)) {
			return 0, false
		}
		return int64(n), true
	case float64:
		if !isWhole(n) {
			return 0, false
		}
		return int64(n), true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint64:
		return int64(n), n <= math.MaxInt64
	}
	i, err := cast.ToInt64E(v)
	return i, err == nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

// isWhole reports whether f is an integer exactly representable as float64
func isWhole(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) <= 1<<53
}

// DeleteAll deletes the documents matching desc. A lone "_id =" condition
// is a direct delete, where a missing document counts as zero.
func (b *Bridge) DeleteAll(ctx context.Context, desc query.Descriptor) (*results.Results[int64], error) {
	ctx, op := b.start(ctx, "delete_all", kindIndex)
	res, err := b.deleteAll(ctx, op, desc)
	return finish(ctx, b, op, res, err)
}

func (b *Bridge) deleteAll(ctx context.Context, op *operation, desc query.Descriptor) (*results.Results[int64], error) {
	if id, ok := singleID(desc.Conditions); ok {
		op.params = map[string]any{"_id": id}
		resp, err := b.exec(ctx, op, "delete", func(ctx context.Context) (*search.Response, error) {
			return b.transport.Delete(ctx, b.index, id, b.refresh)
		})
		if err != nil {
			if IsNotFound(err) {
				return results.New(op.tag, int64(0), op.params).SetMeta("deleted", int64(0)), nil
			}
			return nil, err
		}
		var out indexResponse
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return nil, decodeError(op.name, op.params, err)
		}
		var n int64
		if out.Result == resultDeleted {
			n = 1
		}
		return results.New(op.tag, n, op.params).SetMeta("deleted", n), nil
	}

	body, err := b.builder(ctx).DeleteByQuery(desc.Conditions)
	if err != nil {
		return nil, withOp(op.name, err)
	}
	op.params = body
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ParamError{Op: op.name, Message: err.Error()}
	}
	resp, err := b.exec(ctx, op, "delete_by_query", func(ctx context.Context) (*search.Response, error) {
		return b.transport.DeleteByQuery(ctx, b.index, payload, b.refresh)
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Deleted  int64 `json:"deleted"`
		Total    int64 `json:"total"`
		Failures []any `json:"failures"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, decodeError(op.name, op.params, err)
	}
	res := results.New(op.tag, out.Deleted, body).
		SetMeta("deleted", out.Deleted).
		SetMeta("total", out.Total)
	if len(out.Failures) > 0 {
		res.SetMeta("failures", out.Failures)
	}
	return res, nil
}

// singleID returns the id of a lone "_id =" condition
func singleID(conds []query.Condition) (string, bool) {
	if len(conds) != 1 {
		return "", false
	}
	c := conds[0]
	if c.Attribute != "_id" || len(c.Nested) > 0 || c.Relation != nil || c.Value == nil {
		return "", false
	}
	if c.Operator != "" && c.Operator != query.OpEq {
		return "", false
	}
	switch c.Value.(type) {
	case string, int, int32, int64, uint, uint32, uint64, json.Number:
		return fmt.Sprint(c.Value), true
	}
	return "", false
}
