package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/querybridge/ctxutil"
	"github.com/ncobase/querybridge/data/search/results"
)

// diagnostic is the document written to the diagnostic index per failure
type diagnostic struct {
	Timestamp string `json:"@timestamp"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	Class     string `json:"class,omitempty"`
	QueryTag  string `json:"query_tag"`
	Operation string `json:"operation"`
	Index     string `json:"index"`
	Params    any    `json:"params,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Engine    string `json:"engine"`
}

// writeDiagnostic persists a failure. It runs on a context detached from
// the caller's cancellation; its own failures are only debug-logged.
func (b *Bridge) writeDiagnostic(ctx context.Context, op *operation, e *results.Error) {
	if b.diagIndex == "" || e == nil {
		return
	}

	params := op.params
	if d := b.logger.Desensitizer(); d != nil && params != nil {
		params = d.DeepDesensitize(params)
	}
	doc := diagnostic{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Message:   e.Message,
		Code:      e.Code,
		Class:     e.Class,
		QueryTag:  op.tag,
		Operation: op.name,
		Index:     b.index,
		Params:    params,
		TraceID:   ctxutil.GetTraceID(ctx),
		Engine:    string(b.transport.Engine()),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		b.logger.Debugf(ctx, "encode diagnostic document: %v", err)
		return
	}

	dctx, cancel := ctxutil.Detached(ctx, ctxutil.DefaultDetachedTimeout)
	defer cancel()
	if _, err := b.transport.Index(dctx, b.diagIndex, uuid.NewString(), body, false); err != nil {
		b.logger.Debugf(ctx, "write diagnostic document to %s: %v", b.diagIndex, err)
	}
}
