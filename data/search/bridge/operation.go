package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/ncobase/querybridge/ctxutil"
	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/ncobase/querybridge/logging/observes"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// operation kinds, used to pick the metrics series
const (
	kindQuery = "query"
	kindIndex = "index"
)

// operation tracks one bridge call from start to envelope
type operation struct {
	name   string
	kind   string
	tag    string
	params any
	span   *observes.Span
}

// start opens the span of op and makes sure ctx carries a trace id
func (b *Bridge) start(ctx context.Context, name, kind string) (context.Context, *operation) {
	ctx, _ = ctxutil.EnsureTraceID(ctx)
	tag := ctxutil.QueryTag(ctx, name)
	ctx, span := observes.StartSpan(ctx, "querybridge."+name,
		attribute.String("db.system", string(b.transport.Engine())),
		attribute.String("querybridge.index", b.index),
		attribute.String("querybridge.query_tag", tag),
	)
	return ctx, &operation{name: name, kind: kind, tag: tag, span: span}
}

// exec issues one transport call of op. Failures come back as *QueryError;
// the response is returned as well so callers can inspect 404 answers.
func (b *Bridge) exec(ctx context.Context, op *operation, call string, fn func(context.Context) (*search.Response, error)) (*search.Response, error) {
	start := time.Now()
	resp, err := fn(ctx)
	entry := b.logger.WithFields(ctx, logrus.Fields{
		"query_tag": op.tag,
		"index":     b.index,
		"call":      call,
		"duration":  time.Since(start).String(),
	})
	if resp != nil {
		entry = entry.WithField("status", resp.StatusCode)
	}
	entry.Debug("search request")

	if err != nil {
		return resp, newQueryError(op.name, op.params, err)
	}
	return resp, nil
}

// finish closes op and fills the envelope. On failure the envelope carries
// the error, which is also logged, reported and written to the diagnostic
// index.
func finish[T any](ctx context.Context, b *Bridge, op *operation, res *results.Results[T], err error) (*results.Results[T], error) {
	if res == nil {
		var zero T
		res = results.New(op.tag, zero, op.params)
	}
	res.QueryTag = op.tag
	if res.Params == nil && op.params != nil {
		res.Params = op.params
	}

	elapsed := op.span.End(err)
	engine := string(b.transport.Engine())
	if op.kind == kindIndex {
		b.collector.SearchIndex(engine, op.name, elapsed, err)
	} else {
		b.collector.SearchQuery(engine, op.name, elapsed, err)
	}

	if err == nil {
		b.logger.WithFields(ctx, res.LogFields()).WithField("elapsed", elapsed.String()).Debug("query bridge operation")
		return res, nil
	}

	code, class := classify(err)
	res.SetError(err.Error(), code, class)
	b.logger.WithFields(ctx, res.LogFields()).Error("query bridge operation failed")
	b.report(ctx, op, err)
	b.writeDiagnostic(ctx, op, res.Err)
	return res, err
}

// report forwards engine-side failures to the error reporter
func (b *Bridge) report(ctx context.Context, op *operation, err error) {
	var qe *QueryError
	if !errors.As(err, &qe) {
		return
	}
	var te *search.TransportError
	if errors.As(err, &te) && !te.IsServerSide() {
		return
	}
	b.reporter.Report(ctx, err, map[string]string{
		"operation": op.name,
		"index":     b.index,
		"engine":    string(b.transport.Engine()),
		"query_tag": op.tag,
		"class":     qe.Class,
	})
}
