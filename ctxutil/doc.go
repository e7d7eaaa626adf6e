// Package ctxutil carries request-scoped values used by the query bridge.
//
// A trace id travels with every operation so that log lines, diagnostic
// documents and result envelopes can be correlated:
//
//	ctx, traceID := ctxutil.EnsureTraceID(ctx)
//
// Callers may prefix the query tag of every result produced under a context:
//
//	ctx = ctxutil.SetQueryTag(ctx, "users.listActive")
//	res, err := b.Find(ctx, desc) // res.QueryTag == "users.listActive.find"
//
// Detached derives a context that survives cancellation of its parent, for
// side writes that must not be lost when the caller gives up:
//
//	dctx, cancel := ctxutil.Detached(ctx, 0)
//	defer cancel()
package ctxutil
