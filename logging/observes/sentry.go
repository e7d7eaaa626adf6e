package observes

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/ctxutil"
)

// NewSentry initializes the sentry client. It reports whether capture is enabled.
func NewSentry(cfg *config.Sentry, serverName string) (bool, error) {
	// if not exist sentry config, skip initialization
	if cfg == nil || cfg.Endpoint == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Endpoint,
		AttachStacktrace: true,
		SampleRate:       cfg.SampleRate,
		ServerName:       serverName,
		Release:          cfg.Release,
		Environment:      cfg.Environment,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// FlushSentry waits for buffered events to be delivered
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// ErrorReporter receives failures of bridge operations
type ErrorReporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// SentryReporter reports errors to the sentry hub
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter creates a reporter on hub, or on the current hub when nil
func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryReporter{hub: hub}
}

// Report captures err with the given tags and the trace id of ctx
func (r *SentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if traceID := ctxutil.GetTraceID(ctx); traceID != "" {
			scope.SetTag(ctxutil.TraceIDKey, traceID)
		}
		r.hub.CaptureException(err)
	})
}

// NoopReporter drops every report
type NoopReporter struct{}

// Report does nothing
func (NoopReporter) Report(context.Context, error, map[string]string) {}
