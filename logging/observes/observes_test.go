package observes

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/ctxutil"
)

func TestNewTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := NewTracer(&config.Tracer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}

func TestStartSpan_End(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "find")
	if ctx == nil {
		t.Fatal("expected context")
	}
	if d := span.End(errors.New("boom")); d < 0 {
		t.Fatalf("unexpected duration %v", d)
	}
}

func TestNewSentry_SkipsWithoutDSN(t *testing.T) {
	enabled, err := NewSentry(&config.Sentry{}, "test")
	if err != nil || enabled {
		t.Fatalf("expected sentry disabled, got %v %v", enabled, err)
	}
}

func TestSentryReporter_Report(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			events = append(events, e)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	hub := sentry.NewHub(client, sentry.NewScope())

	ctx := ctxutil.SetTraceID(context.Background(), "t-1")
	NewSentryReporter(hub).Report(ctx, errors.New("query failed"), map[string]string{"query_tag": "find"})

	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	ev := events[0]
	if ev.Tags["query_tag"] != "find" || ev.Tags[ctxutil.TraceIDKey] != "t-1" {
		t.Fatalf("unexpected tags %v", ev.Tags)
	}
}
