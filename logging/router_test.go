package logging_test

import (
	"context"
	"testing"
	"time"

	"manhunt/server/logging"
	"manhunt/server/logging/sinks"
)

func newTestRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.MemorySink) {
	t.Helper()
	sink := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: sink}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return router, sink
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRouterDeliversToSinks(t *testing.T) {
	cfg := logging.DefaultConfig()
	router, sink := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{
		Type:     "test.event",
		Tick:     7,
		Actor:    logging.EntityRef{ID: "agent-1", Kind: logging.EntityKindAgent},
		Severity: logging.SeverityInfo,
	})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("delivered %d events, want 1", len(events))
	}
	got := events[0]
	if got.Type != "test.event" || got.Tick != 7 || got.Actor.ID != "agent-1" {
		t.Fatalf("event = %+v", got)
	}
	if got.Time.IsZero() {
		t.Fatalf("router should stamp the event time")
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	router, sink := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "debug.event", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "info.event", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 || events[0].Type != "info.event" {
		t.Fatalf("events = %+v, want only the info event", events)
	}
}

func TestRouterStampsConfiguredFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"runId": "run-42"}
	router, sink := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("delivered %d events, want 1", len(events))
	}
	if got := events[0].Extra["runId"]; got != "run-42" {
		t.Fatalf("runId = %v, want run-42", got)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	router, sink := newTestRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityInfo})
	closeRouter(t, router)

	if events := sink.Events(); len(events) != 0 {
		t.Fatalf("untyped event delivered: %+v", events)
	}
}

func TestWithFieldsDoesNotOverrideExisting(t *testing.T) {
	var captured logging.Event
	base := logging.PublisherFunc(func(ctx context.Context, event logging.Event) {
		captured = event
	})
	pub := logging.WithFields(base, map[string]any{"runId": "outer"})

	pub.Publish(context.Background(), logging.Event{
		Type:  "test.event",
		Extra: map[string]any{"runId": "inner"},
	})
	if got := captured.Extra["runId"]; got != "inner" {
		t.Fatalf("runId = %v, want the event's own value preserved", got)
	}
}
