package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"web/polaris/geo"
)

type failingSink struct{ err error }

func (s failingSink) Publish(context.Context, Event) error { return s.err }

var (
	_ Subscriber = (*Bus)(nil)
	_ Subscriber = (*NATSSubscriber)(nil)
	_ Sink       = (*NATSPublisher)(nil)
)

func TestBusDeliversToSessionSubscribers(t *testing.T) {
	bus := NewBus()
	var a, b []Event
	unsubA, _ := bus.Subscribe("s1", func(ev Event) { a = append(a, ev) })
	bus.Subscribe("s2", func(ev Event) { b = append(b, ev) })

	bus.Publish(context.Background(), Event{SessionID: "s1", Type: BackgroundTap})
	bus.Publish(context.Background(), Event{SessionID: "s2", Type: RegionConfirmed})
	if len(a) != 1 || a[0].Type != BackgroundTap {
		t.Errorf("Expected s1 subscriber to get one tap, got %v", a)
	}
	if len(b) != 1 || b[0].Type != RegionConfirmed {
		t.Errorf("Expected s2 subscriber to get one confirmation, got %v", b)
	}

	unsubA()
	bus.Publish(context.Background(), Event{SessionID: "s1", Type: BackgroundTap})
	if len(a) != 1 {
		t.Errorf("Expected no delivery after unsubscribe, got %d events", len(a))
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	errA := errors.New("a")
	bus := NewBus()
	var got int
	bus.Subscribe("s", func(Event) { got++ })

	err := MultiSink{failingSink{errA}, bus, Discard}.Publish(context.Background(), Event{SessionID: "s"})
	if !errors.Is(err, errA) {
		t.Errorf("Expected joined error to wrap a, got %v", err)
	}
	if got != 1 {
		t.Errorf("Expected later sinks to still receive the event, got %d", got)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	sink.Publish(context.Background(), Event{SessionID: "abc", Type: AnnotationSelected, Index: 2})
	if !strings.Contains(buf.String(), "type=annotation_selected") || !strings.Contains(buf.String(), "index=2") {
		t.Errorf("Unexpected log output %q", buf.String())
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("abc"); got != "polaris.sessions.abc.events" {
		t.Errorf("Expected polaris.sessions.abc.events, got %s", got)
	}
}

func TestNATSRoundTrip(t *testing.T) {
	url := os.Getenv("POLARIS_TEST_NATS_URL")
	if url == "" {
		t.Skip("POLARIS_TEST_NATS_URL not set")
	}
	conn, err := Connect(url)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer conn.Close()

	received := make(chan Event, 1)
	unsubscribe, err := NewNATSSubscriber(conn, nil).Subscribe("round-trip", func(ev Event) { received <- ev })
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer unsubscribe()
	conn.Flush()

	p := geo.GeoPoint{LatE6: 48856614, LngE6: 2352222}
	err = NewNATSPublisher(conn).Publish(context.Background(), Event{SessionID: "round-trip", Type: BackgroundLongPress, Point: &p})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	select {
	case ev := <-received:
		if ev.Type != BackgroundLongPress || ev.Point == nil || *ev.Point != p {
			t.Errorf("Unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected event to arrive")
	}
}
