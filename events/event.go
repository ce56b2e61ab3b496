package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"web/polaris/annotation"
	"web/polaris/geo"
)

type Type string

const (
	RegionChanged        Type = "region_changed"
	RegionConfirmed      Type = "region_confirmed"
	AnnotationSelected   Type = "annotation_selected"
	AnnotationDeselected Type = "annotation_deselected"
	AnnotationClicked    Type = "annotation_clicked"
	CalloutShown         Type = "callout_shown"
	CalloutDismissed     Type = "callout_dismissed"
	BackgroundTap        Type = "background_tap"
	BackgroundDoubleTap  Type = "background_double_tap"
	BackgroundLongPress  Type = "background_long_press"
	AnnotationsClustered Type = "annotations_clustered"
	SessionClosed        Type = "session_closed"
)

// Event is something that happened on a map session. Only the fields
// relevant to Type are set.
type Event struct {
	SessionID  string                 `json:"sessionId"`
	Type       Type                   `json:"type"`
	Index      int                    `json:"index"`
	Annotation *annotation.Annotation `json:"annotation,omitempty"`
	Count      int                    `json:"count,omitempty"`
	Point      *geo.GeoPoint          `json:"point,omitempty"`
	Region     *geo.Region            `json:"region,omitempty"`
	Time       time.Time              `json:"time"`
}

// Sink receives session events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber delivers the events of one session to fn until the returned
// unsubscribe func is called.
type Subscriber interface {
	Subscribe(sessionID string, fn func(Event)) (func(), error)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// MultiSink publishes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to a logger at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, ev Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "session event",
		"session", ev.SessionID,
		"type", string(ev.Type),
		"index", ev.Index,
	)
	return nil
}

// Bus is an in-process Sink and Subscriber.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]func(Event))}
}

func (b *Bus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[ev.SessionID]))
	for _, fn := range b.subs[ev.SessionID] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (b *Bus) Subscribe(sessionID string, fn func(Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[int]func(Event))
	}
	b.subs[sessionID][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[sessionID], id)
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
	}, nil
}
