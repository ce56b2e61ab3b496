package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject is the NATS subject carrying the events of one session.
func Subject(sessionID string) string {
	return "polaris.sessions." + sessionID + ".events"
}

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("polaris"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// NATSPublisher implements Sink on a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(ev.SessionID), data)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}

// NATSSubscriber implements Subscriber on a NATS connection.
type NATSSubscriber struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewNATSSubscriber(conn *nats.Conn, logger *slog.Logger) *NATSSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSubscriber{conn: conn, logger: logger}
}

func (s *NATSSubscriber) Subscribe(sessionID string, fn func(Event)) (func(), error) {
	sub, err := s.conn.Subscribe(Subject(sessionID), func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			s.logger.Error("decode session event", "subject", msg.Subject, "error", err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", sessionID, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
