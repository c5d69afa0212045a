package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "RIDE_EVENTS",
			Subjects:  []string{rideSubjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "GENERATION_REQUESTS",
			Subjects:  []string{generateSubject},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Already exists: update in place.
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRideEvent publishes ev on its ride subject. Generation requests go to
// the work queue instead, so exactly one worker picks each of them up.
func (p *Publisher) PublishRideEvent(ctx context.Context, ev domain.RideEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	subject := RideSubject(ev)
	if ev.Type == domain.EventGenerateRequested {
		subject = generateSubject
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(msgID(ev)))
	return err
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("groupride"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// msgID lets JetStream drop duplicates of the same event within its window.
func msgID(ev domain.RideEvent) string {
	return fmt.Sprintf("%s:%s:%d", ev.RideID, ev.Type, ev.Time.UnixNano())
}
