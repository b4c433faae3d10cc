package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/chalkin/chalkin/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// Conn exposes the underlying connection for health checks.
func (s *Subscriber) Conn() *nats.Conn {
	return s.conn
}

// SubscribeExportEvents delivers every new export event to handler. Each
// process gets its own ephemeral consumer so all API instances see all
// events.
func (s *Subscriber) SubscribeExportEvents(ctx context.Context, handler func(ctx context.Context, event *domain.ExportEvent) error) error {
	sub, err := s.js.Subscribe(exportSubjectPrefix+">", func(msg *nats.Msg) {
		var event domain.ExportEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("bad export event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
