package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes alert events on a subject.
type NATSNotifier struct {
	pub     Publisher
	subject string
	logger  zerolog.Logger
}

// DialNATS connects to a NATS server for alert publishing.
func DialNATS(url string, timeout time.Duration) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("stockpulse"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// NewNATSNotifier wraps a publisher.
func NewNATSNotifier(pub Publisher, subject string, logger zerolog.Logger) *NATSNotifier {
	return &NATSNotifier{
		pub:     pub,
		subject: subject,
		logger:  logger.With().Str("component", "alert_nats").Logger(),
	}
}

// Notify publishes the event. Core NATS publish is fire and forget, so ctx
// is only checked before publishing.
func (n *NATSNotifier) Notify(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := newEvent(note).marshal()
	if err != nil {
		return fmt.Errorf("marshal nats event: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish nats event: %w", err)
	}

	n.logger.Debug().Str("subject", n.subject).Str("symbol", note.Rule.Symbol).Msg("alert event published")
	return nil
}

var (
	_ Notifier  = (*NATSNotifier)(nil)
	_ Publisher = (*nats.Conn)(nil)
)
