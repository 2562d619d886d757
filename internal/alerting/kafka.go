package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier writes alert events to a topic, keyed by symbol.
type KafkaNotifier struct {
	writer MessageWriter
	logger zerolog.Logger
}

// NewKafkaWriter builds a synchronous writer that partitions by key.
func NewKafkaWriter(brokers []string, topic string, timeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: timeout,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  1,
		Async:        false,
	}
}

// NewKafkaNotifier wraps a writer.
func NewKafkaNotifier(writer MessageWriter, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: writer,
		logger: logger.With().Str("component", "alert_kafka").Logger(),
	}
}

// Notify writes one message.
func (n *KafkaNotifier) Notify(ctx context.Context, note Notification) error {
	event := newEvent(note)
	data, err := event.marshal()
	if err != nil {
		return fmt.Errorf("marshal kafka event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(note.Rule.Symbol),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "owner", Value: []byte(note.Rule.Owner)},
		},
		Time: event.TriggeredAt,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka event: %w", err)
	}

	n.logger.Debug().Str("symbol", note.Rule.Symbol).Msg("alert event written")
	return nil
}

var (
	_ Notifier      = (*KafkaNotifier)(nil)
	_ MessageWriter = (*kafka.Writer)(nil)
)
