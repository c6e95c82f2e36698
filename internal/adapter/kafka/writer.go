package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crisis-event-aggregator/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes snapshots to a Kafka topic, one message per event.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every event in snap and writes them in a single
// WriteMessages call. An empty snapshot is a no-op.
func (w *Writer) Publish(ctx context.Context, snap domain.Snapshot) error {
	if len(snap.Events) == 0 {
		return nil
	}
	msgs, err := snapshotMessages(snap)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("snapshot written", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func snapshotMessages(snap domain.Snapshot) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, len(snap.Events))
	for i := range snap.Events {
		msg, err := serializeToMessage(snap.ID, snap.Events[i])
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// serializeToMessage marshals an Event into a message keyed by event ID so
// updates to the same event land on the same partition.
func serializeToMessage(snapshotID string, event domain.Event) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event %s: %w", event.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte(event.Type)},
			{Key: "severity", Value: []byte(event.Severity)},
			{Key: "snapshot_id", Value: []byte(snapshotID)},
		},
	}, nil
}
