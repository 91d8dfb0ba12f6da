// Package kafka publishes workflow stage events to a Kafka topic so other
// systems can follow run progress without polling the service.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/terrain-analysis-service/internal/config"
	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

// Notifier produces stage events to the configured events topic.
// It implements workflow.EventSink.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the workflow events topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// Publish serializes and sends one stage event. Events are keyed by run ID
// so one run's transitions land on the same partition, in order.
func (n *Notifier) Publish(ctx context.Context, event domain.StageEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a StageEvent into a Kafka message.
func serializeToMessage(event domain.StageEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize stage event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "state", Value: []byte(event.State)},
			{Key: "at", Value: []byte(event.At.Format(time.RFC3339))},
		},
	}, nil
}
