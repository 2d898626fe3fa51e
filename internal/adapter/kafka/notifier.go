// Package kafka publishes report-submitted events so downstream consumers
// (alerting, analytics) can react to new road reports without polling the
// record store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahnoorwas/rain-route-smart/internal/config"
	"github.com/mahnoorwas/rain-route-smart/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Notifier produces report events to a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured report topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.ReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// ReportSubmitted publishes one accepted road report, keyed by report ID so
// replays of the same report land in the same partition.
func (n *Notifier) ReportSubmitted(ctx context.Context, r domain.RoadReport) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a RoadReport into a Kafka message.
func serializeToMessage(r domain.RoadReport) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize road report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "rain_level", Value: []byte(r.RainLevel)},
			{Key: "reported_at", Value: []byte(r.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
