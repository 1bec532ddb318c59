package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-report-service/internal/config"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

// Publisher produces report lifecycle events to a Kafka topic.
// It implements reports.EventPublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher creates a Kafka producer for the configured events topic.
// Messages are keyed by report id so events for one report stay ordered.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 5 * time.Second,
		// Publish runs on the request path: flush each event immediately instead
		// of waiting out the writer's default one-second batch timeout.
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes one event.
func (p *Publisher) Publish(ctx context.Context, evt domain.ReportEvent) error {
	msg, err := serializeToMessage(evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", evt.Type, err)
	}
	p.logger.Debug("report event published", "type", evt.Type, "id", evt.Report.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ReportEvent into a Kafka message.
func serializeToMessage(evt domain.ReportEvent) (kafkago.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(evt.Report.ID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "owner_id", Value: []byte(evt.Report.OwnerID)},
			{Key: "occurred_at", Value: []byte(evt.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
