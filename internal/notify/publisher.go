// Package notify announces finished report runs on Kafka.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/timereport/internal/events"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Publisher emits report.generated events to a single topic.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher constructs a Publisher writing to topic through writer.
func NewPublisher(writer messageWriter, topic string) *Publisher {
	return &Publisher{writer: writer, topic: topic}
}

// PublishReportGenerated serialises the event and writes it keyed by run id.
func (p *Publisher) PublishReportGenerated(ctx context.Context, event events.ReportGenerated) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", events.EventTypeReportGenerated, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.EventTypeReportGenerated)},
			{Key: "run_id", Value: []byte(event.RunID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", events.EventTypeReportGenerated, err)
	}
	return nil
}
