// Package activity handles Kafka event production for activity log entries.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/leancoach/coach-backend/model"
	"github.com/segmentio/kafka-go"
)

// ActivityProducer handles sending activity events to Kafka
type ActivityProducer struct {
	Writer *kafka.Writer
}

// NewActivityProducer initializes a new Kafka writer for activity events.
// A nil transport uses kafka-go's default.
func NewActivityProducer(brokers []string, topic string, transport kafka.RoundTripper) *ActivityProducer {
	return &ActivityProducer{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Transport:    transport,
		},
	}
}

// NewActivityRecordedEvent wraps an entry in the event envelope.
// The entry key doubles as the event id so replays are deduplicated downstream.
func NewActivityRecordedEvent(entry model.ActivityLog) ActivityRecordedEvent {
	if entry.Key == "" {
		entry.Key = uuid.New().String()
	}
	return ActivityRecordedEvent{
		EventType:     EventTypeActivityRecorded,
		EventID:       entry.Key,
		EventTime:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Activity:      entry,
	}
}

// PublishActivityRecorded sends the event to the Kafka topic, keyed by org
func (p *ActivityProducer) PublishActivityRecorded(ctx context.Context, entry model.ActivityLog) error {
	event := NewActivityRecordedEvent(entry)

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Activity.OrgKey),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *ActivityProducer) Close() error {
	return p.Writer.Close()
}
