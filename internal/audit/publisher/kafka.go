package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const EventTypeAuditRecorded = "AuditRecorded"

// AuditEvent is the envelope written to the audit topic.
type AuditEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   *model.AuditLog `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes committed audit rows keyed by account id, so one
// account's trail stays ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, l *model.AuditLog) error {
	event := AuditEvent{
		EventID:   uuid.New().String(),
		EventType: EventTypeAuditRecorded,
		Payload:   l,
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(l.AccountID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeAuditRecorded)},
			{Key: "action", Value: []byte(l.Action)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
