package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/Iv91/kidslearning/internal/models"
)

// EventType names a published event
type EventType string

const (
	EventAttemptCompleted EventType = "attempt.completed"

	source  = "quiz-player"
	version = "1.0"
)

// Event is the envelope of every published event
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

// NewAttemptCompleted wraps a finished attempt
func NewAttemptCompleted(a *models.Attempt) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      EventAttemptCompleted,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   version,
		Data:      a,
	}
}

// Publisher publishes domain events
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// KafkaPublisher publishes through Watermill to Kafka
type KafkaPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topic     string
}

// KafkaConfig holds the Kafka publisher settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Logger  *slog.Logger
}

// NewKafkaPublisher creates a Kafka backed publisher
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	logger := watermill.NewSlogLogger(cfg.Logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return newMessagePublisher(publisher, cfg.Topic, cfg.Logger), nil
}

func newMessagePublisher(publisher message.Publisher, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{publisher: publisher, logger: logger, topic: topic}
}

// Publish sends the event to the configured topic
func (p *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.logger.Error("failed to publish event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topic,
	)
	return nil
}

// Close releases the underlying publisher
func (p *KafkaPublisher) Close() error {
	return p.publisher.Close()
}

// LogPublisher records events in memory and logs them
type LogPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event *Event) error {
	p.mu.Lock()
	p.events = append(p.events, *event)
	p.mu.Unlock()

	p.logger.Info("event recorded",
		"event_id", event.ID,
		"event_type", event.Type,
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

// Events returns a copy of every recorded event
func (p *LogPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
