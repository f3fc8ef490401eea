// Package events publishes booking lifecycle events to external subscribers.
// Publishing is best-effort: a failed publish is logged by callers, never
// rolled into the booking transaction.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/kafka"
)

// Publisher defines the interface for publishing booking events.
type Publisher interface {
	Publish(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking) error
	Close() error
}

// KafkaPublisher implements Publisher on a Kafka topic, keyed by booking id
// so per-booking ordering is preserved.
type KafkaPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// KafkaPublisherConfig contains configuration for the Kafka publisher.
type KafkaPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaPublisher creates a new Kafka event publisher.
func NewKafkaPublisher(ctx context.Context, cfg *KafkaPublisherConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "booking-events"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "booking-engine"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "booking-engine-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// Publish publishes a booking event to Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking) error {
	eventID := uuid.New().String()
	event := domain.NewBookingEvent(eventType, booking, eventID)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     eventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// NoOpPublisher discards events. Used when Kafka is unreachable at startup.
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (p *NoOpPublisher) Publish(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking) error {
	return nil
}

func (p *NoOpPublisher) Close() error {
	return nil
}

// RecordingPublisher captures events in memory for tests.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*domain.BookingEvent
}

// NewRecordingPublisher creates an empty recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, domain.NewBookingEvent(eventType, booking, uuid.New().String()))
	return nil
}

func (p *RecordingPublisher) Close() error {
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *RecordingPublisher) Events() []*domain.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.BookingEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsOfType filters the snapshot by type.
func (p *RecordingPublisher) EventsOfType(t domain.BookingEventType) []*domain.BookingEvent {
	var out []*domain.BookingEvent
	for _, e := range p.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*NoOpPublisher)(nil)
	_ Publisher = (*RecordingPublisher)(nil)
)
