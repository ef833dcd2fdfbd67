// Package events bridges domain events onto the Kafka shipping topic.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/opsconsole/shipping-service/internal/domain"
	"github.com/opsconsole/shipping-service/pkg/kafka"
	"github.com/opsconsole/shipping-service/pkg/logging"
	"github.com/opsconsole/shipping-service/pkg/metrics"
)

// Producer is the slice of the Kafka producer the publisher needs.
type Producer interface {
	PublishEvent(ctx context.Context, topic string, event *kafka.Event) error
	PublishBatch(ctx context.Context, topic string, events []*kafka.Event) error
}

// KafkaPublisher publishes domain events to the shipping events topic.
type KafkaPublisher struct {
	producer Producer
	source   string
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewKafkaPublisher creates a publisher. source goes into the event envelope
// so consumers can tell which service emitted it.
func NewKafkaPublisher(producer Producer, source string, logger *logging.Logger, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		source:   source,
		logger:   logger,
		metrics:  m,
	}
}

// Publish sends one domain event.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	envelope, err := kafka.NewEvent(event.EventType(), p.source, event.EventType(), event)
	if err != nil {
		return fmt.Errorf("failed to build event envelope: %w", err)
	}

	start := time.Now()
	err = p.producer.PublishEvent(ctx, kafka.Topics.ShippingEvents, envelope)
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(kafka.Topics.ShippingEvents, event.EventType(), err == nil, time.Since(start))
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, kafka.Topics.ShippingEvents, event.EventType(), err == nil, time.Since(start))
	}
	return err
}

// PublishAll sends a batch of domain events in a single produce call.
func (p *KafkaPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	envelopes := make([]*kafka.Event, 0, len(events))
	for _, event := range events {
		envelope, err := kafka.NewEvent(event.EventType(), p.source, event.EventType(), event)
		if err != nil {
			return fmt.Errorf("failed to build event envelope: %w", err)
		}
		envelopes = append(envelopes, envelope)
	}

	start := time.Now()
	err := p.producer.PublishBatch(ctx, kafka.Topics.ShippingEvents, envelopes)
	duration := time.Since(start)
	for _, event := range events {
		if p.metrics != nil {
			p.metrics.RecordKafkaPublish(kafka.Topics.ShippingEvents, event.EventType(), err == nil, duration)
		}
		if p.logger != nil {
			p.logger.KafkaPublish(ctx, kafka.Topics.ShippingEvents, event.EventType(), err == nil, duration)
		}
	}
	return err
}
