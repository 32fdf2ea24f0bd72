// Package stream pushes recorded integrity events to subscribers outside the
// polling path. Publishing is best effort.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"examguard/internal/integrity/models"
	"examguard/internal/platform/kafka/producer"
	"examguard/internal/platform/tracer"
)

// DefaultTopic carries every recorded event, keyed by exam id so one exam's
// events stay ordered within a partition.
const DefaultTopic = "examguard.integrity.events"

// Producer is the subset of the Kafka producer the publisher needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
	Close() error
}

// KafkaPublisher publishes events as JSON records.
type KafkaPublisher struct {
	producer Producer
	topic    string
	tracer   tracer.Tracer
}

type Option func(*KafkaPublisher)

func WithTopic(topic string) Option {
	return func(p *KafkaPublisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(p *KafkaPublisher) {
		if t != nil {
			p.tracer = t
		}
	}
}

func NewKafka(prod Producer, opts ...Option) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: prod,
		topic:    DefaultTopic,
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes ev to the topic and waits for acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, ev models.Event) (err error) {
	ctx, span := p.tracer.Start(ctx, tracer.SpanPublishEvent,
		tracer.String(tracer.AttrExamID, ev.ExamID),
		tracer.String(tracer.AttrEventType, string(ev.Type)),
	)
	defer func() { span.End(err) }()

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode integrity event: %w", err)
	}
	return p.producer.Produce(ctx, &producer.Message{
		Topic: p.topic,
		Key:   []byte(ev.ExamID),
		Value: value,
		Headers: map[string]string{
			"event_id":   ev.ID,
			"event_type": string(ev.Type),
			"severity":   string(models.SeverityOf(ev.Type)),
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.Event) error { return nil }
func (Noop) Close() error                                { return nil }
