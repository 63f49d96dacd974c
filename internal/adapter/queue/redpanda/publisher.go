// Package redpanda publishes domain events to a Redpanda/Kafka topic.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/vericv/internal/adapter/observability"
	"github.com/fairyhunter13/vericv/internal/domain"
)

const publishTimeout = 5 * time.Second

// producer is the subset of *kgo.Client used for publishing.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher implements domain.EventPublisher on a single topic.
type Publisher struct {
	client producer
	topic  string
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to brokers and makes sure the topic exists.
func NewPublisher(ctx context.Context, brokers []string, spec TopicSpec) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	slog.Info("creating redpanda publisher", slog.Any("brokers", brokers), slog.String("topic", spec.Name))

	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))),
	)
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(spec.Name),
		kgo.RequestRetries(3),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.DialTimeout(10*time.Second),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}
	if err := ensureTopic(ctx, client, spec); err != nil {
		slog.Warn("event topic not ensured, publishing anyway", slog.String("topic", spec.Name), slog.Any("error", err))
	}
	return &Publisher{client: client, topic: spec.Name}, nil
}

// Publish writes ev keyed by ev.Key and waits for the broker ack.
func (p *Publisher) Publish(ctx domain.Context, ev domain.Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		observability.ObserveEvent(ev.Type, "error")
		return fmt.Errorf("op=redpanda.Publish: marshal: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.Key),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "user_id", Value: []byte(ev.UserID)},
		},
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		observability.ObserveEvent(ev.Type, "error")
		return fmt.Errorf("op=redpanda.Publish: %w", err)
	}
	observability.ObserveEvent(ev.Type, "ok")
	observability.LoggerFromContext(ctx).Debug("event published", slog.String("type", ev.Type), slog.String("key", ev.Key))
	return nil
}

// Close flushes and closes the underlying client.
func (p *Publisher) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

// Noop drops events. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(_ domain.Context, ev domain.Event) error {
	slog.Debug("event dropped, publisher disabled", slog.String("type", ev.Type))
	return nil
}
