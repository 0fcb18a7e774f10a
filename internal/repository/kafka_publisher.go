package repository

import (
	"context"

	"QuotePulse/internal/domain/models"
	"QuotePulse/internal/domain/repository"
	"QuotePulse/pkg/kafka"
)

// QuotePublisher fans resolved quotes out to a Kafka topic. Messages are
// keyed by symbol so per-symbol ordering survives partitioning.
type QuotePublisher struct {
	producer *kafka.Producer
	topic    string
}

// NewQuotePublisher creates a Kafka-backed quote publisher.
func NewQuotePublisher(producer *kafka.Producer, topic string) *QuotePublisher {
	return &QuotePublisher{producer: producer, topic: topic}
}

// PublishBatch sends one tick's worth of quotes in a single writer call.
// A lone quote skips the batch path.
func (p *QuotePublisher) PublishBatch(ctx context.Context, quotes []*models.Quote) error {
	switch len(quotes) {
	case 0:
		return nil
	case 1:
		return p.producer.Publish(ctx, p.topic, []byte(quotes[0].Symbol), quotes[0])
	}
	msgs := make([]kafka.Message, 0, len(quotes))
	for _, q := range quotes {
		msgs = append(msgs, kafka.Message{Key: []byte(q.Symbol), Value: q})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close flushes and closes the underlying producer.
func (p *QuotePublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when downstream publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishBatch(context.Context, []*models.Quote) error { return nil }
func (NoopPublisher) Close() error                                        { return nil }

var _ repository.Publisher = (*QuotePublisher)(nil)
var _ repository.Publisher = NoopPublisher{}
