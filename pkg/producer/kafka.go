package producer

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProduceResult holds the result of an asynchronous production
type ProduceResult struct {
	Error error
}

// Message is a keyed JSON payload to publish
type Message struct {
	Key   []byte
	Value []byte
}

// Producer publishes game records and predictions
type Producer interface {
	// PublishAsync sends a message without blocking the caller. The
	// returned channel receives exactly one result.
	PublishAsync(ctx context.Context, key, value []byte) <-chan ProduceResult

	// PublishBatch sends messages and waits for the broker to accept them
	PublishBatch(ctx context.Context, msgs []Message) error

	Close() error
}

// Config holds Kafka producer configuration
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	// RequireAll waits for every in-sync replica instead of the leader only
	RequireAll bool
}

// KafkaProducer implements Producer using kafka-go. Messages are hashed by
// key, so every record of one game lands on the same partition.
type KafkaProducer struct {
	writer *kafka.Writer
}

var jsonHeader = kafka.Header{Key: "content-type", Value: []byte("application/json")}

func (c Config) writer() *kafka.Writer {
	batchTimeout := c.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 50 * time.Millisecond
	}
	acks := kafka.RequireOne
	if c.RequireAll {
		acks = kafka.RequireAll
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           acks,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaProducer creates a producer for cfg.Topic
func NewKafkaProducer(cfg Config) *KafkaProducer {
	return &KafkaProducer{writer: cfg.writer()}
}

func toKafka(m Message) kafka.Message {
	return kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: []kafka.Header{jsonHeader},
	}
}

// PublishAsync writes the message from its own goroutine
func (p *KafkaProducer) PublishAsync(ctx context.Context, key, value []byte) <-chan ProduceResult {
	results := make(chan ProduceResult, 1)
	go func() {
		defer close(results)
		results <- ProduceResult{Error: p.writer.WriteMessages(ctx, toKafka(Message{Key: key, Value: value}))}
	}()
	return results
}

// PublishBatch writes all messages in one call
func (p *KafkaProducer) PublishBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		batch[i] = toKafka(m)
	}
	return p.writer.WriteMessages(ctx, batch...)
}

// Close flushes pending messages and closes the writer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
