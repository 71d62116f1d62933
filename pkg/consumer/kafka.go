package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Message is one raw game record read from Kafka
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Time      time.Time

	raw kafka.Message // needed to commit
}

// Consumer defines the interface for consuming messages from Kafka
type Consumer interface {
	// Consume streams messages until ctx is done or fetching fails. Both
	// channels are closed when the stream ends.
	Consume(ctx context.Context) (<-chan Message, <-chan error)

	// Commit marks msg and everything before it on its partition as processed
	Commit(ctx context.Context, msg Message) error

	// Close gracefully shuts down the consumer
	Close() error
}

// KafkaConsumer implements Consumer with a kafka-go group reader
type KafkaConsumer struct {
	reader *kafka.Reader
}

// Config holds Kafka consumer configuration
type Config struct {
	Brokers []string
	Topic   string
	GroupID string

	// FromBeginning makes a new consumer group start at the oldest offset
	// instead of only seeing games published after it joined
	FromBeginning bool

	// MaxWait bounds how long a fetch waits for new games, 1s when zero
	MaxWait time.Duration
}

func (cfg Config) readerConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1, // game records are small, deliver them as they arrive
		MaxBytes:    10e6,
		MaxWait:     cfg.MaxWait,
	}
	if cfg.FromBeginning {
		rc.StartOffset = kafka.FirstOffset
	}
	if rc.MaxWait == 0 {
		rc.MaxWait = time.Second
	}
	return rc
}

// NewKafkaConsumer creates a reader that joins cfg.GroupID
func NewKafkaConsumer(cfg Config) *KafkaConsumer {
	return &KafkaConsumer{reader: kafka.NewReader(cfg.readerConfig())}
}

// Consume starts the fetch loop. Offsets are not committed automatically.
func (c *KafkaConsumer) Consume(ctx context.Context) (<-chan Message, <-chan error) {
	msgs := make(chan Message)
	errs := make(chan error, 1)
	go c.fetchLoop(ctx, msgs, errs)
	return msgs, errs
}

func (c *KafkaConsumer) fetchLoop(ctx context.Context, msgs chan<- Message, errs chan<- error) {
	defer close(msgs)
	defer close(errs)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				errs <- fmt.Errorf("failed to fetch from %s: %w", c.reader.Config().Topic, err)
			}
			return
		}

		select {
		case msgs <- fromKafka(m):
		case <-ctx.Done():
			return
		}
	}
}

func fromKafka(m kafka.Message) Message {
	return Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Time:      m.Time,
		raw:       m,
	}
}

func (c *KafkaConsumer) Commit(ctx context.Context, msg Message) error {
	return c.reader.CommitMessages(ctx, msg.raw)
}

// Lag is the number of games behind the partition head, as last seen
func (c *KafkaConsumer) Lag() int64 {
	return c.reader.Stats().Lag
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
