package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// commitTimeout bounds a single offset commit.
const commitTimeout = 3 * time.Second

// KafkaPublisher writes to any topic through one synchronous writer.
type KafkaPublisher struct {
	writer  *kafka.Writer
	brokers []string
	logger  *slog.Logger
}

// NewKafkaPublisher creates a publisher for brokers. The writer connects
// lazily; use Ping to verify reachability.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
		brokers: brokers,
		logger:  logger.With("component", "kafka_publisher"),
	}
}

// Publish implements Publisher. It blocks until all in-sync replicas ack.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, msg Message) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to write to kafka topic %s: %w", topic, err)
	}
	return nil
}

// Ping implements Publisher.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return CheckBrokers(ctx, p.brokers)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// CheckBrokers succeeds as soon as one broker accepts a connection.
func CheckBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("%w: no brokers configured", ErrBrokerUnavailable)
	}

	var errs []error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("%w: %v", ErrBrokerUnavailable, errors.Join(errs...))
}

// KafkaConsumer reads one topic as a member of a consumer group and commits
// offsets manually.
type KafkaConsumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewKafkaConsumer joins groupID on topic, starting from the earliest offset
// when the group has no committed position.
func NewKafkaConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *KafkaConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commits
		StartOffset:    kafka.FirstOffset,
	})
	return &KafkaConsumer{
		reader: r,
		logger: logger.With("component", "kafka_consumer", "topic", topic, "group_id", groupID),
	}
}

// Fetch implements Consumer.
func (c *KafkaConsumer) Fetch(ctx context.Context) (Delivery, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Delivery{}, err
	}

	commit := func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, commitTimeout)
		defer cancel()
		return c.reader.CommitMessages(cctx, m)
	}
	return NewDelivery(m.Topic, m.Key, m.Value, m.Offset, commit), nil
}

// Close leaves the consumer group.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
