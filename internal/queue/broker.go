package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/ad-moderation/internal/config"
)

// Message is a keyed payload bound for a topic.
type Message struct {
	Key   []byte
	Value []byte
}

// Publisher writes messages to a broker. Publish returns only after the
// broker has acknowledged the write.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
	// Ping reports whether the broker is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Delivery is a consumed message that stays unacknowledged until Commit.
type Delivery struct {
	Key    []byte
	Value  []byte
	Topic  string
	Offset int64

	commit func(ctx context.Context) error
}

// NewDelivery builds a Delivery whose Commit calls commit.
func NewDelivery(topic string, key, value []byte, offset int64, commit func(ctx context.Context) error) Delivery {
	return Delivery{Key: key, Value: value, Topic: topic, Offset: offset, commit: commit}
}

// Commit acknowledges the delivery so it is not redelivered.
func (d Delivery) Commit(ctx context.Context) error {
	if d.commit == nil {
		return nil
	}
	return d.commit(ctx)
}

// Consumer reads deliveries from the moderation topic one at a time.
type Consumer interface {
	// Fetch blocks until a delivery arrives or ctx is done.
	Fetch(ctx context.Context) (Delivery, error)
	Close() error
}

// NewPublisher connects the publisher selected by cfg.Queue.Driver.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	switch cfg.Queue.Driver {
	case config.QueueDriverKafka:
		return NewKafkaPublisher(cfg.Kafka.Brokers(), logger), nil
	case config.QueueDriverAMQP:
		return NewAMQPPublisher(cfg.AMQP.URL, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Queue.Driver)
	}
}

// NewConsumer connects the consumer selected by cfg.Queue.Driver to the
// moderation topic.
func NewConsumer(cfg *config.Config, logger *slog.Logger) (Consumer, error) {
	switch cfg.Queue.Driver {
	case config.QueueDriverKafka:
		return NewKafkaConsumer(cfg.Kafka.Brokers(), cfg.Kafka.ModerationTopic, cfg.Kafka.GroupID, logger), nil
	case config.QueueDriverAMQP:
		return NewAMQPConsumer(cfg.AMQP.URL, cfg.Kafka.ModerationTopic, cfg.Kafka.GroupID, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Queue.Driver)
	}
}
