package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// declareQueue declares a durable queue named after a topic. Declaring is
// idempotent.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // auto-deleted
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// AMQPPublisher publishes to durable queues through the default exchange
// with publisher confirms enabled.
type AMQPPublisher struct {
	conn   *amqp.Connection
	logger *slog.Logger

	mu       sync.Mutex
	channel  *amqp.Channel
	declared map[string]bool
}

// NewAMQPPublisher dials url and puts a channel into confirm mode.
func NewAMQPPublisher(url string, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		declared: make(map[string]bool),
		logger:   logger.With("component", "amqp_publisher"),
	}, nil
}

// Publish implements Publisher. It waits for the broker's confirm.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[topic] {
		if err := declareQueue(p.channel, topic); err != nil {
			return err
		}
		p.declared[topic] = true
	}

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		"",    // default exchange
		topic, // routing key is the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    string(msg.Key),
			Timestamp:    time.Now(),
			Body:         msg.Value,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", topic, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for confirm on queue %s: %w", topic, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked message on queue %s", topic)
	}
	return nil
}

// Ping implements Publisher.
func (p *AMQPPublisher) Ping(ctx context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("%w: RabbitMQ connection is closed", ErrBrokerUnavailable)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	return closeAMQP(p.channel, p.conn, p.logger)
}

// AMQPConsumer consumes one durable queue with manual acknowledgements and
// a prefetch of one, so a worker holds at most one unacked message.
type AMQPConsumer struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
	queue      string
	logger     *slog.Logger
}

// NewAMQPConsumer dials url and starts consuming queue under consumerTag.
func NewAMQPConsumer(url, queue, consumerTag string, logger *slog.Logger) (*AMQPConsumer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(err error) (*AMQPConsumer, error) {
		_ = channel.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := channel.Qos(1, 0, false); err != nil {
		return fail(fmt.Errorf("failed to set QoS: %w", err))
	}
	if err := declareQueue(channel, queue); err != nil {
		return fail(err)
	}

	deliveries, err := channel.Consume(
		queue,
		consumerTag,
		false, // auto-ack (we ack manually)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fail(fmt.Errorf("failed to register consumer: %w", err))
	}

	return &AMQPConsumer{
		conn:       conn,
		channel:    channel,
		deliveries: deliveries,
		queue:      queue,
		logger:     logger.With("component", "amqp_consumer", "queue", queue),
	}, nil
}

// Fetch implements Consumer.
func (c *AMQPConsumer) Fetch(ctx context.Context) (Delivery, error) {
	select {
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case d, ok := <-c.deliveries:
		if !ok {
			return Delivery{}, errors.New("delivery channel closed")
		}
		commit := func(context.Context) error {
			return d.Ack(false)
		}
		return NewDelivery(c.queue, []byte(d.MessageId), d.Body, int64(d.DeliveryTag), commit), nil
	}
}

// Close closes the channel and the connection. Unacked deliveries are
// requeued by the broker.
func (c *AMQPConsumer) Close() error {
	return closeAMQP(c.channel, c.conn, c.logger)
}

func closeAMQP(channel *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) error {
	if channel != nil {
		if err := channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			logger.Error("failed to close RabbitMQ channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
		}
	}
	return nil
}
