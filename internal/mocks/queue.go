package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/phrazzld/ad-moderation/internal/queue"
)

// PublishedMessage is one message captured by MockPublisher.
type PublishedMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

// MockPublisher is an in-memory queue.Publisher that records messages.
type MockPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	closed   bool

	PublishFn func(ctx context.Context, topic string, msg queue.Message) error
	PingErr   error
}

var _ queue.Publisher = (*MockPublisher)(nil)

// Publish implements queue.Publisher.
func (p *MockPublisher) Publish(ctx context.Context, topic string, msg queue.Message) error {
	if p.PublishFn != nil {
		if err := p.PublishFn(ctx, topic, msg); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Key: msg.Key, Value: msg.Value})
	return nil
}

// Ping implements queue.Publisher.
func (p *MockPublisher) Ping(context.Context) error { return p.PingErr }

// Close implements queue.Publisher.
func (p *MockPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Messages returns the messages published to topic.
func (p *MockPublisher) Messages(topic string) []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PublishedMessage
	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// DeadLetters decodes the dead-letter records published to topic.
func (p *MockPublisher) DeadLetters(topic string) ([]queue.DeadLetterMessage, error) {
	var out []queue.DeadLetterMessage
	for _, m := range p.Messages(topic) {
		var rec queue.DeadLetterMessage
		if err := json.Unmarshal(m.Value, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ErrConsumerDrained is returned by MockConsumer.Fetch once every queued
// delivery has been handed out and StopWhenDrained is set.
var ErrConsumerDrained = errors.New("mock consumer drained")

// MockConsumer is an in-memory queue.Consumer fed with raw bodies.
type MockConsumer struct {
	mu        sync.Mutex
	pending   [][]byte
	offset    int64
	committed []int64
	closed    bool
	notify    chan struct{}

	// StopWhenDrained makes Fetch return ErrConsumerDrained instead of
	// blocking when nothing is queued.
	StopWhenDrained bool
}

var _ queue.Consumer = (*MockConsumer)(nil)

// NewMockConsumer queues bodies for delivery in order.
func NewMockConsumer(bodies ...[]byte) *MockConsumer {
	return &MockConsumer{pending: bodies, notify: make(chan struct{}, 1)}
}

// Enqueue adds a body for delivery.
func (c *MockConsumer) Enqueue(body []byte) {
	c.mu.Lock()
	c.pending = append(c.pending, body)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Fetch implements queue.Consumer.
func (c *MockConsumer) Fetch(ctx context.Context) (queue.Delivery, error) {
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			body := c.pending[0]
			c.pending = c.pending[1:]
			offset := c.offset
			c.offset++
			c.mu.Unlock()
			commit := func(context.Context) error {
				c.mu.Lock()
				defer c.mu.Unlock()
				c.committed = append(c.committed, offset)
				return nil
			}
			return queue.NewDelivery("moderation", nil, body, offset, commit), nil
		}
		drained := c.StopWhenDrained
		c.mu.Unlock()

		if drained {
			return queue.Delivery{}, ErrConsumerDrained
		}
		select {
		case <-ctx.Done():
			return queue.Delivery{}, ctx.Err()
		case <-c.notify:
		}
	}
}

// Committed returns the committed offsets in commit order.
func (c *MockConsumer) Committed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.committed...)
}

// Close implements queue.Consumer.
func (c *MockConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *MockConsumer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
