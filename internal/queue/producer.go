package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Producer publishes moderation requests and dead-letter records.
type Producer struct {
	publisher Publisher
	topic     string
	dlqTopic  string
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	started   bool
	closeOnce sync.Once
	closeErr  error
}

// NewProducer creates a producer over publisher. An empty dlqTopic leaves the
// dead-letter channel unconfigured.
func NewProducer(publisher Publisher, topic, dlqTopic string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		publisher: publisher,
		topic:     topic,
		dlqTopic:  dlqTopic,
		logger:    logger.With("component", "producer", "topic", topic),
		now:       time.Now,
	}
}

// Start verifies the broker is reachable. Publishing before Start fails.
func (p *Producer) Start(ctx context.Context) error {
	if err := p.publisher.Ping(ctx); err != nil {
		return fmt.Errorf("failed to start producer: %w", err)
	}

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	p.logger.Info("producer started", "dlq_topic", p.dlqTopic)
	return nil
}

// Stop releases the underlying publisher. Calling Stop more than once is safe.
func (p *Producer) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		p.closeErr = p.publisher.Close()
		p.logger.Info("producer stopped")
	})
	return p.closeErr
}

func (p *Producer) isStarted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

// SendModerationRequest publishes {item_id, timestamp} keyed by item id and
// returns once the broker has acknowledged it.
func (p *Producer) SendModerationRequest(ctx context.Context, itemID int64) error {
	if !p.isStarted() {
		return ErrProducerNotStarted
	}

	msg := NewModerationMessage(itemID, p.now())
	body, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode moderation request: %w", err)
	}

	if err := p.publisher.Publish(ctx, p.topic, Message{Key: msg.Key(), Value: body}); err != nil {
		return fmt.Errorf("failed to send moderation request for item_id=%d: %w", itemID, err)
	}

	p.logger.Info("sent moderation request", "item_id", itemID)
	return nil
}

// SendToDLQ publishes a dead-letter record wrapping original.
func (p *Producer) SendToDLQ(ctx context.Context, original any, errMsg string, retryCount int) error {
	if !p.isStarted() {
		return ErrProducerNotStarted
	}
	if p.dlqTopic == "" {
		return ErrDLQNotConfigured
	}

	record := DeadLetterMessage{
		OriginalMessage: original,
		Error:           errMsg,
		Timestamp:       FormatTimestamp(p.now()),
		RetryCount:      retryCount,
	}
	body, err := record.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode dead-letter record: %w", err)
	}

	if err := p.publisher.Publish(ctx, p.dlqTopic, Message{Value: body}); err != nil {
		return fmt.Errorf("failed to send dead-letter record: %w", err)
	}

	p.logger.Warn("sent to DLQ", "error_message", errMsg, "retry_count", retryCount)
	return nil
}
