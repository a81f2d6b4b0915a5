package queue

import "errors"

var (
	// ErrInvalidPayload is returned when a message body cannot be decoded
	// into a moderation request.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrDLQNotConfigured is returned by SendToDLQ when the producer has no
	// dead-letter topic.
	ErrDLQNotConfigured = errors.New("dead-letter topic not configured")

	// ErrProducerNotStarted is returned when publishing before Start.
	ErrProducerNotStarted = errors.New("producer not started")

	// ErrBrokerUnavailable is returned when no broker answers a reachability check.
	ErrBrokerUnavailable = errors.New("message broker unavailable")

	// ErrUnknownDriver is returned for a queue driver other than kafka or amqp.
	ErrUnknownDriver = errors.New("unknown queue driver")
)
