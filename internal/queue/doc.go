// Package queue carries moderation requests and dead-letter records between
// the submission path and the worker.
//
// Envelopes are JSON. The broker is abstracted behind Publisher and Consumer
// so the same Producer and worker run on Kafka (segmentio/kafka-go) or
// RabbitMQ (amqp091-go). Delivery is at-least-once: a Delivery must be
// committed explicitly once its outcome is final.
package queue
