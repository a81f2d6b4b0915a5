package config

import "time"

// Queue drivers understood by the queue package.
const (
	QueueDriverKafka = "kafka"
	QueueDriverAMQP  = "amqp"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Model    ModelConfig    `mapstructure:"model"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`

	// MaxOpenConns is at least 2: a reconcile sweep holds one connection for
	// its lock while issuing queries on another.
	MaxOpenConns int `mapstructure:"max_open_conns" validate:"gte=2"`
}

// QueueConfig selects the message broker backing the moderation channels.
type QueueConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=kafka amqp"`
}

// KafkaConfig names the brokers, topics and consumer group.
// Topic names are reused as queue names when the AMQP driver is selected.
type KafkaConfig struct {
	BootstrapServers string `mapstructure:"bootstrap_servers" validate:"required"`
	ModerationTopic  string `mapstructure:"moderation_topic"  validate:"required"`
	DLQTopic         string `mapstructure:"dlq_topic"         validate:"required"`
	GroupID          string `mapstructure:"group_id"          validate:"required"`
}

// AMQPConfig is only consulted when Queue.Driver is "amqp".
type AMQPConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// WorkerConfig controls the retry policy and the reconciliation sweep.
type WorkerConfig struct {
	MaxRetries               int `mapstructure:"max_retries"                validate:"gte=1"`
	RetryDelaySeconds        int `mapstructure:"retry_delay_seconds"        validate:"gte=0"`
	ReconcileIntervalSeconds int `mapstructure:"reconcile_interval_seconds" validate:"gte=0"`
	StaleTaskAgeSeconds      int `mapstructure:"stale_task_age_seconds"     validate:"gte=1"`
}

// RetryDelay returns the fixed inter-attempt delay.
func (w WorkerConfig) RetryDelay() time.Duration {
	return time.Duration(w.RetryDelaySeconds) * time.Second
}

// ReconcileInterval returns how often stale tasks are swept. Zero disables the sweep.
func (w WorkerConfig) ReconcileInterval() time.Duration {
	return time.Duration(w.ReconcileIntervalSeconds) * time.Second
}

// StaleTaskAge returns how long a task may sit unresolved before the sweep acts on it.
func (w WorkerConfig) StaleTaskAge() time.Duration {
	return time.Duration(w.StaleTaskAgeSeconds) * time.Second
}

// ModelConfig locates the persisted classifier and its decision threshold.
type ModelConfig struct {
	Path      string  `mapstructure:"path"      validate:"required"`
	Threshold float64 `mapstructure:"threshold" validate:"gt=0,lt=1"`
}
