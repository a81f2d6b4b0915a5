// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. Both the API server
// and the moderation worker read their settings through Load, so a single set
// of variables (DATABASE_URL, KAFKA_BOOTSTRAP_SERVERS, WORKER_MAX_RETRIES, ...)
// drives every process.
package config
