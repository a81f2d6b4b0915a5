// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package: the moderation
// task table and the read-only ad/user lookup. It also owns the SQL schema,
// embedded as goose migrations, and the connection-pool setup.
package postgres
