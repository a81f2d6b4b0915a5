// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the moderation pipeline, allowing the worker and the HTTP handlers to
// remain independent of specific database technologies or persistence details.
package store
