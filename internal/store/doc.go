// Package store persists channels, videos, enrichment artifacts, and run
// records in SQLite. All writes are single-row upserts keyed by identifier so
// concurrent pipeline workers never need cross-item locking.
package store
