// Package store persists certificate records.
//
// Two implementations share one contract: InMemory for single-process
// deployments and tests, and SQLStore for PostgreSQL (pgx) or SQLite
// (modernc). Both report missing records as sentinel.ErrNotFound and unique
// constraint violations on display id or pair version as sentinel.ErrConflict.
package store
