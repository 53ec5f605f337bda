// Package store persists neighborhoods, published artifacts, and run
// records in SQLite and is the single source of truth for artifact
// lifecycle semantics.
//
// Publish idempotency rests on the UNIQUE index over artifact slugs: a
// constraint violation on insert surfaces as OutcomeAlreadyExists, never
// as an error. Concurrent or overlapping pipeline runs are therefore safe
// without any entity-level locking.
//
// Schema changes are applied through embedded, versioned migrations; when
// you add statuses or columns, add a migration file and update the
// transition tables in models.go.
package store
