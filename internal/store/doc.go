// Package store persists documents and their migration history.
//
// Two backends are provided:
//   - Store: SQLite, one row per document key plus run and step history
//   - FileStore: a single JSON file, replaced atomically on save
//
// # Tables
//
//   - documents: JSON body as saved, stamped schema version, fingerprint
//   - migration_runs: one row per migration attempt with its outcome
//   - migration_steps: one row per stamped step, written in the same
//     transaction as the document it produced
//
// Rows are ordered by a seq column, never by timestamps, so history reads
// are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The store's own tables are versioned with PRAGMA user_version.
package store
