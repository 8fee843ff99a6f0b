// Package store provides SQLite-backed durable storage for strobe run
// traces.
//
// The store is an append-only log with two tables:
//   - Runs: one row per workload execution (workload identity, worker
//     count, seed, trace hash)
//   - Events: the drained trace of a run, one row per executed action
//
// # Conventions
//
// All ordering uses seq INTEGER (the drain order), never timestamps.
// Stored traces therefore compare byte-for-byte regardless of when or
// where they were recorded.
//
// All list queries order deterministically: events by seq ASC, runs by
// id COLLATE BINARY ASC. Run ids are UUIDv7, so binary order is
// creation order.
//
// All writes are idempotent via ON CONFLICT DO NOTHING; re-writing a
// run after a crash or retry is safe and silent.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Workload ids and trace hashes are content-addressed by
// internal/workload using RFC 8785 canonical JSON and SHA-256 with
// domain separation.
package store
