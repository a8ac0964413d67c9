// Package store provides SQLite-backed durable storage for an app run.
//
// Two tables:
//   - kv: the persisted key/value items behind the storage collaborator
//   - trace: an append-only log of reducer applications and effect
//     emissions, one row per trace.Entry
//
// # Ordering
//
// Trace ordering uses seq INTEGER (the logical clock of a session), never
// timestamps. Every trace query ends with ORDER BY seq ASC, id ASC COLLATE
// BINARY so reads are identical across replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Payloads are stored as canonical JSON produced by trace.Marshal.
package store
