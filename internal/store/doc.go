// Package store provides SQLite-backed storage for expecto session
// transcripts, written by `expecto run --db` and read by `expecto trace`.
//
// Two tables:
//   - sessions: one header row per run (name, command, args, exit status)
//   - events: the run's engine events, keyed by (session_id, seq)
//
// All event ordering uses seq, the engine's logical clock, never wall
// time. started_at is informational only.
//
// # Database Configuration
//
//   - WAL mode: trace reads while a run writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: an event needs its session row
package store
