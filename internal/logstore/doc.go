// Package logstore provides the bounded, persisted log buffer behind
// wallboxctl's log pane and exports.
//
// # Overview
//
// A Store holds at most MaxEntries (1000) entries in insertion order. Every
// Record call appends one entry, drops the oldest entries beyond capacity, and
// writes the whole trimmed sequence through to a Backend under StorageKey.
// Only the trimmed sequence ever reaches durable storage.
//
// # Failure Containment
//
// Logging must never break the caller. No Store method returns an error:
//
//   - A missing, unreadable or corrupt slot at construction starts empty
//   - A payload that cannot be marshalled is stored as its %+v string
//   - A failing Backend write keeps the in-memory state correct
//   - A failing or missing Saver makes Download return ""
//
// Each of these is reported once to the Sink on its error channel and counted
// by the Observer when one is attached.
//
// # Backends
//
//   - FileBackend: <dir>/<key>.json, written via temp file + rename
//   - SQLiteBackend: kv table in a modernc.org/sqlite database
//   - MemoryBackend: process memory, for tests and log_backend = "memory"
//
// # Export Format
//
// Export renders one line per entry:
//
//	[2025-01-02T03:04:05.678Z] [ERROR] stop charging failed {"error":"Failed to stop charging"}
//
// The payload suffix is omitted when the entry has no data or its data is
// null, false, 0 or "". Download hands the same text to a Saver under the
// name wallbox-logs-<timestamp>.txt.
//
// # Concurrency
//
// The poller and action handlers record from different goroutines. A single
// mutex covers timestamping, append, trim and persist, so insertion order is
// timestamp order and readers never observe a partially applied Record. Sink
// output happens after the lock is released.
package logstore
