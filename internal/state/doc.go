// Package state holds the latest wallbox status shared between the poller and
// the UI.
//
// # Concurrency Model
//
// The poller goroutine is the only writer. Every other reader (the TUI tick,
// CLI commands, the diag server) calls Snapshot, which takes a read lock and
// returns a value copy, so readers never observe a half-applied poll.
//
// # Update Semantics
//
//	store.Update(status, nil)
//	→ snapshot.Status = status, Connected = true, LastError = nil
//
//	store.Update(nil, err)
//	→ snapshot.Status = <unchanged>, Connected = false, LastError = err
//
// Keeping the last good status on failure lets the UI show stale data under
// the disconnected banner instead of blanking the panel.
//
// A zero Store is ready to use; its Snapshot reports HasStatus false.
package state
