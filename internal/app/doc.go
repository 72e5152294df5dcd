// Package app provides the orchestration layer for wallboxctl.
//
// # Overview
//
// This package wires together configuration, logging, the persisted log
// store, the controller client, polling and the UI. Open builds the object
// graph once; the TUI (Run) and every CLI command share it.
//
// # Architecture
//
//  1. Load configuration (TOML file, WALLBOX_* environment, flag overrides)
//  2. Open the diagnostic log (zap over a rotating file)
//  3. Load UI preferences
//  4. Open the log backend (file, sqlite or memory) and the log store
//  5. Create the controller client, the poller and the action controller
//  6. Run: one health check, then poller, optional diag server and the TUI
//     under a single errgroup
//
// # Components
//
//   - app.go: Open, Close, CheckHealth and Run
//   - poller.go: periodic GET /api/status into state.Store, with Trigger for
//     an immediate re-poll
//   - controller.go: gated, throttled, logged charger actions
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Open runtime, health check
//	└──────┬───────┘
//	       │
//	       ├─────> Poller.Run()      status every poll_interval
//	       │           │
//	       │           ├──> state.Store.Update()
//	       │           └──> logstore: "Status received" / "Failed to get status"
//	       │
//	       ├─────> diagserver.Run()  /healthz /metrics /logs (when diag_listen set)
//	       │
//	       └─────> ui.Run()          reads state.Store and logstore,
//	                                 sends actions to Controller.Do()
//
// # Error Handling
//
// A failed poll is recorded in the snapshot and the log store; polling keeps
// going. Action failures come back as *ActionError whose message is ready to
// show an operator. Log persistence failures never surface to callers; the
// store reports them to the diagnostic log and the metrics instead.
package app
