// Package ui provides the wallboxctl terminal control panel.
//
// # Architecture Overview
//
// The panel is a Bubble Tea program. Model holds everything the screen
// shows and is rebuilt from two sources on every tick: a state.Store
// snapshot written by the app poller, and a copy of the persisted log
// entries. The UI never talks to the controller directly. Charger actions
// go through the Actions interface, which the app controller implements with
// permission checks, throttling, logging and a follow-up status poll.
//
// # Layout
//
// Top to bottom:
//
//   - Header: logo, online/offline indicator, API URL and last update time
//   - Banner: shown only while the controller is unreachable
//   - Status box: state badge, wallbox, relay and charging flags
//   - Controls: one entry per action in the configured control set, drawn
//     faint when the current status does not allow it
//   - Message line: the last action error, or a short-lived notice
//   - Logs box: scrollable entries at or above the selected level
//   - Command bar: key hints and the active theme
//
// # Keys
//
// Actions use s/x/p/r for start, stop, pause and resume, and E/D to enable
// or disable the wallbox. d downloads the logs to the export directory, y
// copies them to the clipboard and C clears them after a second press. L
// cycles the minimum level and T cycles the theme. Both choices are saved
// to the preferences file.
package ui
