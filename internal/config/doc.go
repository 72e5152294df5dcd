// Package config loads wallboxctl settings.
//
// # Resolution Order
//
//  1. Built-in defaults
//  2. ~/.config/wallboxctl/config.toml, or the path given with --config
//  3. WALLBOX_* environment variables (WALLBOX_API_URL, WALLBOX_CONTROLS, ...)
//
// A missing config file is fine; a malformed one is an error. Paths accept a
// leading ~ and are made absolute. log_backend and controls are validated so
// a typo fails at startup rather than silently selecting a different store or
// exposing more actions than intended.
//
// # Keys
//
//	api_url          controller base URL (http://localhost:8080)
//	poll_interval    status poll cadence (2s)
//	request_timeout  per-request HTTP timeout (5s)
//	data_dir         where logs are persisted (~/.local/share/wallboxctl)
//	log_backend      file, sqlite or memory (file)
//	export_dir       download target for exported logs (~/Downloads)
//	controls         restricted or full (restricted)
//	diag_log         diagnostic log file (<data_dir>/wallboxctl.log)
//	diag_level       debug, info, warn or error (debug)
//	diag_listen      address for the diagnostics HTTP server, empty disables
//	action_rate      control actions per second (2)
//	action_burst     action burst size (1)
package config
