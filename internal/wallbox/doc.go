// Package wallbox is the client for the wallbox controller REST API.
//
// Client covers every endpoint the panel uses: GET /api/status, GET
// /api/relay, GET /health and the POST /api/charging/{start,stop,pause,resume}
// and /api/wallbox/{enable,disable} commands. Each request carries an
// X-Request-ID. Non-2xx answers come back as *APIError with the controller's
// {"error": "..."} message, transport failures wrap ErrUnreachable.
//
// Action enumerates the operator commands and knows which API call backs
// each one and whether the current Status allows it. ControlSet selects
// which actions are exposed at all.
package wallbox
