package wallbox

import (
	"strings"
	"time"
)

// Charging states reported by the controller.
const (
	StateOff            = "OFF"
	StateIdle           = "IDLE"
	StateConnected      = "CONNECTED"
	StateIdentification = "IDENTIFICATION"
	StateReady          = "READY"
	StateCharging       = "CHARGING"
	StatePaused         = "PAUSED"
	StateStop           = "STOP"
	StateFinished       = "FINISHED"
	StateError          = "ERROR"
)

// Status mirrors GET /api/status.
type Status struct {
	State          string `json:"state"`
	WallboxEnabled bool   `json:"wallboxEnabled"`
	RelayEnabled   bool   `json:"relayEnabled"`
	Charging       bool   `json:"charging"`
	Timestamp      int64  `json:"timestamp"` // epoch seconds
}

// StateIs compares the reported state case-insensitively.
func (s Status) StateIs(state string) bool {
	return strings.EqualFold(strings.TrimSpace(s.State), state)
}

// UpdatedAt converts Timestamp to a time. Zero stays zero.
func (s Status) UpdatedAt() time.Time {
	if s.Timestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(s.Timestamp, 0)
}

// ActionResult mirrors the body returned by the charging and wallbox POST
// endpoints.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	State   string `json:"state,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`

	RequestID string `json:"-"`
}

// Health mirrors GET /health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Healthy reports whether the controller described itself as healthy.
func (h Health) Healthy() bool {
	return strings.EqualFold(strings.TrimSpace(h.Status), "healthy")
}

// Relay mirrors GET /api/relay.
type Relay struct {
	RelayEnabled bool   `json:"relayEnabled"`
	State        string `json:"state"`
}

type errorBody struct {
	Error string `json:"error"`
}
