package wallbox

import (
	"context"
	"fmt"
	"strings"
)

// Action is a user-initiated control command.
type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionPause
	ActionResume
	ActionEnable
	ActionDisable
)

var actionKeys = map[Action]string{
	ActionStart:   "start",
	ActionStop:    "stop",
	ActionPause:   "pause",
	ActionResume:  "resume",
	ActionEnable:  "enable",
	ActionDisable: "disable",
}

var actionNames = map[Action]string{
	ActionStart:   "start charging",
	ActionStop:    "stop charging",
	ActionPause:   "pause charging",
	ActionResume:  "resume charging",
	ActionEnable:  "enable wallbox",
	ActionDisable: "disable wallbox",
}

// AllActions lists every action in display order.
func AllActions() []Action {
	return []Action{ActionStart, ActionStop, ActionPause, ActionResume, ActionEnable, ActionDisable}
}

// String returns the short key, e.g. "pause".
func (a Action) String() string {
	if key, ok := actionKeys[a]; ok {
		return key
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Name returns the human phrase used in logs and messages, e.g. "pause charging".
func (a Action) Name() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return a.String()
}

// ParseAction accepts a short key ("pause") or the full name ("pause charging").
func ParseAction(value string) (Action, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for a, key := range actionKeys {
		if v == key || v == actionNames[a] {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", value)
}

// Invoke calls the API endpoint backing the action.
func (a Action) Invoke(ctx context.Context, api API) (*ActionResult, error) {
	switch a {
	case ActionStart:
		return api.StartCharging(ctx)
	case ActionStop:
		return api.StopCharging(ctx)
	case ActionPause:
		return api.PauseCharging(ctx)
	case ActionResume:
		return api.ResumeCharging(ctx)
	case ActionEnable:
		return api.EnableWallbox(ctx)
	case ActionDisable:
		return api.DisableWallbox(ctx)
	default:
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
}

// Allowed reports whether the action makes sense for the given status.
func (a Action) Allowed(s Status) bool {
	switch a {
	case ActionStart:
		return !s.Charging && s.WallboxEnabled
	case ActionStop:
		return s.Charging
	case ActionPause:
		return s.StateIs(StateCharging)
	case ActionResume:
		return s.StateIs(StatePaused)
	case ActionEnable:
		return !s.WallboxEnabled
	case ActionDisable:
		return s.WallboxEnabled
	default:
		return false
	}
}

// ControlSet selects which actions are exposed to the operator.
type ControlSet string

const (
	// ControlsRestricted exposes pause, resume and stop only. Start, enable
	// and disable are left to the hardware or simulator.
	ControlsRestricted ControlSet = "restricted"
	// ControlsFull exposes every action.
	ControlsFull ControlSet = "full"
)

// ParseControlSet validates a config value. Empty means restricted.
func ParseControlSet(value string) (ControlSet, error) {
	switch ControlSet(strings.ToLower(strings.TrimSpace(value))) {
	case "", ControlsRestricted:
		return ControlsRestricted, nil
	case ControlsFull:
		return ControlsFull, nil
	default:
		return "", fmt.Errorf("unknown control set %q (want restricted or full)", value)
	}
}

// Actions lists the actions in the set, in display order.
func (c ControlSet) Actions() []Action {
	if c == ControlsFull {
		return AllActions()
	}
	return []Action{ActionPause, ActionResume, ActionStop}
}

// Permits reports whether a is part of the set.
func (c ControlSet) Permits(a Action) bool {
	for _, candidate := range c.Actions() {
		if candidate == a {
			return true
		}
	}
	return false
}
