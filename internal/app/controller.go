package app

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/time/rate"

	"github.com/five82/wallboxctl/internal/logstore"
	"github.com/five82/wallboxctl/internal/metrics"
	"github.com/five82/wallboxctl/internal/wallbox"
)

var (
	// ErrActionNotPermitted is returned for actions outside the configured control set.
	ErrActionNotPermitted = errors.New("action not permitted")
	// ErrThrottled is returned when actions arrive faster than the configured rate.
	ErrThrottled = errors.New("too many actions, try again shortly")
)

// ActionError carries the message to show the operator for a failed action.
type ActionError struct {
	Action  wallbox.Action
	Message string
	Err     error
}

func (e *ActionError) Error() string { return e.Message }
func (e *ActionError) Unwrap() error { return e.Err }

// Controller issues control actions and keeps the log store informed.
type Controller struct {
	api      wallbox.API
	logs     *logstore.Store
	controls wallbox.ControlSet
	limiter  *rate.Limiter
	poller   *Poller
	metrics  *metrics.Metrics
}

// ControllerOptions configure NewController.
type ControllerOptions struct {
	Controls wallbox.ControlSet
	Rate     float64 // actions per second; non-positive disables throttling
	Burst    int
	Poller   *Poller // optional; re-polled after every attempt
	Metrics  *metrics.Metrics
}

// NewController builds a controller.
func NewController(api wallbox.API, logs *logstore.Store, opts ControllerOptions) *Controller {
	controls := opts.Controls
	if controls == "" {
		controls = wallbox.ControlsRestricted
	}
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	return &Controller{
		api:      api,
		logs:     logs,
		controls: controls,
		limiter:  limiter,
		poller:   opts.Poller,
		metrics:  opts.Metrics,
	}
}

// Controls returns the control set the controller enforces.
func (c *Controller) Controls() wallbox.ControlSet {
	return c.controls
}

// Do runs action against the controller. Failures come back as *ActionError
// wrapping the cause; connectivity state is left to the poller.
func (c *Controller) Do(ctx context.Context, action wallbox.Action) (*wallbox.ActionResult, error) {
	name := capitalize(action.Name())

	if !c.controls.Permits(action) {
		c.logs.Warn(name+" not permitted", map[string]string{"controls": string(c.controls)})
		c.metrics.ObserveAction(action.String(), "denied")
		return nil, &ActionError{Action: action, Message: name + " is not available", Err: ErrActionNotPermitted}
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.logs.Warn(name+" throttled", nil)
		c.metrics.ObserveAction(action.String(), "throttled")
		return nil, &ActionError{Action: action, Message: ErrThrottled.Error(), Err: ErrThrottled}
	}

	c.logs.Info(name + " requested")
	result, err := action.Invoke(ctx, c.api)
	if err == nil && result != nil && !result.Success {
		err = errors.New(firstNonEmpty(result.Message, "controller reported failure"))
	}
	if c.poller != nil {
		// After the outcome is logged, so the re-poll entry follows it.
		defer c.poller.Trigger()
	}

	if err != nil {
		c.logs.Error(name+" failed", map[string]string{"error": wallbox.ErrorMessage(err)})
		c.metrics.ObserveAction(action.String(), "error")
		return result, &ActionError{Action: action, Message: userMessage(action, err), Err: err}
	}

	c.logs.Info(name+" succeeded", result)
	c.metrics.ObserveAction(action.String(), "ok")
	return result, nil
}

// userMessage prefers the controller's own error text and falls back to a
// generic "Failed to <action>".
func userMessage(action wallbox.Action, err error) string {
	var apiErr *wallbox.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Failed to " + action.Name()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
