package app

import (
	"context"
	"time"

	"github.com/five82/wallboxctl/internal/logstore"
	"github.com/five82/wallboxctl/internal/metrics"
	"github.com/five82/wallboxctl/internal/state"
	"github.com/five82/wallboxctl/internal/wallbox"
)

const defaultPollInterval = 2 * time.Second

// Poller refreshes the shared state.Store from GET /api/status. Run must be
// the only writer of the store.
type Poller struct {
	api      wallbox.API
	store    *state.Store
	logs     *logstore.Store
	metrics  *metrics.Metrics
	interval time.Duration
	trigger  chan struct{}
	updated  func()
}

// NewPoller builds a poller. A non-positive interval uses the 2s default.
func NewPoller(api wallbox.API, store *state.Store, logs *logstore.Store, m *metrics.Metrics, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		api:      api,
		store:    store,
		logs:     logs,
		metrics:  m,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// OnUpdate registers fn to run after every refresh. Call it before Run; fn
// runs on the polling goroutine and must not block.
func (p *Poller) OnUpdate(fn func()) {
	p.updated = fn
}

// Interval returns the polling cadence.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Trigger asks Run for an immediate refresh. It never blocks; triggers that
// arrive while one is already pending are merged.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run polls immediately and then on every tick or trigger until ctx is
// cancelled. It always returns nil; poll failures are recorded, not returned.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Refresh(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.trigger:
			ticker.Reset(p.interval)
		}
	}
}

// Refresh performs a single status poll and records the outcome.
func (p *Poller) Refresh(ctx context.Context) error {
	status, err := p.api.GetStatus(ctx)
	if err != nil && ctx.Err() != nil {
		// Shutdown, not a controller failure.
		return err
	}

	p.store.Update(status, err)
	p.metrics.ObservePoll(err)
	if err != nil {
		p.logs.Error("Failed to get status", map[string]string{"error": err.Error()})
	} else {
		p.logs.Debug("Status received", status)
	}

	if p.updated != nil {
		p.updated()
	}
	return err
}
