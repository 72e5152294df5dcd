package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/wallboxctl/internal/config"
	"github.com/five82/wallboxctl/internal/diagserver"
	"github.com/five82/wallboxctl/internal/logging"
	"github.com/five82/wallboxctl/internal/logstore"
	"github.com/five82/wallboxctl/internal/metrics"
	"github.com/five82/wallboxctl/internal/prefs"
	"github.com/five82/wallboxctl/internal/state"
	"github.com/five82/wallboxctl/internal/ui"
	"github.com/five82/wallboxctl/internal/wallbox"
)

// Options configure the wallboxctl application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/wallboxctl/prefs.toml
	APIURL     string        // overrides api_url when set
	PollEvery  time.Duration // overrides poll_interval when positive
	Console    io.Writer     // mirrors diagnostic output, e.g. os.Stderr for CLI commands
}

// Runtime is the wired object graph shared by the TUI and the CLI commands.
type Runtime struct {
	Config     config.Config
	Prefs      prefs.Prefs
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Logs       *logstore.Store
	Client     *wallbox.Client
	Store      *state.Store
	Poller     *Poller
	Controller *Controller

	closers []func() error
}

// Open loads configuration and builds every component. Callers must Close
// the runtime.
func Open(opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = opts.PollEvery
	}

	rt := &Runtime{Config: cfg, Store: &state.Store{}}

	logger, closeLog, err := logging.New(logging.Options{
		Path:    cfg.DiagLogPath(),
		Level:   cfg.DiagLevel,
		Console: opts.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("init diagnostic log: %w", err)
	}
	rt.Logger = logger
	rt.closers = append(rt.closers, closeLog)

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("load prefs failed, using defaults", zap.Error(err))
	}
	rt.Prefs = userPrefs

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if closeBackend != nil {
		rt.closers = append(rt.closers, closeBackend)
	}

	rt.Metrics = metrics.New()
	rt.Logs = logstore.New(backend,
		logstore.WithSink(logstore.NewZapSink(logger.Named("logs"))),
		logstore.WithSaver(logstore.DirSaver{Dir: cfg.ExportDir}),
		logstore.WithObserver(rt.Metrics),
	)

	client, err := wallbox.NewClient(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init wallbox client: %w", err)
	}
	rt.Client = client

	rt.Poller = NewPoller(client, rt.Store, rt.Logs, rt.Metrics, cfg.PollInterval)
	rt.Controller = NewController(client, rt.Logs, ControllerOptions{
		Controls: cfg.ControlSet(),
		Rate:     cfg.ActionRate,
		Burst:    cfg.ActionBurst,
		Poller:   rt.Poller,
		Metrics:  rt.Metrics,
	})
	return rt, nil
}

// Close releases the log backend and flushes the diagnostic log.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func openBackend(cfg config.Config) (logstore.Backend, func() error, error) {
	switch cfg.LogBackend {
	case config.BackendMemory:
		return logstore.NewMemoryBackend(), nil, nil
	case config.BackendSQLite:
		db, err := logstore.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite log backend: %w", err)
		}
		return db, db.Close, nil
	default:
		return logstore.FileBackend{Dir: cfg.DataDir}, nil, nil
	}
}

const healthCheckTimeout = 3 * time.Second

// CheckHealth calls GET /health once and records the outcome. It is
// informational; the poller reports connectivity from then on.
func (rt *Runtime) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	health, err := rt.Client.HealthCheck(ctx)
	if err != nil {
		rt.Logs.Warn("Health check failed", map[string]string{"error": err.Error(), "api": rt.Client.BaseURL()})
		return err
	}
	rt.Logs.Info("Connected to wallbox controller", health)
	return nil
}

// Run boots the wallboxctl TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	rt, err := Open(opts)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = rt.CheckHealth(ctx)

	updates := make(chan struct{}, 1)
	rt.Poller.OnUpdate(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Poller.Run(gctx) })

	if rt.Config.DiagListen != "" {
		srv := diagserver.New(diagserver.Options{
			Addr:    rt.Config.DiagListen,
			Logs:    rt.Logs,
			Store:   rt.Store,
			Metrics: rt.Metrics.Handler(),
			Logger:  rt.Logger,
		})
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				// The panel stays useful without diagnostics.
				rt.Logger.Error("diag server stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:   gctx,
			Actions:   rt.Controller,
			Store:     rt.Store,
			Logs:      rt.Logs,
			Controls:  rt.Controller.Controls(),
			APIURL:    rt.Client.BaseURL(),
			PollTick:  rt.Poller.Interval(),
			ThemeName: rt.Prefs.Theme,
			LogLevel:  rt.Prefs.LogLevel,
			PrefsPath: opts.PrefsPath,
			ExportDir: rt.Config.ExportDir,
			Updates:   updates,
		})
	})

	return g.Wait()
}
