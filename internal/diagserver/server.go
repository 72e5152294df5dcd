// Package diagserver serves a small local HTTP API for inspecting a running
// wallboxctl: liveness, Prometheus metrics and the persisted log buffer.
package diagserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/five82/wallboxctl/internal/logstore"
	"github.com/five82/wallboxctl/internal/state"
)

// Logs is the slice of the log store the API needs.
type Logs interface {
	Entries() []logstore.Entry
	Len() int
	ExportFiltered(min logstore.Level) string
	Clear()
}

// Options configure a Server.
type Options struct {
	Addr    string
	Logs    Logs
	Store   *state.Store // optional; adds connection info to /healthz
	Metrics http.Handler // optional; /metrics answers 404 without it
	Logger  *zap.Logger
}

// Server is the diagnostics HTTP API.
type Server struct {
	addr      string
	logs      Logs
	store     *state.Store
	metrics   http.Handler
	log       *zap.Logger
	startTime time.Time
}

// New builds a server. Call Run to listen.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:      strings.TrimSpace(opts.Addr),
		logs:      opts.Logs,
		store:     opts.Store,
		metrics:   opts.Metrics,
		log:       logger.Named("diag"),
		startTime: time.Now(),
	}
}

// Handler returns the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	r.GET("/logs", s.handleLogs)
	r.GET("/logs/export", s.handleExport)
	r.DELETE("/logs", s.handleClear)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	s.log.Info("diag server listening", zap.String("addr", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
		"log_count": s.logs.Len(),
	}
	if s.store != nil {
		snap := s.store.Snapshot()
		body["connected"] = snap.Connected
		if snap.HasStatus {
			body["state"] = snap.Status.State
		}
		if snap.LastError != nil {
			body["last_error"] = snap.LastError.Error()
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleLogs(c *gin.Context) {
	minLevel, ok := s.levelParam(c)
	if !ok {
		return
	}
	entries := s.logs.Entries()
	filtered := make([]logstore.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Level.AtLeast(minLevel) {
			filtered = append(filtered, e)
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(filtered), "entries": filtered})
}

func (s *Server) handleExport(c *gin.Context) {
	minLevel, ok := s.levelParam(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+logstore.DownloadFilename(time.Now())+`"`)
	c.String(http.StatusOK, s.logs.ExportFiltered(minLevel))
}

func (s *Server) handleClear(c *gin.Context) {
	n := s.logs.Len()
	s.logs.Clear()
	// Kept out of the store; a new entry would recreate the cleared record.
	s.log.Info("logs cleared", zap.Int("entries", n), zap.String("client", c.ClientIP()))
	c.Status(http.StatusNoContent)
}

func (s *Server) levelParam(c *gin.Context) (logstore.Level, bool) {
	raw := c.Query("level")
	if raw == "" {
		return logstore.LevelDebug, true
	}
	level, err := logstore.ParseLevel(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return level, true
}
