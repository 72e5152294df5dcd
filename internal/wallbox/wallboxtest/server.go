// Package wallboxtest provides an in-process fake of the wallbox controller
// REST API for tests.
package wallboxtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/five82/wallboxctl/internal/wallbox"
)

// Server is a fake controller. The zero value is not usable; call New.
type Server struct {
	mu         sync.Mutex
	status     wallbox.Status
	down       bool
	rejections map[string]string
	requests   []string
	requestIDs []string

	srv *httptest.Server
}

// New starts a fake controller with charging enabled and idle.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		status: wallbox.Status{
			State:          wallbox.StateIdle,
			WallboxEnabled: true,
		},
		rejections: make(map[string]string),
	}

	r := gin.New()
	r.Use(s.track)
	r.GET("/api/status", s.handleStatus)
	r.GET("/api/relay", s.handleRelay)
	r.GET("/health", s.handleHealth)
	r.POST("/api/charging/:action", s.handleCharging)
	r.POST("/api/wallbox/:action", s.handleWallbox)

	s.srv = httptest.NewServer(r)
	return s
}

// URL is the base URL to hand to wallbox.NewClient.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the listener down.
func (s *Server) Close() { s.srv.Close() }

// SetStatus replaces the reported status.
func (s *Server) SetStatus(status wallbox.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Status returns the current fake status.
func (s *Server) Status() wallbox.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetDown makes every endpoint answer 503 while true.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Reject makes POST path fail with 400 and the given message.
func (s *Server) Reject(path, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections[path] = message
}

// Requests returns "METHOD /path" for every request seen so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// RequestIDs returns the X-Request-ID header of every request seen so far.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// Count returns how many times "METHOD /path" was requested.
func (s *Server) Count(request string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == request {
			n++
		}
	}
	return n
}

func (s *Server) track(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, c.Request.Method+" "+c.Request.URL.Path)
	s.requestIDs = append(s.requestIDs, c.GetHeader("X-Request-ID"))
	down := s.down
	s.mu.Unlock()

	if down {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "controller offline"})
		return
	}
	c.Next()
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	status.Timestamp = time.Now().Unix()
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleRelay(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"relayEnabled": s.status.RelayEnabled, "state": s.status.State})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "Wallbox Controller API", "version": "2.0.0"})
}

func (s *Server) handleCharging(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg, ok := s.rejections[c.Request.URL.Path]; ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	st := &s.status
	var ok bool
	var message string
	switch c.Param("action") {
	case "start":
		ok = st.WallboxEnabled && !st.Charging
		if ok {
			st.State, st.Charging, st.RelayEnabled = wallbox.StateCharging, true, true
		}
		message = "Charging started"
	case "stop":
		ok = st.Charging || st.StateIs(wallbox.StatePaused)
		if ok {
			st.State, st.Charging, st.RelayEnabled = wallbox.StateIdle, false, false
		}
		message = "Charging stopped"
	case "pause":
		ok = st.StateIs(wallbox.StateCharging)
		if ok {
			st.State, st.Charging, st.RelayEnabled = wallbox.StatePaused, false, false
		}
		message = "Charging paused"
	case "resume":
		ok = st.StateIs(wallbox.StatePaused)
		if ok {
			st.State, st.Charging, st.RelayEnabled = wallbox.StateCharging, true, true
		}
		message = "Charging resumed"
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found: POST " + c.Request.URL.Path})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to " + c.Param("action") + " charging"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "state": st.State})
}

func (s *Server) handleWallbox(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg, ok := s.rejections[c.Request.URL.Path]; ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	switch c.Param("action") {
	case "enable":
		s.status.WallboxEnabled = true
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Wallbox enabled", "enabled": true})
	case "disable":
		s.status.WallboxEnabled = false
		s.status.Charging, s.status.RelayEnabled = false, false
		s.status.State = wallbox.StateIdle
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Wallbox disabled", "enabled": false})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found: POST " + c.Request.URL.Path})
	}
}
