package wallbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API is the capability set of the wallbox controller. *Client implements it;
// tests substitute fakes.
type API interface {
	GetStatus(ctx context.Context) (*Status, error)
	StartCharging(ctx context.Context) (*ActionResult, error)
	StopCharging(ctx context.Context) (*ActionResult, error)
	PauseCharging(ctx context.Context) (*ActionResult, error)
	ResumeCharging(ctx context.Context) (*ActionResult, error)
	EnableWallbox(ctx context.Context) (*ActionResult, error)
	DisableWallbox(ctx context.Context) (*ActionResult, error)
	HealthCheck(ctx context.Context) (*Health, error)
	GetRelay(ctx context.Context) (*Relay, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// ErrUnreachable wraps transport failures: the controller could not be
// contacted at all.
var ErrUnreachable = errors.New("wallbox unreachable")

// APIError is returned when the controller answers with a non-2xx status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string // from the {"error": "..."} body, when present
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// ErrorMessage extracts the message worth showing to a user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Client talks to the wallbox controller REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	DefaultAPIURL     = "http://localhost:8080"
	defaultUserAgent  = "wallboxctl/0.1"
	defaultTimeout    = 5 * time.Second
	maxErrorBodyBytes = 64 * 1024
)

// NewClient builds a Client for apiURL. A bare host:port gets an http://
// scheme. A non-positive timeout uses the default of 5s.
func NewClient(apiURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized controller URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetStatus retrieves the current charger status.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var payload Status
	if _, err := c.do(ctx, http.MethodGet, "/api/status", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) StartCharging(ctx context.Context) (*ActionResult, error) {
	return c.post(ctx, "/api/charging/start")
}

func (c *Client) StopCharging(ctx context.Context) (*ActionResult, error) {
	return c.post(ctx, "/api/charging/stop")
}

func (c *Client) PauseCharging(ctx context.Context) (*ActionResult, error) {
	return c.post(ctx, "/api/charging/pause")
}

func (c *Client) ResumeCharging(ctx context.Context) (*ActionResult, error) {
	return c.post(ctx, "/api/charging/resume")
}

func (c *Client) EnableWallbox(ctx context.Context) (*ActionResult, error) {
	return c.post(ctx, "/api/wallbox/enable")
}

func (c *Client) DisableWallbox(ctx context.Context) (*ActionResult, error) {
	return c.post(ctx, "/api/wallbox/disable")
}

// HealthCheck calls GET /health.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var payload Health
	if _, err := c.do(ctx, http.MethodGet, "/health", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetRelay calls GET /api/relay.
func (c *Client) GetRelay(ctx context.Context) (*Relay, error) {
	var payload Relay
	if _, err := c.do(ctx, http.MethodGet, "/api/relay", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) post(ctx context.Context, path string) (*ActionResult, error) {
	var payload ActionResult
	requestID, err := c.do(ctx, http.MethodPost, path, &payload)
	if err != nil {
		return nil, err
	}
	payload.RequestID = requestID
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, dest any) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return requestID, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return requestID, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return requestID, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
			RequestID:  requestID,
		}
	}
	if dest == nil {
		return requestID, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return requestID, fmt.Errorf("decode response: %w", err)
	}
	return requestID, nil
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload errorBody
	if err := json.Unmarshal(raw, &payload); err == nil {
		return strings.TrimSpace(payload.Error)
	}
	return ""
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = DefaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", apiURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
