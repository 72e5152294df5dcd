package wallbox_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/five82/wallboxctl/internal/wallbox"
	"github.com/five82/wallboxctl/internal/wallbox/wallboxtest"
)

func newClient(t *testing.T, url string) *wallbox.Client {
	t.Helper()
	c, err := wallbox.NewClient(url, 2*time.Second)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestNewClient_NormalizesURL(t *testing.T) {
	c, err := wallbox.NewClient("", 0)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.BaseURL() != wallbox.DefaultAPIURL {
		t.Fatalf("BaseURL = %q, want %q", c.BaseURL(), wallbox.DefaultAPIURL)
	}

	c, err = wallbox.NewClient("  192.168.1.10:8080/ignored?x=1#frag ", 0)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if c.BaseURL() != "http://192.168.1.10:8080" {
		t.Fatalf("BaseURL = %q, want http://192.168.1.10:8080", c.BaseURL())
	}

	if _, err := wallbox.NewClient("http://", 0); err == nil {
		t.Fatalf("NewClient(http://) returned nil error, want missing host")
	}
}

func TestClient_StatusHealthAndRelay(t *testing.T) {
	t.Parallel()

	fake := wallboxtest.New()
	t.Cleanup(fake.Close)
	fake.SetStatus(wallbox.Status{State: wallbox.StateCharging, WallboxEnabled: true, RelayEnabled: true, Charging: true})

	c := newClient(t, fake.URL())
	ctx := context.Background()

	status, err := c.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if !status.Charging || !status.StateIs("charging") || status.UpdatedAt().IsZero() {
		t.Fatalf("GetStatus = %#v, want charging with timestamp", status)
	}

	health, err := c.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if !health.Healthy() || health.Version != "2.0.0" {
		t.Fatalf("HealthCheck = %#v, want healthy 2.0.0", health)
	}

	relay, err := c.GetRelay(ctx)
	if err != nil {
		t.Fatalf("GetRelay returned error: %v", err)
	}
	if !relay.RelayEnabled {
		t.Fatalf("GetRelay = %#v, want relay on", relay)
	}

	for _, id := range fake.RequestIDs() {
		if id == "" {
			t.Fatalf("request sent without X-Request-ID")
		}
	}
}

func TestClient_ActionsHitEndpoints(t *testing.T) {
	t.Parallel()

	fake := wallboxtest.New()
	t.Cleanup(fake.Close)
	c := newClient(t, fake.URL())
	ctx := context.Background()

	steps := []struct {
		action wallbox.Action
		path   string
		state  string
	}{
		{wallbox.ActionStart, "POST /api/charging/start", wallbox.StateCharging},
		{wallbox.ActionPause, "POST /api/charging/pause", wallbox.StatePaused},
		{wallbox.ActionResume, "POST /api/charging/resume", wallbox.StateCharging},
		{wallbox.ActionStop, "POST /api/charging/stop", wallbox.StateIdle},
		{wallbox.ActionDisable, "POST /api/wallbox/disable", wallbox.StateIdle},
		{wallbox.ActionEnable, "POST /api/wallbox/enable", wallbox.StateIdle},
	}
	for _, step := range steps {
		result, err := step.action.Invoke(ctx, c)
		if err != nil {
			t.Fatalf("%s returned error: %v", step.action.Name(), err)
		}
		if !result.Success || result.RequestID == "" {
			t.Fatalf("%s result = %#v, want success with request id", step.action.Name(), result)
		}
		if fake.Count(step.path) != 1 {
			t.Fatalf("%s: requests = %v, want one %s", step.action.Name(), fake.Requests(), step.path)
		}
		if got := fake.Status().State; got != step.state {
			t.Fatalf("after %s state = %q, want %q", step.action.Name(), got, step.state)
		}
	}
}

func TestClient_APIErrorCarriesMessage(t *testing.T) {
	t.Parallel()

	fake := wallboxtest.New()
	t.Cleanup(fake.Close)
	c := newClient(t, fake.URL())

	_, err := c.PauseCharging(context.Background())
	if err == nil {
		t.Fatalf("PauseCharging while idle returned nil error")
	}
	var apiErr *wallbox.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Failed to pause charging" {
		t.Fatalf("APIError = %#v, want 400 Failed to pause charging", apiErr)
	}
	if got := wallbox.ErrorMessage(err); got != "Failed to pause charging" {
		t.Fatalf("ErrorMessage = %q, want Failed to pause charging", got)
	}
	if errors.Is(err, wallbox.ErrUnreachable) {
		t.Fatalf("API rejection should not be ErrUnreachable")
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	_, err := newClient(t, server.URL).GetStatus(context.Background())
	var apiErr *wallbox.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 || apiErr.Message != "" {
		t.Fatalf("error = %v, want APIError 500 without message", err)
	}
	if got := wallbox.ErrorMessage(err); got != err.Error() {
		t.Fatalf("ErrorMessage = %q, want full error text", got)
	}
}

func TestClient_DecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	t.Cleanup(server.Close)

	if _, err := newClient(t, server.URL).GetStatus(context.Background()); err == nil {
		t.Fatalf("GetStatus returned nil error, want decode error")
	}
}

func TestClient_UnreachableWrapsSentinel(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newClient(t, url).GetStatus(context.Background())
	if !errors.Is(err, wallbox.ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	fake := wallboxtest.New()
	t.Cleanup(fake.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, fake.URL()).GetStatus(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestErrorMessage_Nil(t *testing.T) {
	if got := wallbox.ErrorMessage(nil); got != "" {
		t.Fatalf("ErrorMessage(nil) = %q, want empty", got)
	}
}
