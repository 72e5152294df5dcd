package app

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/wallboxctl/internal/logstore"
	"github.com/five82/wallboxctl/internal/metrics"
	"github.com/five82/wallboxctl/internal/state"
	"github.com/five82/wallboxctl/internal/wallbox"
	"github.com/five82/wallboxctl/internal/wallbox/wallboxtest"
)

func newFakeClient(t *testing.T) (*wallboxtest.Server, *wallbox.Client) {
	t.Helper()
	fake := wallboxtest.New()
	t.Cleanup(fake.Close)
	client, err := wallbox.NewClient(fake.URL(), time.Second)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return fake, client
}

func TestPoller_RefreshSuccess(t *testing.T) {
	fake, client := newFakeClient(t)
	fake.SetStatus(wallbox.Status{State: wallbox.StateCharging, WallboxEnabled: true, Charging: true})

	store := &state.Store{}
	logs := logstore.New(logstore.NewMemoryBackend())
	p := NewPoller(client, store, logs, metrics.New(), 0)

	var notified atomic.Int32
	p.OnUpdate(func() { notified.Add(1) })

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	snap := store.Snapshot()
	if !snap.Connected || !snap.HasStatus || snap.Status.State != wallbox.StateCharging {
		t.Fatalf("snapshot = %#v, want connected charging", snap)
	}
	entries := logs.Entries()
	if len(entries) != 1 || entries[0].Level != logstore.LevelDebug || entries[0].Message != "Status received" {
		t.Fatalf("entries = %+v, want one DEBUG Status received", entries)
	}
	var payload wallbox.Status
	if err := json.Unmarshal(entries[0].Data, &payload); err != nil || payload.State != wallbox.StateCharging {
		t.Fatalf("entry data = %s, want status payload", entries[0].Data)
	}
	if notified.Load() != 1 {
		t.Fatalf("OnUpdate calls = %d, want 1", notified.Load())
	}
	if p.Interval() != defaultPollInterval {
		t.Fatalf("Interval = %v, want %v", p.Interval(), defaultPollInterval)
	}
}

func TestPoller_RefreshFailure(t *testing.T) {
	fake, client := newFakeClient(t)
	store := &state.Store{}
	logs := logstore.New(logstore.NewMemoryBackend())
	p := NewPoller(client, store, logs, nil, time.Second)

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}
	fake.SetDown(true)
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatalf("Refresh against a down controller returned nil error")
	}

	snap := store.Snapshot()
	if snap.Connected || snap.LastError == nil {
		t.Fatalf("snapshot = %#v, want disconnected with error", snap)
	}
	if !snap.HasStatus {
		t.Fatalf("previous status should survive a failed poll")
	}
	last := logs.Entries()[logs.Len()-1]
	if last.Level != logstore.LevelError || last.Message != "Failed to get status" {
		t.Fatalf("last entry = %+v, want ERROR Failed to get status", last)
	}
	var data map[string]string
	if err := json.Unmarshal(last.Data, &data); err != nil || data["error"] == "" {
		t.Fatalf("entry data = %s, want {\"error\": ...}", last.Data)
	}
}

func TestPoller_RunTriggerAndCancel(t *testing.T) {
	fake, client := newFakeClient(t)
	store := &state.Store{}
	logs := logstore.New(logstore.NewMemoryBackend())
	p := NewPoller(client, store, logs, nil, time.Hour)

	polled := make(chan struct{}, 8)
	p.OnUpdate(func() { polled <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitPoll := func() {
		t.Helper()
		select {
		case <-polled:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for poll")
		}
	}
	waitPoll() // immediate poll on start

	p.Trigger()
	p.Trigger() // merged with the pending trigger
	waitPoll()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	if got := fake.Count("GET /api/status"); got < 2 || got > 3 {
		t.Fatalf("status requests = %d, want 2 or 3", got)
	}
}
