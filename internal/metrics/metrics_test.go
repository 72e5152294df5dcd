package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/five82/wallboxctl/internal/logstore"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObservePoll(nil)
	m.ObservePoll(errors.New("down"))
	m.ObservePoll(errors.New("down"))
	if got := testutil.ToFloat64(m.PollsTotal.WithLabelValues("error")); got != 2 {
		t.Fatalf("polls{error} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Connected); got != 0 {
		t.Fatalf("connected = %v, want 0 after failure", got)
	}

	m.ObserveAction("pause", "ok")
	m.ObserveAction("", "denied")
	if got := testutil.ToFloat64(m.ActionsTotal.WithLabelValues("unknown", "denied")); got != 1 {
		t.Fatalf("actions{unknown,denied} = %v, want 1", got)
	}

	m.EntryRecorded(logstore.LevelWarn)
	m.PersistFailed()
	if got := testutil.ToFloat64(m.LogEntriesTotal.WithLabelValues("WARN")); got != 1 {
		t.Fatalf("entries{WARN} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LogPersistFailures); got != 1 {
		t.Fatalf("persist failures = %v, want 1", got)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObservePoll(nil)
	m.ObserveAction("stop", "ok")
	m.EntryRecorded(logstore.LevelInfo)
	m.PersistFailed()
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObservePoll(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `wallboxctl_status_polls_total{result="ok"} 1`) {
		t.Fatalf("metrics body missing poll counter:\n%s", body)
	}
}
