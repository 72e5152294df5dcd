package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warning ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.DebugLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_WritesJSONFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "diag.log")
	var console bytes.Buffer

	logger, closeFn, err := New(Options{Path: path, Level: "info", Console: &console})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("poll ok")
	if err := closeFn(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("second close returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `"msg":"poll ok"`) || !strings.Contains(body, `"ts":`) {
		t.Fatalf("file contents = %q, want JSON record for poll ok", body)
	}
	if strings.Contains(body, "hidden") {
		t.Fatalf("debug record written at info level: %q", body)
	}
	if !strings.Contains(console.String(), "INFO") || !strings.Contains(console.String(), "poll ok") {
		t.Fatalf("console = %q, want INFO poll ok", console.String())
	}
}

func TestNew_NoOutputsIsNop(t *testing.T) {
	logger, closeFn, err := New(Options{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Error("dropped")
	if err := closeFn(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "shout"}); err == nil {
		t.Fatalf("New returned nil error for invalid level")
	}
}
