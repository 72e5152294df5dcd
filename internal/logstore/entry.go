package logstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Levels returns the known levels from least to most severe.
func Levels() []Level {
	return []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// ParseLevel maps user input onto a Level. Matching is case-insensitive and
// accepts "warning" as an alias for WARN.
func ParseLevel(value string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", value)
	}
}

// AtLeast reports whether l is as severe as min. Unknown levels rank with DEBUG.
func (l Level) AtLeast(min Level) bool {
	return levelRank[l] >= levelRank[min]
}

// Entry is a single recorded log line. Entries are never mutated after creation.
type Entry struct {
	Timestamp string          `json:"timestamp"`
	Level     Level           `json:"level"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

const timestampLayout = "2006-01-02T15:04:05.000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Time parses the entry timestamp. A malformed timestamp yields the zero time.
func (e Entry) Time() time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// HasData reports whether the entry carries a payload worth rendering.
// null, false, 0 and the empty string count as absent.
func (e Entry) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// Line renders the entry in export format.
func (e Entry) Line() string {
	line := fmt.Sprintf("[%s] [%s] %s", e.Timestamp, e.Level, e.Message)
	if e.HasData() {
		line += " " + string(bytes.TrimSpace(e.Data))
	}
	return line
}

func (e Entry) sinkLine() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Timestamp, e.Level, e.Message)
}

// encodeData turns an arbitrary payload into JSON. When the payload cannot be
// marshalled the %+v rendering is stored as a JSON string and the error is
// returned alongside it.
func encodeData(data any) (raw json.RawMessage, err error) {
	if data == nil {
		return nil, nil
	}
	if msg, ok := data.(json.RawMessage); ok {
		if len(msg) == 0 {
			return nil, nil
		}
		if !json.Valid(msg) {
			fallback, _ := json.Marshal(string(msg))
			return fallback, fmt.Errorf("invalid raw json payload")
		}
		var buf bytes.Buffer
		_ = json.Compact(&buf, msg)
		return buf.Bytes(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			raw, _ = json.Marshal(fmt.Sprintf("%+v", data))
			err = fmt.Errorf("marshal log data: panic: %v", r)
		}
	}()

	encoded, err := json.Marshal(data)
	if err != nil {
		fallback, _ := json.Marshal(fmt.Sprintf("%+v", data))
		return fallback, fmt.Errorf("marshal log data: %w", err)
	}
	if string(encoded) == "null" {
		return nil, nil
	}
	return encoded, nil
}

func renderLines(entries []Entry, min Level) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Level.AtLeast(min) {
			continue
		}
		lines = append(lines, entry.Line())
	}
	return strings.Join(lines, "\n")
}
