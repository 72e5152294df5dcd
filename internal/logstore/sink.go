package logstore

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Sink is the diagnostic side channel. Each method receives the rendered
// "[timestamp] [LEVEL] message" line and the optional JSON payload.
type Sink interface {
	Debug(line string, data json.RawMessage)
	Info(line string, data json.RawMessage)
	Warn(line string, data json.RawMessage)
	Error(line string, data json.RawMessage)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Debug(string, json.RawMessage) {}
func (NopSink) Info(string, json.RawMessage)  {}
func (NopSink) Warn(string, json.RawMessage)  {}
func (NopSink) Error(string, json.RawMessage) {}

// ZapSink forwards sink output to a zap logger.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps log. A nil logger behaves like NopSink.
func NewZapSink(log *zap.Logger) ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return ZapSink{log: log.WithOptions(zap.AddCallerSkip(2))}
}

func (s ZapSink) Debug(line string, data json.RawMessage) { s.log.Debug(line, dataFields(data)...) }
func (s ZapSink) Info(line string, data json.RawMessage)  { s.log.Info(line, dataFields(data)...) }
func (s ZapSink) Warn(line string, data json.RawMessage)  { s.log.Warn(line, dataFields(data)...) }
func (s ZapSink) Error(line string, data json.RawMessage) { s.log.Error(line, dataFields(data)...) }

func dataFields(data json.RawMessage) []zap.Field {
	if len(data) == 0 {
		return nil
	}
	return []zap.Field{zap.Reflect("data", data)}
}
