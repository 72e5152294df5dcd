// Package logging builds the zap logger behind the diagnostic sink.
//
// The TUI owns the terminal, so by default records go only to a rotating file.
// CLI subcommands add a console core on stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure New.
type Options struct {
	Path    string    // rotating log file; empty disables file output
	Level   string    // debug, info, warn or error
	Console io.Writer // optional human-readable output, typically os.Stderr

	MaxSizeMB  int // defaults to 5
	MaxBackups int // defaults to 3
}

const (
	defaultMaxSizeMB  = 5
	defaultMaxBackups = 3
)

// ParseLevel maps a config value onto a zap level. Empty means debug.
func ParseLevel(value string) (zapcore.Level, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return zapcore.DebugLevel, nil
	}
	if v == "warning" {
		v = "warn"
	}
	level, err := zapcore.ParseLevel(v)
	if err != nil {
		return zapcore.DebugLevel, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return level, nil
}

// New builds a logger from opts. The returned close function syncs and
// releases the file; it is safe to call more than once. With neither Path nor
// Console set the logger discards everything.
func New(opts Options) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	atomic := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	var rotator *lumberjack.Logger

	if strings.TrimSpace(opts.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    orDefault(opts.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, defaultMaxBackups),
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig()),
			zapcore.AddSync(rotator),
			atomic,
		))
	}

	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(opts.Console)),
			atomic,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() error { return nil }, nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closed := false
	closeFn := func() error {
		if closed {
			return nil
		}
		closed = true
		_ = logger.Sync()
		if rotator != nil {
			return rotator.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = ""
	return cfg
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
