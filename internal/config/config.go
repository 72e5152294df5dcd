package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/five82/wallboxctl/internal/wallbox"
)

// Log backends selectable with log_backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config is the resolved wallboxctl configuration.
type Config struct {
	Path string `mapstructure:"-"` // file that was read, empty when none existed

	APIURL         string        `mapstructure:"api_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DataDir        string        `mapstructure:"data_dir"`
	LogBackend     string        `mapstructure:"log_backend"`
	ExportDir      string        `mapstructure:"export_dir"`
	Controls       string        `mapstructure:"controls"`
	DiagLog        string        `mapstructure:"diag_log"`
	DiagLevel      string        `mapstructure:"diag_level"`
	DiagListen     string        `mapstructure:"diag_listen"`
	ActionRate     float64       `mapstructure:"action_rate"`
	ActionBurst    int           `mapstructure:"action_burst"`
}

const (
	envPrefix = "WALLBOX"

	defaultConfigPath     = "~/.config/wallboxctl/config.toml"
	defaultDataDir        = "~/.local/share/wallboxctl"
	defaultExportDir      = "~/Downloads"
	defaultPollInterval   = 2 * time.Second
	defaultRequestTimeout = 5 * time.Second
	defaultDiagLevel      = "debug"
	defaultActionRate     = 2.0
	defaultActionBurst    = 1

	diagLogName    = "wallboxctl.log"
	sqliteFileName = "logs.db"
)

// Load reads the config file at path (or the default location), applies
// WALLBOX_* environment overrides and fills in defaults. A missing file is
// not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api_url", wallbox.DefaultAPIURL)
	v.SetDefault("poll_interval", defaultPollInterval)
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("log_backend", BackendFile)
	v.SetDefault("export_dir", defaultExportDir)
	v.SetDefault("controls", string(wallbox.ControlsRestricted))
	v.SetDefault("diag_log", "")
	v.SetDefault("diag_level", defaultDiagLevel)
	v.SetDefault("diag_listen", "")
	v.SetDefault("action_rate", defaultActionRate)
	v.SetDefault("action_burst", defaultActionBurst)

	v.SetConfigFile(resolved)
	v.SetConfigType("toml")

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		found = false
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if found {
		cfg.Path = resolved
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = wallbox.DefaultAPIURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}

	c.DataDir = pathOrDefault(c.DataDir, defaultDataDir)
	c.ExportDir = pathOrDefault(c.ExportDir, defaultExportDir)
	if strings.TrimSpace(c.DiagLog) == "" {
		c.DiagLog = filepath.Join(c.DataDir, diagLogName)
	} else {
		c.DiagLog = mustExpand(c.DiagLog)
	}

	c.LogBackend = strings.ToLower(strings.TrimSpace(c.LogBackend))
	switch c.LogBackend {
	case "":
		c.LogBackend = BackendFile
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid log_backend %q (want file, sqlite or memory)", c.LogBackend)
	}

	controls, err := wallbox.ParseControlSet(c.Controls)
	if err != nil {
		return fmt.Errorf("invalid controls: %w", err)
	}
	c.Controls = string(controls)

	c.DiagLevel = strings.ToLower(strings.TrimSpace(c.DiagLevel))
	if c.DiagLevel == "" {
		c.DiagLevel = defaultDiagLevel
	}
	c.DiagListen = strings.TrimSpace(c.DiagListen)
	if c.ActionBurst < 1 {
		c.ActionBurst = defaultActionBurst
	}
	return nil
}

// ControlSet returns the validated control set.
func (c Config) ControlSet() wallbox.ControlSet {
	set, err := wallbox.ParseControlSet(c.Controls)
	if err != nil {
		return wallbox.ControlsRestricted
	}
	return set
}

// SQLitePath is where the sqlite log backend keeps its database.
func (c Config) SQLitePath() string {
	return filepath.Join(c.dataDir(), sqliteFileName)
}

// DiagLogPath returns the diagnostic log file, defaulting under DataDir.
func (c Config) DiagLogPath() string {
	if strings.TrimSpace(c.DiagLog) == "" {
		return filepath.Join(c.dataDir(), diagLogName)
	}
	return c.DiagLog
}

func (c Config) dataDir() string {
	return pathOrDefault(c.DataDir, defaultDataDir)
}

func pathOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return mustExpand(fallback)
	}
	return mustExpand(value)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
