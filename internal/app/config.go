package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/ironrun/internal/config"
	"github.com/vk/ironrun/internal/document"
	"github.com/vk/ironrun/internal/relay"
)

// Default values shared by the CLI flags and DefaultConfig.
const (
	DefaultLogFormat     = "text"
	DefaultLogLevel      = "info"
	DefaultWorkers       = 4
	DefaultWatchDebounce = 200 * time.Millisecond
)

// DocumentExtensions are the file extensions searched for in directories.
var DocumentExtensions = []string{".html", ".htm"}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Paths []string // host documents or directories containing them

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	Workers         int
	ScriptType      string
	FailOnError     bool

	Watch         bool
	WatchDebounce time.Duration

	FetchTimeout     time.Duration // 0 means no bound
	UserAgent        string
	ExecutionTimeout time.Duration // 0 means no bound

	Globals map[string]any
	Relay   *relay.Config
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		LogFormat:     DefaultLogFormat,
		LogLevel:      DefaultLogLevel,
		Workers:       DefaultWorkers,
		ScriptType:    document.DefaultScriptType,
		WatchDebounce: DefaultWatchDebounce,
		UserAgent:     "ironrun",
	}
}

// ApplyFile overlays every value the configuration file sets.
func (c *Config) ApplyFile(f *config.File) {
	if f == nil {
		return
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogFormat != nil {
		c.LogFormat = *f.LogFormat
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.HealthcheckPort != nil {
		c.HealthcheckPort = *f.HealthcheckPort
	}
	if f.ScriptType != nil {
		c.ScriptType = *f.ScriptType
	}
	if f.FailOnError != nil {
		c.FailOnError = *f.FailOnError
	}
	if f.FetchTimeout != nil {
		c.FetchTimeout = *f.FetchTimeout
	}
	if f.UserAgent != nil {
		c.UserAgent = *f.UserAgent
	}
	if f.ExecutionTimeout != nil {
		c.ExecutionTimeout = *f.ExecutionTimeout
	}
	if f.Globals != nil {
		c.Globals = f.Globals
	}
	if f.Relay != nil {
		c.Relay = &relay.Config{
			URL:       f.Relay.URL,
			Namespace: f.Relay.Namespace,
			Event:     f.Relay.Event,
		}
	}
}

// NewConfig validates cfg and returns a normalized copy.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one document path is required")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.FetchTimeout < 0 || cfg.ExecutionTimeout < 0 || cfg.WatchDebounce < 0 {
		return nil, errors.New("timeouts must not be negative")
	}

	cfg.ScriptType = strings.TrimSpace(cfg.ScriptType)
	if cfg.ScriptType == "" {
		cfg.ScriptType = document.DefaultScriptType
	}

	return &cfg, nil
}
