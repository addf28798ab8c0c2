// Package config holds the runtime configuration of the fakesqs server.
//
// Configuration is layered: Default provides the baseline, Load reads a YAML
// (or JSON) file on top of it, FromEnv overlays FAKESQS_* environment
// variables, and command-line flags in main have the final word.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the server.
type Config struct {
	Port int `yaml:"port"`
	// BaseURL prefixes queue URLs. Empty means http://localhost:<Port>/queues.
	BaseURL    string        `yaml:"baseURL"`
	LogLevel   string        `yaml:"logLevel"`  // debug, info, warn or error
	LogFormat  string        `yaml:"logFormat"` // text or json
	MinLatency time.Duration `yaml:"minLatency"`
	MaxLatency time.Duration `yaml:"maxLatency"`
	// Queues are created at startup.
	Queues []string `yaml:"queues"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Port:       9324,
		LogLevel:   "info",
		LogFormat:  "text",
		MinLatency: 30 * time.Millisecond,
		MaxLatency: 250 * time.Millisecond,
	}
}

// Load reads configuration from a YAML file on top of the defaults. JSON
// files load too, being valid YAML. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays FAKESQS_* environment variables onto cfg. Values that do
// not parse are ignored.
func FromEnv(cfg *Config) {
	cfg.Port = getEnvAsInt("FAKESQS_PORT", cfg.Port)
	cfg.BaseURL = getEnv("FAKESQS_BASE_URL", cfg.BaseURL)
	cfg.LogLevel = getEnv("FAKESQS_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("FAKESQS_LOG_FORMAT", cfg.LogFormat)
	cfg.MinLatency = getEnvAsDuration("FAKESQS_MIN_LATENCY", cfg.MinLatency)
	cfg.MaxLatency = getEnvAsDuration("FAKESQS_MAX_LATENCY", cfg.MaxLatency)
	if v, ok := os.LookupEnv("FAKESQS_QUEUES"); ok {
		cfg.Queues = nil
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Queues = append(cfg.Queues, name)
			}
		}
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MinLatency < 0 {
		errs = append(errs, fmt.Errorf("minLatency %s is negative", c.MinLatency))
	}
	if c.MaxLatency < c.MinLatency {
		errs = append(errs, fmt.Errorf("maxLatency %s is below minLatency %s", c.MaxLatency, c.MinLatency))
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("logFormat %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// QueueBaseURL returns BaseURL, or the local default when it is unset.
func (c Config) QueueBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("http://localhost:%d/queues", c.Port)
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("logLevel %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt parses an environment variable as an integer.
// If the environment variable is not set, not a valid integer, or is empty,
// it returns the provided fallback value.
func getEnvAsInt(key string, fallback int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

// getEnvAsDuration is getEnvAsInt for time.ParseDuration values such as "30ms".
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return fallback
}
