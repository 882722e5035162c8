package fdtd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fdtd-sdk/store"
	"fdtd-sdk/utils"
)

// ConfigVersion is the configuration format this package writes.
const ConfigVersion = 1

var ErrConfigVersion = errors.New("fdtd: unsupported config version")

// Config is the persisted client configuration.
type Config struct {
	Version         int           `yaml:"version"`
	APIKey          string        `yaml:"api_key,omitempty"`
	BaseURL         string        `yaml:"base_url"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	RetryMaxDelay   time.Duration `yaml:"retry_max_delay"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollMaxInterval time.Duration `yaml:"poll_max_interval"`
	// PollTimeout bounds Wait; zero waits until the job finishes.
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	PollMaxFailures int           `yaml:"poll_max_failures"`
	// MaxGridCells rejects larger simulations before upload; zero keeps the grid default.
	MaxGridCells int64 `yaml:"max_grid_cells,omitempty"`
	// HistoryDSN enables the task history store, e.g. postgres://... or mysql://...
	HistoryDSN string `yaml:"history_dsn,omitempty"`
}

var configKeys = map[string]bool{
	"version": true, "api_key": true, "base_url": true, "connect_timeout": true,
	"request_timeout": true, "max_retries": true, "retry_delay": true, "retry_max_delay": true,
	"poll_interval": true, "poll_max_interval": true, "poll_timeout": true,
	"poll_max_failures": true, "max_grid_cells": true, "history_dsn": true,
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version:         ConfigVersion,
		BaseURL:         DefaultBaseURL,
		ConnectTimeout:  10 * time.Second,
		RequestTimeout:  30 * time.Second,
		MaxRetries:      3,
		RetryDelay:      500 * time.Millisecond,
		RetryMaxDelay:   10 * time.Second,
		PollInterval:    2 * time.Second,
		PollMaxInterval: 30 * time.Second,
		PollMaxFailures: 5,
	}
}

// DefaultConfigPath is ~/.fdtd/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(utils.DefaultDir(), "config.yaml")
}

// LoadConfig reads the YAML file at path (DefaultConfigPath when empty) over
// the defaults. A missing file is not an error. Unknown keys are logged and
// ignored; a version newer than ConfigVersion is rejected.
//
// FDTD_API_KEY, FDTD_BASE_URL and FDTD_HISTORY_DSN, from the environment or
// a .env file in the working directory, override the file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	// Load .env file
	godotenv.Load()
	if v := os.Getenv("FDTD_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("FDTD_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("FDTD_HISTORY_DSN"); v != "" {
		cfg.HistoryDSN = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field against its allowed range. Zero is accepted
// where it has a meaning: retry_max_delay (uncapped), poll_timeout
// (unbounded), max_retries and poll_max_failures (none), max_grid_cells
// (grid default).
func (c *Config) Validate() error {
	positive := []struct {
		field string
		value time.Duration
	}{
		{"connect_timeout", c.ConnectTimeout},
		{"request_timeout", c.RequestTimeout},
		{"retry_delay", c.RetryDelay},
		{"poll_interval", c.PollInterval},
		{"poll_max_interval", c.PollMaxInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ValidationError{Field: p.field, Message: fmt.Sprintf("must be positive, got %s", p.value)}
		}
	}

	switch {
	case c.BaseURL == "":
		return &ValidationError{Field: "base_url", Message: "is required"}
	case c.MaxRetries < 0:
		return &ValidationError{Field: "max_retries", Message: fmt.Sprintf("must not be negative, got %d", c.MaxRetries)}
	case c.RetryMaxDelay < 0:
		return &ValidationError{Field: "retry_max_delay", Message: fmt.Sprintf("must not be negative, got %s", c.RetryMaxDelay)}
	case c.PollMaxInterval < c.PollInterval:
		return &ValidationError{Field: "poll_max_interval", Message: fmt.Sprintf("%s is below poll_interval %s", c.PollMaxInterval, c.PollInterval)}
	case c.PollTimeout < 0:
		return &ValidationError{Field: "poll_timeout", Message: fmt.Sprintf("must not be negative, got %s", c.PollTimeout)}
	case c.PollMaxFailures < 0:
		return &ValidationError{Field: "poll_max_failures", Message: fmt.Sprintf("must not be negative, got %d", c.PollMaxFailures)}
	case c.MaxGridCells < 0:
		return &ValidationError{Field: "max_grid_cells", Message: fmt.Sprintf("must not be negative, got %d", c.MaxGridCells)}
	}
	return nil
}

func (c *Config) decode(data []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var unknown []string
	for k := range raw {
		if !configKeys[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		utils.LogDebug("config: ignoring unknown key %q", k)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Version == 0 {
		c.Version = ConfigVersion
	}
	if c.Version > ConfigVersion {
		return fmt.Errorf("%w: %d (this client reads up to %d)", ErrConfigVersion, c.Version, ConfigVersion)
	}
	return nil
}

// SaveConfig writes cfg to path (DefaultConfigPath when empty) with owner-only
// permissions.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	out := *cfg
	out.Version = ConfigVersion
	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Options converts the configuration into client options.
func (c *Config) Options() []ClientOption {
	opts := []ClientOption{
		WithBaseURL(c.BaseURL),
		WithTimeout(c.RequestTimeout),
		WithConnectTimeout(c.ConnectTimeout),
		WithRetryConfig(&RetryConfig{
			MaxRetries: c.MaxRetries,
			RetryDelay: c.RetryDelay,
			MaxDelay:   c.RetryMaxDelay,
		}),
		WithPollConfig(&PollConfig{
			Interval:    c.PollInterval,
			MaxInterval: c.PollMaxInterval,
			Timeout:     c.PollTimeout,
			MaxFailures: c.PollMaxFailures,
		}),
	}
	if c.MaxGridCells > 0 {
		opts = append(opts, WithMaxGridCells(c.MaxGridCells))
	}
	return opts
}

// NewClientFromConfig builds a client from cfg. When HistoryDSN is set the
// history store is opened and migrated; Close the client to release it.
func NewClientFromConfig(ctx context.Context, cfg *Config, extra ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := cfg.Options()
	if cfg.HistoryDSN != "" {
		st, err := store.Open(cfg.HistoryDSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		opts = append(opts, WithHistory(st))
	}
	return NewClient(cfg.APIKey, append(opts, extra...)...), nil
}
