// Package config provides configuration management for the FDTD CLI.
//
// This file handles loading the persisted configuration (with .env and
// environment overrides) and creating configured FDTD clients.
package config

import (
	"context"

	fdtd "fdtd-sdk"
)

// Load reads the configuration from the default path.
func Load() (*fdtd.Config, error) {
	return fdtd.LoadConfig("")
}

// LoadClient loads configuration and creates a client. When the history
// store cannot be reached the client is built without it and the error is
// returned alongside.
func LoadClient(ctx context.Context) (*fdtd.Client, *fdtd.Config, error) {
	cfg, err := Load()
	if err != nil {
		return fdtd.NewClient(""), fdtd.DefaultConfig(), err
	}
	client, err := fdtd.NewClientFromConfig(ctx, cfg)
	if err != nil {
		noHistory := *cfg
		noHistory.HistoryDSN = ""
		client, _ = fdtd.NewClientFromConfig(ctx, &noHistory)
		return client, cfg, err
	}
	return client, cfg, nil
}

// Save persists cfg to the default path and returns a client built from it.
func Save(ctx context.Context, cfg *fdtd.Config) (*fdtd.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := fdtd.SaveConfig("", cfg); err != nil {
		return nil, err
	}
	return fdtd.NewClientFromConfig(ctx, cfg)
}
