// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parse toml config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied. A missing file
// at path is not an error: it yields the built-in defaults, matching
// first-run behavior.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}

	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// FindConfig searches for a config file, first in the current directory,
// then in the user's config directory ($HOME/.agents-in-a-box/agentsbox.toml).
func (l *Loader) FindConfig() (string, error) {
	if path, err := filepath.Abs("agentsbox.toml"); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return path, nil
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".agents-in-a-box", "agentsbox.toml")
		if _, statErr := os.Stat(path); statErr == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for ./agentsbox.toml, ~/.agents-in-a-box/agentsbox.toml)")
}
