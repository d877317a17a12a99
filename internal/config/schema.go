// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles TOML configuration loading for the session
// supervisor: agent provider/auth selection, workspace and pool defaults,
// and multiplexer options.
package config

// CLIProvider names the agent CLI a session's multiplexer pane runs.
type CLIProvider string

const (
	ProviderClaude CLIProvider = "claude"
	ProviderCodex  CLIProvider = "codex"
	ProviderGemini CLIProvider = "gemini"
)

// AuthProvider names how the selected CLIProvider authenticates.
type AuthProvider string

const (
	AuthSystemAuth   AuthProvider = "system_auth"
	AuthAPIKey       AuthProvider = "api_key"
	AuthBedrock      AuthProvider = "bedrock"
	AuthVertex       AuthProvider = "vertex"
	AuthAzureFoundry AuthProvider = "azure_foundry"
	AuthGlmZai       AuthProvider = "glm_zai"
	AuthLLMGateway   AuthProvider = "llm_gateway"
)

// Config is the root, typed configuration value, loaded from
// `agentsbox.toml`.
type Config struct {
	CLIProvider       CLIProvider             `toml:"cli_provider"`
	AuthProvider      AuthProvider            `toml:"auth_provider"`
	DefaultModel      string                  `toml:"default_model"`
	WorkspaceDefaults WorkspaceDefaultsConfig `toml:"workspace_defaults"`
	Pool              PoolConfig              `toml:"pool"`
	Mux               MuxConfig               `toml:"mux"`
}

// WorkspaceDefaultsConfig controls how new sessions are named and rooted.
type WorkspaceDefaultsConfig struct {
	// BranchPrefix is prepended to every session's generated branch name,
	// e.g. "agents" yields "agents/<workspace>/<short-id>".
	BranchPrefix string `toml:"branch_prefix"`
	// WorktreeRoot is the directory new worktrees are created under.
	// Defaults to "$HOME/.agents-in-a-box/worktrees" when empty.
	WorktreeRoot string `toml:"worktree_root"`
	// MuxPrefix namespaces every multiplexer session this supervisor
	// creates, e.g. "tmux_".
	MuxPrefix string `toml:"mux_prefix"`
}

// PoolConfig configures the shared-subprocess proxy pool.
type PoolConfig struct {
	MaxInFlight int           `toml:"max_in_flight"`
	Breaker     BreakerConfig `toml:"breaker"`
}

// BreakerConfig configures the per-proxy circuit breaker.
type BreakerConfig struct {
	// Window is the number of most-recent requests the error ratio is
	// computed over.
	Window int `toml:"window"`
	// Threshold is the error ratio (0..1) that flips Closed -> Open.
	Threshold float64 `toml:"threshold"`
	// CooldownSeconds is how long the breaker stays Open before admitting
	// a single HalfOpen probe.
	CooldownSeconds int `toml:"cooldown_seconds"`
}

// MuxConfig controls the terminal-multiplexer session options applied by
// the multiplexer adapter on session creation.
type MuxConfig struct {
	Scrollback int  `toml:"scrollback"`
	Mouse      bool `toml:"mouse"`
	Clipboard  bool `toml:"clipboard"`
}

// applyDefaults fills zero-valued fields with the built-in defaults.
func applyDefaults(cfg *Config) {
	if cfg.CLIProvider == "" {
		cfg.CLIProvider = ProviderClaude
	}
	if cfg.AuthProvider == "" {
		cfg.AuthProvider = AuthSystemAuth
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "sonnet"
	}
	if cfg.WorkspaceDefaults.BranchPrefix == "" {
		cfg.WorkspaceDefaults.BranchPrefix = "agents"
	}
	if cfg.WorkspaceDefaults.MuxPrefix == "" {
		cfg.WorkspaceDefaults.MuxPrefix = "tmux_"
	}
	if cfg.Pool.MaxInFlight == 0 {
		cfg.Pool.MaxInFlight = 32
	}
	if cfg.Pool.Breaker.Window == 0 {
		cfg.Pool.Breaker.Window = 10
	}
	if cfg.Pool.Breaker.Threshold == 0 {
		cfg.Pool.Breaker.Threshold = 0.5
	}
	if cfg.Pool.Breaker.CooldownSeconds == 0 {
		cfg.Pool.Breaker.CooldownSeconds = 30
	}
	if cfg.Mux.Scrollback == 0 {
		cfg.Mux.Scrollback = 10000
	}
	if !cfg.Mux.Mouse {
		cfg.Mux.Mouse = true
	}
	if !cfg.Mux.Clipboard {
		cfg.Mux.Clipboard = true
	}
}
