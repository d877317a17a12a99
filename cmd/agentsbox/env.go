// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wingedpig/agentsbox/internal/audit"
	"github.com/wingedpig/agentsbox/internal/config"
	"github.com/wingedpig/agentsbox/internal/mux"
	"github.com/wingedpig/agentsbox/internal/session"
	"github.com/wingedpig/agentsbox/internal/supervisor"
	"github.com/wingedpig/agentsbox/internal/worktree"
)

// homeRoot returns $HOME/.agents-in-a-box, creating it if necessary.
func homeRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	root := filepath.Join(home, ".agents-in-a-box")
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", root, err)
	}
	return root, nil
}

// environment bundles everything a CLI subcommand needs to drive a
// session's lifecycle.
type environment struct {
	cfg        *config.Config
	store      *session.Store
	supervisor *supervisor.Supervisor
	auditLog   *audit.Log
	worktrees  *worktree.Manager
	mux        *mux.Adapter
}

// newEnvironment loads configuration and wires the store/supervisor
// stack rooted at $HOME/.agents-in-a-box, exactly as the interactive TUI
// does at startup.
func newEnvironment() (*environment, error) {
	root, err := homeRoot()
	if err != nil {
		return nil, err
	}

	loader := config.NewLoader()
	configPath, err := loader.FindConfig()
	if err != nil {
		configPath = filepath.Join(root, "agentsbox.toml")
	}
	cfg, err := loader.LoadWithDefaults(context.Background(), configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store := session.NewStore(filepath.Join(root, "sessions.json"))

	worktreeRoot := cfg.WorkspaceDefaults.WorktreeRoot
	if worktreeRoot == "" {
		worktreeRoot = filepath.Join(root, "worktrees")
		cfg.WorkspaceDefaults.WorktreeRoot = worktreeRoot
	}
	wt := worktree.NewManager(worktree.NewRealGitExecutor(), nil, worktreeRoot)

	muxAdapter := mux.New(mux.NewRealExecutor())

	auditLog, err := audit.Open(filepath.Join(root, "logs", "audit.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	sup := supervisor.New(muxAdapter, wt, store, nil, auditLog, cfg.WorkspaceDefaults.MuxPrefix)

	return &environment{
		cfg:        cfg,
		store:      store,
		supervisor: sup,
		auditLog:   auditLog,
		worktrees:  wt,
		mux:        muxAdapter,
	}, nil
}

func (e *environment) Close() {
	if e.auditLog != nil {
		_ = e.auditLog.Close()
	}
}
