// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wingedpig/agentsbox/internal/app"
	"github.com/wingedpig/agentsbox/internal/events"
	"github.com/wingedpig/agentsbox/internal/supervisor"
	"github.com/wingedpig/agentsbox/internal/worktree"
)

// runTUI starts the interactive overview. Startup reconciliation happens
// first: orphaned multiplexer sessions under our prefix are killed and
// stale worktree directories pruned before the first frame renders.
func runTUI(args []string) {
	env, err := newEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reconcileOnStartup(ctx, env)

	// Keep reconciling while the overview runs: a worktree directory
	// removed out-of-band is pruned shortly after, not at next startup.
	worktreeRoot := env.cfg.WorkspaceDefaults.WorktreeRoot
	if watcher, err := worktree.NewWatcher(worktreeRoot, 0, func() {
		reconcileOnStartup(context.Background(), env)
	}); err == nil {
		defer watcher.Close()
	}

	bus := events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: 1000,
		HistoryMaxAge:    time.Hour,
	})
	defer bus.Close()

	// Rebuild the mutation stack on top of the bus so every worktree and
	// session lifecycle change is published for the overview's footer and
	// history. The plain CLI subcommands keep the bus-less stack from
	// newEnvironment.
	wt := worktree.NewManager(worktree.NewRealGitExecutor(), bus, worktreeRoot)
	sup := supervisor.New(env.mux, wt, env.store, bus, env.auditLog, env.cfg.WorkspaceDefaults.MuxPrefix)

	overview := app.New(app.Options{
		Config:     env.cfg,
		Store:      env.store,
		Supervisor: sup,
		Mux:        env.mux,
		Bus:        bus,
		Audit:      env.auditLog,
	})

	if err := overview.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// reconcileOnStartup detects and acts on orphans left by a crash: mux
// sessions with our prefix but no record, and worktree directories no
// record owns. Best-effort; failures surface later through health checks.
func reconcileOnStartup(ctx context.Context, env *environment) {
	_, _ = env.supervisor.CleanupOrphans(ctx)

	records, err := env.store.Load()
	if err != nil {
		return
	}
	known := make(map[string]bool, len(records))
	repos := make(map[string]bool)
	for _, r := range records {
		known[r.WorkspacePath] = true
		if r.RepoPath != "" {
			repos[r.RepoPath] = true
		}
	}
	for repo := range repos {
		_ = env.worktrees.PruneStale(ctx, repo, known)
	}
}
