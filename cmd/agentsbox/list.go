// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/wingedpig/agentsbox/internal/session"
	"github.com/wingedpig/agentsbox/internal/supervisor"
)

type listRow struct {
	SessionID     string `json:"session_id"`
	MuxName       string `json:"mux_name"`
	WorkspaceName string `json:"workspace_name"`
	WorktreePath  string `json:"worktree_path"`
	CreatedAt     string `json:"created_at"`
	IsRunning     bool   `json:"is_running"`
	AgentActive   bool   `json:"agent_active"`
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	runningOnly := fs.Bool("running", false, "only show sessions whose multiplexer session is alive")
	workspace := fs.String("workspace", "", "filter by workspace-name substring")
	format := fs.String("format", "text", "output format: text|json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	records, err := env.store.List(session.Filter{WorkspaceContains: *workspace})
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	ctx := context.Background()
	rows := make([]listRow, 0, len(records))
	for _, r := range records {
		health, err := env.supervisor.Health(ctx, r)
		if err != nil {
			health = supervisor.HealthStopped
		}
		running := health != supervisor.HealthStopped
		if *runningOnly && !running {
			continue
		}
		rows = append(rows, listRow{
			SessionID:     r.ID.String(),
			MuxName:       r.MuxName,
			WorkspaceName: r.WorkspaceName,
			WorktreePath:  r.WorkspacePath,
			CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			IsRunning:     running,
			AgentActive:   health == supervisor.HealthRunning,
		})
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tWORKSPACE\tMUX\tCREATED\tHEALTH")
	for _, r := range rows {
		health := "idle"
		if !r.IsRunning {
			health = "stopped"
		} else if r.AgentActive {
			health = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortDisplay(r.SessionID), r.WorkspaceName, r.MuxName, r.CreatedAt, health)
	}
	return w.Flush()
}

func shortDisplay(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
