// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wingedpig/agentsbox/internal/supervisor"
	"github.com/wingedpig/agentsbox/internal/worktree"
)

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	format := fs.String("format", "text", "output format: text|json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: agentsbox status <id-or-prefix>")
	}

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	record, err := env.store.Find(fs.Arg(0))
	if err != nil {
		return describeLookupFailure(err)
	}

	health, err := env.supervisor.Health(context.Background(), record)
	if err != nil {
		health = supervisor.HealthStopped
	}

	if *format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(listRow{
			SessionID:     record.ID.String(),
			MuxName:       record.MuxName,
			WorkspaceName: record.WorkspaceName,
			WorktreePath:  record.WorkspacePath,
			CreatedAt:     record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			IsRunning:     health != supervisor.HealthStopped,
			AgentActive:   health == supervisor.HealthRunning,
		})
	}

	fmt.Printf("Session:   %s\n", record.ID)
	fmt.Printf("Workspace: %s\n", record.WorkspaceName)
	fmt.Printf("Worktree:  %s (branch %s)\n", record.WorkspacePath, record.Branch)
	fmt.Printf("Mux:       %s\n", record.MuxName)
	fmt.Printf("Created:   %s\n", record.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Health:    %s\n", health)
	if record.RepoPath != "" {
		ctx := context.Background()
		base := worktree.GetDefaultBranch(ctx, record.RepoPath)
		ahead, behind := worktree.GetAheadBehind(ctx, record.WorkspacePath, base)
		fmt.Printf("Commits:   %d ahead, %d behind %s\n", ahead, behind, base)
	}
	return nil
}

func cmdKill(args []string) error {
	fs := flag.NewFlagSet("kill", flag.ExitOnError)
	force := fs.Bool("force", false, "skip confirmation and discard uncommitted worktree changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: agentsbox kill <id-or-prefix> [--force]")
	}

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	record, err := env.store.Find(fs.Arg(0))
	if err != nil {
		return describeLookupFailure(err)
	}

	if !*force {
		fmt.Printf("Delete session %s (%s)? This removes its worktree. [y/N] ", shortDisplay(record.ID.String()), record.WorkspaceName)
		reply, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(reply)); answer != "y" && answer != "yes" {
			fmt.Println("Canceled.")
			return nil
		}
	}

	if err := env.supervisor.Delete(context.Background(), record.ID.String(), *force); err != nil {
		var dirty *supervisor.ErrDirty
		if errors.As(err, &dirty) {
			return fmt.Errorf("%v; re-run with --force to discard changes (audit log: ~/.agents-in-a-box/logs/audit.jsonl)", err)
		}
		return err
	}

	fmt.Printf("Deleted session %s\n", shortDisplay(record.ID.String()))
	return nil
}
