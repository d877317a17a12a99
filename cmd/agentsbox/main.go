// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// agentsbox manages disposable agent sessions: each wraps a git worktree,
// a terminal-multiplexer session, and a supervised CLI agent process.
package main

import (
	"fmt"
	"os"
)

var version = "0.1"

func main() {
	if len(os.Args) < 2 {
		runTUI(os.Args[1:])
		return
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "list":
		err = cmdList(args)
	case "run":
		err = cmdRun(args)
	case "attach":
		err = cmdAttach(args)
	case "logs":
		err = cmdLogs(args)
	case "status":
		err = cmdStatus(args)
	case "kill":
		err = cmdKill(args)
	case "auth":
		err = cmdAuth(args)
	case "tui":
		runTUI(args)
		return
	case "version", "-v", "--version":
		fmt.Printf("agentsbox %s\n", version)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		runTUI(os.Args[1:])
		return
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`agentsbox - run disposable agent sessions against git worktrees

Usage:
  agentsbox [command] [arguments]

Commands:
  list [--running] [--workspace <substr>] [--format text|json]
  run <spec> [--repo <path>] [--create-branch <name>] [--worktree] [--tool <name>]
             [--model <name>] [--prompt <text>] [--attach] [--name <label>]
             [--preset <name>] [--dangerously-skip-permissions] [--interactive]
  attach <id-or-prefix>
  logs <id-or-prefix> [--follow] [--lines N]
  status <id-or-prefix> [--format text|json]
  kill <id-or-prefix> [--force]
  auth
  tui                    (default when no command is given)

Output format:
  --format text|json     Accepted by list and status, after the command name.
                         It is not read when given before the command name.`)
}
