// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// RealExecutor drives the real tmux binary.
type RealExecutor struct{}

// NewRealExecutor returns an Executor backed by the tmux CLI.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

func (e *RealExecutor) HasSession(ctx context.Context, name string) bool {
	cmd := exec.CommandContext(ctx, "tmux", "has-session", "-t", name)
	return cmd.Run() == nil
}

func (e *RealExecutor) ListSessions(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "tmux", "list-sessions", "-F", "#{session_name}")
	output, err := cmd.Output()
	if err != nil {
		if strings.Contains(err.Error(), "no server running") {
			return nil, nil
		}
		return nil, err
	}
	var sessions []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			sessions = append(sessions, line)
		}
	}
	return sessions, nil
}

func (e *RealExecutor) NewSession(ctx context.Context, name, workdir string, cols, rows int) error {
	args := []string{"new-session", "-d", "-s", name}
	if workdir != "" {
		args = append(args, "-c", workdir)
	}
	if cols > 0 && rows > 0 {
		args = append(args, "-x", strconv.Itoa(cols), "-y", strconv.Itoa(rows))
	}

	cmd := exec.CommandContext(ctx, "tmux", args...)
	cmd.Env = filterMuxEnv(os.Environ())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tmux new-session failed: %s: %w", stderr.String(), err)
	}

	if err := e.SetOption(ctx, name, "history-limit", "10000"); err != nil {
		return fmt.Errorf("set history-limit: %w", err)
	}
	if err := e.SetOption(ctx, name, "mouse", "on"); err != nil {
		return fmt.Errorf("set mouse: %w", err)
	}
	configureClipboard(ctx, e, name)
	return nil
}

func (e *RealExecutor) KillSession(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "tmux", "kill-session", "-t", name)
	// Idempotent: missing session is not an error.
	if err := cmd.Run(); err != nil && e.HasSession(ctx, name) {
		return err
	}
	return nil
}

func (e *RealExecutor) CapturePane(ctx context.Context, name string, opts CaptureOptions) ([]byte, error) {
	args := []string{"capture-pane", "-t", name, "-p"}
	if opts.IncludeEscapeSequences {
		args = append(args, "-e")
	}
	if opts.JoinWrappedLines {
		args = append(args, "-J")
	}
	switch {
	case opts.FullScrollback:
		args = append(args, "-S", "-")
	case opts.StartLine != 0 || opts.EndLine != 0:
		args = append(args, "-S", strconv.Itoa(opts.StartLine), "-E", strconv.Itoa(opts.EndLine))
	}
	cmd := exec.CommandContext(ctx, "tmux", args...)
	return cmd.Output()
}

func (e *RealExecutor) SendKeys(ctx context.Context, name, keys string, literal bool) error {
	args := []string{"send-keys", "-t", name}
	if literal {
		args = append(args, "-l")
	}
	args = append(args, keys)
	if !literal {
		args = append(args, "Enter")
	}
	cmd := exec.CommandContext(ctx, "tmux", args...)
	return cmd.Run()
}

func (e *RealExecutor) SendText(ctx context.Context, name, text string) error {
	loadCmd := exec.CommandContext(ctx, "tmux", "load-buffer", "-")
	loadCmd.Stdin = strings.NewReader(text)
	if err := loadCmd.Run(); err != nil {
		return fmt.Errorf("tmux load-buffer: %w", err)
	}
	pasteCmd := exec.CommandContext(ctx, "tmux", "paste-buffer", "-d", "-t", name)
	return pasteCmd.Run()
}

func (e *RealExecutor) SetOption(ctx context.Context, name, option, value string) error {
	cmd := exec.CommandContext(ctx, "tmux", "set-option", "-t", name, option, value)
	return cmd.Run()
}

func (e *RealExecutor) Attach(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "tmux", "attach-session", "-t", name)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}

// filterMuxEnv strips TMUX from the child's environment so a nested tmux
// invocation never mistakes itself for already being inside the target
// session.
func filterMuxEnv(env []string) []string {
	result := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, "TMUX=") {
			result = append(result, e)
		}
	}
	return result
}

// validShells is the fixed allow-list of absolute shell paths that
// configureClipboard will wrap with reattach-to-user-namespace on macOS.
// Anything outside this list is refused, since $SHELL is attacker/user
// controlled and feeding it unchecked into a command line would be shell
// injection.
var validShells = map[string]bool{
	"/bin/bash": true, "/bin/zsh": true, "/bin/sh": true, "/bin/fish": true,
	"/bin/tcsh": true, "/bin/csh": true, "/bin/dash": true, "/bin/ksh": true,
	"/usr/bin/bash": true, "/usr/bin/zsh": true, "/usr/bin/sh": true, "/usr/bin/fish": true,
	"/usr/local/bin/bash": true, "/usr/local/bin/zsh": true, "/usr/local/bin/fish": true,
	"/opt/homebrew/bin/bash": true, "/opt/homebrew/bin/zsh": true, "/opt/homebrew/bin/fish": true,
}

func validatedShell() (string, bool) {
	shell := os.Getenv("SHELL")
	if validShells[shell] {
		return shell, true
	}
	return "", false
}

// configureClipboard wires reattach-to-user-namespace into the session on
// macOS when available, so pbcopy/pbpaste and OSC-52 clipboard work inside
// tmux. Best-effort: failures are not fatal to session creation.
func configureClipboard(ctx context.Context, e *RealExecutor, name string) {
	if runtime.GOOS != "darwin" {
		return
	}
	if _, err := exec.LookPath("reattach-to-user-namespace"); err != nil {
		return
	}
	shell, ok := validatedShell()
	if !ok {
		return
	}
	_ = e.SetOption(ctx, name, "default-command", "reattach-to-user-namespace "+shell)
}
