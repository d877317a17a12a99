// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ErrAlreadyExists is returned by Create when a session by that name exists.
type ErrAlreadyExists struct{ Name string }

func (e *ErrAlreadyExists) Error() string {
	return fmt.Sprintf("mux session %q already exists", e.Name)
}

// ErrUnavailable wraps a failure to invoke the multiplexer binary itself.
type ErrUnavailable struct{ Cause error }

func (e *ErrUnavailable) Error() string { return fmt.Sprintf("multiplexer unavailable: %v", e.Cause) }
func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// Adapter mediates all interaction with the external terminal multiplexer.
// It holds no per-session state; every call is a subprocess invocation.
type Adapter struct {
	exec Executor
}

// New returns an Adapter backed by the given Executor. Pass nil to use the
// real tmux binary.
func New(exec Executor) *Adapter {
	if exec == nil {
		exec = NewRealExecutor()
	}
	return &Adapter{exec: exec}
}

// Create creates a detached session with the given geometry, starting
// initialCommand in workdir. Returns ErrAlreadyExists if name is taken.
func (a *Adapter) Create(ctx context.Context, name, workdir string, initialCommand []string, cols, rows int) error {
	if a.exec.HasSession(ctx, name) {
		return &ErrAlreadyExists{Name: name}
	}
	if err := a.exec.NewSession(ctx, name, workdir, cols, rows); err != nil {
		return &ErrUnavailable{Cause: err}
	}
	if len(initialCommand) > 0 {
		if err := a.exec.SendText(ctx, name, strings.Join(initialCommand, " ")); err != nil {
			return &ErrUnavailable{Cause: err}
		}
		if err := a.exec.SendKeys(ctx, name, "", false); err != nil {
			return &ErrUnavailable{Cause: err}
		}
	}
	return nil
}

// Kill is idempotent: it returns nil whether or not the session existed.
func (a *Adapter) Kill(ctx context.Context, name string) error {
	if err := a.exec.KillSession(ctx, name); err != nil {
		return fmt.Errorf("kill mux session %q: %w", name, err)
	}
	return nil
}

// Exists is a cheap liveness probe.
func (a *Adapter) Exists(ctx context.Context, name string) bool {
	return a.exec.HasSession(ctx, name)
}

// Capture returns the pane content for name, filtered of agent-UI noise.
// ANSI escapes are preserved in the returned text; filtering decisions are
// made against an escape-stripped copy.
func (a *Adapter) Capture(ctx context.Context, name string, opts CaptureOptions) (string, error) {
	raw, err := a.exec.CapturePane(ctx, name, opts)
	if err != nil {
		return "", fmt.Errorf("capture pane %q: %w", name, err)
	}
	return filterNoise(string(raw)), nil
}

// ListPrefixed enumerates multiplexer sessions whose name starts with
// prefix (the supervisor's namespace).
func (a *Adapter) ListPrefixed(ctx context.Context, prefix string) ([]string, error) {
	all, err := a.exec.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mux sessions: %w", err)
	}
	var out []string
	for _, name := range all {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out, nil
}

// SendKeystrokes re-injects a command into an existing session, used by the
// supervisor's Restart operation.
func (a *Adapter) SendKeystrokes(ctx context.Context, name, text string) error {
	if err := a.exec.SendText(ctx, name, text); err != nil {
		return fmt.Errorf("send text to %q: %w", name, err)
	}
	return a.exec.SendKeys(ctx, name, "", false)
}

// Attach execs the multiplexer's attach command, inheriting stdio, and
// blocks until the user detaches or the session ends.
func (a *Adapter) Attach(ctx context.Context, name string) error {
	return a.exec.Attach(ctx, name)
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

func stripEscapes(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// filterNoise drops permission-dialog/security-disclaimer lines and
// box-drawing-only lines from captured pane text, matching against an
// escape-stripped view of each line but returning the original (still
// escaped) line when it is kept.
func filterNoise(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		plain := stripEscapes(line)
		if isBoxDrawingLine(strings.TrimSpace(plain)) {
			continue
		}
		noisy := false
		for _, substr := range noiseSubstrings {
			if strings.Contains(plain, substr) {
				noisy = true
				break
			}
		}
		if noisy {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// HasStatusBar reports whether text (typically already-captured pane
// content) contains at least two of the agent CLI's status-bar markers.
// A single match is common in plain shells (e.g. a stray "Session: " in a
// prompt) and is not sufficient; requiring two tolerates minor UI changes in
// the agent while avoiding false positives.
func HasStatusBar(text string) bool {
	plain := stripEscapes(text)
	markers := []string{"Model: ", "Cost: $", "Session: ", "Ctx: "}
	count := 0
	for _, m := range markers {
		if strings.Contains(plain, m) {
			count++
		}
	}
	return count >= 2
}
