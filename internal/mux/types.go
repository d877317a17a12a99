// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package mux adapts an external terminal-multiplexer binary (tmux) to the
// narrow contract the session supervisor needs: create, kill, exists, capture,
// list. No long-lived in-process state is kept here; every call shells out.
package mux

import "context"

// Executor is the subprocess-level contract for driving a terminal
// multiplexer. RealExecutor implements it against the real tmux binary;
// tests substitute a fake.
type Executor interface {
	HasSession(ctx context.Context, name string) bool
	NewSession(ctx context.Context, name, workdir string, cols, rows int) error
	KillSession(ctx context.Context, name string) error
	ListSessions(ctx context.Context) ([]string, error)
	CapturePane(ctx context.Context, name string, opts CaptureOptions) ([]byte, error)
	SendKeys(ctx context.Context, name, keys string, literal bool) error
	SendText(ctx context.Context, name, text string) error
	SetOption(ctx context.Context, name, option, value string) error
	Attach(ctx context.Context, name string) error
}

// CaptureOptions controls how pane content is captured.
type CaptureOptions struct {
	// FullScrollback captures the entire history buffer instead of just the
	// visible pane.
	FullScrollback bool
	// IncludeEscapeSequences preserves ANSI escapes in the result (tmux
	// capture-pane -e, passed only when this is set) so a downstream
	// renderer can color it.
	IncludeEscapeSequences bool
	// JoinWrappedLines requests tmux -J behavior.
	JoinWrappedLines bool
	// StartLine/EndLine optionally bound the capture (inclusive); zero
	// values mean "unbounded" on that side.
	StartLine, EndLine int
}

// SessionHandle names a live multiplexer session.
type SessionHandle struct {
	Name string
}

// noiseSubstrings is the fixed catalogue of agent-UI substrings whose lines
// Capture strips before returning pane text to a caller building a preview
// (box-drawing-only lines are dropped separately by filterNoise).
// Matching is done against the escape-stripped text; the returned bytes
// still carry the original escapes.
var noiseSubstrings = []string{
	"Do you want to proceed?",
	"Yes, and don't ask again",
	"No, and tell Claude what to do differently",
	"Press Enter to continue",
	"claude.ai/settings",
}

func isBoxDrawingLine(line string) bool {
	if line == "" {
		return false
	}
	for _, r := range line {
		switch {
		case r == ' ':
		case r >= 0x2500 && r <= 0x257F: // box drawing block
		default:
			return false
		}
	}
	return true
}
