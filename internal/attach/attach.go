// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package attach briefly surrenders the terminal to the external
// multiplexer binary so a user can interact with a session's agent pane
// directly, then restores the overview UI's terminal state.
package attach

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/wingedpig/agentsbox/internal/mux"
)

const (
	enterAltScreen = "\x1b[?1049h"
	leaveAltScreen = "\x1b[?1049l"
	showCursor     = "\x1b[?25h"
	hideCursor     = "\x1b[?25l"
	clearScreen    = "\x1b[2J\x1b[H"
)

// Controller performs the suspend/exec/resume dance around a multiplexer
// attach. Its precondition is the caller's overview UI already holds the
// terminal in alternate-screen + raw mode with the cursor hidden;
// cookedState is the terminal's state from before the overview UI put it
// in raw mode (the state term.MakeRaw returned at startup), so Attach can
// restore it exactly around the exec.
type Controller struct {
	mux         *mux.Adapter
	out         io.Writer
	fd          int
	cookedState *term.State
}

// New returns a Controller driving a.Attach for the process's controlling
// terminal (os.Stdout's file descriptor). cookedState is the terminal
// state captured before the overview UI entered raw mode; pass nil when
// stdout is not a real terminal (tests, piped output).
func New(a *mux.Adapter, cookedState *term.State) *Controller {
	return &Controller{mux: a, out: os.Stdout, fd: int(os.Stdout.Fd()), cookedState: cookedState}
}

// Attach suspends the overview UI's terminal state, execs the
// multiplexer's attach command inheriting stdio, waits for it to return,
// and always resumes the overview UI's terminal state afterward — even if
// the attach itself failed.
func (c *Controller) Attach(ctx context.Context, muxName string) error {
	if err := c.suspend(); err != nil {
		return fmt.Errorf("suspend terminal: %w", err)
	}

	attachErr := c.mux.Attach(ctx, muxName)

	if resumeErr := c.resume(); resumeErr != nil && attachErr == nil {
		return fmt.Errorf("resume terminal: %w", resumeErr)
	}
	return attachErr
}

// suspend leaves alternate-screen mode, disables raw mode, and shows the
// cursor, returning control of the terminal to a normal shell-like state.
func (c *Controller) suspend() error {
	if c.cookedState != nil && term.IsTerminal(c.fd) {
		if err := term.Restore(c.fd, c.cookedState); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(c.out, leaveAltScreen+showCursor)
	return err
}

// resume re-enters alternate-screen mode, re-enables raw mode, hides the
// cursor, and clears the screen.
func (c *Controller) resume() error {
	if _, err := fmt.Fprint(c.out, enterAltScreen); err != nil {
		return err
	}
	if term.IsTerminal(c.fd) {
		if _, err := term.MakeRaw(c.fd); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(c.out, hideCursor+clearScreen)
	return err
}
