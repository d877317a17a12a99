// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/wingedpig/agentsbox/internal/mux"
)

// cmdLogs captures and prints a session's pane content. Follow mode polls
// the pane every 500 ms and re-renders whenever the content changes.
func cmdLogs(args []string) error {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	follow := fs.Bool("follow", false, "poll the pane and re-render on change")
	lines := fs.Int("lines", 0, "limit output to the last N lines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: agentsbox logs <id-or-prefix> [--follow] [--lines N]")
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

	ctx := context.Background()
	opts := mux.CaptureOptions{IncludeEscapeSequences: true, FullScrollback: true}

	capture := func() (string, error) {
		text, err := env.mux.Capture(ctx, record.MuxName, opts)
		if err != nil {
			return "", fmt.Errorf("capture pane: %w", err)
		}
		if *lines > 0 {
			text = lastLines(text, *lines)
		}
		return text, nil
	}

	text, err := capture()
	if err != nil {
		return err
	}
	fmt.Println(text)

	if !*follow {
		return nil
	}

	last := text
	for {
		time.Sleep(500 * time.Millisecond)
		text, err := capture()
		if err != nil {
			return err
		}
		if text == last {
			continue
		}
		// Clear and re-render so the output tracks the pane rather than
		// appending duplicate snapshots.
		fmt.Print("\x1b[2J\x1b[H")
		fmt.Println(text)
		last = text
	}
}

func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
