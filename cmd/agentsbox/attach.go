// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/wingedpig/agentsbox/internal/session"
)

// cmdAttach resolves the session and replaces this process with the
// multiplexer's attach command. On success it does not return.
func cmdAttach(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: agentsbox attach <id-or-prefix>")
	}

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	record, err := env.store.Find(args[0])
	if err != nil {
		return describeLookupFailure(err)
	}

	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		return fmt.Errorf("tmux not found in PATH: %w", err)
	}

	env.Close()
	return syscall.Exec(tmuxPath, []string{"tmux", "attach-session", "-t", record.MuxName}, os.Environ())
}

// describeLookupFailure turns the store's NotFound/Ambiguous errors into a
// message that includes the catalogue of candidate sessions.
func describeLookupFailure(err error) error {
	var nf *session.ErrNotFound
	if errors.As(err, &nf) {
		if len(nf.Candidates) == 0 {
			return fmt.Errorf("no session matches %q (no sessions exist)", nf.Query)
		}
		return fmt.Errorf("no session matches %q; known sessions:\n%s", nf.Query, catalogue(nf.Candidates))
	}
	var amb *session.ErrAmbiguous
	if errors.As(err, &amb) {
		return fmt.Errorf("%q is ambiguous; matching sessions:\n%s", amb.Query, catalogue(amb.Candidates))
	}
	return err
}

func catalogue(records []session.Record) string {
	out := ""
	for _, r := range records {
		out += fmt.Sprintf("  %s  %s  (%s)\n", shortDisplay(r.ID.String()), r.WorkspaceName, r.MuxName)
	}
	return out
}
