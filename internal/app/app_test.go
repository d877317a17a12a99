// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/agentsbox/internal/session"
	"github.com/wingedpig/agentsbox/internal/supervisor"
)

func TestReadKeys_DecodesLettersControlsAndArrows(t *testing.T) {
	out := make(chan key, 16)
	go readKeys(strings.NewReader("jq\r\x03\x1b[A\x1b[B"), out)

	var got []key
	for k := range out {
		got = append(got, k)
	}

	require.Len(t, got, 6)
	assert.Equal(t, byte('j'), got[0].rune)
	assert.Equal(t, byte('q'), got[1].rune)
	assert.Equal(t, keyEnter, got[2].special)
	assert.Equal(t, byte('c'), got[3].ctrl)
	assert.Equal(t, keyUp, got[4].special)
	assert.Equal(t, keyDown, got[5].special)
}

func TestReadKeys_SwallowsUnboundCSISequences(t *testing.T) {
	out := make(chan key, 16)
	// Right-arrow and a parameterized sequence must not surface as keys.
	go readKeys(strings.NewReader("\x1b[C\x1b[1;5Dx"), out)

	var got []key
	for k := range out {
		got = append(got, k)
	}

	require.Len(t, got, 1)
	assert.Equal(t, byte('x'), got[0].rune)
}

func TestRenderRows_EmptyAndSelection(t *testing.T) {
	rows := renderRows(nil, 0, 80)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "no sessions")

	views := []sessionView{
		{record: session.Record{ID: uuid.New(), WorkspaceName: "demo", MuxName: "tmux_demo_1", CreatedAt: time.Now()}, health: supervisor.HealthRunning},
		{record: session.Record{ID: uuid.New(), WorkspaceName: "other", MuxName: "tmux_other_1", CreatedAt: time.Now()}, health: supervisor.HealthStopped},
	}
	rows = renderRows(views, 1, 120)
	require.Len(t, rows, 2)
	assert.NotContains(t, rows[0], "\x1b[7m")
	assert.Contains(t, rows[1], "\x1b[7m")
	assert.Contains(t, rows[0], "running")
	assert.Contains(t, rows[1], "stopped")
}

func TestRenderRows_ClipsLongWorkspaceNames(t *testing.T) {
	views := []sessionView{
		{record: session.Record{ID: uuid.New(), WorkspaceName: strings.Repeat("w", 40), MuxName: "tmux_x", CreatedAt: time.Now()}, health: supervisor.HealthIdle},
	}
	rows := renderRows(views, 0, 120)
	assert.Contains(t, rows[0], "…")
	assert.NotContains(t, rows[0], strings.Repeat("w", 21))
}
