// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSupervisor_ShouldRestartWithinBudget(t *testing.T) {
	s := NewProcessSupervisor("aux", []string{"true"}, "", nil, RestartPolicy{MaxRestarts: 3, Window: time.Minute})
	now := time.Now()

	ok, delay := s.ShouldRestart(now)
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, delay)

	ok, delay = s.ShouldRestart(now)
	require.True(t, ok)
	assert.Equal(t, time.Second, delay)
}

func TestProcessSupervisor_PoisonedAfterBudgetExhausted(t *testing.T) {
	s := NewProcessSupervisor("aux", []string{"true"}, "", nil, RestartPolicy{MaxRestarts: 2, Window: time.Minute})
	now := time.Now()

	ok, _ := s.ShouldRestart(now)
	require.True(t, ok)
	ok, _ = s.ShouldRestart(now)
	require.True(t, ok)

	ok, _ = s.ShouldRestart(now)
	assert.False(t, ok)
	assert.Equal(t, ProcPoisoned, s.State())
}

func TestProcessSupervisor_ResetClearsPoisonedState(t *testing.T) {
	s := NewProcessSupervisor("aux", []string{"true"}, "", nil, RestartPolicy{MaxRestarts: 1, Window: time.Minute})
	now := time.Now()

	ok, _ := s.ShouldRestart(now)
	require.True(t, ok)
	ok, _ = s.ShouldRestart(now)
	require.False(t, ok)
	require.Equal(t, ProcPoisoned, s.State())

	s.Reset()
	assert.Equal(t, ProcStopped, s.State())

	ok, _ = s.ShouldRestart(now)
	assert.True(t, ok)
}

func TestProcessSupervisor_OldRestartsOutsideWindowDoNotCountTowardBudget(t *testing.T) {
	s := NewProcessSupervisor("aux", []string{"true"}, "", nil, RestartPolicy{MaxRestarts: 1, Window: 10 * time.Millisecond})
	now := time.Now()

	ok, _ := s.ShouldRestart(now)
	require.True(t, ok)

	later := now.Add(time.Minute)
	ok, _ = s.ShouldRestart(later)
	assert.True(t, ok, "restart from outside the rolling window must not count against the budget")
}

func TestProcessSupervisor_BackoffCapsAtMaxDelay(t *testing.T) {
	s := NewProcessSupervisor("aux", []string{"true"}, "", nil, RestartPolicy{MaxRestarts: 10, Window: time.Minute, InitialDelay: time.Second, MaxDelay: 4 * time.Second})
	now := time.Now()

	var last time.Duration
	for i := 0; i < 6; i++ {
		ok, delay := s.ShouldRestart(now)
		require.True(t, ok)
		last = delay
	}
	assert.Equal(t, 4*time.Second, last)
}

func TestProcessSupervisor_InitiallyStopped(t *testing.T) {
	s := NewProcessSupervisor("aux", []string{"true"}, "", nil, RestartPolicy{})
	assert.Equal(t, ProcStopped, s.State())
	assert.Equal(t, 0, s.PID())
}

func TestProcessSupervisor_AliveRequiresRunningProcess(t *testing.T) {
	s := NewProcessSupervisor("aux", []string{"true"}, "", nil, RestartPolicy{})
	assert.False(t, s.Alive(), "a never-started supervisor has no live process")

	s.mu.Lock()
	s.state = ProcRunning
	s.pid = 1 << 30 // no such pid
	s.mu.Unlock()
	assert.False(t, s.Alive(), "a pid absent from the process table is not alive")
}
