// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyEvent(eventType, scope string, at time.Time) Event {
	return Event{
		ID:        fmt.Sprintf("%s-%d", eventType, at.UnixNano()),
		Type:      eventType,
		Scope:     scope,
		Timestamp: at,
	}
}

func TestEventHistory_RingEvictsOldestAtCapacity(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 3, MaxAge: time.Hour})
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Add(historyEvent(EventSessionCreated, fmt.Sprintf("ws-%d", i), now.Add(time.Duration(i)*time.Second))))
	}

	got, err := h.Query(EventFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ws-2", got[0].Scope)
	assert.Equal(t, "ws-4", got[2].Scope)
}

func TestEventHistory_QueryReturnsChronologicalOrder(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 10, MaxAge: time.Hour})
	now := time.Now()

	h.Add(historyEvent(EventSessionCreated, "demo", now.Add(-3*time.Minute)))
	h.Add(historyEvent(EventWorktreeCreated, "demo", now.Add(-2*time.Minute)))
	h.Add(historyEvent(EventSessionDeleted, "demo", now.Add(-time.Minute)))

	got, err := h.Query(EventFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, EventSessionCreated, got[0].Type)
	assert.Equal(t, EventWorktreeCreated, got[1].Type)
	assert.Equal(t, EventSessionDeleted, got[2].Type)
}

func TestEventHistory_QueryFiltersByTopicAndScope(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 10, MaxAge: time.Hour})
	now := time.Now()

	h.Add(historyEvent(EventSessionCreated, "demo", now))
	h.Add(historyEvent(EventSessionDeleted, "other", now))
	h.Add(historyEvent(EventWorktreePruned, "demo", now))

	got, err := h.Query(EventFilter{Types: []string{"session.*"}})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = h.Query(EventFilter{Scope: "demo"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = h.Query(EventFilter{Types: []string{"session.*"}, Scope: "demo"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, EventSessionCreated, got[0].Type)
}

func TestEventHistory_QueryFiltersByTimeWindow(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 10, MaxAge: time.Hour})
	now := time.Now()

	h.Add(historyEvent(EventSessionCreated, "demo", now.Add(-30*time.Minute)))
	h.Add(historyEvent(EventSessionRestarted, "demo", now.Add(-10*time.Minute)))
	h.Add(historyEvent(EventSessionDeleted, "demo", now.Add(-time.Minute)))

	got, err := h.Query(EventFilter{Since: now.Add(-15 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = h.Query(EventFilter{Until: now.Add(-15 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, EventSessionCreated, got[0].Type)
}

func TestEventHistory_QueryExpiresEventsPastMaxAge(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 10, MaxAge: 5 * time.Minute})
	now := time.Now()

	h.Add(historyEvent(EventSessionCreated, "demo", now.Add(-time.Hour)))
	h.Add(historyEvent(EventSessionDeleted, "demo", now))

	got, err := h.Query(EventFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, EventSessionDeleted, got[0].Type)
}

func TestEventHistory_QueryLimitKeepsNewest(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 10, MaxAge: time.Hour})
	now := time.Now()

	for i := 0; i < 6; i++ {
		h.Add(historyEvent(EventSessionCreated, fmt.Sprintf("ws-%d", i), now.Add(time.Duration(i)*time.Second)))
	}

	got, err := h.Query(EventFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ws-4", got[0].Scope)
	assert.Equal(t, "ws-5", got[1].Scope)
}

func TestEventHistory_CloseReleasesAndQuietsAdds(t *testing.T) {
	h := NewEventHistory(EventHistoryConfig{MaxEvents: 10, MaxAge: time.Hour})
	h.Add(historyEvent(EventSessionCreated, "demo", time.Now()))
	require.NoError(t, h.Close())

	require.NoError(t, h.Add(historyEvent(EventSessionDeleted, "demo", time.Now())))
	got, err := h.Query(EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
