// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process pub/sub bus the interactive
// overview and the session supervisor use to decouple state changes from
// rendering: lifecycle operations publish, the UI and reconciliation
// subscribe.
package events

import (
	"context"
	"strings"
	"time"
)

// Event represents an immutable event record.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Scope     string                 `json:"scope"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types []string  // Event types to match (supports topic wildcards)
	Scope string    // Filter by scope (workspace or worktree name)
	Since time.Time // Events after this time
	Until time.Time // Events before this time
	Limit int       // Maximum events to return
}

// EventBus is the core event pub/sub system.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter EventFilter) ([]Event, error)

	// Close shuts down the event bus gracefully.
	Close() error
}

// matchTopic reports whether eventType matches pattern. Event types are
// dot-separated topics ("session.created", "proxy.breaker_opened");
// patterns are topics where any segment may be "*":
//
//	"session.*" matches "session.created" and "session.deleted"
//	"*.removed" matches "worktree.removed" but not "worktree.pruned"
//	"*" alone matches every event type
//
// A pattern with fewer or more segments than the event type never
// matches, except for the bare "*".
func matchTopic(pattern, eventType string) bool {
	if pattern == "" || eventType == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	p := strings.Split(pattern, ".")
	t := strings.Split(eventType, ".")
	if len(p) != len(t) {
		return false
	}
	for i := range p {
		if p[i] != "*" && p[i] != t[i] {
			return false
		}
	}
	return true
}

// matchAnyTopic reports whether eventType matches at least one pattern.
// An empty pattern list matches everything (no type restriction).
func matchAnyTopic(patterns []string, eventType string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if matchTopic(p, eventType) {
			return true
		}
	}
	return false
}

// Common event types
const (
	// Session lifecycle events
	EventSessionCreated       = "session.created"
	EventSessionDeleted       = "session.deleted"
	EventSessionRestarted     = "session.restarted"
	EventSessionHealthChanged = "session.health_changed"
	EventSessionAttached      = "session.attached"
	EventSessionDetached      = "session.detached"

	// Worktree events
	EventWorktreeCreated = "worktree.created"
	EventWorktreeRemoved = "worktree.removed"
	EventWorktreePruned  = "worktree.pruned"

	// Proxy-pool events
	EventProxyStarted       = "proxy.started"
	EventProxyStopped       = "proxy.stopped"
	EventProxyCrashed       = "proxy.crashed"
	EventProxyBreakerOpened = "proxy.breaker_opened"
	EventProxyBreakerClosed = "proxy.breaker_closed"

	// Notification events (for AI assistants and external tools)
	EventNotifyDone    = "notify.done"    // Task completed
	EventNotifyBlocked = "notify.blocked" // Waiting for user input
	EventNotifyError   = "notify.error"   // Something failed
)
