// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package audit implements the append-only record of every user-initiated
// mutation: session create/delete, worktree create/remove/prune, config
// changes, and cleanup operations.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of auditable operations.
type Action string

const (
	ActionSessionCreated            Action = "SESSION_CREATED"
	ActionSessionDeleted            Action = "SESSION_DELETED"
	ActionSessionAttached           Action = "SESSION_ATTACHED"
	ActionSessionDetached           Action = "SESSION_DETACHED"
	ActionSessionRestarted          Action = "SESSION_RESTARTED"
	ActionWorktreeCreated           Action = "WORKTREE_CREATED"
	ActionWorktreeRemoved           Action = "WORKTREE_REMOVED"
	ActionWorktreePruned            Action = "WORKTREE_PRUNED"
	ActionOrphanedSessionsCleanedUp Action = "ORPHANED_SESSIONS_CLEANUP"
	ActionConfigSaved               Action = "CONFIG_SAVED"
	ActionProxyPoolRestarted        Action = "PROXY_POOL_RESTARTED"
)

// Result is the outcome of the audited operation.
type Result struct {
	Status string `json:"status"` // "success" | "failed" | "partial"
	Reason string `json:"reason,omitempty"`
}

// Success is the Result for a fully-succeeded operation.
func Success() Result { return Result{Status: "success"} }

// Failed is the Result for a fully-failed operation.
func Failed(reason string) Result { return Result{Status: "failed", Reason: reason} }

// Partial is the Result for an operation that succeeded for some steps.
func Partial(reason string) Result { return Result{Status: "partial", Reason: reason} }

// Trigger identifies what initiated the audited operation.
type Trigger string

const (
	TriggerUserKeypress Trigger = "user_keypress"
	TriggerUserCommand  Trigger = "user_command"
	TriggerAutomatic    Trigger = "automatic"
	TriggerStartup      Trigger = "startup"
	TriggerShutdown     Trigger = "shutdown"
)

// Entry is a single audit record, one per JSON line on disk.
type Entry struct {
	Timestamp   time.Time  `json:"timestamp"`
	Action      Action     `json:"action"`
	Result      Result     `json:"result"`
	SessionID   *uuid.UUID `json:"session_id,omitempty"`
	MuxName     string     `json:"mux_name,omitempty"`
	Path        string     `json:"path,omitempty"`
	Details     string     `json:"details,omitempty"`
	Trigger     Trigger    `json:"trigger"`
}

// Log is an append-only JSON-lines writer. Writes are serialized by mu and
// fsynced per record so a crash never loses or truncates a line.
type Log struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens (creating if necessary) the audit log at path for appending.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Log{file: f}, nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Write appends entry as one JSON line and fsyncs before returning.
func (l *Log) Write(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return l.file.Sync()
}

// fallback is a process-wide, idempotent lazy-initialized logger used by
// call sites (tests, short-lived CLI subcommands) that never explicitly
// constructed a Log. Unlike the original's bare global mutable singleton,
// this is only a fallback path: the normal path is an explicit *Log built
// once in main and passed down.
var (
	fallbackOnce sync.Once
	fallback     *Log
	fallbackErr  error
)

// Fallback returns the lazily-initialized process-wide Log rooted at path,
// constructing it at most once regardless of how many callers race to
// request it.
func Fallback(path string) (*Log, error) {
	fallbackOnce.Do(func() {
		fallback, fallbackErr = Open(path)
	})
	return fallback, fallbackErr
}
