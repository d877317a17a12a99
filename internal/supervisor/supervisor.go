// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package supervisor composes the multiplexer adapter, worktree manager,
// and session store into the user-visible session lifecycle: create,
// delete, restart, and health detection.
package supervisor

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wingedpig/agentsbox/internal/audit"
	"github.com/wingedpig/agentsbox/internal/events"
	"github.com/wingedpig/agentsbox/internal/mux"
	"github.com/wingedpig/agentsbox/internal/session"
	"github.com/wingedpig/agentsbox/internal/worktree"
)

// Health is the derived, unpersisted liveness state of a session.
type Health string

const (
	HealthRunning Health = "running"
	HealthIdle    Health = "idle"
	HealthStopped Health = "stopped"
)

// Spec describes a session creation request.
type Spec struct {
	RepoDir       string
	Branch        string
	WorkspaceName string
	AgentCommand  []string // the single external command run inside the mux pane
	Agent         string
	Model         string
	Cols, Rows    int
}

// ErrNotIdle is returned by Restart when the session's current health is
// not (mux exists, agent not active).
type ErrNotIdle struct{ Health Health }

func (e *ErrNotIdle) Error() string {
	return fmt.Sprintf("session is not idle (health=%s)", e.Health)
}

// ErrDirty is returned by Delete when force is false and the worktree has
// uncommitted changes.
type ErrDirty struct{ Path string }

func (e *ErrDirty) Error() string {
	return fmt.Sprintf("worktree %s has uncommitted changes", e.Path)
}

// Supervisor composes the multiplexer adapter (A), worktree manager (B),
// and session store (C) into Create/Delete/Restart/Health operations.
type Supervisor struct {
	mux   *mux.Adapter
	wt    *worktree.Manager
	store *session.Store
	bus   events.EventBus
	log   *audit.Log

	muxPrefix string
}

// New returns a Supervisor. bus and log may be nil; a nil bus disables
// event publication and a nil log disables audit writes.
func New(muxAdapter *mux.Adapter, wt *worktree.Manager, store *session.Store, bus events.EventBus, log *audit.Log, muxPrefix string) *Supervisor {
	if muxPrefix == "" {
		muxPrefix = "agentsbox_"
	}
	return &Supervisor{mux: muxAdapter, wt: wt, store: store, bus: bus, log: log, muxPrefix: muxPrefix}
}

var nameSanitizeRe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func sanitizeMuxName(s string) string {
	return nameSanitizeRe.ReplaceAllString(s, "_")
}

func shortID(id uuid.UUID) string {
	s := strings.ReplaceAll(id.String(), "-", "")
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Create materializes a new worktree, starts the agent inside a fresh
// multiplexer session, and registers the session record. If the mux
// session cannot be created, it rolls back in reverse order: kill the
// (possibly half-created) mux session, then remove the worktree. If the
// registry write fails, the mux session and worktree are left in place.
func (s *Supervisor) Create(ctx context.Context, spec Spec) (session.Record, error) {
	id := uuid.New()
	dirName := worktree.DirName(filepath.Base(spec.RepoDir), spec.Branch, id.String())
	muxName := s.muxPrefix + sanitizeMuxName(spec.WorkspaceName+"_"+shortID(id))

	wtInfo, err := s.wt.Create(ctx, spec.RepoDir, spec.Branch, dirName)
	if err != nil {
		return session.Record{}, fmt.Errorf("create worktree: %w", err)
	}

	if err := s.mux.Create(ctx, muxName, wtInfo.Path, spec.AgentCommand, spec.Cols, spec.Rows); err != nil {
		// Rollback in reverse order: kill the possibly half-created mux
		// session (not one that already existed under this name), then
		// tear down the worktree.
		if _, exists := err.(*mux.ErrAlreadyExists); !exists {
			_ = s.mux.Kill(ctx, muxName)
		}
		_ = s.wt.Remove(ctx, spec.RepoDir, wtInfo.Path, true, true)
		s.audit(audit.ActionSessionCreated, audit.Failed(err.Error()), id, muxName, wtInfo.Path)
		return session.Record{}, fmt.Errorf("create mux session: %w", err)
	}

	record := session.Record{
		ID:            id,
		WorkspaceName: spec.WorkspaceName,
		WorkspacePath: wtInfo.Path,
		RepoPath:      spec.RepoDir,
		MuxName:       muxName,
		Branch:        spec.Branch,
		CreatedAt:     time.Now().UTC(),
		Agent:         spec.Agent,
		Model:         spec.Model,
	}

	if err := s.store.Upsert(record); err != nil {
		// A/B side-effects are not rolled back here: the mux session and
		// worktree exist and are usable even though the registry write
		// failed. A later orphan-cleanup pass reconciles the store.
		s.audit(audit.ActionSessionCreated, audit.Partial(err.Error()), id, muxName, wtInfo.Path)
		return record, fmt.Errorf("persist session record: %w", err)
	}

	s.audit(audit.ActionSessionCreated, audit.Success(), id, muxName, wtInfo.Path)
	s.publish(ctx, events.EventSessionCreated, record)
	return record, nil
}

// Delete finds the session matching idOrPrefix and tears it down: kill the
// multiplexer session, remove the worktree (honoring force), then remove
// the registry record. The multiplexer is killed first so nothing holds a
// lock on the worktree files; the registry record is removed last so a
// mid-way crash leaves it pointing at state orphan cleanup can reconcile.
func (s *Supervisor) Delete(ctx context.Context, idOrPrefix string, force bool) error {
	record, err := s.store.Find(idOrPrefix)
	if err != nil {
		return err
	}

	// mux.Kill is already idempotent for a missing session; any error here
	// is a real subprocess failure, but deletion still proceeds best-effort.
	if err := s.mux.Kill(ctx, record.MuxName); err != nil {
		s.audit(audit.ActionSessionDeleted, audit.Partial("kill mux: "+err.Error()), record.ID, record.MuxName, record.WorkspacePath)
	}

	if err := s.wt.Remove(ctx, record.RepoPath, record.WorkspacePath, force, true); err != nil {
		if err == worktree.ErrDirtyWorktree {
			s.audit(audit.ActionSessionDeleted, audit.Failed("dirty worktree"), record.ID, record.MuxName, record.WorkspacePath)
			return &ErrDirty{Path: record.WorkspacePath}
		}
		s.audit(audit.ActionSessionDeleted, audit.Partial("remove worktree: "+err.Error()), record.ID, record.MuxName, record.WorkspacePath)
	}

	if err := s.store.Remove(record.MuxName); err != nil {
		s.audit(audit.ActionSessionDeleted, audit.Partial("remove record: "+err.Error()), record.ID, record.MuxName, record.WorkspacePath)
		return fmt.Errorf("remove session record: %w", err)
	}

	s.audit(audit.ActionSessionDeleted, audit.Success(), record.ID, record.MuxName, record.WorkspacePath)
	s.publish(ctx, events.EventSessionDeleted, record)
	return nil
}

// Restart reinjects the agent command into an existing, idle session.
// Rejects with ErrNotIdle unless the mux session exists and the agent is
// not currently active.
func (s *Supervisor) Restart(ctx context.Context, idOrPrefix string, agentCommand []string) error {
	record, err := s.store.Find(idOrPrefix)
	if err != nil {
		return err
	}

	health, err := s.Health(ctx, record)
	if err != nil {
		return err
	}
	if health != HealthIdle {
		return &ErrNotIdle{Health: health}
	}

	if err := s.mux.SendKeystrokes(ctx, record.MuxName, strings.Join(agentCommand, " ")); err != nil {
		s.audit(audit.ActionSessionRestarted, audit.Failed(err.Error()), record.ID, record.MuxName, record.WorkspacePath)
		return fmt.Errorf("restart session: %w", err)
	}

	s.audit(audit.ActionSessionRestarted, audit.Success(), record.ID, record.MuxName, record.WorkspacePath)
	s.publish(ctx, events.EventSessionRestarted, record)
	return nil
}

// Health reports a session's derived liveness: Stopped iff the mux session
// no longer exists; otherwise Running iff the pane's visible content
// matches the agent's status-bar signature, else Idle.
func (s *Supervisor) Health(ctx context.Context, record session.Record) (Health, error) {
	if !s.mux.Exists(ctx, record.MuxName) {
		return HealthStopped, nil
	}
	text, err := s.mux.Capture(ctx, record.MuxName, mux.CaptureOptions{})
	if err != nil {
		return "", fmt.Errorf("capture pane for health check: %w", err)
	}
	if mux.HasStatusBar(text) {
		return HealthRunning, nil
	}
	return HealthIdle, nil
}

// CleanupOrphans kills multiplexer sessions under this supervisor's
// namespace that have no corresponding registry record, and returns the
// names killed.
func (s *Supervisor) CleanupOrphans(ctx context.Context) ([]string, error) {
	muxNames, err := s.mux.ListPrefixed(ctx, s.muxPrefix)
	if err != nil {
		return nil, fmt.Errorf("list mux sessions: %w", err)
	}
	records, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session store: %w", err)
	}
	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[r.MuxName] = true
	}

	var killed []string
	for _, name := range muxNames {
		if known[name] {
			continue
		}
		if err := s.mux.Kill(ctx, name); err != nil {
			continue
		}
		killed = append(killed, name)
	}
	if len(killed) > 0 {
		s.audit(audit.ActionOrphanedSessionsCleanedUp, audit.Success(), uuid.Nil, strings.Join(killed, ","), "")
	}
	return killed, nil
}

func (s *Supervisor) audit(action audit.Action, result audit.Result, id uuid.UUID, muxName, path string) {
	if s.log == nil {
		return
	}
	var sid *uuid.UUID
	if id != uuid.Nil {
		sid = &id
	}
	_ = s.log.Write(audit.Entry{
		Action:    action,
		Result:    result,
		SessionID: sid,
		MuxName:   muxName,
		Path:      path,
		Trigger:   audit.TriggerUserCommand,
	})
}

func (s *Supervisor) publish(ctx context.Context, eventType string, record session.Record) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, events.Event{
		Type:     eventType,
		Scope: record.WorkspaceName,
		Payload: map[string]interface{}{
			"session_id": record.ID.String(),
			"mux_name":   record.MuxName,
			"workspace":  record.WorkspaceName,
		},
	})
}

