// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/wingedpig/agentsbox/internal/events"
)

// Manager creates and tears down per-session git worktrees on dedicated
// branches, and reconciles stale state with the repository.
type Manager struct {
	mu   sync.Mutex
	git  GitExecutor
	bus  events.EventBus
	root string // directory under which new worktrees are created
}

// NewManager returns a worktree Manager. root is the directory new worktrees
// are created under (e.g. $HOME/.agents-in-a-box/worktrees).
func NewManager(git GitExecutor, bus events.EventBus, root string) *Manager {
	return &Manager{git: git, bus: bus, root: root}
}

var sanitizeRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, ".", "_")
	s = sanitizeRe.ReplaceAllString(s, "_")
	return s
}

// DirName derives the worktree directory name for a given repo, branch and
// session id, matching the scheme `<repo>--<branch>--<short-id>`.
func DirName(repoBasename, branch, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return sanitize(repoBasename) + "--" + sanitize(branch) + "--" + short
}

// Create materializes a new worktree at root/DirName(...) on a freshly
// created branch. Fails with ErrBranchInUse if the branch already exists,
// ErrWorktreeExists if the target directory is already present.
func (m *Manager) Create(ctx context.Context, repoDir, branch, dirName string) (WorktreeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(filepath.Join(repoDir, ".git")); err != nil {
		if !isRepo(ctx, m.git, repoDir) {
			return WorktreeInfo{}, ErrNotARepository
		}
	}

	if m.git.BranchExists(ctx, repoDir, branch) {
		return WorktreeInfo{}, ErrBranchInUse
	}

	path := filepath.Join(m.root, dirName)
	if _, err := os.Stat(path); err == nil {
		return WorktreeInfo{}, ErrWorktreeExists
	}

	if err := os.MkdirAll(m.root, 0755); err != nil {
		return WorktreeInfo{}, fmt.Errorf("create worktree root: %w", err)
	}

	if err := m.git.AddWorktree(ctx, repoDir, branch, path); err != nil {
		return WorktreeInfo{}, err
	}

	info := WorktreeInfo{Path: path, Branch: branch}
	if m.bus != nil {
		m.bus.Publish(ctx, events.Event{
			Type:     "worktree.created",
			Scope: dirName,
			Payload: map[string]interface{}{
				"name":   dirName,
				"path":   path,
				"branch": branch,
			},
		})
	}
	return info, nil
}

// isRepo is a cheap fallback check for repoDir being inside a git work tree
// when the .git directory itself is absent (e.g. repoDir is already a
// linked worktree, whose .git is a file, not a directory).
func isRepo(ctx context.Context, git GitExecutor, repoDir string) bool {
	_, err := git.BranchInfo(ctx, repoDir)
	return err == nil
}

// Remove removes the worktree at path. If force is false and the worktree
// has uncommitted changes, fails with ErrDirtyWorktree.
func (m *Manager) Remove(ctx context.Context, repoDir, path string, force, deleteBranch bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !force {
		status, err := m.git.Status(ctx, path)
		if err == nil && status.HasChanges() {
			return ErrDirtyWorktree
		}
	}

	branch := ""
	if info, err := m.git.BranchInfo(ctx, path); err == nil {
		branch = info.Name
	}

	if err := m.git.RemoveWorktree(ctx, repoDir, path, force); err != nil {
		return err
	}
	// Best-effort: a forced removal can leave the directory behind if git
	// considered it already gone from its administrative state.
	_ = os.RemoveAll(path)

	if deleteBranch && branch != "" {
		if err := m.git.DeleteBranch(ctx, repoDir, branch); err != nil {
			// Non-fatal: the worktree is gone, a lingering branch is cheap
			// to clean up later and shouldn't fail the whole operation.
			if m.bus != nil {
				m.bus.Publish(ctx, events.Event{
					Type:     "worktree.branch_delete_failed",
					Scope: filepath.Base(path),
					Payload:  map[string]interface{}{"branch": branch, "error": err.Error()},
				})
			}
		}
	}

	if m.bus != nil {
		m.bus.Publish(ctx, events.Event{
			Type:     "worktree.removed",
			Scope: filepath.Base(path),
			Payload:  map[string]interface{}{"path": path, "branch": branch},
		})
	}
	return nil
}

// List returns all worktrees git knows about for repoDir, with dirty status
// populated.
func (m *Manager) List(ctx context.Context, repoDir string) ([]WorktreeInfo, error) {
	worktrees, err := m.git.WorktreeList(ctx, repoDir)
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	for i := range worktrees {
		if worktrees[i].IsBare {
			continue
		}
		status, err := m.git.Status(ctx, worktrees[i].Path)
		if err == nil {
			worktrees[i].Dirty = status.HasChanges()
		}
	}
	return worktrees, nil
}

// PruneStale removes worktree directories under root that git no longer
// lists, or that are listed but whose path no longer exists, and reconciles
// git's own administrative state (`git worktree prune`). known is the set of
// worktree paths currently referenced by live session records; entries in
// known are never pruned even if briefly absent from git's list.
func (m *Manager) PruneStale(ctx context.Context, repoDir string, known map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.git.PruneWorktrees(ctx, repoDir); err != nil {
		return err
	}

	worktrees, err := m.git.WorktreeList(ctx, repoDir)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}
	live := make(map[string]bool, len(worktrees))
	for _, wt := range worktrees {
		live[wt.Path] = true
	}

	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read worktree root: %w", err)
	}
	for _, entry := range entries {
		path := filepath.Join(m.root, entry.Name())
		if known[path] || live[path] {
			continue
		}
		_ = os.RemoveAll(path)
		if m.bus != nil {
			m.bus.Publish(ctx, events.Event{
				Type:     "worktree.pruned",
				Scope: entry.Name(),
				Payload:  map[string]interface{}{"path": path},
			})
		}
	}
	return nil
}
