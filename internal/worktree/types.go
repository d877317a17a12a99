// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"path/filepath"
)

// WorktreeInfo describes a single git worktree as reported by git itself.
type WorktreeInfo struct {
	Path     string
	Commit   string // HEAD commit SHA
	Branch   string
	Detached bool
	IsBare   bool
	Dirty    bool // Whether the working tree has uncommitted changes
}

// Name returns the directory name of the worktree.
func (w *WorktreeInfo) Name() string {
	return filepath.Base(w.Path)
}

// GitStatus represents the status of a git working directory.
type GitStatus struct {
	Clean     bool
	Modified  []string
	Added     []string
	Deleted   []string
	Renamed   []string
	Untracked []string
}

// HasChanges returns true if there are any changes in the working directory.
func (s *GitStatus) HasChanges() bool {
	if s.Clean {
		return false
	}
	return len(s.Modified) > 0 || len(s.Added) > 0 ||
		len(s.Deleted) > 0 || len(s.Renamed) > 0 ||
		len(s.Untracked) > 0
}

// BranchInfo contains information about the current branch of a worktree.
type BranchInfo struct {
	Name     string
	Detached bool
	Commit   string
}

// GitExecutor is the interface for the git operations the manager needs.
type GitExecutor interface {
	WorktreeList(ctx context.Context, dir string) ([]WorktreeInfo, error)
	Status(ctx context.Context, path string) (GitStatus, error)
	BranchInfo(ctx context.Context, path string) (BranchInfo, error)
	AddWorktree(ctx context.Context, repoDir, branch, path string) error
	RemoveWorktree(ctx context.Context, repoDir, path string, force bool) error
	DeleteBranch(ctx context.Context, repoDir, branch string) error
	BranchExists(ctx context.Context, repoDir, branch string) bool
	PruneWorktrees(ctx context.Context, repoDir string) error
}

// Failure kinds returned by Manager operations. These are sentinel error
// values so callers can switch on them with errors.Is.
var (
	// ErrNotARepository is returned when repoDir is not inside a git work tree.
	ErrNotARepository = failure("not a git repository")
	// ErrBranchInUse is returned by Create when the requested branch already
	// exists in the repository.
	ErrBranchInUse = failure("branch already in use by another worktree")
	// ErrDirtyWorktree is returned by Remove when force is false and the
	// worktree has uncommitted changes.
	ErrDirtyWorktree = failure("worktree has uncommitted changes")
	// ErrWorktreeExists is returned by Create when the target directory
	// already exists.
	ErrWorktreeExists = failure("worktree directory already exists")
)

type failure string

func (f failure) Error() string { return string(f) }
