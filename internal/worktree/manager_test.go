// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGit struct {
	worktrees     []WorktreeInfo
	status        map[string]GitStatus
	branches      map[string]bool
	branchInfo    map[string]BranchInfo
	addErr        error
	removeErr     error
	added         []string
	removed       []string
	branchDeleted []string
	pruned        bool
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		status:     make(map[string]GitStatus),
		branches:   make(map[string]bool),
		branchInfo: make(map[string]BranchInfo),
	}
}

func (f *fakeGit) WorktreeList(ctx context.Context, dir string) ([]WorktreeInfo, error) {
	return f.worktrees, nil
}

func (f *fakeGit) Status(ctx context.Context, path string) (GitStatus, error) {
	return f.status[path], nil
}

func (f *fakeGit) BranchInfo(ctx context.Context, path string) (BranchInfo, error) {
	info, ok := f.branchInfo[path]
	if !ok {
		return BranchInfo{}, assertErr("no branch info")
	}
	return info, nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func (f *fakeGit) AddWorktree(ctx context.Context, repoDir, branch, path string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, path)
	f.branches[branch] = true
	f.worktrees = append(f.worktrees, WorktreeInfo{Path: path, Branch: branch})
	return nil
}

func (f *fakeGit) RemoveWorktree(ctx context.Context, repoDir, path string, force bool) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeGit) DeleteBranch(ctx context.Context, repoDir, branch string) error {
	f.branchDeleted = append(f.branchDeleted, branch)
	delete(f.branches, branch)
	return nil
}

func (f *fakeGit) BranchExists(ctx context.Context, repoDir, branch string) bool {
	return f.branches[branch]
}

func (f *fakeGit) PruneWorktrees(ctx context.Context, repoDir string) error {
	f.pruned = true
	return nil
}

func TestManager_Create_BranchInUse(t *testing.T) {
	git := newFakeGit()
	git.branches["feature/x"] = true
	git.branchInfo["/tmp/repo"] = BranchInfo{Name: "main"}
	m := NewManager(git, nil, t.TempDir())

	_, err := m.Create(context.Background(), "/tmp/repo", "feature/x", "demo--feature-x--abcd1234")
	require.ErrorIs(t, err, ErrBranchInUse)
}

func TestManager_Create_Success(t *testing.T) {
	git := newFakeGit()
	git.branchInfo["/tmp/repo"] = BranchInfo{Name: "main"}
	root := t.TempDir()
	m := NewManager(git, nil, root)

	info, err := m.Create(context.Background(), "/tmp/repo", "feature/x", "demo--feature-x--abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "feature/x", info.Branch)
	assert.Len(t, git.added, 1)
}

func TestManager_Remove_DirtyRefusesWithoutForce(t *testing.T) {
	git := newFakeGit()
	git.status["/tmp/wt"] = GitStatus{Modified: []string{"a.go"}}
	git.branchInfo["/tmp/wt"] = BranchInfo{Name: "feature/x"}
	m := NewManager(git, nil, t.TempDir())

	err := m.Remove(context.Background(), "/tmp/repo", "/tmp/wt", false, false)
	require.ErrorIs(t, err, ErrDirtyWorktree)
	assert.Empty(t, git.removed)
}

func TestManager_Remove_ForceRemovesAndDeletesBranch(t *testing.T) {
	git := newFakeGit()
	git.status["/tmp/wt"] = GitStatus{Modified: []string{"a.go"}}
	git.branchInfo["/tmp/wt"] = BranchInfo{Name: "feature/x"}
	m := NewManager(git, nil, t.TempDir())

	err := m.Remove(context.Background(), "/tmp/repo", "/tmp/wt", true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/wt"}, git.removed)
	assert.Equal(t, []string{"feature/x"}, git.branchDeleted)
}

func TestManager_DirName_Sanitizes(t *testing.T) {
	name := DirName("my.repo", "feature/auth-fix", "12345678-aaaa-bbbb-cccc-000000000000")
	assert.Equal(t, "my_repo--feature-auth-fix--12345678", name)
}

func TestManager_PruneStale_KeepsKnownPaths(t *testing.T) {
	git := newFakeGit()
	root := t.TempDir()
	m := NewManager(git, nil, root)
	known := filepath.Join(root, "demo--feature-x--abcd1234")
	stale := filepath.Join(root, "demo--old--deadbeef")
	require.NoError(t, os.Mkdir(known, 0755))
	require.NoError(t, os.Mkdir(stale, 0755))

	require.NoError(t, m.PruneStale(context.Background(), "/tmp/repo", map[string]bool{known: true}))
	assert.True(t, git.pruned)
	assert.DirExists(t, known)
	assert.NoDirExists(t, stale)
}
