// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/agentsbox/internal/mux"
	"github.com/wingedpig/agentsbox/internal/session"
	"github.com/wingedpig/agentsbox/internal/worktree"
)

type fakeExecutor struct {
	sessions   map[string]bool
	captureOut []byte
	sentText   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{sessions: make(map[string]bool)}
}

func (f *fakeExecutor) HasSession(ctx context.Context, name string) bool { return f.sessions[name] }
func (f *fakeExecutor) ListSessions(ctx context.Context) ([]string, error) {
	var out []string
	for name := range f.sessions {
		out = append(out, name)
	}
	return out, nil
}
func (f *fakeExecutor) NewSession(ctx context.Context, name, workdir string, cols, rows int) error {
	f.sessions[name] = true
	return nil
}
func (f *fakeExecutor) KillSession(ctx context.Context, name string) error {
	delete(f.sessions, name)
	return nil
}
func (f *fakeExecutor) CapturePane(ctx context.Context, name string, opts mux.CaptureOptions) ([]byte, error) {
	return f.captureOut, nil
}
func (f *fakeExecutor) SendKeys(ctx context.Context, name, keys string, literal bool) error {
	return nil
}
func (f *fakeExecutor) SendText(ctx context.Context, name, text string) error {
	f.sentText = append(f.sentText, text)
	return nil
}
func (f *fakeExecutor) SetOption(ctx context.Context, name, option, value string) error { return nil }
func (f *fakeExecutor) Attach(ctx context.Context, name string) error                  { return nil }

type fakeGit struct {
	branches   map[string]bool
	branchInfo map[string]worktree.BranchInfo
	status     map[string]worktree.GitStatus
	removed    []string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		branches:   make(map[string]bool),
		branchInfo: make(map[string]worktree.BranchInfo),
		status:     make(map[string]worktree.GitStatus),
	}
}

func (f *fakeGit) WorktreeList(ctx context.Context, dir string) ([]worktree.WorktreeInfo, error) {
	return nil, nil
}
func (f *fakeGit) Status(ctx context.Context, path string) (worktree.GitStatus, error) {
	return f.status[path], nil
}
func (f *fakeGit) BranchInfo(ctx context.Context, path string) (worktree.BranchInfo, error) {
	return f.branchInfo[path], nil
}
func (f *fakeGit) AddWorktree(ctx context.Context, repoDir, branch, path string) error {
	f.branches[branch] = true
	return nil
}
func (f *fakeGit) RemoveWorktree(ctx context.Context, repoDir, path string, force bool) error {
	f.removed = append(f.removed, path)
	return nil
}
func (f *fakeGit) DeleteBranch(ctx context.Context, repoDir, branch string) error {
	delete(f.branches, branch)
	return nil
}
func (f *fakeGit) BranchExists(ctx context.Context, repoDir, branch string) bool {
	return f.branches[branch]
}
func (f *fakeGit) PruneWorktrees(ctx context.Context, repoDir string) error { return nil }

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeExecutor) {
	t.Helper()
	exec := newFakeExecutor()
	git := newFakeGit()
	git.branchInfo["/tmp/repo"] = worktree.BranchInfo{Name: "main"}

	m := mux.New(exec)
	wt := worktree.NewManager(git, nil, t.TempDir())
	store := session.NewStore(t.TempDir() + "/sessions.json")

	return New(m, wt, store, nil, nil, "tmux_"), exec
}

func TestSupervisor_CreateThenFind(t *testing.T) {
	sup, exec := newTestSupervisor(t)

	record, err := sup.Create(context.Background(), Spec{
		RepoDir:       "/tmp/repo",
		Branch:        "feature/x",
		WorkspaceName: "demo",
		AgentCommand:  []string{"claude", "--model=sonnet"},
	})
	require.NoError(t, err)
	assert.True(t, exec.sessions[record.MuxName])
	assert.Equal(t, "/tmp/repo", record.RepoPath)

	found, err := sup.store.Find(record.ID.String())
	require.NoError(t, err)
	assert.Equal(t, record.MuxName, found.MuxName)
}

func TestSupervisor_HealthTransitions(t *testing.T) {
	sup, exec := newTestSupervisor(t)

	record, err := sup.Create(context.Background(), Spec{
		RepoDir:       "/tmp/repo",
		Branch:        "feature/x",
		WorkspaceName: "demo",
		AgentCommand:  []string{"claude"},
	})
	require.NoError(t, err)

	health, err := sup.Health(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, HealthIdle, health)

	exec.captureOut = []byte("Model: sonnet  Cost: $0.02  Session: abc  Ctx: 40%")
	health, err = sup.Health(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, HealthRunning, health)

	delete(exec.sessions, record.MuxName)
	health, err = sup.Health(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, HealthStopped, health)
}

func TestSupervisor_RestartRejectsWhenRunning(t *testing.T) {
	sup, exec := newTestSupervisor(t)

	record, err := sup.Create(context.Background(), Spec{
		RepoDir:       "/tmp/repo",
		Branch:        "feature/x",
		WorkspaceName: "demo",
		AgentCommand:  []string{"claude"},
	})
	require.NoError(t, err)

	exec.captureOut = []byte("Model: sonnet  Cost: $0.02  Session: abc  Ctx: 40%")
	err = sup.Restart(context.Background(), record.ID.String(), []string{"claude"})
	var notIdle *ErrNotIdle
	require.ErrorAs(t, err, &notIdle)
}

func TestSupervisor_RestartSendsKeystrokesWhenIdle(t *testing.T) {
	sup, exec := newTestSupervisor(t)

	record, err := sup.Create(context.Background(), Spec{
		RepoDir:       "/tmp/repo",
		Branch:        "feature/x",
		WorkspaceName: "demo",
		AgentCommand:  []string{"claude"},
	})
	require.NoError(t, err)

	err = sup.Restart(context.Background(), record.ID.String(), []string{"claude", "--resume"})
	require.NoError(t, err)
	assert.Contains(t, exec.sentText, "claude --resume")
}

func TestSupervisor_DeleteRemovesEverything(t *testing.T) {
	sup, exec := newTestSupervisor(t)

	record, err := sup.Create(context.Background(), Spec{
		RepoDir:       "/tmp/repo",
		Branch:        "feature/x",
		WorkspaceName: "demo",
		AgentCommand:  []string{"claude"},
	})
	require.NoError(t, err)

	require.NoError(t, sup.Delete(context.Background(), record.ID.String(), true))
	assert.False(t, exec.sessions[record.MuxName])

	_, err = sup.store.Find(record.ID.String())
	assert.True(t, session.IsNotFound(err))
}

func TestSupervisor_CleanupOrphans(t *testing.T) {
	sup, exec := newTestSupervisor(t)
	exec.sessions["tmux_orphan"] = true

	killed, err := sup.CleanupOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tmux_orphan"}, killed)
	assert.False(t, exec.sessions["tmux_orphan"])
}
