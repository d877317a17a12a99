// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wingedpig/agentsbox/internal/config"
	"github.com/wingedpig/agentsbox/internal/supervisor"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	repo := fs.String("repo", "", "path to the local repository to branch from")
	remoteRepo := fs.String("remote-repo", "", "remote repository slug; this command does not clone it, so --repo naming a local clone is also required")
	createBranch := fs.String("create-branch", "", "branch name to create for this session")
	worktree := fs.Bool("worktree", true, "create a git worktree for this session (always true; kept for CLI-surface parity)")
	tool := fs.String("tool", "", "agent CLI to run (claude|codex|gemini); defaults to config's cli_provider")
	model := fs.String("model", "", "model name; defaults to config's default_model")
	prompt := fs.String("prompt", "", "initial prompt passed to the agent on launch as a trailing command-line argument")
	attach := fs.Bool("attach", false, "attach to the new session's multiplexer pane immediately")
	skipPermissions := fs.Bool("dangerously-skip-permissions", false, "pass the agent's skip-permissions flag through")
	name := fs.String("name", "", "workspace label; defaults to the repo's base name")
	preset := fs.String("preset", "", "named repository preset supplying tool/model defaults")
	interactive := fs.Bool("interactive", false, "reserved for future prompting; currently a no-op")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_ = worktree
	_ = interactive

	// A trailing positional argument is the task description, equivalent
	// to --prompt.
	if *prompt == "" && fs.NArg() > 0 {
		*prompt = strings.Join(fs.Args(), " ")
	}

	if *repo == "" && *remoteRepo == "" {
		return fmt.Errorf("--repo or --remote-repo is required")
	}
	if *remoteRepo != "" && *repo == "" {
		return fmt.Errorf("--remote-repo requires --repo pointing at a local clone of it (cloning is not performed by this command)")
	}

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	// Resolution order for tool/model: explicit flag, then a named or
	// repo-local preset, then the global config.
	var chosen config.RepositoryPreset
	havePreset := false
	if *preset != "" {
		presets, err := config.NewPresetManager()
		if err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
		chosen, havePreset = presets.Get(*preset)
		if !havePreset {
			return fmt.Errorf("unknown preset %q (known: %v)", *preset, presets.ListNames())
		}
	} else if p, ok, err := config.LoadRepoPreset(*repo); err == nil && ok {
		chosen, havePreset = p, true
	}

	agent := *tool
	if agent == "" && havePreset {
		agent = chosen.AgentProvider
	}
	if agent == "" {
		agent = string(env.cfg.CLIProvider)
	}
	modelName := *model
	if modelName == "" && havePreset {
		modelName = chosen.AgentModel
	}
	if modelName == "" {
		modelName = env.cfg.DefaultModel
	}
	workspaceName := *name
	if workspaceName == "" {
		workspaceName = baseName(*repo)
	}
	branch := *createBranch
	if branch == "" {
		branch = fmt.Sprintf("%s/%s", env.cfg.WorkspaceDefaults.BranchPrefix, workspaceName)
	}

	command := buildAgentCommand(agent, modelName, *prompt, *skipPermissions || (havePreset && chosen.Permissions.SkipAll))

	ctx := context.Background()
	record, err := env.supervisor.Create(ctx, supervisor.Spec{
		RepoDir:       *repo,
		Branch:        branch,
		WorkspaceName: workspaceName,
		AgentCommand:  command,
		Agent:         agent,
		Model:         modelName,
		Cols:          80,
		Rows:          24,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	fmt.Printf("Created session %s (mux: %s, worktree: %s)\n", record.ID, record.MuxName, record.WorkspacePath)

	if *attach {
		return env.mux.Attach(ctx, record.MuxName)
	}
	return nil
}

// buildAgentCommand constructs the external command run inside the new
// multiplexer pane. The shape (binary name, --model, a trailing prompt
// argument) follows the same agent-invocation convention the session
// supervisor's Spec.AgentCommand expects: a single argv slice passed
// through to the multiplexer adapter unmodified.
func buildAgentCommand(agent, model, prompt string, skipPermissions bool) []string {
	cmd := []string{agent}
	if model != "" {
		cmd = append(cmd, "--model", model)
	}
	if skipPermissions {
		cmd = append(cmd, "--dangerously-skip-permissions")
	}
	if prompt != "" {
		cmd = append(cmd, prompt)
	}
	return cmd
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == os.PathSeparator {
			return path[i+1:]
		}
	}
	return path
}
