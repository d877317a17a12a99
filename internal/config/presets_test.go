// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPresetManager(t *testing.T) *PresetManager {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	m, err := NewPresetManager()
	require.NoError(t, err)
	return m
}

func TestPresetManager_SaveGetRoundtrip(t *testing.T) {
	m := newTestPresetManager(t)

	preset := RepositoryPreset{
		Name:          "rust-backend",
		Description:   "Rust backend with clippy",
		AgentProvider: "claude",
		AgentModel:    "sonnet",
		Skills:        []string{"code-reviewer"},
		Permissions:   PermissionSet{FileWrite: true, Git: true},
		Environment:   map[string]string{"RUST_LOG": "debug"},
	}
	require.NoError(t, m.Save(preset))

	got, ok := m.Get("rust-backend")
	require.True(t, ok)
	assert.Equal(t, preset.Description, got.Description)
	assert.Equal(t, preset.Skills, got.Skills)
	assert.True(t, got.Permissions.FileWrite)
	assert.Equal(t, "debug", got.Environment["RUST_LOG"])
}

func TestPresetManager_LoadsExistingFilesOnConstruction(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".agents-in-a-box", "presets")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fast.toml"), []byte(`
name = "fast"
agent_provider = "claude"
agent_model = "haiku"
`), 0644))

	m, err := NewPresetManager()
	require.NoError(t, err)
	names := m.ListNames()
	assert.Equal(t, []string{"fast"}, names)
}

func TestPresetManager_Delete(t *testing.T) {
	m := newTestPresetManager(t)
	require.NoError(t, m.Save(RepositoryPreset{Name: "temp", AgentProvider: "claude", AgentModel: "sonnet"}))
	_, ok := m.Get("temp")
	require.True(t, ok)

	require.NoError(t, m.Delete("temp"))
	_, ok = m.Get("temp")
	assert.False(t, ok)

	// Deleting an absent preset is not an error.
	assert.NoError(t, m.Delete("never-existed"))
}

func TestLoadRepoPreset_Absent(t *testing.T) {
	dir := t.TempDir()
	preset, ok, err := LoadRepoPreset(dir)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, RepositoryPreset{}, preset)
}

func TestLoadRepoPreset_Present(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".agents-box"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".agents-box", "preset.toml"), []byte(`
name = "override"
agent_provider = "codex"
agent_model = "gpt-5"
`), 0644))

	preset, ok, err := LoadRepoPreset(dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "override", preset.Name)
	assert.Equal(t, "codex", preset.AgentProvider)
}

func TestBuiltinPresets(t *testing.T) {
	presets := BuiltinPresets()
	require.Len(t, presets, 3)
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	assert.ElementsMatch(t, []string{"rust-backend", "typescript-frontend", "fast-iteration"}, names)
}
