// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// PermissionSet controls which classes of agent actions a preset lets
// through without an interactive confirmation.
type PermissionSet struct {
	FileWrite bool `toml:"file_write"`
	Shell     bool `toml:"shell"`
	Git       bool `toml:"git"`
	Network   bool `toml:"network"`
	SkipAll   bool `toml:"skip_all"`
}

// RepositoryPreset bundles the agent provider/model, skills, plugins, and
// permission defaults a repository wants every session started against it
// to inherit.
type RepositoryPreset struct {
	Name          string            `toml:"name"`
	Description   string            `toml:"description"`
	AgentProvider string            `toml:"agent_provider"`
	AgentModel    string            `toml:"agent_model"`
	Skills        []string          `toml:"skills"`
	Plugins       []string          `toml:"plugins"`
	Permissions   PermissionSet     `toml:"permissions"`
	CustomRules   string            `toml:"custom_rules,omitempty"`
	Environment   map[string]string `toml:"environment"`
}

// DefaultPreset returns the zero-value preset's filled-in form: the
// provider/model pair every preset falls back to when unset.
func DefaultPreset() RepositoryPreset {
	return RepositoryPreset{
		Name:          "default",
		Description:   "Default preset with balanced settings",
		AgentProvider: "claude",
		AgentModel:    "sonnet",
		Environment:   map[string]string{},
	}
}

// PresetManager loads, caches, and persists RepositoryPresets stored as
// one TOML file per preset under presetsDir.
type PresetManager struct {
	mu         sync.RWMutex
	presetsDir string
	presets    map[string]RepositoryPreset
}

// NewPresetManager constructs a manager rooted at
// $HOME/.agents-in-a-box/presets, creating the directory if absent, and
// loads every *.toml preset already there.
func NewPresetManager() (*PresetManager, error) {
	dir, err := presetsDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create presets directory: %w", err)
	}
	m := &PresetManager{presetsDir: dir, presets: make(map[string]RepositoryPreset)}
	if err := m.loadAll(); err != nil {
		return nil, err
	}
	return m, nil
}

func presetsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".agents-in-a-box", "presets"), nil
}

func (m *PresetManager) loadAll() error {
	entries, err := os.ReadDir(m.presetsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read presets directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		preset, err := loadPresetFile(filepath.Join(m.presetsDir, e.Name()))
		if err != nil {
			continue // a malformed preset file is skipped, not fatal
		}
		m.presets[preset.Name] = preset
	}
	return nil
}

func loadPresetFile(path string) (RepositoryPreset, error) {
	var preset RepositoryPreset
	if _, err := toml.DecodeFile(path, &preset); err != nil {
		return RepositoryPreset{}, fmt.Errorf("parse preset file %s: %w", path, err)
	}
	if preset.AgentProvider == "" {
		preset.AgentProvider = "claude"
	}
	if preset.AgentModel == "" {
		preset.AgentModel = "sonnet"
	}
	if preset.Environment == nil {
		preset.Environment = map[string]string{}
	}
	return preset, nil
}

// Save persists preset to its own file in the presets directory and
// updates the in-memory cache.
func (m *PresetManager) Save(preset RepositoryPreset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.presetsDir, preset.Name+".toml")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preset file %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(preset); err != nil {
		return fmt.Errorf("encode preset %s: %w", preset.Name, err)
	}
	m.presets[preset.Name] = preset
	return nil
}

// Get returns the preset named name, if loaded.
func (m *PresetManager) Get(name string) (RepositoryPreset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presets[name]
	return p, ok
}

// All returns every loaded preset, sorted by name.
func (m *PresetManager) All() []RepositoryPreset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RepositoryPreset, 0, len(m.presets))
	for _, p := range m.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListNames returns the names of every loaded preset, sorted.
func (m *PresetManager) ListNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.presets))
	for name := range m.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes the named preset's file and cache entry. Deleting a
// preset that does not exist is not an error.
func (m *PresetManager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := filepath.Join(m.presetsDir, name+".toml")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete preset file %s: %w", path, err)
	}
	delete(m.presets, name)
	return nil
}

// LoadRepoPreset reads a repo-local override from
// <repoPath>/.agents-box/preset.toml, if present. A missing override file
// is not an error: it yields (RepositoryPreset{}, false, nil).
func LoadRepoPreset(repoPath string) (RepositoryPreset, bool, error) {
	path := filepath.Join(repoPath, ".agents-box", "preset.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return RepositoryPreset{}, false, nil
	}
	preset, err := loadPresetFile(path)
	if err != nil {
		return RepositoryPreset{}, false, err
	}
	return preset, true, nil
}

// BuiltinPresets returns the shipped starter presets, seeded on first run
// the way the upstream tool seeds rust-backend/typescript-frontend/
// fast-iteration.
func BuiltinPresets() []RepositoryPreset {
	return []RepositoryPreset{
		{
			Name:          "rust-backend",
			Description:   "Rust backend development with testing and clippy",
			AgentProvider: "claude",
			AgentModel:    "sonnet",
			Skills:        []string{"test-writer-fixer", "code-reviewer"},
			Permissions:   PermissionSet{FileWrite: true, Shell: true, Git: true},
			CustomRules:   "Always run `cargo clippy` before committing.",
			Environment:   map[string]string{},
		},
		{
			Name:          "typescript-frontend",
			Description:   "TypeScript frontend with React and testing",
			AgentProvider: "claude",
			AgentModel:    "sonnet",
			Skills:        []string{"frontend-developer", "tailwind-frontend-expert"},
			Permissions:   PermissionSet{FileWrite: true, Shell: true, Git: true, Network: true},
			CustomRules:   "Use TypeScript strict mode. Prefer functional components.",
			Environment:   map[string]string{},
		},
		{
			Name:          "fast-iteration",
			Description:   "Maximum speed - skip all prompts",
			AgentProvider: "claude",
			AgentModel:    "haiku",
			Permissions:   PermissionSet{FileWrite: true, Shell: true, Git: true, Network: true, SkipAll: true},
			Environment:   map[string]string{},
		},
	}
}
