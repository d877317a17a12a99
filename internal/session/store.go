// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session implements the persistent registry of agent sessions: the
// triple (worktree path, multiplexer session name, metadata) plus the
// invariants that tie them together.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is a single persisted session.
type Record struct {
	ID            uuid.UUID `json:"id"`
	WorkspaceName string    `json:"workspace_name"`
	WorkspacePath string    `json:"workspace_path"`
	// RepoPath is the originating repository checkout WorkspacePath was
	// branched from. Needed to run worktree-removal git commands against
	// the right repo once the session is torn down.
	RepoPath  string    `json:"repo_path"`
	MuxName   string    `json:"mux_name"`
	Branch    string    `json:"branch"`
	CreatedAt time.Time `json:"created_at"`
	Agent     string    `json:"agent"`
	Model     string    `json:"model"`
}

// document is the on-disk shape: sessions keyed by mux_name, since
// "find session from multiplexer name" is the hot path.
type document struct {
	Sessions map[string]Record `json:"sessions"`
}

// ErrNotFound is returned by Find when no record matches the query.
type ErrNotFound struct {
	Query      string
	Candidates []Record
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no session matches %q (%d known sessions)", e.Query, len(e.Candidates))
}

// ErrAmbiguous is returned by Find when more than one record matches.
type ErrAmbiguous struct {
	Query      string
	Candidates []Record
}

func (e *ErrAmbiguous) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.ID.String()
	}
	return fmt.Sprintf("%q matches multiple sessions: %s", e.Query, strings.Join(names, ", "))
}

// Store is the persistent, single-writer registry of sessions.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a Store backed by the JSON document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the full set of records. A missing file is not an error: it
// yields an empty set, matching first-run behavior.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(doc.Sessions))
	for _, r := range doc.Sessions {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

func (s *Store) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return document{Sessions: make(map[string]Record)}, nil
		}
		return document{}, fmt.Errorf("read session store: %w", err)
	}
	if len(data) == 0 {
		return document{Sessions: make(map[string]Record)}, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("parse session store %s: %w", s.path, err)
	}
	if doc.Sessions == nil {
		doc.Sessions = make(map[string]Record)
	}
	return doc, nil
}

// write serializes doc atomically: write to a tempfile in the same
// directory, fsync, then rename over the real path.
func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create session store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session store: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp session store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp session store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp session store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename session store: %w", err)
	}
	return nil
}

// Upsert writes r into the store, replacing any existing record with the
// same MuxName.
func (s *Store) Upsert(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Sessions[r.MuxName] = r
	return s.write(doc)
}

// Remove deletes the record keyed by muxName, if present.
func (s *Store) Remove(muxName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	delete(doc.Sessions, muxName)
	return s.write(doc)
}

// Find resolves an id-or-prefix query against the store using the priority:
// (1) exact id parse, (2) case-insensitive id-string prefix, (3)
// case-insensitive workspace-name prefix. Returns ErrNotFound or
// ErrAmbiguous on non-unique resolution.
func (s *Store) Find(query string) (Record, error) {
	records, err := s.Load()
	if err != nil {
		return Record{}, err
	}

	if id, err := uuid.Parse(query); err == nil {
		for _, r := range records {
			if r.ID == id {
				return r, nil
			}
		}
	}

	q := strings.ToLower(query)
	var idMatches []Record
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(r.ID.String()), q) {
			idMatches = append(idMatches, r)
		}
	}
	if len(idMatches) == 1 {
		return idMatches[0], nil
	}
	if len(idMatches) > 1 {
		return Record{}, &ErrAmbiguous{Query: query, Candidates: idMatches}
	}

	var nameMatches []Record
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(r.WorkspaceName), q) {
			nameMatches = append(nameMatches, r)
		}
	}
	switch len(nameMatches) {
	case 0:
		return Record{}, &ErrNotFound{Query: query, Candidates: records}
	case 1:
		return nameMatches[0], nil
	default:
		return Record{}, &ErrAmbiguous{Query: query, Candidates: nameMatches}
	}
}

// Filter narrows List results.
type Filter struct {
	WorkspaceContains string
}

// List returns all records matching filter, newest first.
func (s *Store) List(filter Filter) ([]Record, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	if filter.WorkspaceContains == "" {
		return records, nil
	}
	needle := strings.ToLower(filter.WorkspaceContains)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.WorkspaceName), needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsAmbiguous reports whether err is an ErrAmbiguous.
func IsAmbiguous(err error) bool {
	var amb *ErrAmbiguous
	return errors.As(err, &amb)
}
