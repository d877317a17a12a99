// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_UpsertAndFind(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	rec := Record{
		ID:            uuid.New(),
		WorkspaceName: "demo",
		WorkspacePath: "/tmp/demo",
		MuxName:       "tmux_demo_abcd1234",
		Branch:        "feature/x",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, store.Upsert(rec))

	got, err := store.Find(rec.ID.String()[:8])
	require.NoError(t, err)
	assert.Equal(t, rec.MuxName, got.MuxName)

	got, err = store.Find("demo")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestStore_Find_Ambiguous(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	r1 := Record{ID: uuid.New(), WorkspaceName: "demo-one", MuxName: "tmux_one"}
	r2 := Record{ID: uuid.New(), WorkspaceName: "demo-two", MuxName: "tmux_two"}
	require.NoError(t, store.Upsert(r1))
	require.NoError(t, store.Upsert(r2))

	_, err := store.Find("demo")
	require.Error(t, err)
	assert.True(t, IsAmbiguous(err))
}

func TestStore_Find_NotFound(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	_, err := store.Find("nonexistent")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_Remove(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	rec := Record{ID: uuid.New(), WorkspaceName: "demo", MuxName: "tmux_demo"}
	require.NoError(t, store.Upsert(rec))
	require.NoError(t, store.Remove(rec.MuxName))

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_List_Filter(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, store.Upsert(Record{ID: uuid.New(), WorkspaceName: "alpha-backend", MuxName: "tmux_a"}))
	require.NoError(t, store.Upsert(Record{ID: uuid.New(), WorkspaceName: "beta-frontend", MuxName: "tmux_b"}))

	records, err := store.List(Filter{WorkspaceContains: "backend"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alpha-backend", records[0].WorkspaceName)
}
