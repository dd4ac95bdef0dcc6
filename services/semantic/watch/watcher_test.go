// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOp_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestConvertOp(t *testing.T) {
	op, ok := convertOp(fsnotify.Create | fsnotify.Write)
	require.True(t, ok)
	assert.Equal(t, OpCreate, op)

	op, ok = convertOp(fsnotify.Rename)
	require.True(t, ok)
	assert.Equal(t, OpRename, op)

	_, ok = convertOp(fsnotify.Chmod)
	assert.False(t, ok)
}

func TestDedup(t *testing.T) {
	now := time.Now()
	changes := []Change{
		{Path: "/a", Op: OpCreate, Time: now},
		{Path: "/b", Op: OpWrite, Time: now},
		{Path: "/a", Op: OpWrite, Time: now.Add(time.Millisecond)},
		{Path: "/a", Op: OpRemove, Time: now.Add(2 * time.Millisecond)},
	}

	out := Dedup(changes)
	require.Len(t, out, 2)
	assert.Equal(t, "/a", out[0].Path)
	assert.Equal(t, OpRemove, out[0].Op, "the last change per path wins")
	assert.Equal(t, "/b", out[1].Path)
	assert.Empty(t, Dedup(nil))
}

func TestWatcher_ShouldIgnore(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.False(t, w.shouldIgnore(root))
	assert.True(t, w.shouldIgnore(filepath.Join(root, ".git", "HEAD")))
	assert.True(t, w.shouldIgnore(filepath.Join(root, "model.sysml.yaml.swp")))
	assert.False(t, w.shouldIgnore(filepath.Join(root, "gitlab", "model.sysml.yaml")),
		"patterns match whole segments, not substrings")

	w.AddIgnore("build")
	assert.True(t, w.shouldIgnore(filepath.Join(root, "build", "x.sysml.yaml")))
}

func TestWatcher_StartErrors(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsWatching())

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	w, err = NewWatcher(file, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, w.Start(context.Background()), ErrNotDirectory)
}

// collector records batches for assertions.
type collector struct {
	mu      sync.Mutex
	batches [][]Change
}

func (c *collector) handle(changes []Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, changes)
}

func (c *collector) seen(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.batches {
		for _, ch := range b {
			if ch.Path == path {
				return true
			}
		}
	}
	return false
}

func TestWatcher_ReportsChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the real file system watcher")
	}
	root := t.TempDir()
	var c collector
	w, err := NewWatcher(root, c.handle, &WatcherOptions{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx), "second start is a no-op")
	assert.True(t, w.IsWatching())

	file := filepath.Join(root, "a.sysml.yaml")
	require.NoError(t, os.WriteFile(file, []byte("elements: []\n"), 0600))
	require.Eventually(t, func() bool { return c.seen(file) }, 5*time.Second, 10*time.Millisecond)

	t.Run("files in new directories are reported", func(t *testing.T) {
		dir := filepath.Join(root, "sub")
		require.NoError(t, os.Mkdir(dir, 0750))
		nested := filepath.Join(dir, "b.sysml.yaml")
		require.Eventually(t, func() bool {
			if err := os.WriteFile(nested, []byte("elements: []\n"), 0600); err != nil {
				return false
			}
			return c.seen(nested)
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("ignored paths are not reported", func(t *testing.T) {
		swp := filepath.Join(root, "a.sysml.yaml.swp")
		require.NoError(t, os.WriteFile(swp, nil, 0600))
		marker := filepath.Join(root, "marker.sysml.yaml")
		require.NoError(t, os.WriteFile(marker, nil, 0600))
		require.Eventually(t, func() bool { return c.seen(marker) }, 5*time.Second, 10*time.Millisecond)
		assert.False(t, c.seen(swp))
	})

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
	assert.Zero(t, w.Dropped())
}
