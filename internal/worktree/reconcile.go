// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem changes under a worktree root and invokes a
// reconciliation callback (typically Manager.PruneStale), so a worktree
// directory removed out-of-band (e.g. `rm -rf` by the user, or a crash that
// left an orphaned session) is noticed without waiting for the next full
// startup.
//
// This is additive only: callers must still invoke PruneStale explicitly at
// startup, since a Watcher can miss events that occur before it starts.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher starts watching root for changes. The provided onChange
// callback is invoked (debounced) after filesystem activity settles.
func NewWatcher(root string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	w := &Watcher{fsw: fsw, debounce: debounce, closeCh: make(chan struct{})}
	w.wg.Add(1)
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func()) {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.scheduleDebounced(onChange)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) scheduleDebounced(onChange func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, onChange)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.closeCh)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
