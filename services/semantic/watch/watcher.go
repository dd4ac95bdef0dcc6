// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch keeps a workspace in sync with a directory on disk.
//
// A Watcher turns fsnotify events into debounced, per-path deduplicated
// batches. A Service applies each batch to the workspace it owns and runs
// an incremental population pass, rate limited so bursts of saves cost
// one pass instead of many.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of a file change.
type Op int

const (
	// OpCreate indicates a file was created.
	OpCreate Op = iota

	// OpWrite indicates a file was modified.
	OpWrite

	// OpRemove indicates a file was deleted.
	OpRemove

	// OpRename indicates a file was renamed away from Path.
	OpRename
)

// String returns the string representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one observed file system change.
type Change struct {
	// Path is the absolute path of the changed file or directory.
	Path string

	Op Op

	// Time is when the change was observed.
	Time time.Time
}

// Handler receives debounced batches.
type Handler func(changes []Change)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the watcher waits for more changes before
	// flushing a batch. Default: 100ms.
	Debounce time.Duration

	// Ignore are glob patterns matched against every path segment below
	// the root. Default: DefaultIgnore.
	Ignore []string

	// BufferSize is the capacity of the change channel. Default: 1000.
	BufferSize int

	Logger *slog.Logger
}

// DefaultIgnore lists the patterns skipped when none are configured.
var DefaultIgnore = []string{".git", "node_modules", ".idea", ".vscode", "*.swp", "*.tmp", "*~"}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		Debounce:   100 * time.Millisecond,
		Ignore:     append([]string(nil), DefaultIgnore...),
		BufferSize: 1000,
	}
}

// Watcher watches a directory tree with debouncing.
//
// # Description
//
// Changes are collected into a batch. When the debounce window expires
// without a new change, the batch is deduplicated (last change per path
// wins) and passed to the handler. Directories created while watching
// are added to the watch list, and files already inside them are
// reported as created.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine
// and must not call Stop.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logger   *slog.Logger

	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.RWMutex
	ignore   []string
	watching bool
	dropped  int
}

// NewWatcher creates a watcher for root.
//
// # Inputs
//
//   - root: Directory to watch. It is made absolute.
//   - handler: Called with each debounced batch.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *Watcher: Ready to Start.
//   - error: Non-nil if root is invalid or fsnotify could not be set up.
func NewWatcher(root string, handler Handler, opts *WatcherOptions) (*Watcher, error) {
	defaults := DefaultWatcherOptions()
	if opts == nil {
		opts = &defaults
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaults.Debounce
	}
	buffer := opts.BufferSize
	if buffer <= 0 {
		buffer = defaults.BufferSize
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = defaults.Ignore
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     abs,
		watcher:  fw,
		handler:  handler,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "watcher")),
		changes:  make(chan Change, buffer),
		done:     make(chan struct{}),
		ignore:   append([]string(nil), ignore...),
	}, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.root }

// Start adds the directory tree to the watch list and starts the event
// and debounce goroutines. Both exit when Stop is called or ctx is
// canceled; a pending batch is flushed on the way out.
//
// Calling Start on a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	info, err := os.Stat(w.root)
	if err != nil {
		w.setWatching(false)
		return err
	}
	if !info.IsDir() {
		w.setWatching(false)
		return &fs.PathError{Op: "watch", Path: w.root, Err: ErrNotDirectory}
	}
	if err := w.addRecursive(w.root, false); err != nil {
		w.setWatching(false)
		return err
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("watching", slog.String("root", w.root))
	return nil
}

// Stop stops watching and waits for the final batch to be handled.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("closing fsnotify watcher", slog.String("error", err.Error()))
		}
		w.wg.Wait()
		w.setWatching(false)
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// Dropped returns how many changes were discarded because the buffer
// was full.
func (w *Watcher) Dropped() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dropped
}

// AddIgnore adds an ignore pattern.
func (w *Watcher) AddIgnore(pattern string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignore = append(w.ignore, pattern)
}

func (w *Watcher) setWatching(v bool) {
	w.mu.Lock()
	w.watching = v
	w.mu.Unlock()
}

// addRecursive adds dir and its subdirectories to the watch list. With
// report set, files found along the way are queued as creates.
func (w *Watcher) addRecursive(dir string, report bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.shouldIgnore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if report {
				w.enqueue(Change{Path: path, Op: OpCreate, Time: time.Now()})
			}
			return nil
		}
		return w.watcher.Add(path)
	})
}

// shouldIgnore reports whether any segment of path below the root
// matches an ignore pattern.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.ignore {
			if seg == pattern {
				return true
			}
			if matched, _ := filepath.Match(pattern, seg); matched {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) enqueue(c Change) {
	select {
	case w.changes <- c:
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		w.logger.Warn("change buffer full, dropping change",
			slog.String("path", c.Path),
			slog.String("op", c.Op.String()),
		)
	}
}

// processEvents converts fsnotify events to changes.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}
			op, ok := convertOp(event.Op)
			if !ok {
				continue
			}

			if op == OpCreate && isDir(event.Name) {
				if err := w.addRecursive(event.Name, true); err != nil {
					w.logger.Warn("watching new directory",
						slog.String("path", event.Name),
						slog.String("error", err.Error()),
					)
				}
				continue
			}
			w.enqueue(Change{Path: event.Name, Op: op, Time: time.Now()})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", slog.String("error", err.Error()))
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// convertOp maps an fsnotify op. Chmod-only events are dropped.
func convertOp(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	case op.Has(fsnotify.Remove):
		return OpRemove, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	default:
		return 0, false
	}
}

// debounceLoop batches changes and calls the handler once the debounce
// window passes without a new change.
func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := Dedup(batch)
			if w.handler != nil {
				w.handler(deduped)
			}
			batch = nil
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	drain := func() {
		for {
			select {
			case c := <-w.changes:
				batch = append(batch, c)
			default:
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			flush()
			return
		case <-w.done:
			drain()
			flush()
			return
		case c := <-w.changes:
			batch = append(batch, c)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			flush()
		}
	}
}

// Dedup keeps the last change per path, at the position of the path's
// first change.
func Dedup(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if idx, ok := seen[c.Path]; ok {
			out[idx] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
