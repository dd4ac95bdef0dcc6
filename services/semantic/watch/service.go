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
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/syslens/services/semantic/config"
	"github.com/AleutianAI/syslens/services/semantic/loader"
	"github.com/AleutianAI/syslens/services/semantic/workspace"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Root is the watched directory. Workspace paths are relative to it.
	Root string

	// Suffixes select model files, as in the loader.
	Suffixes []string

	// MaxFileSize rejects larger files. Zero disables the limit.
	MaxFileSize int64

	// Debounce is the watcher's batching window.
	Debounce time.Duration

	// MinPopulateInterval is the minimum spacing of population passes.
	// Zero means no limit.
	MinPopulateInterval time.Duration

	// Ignore are extra watcher ignore patterns.
	Ignore []string

	Logger *slog.Logger

	// OnPass, when set, is called after every population pass with the
	// workspace lock held.
	OnPass func(*workspace.PopulateResult)
}

// OptionsFromConfig builds service options from the loader and watch
// sections of a config.
func OptionsFromConfig(lc config.LoaderConfig, wc config.WatchConfig) ServiceOptions {
	return ServiceOptions{
		Root:                lc.Root,
		Suffixes:            append([]string(nil), lc.Suffixes...),
		MaxFileSize:         lc.MaxFileSize,
		Debounce:            wc.Debounce,
		MinPopulateInterval: wc.MinPopulateInterval,
		Ignore:              append([]string(nil), wc.Ignore...),
	}
}

// Pass summarizes one applied batch.
type Pass struct {
	// Applied counts changes that altered the workspace.
	Applied int

	// Failed counts changes that could not be read or decoded. The
	// previous content of such files is kept.
	Failed int

	// Result is the population pass, nil when nothing was applied or the
	// context ended while waiting on the rate limiter.
	Result *workspace.PopulateResult
}

// Service applies file changes to a workspace it owns.
//
// # Description
//
// Every workspace access goes through the service's mutex: batches from
// the watcher, population passes, and readers using View.
//
// # Thread Safety
//
// Safe for concurrent use.
type Service struct {
	mu sync.Mutex
	ws *workspace.Workspace

	root    string
	opts    ServiceOptions
	limiter *rate.Limiter
	logger  *slog.Logger
	passes  atomic.Int64
}

// NewService creates a service over ws.
//
// Outputs:
//
//	*Service - Ready to Run or Apply.
//	error    - ErrNilWorkspace, or a root that cannot be made absolute.
func NewService(ws *workspace.Workspace, opts ServiceOptions) (*Service, error) {
	if ws == nil {
		return nil, ErrNilWorkspace
	}
	root := opts.Root
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if opts.MinPopulateInterval > 0 {
		limit = rate.Every(opts.MinPopulateInterval)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		ws:      ws,
		root:    abs,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(slog.String("component", "watch")),
	}, nil
}

// Run watches the root until ctx is canceled.
//
// Outputs:
//
//	error - A watcher setup failure. Cancellation returns nil.
func (s *Service) Run(ctx context.Context) error {
	w, err := NewWatcher(s.root, func(changes []Change) {
		if _, err := s.Apply(ctx, changes); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("applying changes", slog.String("error", err.Error()))
		}
	}, &WatcherOptions{
		Debounce: s.opts.Debounce,
		Ignore:   append(append([]string(nil), DefaultIgnore...), s.opts.Ignore...),
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	s.logger.Info("watch stopped",
		slog.Int64("passes", s.passes.Load()),
		slog.Int("dropped_changes", w.Dropped()),
	)
	return nil
}

// Apply applies one batch and runs an incremental population pass.
//
// Description:
//
//	Creates and writes of model files are decoded and added or updated.
//	Removes and renames remove the file, or every file below a removed
//	directory. If anything changed, Apply waits on the rate limiter
//	without holding the lock, then runs PopulateAffected.
//
// Inputs:
//
//	ctx     - Bounds the rate limiter wait and carries telemetry.
//	changes - Absolute paths, typically from a Watcher.
//
// Outputs:
//
//	Pass  - What was applied and the population result.
//	error - The context error if the wait was cut short.
func (s *Service) Apply(ctx context.Context, changes []Change) (Pass, error) {
	ctx, span := startApplySpan(ctx, len(changes))
	defer span.End()

	var pass Pass
	s.mu.Lock()
	for _, c := range changes {
		applied, err := s.applyChange(c)
		switch {
		case err != nil:
			pass.Failed++
			recordChange(ctx, c.Op, true)
			s.logger.Warn("change not applied",
				slog.String("path", c.Path),
				slog.String("op", c.Op.String()),
				slog.String("error", err.Error()),
			)
		case applied:
			pass.Applied++
			recordChange(ctx, c.Op, false)
		}
	}
	s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("watch.applied", pass.Applied),
		attribute.Int("watch.failed", pass.Failed),
	)
	if pass.Applied == 0 {
		return pass, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return pass, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.ws.PopulateAffected(ctx)
	pass.Result = res
	s.passes.Add(1)
	recordPass(ctx, !res.Errors.HasErrors())
	if s.opts.OnPass != nil {
		s.opts.OnPass(res)
	}

	s.logger.Info("incremental pass",
		slog.String("run_id", res.RunID),
		slog.Int("changes", pass.Applied),
		slog.Int("files", len(res.Files)),
		slog.Int("diagnostics", res.Errors.Len()),
		slog.Duration("duration", res.Duration),
	)
	return pass, nil
}

// applyChange reports whether the workspace changed. Must hold s.mu.
func (s *Service) applyChange(c Change) (bool, error) {
	rel, ok := s.relative(c.Path)
	if !ok {
		return false, nil
	}

	switch c.Op {
	case OpRemove, OpRename:
		return s.remove(rel), nil
	}

	if !loader.Matches(rel, s.opts.Suffixes) {
		return false, nil
	}
	content, err := loader.ReadDocument(c.Path, s.opts.MaxFileSize)
	if errors.Is(err, fs.ErrNotExist) {
		return s.remove(rel), nil
	}
	if err != nil {
		return false, err
	}
	if _, held := s.ws.File(rel); held {
		return true, s.ws.UpdateFile(rel, content)
	}
	return true, s.ws.AddFile(rel, content)
}

// remove drops rel, or every held file below it when rel is a directory.
func (s *Service) remove(rel string) bool {
	if _, held := s.ws.File(rel); held {
		return s.ws.RemoveFile(rel) == nil
	}
	removed := false
	prefix := rel + "/"
	for _, path := range s.ws.Files() {
		if strings.HasPrefix(path, prefix) && s.ws.RemoveFile(path) == nil {
			removed = true
		}
	}
	return removed
}

func (s *Service) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// View calls fn with the workspace under the service lock.
func (s *Service) View(fn func(ws *workspace.Workspace)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ws)
}

// Passes returns the number of population passes run so far.
func (s *Service) Passes() int64 { return s.passes.Load() }
