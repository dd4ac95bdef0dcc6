// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/diag"
	"github.com/AleutianAI/syslens/services/semantic/references"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// Population modes, as reported in PopulateResult.Mode.
const (
	ModeAll      = "all"
	ModeAffected = "affected"
)

// PopulateResult describes one population pass.
type PopulateResult struct {
	// RunID identifies the pass in logs and spans.
	RunID string

	// Mode is ModeAll or ModeAffected.
	Mode string

	// Files are the paths that were populated, in processing order.
	Files []string

	// SymbolsAdded and SymbolsRemoved count table changes made by the
	// populated files.
	SymbolsAdded   int
	SymbolsRemoved int

	// References summarizes the find-references rebuild.
	References references.Stats

	// Errors holds the population errors of the processed files followed
	// by every diagnostic of the validation pass.
	Errors diag.List

	// Duration is the wall time of the pass.
	Duration time.Duration
}

// Err returns the collected diagnostics as one error, or nil.
func (r *PopulateResult) Err() error {
	return r.Errors.Err()
}

// PopulateAll re-populates every file in sorted path order.
//
// Description:
//
//	Each file is purged and rebuilt through its language adapter.
//	Errors are collected per file and never stop the pass. Afterwards
//	dependency edges are re-resolved, the validation pass runs over
//	the whole index, and the find-references index is rebuilt once.
//
// Inputs:
//
//	ctx - Used for tracing and metrics only.
//
// Outputs:
//
//	*PopulateResult - Never nil.
func (w *Workspace) PopulateAll(ctx context.Context) *PopulateResult {
	return w.populate(ctx, ModeAll, w.Files())
}

// PopulateAffected re-populates only the files that are not populated.
//
// Description:
//
//	Same as PopulateAll restricted to pending files. When nothing is
//	pending and no file was removed since the last pass, the index is
//	left untouched and the result is empty. After a removal the
//	validation pass and the find-references index run regardless.
func (w *Workspace) PopulateAffected(ctx context.Context) *PopulateResult {
	return w.populate(ctx, ModeAffected, w.Pending())
}

func (w *Workspace) populate(ctx context.Context, mode string, paths []string) *PopulateResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := startPopulateSpan(ctx, mode, len(paths))
	defer span.End()

	start := time.Now()
	res := &PopulateResult{RunID: uuid.NewString(), Mode: mode}
	log := w.logger.With(slog.String("run_id", res.RunID), slog.String("mode", mode))

	for _, path := range paths {
		w.populateFile(path, res, log)
	}

	refresh := len(paths) > 0 || w.stale
	if refresh {
		w.resolveDependencies()
		w.diagnostics = w.validate()
		res.Errors.AddAll(w.diagnostics)
		res.References = references.Collect(w.table, w.graph)
		w.stale = false
	}

	res.Duration = time.Since(start)
	setPopulateSpanResult(span, res)
	recordPopulateMetrics(ctx, res, w.table.Len())

	if refresh {
		log.Info("population complete",
			slog.Int("files", len(res.Files)),
			slog.Int("symbols", w.table.Len()),
			slog.Int("symbols_added", res.SymbolsAdded),
			slog.Int("symbols_removed", res.SymbolsRemoved),
			slog.Int("references", res.References.References),
			slog.Int("diagnostics", res.Errors.Len()),
			slog.Duration("duration", res.Duration),
		)
	}
	return res
}

func (w *Workspace) populateFile(path string, res *PopulateResult, log *slog.Logger) {
	f := w.files[path]
	res.Files = append(res.Files, path)
	res.SymbolsRemoved += w.purge(path)

	a, err := w.registry.For(f.Content)
	if err != nil {
		f.Errors = []error{fmt.Errorf("%s: %w", path, err)}
		res.Errors.AddAll(f.Errors)
		log.Warn("no adapter for file", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	before := w.table.Len()
	w.table.SetCurrentFile(path)
	errs := a.Populate(f.Content, w.table, w.graph)
	w.table.SetCurrentFile("")
	w.table.ResetScope()

	res.SymbolsAdded += w.table.Len() - before
	f.Errors = errs
	f.Populated = true
	res.Errors.AddAll(errs)

	if len(errs) > 0 {
		log.Warn("file populated with errors",
			slog.String("path", path),
			slog.Int("errors", len(errs)),
		)
		return
	}
	log.Debug("file populated", slog.String("path", path))
}

// resolveDependencies rebuilds the dependency edges of every file.
func (w *Workspace) resolveDependencies() {
	for _, path := range w.Files() {
		w.resolveFileDependencies(path)
	}
}

// resolveFileDependencies replaces the outgoing dependency edges of path.
//
// Each import path is resolved by its longest defined prefix; the file
// defining that symbol becomes a dependency. Unresolvable imports
// contribute no edge and are reported by the validation pass instead.
func (w *Workspace) resolveFileDependencies(path string) {
	f, ok := w.files[path]
	if !ok {
		return
	}
	w.deps.ClearDependencies(path)
	for _, raw := range f.Imports {
		target := w.definingFile(ast.ParseImport(raw).Path)
		if target == "" || target == path {
			continue
		}
		w.deps.AddDependency(path, target)
	}
}

func (w *Workspace) definingFile(qualified string) string {
	for name := qualified; name != ""; name = symbols.Parent(name) {
		if sym, ok := w.table.LookupQualifiedNoAlias(name); ok && sym.SourceFile != "" {
			return sym.SourceFile
		}
	}
	return ""
}
