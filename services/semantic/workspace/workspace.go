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
	"fmt"
	"log/slog"
	"sort"

	"github.com/AleutianAI/syslens/services/semantic/adapter"
	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/deps"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/source"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// File is one model file held by the workspace.
type File struct {
	// Path is the workspace-relative path and the file's identity.
	Path string

	// Content is the decoded AST.
	Content ast.File

	// Populated is false until the next population pass indexes Content.
	Populated bool

	// Imports are the raw import strings of Content, as written.
	Imports []string

	// Errors are the diagnostics of the last population of this file.
	Errors []error
}

// Language returns the language of the file's content.
func (f *File) Language() ast.Language {
	return f.Content.Language()
}

// Options configures a Workspace.
type Options struct {
	Logger           *slog.Logger
	Registry         *adapter.Registry
	AutoInvalidation bool
	MaxAliasDepth    int
}

// Option applies one setting to Options.
type Option func(*Options)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithRegistry sets the adapter registry. The default serves SysML and
// KerML.
func WithRegistry(r *adapter.Registry) Option {
	return func(o *Options) {
		if r != nil {
			o.Registry = r
		}
	}
}

// WithAutoInvalidation subscribes a listener that marks every transitive
// dependent of an updated or removed file as unpopulated.
func WithAutoInvalidation(enabled bool) Option {
	return func(o *Options) {
		o.AutoInvalidation = enabled
	}
}

// WithMaxAliasDepth bounds alias chains in the symbol table.
func WithMaxAliasDepth(n int) Option {
	return func(o *Options) {
		o.MaxAliasDepth = n
	}
}

// Workspace is a multi-file semantic index.
//
// Thread Safety:
//
//	NOT safe for concurrent use.
type Workspace struct {
	files     map[string]*File
	table     *symbols.Table
	graph     *relations.Graph
	deps      *deps.Graph
	registry  *adapter.Registry
	logger    *slog.Logger
	listeners []Listener

	// diagnostics holds the result of the last validation pass.
	diagnostics []error

	// stale is set when symbols were removed without a file becoming
	// pending, so the next pass must still validate and collect.
	stale bool
}

// New creates an empty workspace.
//
// Inputs:
//
//	opts - Functional options. See WithLogger, WithRegistry,
//	       WithAutoInvalidation and WithMaxAliasDepth.
//
// Outputs:
//
//	*Workspace - The workspace. Never nil.
func New(opts ...Option) *Workspace {
	o := Options{
		Logger:        slog.Default(),
		Registry:      adapter.DefaultRegistry(),
		MaxAliasDepth: symbols.DefaultMaxAliasDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}

	w := &Workspace{
		files:    make(map[string]*File),
		table:    symbols.NewTable(symbols.WithMaxAliasDepth(o.MaxAliasDepth)),
		graph:    relations.NewGraph(),
		deps:     deps.NewGraph(),
		registry: o.Registry,
		logger:   o.Logger.With(slog.String("component", "workspace")),
	}
	if o.AutoInvalidation {
		w.Subscribe(func(ev Event) {
			if ev.Kind == EventFileUpdated || ev.Kind == EventFileRemoved {
				w.InvalidateAffected(ev.Path)
			}
		})
	}
	return w
}

// AddFile adds a file in the unpopulated state.
//
// Description:
//
//	Adding a path the workspace already holds behaves as UpdateFile.
//	Otherwise the file's imports are extracted, its dependency edges
//	resolved against the symbols indexed so far, and EventFileAdded is
//	emitted.
//
// Outputs:
//
//	error - ErrEmptyPath, ErrNilFile, or adapter.ErrNoAdapter.
func (w *Workspace) AddFile(path string, content ast.File) error {
	if path == "" {
		return ErrEmptyPath
	}
	if content == nil {
		return ErrNilFile
	}
	if _, exists := w.files[path]; exists {
		return w.UpdateFile(path, content)
	}
	a, err := w.registry.For(content)
	if err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}

	w.files[path] = &File{
		Path:    path,
		Content: content,
		Imports: a.Imports(content),
	}
	w.resolveFileDependencies(path)

	w.logger.Debug("file added",
		slog.String("path", path),
		slog.String("language", string(content.Language())),
	)
	w.emit(EventFileAdded, path)
	return nil
}

// UpdateFile replaces the content of an existing file.
//
// Description:
//
//	The file becomes unpopulated, EventFileUpdated is emitted while the
//	old dependency edges are still in place, and then the file's edges
//	are rebuilt from the new imports.
//
// Outputs:
//
//	error - ErrFileNotFound, ErrNilFile, or adapter.ErrNoAdapter.
func (w *Workspace) UpdateFile(path string, content ast.File) error {
	if content == nil {
		return ErrNilFile
	}
	f, ok := w.files[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	a, err := w.registry.For(content)
	if err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}

	f.Content = content
	f.Populated = false
	w.emit(EventFileUpdated, path)

	f.Imports = a.Imports(content)
	w.resolveFileDependencies(path)

	w.logger.Debug("file updated", slog.String("path", path))
	return nil
}

// RemoveFile discards a file, its symbols and every edge they own.
//
// Description:
//
//	EventFileRemoved is emitted before anything is discarded, so
//	listeners still see the file's dependents. The next population
//	pass validates and rebuilds references even when no file is
//	pending.
//
// Outputs:
//
//	error - ErrFileNotFound if the path is not held.
func (w *Workspace) RemoveFile(path string) error {
	if _, ok := w.files[path]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	w.emit(EventFileRemoved, path)

	removed := w.purge(path)
	w.deps.RemoveFile(path)
	delete(w.files, path)
	w.stale = true

	w.logger.Debug("file removed",
		slog.String("path", path),
		slog.Int("symbols_removed", removed),
	)
	return nil
}

// InvalidateAffected marks path and every file that transitively depends
// on it as unpopulated.
//
// Outputs:
//
//	[]string - The paths that were invalidated, path first. Paths the
//	           workspace does not hold are skipped.
func (w *Workspace) InvalidateAffected(path string) []string {
	var out []string
	for _, p := range append([]string{path}, w.deps.AllAffected(path)...) {
		f, ok := w.files[p]
		if !ok {
			continue
		}
		f.Populated = false
		out = append(out, p)
	}
	if len(out) > 1 {
		w.logger.Debug("dependents invalidated",
			slog.String("path", path),
			slog.Int("count", len(out)-1),
		)
	}
	return out
}

// purge removes the symbols of path and the edges they are the source of.
//
// Edges are keyed by qualified name, so an edge is kept when another file
// still defines a symbol under the same name.
func (w *Workspace) purge(path string) int {
	owned := w.table.SymbolsInFile(path)
	removed := w.table.RemoveSymbolsFromFile(path)
	for _, sym := range owned {
		if _, still := w.table.LookupQualifiedNoAlias(sym.QualifiedName); still {
			continue
		}
		w.graph.RemoveSource(sym.QualifiedName)
	}
	return removed
}

// File returns the file held under path.
func (w *Workspace) File(path string) (*File, bool) {
	f, ok := w.files[path]
	return f, ok
}

// Files returns every held path, sorted.
func (w *Workspace) Files() []string {
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Pending returns the paths that are not populated, sorted.
func (w *Workspace) Pending() []string {
	var out []string
	for _, p := range w.Files() {
		if !w.files[p].Populated {
			out = append(out, p)
		}
	}
	return out
}

// Symbols returns the shared symbol table.
func (w *Workspace) Symbols() *symbols.Table { return w.table }

// Relations returns the shared relationship graph.
func (w *Workspace) Relations() *relations.Graph { return w.graph }

// Dependencies returns the file dependency graph.
func (w *Workspace) Dependencies() *deps.Graph { return w.deps }

// Registry returns the adapter registry.
func (w *Workspace) Registry() *adapter.Registry { return w.registry }

// Lookup resolves name from the root scope.
func (w *Workspace) Lookup(name string) (*symbols.Symbol, bool) {
	return w.table.LookupFromScope(name, symbols.RootScopeID)
}

// LookupQualified resolves an exact qualified name, following aliases.
func (w *Workspace) LookupQualified(qualified string) (*symbols.Symbol, bool) {
	return w.table.LookupQualified(qualified)
}

// References returns the locations that reference the symbol named
// qualified, sorted. It is empty until a population pass has run.
func (w *Workspace) References(qualified string) []source.Location {
	sym, ok := w.table.LookupQualified(qualified)
	if !ok {
		return nil
	}
	return append([]source.Location(nil), sym.References...)
}

// Diagnostics returns the current diagnostics: every file's population
// errors in path order, then the last validation pass.
func (w *Workspace) Diagnostics() []error {
	var out []error
	for _, p := range w.Files() {
		out = append(out, w.files[p].Errors...)
	}
	return append(out, w.diagnostics...)
}
