// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loader discovers and decodes the AST documents of a corpus.
//
// Discovery walks a root directory for files with the configured
// suffixes, skipping hidden entries, symlinks and .gitignore matches.
// Decoding runs on a bounded worker pool. Results are always sorted by
// path so population order is reproducible.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/config"
)

var tracer = otel.Tracer("syslens.loader")

// StdlibPrefix prefixes the workspace paths of stdlib documents.
const StdlibPrefix = "stdlib/"

// ErrTooLarge is returned for files over Options.MaxFileSize.
var ErrTooLarge = errors.New("file exceeds size limit")

// Options configures Load.
type Options struct {
	// Root is the corpus directory.
	Root string

	// StdlibPath, when set, is loaded before Root. Its documents get
	// StdlibPrefix-ed paths.
	StdlibPath string

	// Suffixes are matched case-insensitively against file names.
	Suffixes []string

	// RespectGitignore skips paths matched by Root's .gitignore.
	RespectGitignore bool

	// Workers bounds parallel decoding. Values below 1 mean 1.
	Workers int

	// MaxFileSize skips larger files. Zero disables the limit.
	MaxFileSize int64

	// Logger receives discovery and skip messages.
	Logger *slog.Logger
}

// FromConfig converts the loader section of a config.
func FromConfig(cfg config.LoaderConfig) Options {
	return Options{
		Root:             cfg.Root,
		StdlibPath:       cfg.StdlibPath,
		Suffixes:         append([]string(nil), cfg.Suffixes...),
		RespectGitignore: cfg.RespectGitignore,
		Workers:          cfg.Workers,
		MaxFileSize:      cfg.MaxFileSize,
	}
}

// Document is one decoded file.
type Document struct {
	// Path is the workspace path: slash-separated and relative to Root,
	// or StdlibPrefix plus the path relative to StdlibPath.
	Path string

	// Abs is the file's path on disk.
	Abs string

	File ast.File
}

// Result is the output of Load.
type Result struct {
	// Documents are the decoded files, stdlib first, each group sorted.
	Documents []Document

	// Skipped are the workspace paths of files over the size limit.
	Skipped []string
}

// FileError is one file that failed to load.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// LoadError aggregates every per-file failure of one Load.
type LoadError struct {
	Failures []FileError
}

// Error lists each failure on its own line after a count.
func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d file(s) failed to load", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n  ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes the failures to errors.Is and errors.As.
func (e *LoadError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}

func (e *LoadError) add(path string, err error) {
	e.Failures = append(e.Failures, FileError{Path: path, Err: err})
}

func (e *LoadError) orNil() error {
	if e == nil || len(e.Failures) == 0 {
		return nil
	}
	sort.Slice(e.Failures, func(i, j int) bool { return e.Failures[i].Path < e.Failures[j].Path })
	return e
}

// Load discovers and decodes every document.
//
// Description:
//
//	Per-file failures do not stop the load. They are returned as a
//	*LoadError next to a Result holding every file that did decode.
//	A root that cannot be walked is returned as a plain error.
//
// Inputs:
//
//	ctx  - Cancels decoding between files.
//	opts - Discovery and decode options.
//
// Outputs:
//
//	*Result - Never nil.
//	error   - A *LoadError, a walk failure, or ctx's error.
func Load(ctx context.Context, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Loader.Load", trace.WithAttributes(
		attribute.String("loader.root", opts.Root),
	))
	defer span.End()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &Result{}
	loadErr := &LoadError{}

	var groups []tree
	if opts.StdlibPath != "" {
		groups = append(groups, tree{dir: opts.StdlibPath, prefix: StdlibPrefix})
	}
	groups = append(groups, tree{dir: opts.Root, gitignore: opts.RespectGitignore})

	for _, g := range groups {
		paths, err := discover(g.dir, opts.Suffixes, g.gitignore)
		if err != nil {
			return res, fmt.Errorf("discover %s: %w", g.dir, err)
		}
		logger.Debug("documents discovered", slog.String("dir", g.dir), slog.Int("count", len(paths)))

		docs, err := decodeAll(ctx, g, paths, opts, res, loadErr, logger)
		if err != nil {
			return res, err
		}
		res.Documents = append(res.Documents, docs...)
	}

	span.SetAttributes(
		attribute.Int("loader.documents", len(res.Documents)),
		attribute.Int("loader.failures", len(loadErr.Failures)),
	)
	return res, loadErr.orNil()
}

type tree struct {
	dir       string
	prefix    string
	gitignore bool
}

func decodeAll(ctx context.Context, g tree, rels []string, opts Options, res *Result, loadErr *LoadError, logger *slog.Logger) ([]Document, error) {
	type outcome struct {
		doc     Document
		err     error
		skipped bool
	}
	outcomes := make([]outcome, len(rels))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, rel := range rels {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			abs := filepath.Join(g.dir, filepath.FromSlash(rel))
			f, err := ReadDocument(abs, opts.MaxFileSize)
			switch {
			case errors.Is(err, ErrTooLarge):
				outcomes[i] = outcome{skipped: true}
			case err != nil:
				outcomes[i] = outcome{err: err}
			default:
				outcomes[i] = outcome{doc: Document{Path: g.prefix + rel, Abs: abs, File: f}}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(rels))
	for i, o := range outcomes {
		path := g.prefix + rels[i]
		switch {
		case o.skipped:
			res.Skipped = append(res.Skipped, path)
			logger.Warn("document skipped", slog.String("path", path), slog.String("reason", ErrTooLarge.Error()))
		case o.err != nil:
			loadErr.add(path, o.err)
		default:
			docs = append(docs, o.doc)
		}
	}
	return docs, nil
}

// ReadDocument reads and decodes one file.
//
// Outputs:
//
//	ast.File - The decoded AST.
//	error    - ErrTooLarge, a read error, or a decode error.
func ReadDocument(abs string, maxSize int64) (ast.File, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, info.Size(), maxSize)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return ast.Decode(abs, data)
}

// Matches reports whether name ends in one of suffixes, ignoring case.
func Matches(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// discover returns the slash-separated paths under root, relative to it
// and sorted.
func discover(root string, suffixes []string, useGitignore bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var gi *ignore.GitIgnore
	if useGitignore {
		if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			gi = compiled
		}
	}

	var out []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if p != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if p != root && gi != nil && gi.MatchesPath(relSlash(root, p)+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !Matches(name, suffixes) {
			return nil
		}
		rel := relSlash(root, p)
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func relSlash(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return path.Clean(filepath.ToSlash(rel))
}

// FileAdder is the part of a workspace LoadInto needs.
type FileAdder interface {
	AddFile(path string, content ast.File) error
}

// LoadInto loads opts and adds every document to ws in order.
//
// Outputs:
//
//	*Result - The load result. Never nil.
//	error   - A *LoadError covering decode and add failures, or a
//	          discovery error.
func LoadInto(ctx context.Context, ws FileAdder, opts Options) (*Result, error) {
	res, err := Load(ctx, opts)
	var loadErr *LoadError
	if err != nil && !errors.As(err, &loadErr) {
		return res, err
	}
	if loadErr == nil {
		loadErr = &LoadError{}
	}
	for _, doc := range res.Documents {
		if err := ws.AddFile(doc.Path, doc.File); err != nil {
			loadErr.add(doc.Path, err)
		}
	}
	return res, loadErr.orNil()
}
