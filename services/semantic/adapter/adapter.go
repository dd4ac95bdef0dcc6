// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package adapter connects each supported language to the shared index.
//
// A LanguageAdapter walks one file's AST and writes symbols into the
// symbol table and raw relationships into the relationship graph. A
// RelationshipValidator checks domain relationships using only semantic
// roles, so one validator serves symbols regardless of which adapter
// produced them.
//
// Adding a language means adding one LanguageAdapter and registering it;
// the index types do not change.
package adapter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// ErrNoAdapter is returned when no adapter is registered for a language
// or file name.
var ErrNoAdapter = errors.New("no adapter for language")

// LanguageAdapter populates the index from one language's AST.
type LanguageAdapter interface {
	// Language returns the AST shape this adapter accepts.
	Language() ast.Language

	// Validator returns the relationship validator for this language.
	Validator() RelationshipValidator

	// Imports returns the raw import strings of file, as written.
	Imports(file ast.File) []string

	// Populate walks file and inserts its symbols and relationships.
	//
	// The caller sets the table's current file beforehand. Per-symbol
	// errors are collected and returned; Populate never stops early.
	Populate(file ast.File, table *symbols.Table, graph *relations.Graph) []error
}

// RelationshipValidator checks one relationship between two symbols.
type RelationshipValidator interface {
	// Validate returns a *diag.Error of kind ConstraintViolation if the
	// relationship is not allowed, nil otherwise.
	Validate(kind relations.Kind, source, target *symbols.Symbol) error
}

// Registry maps languages to adapters.
//
// Thread Safety:
//
//	Safe for concurrent reads after construction. Register is not
//	synchronized.
type Registry struct {
	adapters map[ast.Language]LanguageAdapter
}

// NewRegistry returns a registry holding the given adapters.
func NewRegistry(adapters ...LanguageAdapter) *Registry {
	r := &Registry{adapters: make(map[ast.Language]LanguageAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// DefaultRegistry returns a registry with the SysML and KerML adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(NewSysMLAdapter(), NewKerMLAdapter())
}

// Register adds a, replacing any adapter for the same language.
func (r *Registry) Register(a LanguageAdapter) {
	r.adapters[a.Language()] = a
}

// ForLanguage returns the adapter for lang.
func (r *Registry) ForLanguage(lang ast.Language) (LanguageAdapter, error) {
	a, ok := r.adapters[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoAdapter, lang)
	}
	return a, nil
}

// For returns the adapter for the file's AST tag.
func (r *Registry) For(file ast.File) (LanguageAdapter, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: nil file", ErrNoAdapter)
	}
	return r.ForLanguage(file.Language())
}

// ForPath returns the adapter matching the file name's extension.
func (r *Registry) ForPath(path string) (LanguageAdapter, error) {
	lang, ok := ast.LanguageForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: cannot infer language of %s", ErrNoAdapter, path)
	}
	return r.ForLanguage(lang)
}

// Languages returns the registered languages, sorted.
func (r *Registry) Languages() []ast.Language {
	out := make([]ast.Language, 0, len(r.adapters))
	for lang := range r.adapters {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
