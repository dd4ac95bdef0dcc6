// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbols

import (
	"sort"

	"github.com/AleutianAI/syslens/services/semantic/source"
)

// RootScopeID is the ID of the root scope of every table.
const RootScopeID = 0

// NoParent is the Parent value of the root scope.
const NoParent = -1

// Import is one import declaration attached to a scope.
type Import struct {
	// Path is the imported path as written, without any "::*" suffix.
	Path string

	// Recursive is set for "::**" imports.
	Recursive bool

	// Namespace is set for "::*" and "::**" imports. A member import
	// brings only Path itself into scope.
	Namespace bool

	// File is the source file that declared the import.
	File string

	// Span is the declaration span, if known.
	Span *source.Span
}

// Scope is one node of the scope tree.
type Scope struct {
	// ID is the index of this scope in the table.
	ID int

	// Parent is the enclosing scope, or NoParent for the root.
	Parent int

	// Children are the nested scopes in creation order.
	Children []int

	// Imports are the imports declared directly in this scope.
	Imports []Import

	symbols map[string]*Symbol
}

func newScope(id, parent int) *Scope {
	return &Scope{
		ID:      id,
		Parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// Get returns the symbol stored under name in this scope only.
func (s *Scope) Get(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Len returns the number of symbols directly in this scope.
func (s *Scope) Len() int {
	return len(s.symbols)
}

// Names returns the names bound in this scope, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
