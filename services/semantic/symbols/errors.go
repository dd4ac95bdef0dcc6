// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symbols provides the scoped symbol table of the semantic index.
//
// The table is a rooted tree of scopes. Each scope maps simple names to
// symbols and carries the imports declared in it. Adapters push and pop
// scopes while walking an AST and insert one symbol per named element;
// lookups walk lexically from a scope to the root, consulting each level's
// imports and resolving alias chains on the way out.
//
// # Ownership Model
//
// The table owns the symbols inserted into it. Callers may read returned
// symbols freely but should only mutate them through table methods
// (AddReference, ClearReferences); QualifiedName and ScopeID are index
// keys and must not change after insertion.
//
// # Thread Safety
//
// Table is NOT safe for concurrent use. The workspace that owns it is the
// single writer and callers serialize access to the workspace.
package symbols

import "errors"

// Sentinel errors for symbol table operations.
var (
	// ErrScopeUnderflow is returned by ExitScope when the current scope
	// is already the root.
	ErrScopeUnderflow = errors.New("cannot exit the root scope")

	// ErrUnknownScope is returned when a scope ID does not exist.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrNilSymbol is returned when Insert is called with a nil symbol.
	ErrNilSymbol = errors.New("symbol must not be nil")

	// ErrEmptyName is returned when a symbol is inserted under an empty name.
	ErrEmptyName = errors.New("symbol name must not be empty")
)
