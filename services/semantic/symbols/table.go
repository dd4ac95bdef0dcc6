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
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/syslens/services/semantic/diag"
	"github.com/AleutianAI/syslens/services/semantic/source"
)

// DefaultMaxAliasDepth bounds alias chain resolution.
const DefaultMaxAliasDepth = 32

// TableOptions configures a Table.
type TableOptions struct {
	// MaxAliasDepth is the longest alias chain Lookup follows.
	MaxAliasDepth int
}

// TableOption configures a Table.
type TableOption func(*TableOptions)

// WithMaxAliasDepth sets the alias chain bound. Values below 1 are ignored.
func WithMaxAliasDepth(n int) TableOption {
	return func(o *TableOptions) {
		if n > 0 {
			o.MaxAliasDepth = n
		}
	}
}

// Table is the scoped symbol table.
//
// Description:
//
//	Table stores symbols in a tree of scopes rooted at RootScopeID.
//	A secondary qualified-name index makes LookupQualified O(1) while
//	keeping the "first inserted wins" order of an exhaustive scan.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type Table struct {
	scopes      []*Scope
	current     int
	currentFile string

	// byQualified lists symbols per qualified name in insertion order.
	byQualified map[string][]*Symbol

	maxAliasDepth int
}

// NewTable creates a table holding only the root scope.
func NewTable(opts ...TableOption) *Table {
	options := TableOptions{MaxAliasDepth: DefaultMaxAliasDepth}
	for _, opt := range opts {
		opt(&options)
	}
	return &Table{
		scopes:        []*Scope{newScope(RootScopeID, NoParent)},
		current:       RootScopeID,
		byQualified:   make(map[string][]*Symbol),
		maxAliasDepth: options.MaxAliasDepth,
	}
}

// EnterScope creates a child of the current scope, makes it current and
// returns its ID.
func (t *Table) EnterScope() int {
	id := len(t.scopes)
	t.scopes = append(t.scopes, newScope(id, t.current))
	t.scopes[t.current].Children = append(t.scopes[t.current].Children, id)
	t.current = id
	return id
}

// ExitScope makes the parent of the current scope current.
//
// Outputs:
//
//	error - ErrScopeUnderflow when already at the root.
func (t *Table) ExitScope() error {
	parent := t.scopes[t.current].Parent
	if parent == NoParent {
		return ErrScopeUnderflow
	}
	t.current = parent
	return nil
}

// CurrentScope returns the ID of the current scope.
func (t *Table) CurrentScope() int {
	return t.current
}

// ResetScope makes the root scope current. Adapters call it before walking
// a new file so an unbalanced walk cannot leak into the next one.
func (t *Table) ResetScope() {
	t.current = RootScopeID
}

// SetCurrentFile sets the file every subsequently inserted symbol is
// tagged with. An empty path disables tagging.
func (t *Table) SetCurrentFile(path string) {
	t.currentFile = path
}

// CurrentFile returns the file set by SetCurrentFile.
func (t *Table) CurrentFile() string {
	return t.currentFile
}

// Scope returns the scope with the given ID.
func (t *Table) Scope(id int) (*Scope, error) {
	if id < 0 || id >= len(t.scopes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScope, id)
	}
	return t.scopes[id], nil
}

// ScopeCount returns the number of scopes, root included.
func (t *Table) ScopeCount() int {
	return len(t.scopes)
}

// Insert binds name to sym in the current scope.
//
// Description:
//
//	The symbol's ScopeID is set to the current scope and, when a current
//	file is set, its SourceFile to that file. An empty Name or
//	QualifiedName defaults to name.
//
// Outputs:
//
//	error - *diag.Error of kind DuplicateDefinition when name is already
//	        bound in the current scope. Bindings in enclosing or sibling
//	        scopes never conflict.
func (t *Table) Insert(name string, sym *Symbol) error {
	if sym == nil {
		return ErrNilSymbol
	}
	if name == "" {
		return ErrEmptyName
	}

	scope := t.scopes[t.current]
	if existing, ok := scope.symbols[name]; ok {
		var first *source.Location
		if loc, ok := existing.Location(); ok {
			first = &loc
		}
		err := diag.DuplicateDefinition(name, first)
		if sym.Span != nil && t.currentFile != "" {
			err = err.At(source.Location{File: t.currentFile, Span: *sym.Span})
		} else if loc, ok := sym.Location(); ok {
			err = err.At(loc)
		}
		return err
	}

	if t.currentFile != "" {
		sym.SourceFile = t.currentFile
	}

	if sym.Name == "" {
		sym.Name = name
	}
	if sym.QualifiedName == "" {
		sym.QualifiedName = name
	}
	sym.ScopeID = t.current
	scope.symbols[name] = sym
	t.byQualified[sym.QualifiedName] = append(t.byQualified[sym.QualifiedName], sym)
	return nil
}

// AddImport attaches an import to the current scope, tagged with the
// current file.
func (t *Table) AddImport(imp Import) {
	if imp.File == "" {
		imp.File = t.currentFile
	}
	scope := t.scopes[t.current]
	scope.Imports = append(scope.Imports, imp)
}

// Lookup resolves name from the current scope.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	return t.LookupFromScope(name, t.current)
}

// LookupFromScope resolves name starting at scopeID.
//
// Description:
//
//	Walks from scopeID to the root. At each level the scope's own bindings
//	are checked first, then its imports. A name containing "::" is tried as
//	an exact qualified name, then by resolving its first segment lexically
//	and appending the rest. The result is passed through alias resolution.
//
// Outputs:
//
//	*Symbol - The resolved symbol.
//	bool    - False when nothing matched or scopeID is unknown.
func (t *Table) LookupFromScope(name string, scopeID int) (*Symbol, bool) {
	sym := t.lookupRaw(name, scopeID)
	if sym == nil {
		return nil, false
	}
	return t.resolveAlias(sym), true
}

// LookupQualified returns the first symbol inserted with exactly this
// qualified name, resolving aliases.
func (t *Table) LookupQualified(qualified string) (*Symbol, bool) {
	sym := t.exact(qualified)
	if sym == nil {
		return nil, false
	}
	return t.resolveAlias(sym), true
}

// LookupQualifiedNoAlias is LookupQualified without alias resolution.
func (t *Table) LookupQualifiedNoAlias(qualified string) (*Symbol, bool) {
	sym := t.exact(qualified)
	return sym, sym != nil
}

func (t *Table) exact(qualified string) *Symbol {
	if syms := t.byQualified[qualified]; len(syms) > 0 {
		return syms[0]
	}
	return nil
}

func (t *Table) lookupRaw(name string, scopeID int) *Symbol {
	if scopeID < 0 || scopeID >= len(t.scopes) || name == "" {
		return nil
	}

	for id := scopeID; id != NoParent; id = t.scopes[id].Parent {
		scope := t.scopes[id]
		if sym, ok := scope.symbols[name]; ok {
			return sym
		}
		if sym := t.lookupViaImports(scope, name); sym != nil {
			return sym
		}
	}

	if !strings.Contains(name, QualifiedSeparator) {
		return nil
	}
	if sym := t.exact(name); sym != nil {
		return sym
	}
	head, rest, _ := strings.Cut(name, QualifiedSeparator)
	base := t.lookupRaw(head, scopeID)
	if base == nil {
		return nil
	}
	base = t.resolveAlias(base)
	return t.exact(base.QualifiedName + QualifiedSeparator + rest)
}

func (t *Table) lookupViaImports(scope *Scope, name string) *Symbol {
	for _, imp := range scope.Imports {
		if !imp.Namespace {
			if SimpleName(imp.Path) == name {
				if sym := t.exact(imp.Path); sym != nil {
					return sym
				}
			}
			continue
		}
		if sym := t.exact(Qualify(imp.Path, name)); sym != nil {
			return sym
		}
		if imp.Recursive {
			if sym := t.recursiveMatch(imp.Path, name); sym != nil {
				return sym
			}
		}
	}
	return nil
}

// recursiveMatch returns the lexicographically smallest qualified name
// under prefix ending in "::name".
func (t *Table) recursiveMatch(prefix, name string) *Symbol {
	wantPrefix := prefix + QualifiedSeparator
	wantSuffix := QualifiedSeparator + name
	best := ""
	for qn, syms := range t.byQualified {
		if len(syms) == 0 || !strings.HasPrefix(qn, wantPrefix) || !strings.HasSuffix(qn, wantSuffix) {
			continue
		}
		if best == "" || qn < best {
			best = qn
		}
	}
	if best == "" {
		return nil
	}
	return t.byQualified[best][0]
}

// resolveAlias follows alias targets until a non-alias is reached, the
// target cannot be found, or the depth bound is hit. In the last two cases
// the last alias reached is returned.
func (t *Table) resolveAlias(sym *Symbol) *Symbol {
	seen := make(map[*Symbol]struct{})
	for depth := 0; sym.Kind == KindAlias && depth < t.maxAliasDepth; depth++ {
		if _, loop := seen[sym]; loop {
			return sym
		}
		seen[sym] = struct{}{}
		next := t.lookupRaw(sym.Target, sym.ScopeID)
		if next == nil || next == sym {
			return sym
		}
		sym = next
	}
	return sym
}

// ResolvesImport reports whether imp points at something in the table.
// Namespace imports need the namespace itself; member imports need the member.
func (t *Table) ResolvesImport(imp Import) bool {
	return t.exact(imp.Path) != nil
}

// Imports returns every import in the table, in scope order.
func (t *Table) Imports() []Import {
	var out []Import
	for _, scope := range t.scopes {
		out = append(out, scope.Imports...)
	}
	return out
}

// RemoveSymbolsFromFile purges every symbol and import tagged with path,
// from every scope. It returns the number of symbols removed.
func (t *Table) RemoveSymbolsFromFile(path string) int {
	removed := 0
	for _, scope := range t.scopes {
		for name, sym := range scope.symbols {
			if sym.SourceFile != path {
				continue
			}
			delete(scope.symbols, name)
			t.unindex(sym)
			removed++
		}
		if len(scope.Imports) == 0 {
			continue
		}
		kept := scope.Imports[:0]
		for _, imp := range scope.Imports {
			if imp.File != path {
				kept = append(kept, imp)
			}
		}
		scope.Imports = kept
	}
	return removed
}

func (t *Table) unindex(sym *Symbol) {
	syms := t.byQualified[sym.QualifiedName]
	for i, s := range syms {
		if s == sym {
			syms = append(syms[:i], syms[i+1:]...)
			break
		}
	}
	if len(syms) == 0 {
		delete(t.byQualified, sym.QualifiedName)
		return
	}
	t.byQualified[sym.QualifiedName] = syms
}

// SymbolsInFile returns the symbols tagged with path, sorted by qualified name.
func (t *Table) SymbolsInFile(path string) []*Symbol {
	var out []*Symbol
	for _, scope := range t.scopes {
		for _, sym := range scope.symbols {
			if sym.SourceFile == path {
				out = append(out, sym)
			}
		}
	}
	SortByQualifiedName(out)
	return out
}

// AllSymbols returns every symbol, sorted by qualified name.
func (t *Table) AllSymbols() []*Symbol {
	out := make([]*Symbol, 0, t.Len())
	for _, scope := range t.scopes {
		for _, sym := range scope.symbols {
			out = append(out, sym)
		}
	}
	SortByQualifiedName(out)
	return out
}

// Len returns the total number of symbols in all scopes.
func (t *Table) Len() int {
	n := 0
	for _, scope := range t.scopes {
		n += len(scope.symbols)
	}
	return n
}

// FindBySimpleName returns the qualified-name-smallest symbol whose simple
// name is name, without alias resolution.
func (t *Table) FindBySimpleName(name string) (*Symbol, bool) {
	best := ""
	for qn, syms := range t.byQualified {
		if len(syms) == 0 || SimpleName(qn) != name {
			continue
		}
		if best == "" || qn < best {
			best = qn
		}
	}
	if best == "" {
		return nil, false
	}
	return t.byQualified[best][0], true
}

// AddReference records loc as a use site of the symbol with the given
// qualified name. Duplicate locations are ignored. Returns false when no
// such symbol exists.
func (t *Table) AddReference(qualified string, loc source.Location) bool {
	sym := t.exact(qualified)
	if sym == nil {
		return false
	}
	for _, existing := range sym.References {
		if existing == loc {
			return true
		}
	}
	sym.References = append(sym.References, loc)
	return true
}

// SortReferences orders every symbol's references by file and position.
func (t *Table) SortReferences() {
	for _, scope := range t.scopes {
		for _, sym := range scope.symbols {
			refs := sym.References
			sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
		}
	}
}

// ClearReferences drops the references of every symbol.
func (t *Table) ClearReferences() {
	for _, scope := range t.scopes {
		for _, sym := range scope.symbols {
			sym.References = nil
		}
	}
}
