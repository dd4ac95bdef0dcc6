// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"strings"

	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// importKeyPrefix namespaces import symbols so they never collide with
// element names in a scope.
const importKeyPrefix = "import:"

// populator is the walk state shared by both language adapters.
type populator struct {
	table *symbols.Table
	graph *relations.Graph

	// namespace holds the simple names of the enclosing named elements.
	namespace []string

	// owners parallels namespace with the enclosing symbols. An entry is
	// nil when the enclosing element failed to insert.
	owners []*symbols.Symbol

	errs []error
}

func newPopulator(table *symbols.Table, graph *relations.Graph) *populator {
	table.ResetScope()
	return &populator{table: table, graph: graph}
}

func (p *populator) qualify(name string) string {
	return symbols.Qualify(strings.Join(p.namespace, symbols.QualifiedSeparator), name)
}

func (p *populator) fail(err error) {
	if err != nil {
		p.errs = append(p.errs, err)
	}
}

// declare inserts sym under name. On a duplicate the error is collected
// and the symbol is not stored; callers still walk the body so nested
// elements are indexed.
func (p *populator) declare(name string, sym *symbols.Symbol) *symbols.Symbol {
	if err := p.table.Insert(name, sym); err != nil {
		p.fail(err)
		return nil
	}
	return sym
}

// nested runs body inside a new scope and namespace level named name.
func (p *populator) nested(name string, owner *symbols.Symbol, body func()) {
	p.namespace = append(p.namespace, name)
	p.owners = append(p.owners, owner)
	p.table.EnterScope()

	body()

	p.fail(p.table.ExitScope())
	p.owners = p.owners[:len(p.owners)-1]
	p.namespace = p.namespace[:len(p.namespace)-1]
}

func (p *populator) currentOwner() *symbols.Symbol {
	if len(p.owners) == 0 {
		return nil
	}
	return p.owners[len(p.owners)-1]
}

// openNamespace declares the file-level namespace and enters it. The
// caller closes it with closeNamespace after walking the file.
func (p *populator) openNamespace(n *ast.Namespace) {
	sym := p.declare(n.Name, &symbols.Symbol{
		Kind:          symbols.KindPackage,
		Name:          n.Name,
		QualifiedName: p.qualify(n.Name),
		Span:          n.Span,
		Role:          symbols.RoleNamespace,
		ElementKind:   "namespace",
	})
	p.namespace = append(p.namespace, n.Name)
	p.owners = append(p.owners, sym)
	p.table.EnterScope()
}

func (p *populator) closeNamespace() {
	p.fail(p.table.ExitScope())
	p.owners = p.owners[:len(p.owners)-1]
	p.namespace = p.namespace[:len(p.namespace)-1]
}

func (p *populator) visitPackage(n *ast.Package, walk func(ast.Elements)) {
	sym := p.declare(n.Name, &symbols.Symbol{
		Kind:          symbols.KindPackage,
		Name:          n.Name,
		QualifiedName: p.qualify(n.Name),
		Span:          n.Span,
		Role:          symbols.RoleNamespace,
		ElementKind:   "package",
		Doc:           n.Doc,
	})
	p.nested(n.Name, sym, func() { walk(n.Body) })
}

// visitImport attaches the import to the current scope and records an
// import symbol. Repeated imports of the same path are ignored.
func (p *populator) visitImport(n *ast.Import) {
	written := n.String()
	key := importKeyPrefix + written
	if scope, err := p.table.Scope(p.table.CurrentScope()); err == nil {
		if _, exists := scope.Get(key); exists {
			return
		}
	}

	p.table.AddImport(symbols.Import{
		Path:      n.Path,
		Recursive: n.Recursive,
		Namespace: n.Namespace || n.Recursive,
		Span:      n.Span,
	})
	p.fail(p.table.Insert(key, &symbols.Symbol{
		Kind:            symbols.KindImport,
		Name:            written,
		QualifiedName:   p.qualify(key),
		Span:            n.Span,
		ElementKind:     "import",
		ImportPath:      n.Path,
		ImportRecursive: n.Recursive,
		ImportNamespace: n.Namespace || n.Recursive,
	}))
}

func (p *populator) visitAlias(n *ast.Alias) {
	qn := p.qualify(n.Name)
	sym := p.declare(n.Name, &symbols.Symbol{
		Kind:          symbols.KindAlias,
		Name:          n.Name,
		QualifiedName: qn,
		Span:          n.Span,
		ElementKind:   "alias",
		Target:        n.Target.Name,
	})
	if sym == nil {
		return
	}
	span := n.Target.Span
	if span == nil {
		span = n.Span
	}
	p.fail(p.graph.SetOneToOne(relations.AliasOf, qn, n.Target.Name, span))
}

// visitComment documents the enclosing element unless it already has a doc.
func (p *populator) visitComment(n *ast.Comment) {
	owner := p.currentOwner()
	if owner == nil || owner.Doc != "" {
		return
	}
	owner.Doc = strings.TrimSpace(n.Text)
}

// relate records one one-to-many edge per ref. The ref's own span is
// used when present, the source element's span otherwise.
func (p *populator) relate(kind relations.Kind, src string, refs []ast.Ref, fallback *symbols.Symbol) {
	for _, ref := range refs {
		if ref.Name == "" {
			continue
		}
		span := ref.Span
		if span == nil && fallback != nil {
			span = fallback.Span
		}
		p.fail(p.graph.AddOneToMany(kind, src, ref.Name, span))
	}
}

// featureName applies anonymous redefinition: an unnamed feature that
// redefines another takes the redefined feature's simple name.
//
// Outputs:
//
//	string - The name to declare under, or "" for no symbol.
//	bool   - False when the element must be skipped entirely, either
//	         anonymous without a redefinition or already declared.
func (p *populator) featureName(name string, redefines []ast.Ref) (string, bool) {
	if name != "" {
		return name, true
	}
	if len(redefines) == 0 || redefines[0].Name == "" {
		return "", false
	}
	name = symbols.SimpleName(redefines[0].Name)
	if _, exists := p.table.LookupQualifiedNoAlias(p.qualify(name)); exists {
		return "", false
	}
	return name, true
}

func importStrings(file ast.File) []string {
	imports := ast.CollectImports(file.TopLevel())
	if len(imports) == 0 {
		return nil
	}
	out := make([]string, 0, len(imports))
	seen := make(map[string]bool, len(imports))
	for _, imp := range imports {
		s := imp.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
