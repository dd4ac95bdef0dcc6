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
	"fmt"

	"github.com/AleutianAI/syslens/services/semantic/ast"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// SysMLAdapter populates the index from SysML ASTs.
type SysMLAdapter struct {
	validator SysMLValidator
}

// NewSysMLAdapter returns the SysML adapter.
func NewSysMLAdapter() *SysMLAdapter {
	return &SysMLAdapter{}
}

// Language implements LanguageAdapter.
func (a *SysMLAdapter) Language() ast.Language { return ast.LanguageSysML }

// Validator implements LanguageAdapter.
func (a *SysMLAdapter) Validator() RelationshipValidator { return a.validator }

// Imports implements LanguageAdapter.
func (a *SysMLAdapter) Imports(file ast.File) []string {
	return importStrings(file)
}

// Populate implements LanguageAdapter.
//
// Description:
//
//	Walks the file from the root scope. Each named element becomes one
//	symbol whose qualified name is built from the enclosing element
//	names; each declared relationship becomes one raw edge keyed by the
//	source's qualified name and the target as written.
//
// Outputs:
//
//	[]error - DuplicateDefinition errors and graph errors, in walk order.
func (a *SysMLAdapter) Populate(file ast.File, table *symbols.Table, graph *relations.Graph) []error {
	f, ok := file.(*ast.SysMLFile)
	if !ok {
		return []error{fmt.Errorf("%w: sysml adapter given %T", ErrNoAdapter, file)}
	}

	v := &sysmlVisitor{populator: newPopulator(table, graph)}
	if f.Namespace != nil {
		v.VisitNamespace(f.Namespace)
		ast.WalkSysML(v, f.Elements)
		v.closeNamespace()
	} else {
		ast.WalkSysML(v, f.Elements)
	}
	return v.errs
}

type sysmlVisitor struct {
	*populator
}

var _ ast.SysMLVisitor = (*sysmlVisitor)(nil)

func (v *sysmlVisitor) walk(elements ast.Elements) { ast.WalkSysML(v, elements) }

func (v *sysmlVisitor) VisitNamespace(n *ast.Namespace) { v.openNamespace(n) }
func (v *sysmlVisitor) VisitPackage(n *ast.Package) { v.visitPackage(n, v.walk) }
func (v *sysmlVisitor) VisitImport(n *ast.Import) { v.visitImport(n) }
func (v *sysmlVisitor) VisitAlias(n *ast.Alias) { v.visitAlias(n) }
func (v *sysmlVisitor) VisitComment(n *ast.Comment) { v.visitComment(n) }

func (v *sysmlVisitor) VisitDefinition(n *ast.Definition) {
	if n.Name == "" {
		return
	}
	qn := v.qualify(n.Name)
	sym := v.declare(n.Name, &symbols.Symbol{
		Kind:          symbols.KindDefinition,
		Name:          n.Name,
		QualifiedName: qn,
		Span:          n.Span,
		Role:          SysMLRole(n.Kind),
		ElementKind:   n.Kind,
		Abstract:      n.Abstract,
		Doc:           n.Doc,
	})
	if sym != nil {
		v.relate(relations.Specialization, qn, n.Specializes, sym)
	}
	v.nested(n.Name, sym, func() { v.walk(n.Body) })
}

func (v *sysmlVisitor) VisitUsage(n *ast.Usage) {
	name, ok := v.featureName(n.Name, n.Redefines)
	if !ok {
		return
	}
	qn := v.qualify(name)
	sym := v.declare(name, &symbols.Symbol{
		Kind:          symbols.KindUsage,
		Name:          name,
		QualifiedName: qn,
		Span:          n.Span,
		Role:          SysMLRole(n.Kind),
		ElementKind:   n.Kind,
		Doc:           n.Doc,
	})
	if sym != nil {
		v.relate(relations.Typing, qn, n.TypedBy, sym)
		v.relate(relations.Subsetting, qn, n.Subsets, sym)
		v.relate(relations.Redefinition, qn, n.Redefines, sym)
		v.relate(relations.ReferenceSubsetting, qn, n.ReferenceSubsets, sym)
		v.relate(relations.Satisfy, qn, n.Satisfies, sym)
		v.relate(relations.Perform, qn, n.Performs, sym)
		v.relate(relations.Exhibit, qn, n.Exhibits, sym)
		v.relate(relations.Include, qn, n.Includes, sym)
	}
	v.nested(name, sym, func() { v.walk(n.Body) })
}

// VisitBinding relates both ends, qualified by the enclosing body.
func (v *sysmlVisitor) VisitBinding(n *ast.Binding) {
	if n.Left.Name == "" || n.Right.Name == "" {
		return
	}
	v.fail(v.graph.AddSymmetric(relations.Binding, v.qualify(n.Left.Name), v.qualify(n.Right.Name)))
}
