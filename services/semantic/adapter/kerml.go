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

// KerMLAdapter populates the index from KerML ASTs. KerML is purely
// structural, so its validator accepts every relationship.
type KerMLAdapter struct {
	validator KerMLValidator
}

// NewKerMLAdapter returns the KerML adapter.
func NewKerMLAdapter() *KerMLAdapter {
	return &KerMLAdapter{}
}

// Language implements LanguageAdapter.
func (a *KerMLAdapter) Language() ast.Language { return ast.LanguageKerML }

// Validator implements LanguageAdapter.
func (a *KerMLAdapter) Validator() RelationshipValidator { return a.validator }

// Imports implements LanguageAdapter.
func (a *KerMLAdapter) Imports(file ast.File) []string {
	return importStrings(file)
}

// Populate implements LanguageAdapter.
func (a *KerMLAdapter) Populate(file ast.File, table *symbols.Table, graph *relations.Graph) []error {
	f, ok := file.(*ast.KerMLFile)
	if !ok {
		return []error{fmt.Errorf("%w: kerml adapter given %T", ErrNoAdapter, file)}
	}

	v := &kermlVisitor{populator: newPopulator(table, graph)}
	if f.Namespace != nil {
		v.VisitNamespace(f.Namespace)
		ast.WalkKerML(v, f.Elements)
		v.closeNamespace()
	} else {
		ast.WalkKerML(v, f.Elements)
	}
	return v.errs
}

type kermlVisitor struct {
	*populator
}

var _ ast.KerMLVisitor = (*kermlVisitor)(nil)

func (v *kermlVisitor) walk(elements ast.Elements) { ast.WalkKerML(v, elements) }

func (v *kermlVisitor) VisitNamespace(n *ast.Namespace) { v.openNamespace(n) }
func (v *kermlVisitor) VisitPackage(n *ast.Package) { v.visitPackage(n, v.walk) }
func (v *kermlVisitor) VisitImport(n *ast.Import) { v.visitImport(n) }
func (v *kermlVisitor) VisitAlias(n *ast.Alias) { v.visitAlias(n) }
func (v *kermlVisitor) VisitComment(n *ast.Comment) { v.visitComment(n) }

func (v *kermlVisitor) VisitClassifier(n *ast.Classifier) {
	if n.Name == "" {
		return
	}
	qn := v.qualify(n.Name)
	sym := v.declare(n.Name, &symbols.Symbol{
		Kind:          symbols.KindClassifier,
		Name:          n.Name,
		QualifiedName: qn,
		Span:          n.Span,
		Role:          KerMLRole(n.Kind),
		ElementKind:   n.Kind,
		Abstract:      n.Abstract,
		Doc:           n.Doc,
	})
	if sym != nil {
		v.relate(relations.Specialization, qn, n.Specializes, sym)
		if n.Conjugates != nil && n.Conjugates.Name != "" {
			span := n.Conjugates.Span
			if span == nil {
				span = n.Span
			}
			v.fail(v.graph.SetOneToOne(relations.Conjugation, qn, n.Conjugates.Name, span))
		}
		for _, ref := range n.DisjointFrom {
			if ref.Name != "" {
				v.fail(v.graph.AddSymmetric(relations.Disjoining, qn, ref.Name))
			}
		}
	}
	v.nested(n.Name, sym, func() { v.walk(n.Body) })
}

func (v *kermlVisitor) VisitFeature(n *ast.Feature) {
	name, ok := v.featureName(n.Name, n.Redefines)
	if !ok {
		return
	}
	kind := n.Kind
	if kind == "" {
		kind = "feature"
	}
	qn := v.qualify(name)
	sym := v.declare(name, &symbols.Symbol{
		Kind:          symbols.KindFeature,
		Name:          name,
		QualifiedName: qn,
		Span:          n.Span,
		Role:          KerMLRole(kind),
		ElementKind:   kind,
		Doc:           n.Doc,
	})
	if sym != nil {
		v.relate(relations.Typing, qn, n.TypedBy, sym)
		v.relate(relations.Subsetting, qn, n.Subsets, sym)
		v.relate(relations.Redefinition, qn, n.Redefines, sym)
	}
	v.nested(name, sym, func() { v.walk(n.Body) })
}
