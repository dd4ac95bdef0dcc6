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
	"errors"
	"fmt"

	"github.com/AleutianAI/syslens/services/semantic/adapter"
	"github.com/AleutianAI/syslens/services/semantic/diag"
	"github.com/AleutianAI/syslens/services/semantic/relations"
	"github.com/AleutianAI/syslens/services/semantic/source"
	"github.com/AleutianAI/syslens/services/semantic/symbols"
)

// maxInheritanceDepth bounds the supertype walk of inherited lookups.
const maxInheritanceDepth = 64

// resolvedKinds are the one-to-many kinds whose raw targets the
// validation pass rewrites to qualified names. Specialization comes
// first so inherited lookups walk canonical supertypes.
var resolvedKinds = []relations.Kind{
	relations.Specialization,
	relations.Typing,
	relations.Redefinition,
	relations.Subsetting,
	relations.ReferenceSubsetting,
	relations.Satisfy,
	relations.Perform,
	relations.Exhibit,
	relations.Include,
}

// validate resolves every raw edge target and checks the whole index.
//
// Description:
//
//	Targets are resolved from the scope of the edge's source symbol;
//	resolved edges are rewritten to the target's qualified name and
//	unresolved ones are reported. The resolved edges are then checked
//	for kind compatibility, circular specialization, redefinition
//	context and domain constraints. Imports and file cycles are
//	reported as warnings.
//
// Outputs:
//
//	[]error - Diagnostics in a deterministic order.
func (w *Workspace) validate() []error {
	var out diag.List

	for _, kind := range resolvedKinds {
		for _, src := range w.graph.Sources(kind) {
			w.canonicalize(kind, src, &out)
		}
	}
	w.checkOneToOne(relations.AliasOf, &out)
	w.checkOneToOne(relations.Conjugation, &out)

	w.checkTargetKinds(&out)
	w.checkSpecializationCycles(&out)
	w.checkRedefinitionContext(&out)
	w.checkDomainConstraints(&out)
	w.checkImports(&out)

	for _, cycle := range w.deps.Cycles() {
		out.Add(diag.CircularDependency(cycle).AsWarning())
	}
	return out.Errors
}

// canonicalize rewrites the targets of src for kind.
func (w *Workspace) canonicalize(kind relations.Kind, src string, out *diag.List) {
	from, ok := w.table.LookupQualifiedNoAlias(src)
	if !ok {
		return
	}
	resolved := make(map[string]string)
	for _, edge := range w.graph.TargetsWithSpans(kind, src) {
		target := w.resolveTarget(kind, from, edge.Target)
		if target == nil {
			out.Add(locate(diag.UndefinedReference(edge.Target), from, edge.Span))
			continue
		}
		resolved[edge.Target] = target.QualifiedName
	}
	w.graph.Retarget(kind, src, func(t string) string {
		if qn, ok := resolved[t]; ok {
			return qn
		}
		return t
	})
}

// resolveTarget resolves name as written on an edge of from.
//
// Lexical lookup from the source's scope comes first. Redefinition and
// subsetting may also name a feature inherited by the owner, found by
// walking the owner's supertypes.
func (w *Workspace) resolveTarget(kind relations.Kind, from *symbols.Symbol, name string) *symbols.Symbol {
	inheritable := kind == relations.Redefinition || kind == relations.Subsetting || kind == relations.ReferenceSubsetting
	if sym, ok := w.table.LookupFromScope(name, from.ScopeID); ok {
		// An anonymous redefinition is declared under the name it
		// redefines, so lexical lookup finds the feature itself.
		if !inheritable || sym != from {
			return sym
		}
	}
	if !inheritable {
		return nil
	}
	return w.inheritedFeature(from.Owner(), symbols.SimpleName(name))
}

// inheritedFeature finds member in a supertype of owner, breadth first.
func (w *Workspace) inheritedFeature(owner, member string) *symbols.Symbol {
	ownerSym, ok := w.table.LookupQualifiedNoAlias(owner)
	if !ok {
		return nil
	}
	visited := map[string]bool{ownerSym.QualifiedName: true}
	queue := w.supertypes(ownerSym)
	for depth := 0; len(queue) > 0 && depth < maxInheritanceDepth; depth++ {
		var next []*symbols.Symbol
		for _, super := range queue {
			if visited[super.QualifiedName] {
				continue
			}
			visited[super.QualifiedName] = true
			if sym, ok := w.table.LookupQualified(symbols.Qualify(super.QualifiedName, member)); ok {
				return sym
			}
			next = append(next, w.supertypes(super)...)
		}
		queue = next
	}
	return nil
}

// supertypes returns the resolved specialization and typing targets of sym.
func (w *Workspace) supertypes(sym *symbols.Symbol) []*symbols.Symbol {
	var out []*symbols.Symbol
	for _, kind := range []relations.Kind{relations.Specialization, relations.Typing} {
		for _, t := range w.graph.Targets(kind, sym.QualifiedName) {
			if super, ok := w.table.LookupFromScope(t, sym.ScopeID); ok {
				out = append(out, super)
			}
		}
	}
	return out
}

func (w *Workspace) checkOneToOne(kind relations.Kind, out *diag.List) {
	for _, rel := range w.graph.Relations(kind) {
		from, ok := w.table.LookupQualifiedNoAlias(rel.Source)
		if !ok {
			continue
		}
		if _, ok := w.table.LookupFromScope(rel.Target, from.ScopeID); !ok {
			out.Add(locate(diag.UndefinedReference(rel.Target), from, rel.Span))
		}
	}
}

// checkTargetKinds reports edges whose resolved target has the wrong kind.
func (w *Workspace) checkTargetKinds(out *diag.List) {
	for _, kind := range relations.ReferenceKinds {
		for _, rel := range w.graph.Relations(kind) {
			from, target, ok := w.endpoints(rel)
			if !ok {
				continue
			}
			if err := targetKindError(kind, from, target); err != nil {
				out.Add(locate(err, from, rel.Span))
			}
		}
	}
}

func targetKindError(kind relations.Kind, from, target *symbols.Symbol) *diag.Error {
	switch kind {
	case relations.Typing:
		if !target.IsType() {
			return diag.InvalidType(target.QualifiedName, fmt.Sprintf("'%s' is a %s, not a type", target.QualifiedName, target.Kind))
		}
	case relations.Specialization:
		if !target.IsType() {
			return diag.InvalidSpecialization(from.QualifiedName, target.QualifiedName, "target is a "+target.Kind.String()+", not a type")
		}
	case relations.Redefinition:
		if !target.IsFeature() {
			return diag.InvalidRedefinition(from.QualifiedName, target.QualifiedName, "target is a "+target.Kind.String()+", not a feature")
		}
	case relations.Subsetting, relations.ReferenceSubsetting:
		if !target.IsFeature() {
			return diag.InvalidSubsetting(from.QualifiedName, target.QualifiedName, "target is a "+target.Kind.String()+", not a feature")
		}
	}
	return nil
}

func (w *Workspace) checkSpecializationCycles(out *diag.List) {
	for _, rel := range w.graph.Relations(relations.Specialization) {
		from, _, ok := w.endpoints(rel)
		if !ok {
			continue
		}
		if w.graph.HasTransitivePath(relations.Specialization, rel.Target, rel.Source) {
			out.Add(locate(diag.InvalidSpecialization(rel.Source, rel.Target, "circular specialization"), from, rel.Span))
		}
	}
}

// checkRedefinitionContext reports redefinitions outside a type or feature.
func (w *Workspace) checkRedefinitionContext(out *diag.List) {
	for _, src := range w.graph.Sources(relations.Redefinition) {
		from, ok := w.table.LookupQualifiedNoAlias(src)
		if !ok {
			continue
		}
		owner, ok := w.table.LookupQualifiedNoAlias(from.Owner())
		if ok && (owner.IsType() || owner.IsFeature()) {
			continue
		}
		out.Add(locate(diag.InvalidFeatureContext(src, "redefinition outside a definition or feature"), from, nil))
	}
}

// checkDomainConstraints runs the validator of each source file's language.
func (w *Workspace) checkDomainConstraints(out *diag.List) {
	for _, kind := range relations.DomainKinds {
		for _, rel := range w.graph.Relations(kind) {
			from, target, ok := w.endpoints(rel)
			if !ok {
				continue
			}
			v := w.validatorFor(from.SourceFile)
			if v == nil {
				continue
			}
			err := v.Validate(kind, from, target)
			var de *diag.Error
			if errors.As(err, &de) {
				out.Add(locate(de, from, rel.Span))
			} else {
				out.Add(err)
			}
		}
	}
}

func (w *Workspace) validatorFor(path string) adapter.RelationshipValidator {
	f, ok := w.files[path]
	if !ok {
		return nil
	}
	a, err := w.registry.For(f.Content)
	if err != nil {
		return nil
	}
	return a.Validator()
}

func (w *Workspace) checkImports(out *diag.List) {
	for _, imp := range w.table.Imports() {
		if w.table.ResolvesImport(imp) {
			continue
		}
		err := diag.InvalidImport(imp.Path, "no namespace or member with that name").AsWarning()
		if imp.File != "" && imp.Span != nil {
			err = err.At(source.Location{File: imp.File, Span: *imp.Span})
		}
		out.Add(err)
	}
}

// endpoints resolves both ends of a canonicalized edge.
func (w *Workspace) endpoints(rel relations.Relation) (from, target *symbols.Symbol, ok bool) {
	from, ok = w.table.LookupQualifiedNoAlias(rel.Source)
	if !ok {
		return nil, nil, false
	}
	target, ok = w.table.LookupQualified(rel.Target)
	if !ok {
		return nil, nil, false
	}
	return from, target, true
}

// locate attaches the edge span, or the symbol span, to err.
func locate(err *diag.Error, sym *symbols.Symbol, span *source.Span) *diag.Error {
	if sym.SourceFile == "" {
		return err
	}
	if span == nil {
		span = sym.Span
	}
	if span == nil {
		return err
	}
	return err.At(source.Location{File: sym.SourceFile, Span: *span})
}
