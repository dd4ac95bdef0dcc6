// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

// SysMLVisitor receives one callback per SysML node category.
//
// Walks are shallow: WalkSysML dispatches the given list only. A visitor
// that wants to descend calls WalkSysML on the node's Body itself, which
// lets it bracket the body with scope and namespace bookkeeping.
type SysMLVisitor interface {
	VisitNamespace(n *Namespace)
	VisitPackage(n *Package)
	VisitDefinition(n *Definition)
	VisitUsage(n *Usage)
	VisitImport(n *Import)
	VisitAlias(n *Alias)
	VisitComment(n *Comment)
	VisitBinding(n *Binding)
}

// KerMLVisitor receives one callback per KerML node category.
type KerMLVisitor interface {
	VisitNamespace(n *Namespace)
	VisitPackage(n *Package)
	VisitClassifier(n *Classifier)
	VisitFeature(n *Feature)
	VisitImport(n *Import)
	VisitAlias(n *Alias)
	VisitComment(n *Comment)
}

// WalkSysML dispatches each element to v. Nodes that do not belong to
// SysML are ignored.
func WalkSysML(v SysMLVisitor, elements Elements) {
	for _, el := range elements {
		switch n := el.(type) {
		case *Package:
			v.VisitPackage(n)
		case *Definition:
			v.VisitDefinition(n)
		case *Usage:
			v.VisitUsage(n)
		case *Import:
			v.VisitImport(n)
		case *Alias:
			v.VisitAlias(n)
		case *Comment:
			v.VisitComment(n)
		case *Binding:
			v.VisitBinding(n)
		}
	}
}

// WalkKerML dispatches each element to v. Nodes that do not belong to
// KerML are ignored.
func WalkKerML(v KerMLVisitor, elements Elements) {
	for _, el := range elements {
		switch n := el.(type) {
		case *Package:
			v.VisitPackage(n)
		case *Classifier:
			v.VisitClassifier(n)
		case *Feature:
			v.VisitFeature(n)
		case *Import:
			v.VisitImport(n)
		case *Alias:
			v.VisitAlias(n)
		case *Comment:
			v.VisitComment(n)
		}
	}
}

// Allowed reports whether a node of category c may appear in lang.
func Allowed(lang Language, c Category) bool {
	switch c {
	case CategoryPackage, CategoryImport, CategoryAlias, CategoryComment:
		return true
	case CategoryDefinition, CategoryUsage, CategoryBinding:
		return lang == LanguageSysML
	case CategoryClassifier, CategoryFeature:
		return lang == LanguageKerML
	}
	return false
}
