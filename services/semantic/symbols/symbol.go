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
	"strings"

	"github.com/AleutianAI/syslens/services/semantic/source"
)

// QualifiedSeparator joins the segments of a qualified name.
const QualifiedSeparator = "::"

// Kind is the symbol variant.
type Kind int

const (
	KindPackage Kind = iota + 1
	KindClassifier
	KindFeature
	KindDefinition
	KindUsage
	KindAlias
	KindImport
)

var kindNames = map[Kind]string{
	KindPackage:    "package",
	KindClassifier: "classifier",
	KindFeature:    "feature",
	KindDefinition: "definition",
	KindUsage:      "usage",
	KindAlias:      "alias",
	KindImport:     "import",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Role is the language-neutral semantic category of a symbol. Adapters
// assign it from their own keyword tables; validators only look at roles.
type Role string

const (
	RoleUnknown      Role = ""
	RoleNamespace    Role = "namespace"
	RoleRequirement  Role = "requirement"
	RoleAction       Role = "action"
	RoleState        Role = "state"
	RoleUseCase      Role = "use case"
	RoleComponent    Role = "component"
	RolePort         Role = "port"
	RoleItem         Role = "item"
	RoleAttribute    Role = "attribute"
	RoleInterface    Role = "interface"
	RoleConnection   Role = "connection"
	RoleConstraint   Role = "constraint"
	RoleCalculation  Role = "calculation"
	RoleEnumeration  Role = "enumeration"
	RoleView         Role = "view"
	RoleViewpoint    Role = "viewpoint"
	RoleRendering    Role = "rendering"
	RoleConcern      Role = "concern"
	RoleOccurrence   Role = "occurrence"
	RoleAnalysis     Role = "analysis"
	RoleVerification Role = "verification"
	RoleAllocation   Role = "allocation"
	RoleFlow         Role = "flow"
	RoleMetadata     Role = "metadata"
	RoleCase         Role = "case"
	RoleType         Role = "type"
	RoleClass        Role = "class"
	RoleDataType     Role = "data type"
	RoleStructure    Role = "structure"
	RoleAssociation  Role = "association"
	RoleBehavior     Role = "behavior"
	RoleFunction     Role = "function"
	RolePredicate    Role = "predicate"
	RoleInteraction  Role = "interaction"
	RoleFeature      Role = "feature"
)

// Symbol is one named entity in the index.
//
// Symbol is a tagged union over Kind. The common fields are always set;
// Target applies to aliases and the Import* fields to imports.
type Symbol struct {
	// Kind is the variant tag.
	Kind Kind

	// Name is the simple name as declared.
	Name string

	// QualifiedName is the "::"-joined path from the namespace root.
	QualifiedName string

	// ScopeID is the scope the symbol was inserted into.
	ScopeID int

	// SourceFile is the file the symbol came from. The table sets it from
	// its current-file context on insert.
	SourceFile string

	// Span is the declaration span, if the parser provided one.
	Span *source.Span

	// References lists every use site found by the reference collector.
	References []source.Location

	// Role is the semantic category assigned by the adapter.
	Role Role

	// ElementKind is the language keyword that produced the symbol,
	// such as "part def" or "class". Informational only.
	ElementKind string

	// Abstract marks abstract definitions and classifiers.
	Abstract bool

	// Doc is the documentation comment attached by the adapter.
	Doc string

	// Target is the aliased name for KindAlias.
	Target string

	// ImportPath, ImportRecursive and ImportNamespace describe KindImport.
	ImportPath      string
	ImportRecursive bool
	ImportNamespace bool
}

// Location returns the symbol's file location, if both file and span are known.
func (s *Symbol) Location() (source.Location, bool) {
	if s.SourceFile == "" || s.Span == nil {
		return source.Location{}, false
	}
	return source.Location{File: s.SourceFile, Span: *s.Span}, true
}

// IsType reports whether the symbol can be used as a type.
func (s *Symbol) IsType() bool {
	return s.Kind == KindDefinition || s.Kind == KindClassifier
}

// IsFeature reports whether the symbol is a usage or feature.
func (s *Symbol) IsFeature() bool {
	return s.Kind == KindUsage || s.Kind == KindFeature
}

// Owner returns the qualified name of the enclosing namespace, or "" at the root.
func (s *Symbol) Owner() string {
	return Parent(s.QualifiedName)
}

// Qualify joins a namespace prefix and a simple name.
func Qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + QualifiedSeparator + name
}

// Parent returns everything before the last separator, or "".
func Parent(qualified string) string {
	idx := strings.LastIndex(qualified, QualifiedSeparator)
	if idx < 0 {
		return ""
	}
	return qualified[:idx]
}

// SimpleName returns the last segment of a qualified name.
func SimpleName(qualified string) string {
	idx := strings.LastIndex(qualified, QualifiedSeparator)
	if idx < 0 {
		return qualified
	}
	return qualified[idx+len(QualifiedSeparator):]
}

// SortByQualifiedName orders symbols by qualified name, then source file.
func SortByQualifiedName(syms []*Symbol) {
	sort.SliceStable(syms, func(i, j int) bool {
		if syms[i].QualifiedName != syms[j].QualifiedName {
			return syms[i].QualifiedName < syms[j].QualifiedName
		}
		return syms[i].SourceFile < syms[j].SourceFile
	})
}
