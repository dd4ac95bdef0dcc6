// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast defines the two AST shapes the semantic index accepts and
// the visitor contracts adapters implement to walk them.
//
// The AST is produced by an external parser. It reaches the index either
// as Go values built directly or as an interchange document decoded with
// Decode. Nodes are treated as immutable once handed to an adapter.
package ast

import "github.com/AleutianAI/syslens/services/semantic/source"

// Language tags one of the two supported AST shapes.
type Language string

const (
	LanguageSysML Language = "sysml"
	LanguageKerML Language = "kerml"
)

// Category names a node kind for visitor dispatch and diagnostics.
type Category string

const (
	CategoryNamespace  Category = "namespace"
	CategoryPackage    Category = "package"
	CategoryDefinition Category = "definition"
	CategoryUsage      Category = "usage"
	CategoryClassifier Category = "classifier"
	CategoryFeature    Category = "feature"
	CategoryImport     Category = "import"
	CategoryAlias      Category = "alias"
	CategoryComment    Category = "comment"
	CategoryBinding    Category = "binding"
)

// File is a parsed file. It is implemented by exactly *SysMLFile and
// *KerMLFile.
type File interface {
	// Language returns the AST shape.
	Language() Language

	// Root returns the file-level namespace declaration, if any.
	Root() *Namespace

	// TopLevel returns the top-level elements.
	TopLevel() Elements

	isFile()
}

// SysMLFile is the AST of one SysML file.
type SysMLFile struct {
	Namespace *Namespace `yaml:"namespace,omitempty"`
	Elements  Elements   `yaml:"elements"`
}

func (*SysMLFile) Language() Language { return LanguageSysML }
func (f *SysMLFile) Root() *Namespace { return f.Namespace }
func (f *SysMLFile) TopLevel() Elements { return f.Elements }
func (*SysMLFile) isFile() {}

// KerMLFile is the AST of one KerML file.
type KerMLFile struct {
	Namespace *Namespace `yaml:"namespace,omitempty"`
	Elements  Elements   `yaml:"elements"`
}

func (*KerMLFile) Language() Language { return LanguageKerML }
func (f *KerMLFile) Root() *Namespace { return f.Namespace }
func (f *KerMLFile) TopLevel() Elements { return f.Elements }
func (*KerMLFile) isFile() {}

// Element is any node that can appear in an element list.
type Element interface {
	Category() Category
	isElement()
}

// Elements is an ordered element list.
type Elements []Element

// Ref is a by-name reference to another element.
type Ref struct {
	Name string       `yaml:"name"`
	Span *source.Span `yaml:"span,omitempty"`
}

// Namespace is a file-level namespace declaration. Every top-level
// element of the file lives inside it.
type Namespace struct {
	Name string       `yaml:"name"`
	Span *source.Span `yaml:"span,omitempty"`
}

// Package is a named container.
type Package struct {
	Name string       `yaml:"name"`
	Span *source.Span `yaml:"span,omitempty"`
	Doc  string       `yaml:"doc,omitempty"`
	Body Elements     `yaml:"body,omitempty"`
}

// Import brings a namespace's members, or a single member, into scope.
type Import struct {
	// Path is the imported path without any wildcard suffix.
	Path string `yaml:"path"`

	// Namespace is set for "Path::*" and "Path::**".
	Namespace bool `yaml:"namespace,omitempty"`

	// Recursive is set for "Path::**".
	Recursive bool `yaml:"recursive,omitempty"`

	Span *source.Span `yaml:"span,omitempty"`
}

// Alias introduces Name as another name for Target.
type Alias struct {
	Name   string       `yaml:"name"`
	Target Ref          `yaml:"for"`
	Span   *source.Span `yaml:"span,omitempty"`
}

// Comment is a documentation or free comment. A comment inside a named
// element's body documents that element.
type Comment struct {
	Text string       `yaml:"text"`
	Span *source.Span `yaml:"span,omitempty"`
}

// Definition is a SysML definition such as "part def Vehicle".
type Definition struct {
	// Kind is the keyword, e.g. "part def" or "requirement def".
	Kind        string       `yaml:"kind"`
	Name        string       `yaml:"name"`
	Span        *source.Span `yaml:"span,omitempty"`
	Abstract    bool         `yaml:"abstract,omitempty"`
	Doc         string       `yaml:"doc,omitempty"`
	Specializes []Ref        `yaml:"specializes,omitempty"`
	Body        Elements     `yaml:"body,omitempty"`
}

// Usage is a SysML usage such as "part engine : Engine". Name is empty
// for anonymous usages.
type Usage struct {
	// Kind is the keyword, e.g. "part", "requirement" or "use case".
	Kind             string       `yaml:"kind"`
	Name             string       `yaml:"name,omitempty"`
	Span             *source.Span `yaml:"span,omitempty"`
	Doc              string       `yaml:"doc,omitempty"`
	TypedBy          []Ref        `yaml:"typed_by,omitempty"`
	Subsets          []Ref        `yaml:"subsets,omitempty"`
	Redefines        []Ref        `yaml:"redefines,omitempty"`
	ReferenceSubsets []Ref        `yaml:"references,omitempty"`
	Satisfies        []Ref        `yaml:"satisfies,omitempty"`
	Performs         []Ref        `yaml:"performs,omitempty"`
	Exhibits         []Ref        `yaml:"exhibits,omitempty"`
	Includes         []Ref        `yaml:"includes,omitempty"`
	Body             Elements     `yaml:"body,omitempty"`
}

// Binding is a SysML "bind a = b" connector.
type Binding struct {
	Left  Ref          `yaml:"left"`
	Right Ref          `yaml:"right"`
	Span  *source.Span `yaml:"span,omitempty"`
}

// Classifier is a KerML classifier such as "class Wheel".
type Classifier struct {
	// Kind is the keyword, e.g. "class", "datatype" or "behavior".
	Kind         string       `yaml:"kind"`
	Name         string       `yaml:"name"`
	Span         *source.Span `yaml:"span,omitempty"`
	Abstract     bool         `yaml:"abstract,omitempty"`
	Doc          string       `yaml:"doc,omitempty"`
	Specializes  []Ref        `yaml:"specializes,omitempty"`
	Conjugates   *Ref         `yaml:"conjugates,omitempty"`
	DisjointFrom []Ref        `yaml:"disjoint_from,omitempty"`
	Body         Elements     `yaml:"body,omitempty"`
}

// Feature is a KerML feature. Name is empty for anonymous features.
type Feature struct {
	// Kind is the keyword, usually "feature".
	Kind      string       `yaml:"kind,omitempty"`
	Name      string       `yaml:"name,omitempty"`
	Span      *source.Span `yaml:"span,omitempty"`
	Doc       string       `yaml:"doc,omitempty"`
	TypedBy   []Ref        `yaml:"typed_by,omitempty"`
	Subsets   []Ref        `yaml:"subsets,omitempty"`
	Redefines []Ref        `yaml:"redefines,omitempty"`
	Body      Elements     `yaml:"body,omitempty"`
}

func (*Package) Category() Category { return CategoryPackage }
func (*Import) Category() Category { return CategoryImport }
func (*Alias) Category() Category { return CategoryAlias }
func (*Comment) Category() Category { return CategoryComment }
func (*Definition) Category() Category { return CategoryDefinition }
func (*Usage) Category() Category { return CategoryUsage }
func (*Binding) Category() Category { return CategoryBinding }
func (*Classifier) Category() Category { return CategoryClassifier }
func (*Feature) Category() Category { return CategoryFeature }

func (*Package) isElement() {}
func (*Import) isElement() {}
func (*Alias) isElement() {}
func (*Comment) isElement() {}
func (*Definition) isElement() {}
func (*Usage) isElement() {}
func (*Binding) isElement() {}
func (*Classifier) isElement() {}
func (*Feature) isElement() {}

// String renders the import the way it is written in source.
func (i *Import) String() string {
	switch {
	case i.Recursive:
		return i.Path + "::**"
	case i.Namespace:
		return i.Path + "::*"
	}
	return i.Path
}

// Body returns the nested elements of el, or nil for leaf nodes.
func Body(el Element) Elements {
	switch n := el.(type) {
	case *Package:
		return n.Body
	case *Definition:
		return n.Body
	case *Usage:
		return n.Body
	case *Classifier:
		return n.Body
	case *Feature:
		return n.Body
	}
	return nil
}

// CollectImports returns every import in elements, depth first.
func CollectImports(elements Elements) []*Import {
	var out []*Import
	for _, el := range elements {
		if imp, ok := el.(*Import); ok {
			out = append(out, imp)
			continue
		}
		out = append(out, CollectImports(Body(el))...)
	}
	return out
}
