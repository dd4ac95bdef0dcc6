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

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for AST decoding.
var (
	// ErrUnknownLanguage is returned when neither the document nor the
	// file name identifies the AST language.
	ErrUnknownLanguage = errors.New("cannot determine AST language")

	// ErrElementNotAllowed is returned when a node category is not part
	// of the document's language, such as a classifier in a SysML file.
	ErrElementNotAllowed = errors.New("element not allowed in language")

	// ErrMalformedElement is returned for an element entry that is not a
	// single-key mapping naming a known category.
	ErrMalformedElement = errors.New("malformed element")
)

// Document suffixes recognized by LanguageForPath, after any
// interchange-format suffix is stripped.
const (
	SysMLSuffix = ".sysml"
	KerMLSuffix = ".kerml"
)

var interchangeSuffixes = []string{".yaml", ".yml", ".json"}

// LanguageForPath infers the language from a file name.
//
// Description:
//
//	Accepts both model source names ("vehicle.sysml") and interchange
//	document names ("vehicle.sysml.yaml", "base.kerml.json").
//	Matching is case-insensitive.
func LanguageForPath(path string) (Language, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range interchangeSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	switch {
	case strings.HasSuffix(name, SysMLSuffix):
		return LanguageSysML, true
	case strings.HasSuffix(name, KerMLSuffix):
		return LanguageKerML, true
	}
	return "", false
}

type document struct {
	Language  Language   `yaml:"language"`
	Namespace *Namespace `yaml:"namespace"`
	Elements  Elements   `yaml:"elements"`
}

// Decode reads one AST interchange document.
//
// Description:
//
//	The document is YAML (JSON is accepted as a subset). Its language
//	comes from the top-level "language" field or, failing that, from the
//	file name. Every element, nested bodies included, must belong to that
//	language.
//
// Inputs:
//
//	path - The document path, used for language inference and errors.
//	data - The document bytes.
//
// Outputs:
//
//	File - *SysMLFile or *KerMLFile.
//	error - Wrapped yaml errors, ErrUnknownLanguage, ErrElementNotAllowed
//	        or ErrMalformedElement.
//
// Example:
//
//	language: sysml
//	elements:
//	  - package:
//	      name: Vehicles
//	      body:
//	        - definition: {kind: part def, name: Vehicle}
//	        - definition: {kind: part def, name: Car, specializes: [Vehicle]}
func Decode(path string, data []byte) (File, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	lang := Language(strings.ToLower(string(doc.Language)))
	if lang == "" {
		inferred, ok := LanguageForPath(path)
		if !ok {
			return nil, fmt.Errorf("decode %s: %w", path, ErrUnknownLanguage)
		}
		lang = inferred
	}
	if lang != LanguageSysML && lang != LanguageKerML {
		return nil, fmt.Errorf("decode %s: %w: %q", path, ErrUnknownLanguage, doc.Language)
	}

	if err := checkAllowed(lang, doc.Elements); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if lang == LanguageSysML {
		return &SysMLFile{Namespace: doc.Namespace, Elements: doc.Elements}, nil
	}
	return &KerMLFile{Namespace: doc.Namespace, Elements: doc.Elements}, nil
}

func checkAllowed(lang Language, elements Elements) error {
	for _, el := range elements {
		if !Allowed(lang, el.Category()) {
			return fmt.Errorf("%w: %s in %s", ErrElementNotAllowed, el.Category(), lang)
		}
		if err := checkAllowed(lang, Body(el)); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalYAML decodes a sequence of single-key mappings, each key naming
// the element category:
//
//	- usage: {kind: part, name: engine, typed_by: [Engine]}
func (e *Elements) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: %w: element list must be a sequence", value.Line, ErrMalformedElement)
	}
	out := make(Elements, 0, len(value.Content))
	for _, item := range value.Content {
		el, err := decodeElement(item)
		if err != nil {
			return err
		}
		out = append(out, el)
	}
	*e = out
	return nil
}

func decodeElement(item *yaml.Node) (Element, error) {
	if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
		return nil, fmt.Errorf("line %d: %w: expected a single-key mapping", item.Line, ErrMalformedElement)
	}
	key, body := item.Content[0].Value, item.Content[1]

	var el Element
	switch Category(key) {
	case CategoryPackage:
		el = &Package{}
	case CategoryDefinition:
		el = &Definition{}
	case CategoryUsage:
		el = &Usage{}
	case CategoryClassifier:
		el = &Classifier{}
	case CategoryFeature:
		el = &Feature{}
	case CategoryImport:
		el = &Import{}
	case CategoryAlias:
		el = &Alias{}
	case CategoryComment:
		el = &Comment{}
	case CategoryBinding:
		el = &Binding{}
	default:
		return nil, fmt.Errorf("line %d: %w: unknown category %q", item.Line, ErrMalformedElement, key)
	}
	if err := body.Decode(el); err != nil {
		return nil, err
	}
	return el, nil
}

// UnmarshalYAML accepts a bare name or a {name, span} mapping.
func (r *Ref) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*r = Ref{Name: value.Value}
		return nil
	}
	type plain Ref
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// UnmarshalYAML accepts the written form ("Lib::*") or a mapping. A
// wildcard suffix on the path sets the namespace and recursive flags.
func (i *Import) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*i = ParseImport(value.Value)
		return nil
	}
	type plain Import
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	parsed := ParseImport(p.Path)
	p.Path = parsed.Path
	p.Namespace = p.Namespace || parsed.Namespace
	p.Recursive = p.Recursive || parsed.Recursive
	if p.Recursive {
		p.Namespace = true
	}
	*i = Import(p)
	return nil
}

// ParseImport splits an import as written into path and flags.
func ParseImport(written string) Import {
	written = strings.TrimSpace(written)
	if path, ok := strings.CutSuffix(written, "::**"); ok {
		return Import{Path: path, Namespace: true, Recursive: true}
	}
	if path, ok := strings.CutSuffix(written, "::*"); ok {
		return Import{Path: path, Namespace: true}
	}
	return Import{Path: written}
}
