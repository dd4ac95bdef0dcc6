// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package relations

// Shape is the cardinality of a relationship kind.
type Shape int

const (
	// OneToMany maps a source to an ordered, deduplicated target list.
	OneToMany Shape = iota + 1

	// OneToOne maps a source to a single target, last write wins.
	OneToOne

	// Symmetric relates two nodes in both directions.
	Symmetric
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case OneToMany:
		return "one-to-many"
	case OneToOne:
		return "one-to-one"
	case Symmetric:
		return "symmetric"
	}
	return "unknown"
}

// Kind names a relationship.
type Kind string

// Standard relationship kinds shared by both languages.
const (
	Specialization      Kind = "specialization"
	Typing              Kind = "typing"
	Subsetting          Kind = "subsetting"
	Redefinition        Kind = "redefinition"
	ReferenceSubsetting Kind = "reference_subsetting"
	Satisfy             Kind = "satisfy"
	Perform             Kind = "perform"
	Exhibit             Kind = "exhibit"
	Include             Kind = "include"
	AliasOf             Kind = "alias_of"
	Conjugation         Kind = "conjugation"
	Binding             Kind = "binding"
	Disjoining          Kind = "disjoining"
)

// StandardKinds maps every standard kind to its shape.
var StandardKinds = map[Kind]Shape{
	Specialization:      OneToMany,
	Typing:              OneToMany,
	Subsetting:          OneToMany,
	Redefinition:        OneToMany,
	ReferenceSubsetting: OneToMany,
	Satisfy:             OneToMany,
	Perform:             OneToMany,
	Exhibit:             OneToMany,
	Include:             OneToMany,
	AliasOf:             OneToOne,
	Conjugation:         OneToOne,
	Binding:             Symmetric,
	Disjoining:          Symmetric,
}

// ReferenceKinds are the kinds folded into find-references.
var ReferenceKinds = []Kind{Typing, Specialization, Redefinition, Subsetting, ReferenceSubsetting}

// DomainKinds are the kinds checked by language validators.
var DomainKinds = []Kind{Satisfy, Perform, Exhibit, Include}
